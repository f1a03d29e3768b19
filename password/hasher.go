package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"
)

// Supported hashing algorithms.
const (
	AlgorithmSHA256   = "sha256"
	AlgorithmArgon2ID = "argon2id"
)

// ErrUnsupportedAlgorithm is returned by NewHasher for an unknown algorithm id.
var ErrUnsupportedAlgorithm = errors.New("unsupported hashing algorithm")

// sha256 digests are base64 std encoding of a 32-byte sum.
const sha256DigestLength = 44

// Config selects the hashing algorithm and its parameters. The Argon2
// block is only consulted when Algorithm is [AlgorithmArgon2ID].
type Config struct {
	Algorithm string
	Argon2    Argon2Config
}

// Hasher produces and verifies credential digests. The digest format is
// self-describing: argon2id digests carry a PHC prefix, sha256 digests are
// a bare base64 sum. Verify accepts either format regardless of the
// configured algorithm so stored digests survive an algorithm switch.
//
// Hasher instances are safe for concurrent use.
type Hasher struct {
	algorithm string
	argon2    *argon2Hasher
}

// NewHasher creates a [Hasher] for the configured algorithm.
func NewHasher(cfg Config) (*Hasher, error) {
	switch cfg.Algorithm {
	case AlgorithmSHA256:
		return &Hasher{algorithm: AlgorithmSHA256}, nil
	case AlgorithmArgon2ID:
		a2, err := newArgon2(cfg.Argon2)
		if err != nil {
			return nil, err
		}
		return &Hasher{algorithm: AlgorithmArgon2ID, argon2: a2}, nil
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

// Algorithm returns the configured algorithm id.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// Hash produces a digest of password using the configured algorithm.
// Identical inputs yield identical digests only in sha256 mode; argon2id
// salts every digest.
func (h *Hasher) Hash(password string) (string, error) {
	switch h.algorithm {
	case AlgorithmSHA256:
		return sha256Digest(password), nil
	case AlgorithmArgon2ID:
		return h.argon2.Hash(password)
	default:
		return "", ErrUnsupportedAlgorithm
	}
}

// Verify reports whether password matches the stored digest. The digest
// format decides the algorithm, not the Hasher configuration. Comparison
// is constant-time in both modes. A malformed digest verifies false with
// a non-nil error.
func (h *Hasher) Verify(password, digest string) (bool, error) {
	if strings.HasPrefix(digest, "$"+algorithmID+"$") {
		if h.argon2 != nil {
			return h.argon2.Verify(password, digest)
		}
		// sha256-configured hasher still verifies argon2id digests left
		// over from a previous configuration.
		a2, err := newArgon2(defaultVerifyArgon2Config)
		if err != nil {
			return false, err
		}
		return a2.Verify(password, digest)
	}

	if len(digest) != sha256DigestLength {
		return false, errors.New("invalid digest format")
	}

	computed := sha256Digest(password)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1, nil
}

// NeedsUpgrade reports whether a stored digest should be re-hashed under
// the configured algorithm: any sha256 digest when argon2id is configured,
// or an argon2id digest with weaker-than-configured parameters.
func (h *Hasher) NeedsUpgrade(digest string) (bool, error) {
	if h.algorithm != AlgorithmArgon2ID {
		return false, nil
	}
	if !strings.HasPrefix(digest, "$"+algorithmID+"$") {
		return true, nil
	}
	return h.argon2.NeedsUpgrade(digest)
}

func sha256Digest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Parameters used only to verify argon2id digests when sha256 is the
// configured algorithm; cost fields are read from the PHC string itself.
var defaultVerifyArgon2Config = Argon2Config{
	Memory:      64 * 1024,
	Time:        3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}
