package oauth

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"github.com/google/uuid"
)

const pkceVerifierBytes = 32

// GeneratePKCE returns a fresh PKCE pair: a verifier built from 32
// crypto-random bytes and its S256 challenge. Both are base64url without
// padding.
func GeneratePKCE() (verifier, challenge string, err error) {
	raw := make([]byte, pkceVerifierBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}

	verifier = base64.RawURLEncoding.EncodeToString(raw)
	return verifier, ComputeS256Challenge(verifier), nil
}

// ComputeS256Challenge derives the S256 code challenge for a verifier:
// base64url(SHA-256(verifier)), no padding.
func ComputeS256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// SubjectUUID maps a provider subject claim onto a deterministic 128-bit
// user id: the MD5 digest of the UTF-8 subject bytes read as a UUID. The
// same subject always resolves to the same local account. MD5 is an id
// derivation here, not an integrity check.
func SubjectUUID(subject string) uuid.UUID {
	return uuid.UUID(md5.Sum([]byte(subject)))
}

// newState returns a random base64url state token for CSRF binding of the
// redirect.
func newState() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
