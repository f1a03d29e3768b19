package password

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func sha256TestConfig() Config {
	return Config{Algorithm: AlgorithmSHA256}
}

func TestSHA256Deterministic(t *testing.T) {
	hasher, err := NewHasher(sha256TestConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	first, err := hasher.Hash("hunter2")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	second, err := hasher.Hash("hunter2")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if first != second {
		t.Fatalf("expected identical digests, got %q and %q", first, second)
	}

	sum := sha256.Sum256([]byte("hunter2"))
	want := base64.StdEncoding.EncodeToString(sum[:])
	if first != want {
		t.Fatalf("digest mismatch: got %q want %q", first, want)
	}
	if len(first) != sha256DigestLength {
		t.Fatalf("digest length = %d, want %d", len(first), sha256DigestLength)
	}
}

func TestSHA256VerifyMatchAndMismatch(t *testing.T) {
	hasher, err := NewHasher(sha256TestConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	digest, err := hasher.Hash("correct-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := hasher.Verify("correct-password", digest)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatal("expected matching password to verify")
	}

	ok, err = hasher.Verify("wrong-password", digest)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatal("expected mismatched password to fail verification")
	}
}

func TestVerifyMalformedDigest(t *testing.T) {
	hasher, err := NewHasher(sha256TestConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	if _, err := hasher.Verify("password", "not-a-digest"); err == nil {
		t.Fatal("expected malformed digest verification to fail")
	}
}

func TestVerifyCrossFormat(t *testing.T) {
	// An argon2id-configured hasher still verifies legacy sha256 digests,
	// and a sha256-configured hasher verifies argon2id digests.
	a2, err := NewHasher(argon2TestConfig())
	if err != nil {
		t.Fatalf("NewHasher(argon2) error: %v", err)
	}
	sh, err := NewHasher(sha256TestConfig())
	if err != nil {
		t.Fatalf("NewHasher(sha256) error: %v", err)
	}

	legacy, err := sh.Hash("migrating-user")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	ok, err := a2.Verify("migrating-user", legacy)
	if err != nil || !ok {
		t.Fatalf("argon2 hasher failed to verify sha256 digest: ok=%v err=%v", ok, err)
	}

	hardened, err := a2.Hash("migrating-user")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	ok, err = sh.Verify("migrating-user", hardened)
	if err != nil || !ok {
		t.Fatalf("sha256 hasher failed to verify argon2id digest: ok=%v err=%v", ok, err)
	}
}

func TestNeedsUpgradeForLegacyDigest(t *testing.T) {
	a2, err := NewHasher(argon2TestConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	sh, err := NewHasher(sha256TestConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	legacy, err := sh.Hash("upgrade-me")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	up, err := a2.NeedsUpgrade(legacy)
	if err != nil {
		t.Fatalf("NeedsUpgrade error: %v", err)
	}
	if !up {
		t.Fatal("expected sha256 digest to need upgrade under argon2id")
	}

	up, err = sh.NeedsUpgrade(legacy)
	if err != nil {
		t.Fatalf("NeedsUpgrade error: %v", err)
	}
	if up {
		t.Fatal("sha256 hasher must not request upgrades")
	}
}

func TestNewHasherUnknownAlgorithm(t *testing.T) {
	if _, err := NewHasher(Config{Algorithm: "bcrypt"}); err == nil {
		t.Fatal("expected unknown algorithm to be rejected")
	}
}
