package application

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

var testArgon2idParams = Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestArgon2idHasher(t *testing.T) {
	t.Parallel()

	hash, err := NewArgon2idHasher(testArgon2idParams)("correct-horse")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if err := VerifyPassword(hash, "correct-horse"); err != nil {
		t.Fatalf("expected password to verify, got %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	other, err := NewArgon2idHasher(testArgon2idParams)("correct-horse")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if other == hash {
		t.Fatalf("expected distinct salts to produce distinct hashes")
	}
}

func TestVerifyPassword_Bcrypt(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("legacy-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}
	if err := VerifyPassword(string(hash), "legacy-pass"); err != nil {
		t.Fatalf("expected bcrypt hash to verify, got %v", err)
	}
	if err := VerifyPassword(string(hash), "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	t.Parallel()

	for _, hash := range []string{"", "plain", "$argon2i$v=19$m=1,t=1,p=1$a$b"} {
		if err := VerifyPassword(hash, "x"); !errors.Is(err, ErrInvalidPasswordHash) {
			t.Fatalf("expected ErrInvalidPasswordHash for %q, got %v", hash, err)
		}
	}
}
