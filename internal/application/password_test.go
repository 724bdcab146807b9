package application

import (
	"strings"
	"testing"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := CreatePasswordHash("s3cret-pass", testArgon2Params)
	if err != nil {
		t.Fatalf("expected hash, got %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected hash encoding %q", hash)
	}
	if err := VerifyPassword(hash, "s3cret-pass"); err != nil {
		t.Fatalf("expected password to verify, got %v", err)
	}
	assertErrorIs(t, VerifyPassword(hash, "other"), ErrInvalidCredentials)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	t.Parallel()

	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$***$aGFzaA",
	} {
		assertErrorIs(t, VerifyPassword(encoded, "pw"), ErrInvalidPasswordHash)
	}
	assertErrorIs(t, VerifyPassword("$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$aGFzaA", "pw"), ErrIncompatiblePasswordVersion)
}
