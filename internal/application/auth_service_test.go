package application

import (
	"context"
	"testing"
	"time"

	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/testfixtures"
)

var testArgon2Params = Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  8,
	KeyLength:   16,
}

func newAuthEnv(t *testing.T) (*testEnv, *AuthService, testfixtures.UserFixture) {
	t.Helper()
	env := newTestEnv(t)

	hash, err := CreatePasswordHash("correct horse", testArgon2Params)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := env.harness.SeedUser(t, testfixtures.NewUserFixture(
		testfixtures.WithUserRole(persistence.RoleTeacher),
		testfixtures.WithUserSector("Musica"),
		testfixtures.WithUserPasswordHash(hash),
	))

	svc := NewAuthService(env.harness.Store, nil, testfixtures.NewIDGenerator("token").NextFunc(), env.clock.NowFunc(), time.Hour, discardLogger())
	return env, svc, user
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	t.Parallel()
	env, svc, user := newAuthEnv(t)
	ctx := context.Background()

	result, err := svc.Login(ctx, "  "+user.Email+" ", "correct horse")
	if err != nil {
		t.Fatalf("expected login to succeed, got %v", err)
	}
	if result.Session.Token != "token-1" {
		t.Fatalf("expected token-1, got %q", result.Session.Token)
	}
	if !result.Session.ExpiresAt.Equal(env.clock.Now().Add(time.Hour)) {
		t.Fatalf("expected expiry one hour ahead, got %s", result.Session.ExpiresAt)
	}

	principal, err := svc.ValidateSession(ctx, result.Session.Token)
	if err != nil {
		t.Fatalf("expected session to validate, got %v", err)
	}
	if principal.Email != user.Email || principal.Role != persistence.RoleTeacher || principal.Sector != "Musica" {
		t.Fatalf("unexpected principal %+v", principal)
	}
	if principal.IsManager() {
		t.Fatalf("expected teacher not to be a manager")
	}

	env.clock.Advance(2 * time.Hour)
	_, err = svc.ValidateSession(ctx, result.Session.Token)
	assertErrorIs(t, err, ErrSessionExpired)
}

func TestAuthServiceLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()
	_, svc, user := newAuthEnv(t)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", user.Email, "battery staple"},
		{"unknown email", "nobody@example.com", "correct horse"},
		{"empty password", user.Email, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.email, tt.password)
			assertErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestAuthServiceLogout(t *testing.T) {
	t.Parallel()
	_, svc, user := newAuthEnv(t)
	ctx := context.Background()

	result, err := svc.Login(ctx, user.Email, "correct horse")
	if err != nil {
		t.Fatalf("expected login to succeed, got %v", err)
	}
	if err := svc.Logout(ctx, result.Session.Token); err != nil {
		t.Fatalf("expected logout to succeed, got %v", err)
	}

	_, err = svc.ValidateSession(ctx, result.Session.Token)
	assertErrorIs(t, err, ErrSessionRevoked)

	assertErrorIs(t, svc.Logout(ctx, result.Session.Token), ErrInvalidCredentials)
	assertErrorIs(t, svc.Logout(ctx, " "), ErrInvalidCredentials)

	_, err = svc.ValidateSession(ctx, "unknown")
	assertErrorIs(t, err, ErrUnauthenticated)
}
