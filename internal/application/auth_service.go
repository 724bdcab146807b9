package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-scheduler/internal/persistence"
)

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AuthService coordinates login, logout and session validation.
type AuthService struct {
	store          persistence.Store
	verifyPassword PasswordVerifier
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(store persistence.Store, verify PasswordVerifier, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	if tokenGenerator == nil {
		tokenGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		store:          store,
		verifyPassword: verify,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Login validates credentials and issues a new session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (result LoginResult, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("session store not configured")
		return
	}

	email = normalizeEmail(email)
	logger := s.loggerWith(ctx, "Login", "email", email)
	defer func() {
		logOutcome(ctx, logger, err, "authentication failed", "authentication succeeded",
			"expires_at", result.Session.ExpiresAt,
		)
	}()

	if email == "" || password == "" {
		err = ErrInvalidCredentials
		return
	}

	token := s.tokenGenerator()
	if token == "" {
		err = fmt.Errorf("session token generator returned an empty token")
		return
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx persistence.Tx) error {
		user, err := tx.FindUser(ctx, email)
		if err != nil {
			return mapStoreError(err, ErrInvalidCredentials)
		}
		if err := s.verifyPassword(user.PasswordHash, password); err != nil {
			return ErrInvalidCredentials
		}

		now := s.now()
		if err := tx.DeleteExpiredSessions(ctx, now); err != nil {
			return err
		}
		session := persistence.Session{
			Token:     token,
			UserEmail: user.Email,
			CreatedAt: now,
			ExpiresAt: now.Add(s.sessionTTL),
		}
		if err := tx.CreateSession(ctx, session); err != nil {
			return mapStoreError(err, nil)
		}
		result = LoginResult{Session: session, User: user}
		return nil
	})
	if err != nil {
		result = LoginResult{}
	}
	return
}

// Logout revokes an existing session token.
func (s *AuthService) Logout(ctx context.Context, token string) (err error) {
	if s == nil || s.store == nil {
		return fmt.Errorf("session store not configured")
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "Logout", "token_provided", trimmed != "")
	defer func() {
		logOutcome(ctx, logger, err, "failed to revoke session", "session revoked")
	}()

	if trimmed == "" {
		return ErrInvalidCredentials
	}

	return s.store.WithinTx(ctx, func(ctx context.Context, tx persistence.Tx) error {
		now := s.now()
		if err := tx.RevokeSession(ctx, trimmed, now); err != nil {
			return mapStoreError(err, ErrInvalidCredentials)
		}
		return tx.DeleteExpiredSessions(ctx, now)
	})
}

// ValidateSession verifies that token belongs to an active session and
// returns the principal it authenticates.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("session store not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		err = ErrUnauthenticated
		return
	}

	err = s.store.WithinReadTx(ctx, func(ctx context.Context, tx persistence.Tx) error {
		session, err := tx.GetSession(ctx, trimmed)
		if err != nil {
			return mapStoreError(err, ErrUnauthenticated)
		}
		if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
			return ErrSessionRevoked
		}
		if !session.ExpiresAt.After(s.now()) {
			return ErrSessionExpired
		}

		user, err := tx.FindUser(ctx, session.UserEmail)
		if err != nil {
			return mapStoreError(err, ErrUnauthenticated)
		}
		principal = Principal{Email: user.Email, Role: user.Role}
		if user.Sector != nil {
			principal.Sector = *user.Sector
		}
		return nil
	})
	if err != nil {
		principal = Principal{}
		if !errors.Is(err, ErrUnauthenticated) {
			s.loggerWith(ctx, "ValidateSession").WarnContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
		}
	}
	return
}
