package sqlstore

import (
	"context"
	"time"

	"github.com/example/room-scheduler/internal/persistence"
)

type sessionRow struct {
	Token     string   `db:"token"`
	UserEmail string   `db:"user_email"`
	CreatedAt wallTime `db:"created_at"`
	ExpiresAt wallTime `db:"expires_at"`
	RevokedAt wallTime `db:"revoked_at"`
}

func (t *txStore) CreateSession(ctx context.Context, s persistence.Session) error {
	_, err := t.exec(ctx, "create session",
		`INSERT INTO sessions (token, user_email, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		s.Token, s.UserEmail, t.stamp(s.CreatedAt), t.stamp(s.ExpiresAt))
	return err
}

func (t *txStore) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	var row sessionRow
	if err := t.get(ctx, "get session", &row,
		`SELECT token, user_email, created_at, expires_at, revoked_at FROM sessions WHERE token = ?`, token); err != nil {
		return persistence.Session{}, err
	}
	return persistence.Session{
		Token:     row.Token,
		UserEmail: row.UserEmail,
		CreatedAt: row.CreatedAt.in(t.loc),
		ExpiresAt: row.ExpiresAt.in(t.loc),
		RevokedAt: row.RevokedAt.ptr(t.loc),
	}, nil
}

// RevokeSession marks an active session revoked. Unknown or already revoked
// tokens report persistence.ErrNotFound.
func (t *txStore) RevokeSession(ctx context.Context, token string, revokedAt time.Time) error {
	n, err := t.exec(ctx, "revoke session",
		`UPDATE sessions SET revoked_at = ? WHERE token = ? AND revoked_at IS NULL`, t.stamp(revokedAt), token)
	if err != nil {
		return err
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (t *txStore) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := t.exec(ctx, "delete expired sessions", `DELETE FROM sessions WHERE expires_at < ?`, t.stamp(reference))
	return err
}
