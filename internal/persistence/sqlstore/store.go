// Package sqlstore implements persistence.Store on top of sqlx for the
// SQLite and Postgres dialects.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/room-scheduler/internal/persistence"
)

// Store runs units of work against a SQL database.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
	loc     *time.Location
	retry   *RetryHelper
}

// Option configures a Store.
type Option func(*Store)

// WithLocation sets the zone timestamps are stored in. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithRetry overrides the busy retry policy.
func WithRetry(config RetryConfig) Option {
	return func(s *Store) {
		s.retry = NewRetryHelper(config)
	}
}

// New creates a Store over db.
func New(db *sqlx.DB, dialect Dialect, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: dialect,
		loc:     time.Local,
		retry:   NewRetryHelper(DefaultRetryConfig()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Dialect returns the SQL dialect of the store.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return mapError("ping", s.db.PingContext(ctx))
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithinTx implements persistence.Store.
func (s *Store) WithinTx(ctx context.Context, fn persistence.TxFunc) error {
	return s.retry.WithRetry(ctx, func() error {
		return s.run(ctx, nil, fn)
	})
}

// WithinReadTx implements persistence.Store.
func (s *Store) WithinReadTx(ctx context.Context, fn persistence.TxFunc) error {
	var opts *sql.TxOptions
	if s.dialect.ReadOnlyTx {
		opts = &sql.TxOptions{ReadOnly: true}
	}
	return s.retry.WithRetry(ctx, func() error {
		return s.run(ctx, opts, fn)
	})
}

func (s *Store) run(ctx context.Context, opts *sql.TxOptions, fn persistence.TxFunc) (err error) {
	tx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		return mapError("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &txStore{tx: tx, dialect: s.dialect, loc: s.loc}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}

// txStore implements persistence.Tx over one *sqlx.Tx.
type txStore struct {
	tx      *sqlx.Tx
	dialect Dialect
	loc     *time.Location
}

var _ persistence.Tx = (*txStore)(nil)

func (t *txStore) stamp(v time.Time) string {
	return v.In(t.loc).Format(timestampLayout)
}

func (t *txStore) rebind(query string) string {
	return sqlx.Rebind(t.dialect.BindType, query)
}

func (t *txStore) get(ctx context.Context, op string, dest any, query string, args ...any) error {
	return mapError(op, t.tx.GetContext(ctx, dest, t.rebind(query), args...))
}

func (t *txStore) selectAll(ctx context.Context, op string, dest any, query string, args ...any) error {
	return mapError(op, t.tx.SelectContext(ctx, dest, t.rebind(query), args...))
}

func (t *txStore) exec(ctx context.Context, op string, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, t.rebind(query), args...)
	if err != nil {
		return 0, mapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError(op, err)
	}
	return n, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}
