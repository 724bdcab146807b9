package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const versionTableDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version VARCHAR(32) PRIMARY KEY,
	applied_at VARCHAR(32) NOT NULL,
	checksum VARCHAR(64) NOT NULL DEFAULT '',
	execution_time_ms BIGINT NOT NULL DEFAULT 0
)`

// Executor applies migrations and tracks them in schema_migrations.
// Placeholders are rebound for the driver of db.
type Executor struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewExecutor creates an Executor over db.
func NewExecutor(db *sqlx.DB) *Executor {
	return &Executor{db: db, now: time.Now}
}

// InitializeVersionTable creates schema_migrations if needed.
func (e *Executor) InitializeVersionTable(ctx context.Context) error {
	if _, err := e.db.ExecContext(ctx, versionTableDDL); err != nil {
		return NewDatabaseError("", versionTableDDL, "create schema_migrations table", err)
	}
	return nil
}

// Execute runs every statement of m and records it in one transaction.
func (e *Executor) Execute(ctx context.Context, m Migration) (err error) {
	statements := splitStatements(m.SQL)
	if len(statements) == 0 {
		return NewMigrationError(m.Version, m.FilePath, "parse SQL", fmt.Errorf("%w: no SQL statements found", ErrInvalidMigrationFile))
	}

	started := e.now()
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewDatabaseError(m.Version, "", "begin transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	for i, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return NewDatabaseError(m.Version, stmt, fmt.Sprintf("execute statement %d", i+1), err)
		}
	}

	insert := tx.Rebind(`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`)
	elapsed := e.now().Sub(started)
	if _, err = tx.ExecContext(ctx, insert, m.Version, e.now().UTC().Format(time.RFC3339), m.Checksum, elapsed.Milliseconds()); err != nil {
		return NewDatabaseError(m.Version, insert, "record migration", err)
	}

	if err = tx.Commit(); err != nil {
		return NewDatabaseError(m.Version, "", "commit transaction", err)
	}
	return nil
}

type appliedRow struct {
	Version         string `db:"version"`
	AppliedAt       string `db:"applied_at"`
	Checksum        string `db:"checksum"`
	ExecutionTimeMs int64  `db:"execution_time_ms"`
}

// Applied returns the recorded migrations.
func (e *Executor) Applied(ctx context.Context) ([]AppliedMigration, error) {
	const query = `SELECT version, applied_at, checksum, execution_time_ms FROM schema_migrations`
	var rows []appliedRow
	if err := e.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, NewDatabaseError("", query, "get applied versions", err)
	}

	applied := make([]AppliedMigration, 0, len(rows))
	for _, row := range rows {
		appliedAt, parseErr := time.Parse(time.RFC3339, row.AppliedAt)
		if parseErr != nil {
			return nil, NewDatabaseError(row.Version, query, "parse applied_at", parseErr)
		}
		applied = append(applied, AppliedMigration{
			Version:       row.Version,
			AppliedAt:     appliedAt,
			ExecutionTime: time.Duration(row.ExecutionTimeMs) * time.Millisecond,
			Checksum:      row.Checksum,
		})
	}
	return applied, nil
}
