package migration

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
)

// Manager applies pending migrations in version order.
type Manager struct {
	scanner  *Scanner
	executor *Executor
	logger   *slog.Logger
}

// NewManager creates a Manager reading migrations from dir inside fsys.
func NewManager(db *sqlx.DB, fsys fs.FS, dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		scanner:  NewScanner(fsys, dir),
		executor: NewExecutor(db),
		logger:   logger.With(slog.String("component", "migration")),
	}
}

// Run applies every pending migration. It stops at the first failure.
func (m *Manager) Run(ctx context.Context) error {
	started := time.Now()
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "schema status",
		slog.String("current_version", status.CurrentVersion),
		slog.Int("pending", status.PendingCount),
	)
	if status.PendingCount == 0 {
		return nil
	}

	for i, migration := range status.PendingMigrations {
		m.logger.InfoContext(ctx, "applying migration",
			slog.String("version", migration.Version),
			slog.String("description", migration.Description),
			slog.Int("position", i+1),
			slog.Int("total", status.PendingCount),
		)
		if err := m.executor.Execute(ctx, migration); err != nil {
			m.logger.ErrorContext(ctx, "migration failed",
				slog.String("version", migration.Version),
				slog.String("file", migration.FilePath),
				slog.Any("error", err),
			)
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration", fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
	}

	m.logger.InfoContext(ctx, "migrations applied",
		slog.Int("count", status.PendingCount),
		slog.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// Status compares the migration files with schema_migrations.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}
	available, err := m.scanner.Scan()
	if err != nil {
		return Status{}, err
	}
	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return Status{}, err
	}
	sort.Slice(applied, func(i, j int) bool {
		return versionNumber(applied[i].Version) < versionNumber(applied[j].Version)
	})

	byVersion := make(map[int]Migration, len(available))
	for _, migration := range available {
		byVersion[versionNumber(migration.Version)] = migration
	}

	appliedSet := make(map[int]bool, len(applied))
	status := Status{AppliedMigrations: applied}
	for _, a := range applied {
		n := versionNumber(a.Version)
		appliedSet[n] = true
		migration, ok := byVersion[n]
		if !ok {
			return Status{}, NewMigrationError(a.Version, "", "validate sequence",
				fmt.Errorf("%w: applied migration %s has no file", ErrInvalidVersion, a.Version))
		}
		if a.Checksum != "" && a.Checksum != migration.Checksum {
			return Status{}, NewMigrationError(a.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
		status.CurrentVersion = a.Version
	}

	for _, migration := range available {
		if !appliedSet[versionNumber(migration.Version)] {
			status.PendingMigrations = append(status.PendingMigrations, migration)
		}
	}
	status.PendingCount = len(status.PendingMigrations)
	return status, nil
}
