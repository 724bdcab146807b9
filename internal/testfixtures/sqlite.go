package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/persistence/migration"
	"github.com/example/room-scheduler/internal/persistence/sqlite"
	"github.com/example/room-scheduler/internal/persistence/sqlstore"
)

// SQLiteHarness is a migrated, file-backed SQLite store for integration tests.
type SQLiteHarness struct {
	Store *sqlstore.Store
	DB    *sqlx.DB
	Path  string
}

// NewSQLiteHarness opens a store in a temporary directory and applies the
// embedded migrations. The database is closed when the test ends.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "scheduler.db")
	cfg := sqlite.DefaultConfig(path)
	cfg.BusyTimeout = 10 * time.Second

	ctx := context.Background()
	db, err := sqlite.Open(ctx, cfg)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })

	dialect := sqlstore.SQLite()
	fsys, dir := dialect.Migrations()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := migration.NewManager(db, fsys, dir, logger).Run(ctx); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	return &SQLiteHarness{
		Store: sqlstore.New(db, dialect, sqlstore.WithLocation(Location())),
		DB:    db,
		Path:  path,
	}
}

// Seed runs fn in a write transaction and fails the test on error.
func (h *SQLiteHarness) Seed(tb testing.TB, fn persistence.TxFunc) {
	tb.Helper()
	if err := h.Store.WithinTx(context.Background(), fn); err != nil {
		tb.Fatalf("seed failed: %v", err)
	}
}

// SeedSector creates the named sectors.
func (h *SQLiteHarness) SeedSector(tb testing.TB, names ...string) {
	tb.Helper()
	h.Seed(tb, func(ctx context.Context, tx persistence.Tx) error {
		for _, name := range names {
			if err := tx.UpsertSector(ctx, name); err != nil {
				return err
			}
		}
		return nil
	})
}

// SeedRoom stores the room and its sector.
func (h *SQLiteHarness) SeedRoom(tb testing.TB, room RoomFixture) RoomFixture {
	tb.Helper()
	h.Seed(tb, func(ctx context.Context, tx persistence.Tx) error {
		if err := tx.UpsertSector(ctx, room.Sector); err != nil {
			return err
		}
		return tx.UpsertRoom(ctx, room.Persistence())
	})
	return room
}

// SeedUser stores the user and its sector, if any.
func (h *SQLiteHarness) SeedUser(tb testing.TB, user UserFixture) UserFixture {
	tb.Helper()
	h.Seed(tb, func(ctx context.Context, tx persistence.Tx) error {
		if user.Sector != "" {
			if err := tx.UpsertSector(ctx, user.Sector); err != nil {
				return err
			}
		}
		return tx.InsertUser(ctx, user.Persistence())
	})
	return user
}

// SeedBooking stores the booking as is, without rule or overlap checks.
func (h *SQLiteHarness) SeedBooking(tb testing.TB, booking BookingFixture) BookingFixture {
	tb.Helper()
	h.Seed(tb, func(ctx context.Context, tx persistence.Tx) error {
		_, err := tx.InsertBooking(ctx, booking.Persistence())
		return err
	})
	return booking
}

// SeedInvitation invites email to bookingID and records response when it is
// not pending.
func (h *SQLiteHarness) SeedInvitation(tb testing.TB, email, bookingID string, response persistence.Response) {
	tb.Helper()
	h.Seed(tb, func(ctx context.Context, tx persistence.Tx) error {
		if err := tx.InsertInvitation(ctx, email, bookingID); err != nil {
			return err
		}
		if response == persistence.ResponsePending || response == "" {
			return nil
		}
		r := persistence.InvitationResponse{
			UserEmail:   email,
			BookingID:   bookingID,
			Response:    response,
			RespondedAt: ReferenceTime(),
		}
		if response == persistence.ResponseDeclined {
			reason := "seeded"
			r.Reason = &reason
		}
		return tx.UpdateInvitationResponse(ctx, r)
	})
}
