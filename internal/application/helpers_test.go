package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/scheduler"
	"github.com/example/room-scheduler/internal/testfixtures"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubScheduleCache struct {
	mu            sync.Mutex
	generation    int64
	entries       map[string][]byte
	hits          int
	invalidations int
}

func newStubScheduleCache() *stubScheduleCache {
	return &stubScheduleCache{entries: make(map[string][]byte)}
}

func (c *stubScheduleCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation, nil
}

func (c *stubScheduleCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return value, ok, nil
}

func (c *stubScheduleCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *stubScheduleCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.invalidations++
	return nil
}

func (c *stubScheduleCache) counts() (hits, invalidations int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.invalidations
}

type testEnv struct {
	harness     *testfixtures.SQLiteHarness
	clock       *testfixtures.Clock
	cache       *stubScheduleCache
	bookings    *BookingService
	invitations *InvitationService
	weekly      *WeeklyQueryService
	stats       *StatsService
	manager     testfixtures.UserFixture
	room        testfixtures.RoomFixture
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	harness := testfixtures.NewSQLiteHarness(t)
	clock := testfixtures.NewClock(time.Time{})
	cache := newStubScheduleCache()
	logger := discardLogger()
	rules := scheduler.DefaultRules(clock.NowFunc())

	env := &testEnv{
		harness:     harness,
		clock:       clock,
		cache:       cache,
		bookings:    NewBookingService(harness.Store, rules, cache, testfixtures.NewIDGenerator("booking").NextFunc(), logger),
		invitations: NewInvitationService(harness.Store, cache, clock.NowFunc(), logger),
		weekly:      NewWeeklyQueryService(harness.Store, cache, testfixtures.Location(), logger),
		stats:       NewStatsService(harness.Store, logger),
	}
	env.manager = harness.SeedUser(t, testfixtures.NewUserFixture(
		testfixtures.WithUserRole(persistence.RoleManager),
		testfixtures.WithUserName("Maria", "Rossi"),
	))
	env.room = harness.SeedRoom(t, testfixtures.NewRoomFixture(
		testfixtures.WithRoomName("SalaA"),
		testfixtures.WithRoomSector("Musica"),
		testfixtures.WithRoomCapacity(3),
	))
	return env
}

func (e *testEnv) seedStudent(t *testing.T) testfixtures.UserFixture {
	t.Helper()
	return e.harness.SeedUser(t, testfixtures.NewUserFixture())
}

func (e *testEnv) seedRoom(t *testing.T, name string, capacity int) testfixtures.RoomFixture {
	t.Helper()
	return e.harness.SeedRoom(t, testfixtures.NewRoomFixture(
		testfixtures.WithRoomName(name),
		testfixtures.WithRoomSector("Musica"),
		testfixtures.WithRoomCapacity(capacity),
	))
}

func (e *testEnv) seedBooking(t *testing.T, room testfixtures.RoomFixture, start time.Time, hours int) testfixtures.BookingFixture {
	t.Helper()
	return e.harness.SeedBooking(t, testfixtures.NewBookingFixture(
		testfixtures.WithBookingRoom(room),
		testfixtures.WithBookingOwner(e.manager.Email),
		testfixtures.WithBookingSlot(start, hours),
	))
}

func (e *testEnv) createInput(start time.Time, hours int, invitees ...string) CreateBookingInput {
	return CreateBookingInput{
		Start:    start,
		Duration: hours,
		Sector:   e.room.Sector,
		Room:     e.room.Name,
		Activity: "Rehearsal",
		Invitees: invitees,
	}
}

func (e *testEnv) invitation(t *testing.T, email, bookingID string) persistence.Invitation {
	t.Helper()
	var invitation persistence.Invitation
	err := e.harness.Store.WithinReadTx(context.Background(), func(ctx context.Context, tx persistence.Tx) error {
		var err error
		invitation, err = tx.FindInvitation(ctx, email, bookingID)
		return err
	})
	if err != nil {
		t.Fatalf("failed to load invitation %s/%s: %v", email, bookingID, err)
	}
	return invitation
}

func (e *testEnv) queryInvitations(t *testing.T, filter persistence.InvitationFilter) []persistence.Invitation {
	t.Helper()
	var invitations []persistence.Invitation
	err := e.harness.Store.WithinReadTx(context.Background(), func(ctx context.Context, tx persistence.Tx) error {
		var err error
		invitations, err = tx.QueryInvitations(ctx, filter)
		return err
	})
	if err != nil {
		t.Fatalf("failed to query invitations: %v", err)
	}
	return invitations
}

func (e *testEnv) roomBookings(t *testing.T, room testfixtures.RoomFixture) []persistence.Booking {
	t.Helper()
	var bookings []persistence.Booking
	err := e.harness.Store.WithinReadTx(context.Background(), func(ctx context.Context, tx persistence.Tx) error {
		var err error
		bookings, err = tx.QueryBookings(ctx, persistence.BookingFilter{Room: room.Name, Sector: room.Sector})
		return err
	})
	if err != nil {
		t.Fatalf("failed to query bookings: %v", err)
	}
	return bookings
}

func assertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected error %v, got %v", target, err)
	}
}

func assertFieldError(t *testing.T, err error, field, kind string) {
	t.Helper()
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := vErr.FieldErrors[field]; got != kind {
		t.Fatalf("expected field %q to report %q, got %q (fields %v)", field, kind, got, vErr.FieldErrors)
	}
}

func intPtr(v int) *int {
	return &v
}
