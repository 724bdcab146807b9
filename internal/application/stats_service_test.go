package application

import (
	"context"
	"testing"

	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/testfixtures"
)

func TestStatsServiceCapacityReport(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	tiny := env.seedRoom(t, "Cabina", 1)

	crowded := env.seedBooking(t, tiny, testfixtures.At(0, 10), 1)
	quiet := env.seedBooking(t, env.room, testfixtures.At(0, 12), 1)
	a, b := env.seedStudent(t), env.seedStudent(t)
	env.harness.SeedInvitation(t, a.Email, crowded.ID, persistence.ResponseAccepted)
	env.harness.SeedInvitation(t, b.Email, crowded.ID, persistence.ResponseAccepted)
	env.harness.SeedInvitation(t, a.Email, quiet.ID, persistence.ResponseDeclined)

	rows, err := env.stats.CapacityReport(context.Background())
	if err != nil {
		t.Fatalf("expected report, got %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	byID := make(map[string]persistence.CapacityRow, len(rows))
	for _, row := range rows {
		byID[row.BookingID] = row
	}
	if got := byID[crowded.ID]; got.Accepted != 2 || got.Capacity != 1 || !got.Exceeded {
		t.Fatalf("expected crowded booking to exceed capacity, got %+v", got)
	}
	if got := byID[quiet.ID]; got.Accepted != 0 || got.Exceeded {
		t.Fatalf("expected quiet booking within capacity, got %+v", got)
	}
}

func TestStatsServiceDailyLoad(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	other := env.seedRoom(t, "SalaB", 4)

	env.seedBooking(t, env.room, testfixtures.At(1, 9), 1)
	env.seedBooking(t, env.room, testfixtures.At(1, 14), 1)
	env.seedBooking(t, other, testfixtures.At(1, 9), 1)
	env.seedBooking(t, env.room, testfixtures.At(2, 9), 1)

	rows, err := env.stats.DailyLoad(context.Background())
	if err != nil {
		t.Fatalf("expected daily load, got %v", err)
	}
	want := []persistence.DailyLoadRow{
		{Day: "2026-03-03", Room: "SalaA", Sector: "Musica", Bookings: 2},
		{Day: "2026-03-03", Room: "SalaB", Sector: "Musica", Bookings: 1},
		{Day: "2026-03-04", Room: "SalaA", Sector: "Musica", Bookings: 1},
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %+v", len(want), rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("row %d: expected %+v, got %+v", i, want[i], rows[i])
		}
	}
}
