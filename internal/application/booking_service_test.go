package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/testfixtures"
)

func TestBookingServiceCreate_InvitesKnownUsers(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	student := env.seedStudent(t)

	input := env.createInput(testfixtures.At(0, 10), 2, student.Email, "  "+student.Email+" ", "", "ghost@example.com")
	result, err := env.bookings.Create(context.Background(), env.manager.Email, input)
	if err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}
	if result.BookingID != "booking-1" {
		t.Fatalf("expected generated id booking-1, got %q", result.BookingID)
	}
	if len(result.Invited) != 1 || result.Invited[0] != student.Email {
		t.Fatalf("expected %s to be invited once, got %v", student.Email, result.Invited)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "ghost@example.com" {
		t.Fatalf("expected unknown invitee to be skipped, got %v", result.Skipped)
	}

	invitation := env.invitation(t, student.Email, result.BookingID)
	if invitation.Response != persistence.ResponsePending {
		t.Fatalf("expected pending invitation, got %q", invitation.Response)
	}
	if _, invalidations := env.cache.counts(); invalidations != 1 {
		t.Fatalf("expected one cache invalidation, got %d", invalidations)
	}
}

func TestBookingServiceCreate_StampsCreationTime(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	created := env.clock.Advance(90 * time.Minute).Truncate(time.Second)

	result, err := env.bookings.Create(ctx, env.manager.Email, env.createInput(testfixtures.At(1, 10), 1))
	if err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}
	details, err := env.bookings.Get(ctx, result.BookingID)
	if err != nil {
		t.Fatalf("expected get to succeed, got %v", err)
	}
	if !details.Booking.CreatedAt.Equal(created) {
		t.Fatalf("expected created at %s, got %s", created, details.Booking.CreatedAt)
	}
}

func TestBookingServiceCreate_RoomOverlap(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.bookings.Create(ctx, env.manager.Email, env.createInput(testfixtures.At(0, 10), 2)); err != nil {
		t.Fatalf("expected first booking to succeed, got %v", err)
	}

	_, err := env.bookings.Create(ctx, env.manager.Email, env.createInput(testfixtures.At(0, 11), 2))
	assertErrorIs(t, err, ErrRoomOverlap)

	if _, err := env.bookings.Create(ctx, env.manager.Email, env.createInput(testfixtures.At(0, 12), 1)); err != nil {
		t.Fatalf("expected touching booking to succeed, got %v", err)
	}
	if got := len(env.roomBookings(t, env.room)); got != 2 {
		t.Fatalf("expected 2 stored bookings, got %d", got)
	}
}

func TestBookingServiceCreate_CapacityExceededLeavesNoBooking(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	small := env.seedRoom(t, "Studio", 2)
	a, b, c := env.seedStudent(t), env.seedStudent(t), env.seedStudent(t)

	input := env.createInput(testfixtures.At(0, 10), 2, a.Email, b.Email, c.Email)
	input.Room = small.Name
	_, err := env.bookings.Create(context.Background(), env.manager.Email, input)
	assertErrorIs(t, err, ErrCapacityExceeded)

	if got := len(env.roomBookings(t, small)); got != 0 {
		t.Fatalf("expected no booking after capacity failure, got %d", got)
	}
	if _, invalidations := env.cache.counts(); invalidations != 0 {
		t.Fatalf("expected no cache invalidation, got %d", invalidations)
	}
}

func TestBookingServiceCreate_Validation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	tests := []struct {
		name   string
		mutate func(*CreateBookingInput)
		field  string
		want   error
	}{
		{"before window", func(in *CreateBookingInput) { in.Start = testfixtures.At(0, 8) }, "start", ErrOutOfWindow},
		{"not on the hour", func(in *CreateBookingInput) { in.Start = testfixtures.At(0, 10).Add(30 * time.Minute) }, "start", ErrInvalidTime},
		{"in the past", func(in *CreateBookingInput) { in.Start = testfixtures.At(-3, 10) }, "start", ErrPastBooking},
		{"too long", func(in *CreateBookingInput) { in.Duration = 9 }, "duration", ErrDurationTooLong},
		{"too short", func(in *CreateBookingInput) { in.Duration = -1 }, "duration", ErrDurationTooShort},
		{"missing duration", func(in *CreateBookingInput) { in.Duration = 0 }, "duration", ErrMissingField},
		{"missing start", func(in *CreateBookingInput) { in.Start = time.Time{} }, "start", ErrMissingField},
		{"missing room", func(in *CreateBookingInput) { in.Room = " " }, "room", ErrMissingField},
		{"missing sector", func(in *CreateBookingInput) { in.Sector = "" }, "sector", ErrMissingField},
		{"bad criterion", func(in *CreateBookingInput) { in.Criterion = "everyone" }, "criterion", ErrInvalidField},
		{"negative participants", func(in *CreateBookingInput) { in.ExpectedParticipants = intPtr(-2) }, "expectedParticipants", ErrInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := env.createInput(testfixtures.At(0, 10), 2)
			tt.mutate(&input)

			_, err := env.bookings.Create(context.Background(), env.manager.Email, input)
			assertErrorIs(t, err, tt.want)
			assertFieldError(t, err, tt.field, ErrorKind(tt.want))
		})
	}

	if got := len(env.roomBookings(t, env.room)); got != 0 {
		t.Fatalf("expected rejected inputs to store nothing, got %d bookings", got)
	}
}

func TestBookingServiceCreate_UnknownRoom(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	input := env.createInput(testfixtures.At(0, 10), 2)
	input.Room = "Nowhere"
	_, err := env.bookings.Create(context.Background(), env.manager.Email, input)
	assertErrorIs(t, err, ErrRoomNotFound)
}

func TestBookingServiceCreate_ConcurrentSameSlot(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	const callers = 2
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = env.bookings.Create(context.Background(), env.manager.Email, env.createInput(testfixtures.At(2, 15), 2))
		}(i)
	}
	close(start)
	wg.Wait()

	var succeeded, overlapped int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrRoomOverlap):
			overlapped++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || overlapped != 1 {
		t.Fatalf("expected one success and one overlap, got %d and %d", succeeded, overlapped)
	}
	if got := len(env.roomBookings(t, env.room)); got != 1 {
		t.Fatalf("expected exactly one stored booking, got %d", got)
	}
}

func TestBookingServiceUpdate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.seedBooking(t, env.room, testfixtures.At(1, 10), 2)
	second := env.seedBooking(t, env.room, testfixtures.At(1, 14), 2)
	other := env.seedStudent(t)

	t.Run("not found", func(t *testing.T) {
		_, err := env.bookings.Update(ctx, "missing", env.manager.Email, BookingPatch{Duration: intPtr(1)})
		assertErrorIs(t, err, ErrNotFound)
	})

	t.Run("forbidden for non owner", func(t *testing.T) {
		_, err := env.bookings.Update(ctx, first.ID, other.Email, BookingPatch{Duration: intPtr(1)})
		assertErrorIs(t, err, ErrForbidden)
	})

	t.Run("empty patch", func(t *testing.T) {
		_, err := env.bookings.Update(ctx, first.ID, env.manager.Email, BookingPatch{})
		assertErrorIs(t, err, ErrMissingField)
	})

	t.Run("duration revalidated", func(t *testing.T) {
		_, err := env.bookings.Update(ctx, first.ID, env.manager.Email, BookingPatch{Duration: intPtr(12)})
		assertErrorIs(t, err, ErrDurationTooLong)
	})

	t.Run("overlap with another booking", func(t *testing.T) {
		_, err := env.bookings.Update(ctx, first.ID, env.manager.Email, BookingPatch{Duration: intPtr(5)})
		assertErrorIs(t, err, ErrRoomOverlap)
	})

	t.Run("moving over itself is allowed", func(t *testing.T) {
		start := testfixtures.At(1, 11)
		updated, err := env.bookings.Update(ctx, first.ID, env.manager.Email, BookingPatch{Start: &start})
		if err != nil {
			t.Fatalf("expected update to succeed, got %v", err)
		}
		if !updated.Start.Equal(start) || !updated.End.Equal(testfixtures.At(1, 13)) {
			t.Fatalf("expected interval 11:00-13:00, got %s-%s", updated.Start, updated.End)
		}
		if updated.Activity == nil || *updated.Activity == "" {
			t.Fatalf("expected activity to be left untouched")
		}
	})

	t.Run("clears activity", func(t *testing.T) {
		empty := ""
		updated, err := env.bookings.Update(ctx, second.ID, env.manager.Email, BookingPatch{Activity: &empty})
		if err != nil {
			t.Fatalf("expected update to succeed, got %v", err)
		}
		if updated.Activity != nil {
			t.Fatalf("expected activity to be cleared, got %q", *updated.Activity)
		}
		if !updated.Start.Equal(second.Start) {
			t.Fatalf("expected start to be unchanged, got %s", updated.Start)
		}
	})
}

func TestBookingServiceDelete(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	booking := env.seedBooking(t, env.room, testfixtures.At(3, 9), 1)
	student := env.seedStudent(t)
	env.harness.SeedInvitation(t, student.Email, booking.ID, persistence.ResponseAccepted)

	err := env.bookings.Delete(ctx, booking.ID, student.Email)
	assertErrorIs(t, err, ErrForbidden)

	if err := env.bookings.Delete(ctx, booking.ID, env.manager.Email); err != nil {
		t.Fatalf("expected delete to succeed, got %v", err)
	}
	_, err = env.bookings.Get(ctx, booking.ID)
	assertErrorIs(t, err, ErrNotFound)
	if left := env.queryInvitations(t, persistence.InvitationFilter{BookingID: booking.ID}); len(left) != 0 {
		t.Fatalf("expected invitations of the deleted booking to be removed, got %+v", left)
	}
	if left := env.queryInvitations(t, persistence.InvitationFilter{UserEmail: student.Email}); len(left) != 0 {
		t.Fatalf("expected %s to hold no invitations, got %+v", student.Email, left)
	}

	err = env.bookings.Delete(ctx, booking.ID, env.manager.Email)
	assertErrorIs(t, err, ErrNotFound)
}

func TestBookingServiceGet(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	booking := env.seedBooking(t, env.room, testfixtures.At(4, 16), 3)
	student := env.seedStudent(t)
	env.harness.SeedInvitation(t, student.Email, booking.ID, persistence.ResponsePending)

	details, err := env.bookings.Get(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("expected get to succeed, got %v", err)
	}
	if details.Booking.OwnerName != "Maria Rossi" {
		t.Fatalf("expected owner display name, got %q", details.Booking.OwnerName)
	}
	if !details.Booking.End.Equal(testfixtures.At(4, 19)) {
		t.Fatalf("expected end at 19:00, got %s", details.Booking.End)
	}
	if len(details.Invitations) != 1 || details.Invitations[0].UserEmail != student.Email {
		t.Fatalf("expected one invitation for %s, got %+v", student.Email, details.Invitations)
	}
}
