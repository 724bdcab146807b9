package application

import (
	"context"
	"testing"
	"time"

	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/testfixtures"
)

func TestInvitationServiceRespond_Accept(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	booking := env.seedBooking(t, env.room, testfixtures.At(0, 10), 2)
	student := env.seedStudent(t)
	env.harness.SeedInvitation(t, student.Email, booking.ID, persistence.ResponsePending)

	answered, err := env.invitations.Respond(context.Background(), RespondInput{
		BookingID: booking.ID,
		UserEmail: student.Email,
		Decision:  DecisionAccept,
	})
	if err != nil {
		t.Fatalf("expected accept to succeed, got %v", err)
	}
	if answered.Response != persistence.ResponseAccepted {
		t.Fatalf("expected accepted, got %q", answered.Response)
	}
	if answered.RespondedAt == nil || !answered.RespondedAt.Equal(testfixtures.ReferenceTime()) {
		t.Fatalf("expected respondedAt to be the clock time, got %v", answered.RespondedAt)
	}
	if answered.Reason != nil {
		t.Fatalf("expected no reason on accept, got %q", *answered.Reason)
	}
	if _, invalidations := env.cache.counts(); invalidations != 1 {
		t.Fatalf("expected one cache invalidation, got %d", invalidations)
	}
}

func TestInvitationServiceRespond_PersonalOverlap(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	other := env.seedRoom(t, "SalaB", 5)
	x := env.seedBooking(t, env.room, testfixtures.At(0, 10), 2)
	y := env.seedBooking(t, other, testfixtures.At(0, 11), 2)
	student := env.seedStudent(t)
	env.harness.SeedInvitation(t, student.Email, x.ID, persistence.ResponseAccepted)
	env.harness.SeedInvitation(t, student.Email, y.ID, persistence.ResponsePending)

	_, err := env.invitations.Respond(context.Background(), RespondInput{
		BookingID: y.ID,
		UserEmail: student.Email,
		Decision:  DecisionAccept,
	})
	assertErrorIs(t, err, ErrPersonalOverlap)

	if got := env.invitation(t, student.Email, y.ID).Response; got != persistence.ResponsePending {
		t.Fatalf("expected invitation to stay pending, got %q", got)
	}
}

func TestInvitationServiceRespond_PendingAndDeclinedDoNotBlock(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	other := env.seedRoom(t, "SalaC", 5)
	third := env.seedRoom(t, "SalaD", 5)
	pending := env.seedBooking(t, env.room, testfixtures.At(0, 10), 2)
	declined := env.seedBooking(t, other, testfixtures.At(0, 10), 2)
	target := env.seedBooking(t, third, testfixtures.At(0, 11), 1)
	student := env.seedStudent(t)
	env.harness.SeedInvitation(t, student.Email, pending.ID, persistence.ResponsePending)
	env.harness.SeedInvitation(t, student.Email, declined.ID, persistence.ResponseDeclined)
	env.harness.SeedInvitation(t, student.Email, target.ID, persistence.ResponsePending)

	if _, err := env.invitations.Respond(context.Background(), RespondInput{
		BookingID: target.ID,
		UserEmail: student.Email,
		Decision:  DecisionAccept,
	}); err != nil {
		t.Fatalf("expected accept to succeed, got %v", err)
	}
}

func TestInvitationServiceRespond_CapacityAndChangeOfMind(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	tiny := env.seedRoom(t, "Cabina", 1)
	booking := env.seedBooking(t, tiny, testfixtures.At(2, 9), 1)
	first, second := env.seedStudent(t), env.seedStudent(t)
	env.harness.SeedInvitation(t, first.Email, booking.ID, persistence.ResponsePending)
	env.harness.SeedInvitation(t, second.Email, booking.ID, persistence.ResponsePending)

	accept := func(email string) error {
		_, err := env.invitations.Respond(ctx, RespondInput{BookingID: booking.ID, UserEmail: email, Decision: DecisionAccept})
		return err
	}

	if err := accept(first.Email); err != nil {
		t.Fatalf("expected first accept to succeed, got %v", err)
	}
	assertErrorIs(t, accept(second.Email), ErrCapacityFull)

	if err := accept(first.Email); err != nil {
		t.Fatalf("expected repeated accept not to count the caller twice, got %v", err)
	}

	if _, err := env.invitations.Respond(ctx, RespondInput{
		BookingID: booking.ID,
		UserEmail: first.Email,
		Decision:  DecisionDecline,
		Reason:    "sick",
	}); err != nil {
		t.Fatalf("expected decline to succeed, got %v", err)
	}
	if err := accept(second.Email); err != nil {
		t.Fatalf("expected freed place to be available, got %v", err)
	}
}

func TestInvitationServiceRespond_DeclineKeepsLastReason(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	booking := env.seedBooking(t, env.room, testfixtures.At(1, 17), 1)
	student := env.seedStudent(t)
	env.harness.SeedInvitation(t, student.Email, booking.ID, persistence.ResponsePending)

	for _, reason := range []string{"exam", "  travelling  "} {
		if _, err := env.invitations.Respond(ctx, RespondInput{
			BookingID: booking.ID,
			UserEmail: student.Email,
			Decision:  DecisionDecline,
			Reason:    reason,
		}); err != nil {
			t.Fatalf("expected decline to succeed, got %v", err)
		}
		env.clock.Advance(time.Hour)
	}

	invitation := env.invitation(t, student.Email, booking.ID)
	if invitation.Response != persistence.ResponseDeclined {
		t.Fatalf("expected declined, got %q", invitation.Response)
	}
	if invitation.Reason == nil || *invitation.Reason != "travelling" {
		t.Fatalf("expected last reason to be kept, got %v", invitation.Reason)
	}
	if invitation.RespondedAt == nil || !invitation.RespondedAt.Equal(testfixtures.At(0, 9)) {
		t.Fatalf("expected last response time 09:00, got %v", invitation.RespondedAt)
	}
}

func TestInvitationServiceRespond_Rejections(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	booking := env.seedBooking(t, env.room, testfixtures.At(1, 9), 1)
	student := env.seedStudent(t)
	stranger := env.seedStudent(t)
	env.harness.SeedInvitation(t, student.Email, booking.ID, persistence.ResponsePending)

	tests := []struct {
		name  string
		input RespondInput
		want  error
	}{
		{"decline without reason", RespondInput{BookingID: booking.ID, UserEmail: student.Email, Decision: DecisionDecline, Reason: "   "}, ErrReasonRequired},
		{"unknown decision", RespondInput{BookingID: booking.ID, UserEmail: student.Email, Decision: "maybe"}, ErrInvalidField},
		{"missing decision", RespondInput{BookingID: booking.ID, UserEmail: student.Email}, ErrMissingField},
		{"missing booking", RespondInput{UserEmail: student.Email, Decision: DecisionAccept}, ErrMissingField},
		{"not invited", RespondInput{BookingID: booking.ID, UserEmail: stranger.Email, Decision: DecisionAccept}, ErrInvitationNotFound},
		{"unknown booking", RespondInput{BookingID: "nope", UserEmail: student.Email, Decision: DecisionAccept}, ErrInvitationNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.invitations.Respond(context.Background(), tt.input)
			assertErrorIs(t, err, tt.want)
		})
	}
}

func TestInvitationServiceRespond_DeletedInvitee(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	booking := env.seedBooking(t, env.room, testfixtures.At(1, 14), 1)
	student := env.seedStudent(t)
	env.harness.SeedInvitation(t, student.Email, booking.ID, persistence.ResponsePending)

	if err := newDirectory(env).DeleteUser(ctx, principalOf(env.manager), student.Email); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	_, err := env.invitations.Respond(ctx, RespondInput{
		BookingID: booking.ID,
		UserEmail: student.Email,
		Decision:  DecisionAccept,
	})
	assertErrorIs(t, err, ErrInvitationNotFound)
	if got := len(env.queryInvitations(t, persistence.InvitationFilter{BookingID: booking.ID})); got != 0 {
		t.Fatalf("expected no invitations left on the booking, got %d", got)
	}
}
