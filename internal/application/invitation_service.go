package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-scheduler/internal/persistence"
)

// InvitationService records invitees' answers.
type InvitationService struct {
	store   persistence.Store
	overlap OverlapChecker
	cache   ScheduleCache
	now     func() time.Time
	logger  *slog.Logger
}

// NewInvitationService constructs an InvitationService.
func NewInvitationService(store persistence.Store, cache ScheduleCache, now func() time.Time, logger *slog.Logger) *InvitationService {
	if now == nil {
		now = time.Now
	}
	return &InvitationService{
		store:  store,
		cache:  cache,
		now:    now,
		logger: defaultLogger(logger),
	}
}

func (s *InvitationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "InvitationService", operation, attrs...)
}

// Respond accepts or declines an invitation. An invitee may change their
// answer; accepting again re-runs the overlap and capacity checks, and
// declining frees the place taken by an earlier acceptance.
func (s *InvitationService) Respond(ctx context.Context, input RespondInput) (invitation persistence.Invitation, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("invitation store not configured")
		return
	}

	bookingID := strings.TrimSpace(input.BookingID)
	email := normalizeEmail(input.UserEmail)
	decision := Decision(strings.ToLower(strings.TrimSpace(string(input.Decision))))
	reason := strings.TrimSpace(input.Reason)

	logger := s.loggerWith(ctx, "Respond",
		"booking_id", bookingID,
		"user", email,
		"decision", string(decision),
	)
	defer func() {
		logOutcome(ctx, logger, err, "invitation response failed", "invitation answered")
	}()

	if err = validateResponse(bookingID, email, decision, reason); err != nil {
		return
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx persistence.Tx) error {
		if _, err := tx.FindInvitation(ctx, email, bookingID); err != nil {
			return mapStoreError(err, ErrInvitationNotFound)
		}

		answer := persistence.InvitationResponse{
			UserEmail:   email,
			BookingID:   bookingID,
			RespondedAt: s.now(),
		}
		if decision == DecisionDecline {
			answer.Response = persistence.ResponseDeclined
			answer.Reason = stringPtr(reason)
		} else {
			if err := s.checkAccept(ctx, tx, email, bookingID); err != nil {
				return err
			}
			answer.Response = persistence.ResponseAccepted
		}

		if err := tx.UpdateInvitationResponse(ctx, answer); err != nil {
			return mapStoreError(err, ErrInvitationNotFound)
		}
		stored, err := tx.FindInvitation(ctx, email, bookingID)
		if err != nil {
			return mapStoreError(err, ErrInvitationNotFound)
		}
		invitation = stored
		return nil
	})
	if err != nil {
		invitation = persistence.Invitation{}
		return
	}

	invalidateSchedules(ctx, s.cache, logger)
	return
}

// checkAccept verifies the invitee is free and the room has a place left.
// The booking and user rows stay locked until the transaction ends.
func (s *InvitationService) checkAccept(ctx context.Context, tx persistence.Tx, email, bookingID string) error {
	booking, err := tx.LockBooking(ctx, bookingID)
	if err != nil {
		return mapStoreError(err, ErrBookingNotFound)
	}
	if _, err := tx.LockUser(ctx, email); err != nil {
		return mapStoreError(err, ErrNotFound)
	}

	conflict, found, err := s.overlap.UserOverlap(ctx, tx, email, booking.Range(), bookingID)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("%w: already accepted booking %s", ErrPersonalOverlap, conflict)
	}

	room, err := tx.FindRoom(ctx, booking.Room, booking.Sector)
	if err != nil {
		return mapStoreError(err, ErrRoomNotFound)
	}
	accepted, err := tx.CountAcceptedInvitations(ctx, bookingID, email)
	if err != nil {
		return err
	}
	if accepted >= room.Capacity {
		return fmt.Errorf("%w: %d of %d places taken", ErrCapacityFull, accepted, room.Capacity)
	}
	return nil
}

func validateResponse(bookingID, email string, decision Decision, reason string) error {
	v := &ValidationError{}
	if bookingID == "" {
		v.add("bookingId", ErrMissingField)
	}
	if email == "" {
		v.add("userEmail", ErrMissingField)
	}
	switch decision {
	case DecisionAccept:
	case DecisionDecline:
		if reason == "" {
			v.add("reason", ErrReasonRequired)
		}
	case "":
		v.add("decision", ErrMissingField)
	default:
		v.add("decision", ErrInvalidField)
	}
	return v.orNil()
}
