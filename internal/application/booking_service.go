package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/scheduler"
)

// BookingService creates, edits and removes room bookings.
type BookingService struct {
	store   persistence.Store
	rules   scheduler.Rules
	overlap OverlapChecker
	cache   ScheduleCache
	newID   func() string
	logger  *slog.Logger
}

// NewBookingService constructs a BookingService. newID may be nil, in which
// case the store assigns identifiers.
func NewBookingService(store persistence.Store, rules scheduler.Rules, cache ScheduleCache, newID func() string, logger *slog.Logger) *BookingService {
	if newID == nil {
		newID = func() string { return "" }
	}
	return &BookingService{
		store:  store,
		rules:  rules,
		cache:  cache,
		newID:  newID,
		logger: defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// Create validates the input and, in one transaction, checks the room is free,
// stores the booking and invites the listed users.
func (s *BookingService) Create(ctx context.Context, ownerEmail string, input CreateBookingInput) (result CreateBookingResult, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("booking store not configured")
		return
	}

	owner := normalizeEmail(ownerEmail)
	room := strings.TrimSpace(input.Room)
	sector := strings.TrimSpace(input.Sector)
	logger := s.loggerWith(ctx, "Create",
		"owner", owner,
		"room", room,
		"sector", sector,
	)
	defer func() {
		logOutcome(ctx, logger, err, "booking creation failed", "booking created",
			"booking_id", result.BookingID,
			"invited", len(result.Invited),
			"skipped", len(result.Skipped),
		)
	}()

	criterion, err := s.validateCreate(owner, room, sector, input)
	if err != nil {
		return
	}

	invitees := normalizeInvitees(input.Invitees)
	candidate := scheduler.NewTimeRange(input.Start, input.Duration)
	booking := persistence.Booking{
		ID:                   s.newID(),
		Start:                input.Start,
		End:                  candidate.End,
		Duration:             input.Duration,
		ExpectedParticipants: input.ExpectedParticipants,
		Criterion:            criterion,
		Sector:               sector,
		Room:                 room,
		OwnerEmail:           owner,
		CreatedAt:            s.rules.CurrentTime(),
	}
	if activity := strings.TrimSpace(input.Activity); activity != "" {
		booking.Activity = stringPtr(activity)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx persistence.Tx) error {
		result = CreateBookingResult{}

		target, err := tx.LockRoom(ctx, room, sector)
		if err != nil {
			return mapStoreError(err, ErrRoomNotFound)
		}

		conflict, found, err := s.overlap.RoomOverlap(ctx, tx, room, sector, candidate, "")
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("%w: conflicts with booking %s", ErrRoomOverlap, conflict)
		}

		id, err := tx.InsertBooking(ctx, booking)
		if err != nil {
			if errors.Is(err, persistence.ErrForeignKeyViolation) {
				return fieldError("owner", ErrInvalidField)
			}
			return mapStoreError(err, nil)
		}

		if len(invitees) > target.Capacity {
			return fmt.Errorf("%w: %d invitees for capacity %d", ErrCapacityExceeded, len(invitees), target.Capacity)
		}

		invited := make([]string, 0, len(invitees))
		var skipped []string
		for _, email := range invitees {
			if _, err := tx.FindUser(ctx, email); err != nil {
				if errors.Is(err, persistence.ErrNotFound) {
					skipped = append(skipped, email)
					continue
				}
				return err
			}
			if err := tx.InsertInvitation(ctx, email, id); err != nil {
				return mapStoreError(err, nil)
			}
			invited = append(invited, email)
		}

		result = CreateBookingResult{BookingID: id, Invited: invited, Skipped: skipped}
		return nil
	})
	if err != nil {
		result = CreateBookingResult{}
		return
	}

	if len(result.Skipped) > 0 {
		logger.WarnContext(ctx, "unknown invitees skipped",
			"booking_id", result.BookingID,
			"emails", result.Skipped,
		)
	}
	invalidateSchedules(ctx, s.cache, logger)
	return
}

func (s *BookingService) validateCreate(owner, room, sector string, input CreateBookingInput) (persistence.Criterion, error) {
	v := &ValidationError{}
	if owner == "" {
		v.add("owner", ErrMissingField)
	}
	if input.Start.IsZero() {
		v.add("start", ErrMissingField)
	} else if err := s.rules.ValidateStart(input.Start); err != nil {
		v.add("start", err)
	}
	if input.Duration == 0 {
		v.add("duration", ErrMissingField)
	} else if err := s.rules.ValidateDuration(input.Duration); err != nil {
		v.add("duration", err)
	}
	if sector == "" {
		v.add("sector", ErrMissingField)
	}
	if room == "" {
		v.add("room", ErrMissingField)
	}

	criterion := input.Criterion
	if criterion == "" {
		criterion = persistence.CriterionAll
	} else if !criterion.Valid() {
		v.add("criterion", ErrInvalidField)
	}
	if input.ExpectedParticipants != nil && *input.ExpectedParticipants < 0 {
		v.add("expectedParticipants", ErrInvalidField)
	}
	return criterion, v.orNil()
}

// Update applies patch to a booking owned by requesterEmail and returns the
// stored result. A changed interval is checked against the room's other bookings.
func (s *BookingService) Update(ctx context.Context, bookingID, requesterEmail string, patch BookingPatch) (booking persistence.Booking, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("booking store not configured")
		return
	}

	id := strings.TrimSpace(bookingID)
	requester := normalizeEmail(requesterEmail)
	logger := s.loggerWith(ctx, "Update",
		"booking_id", id,
		"requester", requester,
	)
	defer func() {
		logOutcome(ctx, logger, err, "booking update failed", "booking updated")
	}()

	if id == "" {
		err = fieldError("id", ErrMissingField)
		return
	}
	if requester == "" {
		err = fieldError("requester", ErrMissingField)
		return
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx persistence.Tx) error {
		current, err := tx.LockBooking(ctx, id)
		if err != nil {
			return mapStoreError(err, ErrNotFound)
		}
		if current.OwnerEmail != requester {
			return ErrForbidden
		}
		if patch.IsEmpty() {
			return fieldError("patch", ErrMissingField)
		}

		changes, err := s.validatePatch(patch)
		if err != nil {
			return err
		}

		if changes.Start != nil || changes.Duration != nil {
			merged := current
			if changes.Start != nil {
				merged.Start = *changes.Start
			}
			if changes.Duration != nil {
				merged.Duration = *changes.Duration
			}
			if _, err := tx.LockRoom(ctx, current.Room, current.Sector); err != nil {
				return mapStoreError(err, ErrRoomNotFound)
			}
			conflict, found, err := s.overlap.RoomOverlap(ctx, tx, current.Room, current.Sector, merged.Range(), id)
			if err != nil {
				return err
			}
			if found {
				return fmt.Errorf("%w: conflicts with booking %s", ErrRoomOverlap, conflict)
			}
		}

		if err := tx.UpdateBooking(ctx, id, changes); err != nil {
			return mapStoreError(err, ErrNotFound)
		}
		updated, err := tx.FindBooking(ctx, id)
		if err != nil {
			return mapStoreError(err, ErrNotFound)
		}
		booking = updated
		return nil
	})
	if err != nil {
		booking = persistence.Booking{}
		return
	}

	invalidateSchedules(ctx, s.cache, logger)
	return
}

func (s *BookingService) validatePatch(patch BookingPatch) (persistence.BookingChanges, error) {
	v := &ValidationError{}
	changes := persistence.BookingChanges{
		Start:                patch.Start,
		Duration:             patch.Duration,
		ExpectedParticipants: patch.ExpectedParticipants,
		Criterion:            patch.Criterion,
	}
	if patch.Start != nil {
		if patch.Start.IsZero() {
			v.add("start", ErrMissingField)
		} else if err := s.rules.ValidateStart(*patch.Start); err != nil {
			v.add("start", err)
		}
	}
	if patch.Duration != nil {
		if err := s.rules.ValidateDuration(*patch.Duration); err != nil {
			v.add("duration", err)
		}
	}
	if patch.Activity != nil {
		changes.Activity = stringPtr(strings.TrimSpace(*patch.Activity))
	}
	if patch.ExpectedParticipants != nil && *patch.ExpectedParticipants < 0 {
		v.add("expectedParticipants", ErrInvalidField)
	}
	if patch.Criterion != nil && !patch.Criterion.Valid() {
		v.add("criterion", ErrInvalidField)
	}
	return changes, v.orNil()
}

// Delete removes a booking owned by requesterEmail together with its invitations.
func (s *BookingService) Delete(ctx context.Context, bookingID, requesterEmail string) (err error) {
	if s == nil || s.store == nil {
		return fmt.Errorf("booking store not configured")
	}

	id := strings.TrimSpace(bookingID)
	requester := normalizeEmail(requesterEmail)
	logger := s.loggerWith(ctx, "Delete",
		"booking_id", id,
		"requester", requester,
	)
	var removed int64
	defer func() {
		logOutcome(ctx, logger, err, "booking deletion failed", "booking deleted", "invitations_removed", removed)
	}()

	if id == "" {
		return fieldError("id", ErrMissingField)
	}
	if requester == "" {
		return fieldError("requester", ErrMissingField)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx persistence.Tx) error {
		current, err := tx.LockBooking(ctx, id)
		if err != nil {
			return mapStoreError(err, ErrNotFound)
		}
		if current.OwnerEmail != requester {
			return ErrForbidden
		}
		n, err := tx.DeleteInvitationsForBooking(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteBooking(ctx, id); err != nil {
			return mapStoreError(err, ErrNotFound)
		}
		removed = n
		return nil
	})
	if err != nil {
		return err
	}

	invalidateSchedules(ctx, s.cache, logger)
	return nil
}

// Get returns a booking with its invitations.
func (s *BookingService) Get(ctx context.Context, bookingID string) (details BookingDetails, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("booking store not configured")
		return
	}

	id := strings.TrimSpace(bookingID)
	if id == "" {
		err = fieldError("id", ErrMissingField)
		return
	}

	err = s.store.WithinReadTx(ctx, func(ctx context.Context, tx persistence.Tx) error {
		booking, err := tx.FindBooking(ctx, id)
		if err != nil {
			return mapStoreError(err, ErrNotFound)
		}
		invitations, err := tx.QueryInvitations(ctx, persistence.InvitationFilter{BookingID: id})
		if err != nil {
			return err
		}
		details = BookingDetails{Booking: booking, Invitations: invitations}
		return nil
	})
	if err != nil {
		details = BookingDetails{}
		logOutcome(ctx, s.loggerWith(ctx, "Get", "booking_id", id), err, "booking lookup failed", "")
	}
	return
}
