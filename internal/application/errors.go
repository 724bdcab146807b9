package application

import (
	"errors"
	"sort"

	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/scheduler"
)

var (
	// ErrMissingField is returned when a required input field is absent.
	ErrMissingField = errors.New("application: missing required field")
	// ErrInvalidField is returned when an input field has the wrong shape.
	ErrInvalidField = errors.New("application: invalid field")

	ErrInvalidTime      = scheduler.ErrInvalidTime
	ErrOutOfWindow      = scheduler.ErrOutOfWindow
	ErrPastBooking      = scheduler.ErrPastBooking
	ErrDurationTooShort = scheduler.ErrDurationTooShort
	ErrDurationTooLong  = scheduler.ErrDurationTooLong

	// ErrRoomNotFound is returned when the (room, sector) pair does not exist.
	ErrRoomNotFound = errors.New("application: room not found")
	// ErrRoomOverlap is returned when another booking occupies the room.
	ErrRoomOverlap = errors.New("application: room already booked for an overlapping interval")
	// ErrCapacityExceeded is returned when the invitee list is larger than the room.
	ErrCapacityExceeded = errors.New("application: invitees exceed room capacity")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrForbidden is returned when the requester may not act on the resource.
	ErrForbidden = errors.New("application: forbidden")
	// ErrReasonRequired is returned when a decline carries no reason.
	ErrReasonRequired = errors.New("application: decline reason required")
	// ErrInvitationNotFound is returned when the user holds no invitation for the booking.
	ErrInvitationNotFound = errors.New("application: invitation not found")
	// ErrBookingNotFound is returned when an invitation refers to a missing booking.
	ErrBookingNotFound = errors.New("application: booking not found")
	// ErrPersonalOverlap is returned when the user already accepted an overlapping booking.
	ErrPersonalOverlap = errors.New("application: overlapping accepted booking")
	// ErrCapacityFull is returned when the room has no free place left.
	ErrCapacityFull = errors.New("application: room capacity reached")

	// ErrInvalidCredentials is returned when email or password do not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrUnauthenticated is returned when no valid session accompanies the request.
	ErrUnauthenticated = errors.New("application: unauthenticated")
	// ErrSessionExpired is returned when the session has passed its expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when the session was logged out.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrAlreadyExists is returned when a unique record already exists.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrUserOwnsBookings is returned when deleting a user who still owns bookings.
	ErrUserOwnsBookings = errors.New("application: user owns bookings")
)

// ValidationError captures field level validation issues that callers can
// surface to users. FieldErrors maps a field name to an error kind label.
type ValidationError struct {
	FieldErrors map[string]string
	Cause       error
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if v.Cause == nil {
		return "validation failed"
	}
	return "validation failed: " + v.Cause.Error()
}

// Unwrap exposes the first recorded sentinel.
func (v *ValidationError) Unwrap() error {
	if v == nil {
		return nil
	}
	return v.Cause
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Fields returns the offending field names in sorted order.
func (v *ValidationError) Fields() []string {
	if v == nil {
		return nil
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// add records a field level failure. The first cause wins.
func (v *ValidationError) add(field string, cause error) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = ErrorKind(cause)
	if v.Cause == nil {
		v.Cause = cause
	}
}

// orNil returns v as an error only when it holds failures.
func (v *ValidationError) orNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}

// fieldError builds a single-field ValidationError.
func fieldError(field string, cause error) error {
	v := &ValidationError{}
	v.add(field, cause)
	return v
}

// mapStoreError converts persistence sentinels to domain errors. notFound is
// the domain error for a missing record; storage failures pass through.
func mapStoreError(err, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound) && notFound != nil:
		return notFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	}
	return err
}
