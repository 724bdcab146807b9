package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/room-scheduler/internal/logging"
	"github.com/example/room-scheduler/internal/persistence"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(base)
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	pairs = append(pairs, attrs...)
	return logger.With(pairs...)
}

// logOutcome logs a failed operation at warn for domain rejections and at
// error for everything else.
func logOutcome(ctx context.Context, logger *slog.Logger, err error, failure, success string, attrs ...any) {
	if err == nil {
		logger.InfoContext(ctx, success, attrs...)
		return
	}
	attrs = append(attrs, "error", err, "error_kind", ErrorKind(err))
	if IsDomainError(err) {
		logger.WarnContext(ctx, failure, attrs...)
		return
	}
	logger.ErrorContext(ctx, failure, attrs...)
}

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrMissingField, "missing_field"},
	{ErrInvalidField, "invalid_field"},
	{ErrInvalidTime, "invalid_time"},
	{ErrOutOfWindow, "out_of_window"},
	{ErrPastBooking, "past_booking"},
	{ErrDurationTooShort, "duration_too_short"},
	{ErrDurationTooLong, "duration_too_long"},
	{ErrRoomNotFound, "room_not_found"},
	{ErrRoomOverlap, "room_overlap"},
	{ErrCapacityExceeded, "capacity_exceeded"},
	{ErrNotFound, "not_found"},
	{ErrForbidden, "forbidden"},
	{ErrReasonRequired, "reason_required"},
	{ErrInvitationNotFound, "invitation_not_found"},
	{ErrBookingNotFound, "booking_not_found"},
	{ErrPersonalOverlap, "personal_overlap"},
	{ErrCapacityFull, "capacity_full"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrUnauthenticated, "unauthenticated"},
	{ErrSessionExpired, "session_expired"},
	{ErrSessionRevoked, "session_revoked"},
	{ErrAlreadyExists, "already_exists"},
	{ErrUserOwnsBookings, "user_owns_bookings"},
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	if errors.Is(err, persistence.ErrBusy) {
		return "storage_busy"
	}
	var sErr *persistence.StorageError
	if errors.As(err, &sErr) {
		return "storage"
	}
	return "unexpected"
}

// IsDomainError reports whether err is a validation or business rule failure
// rather than an infrastructure fault.
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return true
		}
	}
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
