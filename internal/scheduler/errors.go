package scheduler

import "errors"

var (
	// ErrInvalidTime is returned when a start time is not aligned to a whole hour.
	ErrInvalidTime = errors.New("scheduler: start must be on the hour")
	// ErrOutOfWindow is returned when a start hour falls outside the bookable window.
	ErrOutOfWindow = errors.New("scheduler: start outside booking window")
	// ErrPastBooking is returned when a start time lies before the current instant.
	ErrPastBooking = errors.New("scheduler: start is in the past")
	// ErrDurationTooShort is returned when a duration is below the configured minimum.
	ErrDurationTooShort = errors.New("scheduler: duration too short")
	// ErrDurationTooLong is returned when a duration exceeds the configured maximum.
	ErrDurationTooLong = errors.New("scheduler: duration too long")
	// ErrInvalidRules is returned when booking bounds are inconsistent.
	ErrInvalidRules = errors.New("scheduler: invalid booking rules")
)
