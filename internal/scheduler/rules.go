package scheduler

import (
	"fmt"
	"time"
)

const (
	// DefaultMinHour is the earliest hour a booking may start.
	DefaultMinHour = 9
	// DefaultMaxHour is the latest hour a booking may start.
	DefaultMaxHour = 23
	// DefaultMinDuration is the shortest booking in hours.
	DefaultMinDuration = 1
	// DefaultMaxDuration is the longest booking in hours.
	DefaultMaxDuration = 8
)

// Rules holds the stateless booking checks. Now supplies the current instant
// and defaults to time.Now when nil.
type Rules struct {
	MinHour     int
	MaxHour     int
	MinDuration int
	MaxDuration int
	Now         func() time.Time
}

// DefaultRules returns the standard booking window (09-23) and duration bounds (1-8 hours).
func DefaultRules(now func() time.Time) Rules {
	return Rules{
		MinHour:     DefaultMinHour,
		MaxHour:     DefaultMaxHour,
		MinDuration: DefaultMinDuration,
		MaxDuration: DefaultMaxDuration,
		Now:         now,
	}
}

// Validate reports inconsistent bounds.
func (r Rules) Validate() error {
	switch {
	case r.MinHour < 0 || r.MaxHour > 23:
		return fmt.Errorf("%w: hour window %d-%d outside 0-23", ErrInvalidRules, r.MinHour, r.MaxHour)
	case r.MinHour > r.MaxHour:
		return fmt.Errorf("%w: min hour %d after max hour %d", ErrInvalidRules, r.MinHour, r.MaxHour)
	case r.MinDuration <= 0:
		return fmt.Errorf("%w: min duration must be positive", ErrInvalidRules)
	case r.MinDuration > r.MaxDuration:
		return fmt.Errorf("%w: min duration %d above max duration %d", ErrInvalidRules, r.MinDuration, r.MaxDuration)
	}
	return nil
}

// ValidateStart checks hour alignment, the booking window and that start is not in the past.
func (r Rules) ValidateStart(start time.Time) error {
	if start.Minute() != 0 || start.Second() != 0 || start.Nanosecond() != 0 {
		return ErrInvalidTime
	}
	if hour := start.Hour(); hour < r.MinHour || hour > r.MaxHour {
		return ErrOutOfWindow
	}
	if start.Before(r.CurrentTime()) {
		return ErrPastBooking
	}
	return nil
}

// ValidateDuration checks hours against the configured bounds.
func (r Rules) ValidateDuration(hours int) error {
	if hours < r.MinDuration {
		return ErrDurationTooShort
	}
	if hours > r.MaxDuration {
		return ErrDurationTooLong
	}
	return nil
}

// CurrentTime returns the instant the rules treat as now.
func (r Rules) CurrentTime() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
