package testfixtures

import (
	"sync"
	"time"
	_ "time/tzdata"
)

var (
	locationOnce sync.Once
	location     *time.Location
)

// Location returns the zone fixtures and harness stores use.
func Location() *time.Location {
	locationOnce.Do(func() {
		loc, err := time.LoadLocation("Europe/Rome")
		if err != nil {
			loc = time.FixedZone("CET", 3600)
		}
		location = loc
	})
	return location
}

// ReferenceTime returns the canonical baseline used by fixtures: Monday
// 2 March 2026, 08:00 in Location.
func ReferenceTime() time.Time {
	return time.Date(2026, time.March, 2, 8, 0, 0, 0, Location())
}

// At returns the reference week's day (0 = Monday) at the given hour.
func At(day, hour int) time.Time {
	base := ReferenceTime()
	return time.Date(base.Year(), base.Month(), base.Day()+day, hour, 0, 0, 0, base.Location())
}

// Clock provides a controllable time source for tests.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock set to start, or ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now returns the current instant tracked by the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now for injection into scheduler.Rules and services.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set updates the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}
