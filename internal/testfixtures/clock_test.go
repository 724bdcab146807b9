package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
	if clock.Now().Weekday() != time.Monday {
		t.Fatalf("expected reference time on a Monday, got %s", clock.Now().Weekday())
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := At(2, 9)
	clock := NewClock(start)

	updated := clock.Advance(90 * time.Minute)
	if !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}

	clock.Set(start.Add(2 * time.Hour))
	if got := clock.NowFunc()(); !got.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("expected %v, got %v", start.Add(2*time.Hour), got)
	}
}

func TestAt(t *testing.T) {
	got := At(6, 21)
	if got.Weekday() != time.Sunday || got.Hour() != 21 || got.Minute() != 0 {
		t.Fatalf("expected Sunday 21:00 of the reference week, got %v", got)
	}
	if got.Location() != Location() {
		t.Fatalf("expected fixture location, got %v", got.Location())
	}
}
