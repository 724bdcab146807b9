package scheduler

import "time"

// TimeRange is the half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange returns the range covering hours whole hours from start.
func NewTimeRange(start time.Time, hours int) TimeRange {
	return TimeRange{Start: start, End: start.Add(time.Duration(hours) * time.Hour)}
}

// IsEmpty reports whether the range covers no instant.
func (r TimeRange) IsEmpty() bool {
	return !r.End.After(r.Start)
}

// Duration returns the length of the range.
func (r TimeRange) Duration() time.Duration {
	if r.IsEmpty() {
		return 0
	}
	return r.End.Sub(r.Start)
}

// Hours returns the length of the range in whole hours.
func (r TimeRange) Hours() int {
	return int(r.Duration() / time.Hour)
}

// Overlaps reports whether r and other share at least one instant.
// Ranges that only touch at an endpoint do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	if r.IsEmpty() || other.IsEmpty() {
		return false
	}
	return r.Start.Before(other.End) && r.End.After(other.Start)
}

// Slot pairs a range with the identifier of the booking occupying it.
type Slot struct {
	ID    string
	Range TimeRange
}

// FirstOverlap returns the identifier of the first slot overlapping candidate,
// ignoring the slot whose identifier equals excludeID.
func FirstOverlap(candidate TimeRange, slots []Slot, excludeID string) (string, bool) {
	for _, slot := range slots {
		if excludeID != "" && slot.ID == excludeID {
			continue
		}
		if candidate.Overlaps(slot.Range) {
			return slot.ID, true
		}
	}
	return "", false
}
