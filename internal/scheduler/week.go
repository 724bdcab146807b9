package scheduler

import "time"

// Week is the Monday to Sunday calendar week. Start is Monday at midnight and
// End is Sunday at midnight, both in the location of the reference date.
type Week struct {
	Start time.Time
	End   time.Time
}

// WeekOf returns the week containing reference. Sunday is the last day of its week.
func WeekOf(reference time.Time) Week {
	loc := reference.Location()
	y, m, d := reference.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)

	offset := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -offset)
	return Week{Start: monday, End: monday.AddDate(0, 0, 6)}
}

// Limit returns the exclusive upper bound of the week (the following Monday).
func (w Week) Limit() time.Time {
	return w.Start.AddDate(0, 0, 7)
}

// Contains reports whether t falls on one of the week's days.
func (w Week) Contains(t time.Time) bool {
	t = t.In(w.Start.Location())
	return !t.Before(w.Start) && t.Before(w.Limit())
}

// Days returns the seven dates of the week starting on Monday.
func (w Week) Days() []time.Time {
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = w.Start.AddDate(0, 0, i)
	}
	return days
}
