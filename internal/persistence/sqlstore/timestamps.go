package sqlstore

import (
	"fmt"
	"time"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
)

// wallTime scans a timestamp column as a wall clock reading. Timestamps are
// stored without offset in the store's location.
type wallTime struct {
	time.Time
	Valid bool
}

func (w *wallTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*w = wallTime{}
		return nil
	case time.Time:
		w.Time = time.Date(v.Year(), v.Month(), v.Day(), v.Hour(), v.Minute(), v.Second(), v.Nanosecond(), time.UTC)
		w.Valid = true
		return nil
	case string:
		return w.parse(v)
	case []byte:
		return w.parse(string(v))
	}
	return fmt.Errorf("sqlstore: cannot scan %T into timestamp", src)
}

func (w *wallTime) parse(s string) error {
	for _, layout := range []string{timestampLayout, time.RFC3339Nano, "2006-01-02T15:04:05", dateLayout} {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		w.Time = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
		w.Valid = true
		return nil
	}
	return fmt.Errorf("sqlstore: unrecognised timestamp %q", s)
}

func (w wallTime) in(loc *time.Location) time.Time {
	if !w.Valid {
		return time.Time{}
	}
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), loc)
}

func (w wallTime) ptr(loc *time.Location) *time.Time {
	if !w.Valid {
		return nil
	}
	t := w.in(loc)
	return &t
}
