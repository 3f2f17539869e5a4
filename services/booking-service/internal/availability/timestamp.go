package availability

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	// SlotLayout is the canonical minute-precision local form of a slot start.
	SlotLayout = "2006-01-02T15:04"
)

// NormalizeTimestamp renders t in the provider's location at minute precision.
// Generated slots and booked timestamps both go through this function, so a booking
// and the slot it occupies always compare equal as strings.
func NormalizeTimestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Truncate(time.Minute).Format(SlotLayout)
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	SlotLayout,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp accepts RFC 3339 timestamps (any offset) and offset-less local
// timestamps, which are read in loc. The result is truncated to the minute.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.Truncate(time.Minute), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.Truncate(time.Minute), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

// ParseDate parses a "YYYY-MM-DD" calendar date. Only the year, month and day of the
// result are meaningful.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return d, nil
}

// DayBounds returns [start of date, start of next day) in loc.
func DayBounds(date time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
