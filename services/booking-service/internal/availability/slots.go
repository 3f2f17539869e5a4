package availability

import (
	"time"

	"github.com/servly/servly/services/booking-service/internal/model"
)

// SlotMinutes returns slot starts in minutes since midnight: w.Open, w.Open+interval, ...
// for every slot that ends at or before w.Close. A trailing remainder shorter than the
// interval gets no slot.
func SlotMinutes(w Window, intervalMinutes int) []int {
	if intervalMinutes <= 0 || w.Open >= w.Close {
		return nil
	}
	out := make([]int, 0, (w.Close-w.Open)/intervalMinutes)
	for m := w.Open; m+intervalMinutes <= w.Close; m += intervalMinutes {
		out = append(out, m)
	}
	return out
}

// GenerateSlotTimes returns the ordered, normalized slot start times for date under hours.
// Closed days, malformed hours and non-positive intervals yield nothing.
func GenerateSlotTimes(date time.Time, hours model.DayHours, intervalMinutes int, loc *time.Location) []string {
	w, status := ResolveWindow(hours)
	if status != DayOpen {
		return nil
	}
	return slotTimes(date, w, intervalMinutes, loc)
}

func slotTimes(date time.Time, w Window, intervalMinutes int, loc *time.Location) []string {
	minutes := SlotMinutes(w, intervalMinutes)
	if len(minutes) == 0 {
		return nil
	}
	dayStart, _ := DayBounds(date, loc)
	out := make([]string, 0, len(minutes))
	prev := ""
	for _, m := range minutes {
		// Wall-clock construction so every slot lands on an exact minute of the day.
		t := time.Date(dayStart.Year(), dayStart.Month(), dayStart.Day(), 0, m, 0, 0, dayStart.Location())
		ts := NormalizeTimestamp(t, loc)
		// A wall time inside a DST gap normalizes forward and may collide with a
		// later slot; keep the sequence strictly ascending.
		if ts <= prev {
			continue
		}
		out = append(out, ts)
		prev = ts
	}
	return out
}
