package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/servly/servly/services/booking-service/internal/model"
)

const minutesPerDay = 24 * 60

// Window is an open interval of a day in minutes since midnight, Open < Close.
type Window struct {
	Open  int
	Close int
}

// ParseClock parses a 24-hour "HH:MM" clock into minutes since midnight.
// "24:00" is accepted so a day can run until midnight.
func ParseClock(raw string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid clock %q", raw)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q", raw)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q", raw)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid clock %q", raw)
	}
	return h*60 + m, nil
}

// LookupDay finds the entry for weekday, matching the English name exactly first
// and then case-insensitively.
func LookupDay(hours model.WeeklyHours, weekday time.Weekday) (model.DayHours, bool) {
	if len(hours) == 0 {
		return model.DayHours{}, false
	}
	name := weekday.String()
	if h, ok := hours[name]; ok {
		return h, true
	}
	for k, h := range hours {
		if strings.EqualFold(strings.TrimSpace(k), name) {
			return h, true
		}
	}
	return model.DayHours{}, false
}

// ResolveWindow turns a weekday entry into an open window. Closed days report
// DayClosed; unparsable or inverted hours report DayUnavailable.
func ResolveWindow(h model.DayHours) (Window, DayStatus) {
	if h.Closed {
		return Window{}, DayClosed
	}
	open, err := ParseClock(h.Open)
	if err != nil {
		return Window{}, DayUnavailable
	}
	closeAt, err := ParseClock(h.Close)
	if err != nil {
		return Window{}, DayUnavailable
	}
	if open >= closeAt || open >= minutesPerDay {
		return Window{}, DayUnavailable
	}
	return Window{Open: open, Close: closeAt}, DayOpen
}

// HoursSummary describes a day's operating hours for display.
type HoursSummary struct {
	Open    string `json:"open"`
	Close   string `json:"close"`
	Display string `json:"display"`
}

func (w Window) Summary() HoursSummary {
	return HoursSummary{
		Open:    formatClock24(w.Open),
		Close:   formatClock24(w.Close),
		Display: FormatClock12(w.Open) + " – " + FormatClock12(w.Close),
	}
}

func formatClock24(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// FormatClock12 renders minutes since midnight as "9:00 AM". 24:00 renders as midnight.
func FormatClock12(minute int) string {
	minute %= minutesPerDay
	h, m := minute/60, minute%60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, m, suffix)
}
