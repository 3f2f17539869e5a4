package availability

import (
	"fmt"
	"time"

	"github.com/servly/servly/services/booking-service/internal/model"
)

type DayStatus string

const (
	// DayOpen means at least one slot is still bookable.
	DayOpen        DayStatus = "open"
	DayClosed      DayStatus = "closed"
	DayUnavailable DayStatus = "unavailable"
	DayFullyBooked DayStatus = "fully_booked"
	// DayNoSlots means the day is open but no whole slot fits inside its window.
	DayNoSlots DayStatus = "no_slots"
)

// DayAvailability is the annotated slot list for one provider on one date.
type DayAvailability struct {
	ProviderID      string        `json:"providerId"`
	Date            string        `json:"date"`
	Weekday         string        `json:"weekday"`
	Timezone        string        `json:"timezone"`
	IntervalMinutes int           `json:"intervalMinutes"`
	Status          DayStatus     `json:"status"`
	Message         string        `json:"message,omitempty"`
	Hours           *HoursSummary `json:"hours,omitempty"`
	Slots           []Slot        `json:"slots"`
}

// Offers reports whether slotTime is one of the day's generated slots.
func (d DayAvailability) Offers(slotTime string) bool {
	_, ok := d.Slot(slotTime)
	return ok
}

func (d DayAvailability) Slot(slotTime string) (Slot, bool) {
	for _, s := range d.Slots {
		if s.Time == slotTime {
			return s, true
		}
	}
	return Slot{}, false
}

func (d DayAvailability) Bookable() bool {
	for _, s := range d.Slots {
		if !s.IsBooked {
			return true
		}
	}
	return false
}

// ForDate computes the provider's slots for date. Only the year, month and day of date
// are used; they are read in the provider's timezone. It never fails: missing or
// malformed configuration reports DayUnavailable with no slots.
func ForDate(providerID string, cfg model.AvailabilityConfig, bookings []model.Booking, date time.Time) DayAvailability {
	loc := cfg.Location()
	dayStart, _ := DayBounds(date, loc)
	out := DayAvailability{
		ProviderID:      providerID,
		Date:            dayStart.Format(DateLayout),
		Weekday:         dayStart.Weekday().String(),
		Timezone:        loc.String(),
		IntervalMinutes: cfg.IntervalMinutes(),
		Slots:           []Slot{},
	}

	hours, ok := LookupDay(cfg.HoursOfOperation, dayStart.Weekday())
	if !ok {
		out.Status = DayUnavailable
		out.Message = fmt.Sprintf("No hours set for %s", out.Weekday)
		return out
	}
	w, status := ResolveWindow(hours)
	switch status {
	case DayClosed:
		out.Status = DayClosed
		out.Message = fmt.Sprintf("Closed on %s", out.Weekday)
		return out
	case DayUnavailable:
		out.Status = DayUnavailable
		out.Message = fmt.Sprintf("Hours for %s are not available", out.Weekday)
		return out
	}

	summary := w.Summary()
	out.Hours = &summary

	times := slotTimes(dayStart, w, out.IntervalMinutes, loc)
	if len(times) == 0 {
		out.Status = DayNoSlots
		out.Message = "No available slots"
		return out
	}
	out.Slots = Annotate(times, BuildBookedSet(bookings, providerID, dayStart, loc))
	if out.Bookable() {
		out.Status = DayOpen
	} else {
		out.Status = DayFullyBooked
		out.Message = "All slots are booked"
	}
	return out
}
