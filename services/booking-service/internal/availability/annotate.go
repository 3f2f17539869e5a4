package availability

import (
	"time"

	"github.com/servly/servly/services/booking-service/internal/model"
)

type Slot struct {
	Time     string `json:"time"`
	IsBooked bool   `json:"isBooked"`
}

// BookedSet holds normalized timestamps occupied by committed bookings.
type BookedSet map[string]struct{}

func (s BookedSet) Has(ts string) bool {
	_, ok := s[ts]
	return ok
}

// BuildBookedSet collects the committed bookings of providerID that fall on date.
// An empty providerID skips the provider filter for callers that already filtered.
func BuildBookedSet(bookings []model.Booking, providerID string, date time.Time, loc *time.Location) BookedSet {
	day := date.Format(DateLayout)
	set := make(BookedSet, len(bookings))
	for _, b := range bookings {
		if providerID != "" && b.ProviderID != providerID {
			continue
		}
		if !model.IsCommittedStatus(b.Status) {
			continue
		}
		ts := NormalizeTimestamp(b.DateTime, loc)
		if ts[:len(DateLayout)] != day {
			continue
		}
		set[ts] = struct{}{}
	}
	return set
}

// Annotate marks each slot time present in booked. Order and length are preserved.
func Annotate(times []string, booked BookedSet) []Slot {
	out := make([]Slot, len(times))
	for i, ts := range times {
		out[i] = Slot{Time: ts, IsBooked: booked.Has(ts)}
	}
	return out
}
