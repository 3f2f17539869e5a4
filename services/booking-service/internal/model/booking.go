package model

import (
	"strings"
	"time"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusAccepted  BookingStatus = "accepted"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusDeclined  BookingStatus = "declined"
	StatusCancelled BookingStatus = "cancelled"
)

// CommittedStatuses are the statuses that occupy a provider's slot.
var CommittedStatuses = []BookingStatus{StatusConfirmed, StatusAccepted, StatusCompleted}

// IsCommittedStatus reports whether a booking in status s occupies its slot.
// Pending requests do not: several customers may request the same slot and the
// provider accepts one of them.
func IsCommittedStatus(s BookingStatus) bool {
	switch s {
	case StatusConfirmed, StatusAccepted, StatusCompleted:
		return true
	default:
		return false
	}
}

func ParseBookingStatus(raw string) (BookingStatus, bool) {
	s := BookingStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusAccepted, StatusConfirmed, StatusCompleted, StatusDeclined, StatusCancelled:
		return s, true
	default:
		return "", false
	}
}

var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusAccepted, StatusDeclined, StatusCancelled},
	StatusAccepted:  {StatusConfirmed, StatusCompleted, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransitionTo reports whether a booking may move from s to next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s BookingStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

type Booking struct {
	ID         string
	CustomerID string
	ProviderID string
	ServiceID  string
	CategoryID string
	// DateTime is the slot start, truncated to the minute.
	DateTime  time.Time
	Address   string
	Notes     string
	Status    BookingStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
