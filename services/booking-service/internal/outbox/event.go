package outbox

import (
	"encoding/json"
	"time"

	"github.com/servly/servly/services/booking-service/internal/model"
)

const (
	AggregateBooking = "booking"

	TopicBookingCreated       = "servly.booking.created.v1"
	TopicBookingStatusChanged = "servly.booking.status_changed.v1"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic equals EventType; PartitionKey keeps a provider's events ordered.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	PartitionKey  string
	Payload       []byte
}

type bookingPayload struct {
	BookingID      string `json:"booking_id"`
	ProviderID     string `json:"provider_id"`
	CustomerID     string `json:"customer_id"`
	ServiceID      string `json:"service_id,omitempty"`
	CategoryID     string `json:"category_id,omitempty"`
	DateTime       string `json:"date_time"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`
	OccurredAt     string `json:"occurred_at"`
}

// BookingEvent builds the event for b. previous is empty for creations.
func BookingEvent(eventType string, b model.Booking, previous model.BookingStatus) (Event, error) {
	occurred := b.UpdatedAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	payload, err := json.Marshal(bookingPayload{
		BookingID:      b.ID,
		ProviderID:     b.ProviderID,
		CustomerID:     b.CustomerID,
		ServiceID:      b.ServiceID,
		CategoryID:     b.CategoryID,
		DateTime:       b.DateTime.UTC().Format(time.RFC3339),
		Status:         string(b.Status),
		PreviousStatus: string(previous),
		OccurredAt:     occurred.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateBooking,
		AggregateID:   b.ID,
		EventType:     eventType,
		PartitionKey:  b.ProviderID,
		Payload:       payload,
	}, nil
}
