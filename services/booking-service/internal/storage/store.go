package storage

import (
	"context"
	"errors"
	"time"

	"github.com/servly/servly/services/booking-service/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrSlotTaken means another committed booking already holds the provider's slot.
	ErrSlotTaken         = errors.New("slot already booked")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Store is the persistence boundary of booking-service. Implementations must make
// CreateBooking and UpdateBookingStatus atomic with respect to slot exclusivity: at most
// one booking in a committed status may exist per (provider, date time).
type Store interface {
	GetProvider(ctx context.Context, id string) (model.Provider, error)
	// UpsertProviderAvailability creates the provider if needed and replaces its
	// availability configuration. An empty Name keeps the stored name.
	UpsertProviderAvailability(ctx context.Context, p model.Provider) (model.Provider, error)

	// ListBookingsByProvider returns bookings with from <= DateTime < to ordered by DateTime.
	// Zero bounds are open; limit <= 0 means no limit.
	ListBookingsByProvider(ctx context.Context, providerID string, from, to time.Time, limit int) ([]model.Booking, error)
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	// LookupIdempotencyKey returns the booking previously created by customerID with key.
	LookupIdempotencyKey(ctx context.Context, customerID, key string) (model.Booking, bool, error)
	// CreateBooking stores b and its created event. When idempotencyKey was already used
	// by the same customer the original booking is returned with replayed set.
	CreateBooking(ctx context.Context, b model.Booking, idempotencyKey string) (booking model.Booking, replayed bool, err error)
	UpdateBookingStatus(ctx context.Context, id string, next model.BookingStatus) (model.Booking, error)
}
