package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/servly/servly/services/booking-service/internal/model"
	"github.com/servly/servly/services/booking-service/internal/outbox"
)

// MemoryStore is an in-process Store with the same exclusivity guarantees as Repository.
// It backs STORAGE_DRIVER=memory and tests.
type MemoryStore struct {
	mu          sync.Mutex
	now         func() time.Time
	providers   map[string]model.Provider
	bookings    map[string]model.Booking
	idempotency map[idempotencyScope]string
	events      []outbox.Event
}

type idempotencyScope struct {
	customerID string
	key        string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:         time.Now,
		providers:   make(map[string]model.Provider),
		bookings:    make(map[string]model.Booking),
		idempotency: make(map[idempotencyScope]string),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) GetProvider(_ context.Context, id string) (model.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.providers[id]
	if !ok {
		return model.Provider{}, ErrNotFound
	}
	return cloneProvider(p), nil
}

func (s *MemoryStore) UpsertProviderAvailability(_ context.Context, p model.Provider) (model.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	stored, ok := s.providers[p.ID]
	if !ok {
		stored = model.Provider{ID: p.ID, CreatedAt: now}
	}
	if p.Name != "" {
		stored.Name = p.Name
	}
	stored.AvailabilityConfig = model.AvailabilityConfig{
		HoursOfOperation:           p.HoursOfOperation,
		AppointmentIntervalMinutes: p.IntervalMinutes(),
		Timezone:                   p.Timezone,
	}
	stored.UpdatedAt = now
	stored = cloneProvider(stored)
	s.providers[p.ID] = stored
	return cloneProvider(stored), nil
}

func (s *MemoryStore) ListBookingsByProvider(_ context.Context, providerID string, from, to time.Time, limit int) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.bookings {
		if b.ProviderID != providerID {
			continue
		}
		if !from.IsZero() && b.DateTime.Before(from) {
			continue
		}
		if !to.IsZero() && !b.DateTime.Before(to) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateTime.Equal(out[j].DateTime) {
			return out[i].DateTime.Before(out[j].DateTime)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) GetBooking(_ context.Context, id string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, ErrNotFound
	}
	return b, nil
}

func (s *MemoryStore) LookupIdempotencyKey(_ context.Context, customerID, key string) (model.Booking, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.idempotency[idempotencyScope{customerID: customerID, key: key}]
	if !ok {
		return model.Booking{}, false, nil
	}
	return s.bookings[id], true, nil
}

func (s *MemoryStore) CreateBooking(_ context.Context, b model.Booking, idempotencyKey string) (model.Booking, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scope := idempotencyScope{customerID: b.CustomerID, key: idempotencyKey}
	if idempotencyKey != "" {
		if id, ok := s.idempotency[scope]; ok {
			return s.bookings[id], true, nil
		}
	}
	if _, ok := s.providers[b.ProviderID]; !ok {
		return model.Booking{}, false, ErrNotFound
	}
	if _, exists := s.bookings[b.ID]; exists {
		return model.Booking{}, false, fmt.Errorf("booking %s already exists", b.ID)
	}
	if s.slotTakenLocked(b.ProviderID, b.DateTime, "") {
		return model.Booking{}, false, ErrSlotTaken
	}

	now := s.now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	evt, err := outbox.BookingEvent(outbox.TopicBookingCreated, b, "")
	if err != nil {
		return model.Booking{}, false, err
	}
	s.bookings[b.ID] = b
	s.events = append(s.events, evt)
	if idempotencyKey != "" {
		s.idempotency[scope] = b.ID
	}
	return b, false, nil
}

func (s *MemoryStore) UpdateBookingStatus(_ context.Context, id string, next model.BookingStatus) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, ErrNotFound
	}
	if current.Status == next {
		return current, nil
	}
	if !current.Status.CanTransitionTo(next) {
		return model.Booking{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, next)
	}
	if model.IsCommittedStatus(next) && !model.IsCommittedStatus(current.Status) &&
		s.slotTakenLocked(current.ProviderID, current.DateTime, current.ID) {
		return model.Booking{}, ErrSlotTaken
	}

	updated := current
	updated.Status = next
	updated.UpdatedAt = s.now().UTC()
	evt, err := outbox.BookingEvent(outbox.TopicBookingStatusChanged, updated, current.Status)
	if err != nil {
		return model.Booking{}, err
	}
	s.bookings[id] = updated
	s.events = append(s.events, evt)
	return updated, nil
}

// Events returns the outbox events recorded so far.
func (s *MemoryStore) Events() []outbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbox.Event(nil), s.events...)
}

func (s *MemoryStore) slotTakenLocked(providerID string, at time.Time, exceptID string) bool {
	for _, b := range s.bookings {
		if b.ID != exceptID && b.ProviderID == providerID && b.DateTime.Equal(at) && model.IsCommittedStatus(b.Status) {
			return true
		}
	}
	return false
}

func cloneProvider(p model.Provider) model.Provider {
	if p.HoursOfOperation != nil {
		hours := make(model.WeeklyHours, len(p.HoursOfOperation))
		for day, h := range p.HoursOfOperation {
			hours[day] = h
		}
		p.HoursOfOperation = hours
	}
	return p
}
