package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/servly/servly/services/booking-service/internal/availability"
	"github.com/servly/servly/services/booking-service/internal/model"
	"github.com/servly/servly/services/booking-service/internal/storage"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Service coordinates the availability engine with the booking store.
type Service struct {
	store  storage.Store
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source used to reject bookings in the past.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store storage.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) GetProvider(ctx context.Context, providerID string) (model.Provider, error) {
	return s.store.GetProvider(ctx, strings.TrimSpace(providerID))
}

type UpdateAvailabilityRequest struct {
	Name                       string            `json:"name,omitempty" validate:"max=200"`
	HoursOfOperation           model.WeeklyHours `json:"hoursOfOperation" validate:"required"`
	AppointmentIntervalMinutes int               `json:"appointmentIntervalMinutes" validate:"omitempty,min=1,max=1440"`
	Timezone                   string            `json:"timezone,omitempty" validate:"omitempty,timezone"`
}

var weekdayNames = map[string]string{}

func init() {
	for d := time.Sunday; d <= time.Saturday; d++ {
		weekdayNames[strings.ToLower(d.String())] = d.String()
	}
}

// UpdateAvailability replaces the provider's hours, creating the provider when needed.
// Weekday keys are canonicalized and every open day must have a valid window.
func (s *Service) UpdateAvailability(ctx context.Context, providerID string, req UpdateAvailabilityRequest) (model.Provider, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return model.Provider{}, invalid("id", "is required")
	}
	if err := validateStruct(req); err != nil {
		return model.Provider{}, err
	}
	hours := make(model.WeeklyHours, len(req.HoursOfOperation))
	for key, h := range req.HoursOfOperation {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			return model.Provider{}, invalid("hoursOfOperation", "unknown weekday %q", key)
		}
		if _, dup := hours[day]; dup {
			return model.Provider{}, invalid("hoursOfOperation", "duplicate weekday %q", day)
		}
		if !h.Closed {
			if _, status := availability.ResolveWindow(h); status != availability.DayOpen {
				return model.Provider{}, invalid("hoursOfOperation", "%s needs open < close in HH:MM", day)
			}
		}
		hours[day] = h
	}

	p, err := s.store.UpsertProviderAvailability(ctx, model.Provider{
		ID:   providerID,
		Name: strings.TrimSpace(req.Name),
		AvailabilityConfig: model.AvailabilityConfig{
			HoursOfOperation:           hours,
			AppointmentIntervalMinutes: req.AppointmentIntervalMinutes,
			Timezone:                   req.Timezone,
		},
	})
	if err != nil {
		return model.Provider{}, err
	}
	s.logger.InfoContext(ctx, "provider availability updated", "provider_id", p.ID, "interval_minutes", p.IntervalMinutes(), "timezone", p.Timezone)
	return p, nil
}

// DayAvailability returns the annotated slots of providerID on date.
func (s *Service) DayAvailability(ctx context.Context, providerID string, date time.Time) (availability.DayAvailability, error) {
	p, err := s.store.GetProvider(ctx, strings.TrimSpace(providerID))
	if err != nil {
		return availability.DayAvailability{}, err
	}
	return s.dayAvailability(ctx, p, date)
}

func (s *Service) dayAvailability(ctx context.Context, p model.Provider, date time.Time) (availability.DayAvailability, error) {
	from, to := availability.DayBounds(date, p.Location())
	bookings, err := s.store.ListBookingsByProvider(ctx, p.ID, from, to, 0)
	if err != nil {
		return availability.DayAvailability{}, err
	}
	return availability.ForDate(p.ID, p.AvailabilityConfig, bookings, date), nil
}

// ListBookings returns the provider's bookings ordered by time. A nil date lists all days.
func (s *Service) ListBookings(ctx context.Context, providerID string, date *time.Time, limit int) ([]model.Booking, error) {
	p, err := s.store.GetProvider(ctx, strings.TrimSpace(providerID))
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	var from, to time.Time
	if date != nil {
		from, to = availability.DayBounds(*date, p.Location())
	}
	bookings, err := s.store.ListBookingsByProvider(ctx, p.ID, from, to, limit)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	return bookings, nil
}

func (s *Service) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	return s.store.GetBooking(ctx, strings.TrimSpace(id))
}

type CreateBookingRequest struct {
	CustomerID string `json:"customerId" validate:"required,max=128"`
	ProviderID string `json:"providerId" validate:"required,max=128"`
	ServiceID  string `json:"serviceId,omitempty" validate:"max=128"`
	CategoryID string `json:"categoryId,omitempty" validate:"max=128"`
	// DateTime is a slot start, either "2006-01-02T15:04" in the provider's timezone
	// or an RFC 3339 timestamp.
	DateTime string `json:"dateTime" validate:"required"`
	Address  string `json:"address,omitempty" validate:"max=500"`
	Notes    string `json:"notes,omitempty" validate:"max=2000"`
	// Status defaults to pending. Providers booking on a customer's behalf may commit directly.
	Status string `json:"status,omitempty" validate:"omitempty,oneof=pending accepted confirmed completed"`
}

// CreateBooking validates req against the provider's current availability and stores it.
// A retry with an idempotency key the customer already used returns the original booking
// and replayed=true. ErrSlotTaken means another booking committed the slot first; callers
// should refresh availability and pick again.
func (s *Service) CreateBooking(ctx context.Context, req CreateBookingRequest, idempotencyKey string) (model.Booking, bool, error) {
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.ProviderID = strings.TrimSpace(req.ProviderID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.CategoryID = strings.TrimSpace(req.CategoryID)
	req.Address = strings.TrimSpace(req.Address)
	req.Notes = strings.TrimSpace(req.Notes)
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if err := validateStruct(req); err != nil {
		return model.Booking{}, false, err
	}

	if idempotencyKey != "" {
		existing, ok, err := s.store.LookupIdempotencyKey(ctx, req.CustomerID, idempotencyKey)
		if err != nil {
			return model.Booking{}, false, err
		}
		if ok {
			return existing, true, nil
		}
	}

	status := model.StatusPending
	if req.Status != "" {
		status, _ = model.ParseBookingStatus(req.Status)
	}

	p, err := s.store.GetProvider(ctx, req.ProviderID)
	if err != nil {
		return model.Booking{}, false, err
	}
	loc := p.Location()
	at, err := availability.ParseTimestamp(req.DateTime, loc)
	if err != nil {
		return model.Booking{}, false, invalid("dateTime", "must be YYYY-MM-DDTHH:MM or RFC 3339")
	}
	if !at.After(s.now()) {
		return model.Booking{}, false, ErrInPast
	}

	day, err := s.dayAvailability(ctx, p, at.In(loc))
	if err != nil {
		return model.Booking{}, false, err
	}
	slotTime := availability.NormalizeTimestamp(at, loc)
	slot, ok := day.Slot(slotTime)
	if !ok {
		return model.Booking{}, false, ErrOutsideAvailability
	}
	if slot.IsBooked {
		s.logger.WarnContext(ctx, "booking rejected: slot already booked", "provider_id", p.ID, "date_time", slotTime)
		return model.Booking{}, false, storage.ErrSlotTaken
	}
	// Store the slot's own instant so every representation of a slot, including both
	// readings of a repeated DST hour, collides at the store.
	slotAt, err := availability.ParseTimestamp(slotTime, loc)
	if err != nil {
		return model.Booking{}, false, err
	}

	b, replayed, err := s.store.CreateBooking(ctx, model.Booking{
		ID:         uuid.NewString(),
		CustomerID: req.CustomerID,
		ProviderID: p.ID,
		ServiceID:  req.ServiceID,
		CategoryID: req.CategoryID,
		DateTime:   slotAt,
		Address:    req.Address,
		Notes:      req.Notes,
		Status:     status,
	}, idempotencyKey)
	if err != nil {
		if errors.Is(err, storage.ErrSlotTaken) {
			s.logger.WarnContext(ctx, "booking rejected: slot just got taken", "provider_id", p.ID, "date_time", slotTime)
		}
		return model.Booking{}, false, err
	}
	if !replayed {
		s.logger.InfoContext(ctx, "booking created", "booking_id", b.ID, "provider_id", b.ProviderID, "date_time", slotTime, "status", b.Status)
	}
	return b, replayed, nil
}

// UpdateStatus moves a booking through its lifecycle. Committing a pending booking
// fails with ErrSlotTaken when another booking already holds the slot.
func (s *Service) UpdateStatus(ctx context.Context, bookingID, rawStatus string) (model.Booking, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return model.Booking{}, invalid("id", "is required")
	}
	next, ok := model.ParseBookingStatus(rawStatus)
	if !ok {
		return model.Booking{}, invalid("status", "unknown status %q", rawStatus)
	}
	b, err := s.store.UpdateBookingStatus(ctx, bookingID, next)
	if err != nil {
		if errors.Is(err, storage.ErrSlotTaken) {
			s.logger.WarnContext(ctx, "status change rejected: slot already booked", "booking_id", bookingID, "status", next)
		}
		return model.Booking{}, err
	}
	s.logger.InfoContext(ctx, "booking status changed", "booking_id", b.ID, "provider_id", b.ProviderID, "status", b.Status)
	return b, nil
}
