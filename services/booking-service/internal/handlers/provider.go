package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/servly/servly/libs/httpx"
	"github.com/servly/servly/services/booking-service/internal/availability"
	"github.com/servly/servly/services/booking-service/internal/booking"
	"github.com/servly/servly/services/booking-service/internal/model"
)

type ProviderHandler struct {
	svc    *booking.Service
	logger *slog.Logger
}

func NewProviderHandler(svc *booking.Service, logger *slog.Logger) *ProviderHandler {
	return &ProviderHandler{svc: svc, logger: logger}
}

type providerResponse struct {
	ID                         string            `json:"id"`
	Name                       string            `json:"name"`
	HoursOfOperation           model.WeeklyHours `json:"hoursOfOperation"`
	AppointmentIntervalMinutes int               `json:"appointmentIntervalMinutes"`
	Timezone                   string            `json:"timezone"`
	UpdatedAt                  string            `json:"updatedAt"`
}

func toProviderResponse(p model.Provider) providerResponse {
	hours := p.HoursOfOperation
	if hours == nil {
		hours = model.WeeklyHours{}
	}
	return providerResponse{
		ID:                         p.ID,
		Name:                       p.Name,
		HoursOfOperation:           hours,
		AppointmentIntervalMinutes: p.IntervalMinutes(),
		Timezone:                   p.Location().String(),
		UpdatedAt:                  p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *ProviderHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProvider(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProviderResponse(p))
}

func (h *ProviderHandler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	var req booking.UpdateAvailabilityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	p, err := h.svc.UpdateAvailability(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProviderResponse(p))
}

// Slots handles GET /api/providers/{id}/slots?date=YYYY-MM-DD.
func (h *ProviderHandler) Slots(w http.ResponseWriter, r *http.Request) {
	date, err := availability.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeBadRequest(w, "date must be YYYY-MM-DD")
		return
	}
	day, err := h.svc.DayAvailability(r.Context(), r.PathValue("id"), date)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, day)
}

type bookingListResponse struct {
	Bookings []bookingItem `json:"bookings"`
}

func (h *ProviderHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var date *time.Time
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		d, err := availability.ParseDate(raw)
		if err != nil {
			writeBadRequest(w, "date must be YYYY-MM-DD")
			return
		}
		date = &d
	}
	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	bookings, err := h.svc.ListBookings(r.Context(), r.PathValue("id"), date, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	items := make([]bookingItem, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, toBookingItem(b))
	}
	httpx.WriteJSON(w, http.StatusOK, bookingListResponse{Bookings: items})
}
