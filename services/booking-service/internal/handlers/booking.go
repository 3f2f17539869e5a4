package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/servly/servly/libs/httpx"
	"github.com/servly/servly/services/booking-service/internal/booking"
	"github.com/servly/servly/services/booking-service/internal/model"
)

const idempotencyHeader = "Idempotency-Key"

type BookingHandler struct {
	svc    *booking.Service
	logger *slog.Logger
}

func NewBookingHandler(svc *booking.Service, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, logger: logger}
}

type bookingItem struct {
	ID         string `json:"id"`
	CustomerID string `json:"customerId"`
	ProviderID string `json:"providerId"`
	ServiceID  string `json:"serviceId,omitempty"`
	CategoryID string `json:"categoryId,omitempty"`
	DateTime   string `json:"dateTime"`
	Address    string `json:"address,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Status     string `json:"status"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

func toBookingItem(b model.Booking) bookingItem {
	return bookingItem{
		ID:         b.ID,
		CustomerID: b.CustomerID,
		ProviderID: b.ProviderID,
		ServiceID:  b.ServiceID,
		CategoryID: b.CategoryID,
		DateTime:   b.DateTime.UTC().Format(time.RFC3339),
		Address:    b.Address,
		Notes:      b.Notes,
		Status:     string(b.Status),
		CreatedAt:  b.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  b.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// Create handles POST /api/bookings. A replayed Idempotency-Key answers 200 with the
// original booking instead of 201.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req booking.CreateBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	b, replayed, err := h.svc.CreateBooking(r.Context(), req, r.Header.Get(idempotencyHeader))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	status := http.StatusCreated
	if replayed {
		w.Header().Set("Idempotent-Replayed", "true")
		status = http.StatusOK
	}
	httpx.WriteJSON(w, status, toBookingItem(b))
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.GetBooking(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toBookingItem(b))
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		writeBadRequest(w, "status: is required")
		return
	}
	b, err := h.svc.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toBookingItem(b))
}
