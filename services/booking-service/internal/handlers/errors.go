package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/servly/servly/libs/httpx"
	"github.com/servly/servly/services/booking-service/internal/booking"
	"github.com/servly/servly/services/booking-service/internal/storage"
)

// writeServiceError maps domain errors onto HTTP responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", verr.Error())
	case errors.Is(err, storage.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, storage.ErrSlotTaken):
		httpx.WriteError(w, http.StatusConflict, "slot_taken", "this slot was just booked; refresh availability and pick another time")
	case errors.Is(err, storage.ErrInvalidTransition):
		httpx.WriteError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, booking.ErrOutsideAvailability):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "outside_availability", err.Error())
	case errors.Is(err, booking.ErrInPast):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "in_past", err.Error())
	default:
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_request", msg)
}
