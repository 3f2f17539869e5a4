package handlers

import "net/http"

func Register(mux *http.ServeMux, providers *ProviderHandler, bookings *BookingHandler) {
	mux.HandleFunc("GET /api/providers/{id}", providers.Get)
	mux.HandleFunc("PUT /api/providers/{id}/availability", providers.UpdateAvailability)
	mux.HandleFunc("GET /api/providers/{id}/slots", providers.Slots)
	mux.HandleFunc("GET /api/providers/{id}/bookings", providers.Bookings)

	mux.HandleFunc("POST /api/bookings", bookings.Create)
	mux.HandleFunc("GET /api/bookings/{id}", bookings.Get)
	mux.HandleFunc("POST /api/bookings/{id}/status", bookings.UpdateStatus)
}
