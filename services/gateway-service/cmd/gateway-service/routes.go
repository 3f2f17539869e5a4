package main

import (
	"embed"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
)

//go:embed assets/servly.v1.yaml
var openAPISpec embed.FS

func parseUpstream(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse upstream %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream %q must be an absolute URL", raw)
	}
	return u, nil
}

func registerRoutes(mux *http.ServeMux, bookingURL *url.URL, transport http.RoundTripper) {
	bookingProxy := httputil.NewSingleHostReverseProxy(bookingURL)
	bookingProxy.Transport = transport
	bookingProxy.ErrorHandler = func(w http.ResponseWriter, _ *http.Request, _ error) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"booking service unavailable","code":"upstream_unavailable"}`))
	}

	mux.Handle("/api/providers/", bookingProxy)
	mux.Handle("/api/bookings", bookingProxy)
	mux.Handle("/api/bookings/", bookingProxy)

	mux.HandleFunc("GET /openapi", func(w http.ResponseWriter, _ *http.Request) {
		data, err := openAPISpec.ReadFile("assets/servly.v1.yaml")
		if err != nil {
			http.Error(w, "openapi not available", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	})
}
