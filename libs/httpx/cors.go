package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy defines the CORS headers to emit for matching origins.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

type corsHeaders struct {
	origins     []string
	wildcard    bool
	methods     string
	headers     string
	exposed     string
	credentials bool
	maxAge      string
}

// WithCORS adds CORS handling for browser clients. If AllowedOrigins is empty, it is a no-op.
func WithCORS(cfg CORSPolicy) Middleware {
	origins := normalizeList(cfg.AllowedOrigins)
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	ch := corsHeaders{
		methods:     strings.Join(normalizeList(cfg.AllowedMethods), ", "),
		headers:     strings.Join(normalizeList(cfg.AllowedHeaders), ", "),
		exposed:     strings.Join(normalizeList(cfg.ExposedHeaders), ", "),
		credentials: cfg.AllowCredentials,
	}
	for _, o := range origins {
		if o == "*" {
			ch.wildcard = true
			continue
		}
		ch.origins = append(ch.origins, o)
	}
	if secs := int(cfg.MaxAge.Seconds()); secs > 0 {
		ch.maxAge = strconv.Itoa(secs)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			allowOrigin, ok := ch.allow(origin)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			ch.write(w.Header(), allowOrigin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allow returns the Access-Control-Allow-Origin value for origin. Credentialed wildcard
// policies echo the origin because browsers reject "*" with credentials.
func (c corsHeaders) allow(origin string) (string, bool) {
	for _, candidate := range c.origins {
		if strings.EqualFold(candidate, origin) {
			return origin, true
		}
	}
	if c.wildcard {
		if c.credentials {
			return origin, true
		}
		return "*", true
	}
	return "", false
}

func (c corsHeaders) write(h http.Header, allowOrigin string) {
	h.Set("Access-Control-Allow-Origin", allowOrigin)
	if c.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if c.methods != "" {
		h.Set("Access-Control-Allow-Methods", c.methods)
	}
	if c.headers != "" {
		h.Set("Access-Control-Allow-Headers", c.headers)
	}
	if c.exposed != "" {
		h.Set("Access-Control-Expose-Headers", c.exposed)
	}
	if c.maxAge != "" {
		h.Set("Access-Control-Max-Age", c.maxAge)
	}
	h.Add("Vary", "Origin")
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
