package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/servly/servly/libs/config"
	"github.com/servly/servly/libs/httpx"
	otelx "github.com/servly/servly/libs/otel"
	"github.com/servly/servly/libs/runtime"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(config.String("CONFIG_DOTENV_PATH", ".env")); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "gateway-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	bookingURL, err := parseUpstream(config.String("BOOKING_URL", "http://booking-service:8083"))
	if err != nil {
		panic(err)
	}

	rateLimitMW, redisCheck := newRateLimitMiddleware(logger, config.Int("RATE_LIMIT_PER_MINUTE", 60))
	mux := runtime.NewBaseMuxWithReady(runtime.ReadyCheck{Name: "redis", Check: redisCheck})
	registerRoutes(mux, bookingURL, otelhttp.NewTransport(http.DefaultTransport))

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods:   config.List("CORS_ALLOWED_METHODS", "GET,POST,PUT,OPTIONS"),
			AllowedHeaders:   config.List("CORS_ALLOWED_HEADERS", "Content-Type,X-Request-Id,Idempotency-Key"),
			ExposedHeaders:   config.List("CORS_EXPOSED_HEADERS", "X-Request-Id,Idempotent-Replayed,Retry-After"),
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           config.Duration("CORS_MAX_AGE", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 10*time.Second)),
		rateLimitMW,
	)
	handler = otelhttp.NewHandler(handler, "gateway")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.RunHTTPServer(ctx, srv, logger, 10*time.Second)
}

// newRateLimitMiddleware prefers the shared Redis limiter so limits hold across gateway
// replicas, and falls back to a per-process limiter. The readiness check is nil unless
// Redis is in use.
func newRateLimitMiddleware(logger *slog.Logger, perMinute int) (httpx.Middleware, func(context.Context) error) {
	if perMinute <= 0 {
		logger.Warn("rate limiting disabled")
		return nil, nil
	}
	addr := strings.TrimSpace(config.String("REDIS_ADDR", ""))
	if addr == "" {
		logger.Info("rate limiting enabled (in-memory)", "per_minute", perMinute)
		return httpx.NewRateLimiter(perMinute, time.Minute).Middleware(), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.String("REDIS_PASSWORD", ""),
		DB:       config.Int("REDIS_DB", 0),
	})
	rl := httpx.NewRedisRateLimiter(rdb, perMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", ""))
	logger.Info("rate limiting enabled (redis)", "per_minute", perMinute, "redis_addr", addr)
	return rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)), httpx.RedisReadyCheck(rdb)
}
