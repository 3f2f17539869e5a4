package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/servly/servly/libs/config"
	"github.com/servly/servly/libs/db"
	"github.com/servly/servly/libs/grpcx"
	"github.com/servly/servly/libs/httpx"
	"github.com/servly/servly/libs/kafkax"
	otelx "github.com/servly/servly/libs/otel"
	"github.com/servly/servly/libs/runtime"
	"github.com/servly/servly/services/booking-service/internal/booking"
	"github.com/servly/servly/services/booking-service/internal/handlers"
	"github.com/servly/servly/services/booking-service/internal/outbox"
	"github.com/servly/servly/services/booking-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(config.String("CONFIG_DOTENV_PATH", ".env")); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
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

	brokers := config.String("KAFKA_BROKERS", "")
	store, pool, err := openStore(ctx, logger)
	if err != nil {
		logger.Error("storage init failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if pool != nil {
		publisher := outbox.NewPublisher(pool, outbox.NewRepository(), logger, outbox.PublisherConfig{
			Brokers:   brokers,
			PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
		})
		go publisher.Run(ctx)
	}

	svc := booking.NewService(store, logger)

	var dbCheck func(context.Context) error
	if pool != nil {
		dbCheck = db.ReadyCheck(pool)
	}
	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: dbCheck},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handlers.Register(mux, handlers.NewProviderHandler(svc, logger), handlers.NewBookingHandler(svc, logger))

	if grpcPort := strings.TrimSpace(config.String("GRPC_PORT", "")); grpcPort != "" {
		grpcSrv := grpcx.NewServer(logger)
		grpcSrv.SetServing(service, true)
		go func() {
			if err := grpcSrv.Run(ctx, net.JoinHostPort("", grpcPort)); err != nil {
				logger.Error("grpc server error", "err", err)
			}
		}()
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 10*time.Second)),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.RunHTTPServer(ctx, srv, logger, 10*time.Second)
}

// openStore selects the storage backend from STORAGE_DRIVER. The returned pool is nil
// for the in-memory store.
func openStore(ctx context.Context, logger *slog.Logger) (storage.Store, *db.Pool, error) {
	switch driver := strings.ToLower(config.String("STORAGE_DRIVER", "postgres")); driver {
	case "memory":
		logger.Warn("using in-memory storage; data is lost on restart")
		return storage.NewMemoryStore(), nil, nil
	case "postgres":
		dbURL, err := config.RequiredString("DATABASE_URL")
		if err != nil {
			return nil, nil, err
		}
		pool, err := db.Open(ctx, dbURL, db.PoolConfig{
			MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
		})
		if err != nil {
			return nil, nil, err
		}
		if config.Bool("DB_AUTO_MIGRATE", false) {
			if err := storage.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
			logger.Info("database schema applied")
		}
		return storage.NewRepository(pool, outbox.NewRepository()), pool, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORAGE_DRIVER %q (want postgres or memory)", driver)
	}
}
