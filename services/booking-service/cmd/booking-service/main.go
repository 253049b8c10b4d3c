package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/matheuslc/horacerta/libs/auth"
	"github.com/matheuslc/horacerta/libs/config"
	"github.com/matheuslc/horacerta/libs/db"
	"github.com/matheuslc/horacerta/libs/httpx"
	"github.com/matheuslc/horacerta/libs/kafkax"
	otelx "github.com/matheuslc/horacerta/libs/otel"
	"github.com/matheuslc/horacerta/libs/runtime"
	"github.com/matheuslc/horacerta/services/booking-service/internal/booking"
	"github.com/matheuslc/horacerta/services/booking-service/internal/handlers"
	"github.com/matheuslc/horacerta/services/booking-service/internal/identity"
	"github.com/matheuslc/horacerta/services/booking-service/internal/notify"
	"github.com/matheuslc/horacerta/services/booking-service/internal/outbox"
	"github.com/matheuslc/horacerta/services/booking-service/internal/schedule"
	"github.com/matheuslc/horacerta/services/booking-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func parseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
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

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	appointmentRepo := storage.NewAppointmentRepository(pool)
	notificationRepo := storage.NewNotificationRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	var directory identity.Directory = storage.NewUserRepository(pool)
	if addr := strings.TrimSpace(config.String("IDENTITY_GRPC_ADDR", "")); addr != "" {
		remote, err := identity.NewRemoteDirectory(addr)
		if err != nil {
			logger.Error("remote directory init failed; using local directory", "err", err)
		} else if remote != nil {
			directory = remote
		}
	}

	dispatcher := notify.NewDispatcher(notificationRepo, outboxRepo, logger)
	engine := booking.NewEngine(directory, appointmentRepo, dispatcher, logger, booking.Config{
		CancellationLead: time.Duration(config.Int("CANCELLATION_LEAD_HOURS", 2)) * time.Hour,
	})

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	tmpl := schedule.ParseHours(config.String("SCHEDULE_HOURS", ""))
	bookingHandler := handlers.NewBookingHandler(engine, appointmentRepo, logger)
	scheduleHandler := handlers.NewScheduleHandler(directory, appointmentRepo, tmpl, logger)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, logger)

	jwtSecret := config.String("JWT_SECRET", "dev-secret")
	var jwksClient *auth.JWKSClient
	if jwksURL := strings.TrimSpace(config.String("JWKS_URL", "")); jwksURL != "" {
		ttl := config.Int("JWKS_CACHE_SECONDS", 300)
		if ttl <= 0 {
			ttl = 300
		}
		jwksClient = auth.NewJWKSClient(jwksURL, time.Duration(ttl)*time.Second)
	}
	authed := func(h http.HandlerFunc) http.Handler {
		return handlers.RequireAuth(h, jwtSecret, jwksClient)
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.Handle("/api/v1/availability", authed(scheduleHandler.Availability))
	mux.Handle("/api/v1/providers", authed(scheduleHandler.Providers))
	mux.Handle("/api/v1/appointments", authed(bookingHandler.Appointments))
	mux.Handle("/api/v1/appointments/cancel", authed(bookingHandler.Cancel))
	mux.Handle("/api/v1/notifications", authed(notificationHandler.List))
	mux.Handle("/api/v1/notifications/read", authed(notificationHandler.MarkRead))

	bodyLimit := int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))
	if bodyLimit <= 0 {
		bodyLimit = 1 << 20
	}
	requestTimeout := time.Duration(config.Int("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if limitPerMinute <= 0 {
		limitPerMinute = 120
	}

	var rateLimitMW httpx.Middleware
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		rateLimitMW = httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, service).Middleware(logger, true)
	} else {
		rateLimitMW = httpx.NewRateLimiter(limitPerMinute, time.Minute).Middleware()
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods:   parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS")),
			AllowedHeaders:   parseList(config.String("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id")),
			AllowCredentials: config.String("CORS_ALLOW_CREDENTIALS", "false") == "true",
			MaxAge:           time.Duration(config.Int("CORS_MAX_AGE_SECONDS", 600)) * time.Second,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(bodyLimit),
		httpx.WithTimeout(requestTimeout),
		rateLimitMW,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
