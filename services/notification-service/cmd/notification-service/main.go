package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/matheuslc/horacerta/libs/config"
	"github.com/matheuslc/horacerta/libs/db"
	"github.com/matheuslc/horacerta/libs/httpx"
	"github.com/matheuslc/horacerta/libs/kafkax"
	otelx "github.com/matheuslc/horacerta/libs/otel"
	"github.com/matheuslc/horacerta/libs/runtime"
	"github.com/matheuslc/horacerta/services/notification-service/internal/consumer"
	"github.com/matheuslc/horacerta/services/notification-service/internal/email"
	"github.com/matheuslc/horacerta/services/notification-service/internal/inbox"
	"github.com/matheuslc/horacerta/services/notification-service/internal/jobs"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// cancellationNotice mirrors the payload published by the booking service.
type cancellationNotice struct {
	AppointmentID string `json:"appointment_id"`
	ClientID      string `json:"client_id"`
	ProviderID    string `json:"provider_id"`
	ScheduledAt   string `json:"scheduled_at"`
	CanceledAt    string `json:"canceled_at"`
	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email"`
	ProviderName  string `json:"provider_name"`
	ProviderEmail string `json:"provider_email"`
}

func humanTime(raw string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.UTC().Format("January 2 at 15:04")
}

func noticeJobs(notice cancellationNotice) []jobs.Job {
	when := humanTime(notice.ScheduledAt)
	subject := "Appointment canceled"

	var out []jobs.Job
	if strings.TrimSpace(notice.ClientEmail) != "" {
		out = append(out, jobs.Job{
			IdempotencyKey: notice.AppointmentID + "|client",
			AppointmentID:  notice.AppointmentID,
			RecipientEmail: notice.ClientEmail,
			RecipientName:  notice.ClientName,
			Subject:        subject,
			Body: fmt.Sprintf("Hello %s,\n\nYour appointment with %s on %s has been canceled.\n",
				notice.ClientName, notice.ProviderName, when),
		})
	}
	if strings.TrimSpace(notice.ProviderEmail) != "" {
		out = append(out, jobs.Job{
			IdempotencyKey: notice.AppointmentID + "|provider",
			AppointmentID:  notice.AppointmentID,
			RecipientEmail: notice.ProviderEmail,
			RecipientName:  notice.ProviderName,
			Subject:        subject,
			Body: fmt.Sprintf("Hello %s,\n\nThe appointment with %s on %s has been canceled. The slot is open again.\n",
				notice.ProviderName, notice.ClientName, when),
		})
	}
	return out
}

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
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

	inboxRepo := inbox.NewRepository()
	jobsRepo := jobs.NewRepository()

	var sender email.Sender
	if strings.EqualFold(config.String("EMAIL_PROVIDER", "smtp"), "noop") {
		sender = email.NewNoopSender()
	} else {
		sender = email.NewSMTPSender(
			config.String("SMTP_HOST", "mailpit"),
			config.String("SMTP_PORT", "1025"),
			config.String("SMTP_FROM", "no-reply@horacerta.local"),
		)
	}

	worker := jobs.NewWorker(pool, jobsRepo, sender, logger, jobs.WorkerConfig{
		Interval:  time.Duration(config.Int("DELIVERY_INTERVAL_SECONDS", 2)) * time.Second,
		BatchSize: config.Int("DELIVERY_BATCH_SIZE", 50),
		Backoff:   time.Duration(config.Int("DELIVERY_BACKOFF_SECONDS", 60)) * time.Second,
	})
	go worker.Run(ctx)

	consumerCfg := consumer.Config{
		Brokers: config.String("KAFKA_BROKERS", ""),
		GroupID: config.String("KAFKA_GROUP_ID", "notification-service"),
		Topic:   config.String("KAFKA_CONSUME_TOPIC", "booking.appointment.canceled.v1"),
	}
	eventConsumer := consumer.New(logger, pool, inboxRepo, consumerCfg, func(ctx context.Context, tx pgx.Tx, msg kafka.Message) error {
		var notice cancellationNotice
		if err := json.Unmarshal(msg.Value, &notice); err != nil {
			logger.Error("invalid cancellation payload", "err", err)
			return nil
		}
		if notice.AppointmentID == "" || notice.ScheduledAt == "" {
			logger.Error("missing cancellation fields")
			return nil
		}

		pending := noticeJobs(notice)
		if len(pending) == 0 {
			logger.Warn("cancellation notice has no recipients", "appointment_id", notice.AppointmentID)
			return nil
		}

		for _, job := range pending {
			if err := jobsRepo.Insert(ctx, tx, job); err != nil {
				return err
			}
		}

		logger.Info("cancellation notice queued",
			"appointment_id", notice.AppointmentID,
			"recipients", len(pending),
		)
		return nil
	})
	go eventConsumer.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
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
