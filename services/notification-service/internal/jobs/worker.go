package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/matheuslc/horacerta/libs/db"
	otelx "github.com/matheuslc/horacerta/libs/otel"
	"github.com/matheuslc/horacerta/services/notification-service/internal/email"
)

// Worker drains due delivery jobs and sends them. Batches are claimed with
// FOR UPDATE SKIP LOCKED so multiple replicas can run side by side.
type Worker struct {
	pool      *db.Pool
	repo      *Repository
	sender    email.Sender
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	backoff   time.Duration
}

type WorkerConfig struct {
	Interval  time.Duration
	BatchSize int
	Backoff   time.Duration
}

func NewWorker(pool *db.Pool, repo *Repository, sender email.Sender, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 1 * time.Minute
	}
	return &Worker{
		pool:      pool,
		repo:      repo,
		sender:    sender,
		logger:    logger,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		backoff:   cfg.Backoff,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.processBatch(ctx); err != nil {
				w.logger.Error("delivery batch failed", "err", err)
			}
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	jobs, err := w.repo.FetchDue(ctx, tx, w.batchSize)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return tx.Commit(ctx)
	}

	var sent []int64
	for _, job := range jobs {
		jobCtx := otelx.ContextWithTraceContext(ctx, job.Traceparent, job.Tracestate)
		if err := w.sender.Send(job.RecipientEmail, job.Subject, job.Body); err != nil {
			attempts := job.Attempts + 1
			nextRunAt := time.Now().UTC().Add(w.backoff)
			w.logger.Error("notice send failed",
				"job_id", job.ID,
				"appointment_id", job.AppointmentID,
				"attempts", attempts,
				"err", err,
			)
			if markErr := w.repo.MarkFailed(jobCtx, tx, job.ID, attempts, job.MaxAttempts, nextRunAt, err.Error()); markErr != nil {
				return markErr
			}
			continue
		}
		sent = append(sent, job.ID)
		w.logger.Info("notice sent", "job_id", job.ID, "appointment_id", job.AppointmentID, "recipient", job.RecipientEmail)
	}

	if err := w.repo.MarkProcessed(ctx, tx, sent); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
