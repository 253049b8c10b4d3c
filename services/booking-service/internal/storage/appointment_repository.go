package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/matheuslc/horacerta/libs/db"
	"github.com/matheuslc/horacerta/services/booking-service/internal/booking"
	"github.com/matheuslc/horacerta/services/booking-service/internal/model"
)

// AppointmentRepository persists appointments. The appointments table carries
// a unique index on (provider_id, scheduled_at) filtered to active rows, so
// the conflict check and the insert are a single atomic statement.
type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Create(ctx context.Context, clientID, providerID string, scheduledAt time.Time) (model.Appointment, error) {
	appt := model.Appointment{
		ClientID:    clientID,
		ProviderID:  providerID,
		ScheduledAt: scheduledAt,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (client_id, provider_id, scheduled_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, clientID, providerID, scheduledAt).Scan(&appt.ID, &appt.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Appointment{}, booking.ErrSlotTaken
		}
		return model.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	var appt model.Appointment
	err := r.pool.QueryRow(ctx, `
		SELECT id, client_id, provider_id, scheduled_at, canceled_at, created_at
		FROM appointments
		WHERE id = $1
	`, id).Scan(&appt.ID, &appt.ClientID, &appt.ProviderID, &appt.ScheduledAt, &appt.CanceledAt, &appt.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, booking.ErrNotFound
		}
		return model.Appointment{}, err
	}
	return appt, nil
}

// Cancel sets canceled_at iff it is still null. The canceled_at IS NULL
// guard makes concurrent double-cancels resolve to exactly one winner.
func (r *AppointmentRepository) Cancel(ctx context.Context, id string, at time.Time) (model.Appointment, bool, error) {
	var appt model.Appointment
	err := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET canceled_at = $2
		WHERE id = $1 AND canceled_at IS NULL
		RETURNING id, client_id, provider_id, scheduled_at, canceled_at, created_at
	`, id, at).Scan(&appt.ID, &appt.ClientID, &appt.ProviderID, &appt.ScheduledAt, &appt.CanceledAt, &appt.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, false, nil
		}
		return model.Appointment{}, false, err
	}
	return appt, true, nil
}

// ListByDay returns every appointment scheduled on the given calendar day,
// canceled ones included; the availability builder filters on canceled_at.
func (r *AppointmentRepository) ListByDay(ctx context.Context, day time.Time) ([]model.Appointment, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	rows, err := r.pool.Query(ctx, `
		SELECT id, client_id, provider_id, scheduled_at, canceled_at, created_at
		FROM appointments
		WHERE scheduled_at >= $1 AND scheduled_at < $2
		ORDER BY scheduled_at ASC
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		var appt model.Appointment
		if err := rows.Scan(&appt.ID, &appt.ClientID, &appt.ProviderID, &appt.ScheduledAt, &appt.CanceledAt, &appt.CreatedAt); err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// ListWithNames returns appointments joined with both parties' display
// names, optionally restricted to one calendar day.
func (r *AppointmentRepository) ListWithNames(ctx context.Context, day *time.Time, limit int) ([]model.AppointmentWithNames, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT a.id, a.client_id, a.provider_id, a.scheduled_at, a.canceled_at, a.created_at,
			c.name, p.name
		FROM appointments a
		JOIN users c ON c.id = a.client_id
		JOIN users p ON p.id = a.provider_id
	`
	args := []any{}
	if day != nil {
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		query += ` WHERE a.scheduled_at >= $1 AND a.scheduled_at < $2 ORDER BY a.scheduled_at ASC LIMIT $3`
		args = append(args, start, start.AddDate(0, 0, 1), limit)
	} else {
		query += ` ORDER BY a.scheduled_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.AppointmentWithNames
	for rows.Next() {
		var appt model.AppointmentWithNames
		if err := rows.Scan(
			&appt.ID,
			&appt.ClientID,
			&appt.ProviderID,
			&appt.ScheduledAt,
			&appt.CanceledAt,
			&appt.CreatedAt,
			&appt.ClientName,
			&appt.ProviderName,
		); err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
