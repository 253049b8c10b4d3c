package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/matheuslc/horacerta/services/booking-service/internal/identity"
	"github.com/matheuslc/horacerta/services/booking-service/internal/model"
)

// DefaultCancellationLead is the lead time required before an appointment's
// start for cancellation to be permitted.
const DefaultCancellationLead = 2 * time.Hour

// Store is the engine's view of appointment persistence.
//
// Create must be atomic with respect to the exclusivity check: two concurrent
// creates for the same (provider, hour) must yield exactly one success and
// one ErrSlotTaken. The pgx implementation relies on a partial unique index
// for this; fakes must provide the equivalent.
//
// Cancel is a compare-and-set on canceled_at: ok is false when the
// appointment was already canceled by a concurrent request.
type Store interface {
	Create(ctx context.Context, clientID, providerID string, scheduledAt time.Time) (model.Appointment, error)
	Get(ctx context.Context, id string) (model.Appointment, error)
	Cancel(ctx context.Context, id string, at time.Time) (appt model.Appointment, ok bool, err error)
}

// Notifier receives post-write side effects. Implementations own their error
// handling; a failed notification must never affect the committed write.
type Notifier interface {
	BookingCreated(ctx context.Context, appt model.Appointment, client, provider identity.User)
	AppointmentCanceled(ctx context.Context, appt model.Appointment, client, provider identity.User)
}

type Config struct {
	// CancellationLead overrides DefaultCancellationLead when positive.
	CancellationLead time.Duration
	// Now overrides the wall clock. Tests only.
	Now func() time.Time
}

// Engine validates and commits bookings and cancellations. It holds no
// mutable state; each call is an independent unit of work against the store.
type Engine struct {
	directory identity.Directory
	store     Store
	notifier  Notifier
	logger    *slog.Logger
	lead      time.Duration
	now       func() time.Time
}

func NewEngine(directory identity.Directory, store Store, notifier Notifier, logger *slog.Logger, cfg Config) *Engine {
	lead := cfg.CancellationLead
	if lead <= 0 {
		lead = DefaultCancellationLead
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		directory: directory,
		store:     store,
		notifier:  notifier,
		logger:    logger,
		lead:      lead,
		now:       now,
	}
}

// CreateAppointment books providerID's hour slot containing requestedAt for
// clientID. The requested time is truncated to the start of its hour before
// any temporal or exclusivity check. First failure wins.
func (e *Engine) CreateAppointment(ctx context.Context, clientID, providerID string, requestedAt time.Time) (model.Appointment, error) {
	if clientID == "" || providerID == "" || requestedAt.IsZero() {
		return model.Appointment{}, ErrValidation
	}
	if clientID == providerID {
		return model.Appointment{}, ErrSelfBooking
	}

	provider, err := e.directory.Lookup(ctx, providerID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return model.Appointment{}, ErrInvalidProvider
		}
		return model.Appointment{}, err
	}
	if !provider.Can(identity.CapProvider) {
		return model.Appointment{}, ErrInvalidProvider
	}

	scheduledAt := requestedAt.UTC().Truncate(time.Hour)
	if scheduledAt.Before(e.now()) {
		return model.Appointment{}, ErrPastDate
	}

	appt, err := e.store.Create(ctx, clientID, providerID, scheduledAt)
	if err != nil {
		return model.Appointment{}, err
	}

	e.notifier.BookingCreated(ctx, appt, e.lookupForDisplay(ctx, clientID), provider)
	return appt, nil
}

// CancelAppointment marks the appointment canceled on behalf of actorID,
// which must resolve to an admin or receptionist. Cancellation is terminal
// and only permitted while now <= scheduled_at - lead.
func (e *Engine) CancelAppointment(ctx context.Context, appointmentID, actorID string) (model.Appointment, error) {
	if appointmentID == "" || actorID == "" {
		return model.Appointment{}, ErrValidation
	}

	actor, err := e.directory.Lookup(ctx, actorID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return model.Appointment{}, ErrUnauthorized
		}
		return model.Appointment{}, err
	}
	if !actor.Can(identity.CapAdmin | identity.CapReceptionist) {
		return model.Appointment{}, ErrUnauthorized
	}

	appt, err := e.store.Get(ctx, appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !appt.Active() {
		return model.Appointment{}, ErrAlreadyCanceled
	}

	now := e.now()
	if now.After(appt.ScheduledAt.Add(-e.lead)) {
		return model.Appointment{}, ErrCancellationWindow
	}

	appt, ok, err := e.store.Cancel(ctx, appointmentID, now)
	if err != nil {
		return model.Appointment{}, err
	}
	if !ok {
		// Lost a double-cancel race; exactly one caller gets the success.
		return model.Appointment{}, ErrAlreadyCanceled
	}

	client := e.lookupForDisplay(ctx, appt.ClientID)
	provider := e.lookupForDisplay(ctx, appt.ProviderID)
	e.notifier.AppointmentCanceled(ctx, appt, client, provider)
	return appt, nil
}

// lookupForDisplay resolves a user for notification content only. Failures
// degrade to an id-only identity rather than failing the committed write.
func (e *Engine) lookupForDisplay(ctx context.Context, id string) identity.User {
	u, err := e.directory.Lookup(ctx, id)
	if err != nil {
		e.logger.Warn("user lookup for notification failed", "user_id", id, "err", err)
		return identity.User{ID: id, Name: id}
	}
	return u
}
