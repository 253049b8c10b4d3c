package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/matheuslc/horacerta/services/booking-service/internal/identity"
	"github.com/matheuslc/horacerta/services/booking-service/internal/model"
	"github.com/matheuslc/horacerta/services/booking-service/internal/outbox"
)

// TopicAppointmentCanceled carries cancellation notices to the delivery
// worker. At-least-once: consumers dedupe on the event id header and the
// appointment id in the payload.
const TopicAppointmentCanceled = "booking.appointment.canceled.v1"

type NotificationStore interface {
	Insert(ctx context.Context, n model.Notification) error
}

type NoticeQueue interface {
	Enqueue(ctx context.Context, evt outbox.Event) error
}

// CancellationNotice is the snapshot enqueued for out-of-band delivery. It
// carries display identities so the delivery worker never has to reach back
// into the directory.
type CancellationNotice struct {
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

// Dispatcher fans out post-write side effects. Both entry points are
// fire-and-forget from the engine's point of view: failures are logged and
// never surface into the triggering request.
type Dispatcher struct {
	notifications NotificationStore
	queue         NoticeQueue
	logger        *slog.Logger
}

func NewDispatcher(notifications NotificationStore, queue NoticeQueue, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		queue:         queue,
		logger:        logger,
	}
}

// BookingCreated persists the provider's in-app notification. This is a
// cheap local write performed before the booking response is returned.
func (d *Dispatcher) BookingCreated(ctx context.Context, appt model.Appointment, client, _ identity.User) {
	n := model.Notification{
		RecipientID: appt.ProviderID,
		Content:     fmt.Sprintf("New appointment with %s on %s", client.Name, HumanTime(appt.ScheduledAt)),
	}
	if err := d.notifications.Insert(ctx, n); err != nil {
		d.logger.Error("booking notification write failed",
			"appointment_id", appt.ID,
			"recipient_id", appt.ProviderID,
			"err", err,
		)
	}
}

// AppointmentCanceled enqueues the asynchronous cancellation notice. The
// cancellation itself has already committed; an enqueue failure loses only
// the notice and is reported here, not to the caller.
func (d *Dispatcher) AppointmentCanceled(ctx context.Context, appt model.Appointment, client, provider identity.User) {
	canceledAt := ""
	if appt.CanceledAt != nil {
		canceledAt = appt.CanceledAt.UTC().Format(time.RFC3339)
	}
	payload, err := json.Marshal(CancellationNotice{
		AppointmentID: appt.ID,
		ClientID:      appt.ClientID,
		ProviderID:    appt.ProviderID,
		ScheduledAt:   appt.ScheduledAt.UTC().Format(time.RFC3339),
		CanceledAt:    canceledAt,
		ClientName:    client.Name,
		ClientEmail:   client.Email,
		ProviderName:  provider.Name,
		ProviderEmail: provider.Email,
	})
	if err != nil {
		d.logger.Error("cancellation notice marshal failed", "appointment_id", appt.ID, "err", err)
		return
	}

	err = d.queue.Enqueue(ctx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     TopicAppointmentCanceled,
		Payload:       payload,
	})
	if err != nil {
		d.logger.Error("cancellation notice enqueue failed", "appointment_id", appt.ID, "err", err)
	}
}
