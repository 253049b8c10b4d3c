package model

import "time"

// Appointment is one booked provider-hour. ScheduledAt is always truncated to
// an exact hour boundary in UTC. CanceledAt, once set, is never cleared.
type Appointment struct {
	ID          string
	ClientID    string
	ProviderID  string
	ScheduledAt time.Time
	CanceledAt  *time.Time
	CreatedAt   time.Time
}

// Active reports whether the appointment still occupies its slot.
func (a Appointment) Active() bool {
	return a.CanceledAt == nil
}

// AppointmentWithNames is the listing DTO: an appointment joined with the
// display names of both parties.
type AppointmentWithNames struct {
	Appointment
	ClientName   string
	ProviderName string
}

// Notification is an append-only in-app message for one user.
type Notification struct {
	ID          int64
	RecipientID string
	Content     string
	Read        bool
	CreatedAt   time.Time
}
