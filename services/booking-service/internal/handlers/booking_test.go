package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matheuslc/horacerta/services/booking-service/internal/booking"
	"github.com/matheuslc/horacerta/services/booking-service/internal/identity"
	"github.com/matheuslc/horacerta/services/booking-service/internal/model"
)

type stubDirectory struct {
	users map[string]identity.User
}

func (d *stubDirectory) Lookup(_ context.Context, id string) (identity.User, error) {
	u, ok := d.users[id]
	if !ok {
		return identity.User{}, identity.ErrUserNotFound
	}
	return u, nil
}

func (d *stubDirectory) ListProviders(context.Context) ([]identity.User, error) { return nil, nil }
func (d *stubDirectory) ListClients(context.Context) ([]identity.User, error)  { return nil, nil }

type stubStore struct {
	created  []model.Appointment
	conflict bool
	failErr  error
}

func (s *stubStore) Create(_ context.Context, clientID, providerID string, scheduledAt time.Time) (model.Appointment, error) {
	if s.failErr != nil {
		return model.Appointment{}, s.failErr
	}
	if s.conflict {
		return model.Appointment{}, booking.ErrSlotTaken
	}
	appt := model.Appointment{
		ID:          "appt-1",
		ClientID:    clientID,
		ProviderID:  providerID,
		ScheduledAt: scheduledAt,
		CreatedAt:   time.Now().UTC(),
	}
	s.created = append(s.created, appt)
	return appt, nil
}

func (s *stubStore) Get(_ context.Context, id string) (model.Appointment, error) {
	return model.Appointment{}, booking.ErrNotFound
}

func (s *stubStore) Cancel(context.Context, string, time.Time) (model.Appointment, bool, error) {
	return model.Appointment{}, false, nil
}

type noopNotifier struct{}

func (noopNotifier) BookingCreated(context.Context, model.Appointment, identity.User, identity.User) {
}
func (noopNotifier) AppointmentCanceled(context.Context, model.Appointment, identity.User, identity.User) {
}

func newBookingTestHandler(store *stubStore, now time.Time) *BookingHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := &stubDirectory{users: map[string]identity.User{
		"provider-1":  {ID: "provider-1", Name: "Carla", Capabilities: identity.CapProvider},
		"client-1":    {ID: "client-1", Name: "Ana"},
		"reception-1": {ID: "reception-1", Name: "Front Desk", Capabilities: identity.CapReceptionist},
	}}
	eng := booking.NewEngine(dir, store, noopNotifier{}, logger, booking.Config{Now: func() time.Time { return now }})
	return NewBookingHandler(eng, nil, logger)
}

func authedRequest(method, target, body, actor string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	return req.WithContext(context.WithValue(req.Context(), actorKey{}, actor))
}

func TestBookingCreate(t *testing.T) {
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	store := &stubStore{}
	h := newBookingTestHandler(store, now)

	req := authedRequest(http.MethodPost, "/api/v1/appointments",
		`{"provider_id":"provider-1","date":"2025-01-10T14:30:00Z"}`, "client-1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	var resp appointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ScheduledAt != "2025-01-10T14:00:00Z" {
		t.Fatalf("scheduled_at = %q, want the truncated hour", resp.ScheduledAt)
	}
	if len(store.created) != 1 || store.created[0].ClientID != "client-1" {
		t.Fatalf("store should hold one booking for the actor, got %+v", store.created)
	}
}

func TestBookingCreate_OnBehalf(t *testing.T) {
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	store := &stubStore{}
	h := newBookingTestHandler(store, now)

	req := authedRequest(http.MethodPost, "/api/v1/appointments",
		`{"provider_id":"provider-1","client_id":"client-1","date":"2025-01-10T14:00:00Z"}`, "reception-1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if len(store.created) != 1 || store.created[0].ClientID != "client-1" {
		t.Fatalf("booking should be recorded for the named client, got %+v", store.created)
	}
	var resp appointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ClientID != "client-1" {
		t.Fatalf("client_id = %q, want %q", resp.ClientID, "client-1")
	}
}

func TestBookingCreate_Errors(t *testing.T) {
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		body       string
		actor      string
		conflict   bool
		wantStatus int
	}{
		{"bad json", `{`, "client-1", false, http.StatusBadRequest},
		{"missing fields", `{"provider_id":""}`, "client-1", false, http.StatusBadRequest},
		{"bad date", `{"provider_id":"provider-1","date":"tomorrow"}`, "client-1", false, http.StatusBadRequest},
		{"unknown provider", `{"provider_id":"nobody","date":"2025-01-10T14:00:00Z"}`, "client-1", false, http.StatusUnprocessableEntity},
		{"self booking", `{"provider_id":"provider-1","date":"2025-01-10T14:00:00Z"}`, "provider-1", false, http.StatusUnprocessableEntity},
		{"past date", `{"provider_id":"provider-1","date":"2025-01-10T08:00:00Z"}`, "client-1", false, http.StatusUnprocessableEntity},
		{"slot taken", `{"provider_id":"provider-1","date":"2025-01-10T14:00:00Z"}`, "client-1", true, http.StatusConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newBookingTestHandler(&stubStore{conflict: tc.conflict}, now)
			req := authedRequest(http.MethodPost, "/api/v1/appointments", tc.body, tc.actor)
			rec := httptest.NewRecorder()
			h.Create(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %q)", rec.Code, tc.wantStatus, rec.Body.String())
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Error == "" {
				t.Fatalf("error body should be {\"error\": ...}, got %q", rec.Body.String())
			}
		})
	}
}

func TestBookingCreate_StoreFailureIsLogged(t *testing.T) {
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	store := &stubStore{failErr: errors.New("connection reset by peer")}
	dir := &stubDirectory{users: map[string]identity.User{
		"provider-1": {ID: "provider-1", Name: "Carla", Capabilities: identity.CapProvider},
	}}
	eng := booking.NewEngine(dir, store, noopNotifier{}, logger, booking.Config{Now: func() time.Time { return now }})
	h := NewBookingHandler(eng, nil, logger)

	req := authedRequest(http.MethodPost, "/api/v1/appointments",
		`{"provider_id":"provider-1","date":"2025-01-10T14:00:00Z"}`, "client-1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Fatalf("response leaks the failure detail: %q", rec.Body.String())
	}
	if !strings.Contains(logs.String(), "connection reset by peer") {
		t.Fatalf("store failure should be logged, got %q", logs.String())
	}
}

func TestBookingCancel_NotFound(t *testing.T) {
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	h := newBookingTestHandler(&stubStore{}, now)

	req := authedRequest(http.MethodPost, "/api/v1/appointments/cancel",
		`{"appointment_id":"ghost"}`, "client-1")
	rec := httptest.NewRecorder()
	h.Cancel(rec, req)

	// The test actor lacks cancel capabilities; authorization is checked first.
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
}
