package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/matheuslc/horacerta/services/booking-service/internal/booking"
	"github.com/matheuslc/horacerta/services/booking-service/internal/model"
	"github.com/matheuslc/horacerta/services/booking-service/internal/storage"
)

type BookingHandler struct {
	engine *booking.Engine
	repo   *storage.AppointmentRepository
	logger *slog.Logger
}

func NewBookingHandler(engine *booking.Engine, repo *storage.AppointmentRepository, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		engine: engine,
		repo:   repo,
		logger: logger,
	}
}

type createAppointmentRequest struct {
	ProviderID string `json:"provider_id"`
	// ClientID books on behalf of another user; empty means the actor
	// books for themselves.
	ClientID string `json:"client_id"`
	Date     string `json:"date"`
}

type appointmentResponse struct {
	AppointmentID string `json:"appointment_id"`
	ClientID      string `json:"client_id"`
	ProviderID    string `json:"provider_id"`
	ScheduledAt   string `json:"scheduled_at"`
	CanceledAt    string `json:"canceled_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type cancelAppointmentRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type listAppointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	ClientID      string `json:"client_id"`
	ClientName    string `json:"client_name"`
	ProviderID    string `json:"provider_id"`
	ProviderName  string `json:"provider_name"`
	ScheduledAt   string `json:"scheduled_at"`
	CanceledAt    string `json:"canceled_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toAppointmentResponse(appt model.Appointment) appointmentResponse {
	resp := appointmentResponse{
		AppointmentID: appt.ID,
		ClientID:      appt.ClientID,
		ProviderID:    appt.ProviderID,
		ScheduledAt:   appt.ScheduledAt.UTC().Format(time.RFC3339),
		CreatedAt:     appt.CreatedAt.UTC().Format(time.RFC3339),
	}
	if appt.CanceledAt != nil {
		resp.CanceledAt = appt.CanceledAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// Appointments routes the collection endpoint: GET lists, POST books.
func (h *BookingHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.List(w, r)
	case http.MethodPost:
		h.Create(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// Create books an hour slot. The client defaults to the authenticated user;
// front-desk staff pass client_id to book on someone's behalf.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.ProviderID = strings.TrimSpace(req.ProviderID)
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.Date = strings.TrimSpace(req.Date)
	if req.ProviderID == "" || req.Date == "" {
		writeError(w, http.StatusBadRequest, "provider_id and date required")
		return
	}

	requestedAt, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want RFC3339")
		return
	}

	clientID := req.ClientID
	if clientID == "" {
		clientID = ActorID(r.Context())
	}

	appt, err := h.engine.CreateAppointment(r.Context(), clientID, req.ProviderID, requestedAt)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

// Cancel marks an appointment canceled on behalf of the authenticated user.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req cancelAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		writeError(w, http.StatusBadRequest, "appointment_id required")
		return
	}

	appt, err := h.engine.CancelAppointment(r.Context(), req.AppointmentID, ActorID(r.Context()))
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

// List returns appointments joined with party names, optionally filtered to
// one calendar day via ?date=YYYY-MM-DD. Canceled appointments are included;
// the caller distinguishes them by canceled_at.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var day *time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
		day = &parsed
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	appts, err := h.repo.ListWithNames(r.Context(), day, limit)
	if err != nil {
		h.logger.Error("appointment list failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}

	items := make([]listAppointmentItem, 0, len(appts))
	for _, appt := range appts {
		item := listAppointmentItem{
			AppointmentID: appt.ID,
			ClientID:      appt.ClientID,
			ClientName:    appt.ClientName,
			ProviderID:    appt.ProviderID,
			ProviderName:  appt.ProviderName,
			ScheduledAt:   appt.ScheduledAt.UTC().Format(time.RFC3339),
			CreatedAt:     appt.CreatedAt.UTC().Format(time.RFC3339),
		}
		if appt.CanceledAt != nil {
			item.CanceledAt = appt.CanceledAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}
