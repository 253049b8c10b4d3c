package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/matheuslc/horacerta/services/booking-service/internal/identity"
	"github.com/matheuslc/horacerta/services/booking-service/internal/schedule"
	"github.com/matheuslc/horacerta/services/booking-service/internal/storage"
)

type ScheduleHandler struct {
	directory identity.Directory
	repo      *storage.AppointmentRepository
	tmpl      schedule.Template
	logger    *slog.Logger
}

func NewScheduleHandler(directory identity.Directory, repo *storage.AppointmentRepository, tmpl schedule.Template, logger *slog.Logger) *ScheduleHandler {
	if len(tmpl) == 0 {
		tmpl = schedule.DefaultTemplate
	}
	return &ScheduleHandler{
		directory: directory,
		repo:      repo,
		tmpl:      tmpl,
		logger:    logger,
	}
}

type availabilitySlot struct {
	Time               string   `json:"time"`
	Instant            string   `json:"instant"`
	AvailableProviders []string `json:"available_providers"`
	AvailableClients   []string `json:"available_clients"`
}

// Availability returns the hour-by-hour grid for one calendar day:
// GET ?date=YYYY-MM-DD.
func (h *ScheduleHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "date required")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}

	providers, err := h.directory.ListProviders(r.Context())
	if err != nil {
		h.logger.Error("provider listing failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load providers")
		return
	}
	clients, err := h.directory.ListClients(r.Context())
	if err != nil {
		h.logger.Error("client listing failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load clients")
		return
	}
	appts, err := h.repo.ListByDay(r.Context(), date)
	if err != nil {
		h.logger.Error("appointment listing failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load appointments")
		return
	}

	slots := schedule.DayAvailability(date, h.tmpl, providers, clients, appts)
	resp := make([]availabilitySlot, 0, len(slots))
	for _, s := range slots {
		resp = append(resp, availabilitySlot{
			Time:               s.Label,
			Instant:            s.Instant.UTC().Format(time.RFC3339),
			AvailableProviders: s.AvailableProviders,
			AvailableClients:   s.AvailableClients,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type userItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Providers lists every bookable provider.
func (h *ScheduleHandler) Providers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	providers, err := h.directory.ListProviders(r.Context())
	if err != nil {
		h.logger.Error("provider listing failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load providers")
		return
	}
	items := make([]userItem, 0, len(providers))
	for _, p := range providers {
		items = append(items, userItem{ID: p.ID, Name: p.Name, Email: p.Email})
	}
	writeJSON(w, http.StatusOK, items)
}
