package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/matheuslc/horacerta/services/booking-service/internal/storage"
)

type NotificationHandler struct {
	repo   *storage.NotificationRepository
	logger *slog.Logger
}

func NewNotificationHandler(repo *storage.NotificationRepository, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{repo: repo, logger: logger}
}

type notificationItem struct {
	ID        int64  `json:"id"`
	Content   string `json:"content"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

type markReadRequest struct {
	ID int64 `json:"id"`
}

// List returns the authenticated user's notifications, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	rows, err := h.repo.ListByRecipient(r.Context(), ActorID(r.Context()), limit)
	if err != nil {
		h.logger.Error("notification list failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}

	items := make([]notificationItem, 0, len(rows))
	for _, n := range rows {
		items = append(items, notificationItem{
			ID:        n.ID,
			Content:   n.Content,
			Read:      n.Read,
			CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// MarkRead flags one of the authenticated user's notifications as read.
// Another user's notification id behaves as not found.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.ID <= 0 {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}

	ok, err := h.repo.MarkRead(r.Context(), req.ID, ActorID(r.Context()))
	if err != nil {
		h.logger.Error("notification mark-read failed", "id", req.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to update notification")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
