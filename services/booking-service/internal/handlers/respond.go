package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/matheuslc/horacerta/services/booking-service/internal/booking"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeEngineError maps the booking sentinels onto HTTP statuses. Anything
// unrecognized is an infrastructure failure: it gets logged with its detail
// and the response carries a generic 500.
func writeEngineError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrSelfBooking),
		errors.Is(err, booking.ErrInvalidProvider),
		errors.Is(err, booking.ErrPastDate),
		errors.Is(err, booking.ErrCancellationWindow):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, booking.ErrSlotTaken),
		errors.Is(err, booking.ErrAlreadyCanceled):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		logger.Error("booking store failure", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
