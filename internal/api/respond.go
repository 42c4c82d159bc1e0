package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"flight_surety/internal/surety"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

// statusFor maps ledger errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, surety.ErrNotOperational):
		return http.StatusServiceUnavailable
	case errors.Is(err, surety.ErrUnauthorized), errors.Is(err, surety.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, surety.ErrFlightNotFound):
		return http.StatusNotFound
	case errors.Is(err, surety.ErrAlreadyRegistered),
		errors.Is(err, surety.ErrDuplicateVote),
		errors.Is(err, surety.ErrDuplicatePolicy),
		errors.Is(err, surety.ErrNotPending):
		return http.StatusConflict
	case errors.Is(err, surety.ErrInsufficientFunds), errors.Is(err, surety.ErrNothingToWithdraw):
		return http.StatusUnprocessableEntity
	case errors.Is(err, surety.ErrPaymentOutOfBounds),
		errors.Is(err, surety.ErrIndexMismatch),
		errors.Is(err, surety.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, surety.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
