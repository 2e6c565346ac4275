package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gemforge/backend/internal/jobs"
	"github.com/gemforge/backend/internal/ledger"
	"github.com/gemforge/backend/internal/payments"
	"github.com/gemforge/backend/internal/services"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxBodyBytes    = 1 << 20
)

// StatusFor maps a service error to the HTTP status the API reports for it.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrImageNotFound),
		errors.Is(err, jobs.ErrJobNotFound),
		errors.Is(err, payments.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrAlreadyPublic),
		errors.Is(err, jobs.ErrJobOwnedByOther),
		errors.Is(err, ledger.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrAlreadyCheckedIn):
		return http.StatusTooManyRequests
	case errors.Is(err, jobs.ErrValidation),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, services.ErrDescriptionRequired),
		errors.Is(err, services.ErrSelfDemotion),
		errors.Is(err, payments.ErrUnknownPackage),
		errors.Is(err, payments.ErrInvalidSignature),
		errors.Is(err, payments.ErrAmountMismatch):
		return http.StatusBadRequest
	case errors.Is(err, payments.ErrPaymentsDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, payments.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// respondError writes err with its mapped status. Unexpected errors are logged first.
func respondError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		if log == nil {
			log = slog.Default()
		}
		log.Error(op, "error", err)
	}
	writeError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// Pagination reads limit and offset from the query string, clamped to sane bounds.
func Pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, maxPageSize)
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
