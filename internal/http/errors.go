package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"topicspin-api/internal/assign"
	"topicspin-api/internal/store"
	"topicspin-api/internal/topics"
)

const (
	CodeInvalidInput     = "invalid_input"
	CodeUnauthorized     = "unauthorized"
	CodeNotFound         = "not_found"
	CodeExhaustedPool    = "exhausted_pool"
	CodeAssignmentFailed = "assignment_failed"
	CodeUnsupported      = "unsupported_operation"
	CodeStoreUnavailable = "store_unavailable"
	CodeInternal         = "internal"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Error{Code: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps service errors to status codes. Messages are meant
// for the person at the form.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, topics.ErrExhaustedPool):
		WriteError(w, http.StatusConflict, CodeExhaustedPool,
			"All topics for this channel and category are taken in this room. Please pick another room or contact an administrator.")
	case errors.Is(err, assign.ErrAssignmentFailed):
		WriteError(w, http.StatusServiceUnavailable, CodeAssignmentFailed,
			"We could not save your topic. Please submit again.")
	case errors.Is(err, store.ErrUnsupported):
		WriteError(w, http.StatusNotImplemented, CodeUnsupported, err.Error())
	case errors.Is(err, store.ErrNotFound):
		WriteError(w, http.StatusNotFound, CodeNotFound, "assignment not found")
	case errors.Is(err, store.ErrUnavailable):
		WriteError(w, http.StatusServiceUnavailable, CodeStoreUnavailable, "storage is unavailable, try again shortly")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		WriteError(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}
