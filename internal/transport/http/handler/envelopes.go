package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-push-notify/internal/domain"
	"github.com/go-push-notify/internal/pkg/validate"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// SubscriptionEnvelope is returned after a registration.
type SubscriptionEnvelope struct {
	ID          string             `json:"id"`
	ChannelType domain.ChannelType `json:"channel_type"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}

// httpError maps domain errors to status codes. Storage and configuration
// details never reach the client.
func httpError(w http.ResponseWriter, err error) {
	var (
		regErr *domain.RegistryError
		cfgErr *domain.ConfigurationError
	)
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &regErr):
		slog.Error("registry unavailable", "op", regErr.Op, "err", regErr.Err)
		writeError(w, http.StatusServiceUnavailable, "subscription store unavailable")
	case errors.As(err, &cfgErr):
		slog.Error("push misconfigured", "field", cfgErr.Field, "err", err)
		writeError(w, http.StatusInternalServerError, "push delivery is not configured")
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads the body into dst and runs struct validation. It writes
// the error response itself and reports whether the handler may continue.
// An empty body is accepted when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return false
		}
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}
