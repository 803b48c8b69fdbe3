package handler

import (
	"context"
	"net/http"

	"github.com/go-push-notify/internal/domain"
)

// Dispatcher is the fan-out surface the admin endpoints drive.
type Dispatcher interface {
	Dispatch(ctx context.Context, ownerID string, msg domain.Message) (domain.Summary, error)
	Broadcast(ctx context.Context, sel domain.AudienceSelector, msg domain.Message) (domain.Summary, error)
}

// DispatchHandler sends notifications on behalf of trusted callers.
type DispatchHandler struct {
	dispatcher Dispatcher
}

func NewDispatchHandler(d Dispatcher) *DispatchHandler { return &DispatchHandler{dispatcher: d} }

func (h *DispatchHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.SendRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	sum, err := h.dispatcher.Dispatch(r.Context(), req.UserID, req.Message)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *DispatchHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req domain.BroadcastRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	sum, err := h.dispatcher.Broadcast(r.Context(), req.Selector(), req.Message)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
