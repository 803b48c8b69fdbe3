package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-push-notify/internal/application/notification"
	"github.com/go-push-notify/internal/domain"
)

// AckHandler receives delivered/clicked acknowledgements from receivers.
// The endpoints are unauthenticated; the notification id is the only input.
type AckHandler struct {
	svc notification.Service
}

func NewAckHandler(svc notification.Service) *AckHandler { return &AckHandler{svc: svc} }

func (h *AckHandler) Delivered(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkDelivered(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AckHandler) Clicked(w http.ResponseWriter, r *http.Request) {
	var req domain.ClickRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if err := h.svc.MarkClicked(r.Context(), chi.URLParam(r, "id"), req.Action); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
