package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-push-notify/internal/application/push"
	"github.com/go-push-notify/internal/domain"
	"github.com/go-push-notify/internal/transport/http/middleware"
)

// SubscriptionHandler handles registration and removal of push destinations.
type SubscriptionHandler struct {
	svc push.Service
}

func NewSubscriptionHandler(svc push.Service) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc}
}

func (h *SubscriptionHandler) Register(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.RegisterSubscriptionRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	sub, err := h.svc.Register(r.Context(), claims.UserID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SubscriptionEnvelope{ID: sub.ID, ChannelType: sub.ChannelType})
}

func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Unsubscribe(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "subscription removed"})
}

// DeleteAllForOwner is the account-deletion hook.
func (h *SubscriptionHandler) DeleteAllForOwner(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAllForOwner(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "subscriptions removed"})
}
