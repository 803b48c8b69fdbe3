package http

import (
	"net/http"

	"github.com/go-push-notify/internal/application/notification"
	"github.com/go-push-notify/internal/application/push"
	"github.com/go-push-notify/internal/transport/http/handler"
	appmiddleware "github.com/go-push-notify/internal/transport/http/middleware"
)

// Deps holds the services and infrastructure the router wires into handlers.
type Deps struct {
	Verifier   appmiddleware.TokenVerifier
	Push       push.Service
	Dispatcher handler.Dispatcher
	Acks       notification.Service
	// Metrics serves the Prometheus exposition; nil disables /metrics.
	Metrics http.Handler
}
