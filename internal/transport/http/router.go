package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-push-notify/internal/config"
	"github.com/go-push-notify/internal/domain"
	jwtinfra "github.com/go-push-notify/internal/infrastructure/jwt"
	"github.com/go-push-notify/internal/transport/http/handler"
	appmiddleware "github.com/go-push-notify/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// DevUserID owns every request when the router runs without a verifier.
const DevUserID = "dev"

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.Verifier != nil {
		authMw = appmiddleware.Auth(deps.Verifier)
	} else {
		// Development without a public key: every caller is the dev admin.
		authMw = appmiddleware.Static(&jwtinfra.Claims{UserID: DevUserID, Role: domain.RoleAdmin})
	}

	// Receivers post acknowledgements without credentials.
	ackRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.AckRateLimit), cfg.AckRateBurst)

	healthH := handler.NewHealthHandler()
	subH := handler.NewSubscriptionHandler(deps.Push)
	prefH := handler.NewPreferenceHandler(deps.Push)
	dispatchH := handler.NewDispatchHandler(deps.Dispatcher)
	ackH := handler.NewAckHandler(deps.Acks)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/notifications/{id}", func(r chi.Router) {
		r.Use(ackRL.Limit)
		r.Post("/delivered", ackH.Delivered)
		r.Post("/clicked", ackH.Clicked)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/push/subscriptions", subH.Register)
			r.Delete("/push/subscriptions/{id}", subH.Unsubscribe)
			r.Get("/push/preferences", prefH.Get)
			r.Put("/push/preferences", prefH.Update)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Post("/push/send", dispatchH.Send)
				r.Post("/push/broadcast", dispatchH.Broadcast)
				r.Delete("/users/{id}/push", subH.DeleteAllForOwner)
			})
		})
	})

	return r
}
