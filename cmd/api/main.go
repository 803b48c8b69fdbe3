package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-push-notify/internal/application/notification"
	"github.com/go-push-notify/internal/application/push"
	"github.com/go-push-notify/internal/config"
	"github.com/go-push-notify/internal/domain"
	"github.com/go-push-notify/internal/infrastructure/dynamo"
	"github.com/go-push-notify/internal/infrastructure/fcm"
	jwtinfra "github.com/go-push-notify/internal/infrastructure/jwt"
	"github.com/go-push-notify/internal/infrastructure/memory"
	"github.com/go-push-notify/internal/infrastructure/metrics"
	"github.com/go-push-notify/internal/infrastructure/oauth"
	"github.com/go-push-notify/internal/infrastructure/webpush"
	transporthttp "github.com/go-push-notify/internal/transport/http"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// deliveryLog is written by the coordinator and acknowledged by receivers.
type deliveryLog interface {
	push.NotificationLog
	Get(ctx context.Context, id string) (*domain.Notification, error)
	MarkDelivered(ctx context.Context, id string) error
	MarkClicked(ctx context.Context, id, action string) error
}

// stores groups the persistence ports behind one backend choice.
type stores struct {
	registry push.Registry
	prefs    push.PreferenceStore
	logs     deliveryLog
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx := context.Background()
	st, err := newStores(ctx, cfg)
	if err != nil {
		logger.Error("storage unavailable", "backend", cfg.Storage, "err", err)
		os.Exit(1)
	}

	// Without a verifier every request acts as the dev admin; dev only.
	var verifier *jwtinfra.Verifier
	if v, err := jwtinfra.LoadVerifier(cfg.JWTPublicKeyPath); err == nil {
		verifier = v
	} else if cfg.IsProduction() {
		logger.Error("JWT verifier not available", "err", err)
		os.Exit(1)
	} else {
		logger.Warn("JWT verifier not available, requests run as the dev admin", "err", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	observer, err := metrics.NewPrometheusObserver("push", reg)
	if err != nil {
		logger.Error("metrics registration failed", "err", err)
		os.Exit(1)
	}

	coordinator := push.NewCoordinator(push.CoordinatorDeps{
		Registry:       st.registry,
		Audience:       st.prefs,
		Channels:       newChannels(cfg, logger),
		Logs:           st.logs,
		Observer:       observer,
		Logger:         logger,
		MaxConcurrency: cfg.Push.MaxConcurrency,
		DeleteRetries:  cfg.Push.DeleteRetries,
	})

	deps := &transporthttp.Deps{
		Push:       push.NewService(st.registry, st.prefs, logger),
		Dispatcher: coordinator,
		Acks:       notification.NewService(st.logs),
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	if verifier != nil {
		deps.Verifier = verifier
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Storage {
	case "memory":
		return &stores{
			registry: memory.NewSubscriptionStore(),
			prefs:    memory.NewPreferenceStore(),
			logs:     memory.NewNotificationStore(),
		}, nil
	case "dynamo":
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		// Bootstrap DynamoDB tables (creates them if they don't exist).
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return &stores{
			registry: dynamo.NewSubscriptionRepo(client, cfg.DynamoTables.Subscriptions),
			prefs:    dynamo.NewPreferenceRepo(client, cfg.DynamoTables.Preferences),
			logs:     dynamo.NewNotificationRepo(client, cfg.DynamoTables.Notifications),
		}, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
}

// newChannels builds both senders. A channel whose credentials are missing is
// still registered; its sends fail per destination with CONFIG_ERROR.
func newChannels(cfg *config.Config, logger *slog.Logger) []push.Channel {
	identity, identityErr := oauth.LoadIdentity(cfg.FCM)
	if identityErr != nil {
		logger.Warn("native channel has no service account", "err", identityErr)
	}
	var tokens oauth.TokenSource = oauth.NewProvider(cfg.FCM.Timeout)
	if cfg.FCM.TokenCache {
		tokens = oauth.NewCachingProvider(tokens)
	}
	if cfg.VAPID.PublicKey == "" || cfg.VAPID.PrivateKey == "" {
		logger.Warn("browser channel has no VAPID keys")
	}

	// One pool of slots bounds provider calls however many dispatches run.
	inFlight := semaphore.NewWeighted(int64(cfg.Push.MaxConcurrency))

	native := fcm.NewSender(fcm.Config{
		BaseURL:        cfg.FCM.BaseURL,
		Identity:       identity,
		IdentityErr:    identityErr,
		Tokens:         tokens,
		Timeout:        cfg.FCM.Timeout,
		MaxConcurrency: cfg.Push.MaxConcurrency,
		Limiter:        rate.NewLimiter(rate.Limit(cfg.Push.RateLimit), cfg.Push.RateBurst),
		InFlight:       inFlight,
		Logger:         logger.With("channel", "native"),
	})
	browser := webpush.NewSender(webpush.Config{
		PublicKey:      cfg.VAPID.PublicKey,
		PrivateKey:     cfg.VAPID.PrivateKey,
		Subject:        cfg.VAPID.Subject,
		TTL:            cfg.VAPID.TTL,
		Timeout:        cfg.VAPID.Timeout,
		MaxConcurrency: cfg.Push.MaxConcurrency,
		Limiter:        rate.NewLimiter(rate.Limit(cfg.Push.RateLimit), cfg.Push.RateBurst),
		InFlight:       inFlight,
		Logger:         logger.With("channel", "browser"),
	})
	return []push.Channel{native, browser}
}
