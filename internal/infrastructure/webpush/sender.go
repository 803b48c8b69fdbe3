package webpush

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	wp "github.com/SherClockHolmes/webpush-go"
	"github.com/go-push-notify/internal/domain"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config wires the browser channel. PublicKey and PrivateKey are the
// base64url VAPID pair; Subject is a mailto: or https: contact.
type Config struct {
	PublicKey      string
	PrivateKey     string
	Subject        string
	TTL            int
	Timeout        time.Duration
	MaxConcurrency int
	Limiter        *rate.Limiter
	// InFlight caps provider calls across every channel sharing it.
	InFlight *semaphore.Weighted
	Logger   *slog.Logger
}

// Sender delivers encrypted Web Push messages to browser endpoints.
type Sender struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

func NewSender(cfg Config) *Sender {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 16
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 86400
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Sender{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With("channel", domain.ChannelBrowser),
	}
}

func (s *Sender) Type() domain.ChannelType { return domain.ChannelBrowser }

func (s *Sender) configured() error {
	switch {
	case s.cfg.PublicKey == "":
		return &domain.ConfigurationError{Field: "vapid_public_key"}
	case s.cfg.PrivateKey == "":
		return &domain.ConfigurationError{Field: "vapid_private_key"}
	}
	return nil
}

// Send encrypts msg once per subscription and posts it to each endpoint.
func (s *Sender) Send(ctx context.Context, subs []domain.Subscription, msg domain.Message) []domain.DeliveryResult {
	if len(subs) == 0 {
		return nil
	}
	results := make([]domain.DeliveryResult, len(subs))

	if err := s.configured(); err != nil {
		s.log.Warn("vapid keys missing, skipping browser sends", "count", len(subs))
		for i, sub := range subs {
			results[i] = domain.ResultFor(sub, err)
		}
		return results
	}

	payload, err := json.Marshal(msg.Payload())
	if err != nil {
		for i, sub := range subs {
			results[i] = domain.ResultFor(sub, err)
		}
		return results
	}

	urgency := wp.UrgencyNormal
	if msg.Priority == domain.PriorityHigh {
		urgency = wp.UrgencyHigh
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)
	for i := range subs {
		g.Go(func() error {
			results[i] = s.sendOne(gctx, subs[i], payload, urgency)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Sender) sendOne(ctx context.Context, sub domain.Subscription, payload []byte, urgency wp.Urgency) domain.DeliveryResult {
	if s.cfg.Limiter != nil {
		if err := s.cfg.Limiter.Wait(ctx); err != nil {
			return domain.ResultFor(sub, err)
		}
	}
	if s.cfg.InFlight != nil {
		if err := s.cfg.InFlight.Acquire(ctx, 1); err != nil {
			return domain.ResultFor(sub, err)
		}
		defer s.cfg.InFlight.Release(1)
	}
	resp, err := wp.SendNotificationWithContext(ctx, payload, &wp.Subscription{
		Endpoint: sub.Credentials.Endpoint,
		Keys: wp.Keys{
			Auth:   sub.Credentials.Auth,
			P256dh: sub.Credentials.P256dh,
		},
	}, &wp.Options{
		HTTPClient:      s.httpClient,
		Subscriber:      s.cfg.Subject,
		TTL:             s.cfg.TTL,
		Urgency:         urgency,
		VAPIDPublicKey:  s.cfg.PublicKey,
		VAPIDPrivateKey: s.cfg.PrivateKey,
	})
	if err != nil {
		return domain.ResultFor(sub, err)
	}
	defer resp.Body.Close()

	outcome := domain.ClassifyStatus(resp.StatusCode)
	if outcome == domain.OutcomeDelivered {
		_, _ = io.Copy(io.Discard, resp.Body)
		r := domain.ResultFor(sub, nil)
		r.StatusCode = resp.StatusCode
		r.MessageID = resp.Header.Get("Location")
		return r
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return domain.ResultFor(sub, &domain.DispatchError{
		Permanent:  outcome == domain.OutcomePermanentFailure,
		StatusCode: resp.StatusCode,
		Code:       statusCode(resp.StatusCode),
		Err:        fmt.Errorf("push service: %s", strings.TrimSpace(string(raw))),
	})
}

// statusCode names the push-service rejection the way providers document it.
func statusCode(status int) string {
	switch status {
	case http.StatusNotFound, http.StatusGone:
		return "EXPIRED_SUBSCRIPTION"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.CodeAuthFailed
	default:
		return domain.CodeUnknown
	}
}
