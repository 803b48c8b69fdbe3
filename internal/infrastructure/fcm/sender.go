package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-push-notify/internal/domain"
	"github.com/go-push-notify/internal/infrastructure/oauth"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	fcmErrorType = "type.googleapis.com/google.firebase.fcm.v1.FcmError"
	maxErrorBody = 8 << 10
)

// Config wires the native channel.
type Config struct {
	BaseURL        string
	Identity       oauth.SigningIdentity
	IdentityErr    error // set when the service account could not be loaded
	Tokens         oauth.TokenSource
	Timeout        time.Duration
	MaxConcurrency int
	Limiter        *rate.Limiter
	// InFlight caps provider calls across every channel sharing it.
	InFlight *semaphore.Weighted
	Logger   *slog.Logger
}

// Sender delivers to installed-app device tokens over the FCM HTTP v1 API.
type Sender struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

func NewSender(cfg Config) *Sender {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 16
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Sender{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With("channel", domain.ChannelNative),
	}
}

func (s *Sender) Type() domain.ChannelType { return domain.ChannelNative }

// Send delivers msg to every subscription and returns one result per input.
// The access token is minted once per call; if that fails, every destination
// is reported as a transient failure and nothing is sent.
func (s *Sender) Send(ctx context.Context, subs []domain.Subscription, msg domain.Message) []domain.DeliveryResult {
	if len(subs) == 0 {
		return nil
	}
	results := make([]domain.DeliveryResult, len(subs))

	var sendable []int
	for i, sub := range subs {
		if sub.Credentials.Platform == domain.PlatformIOS {
			results[i] = domain.ResultFor(sub, &domain.DispatchError{Code: domain.CodeUnsupportedPlatform})
			continue
		}
		sendable = append(sendable, i)
	}
	if len(sendable) == 0 {
		return results
	}

	token, err := s.accessToken(ctx)
	if err != nil {
		s.log.Warn("access token unavailable, skipping native sends", "count", len(sendable), "err", err)
		for _, i := range sendable {
			results[i] = domain.ResultFor(subs[i], err)
		}
		return results
	}

	body := buildEnvelopeTemplate(msg)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)
	for _, i := range sendable {
		g.Go(func() error {
			results[i] = s.sendOne(gctx, token, subs[i], body)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Sender) accessToken(ctx context.Context) (*oauth.Token, error) {
	if s.cfg.IdentityErr != nil {
		return nil, s.cfg.IdentityErr
	}
	if s.cfg.Tokens == nil {
		return nil, &domain.ConfigurationError{Field: "token_source"}
	}
	return s.cfg.Tokens.AccessToken(ctx, s.cfg.Identity)
}

func (s *Sender) sendOne(ctx context.Context, token *oauth.Token, sub domain.Subscription, tmpl envelopeMessage) domain.DeliveryResult {
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
	tmpl.Token = sub.Credentials.Token
	payload, err := json.Marshal(envelope{Message: tmpl})
	if err != nil {
		return domain.ResultFor(sub, err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.Identity.ProjectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return domain.ResultFor(sub, err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.ResultFor(sub, err)
	}
	defer resp.Body.Close()

	outcome := domain.ClassifyStatus(resp.StatusCode)
	if outcome == domain.OutcomeDelivered {
		var ok struct {
			Name string `json:"name"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&ok)
		r := domain.ResultFor(sub, nil)
		r.StatusCode = resp.StatusCode
		r.MessageID = ok.Name
		return r
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode == http.StatusUnauthorized {
		if inv, ok := s.cfg.Tokens.(interface{ Invalidate(oauth.SigningIdentity) }); ok {
			inv.Invalidate(s.cfg.Identity)
		}
	}
	return domain.ResultFor(sub, &domain.DispatchError{
		Permanent:  outcome == domain.OutcomePermanentFailure,
		StatusCode: resp.StatusCode,
		Code:       errorCode(raw),
		Err:        fmt.Errorf("fcm: %s", strings.TrimSpace(string(raw))),
	})
}

// errorCode pulls the FcmError code (e.g. UNREGISTERED) out of an error body.
func errorCode(raw []byte) string {
	var body struct {
		Error struct {
			Status  string `json:"status"`
			Details []struct {
				Type      string `json:"@type"`
				ErrorCode string `json:"errorCode"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return domain.CodeUnknown
	}
	for _, d := range body.Error.Details {
		if d.Type == fcmErrorType && d.ErrorCode != "" {
			return d.ErrorCode
		}
	}
	if body.Error.Status != "" {
		return body.Error.Status
	}
	return domain.CodeUnknown
}
