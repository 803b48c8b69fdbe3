// Package receiver models the client-side push handler: it renders incoming
// push payloads, routes notification clicks to application windows and reports
// delivery and clicks back to the server.
package receiver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/go-push-notify/internal/domain"
)

// Defaults rendered when a payload omits a field.
const (
	DefaultTitle = "Notification"
	DefaultBody  = "You have a new notification"

	ActionView    = "view"
	ActionDismiss = "dismiss"
	// actionLegacyClose is the dismiss id older payloads still carry.
	actionLegacyClose = "close"
	actionClick       = "click"

	MessageSkipWaiting = "SKIP_WAITING"
	MessageGetVersion  = "GET_VERSION"
)

// DefaultVibrate is applied to every rendered notification.
var DefaultVibrate = []int{200, 100, 200, 100, 200}

// DefaultPrecache is the application shell cached on install.
var DefaultPrecache = []string{
	"/",
	"/notifications",
	"/notifications/settings",
	"/bookings",
	"/consultants",
	"/profile",
	"/favicon.ico",
	"/manifest.json",
}

var ErrNotActive = errors.New("receiver is not active")

// Config wires a Receiver to its host.
type Config struct {
	Version    string
	Precache   []string
	Caches     CacheStorage
	Registry   Registration
	Clients    Clients
	Ack        Acknowledger
	AckTimeout time.Duration
	OnClose    func(data map[string]any)
	Logger     *slog.Logger
}

// Receiver is the process-scoped push handler.
type Receiver struct {
	cfg   Config
	life  lifecycle
	tasks sync.WaitGroup
	log   *slog.Logger
	now   func() time.Time
}

func New(cfg Config) *Receiver {
	if cfg.Version == "" {
		cfg.Version = "push-receiver-v1"
	}
	if cfg.Precache == nil {
		cfg.Precache = DefaultPrecache
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = 10 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Receiver{
		cfg:  cfg,
		life: lifecycle{state: StateInstalling},
		log:  log.With("component", "receiver", "version", cfg.Version),
		now:  time.Now,
	}
}

func (r *Receiver) State() State { return r.life.current() }

func (r *Receiver) Version() string { return r.cfg.Version }

// Wait blocks until every detached acknowledgement has finished.
func (r *Receiver) Wait() { r.tasks.Wait() }

// Install pre-caches the shell. Individual failures are logged and skipped;
// the receiver then moves straight to activating.
func (r *Receiver) Install(ctx context.Context) error {
	return r.life.fire(evInstalled, func() error {
		cache, err := r.cfg.Caches.Open(ctx, r.cfg.Version)
		if err != nil {
			r.log.Warn("could not open cache", "err", err)
			return nil
		}
		for _, u := range r.cfg.Precache {
			if err := cache.Add(ctx, u); err != nil {
				r.log.Warn("could not cache resource", "url", u, "err", err)
			}
		}
		return nil
	})
}

// Activate evicts caches of other versions and takes control of open windows.
func (r *Receiver) Activate(ctx context.Context) error {
	return r.life.fire(evActivated, func() error {
		names, err := r.cfg.Caches.Keys(ctx)
		if err != nil {
			r.log.Warn("could not list caches", "err", err)
		}
		for _, name := range names {
			if name == r.cfg.Version {
				continue
			}
			if err := r.cfg.Caches.Delete(ctx, name); err != nil {
				r.log.Warn("could not delete stale cache", "cache", name, "err", err)
				continue
			}
			r.log.Info("deleted stale cache", "cache", name)
		}
		return r.cfg.Clients.Claim(ctx)
	})
}

// HandlePush renders the payload. A missing or unparsable payload renders the
// fallback notification instead.
func (r *Receiver) HandlePush(ctx context.Context, payload []byte) error {
	if r.State() != StateActive {
		return ErrNotActive
	}

	title, opts, err := r.render(payload)
	if err != nil {
		r.log.Warn("rendering fallback notification", "err", err)
	}
	if err := r.cfg.Registry.ShowNotification(ctx, title, opts); err != nil {
		return fmt.Errorf("show notification: %w", err)
	}

	if id := notificationID(opts.Data); id != "" && r.cfg.Ack != nil {
		r.detach(ctx, "delivered", func(ctx context.Context) error {
			return r.cfg.Ack.Delivered(ctx, id)
		})
	}
	return nil
}

func (r *Receiver) render(payload []byte) (string, NotificationOptions, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return DefaultTitle, r.fallbackOptions(), &domain.PayloadError{Err: errors.New("empty payload")}
	}
	var p domain.WirePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return DefaultTitle, r.fallbackOptions(), &domain.PayloadError{Err: err}
	}

	data := make(map[string]any, len(p.Data)+1)
	for k, v := range p.Data {
		data[k] = v
	}
	if u, _ := data["url"].(string); u == "" {
		data["url"] = domain.DefaultURL
	}

	opts := NotificationOptions{
		Body:               orDefault(p.Body, DefaultBody),
		Icon:               orDefault(p.Icon, domain.DefaultIcon),
		Badge:              orDefault(p.Badge, domain.DefaultIcon),
		Tag:                orDefault(p.Tag, domain.DefaultTag),
		Data:               data,
		Actions:            p.Actions,
		RequireInteraction: p.RequireInteraction,
		Vibrate:            DefaultVibrate,
		Renotify:           true,
		Timestamp:          r.now(),
	}
	if len(opts.Actions) == 0 {
		opts.Actions = defaultActions()
	}
	return orDefault(p.Title, DefaultTitle), opts, nil
}

func (r *Receiver) fallbackOptions() NotificationOptions {
	return NotificationOptions{
		Body:      DefaultBody,
		Icon:      domain.DefaultIcon,
		Badge:     domain.DefaultIcon,
		Tag:       domain.DefaultTag,
		Data:      map[string]any{"url": domain.DefaultURL},
		Actions:   []domain.Action{{ID: ActionView, Label: "View"}},
		Vibrate:   DefaultVibrate,
		Renotify:  true,
		Timestamp: r.now(),
	}
}

func defaultActions() []domain.Action {
	return []domain.Action{
		{ID: ActionView, Label: "View", Icon: domain.DefaultIcon},
		{ID: ActionDismiss, Label: "Dismiss"},
	}
}

// HandleClick closes the notification, reports the click and brings the
// target page to the front.
func (r *Receiver) HandleClick(ctx context.Context, action string, n Shown) error {
	if r.State() != StateActive {
		return ErrNotActive
	}
	n.Close()
	if action == ActionDismiss || action == actionLegacyClose {
		return nil
	}

	data := n.Data()
	if id := notificationID(data); id != "" && r.cfg.Ack != nil {
		clicked := action
		if clicked == "" {
			clicked = actionClick
		}
		r.detach(ctx, "clicked", func(ctx context.Context) error {
			return r.cfg.Ack.Clicked(ctx, id, clicked)
		})
	}

	target, _ := data["url"].(string)
	if target == "" {
		target = domain.DefaultURL
	}
	routed, err := r.routeToWindow(ctx, target)
	if err != nil {
		r.log.Warn("window routing failed, opening new window", "url", target, "err", err)
	}
	if routed && err == nil {
		return nil
	}
	return r.cfg.Clients.OpenWindow(ctx, target)
}

// routeToWindow focuses a window already showing target, or focuses and
// navigates the first open window. It reports false when no window is open.
func (r *Receiver) routeToWindow(ctx context.Context, target string) (bool, error) {
	windows, err := r.cfg.Clients.MatchAll(ctx)
	if err != nil {
		return false, err
	}
	for _, w := range windows {
		same, err := samePath(w.URL(), target)
		if err != nil {
			return false, err
		}
		if same {
			return true, w.Focus(ctx)
		}
	}
	if len(windows) == 0 {
		return false, nil
	}
	if err := windows[0].Focus(ctx); err != nil {
		return true, err
	}
	return true, windows[0].Navigate(ctx, target)
}

// samePath resolves target against the window URL and compares paths.
func samePath(windowURL, target string) (bool, error) {
	base, err := url.Parse(windowURL)
	if err != nil {
		return false, err
	}
	ref, err := url.Parse(target)
	if err != nil {
		return false, err
	}
	return base.Path == base.ResolveReference(ref).Path, nil
}

// HandleClose forwards the notification data to the analytics hook, if any.
func (r *Receiver) HandleClose(n Shown) {
	if r.cfg.OnClose != nil {
		r.cfg.OnClose(n.Data())
	}
}

// VersionReply answers a GET_VERSION message.
type VersionReply struct {
	Version string `json:"version"`
}

// Message is a command posted to the receiver by an application page.
type Message struct {
	Type  string
	Reply chan<- VersionReply
}

// HandleMessage processes SKIP_WAITING and GET_VERSION. Unknown types are ignored.
func (r *Receiver) HandleMessage(ctx context.Context, msg Message) error {
	switch msg.Type {
	case MessageSkipWaiting:
		if r.State() == StateActivating {
			return r.Activate(ctx)
		}
		return nil
	case MessageGetVersion:
		if msg.Reply == nil {
			return errors.New("get version: no reply channel")
		}
		select {
		case msg.Reply <- VersionReply{Version: r.cfg.Version}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		r.log.Debug("ignoring message", "type", msg.Type)
		return nil
	}
}

// detach runs fn in the background with its own timeout. Errors are only logged.
func (r *Receiver) detach(ctx context.Context, name string, fn func(context.Context) error) {
	r.tasks.Add(1)
	go func() {
		defer r.tasks.Done()
		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.AckTimeout)
		defer cancel()
		if err := fn(tctx); err != nil {
			r.log.Warn("acknowledgement failed", "ack", name, "err", err)
		}
	}()
}

func notificationID(data map[string]any) string {
	switch v := data["notificationId"].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
