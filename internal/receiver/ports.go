package receiver

import (
	"context"
	"time"

	"github.com/go-push-notify/internal/domain"
)

// Cache is one named resource cache.
type Cache interface {
	Add(ctx context.Context, url string) error
}

// CacheStorage holds the named caches of the host.
type CacheStorage interface {
	Open(ctx context.Context, name string) (Cache, error)
	Keys(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// NotificationOptions is everything rendered besides the title.
type NotificationOptions struct {
	Body               string
	Icon               string
	Badge              string
	Tag                string
	Data               map[string]any
	Actions            []domain.Action
	RequireInteraction bool
	Vibrate            []int
	Renotify           bool
	Timestamp          time.Time
}

// Registration renders notifications.
type Registration interface {
	ShowNotification(ctx context.Context, title string, opts NotificationOptions) error
}

// WindowClient is an open application window.
type WindowClient interface {
	URL() string
	Focus(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
}

// Clients gives access to the application's windows.
type Clients interface {
	MatchAll(ctx context.Context) ([]WindowClient, error)
	OpenWindow(ctx context.Context, url string) error
	Claim(ctx context.Context) error
}

// Shown is a rendered notification handed back on click or close.
type Shown interface {
	Close()
	Data() map[string]any
}

// Acknowledger reports receiver-side events back to the application.
type Acknowledger interface {
	Delivered(ctx context.Context, notificationID string) error
	Clicked(ctx context.Context, notificationID, action string) error
}
