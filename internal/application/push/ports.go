package push

import (
	"context"
	"time"

	"github.com/go-push-notify/internal/domain"
)

// Channel sends one message to a set of subscriptions of its own type and
// reports one result per subscription.
type Channel interface {
	Type() domain.ChannelType
	Send(ctx context.Context, subs []domain.Subscription, msg domain.Message) []domain.DeliveryResult
}

// Registry stores subscriptions.
type Registry interface {
	Register(ctx context.Context, ownerID string, ct domain.ChannelType, creds domain.Credentials) (*domain.Subscription, error)
	Get(ctx context.Context, id string) (*domain.Subscription, error)
	ListForOwners(ctx context.Context, ownerIDs []string, filter domain.ListFilter) ([]domain.Subscription, error)
	Delete(ctx context.Context, id string) error
	DeleteAllForOwner(ctx context.Context, ownerID string) error
}

// PreferenceStore stores per-owner opt-in flags and resolves broadcast audiences.
type PreferenceStore interface {
	Get(ctx context.Context, ownerID string) (*domain.Preferences, error)
	Put(ctx context.Context, p *domain.Preferences) error
	EnsureDefault(ctx context.Context, p *domain.Preferences) error
	OwnersWithPushEnabled(ctx context.Context, category string) ([]string, error)
}

// NotificationLog records one entry per dispatch cycle.
type NotificationLog interface {
	Create(ctx context.Context, n *domain.Notification) error
	Finalize(ctx context.Context, notificationID string, sent, failed, total int) error
}

// Observer receives dispatch telemetry.
type Observer interface {
	RecordSend(channel domain.ChannelType, duration time.Duration, results []domain.DeliveryResult)
	RecordPrune(err error)
	RecordDispatch(kind string)
}

type nopObserver struct{}

func (nopObserver) RecordSend(domain.ChannelType, time.Duration, []domain.DeliveryResult) {}
func (nopObserver) RecordPrune(error)                                                     {}
func (nopObserver) RecordDispatch(string)                                                 {}
