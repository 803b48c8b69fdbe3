package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-push-notify/internal/domain"
)

// Service manages an owner's subscriptions and preferences.
type Service interface {
	Register(ctx context.Context, ownerID string, req domain.RegisterSubscriptionRequest) (*domain.Subscription, error)
	Unsubscribe(ctx context.Context, ownerID, subscriptionID string) error
	DeleteAllForOwner(ctx context.Context, ownerID string) error
	GetPreferences(ctx context.Context, ownerID string) (*domain.Preferences, error)
	UpdatePreferences(ctx context.Context, ownerID string, req domain.UpdatePreferencesRequest) (*domain.Preferences, error)
}

type service struct {
	registry Registry
	prefs    PreferenceStore
	log      *slog.Logger
	now      func() time.Time
}

func NewService(registry Registry, prefs PreferenceStore, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{registry: registry, prefs: prefs, log: log, now: time.Now}
}

// Register upserts the destination and makes sure the owner has preferences,
// so a fresh subscriber is part of broadcast audiences.
func (s *service) Register(ctx context.Context, ownerID string, req domain.RegisterSubscriptionRequest) (*domain.Subscription, error) {
	ct, creds, err := req.Resolve()
	if err != nil {
		return nil, err
	}
	if err := creds.Validate(ct); err != nil {
		return nil, err
	}
	sub, err := s.registry.Register(ctx, ownerID, ct, creds)
	if err != nil {
		return nil, err
	}
	def := domain.DefaultPreferences(ownerID, s.now().UTC())
	if err := s.prefs.EnsureDefault(ctx, &def); err != nil {
		s.log.Warn("could not create default preferences", "owner_id", ownerID, "err", err)
	}
	return sub, nil
}

// Unsubscribe removes one of the owner's subscriptions. Unknown ids succeed.
func (s *service) Unsubscribe(ctx context.Context, ownerID, subscriptionID string) error {
	sub, err := s.registry.Get(ctx, subscriptionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if sub.OwnerID != ownerID {
		return fmt.Errorf("subscription belongs to another owner: %w", domain.ErrForbidden)
	}
	return s.registry.Delete(ctx, subscriptionID)
}

func (s *service) DeleteAllForOwner(ctx context.Context, ownerID string) error {
	return s.registry.DeleteAllForOwner(ctx, ownerID)
}

// GetPreferences falls back to the defaults for owners who never registered.
func (s *service) GetPreferences(ctx context.Context, ownerID string) (*domain.Preferences, error) {
	p, err := s.prefs.Get(ctx, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		def := domain.DefaultPreferences(ownerID, s.now().UTC())
		return &def, nil
	}
	return p, err
}

func (s *service) UpdatePreferences(ctx context.Context, ownerID string, req domain.UpdatePreferencesRequest) (*domain.Preferences, error) {
	p, err := s.GetPreferences(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if req.PushEnabled != nil {
		p.PushEnabled = *req.PushEnabled
	}
	if len(req.Categories) > 0 {
		if p.Categories == nil {
			p.Categories = make(map[string]bool, len(req.Categories))
		}
		for k, v := range req.Categories {
			p.Categories[k] = v
		}
	}
	p.UpdatedAt = s.now().UTC()
	if err := s.prefs.Put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
