package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-push-notify/internal/domain"
)

// DefaultClickAction is recorded when the receiver sends no action.
const DefaultClickAction = "click"

// Service records receiver-side acknowledgements against delivery logs.
type Service interface {
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	MarkDelivered(ctx context.Context, notificationID string) error
	MarkClicked(ctx context.Context, notificationID, action string) error
}

type logStore interface {
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	MarkDelivered(ctx context.Context, notificationID string) error
	MarkClicked(ctx context.Context, notificationID, action string) error
}

type service struct {
	repo logStore
}

func NewService(repo logStore) Service {
	return &service{repo: repo}
}

func (s *service) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	return s.repo.Get(ctx, notificationID)
}

func (s *service) MarkDelivered(ctx context.Context, notificationID string) error {
	if strings.TrimSpace(notificationID) == "" {
		return fmt.Errorf("notification id is required: %w", domain.ErrBadRequest)
	}
	return s.repo.MarkDelivered(ctx, notificationID)
}

func (s *service) MarkClicked(ctx context.Context, notificationID, action string) error {
	if strings.TrimSpace(notificationID) == "" {
		return fmt.Errorf("notification id is required: %w", domain.ErrBadRequest)
	}
	if action == "" {
		action = DefaultClickAction
	}
	return s.repo.MarkClicked(ctx, notificationID, action)
}
