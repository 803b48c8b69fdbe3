package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-push-notify/internal/domain"
)

// NotificationStore keeps delivery logs in memory.
type NotificationStore struct {
	mu   sync.RWMutex
	logs map[string]domain.Notification
	now  func() time.Time
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{logs: make(map[string]domain.Notification), now: time.Now}
}

func (s *NotificationStore) Create(_ context.Context, n *domain.Notification) error {
	if n.NotificationID == "" {
		return errors.New("notification ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	s.logs[n.NotificationID] = *n
	return nil
}

func (s *NotificationStore) Get(_ context.Context, id string) (*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.logs[id]
	if !ok {
		return nil, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	return &n, nil
}

func (s *NotificationStore) Finalize(_ context.Context, id string, sent, failed, total int) error {
	return s.update(id, func(n *domain.Notification) {
		at := s.now().UTC()
		n.Status = domain.FinalStatus(sent, failed)
		n.Sent, n.Failed, n.Total = sent, failed, total
		n.SentAt = &at
	})
}

func (s *NotificationStore) MarkDelivered(_ context.Context, id string) error {
	return s.update(id, func(n *domain.Notification) { n.DeliveredCount++ })
}

func (s *NotificationStore) MarkClicked(_ context.Context, id, action string) error {
	return s.update(id, func(n *domain.Notification) {
		at := s.now().UTC()
		n.ClickAction = action
		n.ClickedAt = &at
	})
}

func (s *NotificationStore) update(id string, fn func(*domain.Notification)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.logs[id]
	if !ok {
		return fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	fn(&n)
	s.logs[id] = n
	return nil
}
