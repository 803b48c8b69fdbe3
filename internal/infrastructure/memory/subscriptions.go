package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-push-notify/internal/domain"
)

// SubscriptionStore is an in-memory subscription registry.
// Suitable for development and tests.
type SubscriptionStore struct {
	mu      sync.RWMutex
	byID    map[string]domain.Subscription
	byOwner map[string]map[string]struct{}
	now     func() time.Time
}

func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{
		byID:    make(map[string]domain.Subscription),
		byOwner: make(map[string]map[string]struct{}),
		now:     time.Now,
	}
}

func (s *SubscriptionStore) Register(_ context.Context, ownerID string, ct domain.ChannelType, creds domain.Credentials) (*domain.Subscription, error) {
	dest := domain.DestinationKey(ct, creds)
	id := domain.UpsertKey(ownerID, ct, dest)

	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.byID[id]
	if !exists {
		sub = domain.Subscription{ID: id, OwnerID: ownerID, ChannelType: ct, DestKey: dest, CreatedAt: s.now().UTC()}
	}
	sub.Credentials = creds
	s.byID[id] = sub

	if s.byOwner[ownerID] == nil {
		s.byOwner[ownerID] = make(map[string]struct{})
	}
	s.byOwner[ownerID][id] = struct{}{}

	out := sub
	return &out, nil
}

func (s *SubscriptionStore) Get(_ context.Context, id string) (*domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("subscription not found: %w", domain.ErrNotFound)
	}
	return &sub, nil
}

// ListForOwners returns matches ordered by owner, then creation time.
func (s *SubscriptionStore) ListForOwners(_ context.Context, ownerIDs []string, filter domain.ListFilter) ([]domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Subscription
	for _, ownerID := range ownerIDs {
		start := len(out)
		for id := range s.byOwner[ownerID] {
			if sub := s.byID[id]; filter.Matches(sub) {
				out = append(out, sub)
			}
		}
		owned := out[start:]
		sort.Slice(owned, func(i, j int) bool {
			if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
				return owned[i].ID < owned[j].ID
			}
			return owned[i].CreatedAt.Before(owned[j].CreatedAt)
		})
	}
	return out, nil
}

func (s *SubscriptionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byID, id)
	delete(s.byOwner[sub.OwnerID], id)
	if len(s.byOwner[sub.OwnerID]) == 0 {
		delete(s.byOwner, sub.OwnerID)
	}
	return nil
}

func (s *SubscriptionStore) DeleteAllForOwner(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.byOwner[ownerID] {
		delete(s.byID, id)
	}
	delete(s.byOwner, ownerID)
	return nil
}

// Len reports the number of stored subscriptions.
func (s *SubscriptionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
