package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-push-notify/internal/domain"
)

type PreferenceStore struct {
	mu    sync.RWMutex
	prefs map[string]domain.Preferences
}

func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{prefs: make(map[string]domain.Preferences)}
}

func (s *PreferenceStore) Get(_ context.Context, ownerID string) (*domain.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prefs[ownerID]
	if !ok {
		return nil, fmt.Errorf("preferences not found: %w", domain.ErrNotFound)
	}
	p.Categories = copyCategories(p.Categories)
	return &p, nil
}

func (s *PreferenceStore) Put(_ context.Context, p *domain.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *p
	stored.Categories = copyCategories(p.Categories)
	s.prefs[p.OwnerID] = stored
	return nil
}

func (s *PreferenceStore) EnsureDefault(_ context.Context, p *domain.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prefs[p.OwnerID]; !ok {
		stored := *p
		stored.Categories = copyCategories(p.Categories)
		s.prefs[p.OwnerID] = stored
	}
	return nil
}

// OwnersWithPushEnabled returns owner ids in sorted order.
func (s *PreferenceStore) OwnersWithPushEnabled(_ context.Context, category string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owners []string
	for id, p := range s.prefs {
		if p.Allows(category) {
			owners = append(owners, id)
		}
	}
	sort.Strings(owners)
	return owners, nil
}

func copyCategories(in map[string]bool) map[string]bool {
	if in == nil {
		return nil
	}
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
