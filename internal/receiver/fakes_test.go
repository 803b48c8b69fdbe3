package receiver

import (
	"context"
	"errors"
	"sync"

	"github.com/stretchr/testify/mock"
)

type fakeCache struct {
	mu    sync.Mutex
	added []string
	fail  map[string]bool
}

func (c *fakeCache) Add(_ context.Context, u string) error {
	if c.fail[u] {
		return errors.New("404")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added = append(c.added, u)
	return nil
}

type fakeCaches struct {
	names   []string
	cache   *fakeCache
	deleted []string
}

func (s *fakeCaches) Open(_ context.Context, name string) (Cache, error) {
	s.names = append(s.names, name)
	return s.cache, nil
}

func (s *fakeCaches) Keys(context.Context) ([]string, error) { return s.names, nil }

func (s *fakeCaches) Delete(_ context.Context, name string) error {
	s.deleted = append(s.deleted, name)
	return nil
}

type shown struct {
	title string
	opts  NotificationOptions
}

type fakeRegistration struct {
	mu    sync.Mutex
	shown []shown
	err   error
}

func (r *fakeRegistration) ShowNotification(_ context.Context, title string, opts NotificationOptions) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, shown{title: title, opts: opts})
	return nil
}

type fakeWindow struct {
	url       string
	focused   int
	navigated []string
	focusErr  error
	navErr    error
}

func (w *fakeWindow) URL() string { return w.url }

func (w *fakeWindow) Focus(context.Context) error {
	w.focused++
	return w.focusErr
}

func (w *fakeWindow) Navigate(_ context.Context, u string) error {
	w.navigated = append(w.navigated, u)
	return w.navErr
}

type fakeClients struct {
	windows  []*fakeWindow
	matchErr error
	openErr  error
	opened   []string
	claimed  int
}

func (c *fakeClients) MatchAll(context.Context) ([]WindowClient, error) {
	if c.matchErr != nil {
		return nil, c.matchErr
	}
	out := make([]WindowClient, len(c.windows))
	for i, w := range c.windows {
		out[i] = w
	}
	return out, nil
}

func (c *fakeClients) OpenWindow(_ context.Context, u string) error {
	c.opened = append(c.opened, u)
	return c.openErr
}

func (c *fakeClients) Claim(context.Context) error {
	c.claimed++
	return nil
}

type fakeShown struct {
	data   map[string]any
	closed int
}

func (n *fakeShown) Close()               { n.closed++ }
func (n *fakeShown) Data() map[string]any { return n.data }

type mockAck struct{ mock.Mock }

func (m *mockAck) Delivered(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAck) Clicked(ctx context.Context, id, action string) error {
	return m.Called(ctx, id, action).Error(0)
}
