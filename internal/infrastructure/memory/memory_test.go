package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/go-push-notify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func TestSubscriptionStore_RegisterIsIdempotent(t *testing.T) {
	s := NewSubscriptionStore()
	creds := domain.Credentials{Token: "tok", Platform: domain.PlatformAndroid}

	first, err := s.Register(ctx, "u1", domain.ChannelNative, creds)
	require.NoError(t, err)
	second, err := s.Register(ctx, "u1", domain.ChannelNative, creds)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "native://tok", first.DestKey)
}

func TestSubscriptionStore_PlatformChangeKeepsOneSubscription(t *testing.T) {
	s := NewSubscriptionStore()

	first, err := s.Register(ctx, "u1", domain.ChannelNative, domain.Credentials{Token: "tok"})
	require.NoError(t, err)
	second, err := s.Register(ctx, "u1", domain.ChannelNative, domain.Credentials{Token: "tok", Platform: domain.PlatformAndroid})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	subs, err := s.ListForOwners(ctx, []string{"u1"}, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, domain.PlatformAndroid, subs[0].Credentials.Platform)
}

func TestSubscriptionStore_SameTokenDifferentOwners(t *testing.T) {
	s := NewSubscriptionStore()
	creds := domain.Credentials{Token: "shared"}

	a, _ := s.Register(ctx, "u1", domain.ChannelNative, creds)
	b, _ := s.Register(ctx, "u2", domain.ChannelNative, creds)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, s.Len())
}

func TestSubscriptionStore_ListForOwners(t *testing.T) {
	s := NewSubscriptionStore()
	_, _ = s.Register(ctx, "u1", domain.ChannelNative, domain.Credentials{Token: "t1"})
	_, _ = s.Register(ctx, "u1", domain.ChannelBrowser, domain.Credentials{Endpoint: "https://e/1", P256dh: "p", Auth: "a"})
	_, _ = s.Register(ctx, "u2", domain.ChannelBrowser, domain.Credentials{Endpoint: "https://e/2", P256dh: "p", Auth: "a"})
	_, _ = s.Register(ctx, "u3", domain.ChannelNative, domain.Credentials{Token: "t3"})

	subs, err := s.ListForOwners(ctx, []string{"u1", "u2"}, domain.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, subs, 3)
	for _, sub := range subs {
		assert.NotEqual(t, "u3", sub.OwnerID)
	}

	browsers, err := s.ListForOwners(ctx, []string{"u1", "u2", "u3"}, domain.ListFilter{Channel: domain.ChannelBrowser})
	require.NoError(t, err)
	assert.Len(t, browsers, 2)

	none, err := s.ListForOwners(ctx, []string{"nobody"}, domain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSubscriptionStore_DeleteIsIdempotent(t *testing.T) {
	s := NewSubscriptionStore()
	sub, _ := s.Register(ctx, "u1", domain.ChannelNative, domain.Credentials{Token: "t1"})

	require.NoError(t, s.Delete(ctx, sub.ID))
	require.NoError(t, s.Delete(ctx, sub.ID))
	require.NoError(t, s.Delete(ctx, "never-existed"))

	_, err := s.Get(ctx, sub.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, s.Len())
}

func TestSubscriptionStore_DeleteAllForOwner(t *testing.T) {
	s := NewSubscriptionStore()
	_, _ = s.Register(ctx, "u1", domain.ChannelNative, domain.Credentials{Token: "t1"})
	_, _ = s.Register(ctx, "u1", domain.ChannelNative, domain.Credentials{Token: "t2"})
	keep, _ := s.Register(ctx, "u2", domain.ChannelNative, domain.Credentials{Token: "t3"})

	require.NoError(t, s.DeleteAllForOwner(ctx, "u1"))

	assert.Equal(t, 1, s.Len())
	_, err := s.Get(ctx, keep.ID)
	assert.NoError(t, err)
}

func TestSubscriptionStore_ConcurrentRegister(t *testing.T) {
	s := NewSubscriptionStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Register(ctx, "u1", domain.ChannelNative, domain.Credentials{Token: "same"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, s.Len())
}

func TestPreferenceStore_EnsureDefaultKeepsExisting(t *testing.T) {
	s := NewPreferenceStore()
	require.NoError(t, s.Put(ctx, &domain.Preferences{OwnerID: "u1", PushEnabled: false}))

	def := domain.Preferences{OwnerID: "u1", PushEnabled: true}
	require.NoError(t, s.EnsureDefault(ctx, &def))

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, got.PushEnabled)
}

func TestPreferenceStore_OwnersWithPushEnabled(t *testing.T) {
	s := NewPreferenceStore()
	_ = s.Put(ctx, &domain.Preferences{OwnerID: "a", PushEnabled: true})
	_ = s.Put(ctx, &domain.Preferences{OwnerID: "b", PushEnabled: false})
	_ = s.Put(ctx, &domain.Preferences{OwnerID: "c", PushEnabled: true, Categories: map[string]bool{"posts": false}})

	all, err := s.OwnersWithPushEnabled(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, all)

	posts, err := s.OwnersWithPushEnabled(ctx, "posts")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, posts)
}

func TestNotificationStore_Lifecycle(t *testing.T) {
	s := NewNotificationStore()
	require.NoError(t, s.Create(ctx, &domain.Notification{NotificationID: "n1", Status: domain.StatusPending}))

	require.NoError(t, s.Finalize(ctx, "n1", 2, 1, 3))
	require.NoError(t, s.MarkDelivered(ctx, "n1"))
	require.NoError(t, s.MarkDelivered(ctx, "n1"))
	require.NoError(t, s.MarkClicked(ctx, "n1", "view"))

	n, err := s.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartial, n.Status)
	assert.Equal(t, 3, n.Total)
	assert.Equal(t, 2, n.DeliveredCount)
	assert.Equal(t, "view", n.ClickAction)
	assert.NotNil(t, n.ClickedAt)
	assert.NotNil(t, n.SentAt)

	assert.ErrorIs(t, s.MarkDelivered(ctx, "missing"), domain.ErrNotFound)
}
