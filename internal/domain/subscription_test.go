package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentials_Validate(t *testing.T) {
	assert.NoError(t, Credentials{Token: "t"}.Validate(ChannelNative))
	assert.ErrorIs(t, Credentials{}.Validate(ChannelNative), ErrBadRequest)
	assert.NoError(t, Credentials{Endpoint: "https://push.example/x", P256dh: "k", Auth: "a"}.Validate(ChannelBrowser))
	assert.ErrorIs(t, Credentials{Endpoint: "https://push.example/x"}.Validate(ChannelBrowser), ErrBadRequest)
	assert.ErrorIs(t, Credentials{Token: "t"}.Validate("sms"), ErrBadRequest)
}

func TestUpsertKey_Deterministic(t *testing.T) {
	a := UpsertKey("o1", ChannelBrowser, "https://push.example/x")
	b := UpsertKey("o1", ChannelBrowser, "https://push.example/x")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	assert.NotEqual(t, a, UpsertKey("o2", ChannelBrowser, "https://push.example/x"))
	assert.NotEqual(t, a, UpsertKey("o1", ChannelNative, "https://push.example/x"))
}

func TestDestinationKey(t *testing.T) {
	assert.Equal(t, "native://tok", DestinationKey(ChannelNative, Credentials{Token: "tok", Platform: "android"}))
	assert.Equal(t, DestinationKey(ChannelNative, Credentials{Token: "tok"}),
		DestinationKey(ChannelNative, Credentials{Token: "tok", Platform: "ios"}))
	assert.Equal(t, "https://e", DestinationKey(ChannelBrowser, Credentials{Endpoint: "https://e"}))
}

func TestPreferences_Allows(t *testing.T) {
	p := DefaultPreferences("o1", time.Now())
	assert.True(t, p.Allows(""))
	assert.True(t, p.Allows("news"), "absent category is allowed")

	p.Categories = map[string]bool{"news": false, "chat": true}
	assert.False(t, p.Allows("news"))
	assert.True(t, p.Allows("chat"))

	p.PushEnabled = false
	assert.False(t, p.Allows(""))
	assert.False(t, p.Allows("chat"))
}

func TestListFilter_Matches(t *testing.T) {
	sub := Subscription{ChannelType: ChannelNative}
	assert.True(t, ListFilter{}.Matches(sub))
	assert.True(t, ListFilter{Channel: ChannelNative}.Matches(sub))
	assert.False(t, ListFilter{Channel: ChannelBrowser}.Matches(sub))
}

func TestRegisterSubscriptionRequest_Resolve(t *testing.T) {
	bs := &BrowserSubscription{Endpoint: "https://push.example/x"}
	bs.Keys.P256dh, bs.Keys.Auth = "k", "a"

	ct, creds, err := RegisterSubscriptionRequest{Subscription: bs}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, ChannelBrowser, ct)
	assert.Equal(t, Credentials{Endpoint: "https://push.example/x", P256dh: "k", Auth: "a"}, creds)

	ct, creds, err = RegisterSubscriptionRequest{Subscription: bs, NativeToken: "tok", Platform: "ios"}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, ChannelNative, ct)
	assert.Equal(t, "ios", creds.Platform)

	_, _, err = RegisterSubscriptionRequest{}.Resolve()
	assert.True(t, errors.Is(err, ErrBadRequest))
}

func TestFinalStatus(t *testing.T) {
	assert.Equal(t, StatusSent, FinalStatus(3, 0))
	assert.Equal(t, StatusPartial, FinalStatus(2, 1))
	assert.Equal(t, StatusFailed, FinalStatus(0, 2))
}

func TestBroadcastRequest_Selector(t *testing.T) {
	sel := BroadcastRequest{Category: "news", ExcludeUserID: "o9"}.Selector()
	assert.Equal(t, AudienceSelector{Category: "news", ExcludeOwnerID: "o9"}, sel)
}
