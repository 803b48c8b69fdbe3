package domain

import "fmt"

// BrowserSubscription mirrors the PushSubscription JSON a browser hands out.
type BrowserSubscription struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys"`
}

// RegisterSubscriptionRequest carries either a browser subscription or a
// native token.
type RegisterSubscriptionRequest struct {
	Subscription *BrowserSubscription `json:"subscription,omitempty" validate:"omitempty"`
	NativeToken  string               `json:"native_token,omitempty"`
	Platform     string               `json:"platform,omitempty" validate:"omitempty,oneof=android ios"`
}

// Resolve picks the channel type and credentials. A native token wins when both
// are present.
func (r RegisterSubscriptionRequest) Resolve() (ChannelType, Credentials, error) {
	switch {
	case r.NativeToken != "":
		return ChannelNative, Credentials{Token: r.NativeToken, Platform: r.Platform}, nil
	case r.Subscription != nil:
		return ChannelBrowser, Credentials{
			Endpoint: r.Subscription.Endpoint,
			P256dh:   r.Subscription.Keys.P256dh,
			Auth:     r.Subscription.Keys.Auth,
		}, nil
	}
	return "", Credentials{}, fmt.Errorf("subscription or native_token is required: %w", ErrBadRequest)
}

// UpdatePreferencesRequest is a partial update; nil fields are left alone.
type UpdatePreferencesRequest struct {
	PushEnabled *bool           `json:"push_enabled,omitempty"`
	Categories  map[string]bool `json:"categories,omitempty"`
}

// SendRequest targets every subscription of one owner.
type SendRequest struct {
	UserID  string  `json:"user_id" validate:"required"`
	Message Message `json:"message" validate:"required"`
}

// BroadcastRequest targets every opted-in owner.
type BroadcastRequest struct {
	Message       Message `json:"message" validate:"required"`
	Category      string  `json:"category,omitempty"`
	ExcludeUserID string  `json:"exclude_user_id,omitempty"`
}

// Selector converts the request into an audience selector.
func (r BroadcastRequest) Selector() AudienceSelector {
	return AudienceSelector{Category: r.Category, ExcludeOwnerID: r.ExcludeUserID}
}

// ClickRequest is the body the receiver posts on notification click.
type ClickRequest struct {
	Action string `json:"action,omitempty" validate:"omitempty,max=64"`
}
