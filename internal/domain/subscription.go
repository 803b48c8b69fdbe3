package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ChannelType identifies the wire protocol a subscription is reached through.
type ChannelType string

const (
	ChannelNative  ChannelType = "native"
	ChannelBrowser ChannelType = "browser"
)

// Valid reports whether c is one of the supported channel types.
func (c ChannelType) Valid() bool {
	return c == ChannelNative || c == ChannelBrowser
}

// Native platforms.
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

// Credentials holds the destination details. Native subscriptions use Token
// and Platform; browser subscriptions use Endpoint, P256dh and Auth.
type Credentials struct {
	Token    string `json:"token,omitempty" dynamodbav:"token,omitempty"`
	Platform string `json:"platform,omitempty" dynamodbav:"platform,omitempty"`
	Endpoint string `json:"endpoint,omitempty" dynamodbav:"endpoint,omitempty"`
	P256dh   string `json:"p256dh,omitempty" dynamodbav:"p256dh,omitempty"`
	Auth     string `json:"auth,omitempty" dynamodbav:"auth,omitempty"`
}

// Validate checks that the credentials carry what the channel needs.
func (c Credentials) Validate(ct ChannelType) error {
	switch ct {
	case ChannelNative:
		if c.Token == "" {
			return fmt.Errorf("native token is required: %w", ErrBadRequest)
		}
	case ChannelBrowser:
		if c.Endpoint == "" || c.P256dh == "" || c.Auth == "" {
			return fmt.Errorf("endpoint, p256dh and auth are required: %w", ErrBadRequest)
		}
	default:
		return fmt.Errorf("unknown channel type %q: %w", ct, ErrBadRequest)
	}
	return nil
}

// Subscription is a single registered destination for one owner.
// A rotated token or endpoint is a new Subscription. Re-registering the same
// destination only refreshes its credentials (for instance a corrected platform).
type Subscription struct {
	ID          string      `json:"id" dynamodbav:"subscription_id"`
	OwnerID     string      `json:"owner_id" dynamodbav:"owner_id"`
	ChannelType ChannelType `json:"channel_type" dynamodbav:"channel_type"`
	Credentials Credentials `json:"credentials" dynamodbav:"credentials"`
	DestKey     string      `json:"-" dynamodbav:"dest_key"`
	CreatedAt   time.Time   `json:"created" dynamodbav:"created_at"`
}

// DestinationKey returns the endpoint-or-token that identifies the destination.
// Native tokens are keyed as native://<token>; the platform is an attribute of
// the device, not part of its identity.
func DestinationKey(ct ChannelType, c Credentials) string {
	if ct == ChannelNative {
		return "native://" + c.Token
	}
	return c.Endpoint
}

// UpsertKey hashes (owner, channel, destination) into a fixed-length key used
// to make registration idempotent.
func UpsertKey(ownerID string, ct ChannelType, destKey string) string {
	sum := sha256.Sum256([]byte(ownerID + "\x00" + string(ct) + "\x00" + destKey))
	return hex.EncodeToString(sum[:])
}

// Preferences are an owner's push opt-in flags.
type Preferences struct {
	OwnerID     string          `json:"owner_id" dynamodbav:"owner_id"`
	PushEnabled bool            `json:"push_enabled" dynamodbav:"push_enabled"`
	Categories  map[string]bool `json:"categories,omitempty" dynamodbav:"categories,omitempty"`
	UpdatedAt   time.Time       `json:"updated" dynamodbav:"updated_at"`
}

// DefaultPreferences is what an owner gets on first registration.
func DefaultPreferences(ownerID string, now time.Time) Preferences {
	return Preferences{OwnerID: ownerID, PushEnabled: true, UpdatedAt: now}
}

// Allows reports whether the owner accepts pushes in the given category.
// Categories are opt-out: a category absent from the map is allowed.
func (p Preferences) Allows(category string) bool {
	if !p.PushEnabled {
		return false
	}
	if category == "" {
		return true
	}
	enabled, ok := p.Categories[category]
	return !ok || enabled
}

// ListFilter narrows a registry listing. The zero value matches everything.
type ListFilter struct {
	Channel ChannelType
}

// Matches reports whether sub passes the filter.
func (f ListFilter) Matches(sub Subscription) bool {
	return f.Channel == "" || sub.ChannelType == f.Channel
}
