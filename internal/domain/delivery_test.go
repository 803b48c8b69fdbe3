package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	cases := map[int]Outcome{
		200: OutcomeDelivered,
		201: OutcomeDelivered,
		404: OutcomePermanentFailure,
		410: OutcomePermanentFailure,
		400: OutcomeTransientFailure,
		401: OutcomeTransientFailure,
		413: OutcomeTransientFailure,
		429: OutcomeTransientFailure,
		500: OutcomeTransientFailure,
		503: OutcomeTransientFailure,
	}
	for status, want := range cases {
		assert.Equal(t, want, ClassifyStatus(status), "status %d", status)
	}
}

func TestResultFor(t *testing.T) {
	sub := Subscription{ID: "s1", OwnerID: "o1", ChannelType: ChannelBrowser}

	t.Run("nil error is delivered", func(t *testing.T) {
		r := ResultFor(sub, nil)
		assert.True(t, r.Delivered())
		assert.Empty(t, r.ErrorCode)
		assert.Equal(t, "s1", r.SubscriptionID)
		assert.Equal(t, ChannelBrowser, r.Channel)
	})

	t.Run("permanent dispatch error", func(t *testing.T) {
		err := fmt.Errorf("send: %w", &DispatchError{Permanent: true, StatusCode: 410, Code: "EXPIRED_SUBSCRIPTION"})
		r := ResultFor(sub, err)
		assert.Equal(t, OutcomePermanentFailure, r.Outcome)
		assert.Equal(t, 410, r.StatusCode)
		assert.Equal(t, "EXPIRED_SUBSCRIPTION", r.ErrorCode)
	})

	t.Run("transient dispatch error without code", func(t *testing.T) {
		r := ResultFor(sub, &DispatchError{StatusCode: 500})
		assert.Equal(t, OutcomeTransientFailure, r.Outcome)
		assert.Equal(t, CodeUnknown, r.ErrorCode)
	})

	t.Run("configuration error", func(t *testing.T) {
		r := ResultFor(sub, &ConfigurationError{Field: "vapid_private_key"})
		assert.Equal(t, OutcomeTransientFailure, r.Outcome)
		assert.Equal(t, CodeConfigError, r.ErrorCode)
	})

	t.Run("auth error", func(t *testing.T) {
		r := ResultFor(sub, &AuthError{StatusCode: 400, Body: "invalid_grant"})
		assert.Equal(t, CodeAuthFailed, r.ErrorCode)
		assert.Equal(t, 400, r.StatusCode)
	})

	t.Run("deadline", func(t *testing.T) {
		r := ResultFor(sub, fmt.Errorf("post: %w", context.DeadlineExceeded))
		assert.Equal(t, OutcomeTransientFailure, r.Outcome)
		assert.Equal(t, CodeTimeout, r.ErrorCode)
	})

	t.Run("network", func(t *testing.T) {
		r := ResultFor(sub, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")})
		assert.Equal(t, OutcomeTransientFailure, r.Outcome)
		assert.Equal(t, CodeNetwork, r.ErrorCode)
	})
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(fmt.Errorf("x: %w", &DispatchError{Permanent: true})))
	assert.False(t, IsPermanent(&DispatchError{}))
	assert.False(t, IsPermanent(errors.New("boom")))
}

func TestDispatchError_Message(t *testing.T) {
	err := &DispatchError{Permanent: true, StatusCode: 404, Code: "UNREGISTERED"}
	assert.Equal(t, "dispatch permanent failure (status 404): UNREGISTERED", err.Error())
}
