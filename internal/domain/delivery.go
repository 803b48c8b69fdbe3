package domain

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Outcome classifies a single delivery attempt.
type Outcome string

const (
	OutcomeDelivered        Outcome = "delivered"
	OutcomeTransientFailure Outcome = "transient_failure"
	OutcomePermanentFailure Outcome = "permanent_failure"
)

// Error codes recorded on DeliveryResult when no provider code is available.
const (
	CodeAuthFailed          = "AUTH_FAILED"
	CodeConfigError         = "CONFIG_ERROR"
	CodeTimeout             = "TIMEOUT"
	CodeNetwork             = "NETWORK_ERROR"
	CodeUnsupportedPlatform = "UNSUPPORTED_PLATFORM"
	CodeUnknown             = "UNKNOWN"
)

// DeliveryResult is the outcome of sending one message to one subscription.
type DeliveryResult struct {
	SubscriptionID string      `json:"subscription_id"`
	OwnerID        string      `json:"owner_id"`
	Channel        ChannelType `json:"channel"`
	Outcome        Outcome     `json:"outcome"`
	MessageID      string      `json:"message_id,omitempty"`
	StatusCode     int         `json:"status_code,omitempty"`
	ErrorCode      string      `json:"error_code,omitempty"`
	ErrorMessage   string      `json:"error_message,omitempty"`
}

// Delivered reports whether the provider accepted the message.
func (r DeliveryResult) Delivered() bool { return r.Outcome == OutcomeDelivered }

// ClassifyStatus maps a provider HTTP status to an outcome.
// Only 404 and 410 mean the destination is gone.
func ClassifyStatus(status int) Outcome {
	switch {
	case status >= 200 && status < 300:
		return OutcomeDelivered
	case status == http.StatusNotFound || status == http.StatusGone:
		return OutcomePermanentFailure
	default:
		return OutcomeTransientFailure
	}
}

// ResultFor builds the result for sub from a transport-level error. Network
// errors and timeouts are always transient.
func ResultFor(sub Subscription, err error) DeliveryResult {
	r := DeliveryResult{
		SubscriptionID: sub.ID,
		OwnerID:        sub.OwnerID,
		Channel:        sub.ChannelType,
		Outcome:        OutcomeTransientFailure,
		ErrorCode:      CodeUnknown,
	}
	if err == nil {
		r.Outcome = OutcomeDelivered
		r.ErrorCode = ""
		return r
	}
	r.ErrorMessage = err.Error()

	var (
		de *DispatchError
		ce *ConfigurationError
		ae *AuthError
		ne net.Error
	)
	switch {
	case errors.As(err, &de):
		r.StatusCode = de.StatusCode
		if de.Permanent {
			r.Outcome = OutcomePermanentFailure
		}
		if de.Code != "" {
			r.ErrorCode = de.Code
		}
	case errors.As(err, &ce):
		r.ErrorCode = CodeConfigError
	case errors.As(err, &ae):
		r.StatusCode = ae.StatusCode
		r.ErrorCode = CodeAuthFailed
	case errors.Is(err, context.DeadlineExceeded):
		r.ErrorCode = CodeTimeout
	case errors.As(err, &ne):
		if ne.Timeout() {
			r.ErrorCode = CodeTimeout
		} else {
			r.ErrorCode = CodeNetwork
		}
	}
	return r
}
