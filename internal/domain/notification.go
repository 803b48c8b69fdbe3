package domain

import "time"

// Notification log statuses.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Notification is the delivery log for one dispatch or broadcast cycle.
// OwnerID is empty for broadcasts.
type Notification struct {
	NotificationID string         `json:"id" dynamodbav:"notification_id"`
	OwnerID        string         `json:"owner_id,omitempty" dynamodbav:"owner_id,omitempty"`
	Title          string         `json:"title" dynamodbav:"title"`
	Body           string         `json:"body" dynamodbav:"body"`
	Data           map[string]any `json:"data,omitempty" dynamodbav:"data,omitempty"`
	Status         string         `json:"status" dynamodbav:"status"`
	Sent           int            `json:"sent" dynamodbav:"sent"`
	Failed         int            `json:"failed" dynamodbav:"failed"`
	Total          int            `json:"total" dynamodbav:"total"`
	DeliveredCount int            `json:"delivered_count" dynamodbav:"delivered_count"`
	ClickAction    string         `json:"click_action,omitempty" dynamodbav:"click_action,omitempty"`
	ClickedAt      *time.Time     `json:"clicked_at,omitempty" dynamodbav:"clicked_at,omitempty"`
	SentAt         *time.Time     `json:"sent_at,omitempty" dynamodbav:"sent_at,omitempty"`
	CreatedAt      time.Time      `json:"created" dynamodbav:"created_at"`
	ExpiresAt      int64          `json:"-" dynamodbav:"expires_at,omitempty"`
}

// FinalStatus derives the log status from the send tallies.
func FinalStatus(sent, failed int) string {
	switch {
	case failed == 0:
		return StatusSent
	case sent > 0:
		return StatusPartial
	default:
		return StatusFailed
	}
}
