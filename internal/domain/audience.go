package domain

// AudienceSelector resolves the owners of a broadcast: every owner with push
// enabled, optionally narrowed to a category opt-in, minus ExcludeOwnerID.
type AudienceSelector struct {
	Category       string `json:"category,omitempty"`
	ExcludeOwnerID string `json:"exclude_user_id,omitempty"`
}

// OwnerSummary is one owner's share of a dispatch.
type OwnerSummary struct {
	OwnerID string `json:"owner_id"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
}

// Summary aggregates a dispatch cycle. Sent+Failed always equals Total.
type Summary struct {
	Sent           int            `json:"sent"`
	Failed         int            `json:"failed"`
	Total          int            `json:"total"`
	PerOwner       []OwnerSummary `json:"per_owner,omitempty"`
	NotificationID string         `json:"notification_id,omitempty"`
}
