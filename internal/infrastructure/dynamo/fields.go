package dynamo

// Attribute and index names shared by the repos.
const (
	fieldSubscriptionID = "subscription_id"
	fieldOwnerID        = "owner_id"
	fieldChannelType    = "channel_type"
	fieldCredentials    = "credentials"
	fieldDestKey        = "dest_key"
	fieldCreatedAt      = "created_at"
	fieldPushEnabled    = "push_enabled"

	fieldNotificationID = "notification_id"
	fieldStatus         = "status"
	fieldSent           = "sent"
	fieldFailed         = "failed"
	fieldTotal          = "total"
	fieldSentAt         = "sent_at"
	fieldDeliveredCount = "delivered_count"
	fieldClickAction    = "click_action"
	fieldClickedAt      = "clicked_at"
	fieldExpiresAt      = "expires_at"

	indexOwnerID = "owner_id-index"
)
