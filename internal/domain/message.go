package domain

// Priority is a delivery hint passed to providers.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Action is a button rendered with the notification.
type Action struct {
	ID    string `json:"action" validate:"required"`
	Label string `json:"title" validate:"required"`
	Icon  string `json:"icon,omitempty"`
}

// Message is one logical notification. It is never persisted as-is.
type Message struct {
	Title              string         `json:"title" validate:"required"`
	Body               string         `json:"body" validate:"required"`
	Data               map[string]any `json:"data,omitempty"`
	Tag                string         `json:"tag,omitempty"`
	Actions            []Action       `json:"actions,omitempty" validate:"dive"`
	RequireInteraction bool           `json:"require_interaction,omitempty"`
	Priority           Priority       `json:"priority,omitempty"`
	Icon               string         `json:"icon,omitempty"`
	Badge              string         `json:"badge,omitempty"`
}

// Defaults applied when building the wire payload.
const (
	DefaultIcon = "/favicon.ico"
	DefaultTag  = "default"
	DefaultURL  = "/notifications"
)

// WirePayload is the JSON document a receiver gets in the push body.
type WirePayload struct {
	Title              string         `json:"title,omitempty"`
	Body               string         `json:"body,omitempty"`
	Icon               string         `json:"icon,omitempty"`
	Badge              string         `json:"badge,omitempty"`
	Tag                string         `json:"tag,omitempty"`
	Data               map[string]any `json:"data,omitempty"`
	Actions            []Action       `json:"actions,omitempty"`
	RequireInteraction bool           `json:"requireInteraction,omitempty"`
}

// Payload converts m to its wire representation, filling in the icon, badge,
// tag and url defaults.
func (m Message) Payload() WirePayload {
	data := make(map[string]any, len(m.Data)+1)
	for k, v := range m.Data {
		data[k] = v
	}
	if u, _ := data["url"].(string); u == "" {
		data["url"] = DefaultURL
	}
	p := WirePayload{
		Title:              m.Title,
		Body:               m.Body,
		Icon:               m.Icon,
		Badge:              m.Badge,
		Tag:                m.Tag,
		Data:               data,
		Actions:            m.Actions,
		RequireInteraction: m.RequireInteraction,
	}
	if p.Icon == "" {
		p.Icon = DefaultIcon
	}
	if p.Badge == "" {
		p.Badge = DefaultIcon
	}
	if p.Tag == "" {
		p.Tag = DefaultTag
	}
	return p
}

// WithData returns a copy of m with key set in its data map.
func (m Message) WithData(key string, value any) Message {
	data := make(map[string]any, len(m.Data)+1)
	for k, v := range m.Data {
		data[k] = v
	}
	data[key] = value
	m.Data = data
	return m
}
