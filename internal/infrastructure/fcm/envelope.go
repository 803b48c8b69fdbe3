package fcm

import (
	"encoding/json"
	"fmt"

	"github.com/go-push-notify/internal/domain"
)

type envelope struct {
	Message envelopeMessage `json:"message"`
}

type envelopeMessage struct {
	Token        string            `json:"token"`
	Notification notification      `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      androidConfig     `json:"android"`
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type androidConfig struct {
	Priority     string              `json:"priority"`
	Notification androidNotification `json:"notification"`
}

type androidNotification struct {
	Sound     string `json:"sound"`
	ChannelID string `json:"channelId"`
	Tag       string `json:"tag,omitempty"`
}

// buildEnvelopeTemplate renders everything but the device token.
func buildEnvelopeTemplate(msg domain.Message) envelopeMessage {
	priority := "high"
	if msg.Priority == domain.PriorityNormal {
		priority = "normal"
	}
	p := msg.Payload()
	return envelopeMessage{
		Notification: notification{Title: msg.Title, Body: msg.Body},
		Data:         stringifyData(p.Data),
		Android: androidConfig{
			Priority: priority,
			Notification: androidNotification{
				Sound:     "default",
				ChannelID: "default",
				Tag:       msg.Tag,
			},
		},
	}
}

// stringifyData coerces every value to a string; FCM only accepts string maps.
// Composite values are JSON encoded.
func stringifyData(data map[string]any) map[string]string {
	if len(data) == 0 {
		return nil
	}
	out := make(map[string]string, len(data))
	for k, v := range data {
		switch tv := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = tv
		case fmt.Stringer:
			out[k] = tv.String()
		case map[string]any, []any:
			b, err := json.Marshal(tv)
			if err != nil {
				out[k] = fmt.Sprint(tv)
				continue
			}
			out[k] = string(b)
		default:
			out[k] = fmt.Sprint(tv)
		}
	}
	return out
}
