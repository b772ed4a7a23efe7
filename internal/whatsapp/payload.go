// Package whatsapp handles the WhatsApp Cloud API surface: webhook payloads,
// signature verification and outbound message delivery.
package whatsapp

import "encoding/json"

// WebhookPayload is the envelope Meta posts to the webhook.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Contacts         []Contact `json:"contacts"`
	Messages         []Message `json:"messages"`
}

type Contact struct {
	WaID    string  `json:"wa_id"`
	Profile Profile `json:"profile"`
}

type Profile struct {
	Name string `json:"name"`
}

type Message struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *Text  `json:"text"`
	Audio     *Audio `json:"audio"`
}

type Text struct {
	Body string `json:"body"`
}

type Audio struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
}

// Incoming is the flattened view of one user message.
type Incoming struct {
	PhoneNumber string
	Username    string
	Type        string
	Text        string
	AudioID     string
	AudioMime   string
}

// ParseBody decodes a raw webhook body and extracts the first message.
// Non-message events (statuses, read receipts) yield ok=false, not an error.
func ParseBody(body []byte) (Incoming, bool) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Incoming{}, false
	}
	return ParseMessage(payload)
}

// ParseMessage extracts the sender, profile name and content of the first
// message in the payload.
func ParseMessage(payload WebhookPayload) (Incoming, bool) {
	if len(payload.Entry) == 0 || len(payload.Entry[0].Changes) == 0 {
		return Incoming{}, false
	}
	value := payload.Entry[0].Changes[0].Value
	if len(value.Messages) == 0 {
		return Incoming{}, false
	}

	msg := value.Messages[0]
	in := Incoming{
		PhoneNumber: msg.From,
		Username:    "Unknown User",
		Type:        msg.Type,
	}
	if len(value.Contacts) > 0 && value.Contacts[0].Profile.Name != "" {
		in.Username = value.Contacts[0].Profile.Name
	}

	switch msg.Type {
	case "text":
		if msg.Text != nil {
			in.Text = msg.Text.Body
		}
	case "audio":
		if msg.Audio != nil {
			in.AudioID = msg.Audio.ID
			in.AudioMime = msg.Audio.MimeType
		}
	}

	if in.PhoneNumber == "" {
		return Incoming{}, false
	}
	return in, true
}
