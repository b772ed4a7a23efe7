package whatsapp

import "testing"

const textPayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "123",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "contacts": [{"wa_id": "15551234567", "profile": {"name": "Alice"}}],
        "messages": [{
          "from": "15551234567",
          "id": "wamid.abc",
          "timestamp": "1700000000",
          "type": "text",
          "text": {"body": "add buy milk for tomorrow"}
        }]
      }
    }]
  }]
}`

const audioPayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "changes": [{
      "field": "messages",
      "value": {
        "contacts": [{"wa_id": "15551234567", "profile": {"name": "Alice"}}],
        "messages": [{
          "from": "15551234567",
          "type": "audio",
          "audio": {"id": "media-1", "mime_type": "audio/ogg; codecs=opus"}
        }]
      }
    }]
  }]
}`

const statusPayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "changes": [{
      "field": "messages",
      "value": {"statuses": [{"id": "wamid.abc", "status": "delivered"}]}
    }]
  }]
}`

func TestParseBody_TextMessage(t *testing.T) {
	t.Parallel()

	in, ok := ParseBody([]byte(textPayload))
	if !ok {
		t.Fatal("expected message to parse")
	}
	if in.PhoneNumber != "15551234567" {
		t.Errorf("phone = %q", in.PhoneNumber)
	}
	if in.Username != "Alice" {
		t.Errorf("username = %q", in.Username)
	}
	if in.Type != "text" || in.Text != "add buy milk for tomorrow" {
		t.Errorf("text not extracted: %+v", in)
	}
}

func TestParseBody_AudioMessage(t *testing.T) {
	t.Parallel()

	in, ok := ParseBody([]byte(audioPayload))
	if !ok {
		t.Fatal("expected message to parse")
	}
	if in.Type != "audio" || in.AudioID != "media-1" {
		t.Errorf("audio not extracted: %+v", in)
	}
	if in.AudioMime != "audio/ogg; codecs=opus" {
		t.Errorf("mime = %q", in.AudioMime)
	}
}

func TestParseBody_StatusEventIgnored(t *testing.T) {
	t.Parallel()

	if _, ok := ParseBody([]byte(statusPayload)); ok {
		t.Fatal("status events must not parse as messages")
	}
}

func TestParseBody_Garbage(t *testing.T) {
	t.Parallel()

	if _, ok := ParseBody([]byte("not json")); ok {
		t.Fatal("garbage must not parse")
	}
	if _, ok := ParseBody([]byte(`{"entry":[]}`)); ok {
		t.Fatal("empty entry must not parse")
	}
}

func TestParseMessage_MissingProfileName(t *testing.T) {
	t.Parallel()

	payload := WebhookPayload{
		Entry: []Entry{{Changes: []Change{{Value: Value{
			Messages: []Message{{From: "111", Type: "text", Text: &Text{Body: "hi"}}},
		}}}}},
	}
	in, ok := ParseMessage(payload)
	if !ok {
		t.Fatal("expected message to parse")
	}
	if in.Username != "Unknown User" {
		t.Errorf("username = %q, want fallback", in.Username)
	}
}
