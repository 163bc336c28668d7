package activity

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestDecode(t *testing.T) {
	raw := `{
		"id": "bot-7",
		"type": "message",
		"from": {"id": "bot", "role": "bot"},
		"text": "Here you go",
		"timestamp": "2025-03-01T10:00:02.5Z",
		"attachments": [{"contentType": "application/vnd.microsoft.card.adaptive", "content": {"type": "AdaptiveCard"}}],
		"suggestedActions": {"actions": [{"type": "imBack", "title": "Yes", "value": "yes"}]},
		"entities": [{
			"type": "https://schema.org/Message",
			"@type": "Message",
			"citation": [{"@id": "cite:1", "position": 2, "appearance": {"name": "Handbook", "url": "https://example.com/h"}}]
		}],
		"channelData": {"streamType": "final", "streamId": "s1", "feedbackLoop": true}
	}`

	a, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if a.ID != "bot-7" || a.Type != TypeMessage || a.Text != "Here you go" {
		t.Errorf("Decode() basic fields = %+v", a)
	}
	want := time.Date(2025, 3, 1, 10, 0, 2, 500000000, time.UTC)
	if !a.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", a.Timestamp, want)
	}
	if !a.IsBot() || a.IsUser() {
		t.Errorf("role = %q, want bot", a.Role())
	}
	if len(a.Attachments) != 1 || a.Attachments[0].ContentType != AdaptiveCardContentType {
		t.Errorf("Attachments = %+v", a.Attachments)
	}
	if got := a.Actions(); len(got) != 1 || got[0].Value != "yes" {
		t.Errorf("Actions() = %+v", got)
	}
	if len(a.Entities) != 1 || !a.Entities[0].IsMessageEntity() {
		t.Fatalf("Entities = %+v", a.Entities)
	}
	c := a.Entities[0].Citations
	if len(c) != 1 || c[0].ID != "cite:1" || c[0].Position != 2 || c[0].Appearance.Name != "Handbook" {
		t.Errorf("Citations = %+v", c)
	}
	if !a.IsFinalStream() || a.StreamID() != "s1" {
		t.Errorf("stream metadata = %+v", a.ChannelData)
	}
}

func TestDecodeMalformedFieldsTakeDefaults(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, a Activity)
	}{
		{
			name: "bad timestamp",
			raw:  `{"type": "message", "timestamp": "yesterday"}`,
			check: func(t *testing.T, a Activity) {
				if !a.Timestamp.IsZero() {
					t.Errorf("Timestamp = %v, want zero", a.Timestamp)
				}
			},
		},
		{
			name: "text is a number",
			raw:  `{"type": "message", "text": 42}`,
			check: func(t *testing.T, a Activity) {
				if a.Text != "" {
					t.Errorf("Text = %q, want empty", a.Text)
				}
			},
		},
		{
			name: "role and stream type are numbers",
			raw:  `{"type": "message", "from": {"role": 1}, "channelData": {"streamType": 2, "streamId": 7}}`,
			check: func(t *testing.T, a Activity) {
				if a.From.Role != "" || a.ChannelData.StreamType != "" || a.ChannelData.StreamID != "" {
					t.Errorf("From = %+v, ChannelData = %+v, want empty fields", a.From, a.ChannelData)
				}
			},
		},
		{
			name: "numeric ids kept",
			raw:  `{"type": "message", "id": 17, "from": {"id": 3}}`,
			check: func(t *testing.T, a Activity) {
				if a.ID != "17" || a.From.ID != "3" {
					t.Errorf("ID = %q, From.ID = %q", a.ID, a.From.ID)
				}
			},
		},
		{
			name: "timestamp without zone is local",
			raw:  `{"type": "message", "timestamp": "2024-01-01T00:00:01"}`,
			check: func(t *testing.T, a Activity) {
				want := time.Date(2024, 1, 1, 0, 0, 1, 0, time.Local)
				if !a.Timestamp.Equal(want) {
					t.Errorf("Timestamp = %v, want %v", a.Timestamp, want)
				}
			},
		},
		{
			name: "attachments not a list",
			raw:  `{"type": "message", "attachments": {"contentType": "x"}}`,
			check: func(t *testing.T, a Activity) {
				if len(a.Attachments) != 0 {
					t.Errorf("Attachments = %+v, want none", a.Attachments)
				}
			},
		},
		{
			name: "sequence as string",
			raw:  `{"type": "typing", "channelData": {"chunkType": "delta", "streamId": "s", "streamSequence": "3"}}`,
			check: func(t *testing.T, a Activity) {
				if a.ChannelData.StreamSequence != 3 || !a.IsDeltaChunk() {
					t.Errorf("ChannelData = %+v", a.ChannelData)
				}
			},
		},
		{
			name: "sequence garbage",
			raw:  `{"type": "typing", "channelData": {"chunkType": "delta", "streamId": "s", "streamSequence": {"n": 1}}}`,
			check: func(t *testing.T, a Activity) {
				if a.ChannelData.StreamSequence != 0 {
					t.Errorf("StreamSequence = %d, want 0", a.ChannelData.StreamSequence)
				}
			},
		},
		{
			name: "missing from means bot",
			raw:  `{"type": "message", "text": "hi"}`,
			check: func(t *testing.T, a Activity) {
				if !a.IsBot() {
					t.Errorf("Role() = %q, want bot", a.Role())
				}
			},
		},
		{
			name: "channelData not an object",
			raw:  `{"type": "typing", "channelData": "oops"}`,
			check: func(t *testing.T, a Activity) {
				if a.ChannelData != nil {
					t.Errorf("ChannelData = %+v, want nil", a.ChannelData)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Decode([]byte(tt.raw))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			tt.check(t, a)
		})
	}
}

func TestDecodeRejectsNonObjects(t *testing.T) {
	for _, raw := range []string{`[]`, `"text"`, `{broken`, ``} {
		if _, err := Decode([]byte(raw)); err == nil {
			t.Errorf("Decode(%q) expected error", raw)
		}
	}
}

func TestDecodeSet(t *testing.T) {
	raw := `{"activities": [{"id": "1", "type": "message"}, 7, {"id": "2", "type": "typing"}], "watermark": "12"}`

	acts, watermark, err := DecodeSet([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeSet() error = %v", err)
	}
	if len(acts) != 2 || acts[0].ID != "1" || acts[1].ID != "2" {
		t.Errorf("DecodeSet() activities = %+v", acts)
	}
	if watermark != "12" {
		t.Errorf("watermark = %q, want 12", watermark)
	}
}

func TestMarshalTimestamp(t *testing.T) {
	out, err := json.Marshal(Activity{Type: TypeTyping})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(out), "timestamp") {
		t.Errorf("zero timestamp encoded: %s", out)
	}

	at := time.Date(2025, 3, 1, 10, 0, 2, 500_000_000, time.UTC)
	out, err = json.Marshal(Activity{ID: "bot-1", Type: TypeMessage, Text: "hi", Timestamp: at})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(out), `"timestamp":"2025-03-01T10:00:02.5Z"`) {
		t.Errorf("timestamp not RFC 3339: %s", out)
	}
	back, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if back.ID != "bot-1" || back.Text != "hi" || !back.Timestamp.Equal(at) {
		t.Errorf("decoded = %+v", back)
	}
}

func TestChannelDataKeepsUnknownFields(t *testing.T) {
	a, err := Decode([]byte(`{"type": "typing", "channelData": {"chunkType": "delta", "streamId": "s9", "streamSequence": 4, "traceId": "abc"}}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	a.ChannelData.StreamSequence = 5
	out, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(out), `"traceId":"abc"`) {
		t.Errorf("encoded activity lost traceId: %s", out)
	}
	if !strings.Contains(string(out), `"streamSequence":5`) {
		t.Errorf("encoded activity did not update streamSequence: %s", out)
	}

	var back Activity
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back.ChannelData.StreamID != "s9" || back.ChannelData.StreamSequence != 5 {
		t.Errorf("decoded ChannelData = %+v", back.ChannelData)
	}
}

func TestCardSummary(t *testing.T) {
	att := Attachment{
		ContentType: AdaptiveCardContentType,
		Content: json.RawMessage(`{
			"type": "AdaptiveCard",
			"body": [
				{"type": "TextBlock", "text": "San Francisco, CA"},
				{"type": "ColumnSet", "columns": [
					{"items": [{"type": "TextBlock", "text": "72°"}]},
					{"items": [{"type": "TextBlock", "text": "Partly Cloudy"}]}
				]},
				{"type": "FactSet", "facts": [{"title": "Wind", "value": "12 mph NW"}]},
				{"type": "Input.Text", "id": "notes", "label": "Notes"}
			],
			"actions": [{"type": "Action.OpenUrl", "title": "View Full Forecast"}]
		}`),
	}

	got := CardSummary(att)
	want := []string{
		"San Francisco, CA",
		"72° | Partly Cloudy",
		"Wind: 12 mph NW",
		"Notes: ____",
		"[View Full Forecast]",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("CardSummary() = %q, want %q", got, want)
	}

	if got := CardSummary(Attachment{ContentType: "image/png", Name: "chart.png"}); len(got) != 1 || got[0] != "[attachment: chart.png]" {
		t.Errorf("CardSummary(image) = %q", got)
	}
}
