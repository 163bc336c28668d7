// Package activity defines the conversation timeline events exchanged with a
// bot channel.
//
// An Activity is immutable once it is on the timeline. Transports (Direct Line,
// Copilot Studio, the demo mock) produce activities in arrival order; the
// transcript package turns that ordered list into something renderable.
//
// Streaming metadata travels in ChannelData:
//
//	{"streamType": "streaming", "streamId": "s1", "streamSequence": 3, "chunkType": "delta"}
//	{"streamType": "final", "streamId": "s1"}
package activity

import (
	"encoding/json"
	"time"
)

// Type is the activity kind. Only message and typing matter to the transcript;
// other values (event, conversationUpdate, ...) are kept but ignored.
type Type string

const (
	TypeMessage Type = "message"
	TypeTyping  Type = "typing"
)

// Role identifies who authored an activity.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Stream metadata values carried in ChannelData.
const (
	StreamTypeStreaming   = "streaming"
	StreamTypeFinal       = "final"
	StreamTypeInformative = "informative"
	ChunkTypeDelta        = "delta"
)

const AdaptiveCardContentType = "application/vnd.microsoft.card.adaptive"

// Account is the sender of an activity.
type Account struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Role Role   `json:"role,omitempty"`
}

// Attachment is an opaque card or file descriptor. Content is left raw; card
// rendering is not this package's business beyond CardSummary.
type Attachment struct {
	ContentType string          `json:"contentType"`
	ContentURL  string          `json:"contentUrl,omitempty"`
	Name        string          `json:"name,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`
}

// CardAction is a quick-reply button.
type CardAction struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Value string `json:"value,omitempty"`
}

type SuggestedActions struct {
	To      []string     `json:"to,omitempty"`
	Actions []CardAction `json:"actions"`
}

// Entity is a schema.org style entity attached to an activity. Only the
// citation-bearing Message entity is modelled.
type Entity struct {
	Type       string     `json:"type"`
	SchemaType string     `json:"@type,omitempty"`
	Citations  []Citation `json:"citation,omitempty"`
}

type Citation struct {
	ID         string     `json:"@id,omitempty"`
	Position   int        `json:"position,omitempty"`
	Appearance Appearance `json:"appearance"`
}

type Appearance struct {
	Name     string `json:"name,omitempty"`
	URL      string `json:"url,omitempty"`
	Abstract string `json:"abstract,omitempty"`
}

// IsMessageEntity reports whether the entity is a schema.org Message, the
// entity kind that carries citations.
func (e Entity) IsMessageEntity() bool {
	return e.Type == "https://schema.org/Message" || e.SchemaType == "Message"
}

// Activity is one event on the conversation timeline.
type Activity struct {
	ID               string            `json:"id,omitempty"`
	Type             Type              `json:"type"`
	From             Account           `json:"from"`
	Text             string            `json:"text,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
	Attachments      []Attachment      `json:"attachments,omitempty"`
	SuggestedActions *SuggestedActions `json:"suggestedActions,omitempty"`
	Entities         []Entity          `json:"entities,omitempty"`
	ChannelData      *ChannelData      `json:"channelData,omitempty"`
}

// MarshalJSON writes the inbound wire shape. A zero timestamp is left out
// instead of being written as year one.
func (a Activity) MarshalJSON() ([]byte, error) {
	type plain Activity
	var ts string
	if !a.Timestamp.IsZero() {
		ts = a.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(struct {
		plain
		Timestamp string `json:"timestamp,omitempty"`
	}{plain: plain(a), Timestamp: ts})
}

// Role returns the sender role. A missing role counts as the bot.
func (a Activity) Role() Role {
	if a.From.Role == RoleUser {
		return RoleUser
	}
	return RoleBot
}

func (a Activity) IsUser() bool { return a.Role() == RoleUser }

func (a Activity) IsBot() bool { return a.Role() == RoleBot }

func (a Activity) IsMessage() bool { return a.Type == TypeMessage }

func (a Activity) IsTyping() bool { return a.Type == TypeTyping }

// StreamID returns the stream the activity belongs to, or "".
func (a Activity) StreamID() string {
	if a.ChannelData == nil {
		return ""
	}
	return a.ChannelData.StreamID
}

// HasStreamMetadata reports whether the activity was produced by a streaming
// transport at all.
func (a Activity) HasStreamMetadata() bool {
	return a.ChannelData != nil && (a.ChannelData.StreamType != "" || a.ChannelData.StreamID != "")
}

// IsDeltaChunk reports whether the activity is an incremental typing chunk of
// a stream.
func (a Activity) IsDeltaChunk() bool {
	return a.Type == TypeTyping &&
		a.ChannelData != nil &&
		a.ChannelData.ChunkType == ChunkTypeDelta &&
		a.ChannelData.StreamID != ""
}

// IsFinalStream reports whether the activity is the final message of a stream.
func (a Activity) IsFinalStream() bool {
	return a.Type == TypeMessage && a.ChannelData != nil && a.ChannelData.StreamType == StreamTypeFinal
}

// Actions returns the suggested actions, or nil.
func (a Activity) Actions() []CardAction {
	if a.SuggestedActions == nil {
		return nil
	}
	return a.SuggestedActions.Actions
}
