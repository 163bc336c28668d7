// Package transcript projects an append-only activity log into a render model.
//
// The projection is recomputed from the whole history on every change instead
// of being patched incrementally: Reconcile is a pure function of its input, so
// calling it twice on the same log always yields the same model.
//
// Three buckets are filled in a single pass:
//
//   - finalized messages (user text, final stream messages, plain bot messages)
//   - delta chunks of still open streams, grouped by stream id
//   - the currently active suggested actions
package transcript

import (
	"sort"
	"strings"
	"time"

	"botchat/activity"
)

// Message is a finalized, immutable transcript entry.
type Message struct {
	ID          string
	Text        string
	Role        activity.Role
	Timestamp   time.Time
	StreamID    string
	Attachments []activity.Attachment
	Citations   []Citation
}

// RenderModel is the view-ready projection of an activity log.
type RenderModel struct {
	// Messages are sorted by timestamp; ties keep arrival order.
	Messages []Message

	// StreamingText is the accumulated text of the open stream, nil when no
	// stream is open.
	StreamingText *string
	StreamID      string

	// SuggestedActions is nil when no quick replies are active.
	SuggestedActions []activity.CardAction

	IsBotThinking bool
}

// Streaming reports whether a stream is open.
func (m RenderModel) Streaming() bool {
	return m.StreamingText != nil
}

// Empty reports whether there is nothing to show yet.
func (m RenderModel) Empty() bool {
	return len(m.Messages) == 0 && m.StreamingText == nil
}

// LastBotMessage returns the most recent finalized bot message.
func (m RenderModel) LastBotMessage() (Message, bool) {
	for i := len(m.Messages) - 1; i >= 0; i-- {
		if m.Messages[i].Role == activity.RoleBot {
			return m.Messages[i], true
		}
	}
	return Message{}, false
}

// Options tune the parts of reconciliation that depend on wall-clock time.
// The zero value makes Reconcile independent of time.
type Options struct {
	// TypingTimeout expires bot typing signals older than this, measured
	// against Now. Both must be set for expiry to apply.
	TypingTimeout time.Duration
	Now           time.Time
}

type chunk struct {
	sequence int
	text     string
}

// Reconcile maps an ordered activity log to its render model.
func Reconcile(activities []activity.Activity) RenderModel {
	return ReconcileWith(activities, Options{})
}

// ReconcileWith is Reconcile with explicit options.
func ReconcileWith(activities []activity.Activity, opts Options) RenderModel {
	var messages []Message
	var streamOrder []string
	var suggested []activity.CardAction
	finalStreams := make(map[string]bool)
	chunks := make(map[string][]chunk)

	for _, a := range activities {
		switch {
		case isFinalized(a):
			msg := Message{
				ID:          a.ID,
				Text:        a.Text,
				Role:        a.Role(),
				Timestamp:   a.Timestamp,
				StreamID:    a.StreamID(),
				Attachments: a.Attachments,
			}
			if a.IsBot() {
				msg.Citations = ExtractCitations(a.Entities)
			}
			messages = append(messages, msg)
			if id := a.StreamID(); id != "" {
				finalStreams[id] = true
			}

		case a.IsDeltaChunk():
			id := a.ChannelData.StreamID
			if _, seen := chunks[id]; !seen {
				streamOrder = append(streamOrder, id)
			}
			chunks[id] = addChunk(chunks[id], chunk{sequence: a.ChannelData.StreamSequence, text: a.Text})
		}

		switch {
		case a.IsUser() && a.IsMessage() && a.Text != "":
			suggested = nil
		case a.IsBot() && len(a.Actions()) > 0:
			suggested = a.Actions()
		case a.IsBot() && a.IsMessage():
			// A newer bot message without quick replies retires the old ones.
			suggested = nil
		}
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})

	model := RenderModel{
		Messages:         messages,
		SuggestedActions: suggested,
	}

	// Only one bot turn streams at a time; if several are open the last one
	// visited wins.
	for _, id := range streamOrder {
		if finalStreams[id] {
			continue
		}
		text := joinChunks(chunks[id])
		model.StreamingText = &text
		model.StreamID = id
	}

	model.IsBotThinking = IsBotThinking(activities, model.Streaming(), opts)
	return model
}

// isFinalized reports whether a belongs in the finalized message bucket.
func isFinalized(a activity.Activity) bool {
	if !a.IsMessage() {
		return false
	}
	if a.IsUser() {
		return a.Text != ""
	}
	if a.IsFinalStream() {
		return true
	}
	if a.HasStreamMetadata() {
		return false
	}
	return a.Text != "" || len(a.Attachments) > 0
}

// addChunk stores c, replacing an earlier chunk with the same sequence.
func addChunk(list []chunk, c chunk) []chunk {
	for i := range list {
		if list[i].sequence == c.sequence {
			list[i] = c
			return list
		}
	}
	return append(list, c)
}

func joinChunks(list []chunk) string {
	sorted := make([]chunk, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].sequence < sorted[j].sequence
	})

	var b strings.Builder
	for _, c := range sorted {
		b.WriteString(c.text)
	}
	return b.String()
}
