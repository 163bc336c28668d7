package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"botchat/activity"
	"botchat/transcript"
)

const previewWidth = 100

// MessageMatch is one search hit inside a transcript.
type MessageMatch struct {
	MessageIndex   int
	ID             string
	Role           activity.Role
	Text           string
	Preview        string
	Timestamp      time.Time
	Score          int
	MatchedIndexes []int
}

// ConversationMatch is a search hit in a logged conversation.
type ConversationMatch struct {
	ConversationID string
	Title          string
	MessageMatch
}

type messageSource []transcript.Message

func (s messageSource) String(i int) string { return s[i].Text }
func (s messageSource) Len() int            { return len(s) }

// SearchMessages fuzzy-matches query against the message texts, best match
// first.
func SearchMessages(query string, messages []transcript.Message) []MessageMatch {
	query = strings.TrimSpace(query)
	if query == "" {
		return []MessageMatch{}
	}

	found := fuzzy.FindFrom(query, messageSource(messages))
	matches := make([]MessageMatch, 0, len(found))
	for _, f := range found {
		msg := messages[f.Index]
		matches = append(matches, MessageMatch{
			MessageIndex:   f.Index,
			ID:             msg.ID,
			Role:           msg.Role,
			Text:           msg.Text,
			Preview:        preview(msg.Text),
			Timestamp:      msg.Timestamp,
			Score:          f.Score,
			MatchedIndexes: f.MatchedIndexes,
		})
	}
	return matches
}

// SearchConversations replays every logged conversation and searches its
// finalized messages.
func SearchConversations(log *ActivityLog, query string) ([]ConversationMatch, error) {
	if strings.TrimSpace(query) == "" {
		return []ConversationMatch{}, nil
	}

	convs, err := log.Conversations()
	if err != nil {
		return nil, err
	}

	var matches []ConversationMatch
	for _, c := range convs {
		acts, err := log.Load(c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load conversation %s: %w", c.ID, err)
		}
		model := transcript.Reconcile(acts)
		for _, m := range SearchMessages(query, model.Messages) {
			matches = append(matches, ConversationMatch{
				ConversationID: c.ID,
				Title:          c.Title,
				MessageMatch:   m,
			})
		}
	}
	return matches, nil
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	return runewidth.Truncate(text, previewWidth, "...")
}
