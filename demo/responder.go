package demo

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ollama/ollama/api"

	"botchat/activity"
	"botchat/ollama"
)

// Reply carries everything but the text of a bot turn. The text itself is
// streamed through the emit callback.
type Reply struct {
	Attachments      []activity.Attachment
	Entities         []activity.Entity
	SuggestedActions *activity.SuggestedActions
}

// Responder produces the bot's answer to one user message. It calls emit for
// every piece of text in order and stops when emit returns an error.
type Responder interface {
	Respond(ctx context.Context, text string, emit func(chunk string) error) (Reply, error)
}

type cannedReply struct {
	keywords []string
	text     string
	card     string
	cite     bool
}

var cannedReplies = []cannedReply{
	{
		keywords: []string{"time off", "vacation", "leave request"},
		text:     "Sure! Here's the **time off request** form. Pick the type of leave and your dates.",
		card:     CardTimeOff,
	},
	{
		keywords: []string{"balance"},
		text:     "You have **80h** of vacation, **40h** of wellness and **24h** of sick leave left this year [1].",
		cite:     true,
	},
	{
		keywords: []string{"calendar"},
		text:     "Your calendar for this week:\n\n- **Mon** 10:00 Team standup\n- **Wed** 14:00 Design review\n- **Fri** Company holiday",
	},
	{
		keywords: []string{"weather"},
		text:     "Here's the current weather.",
		card:     CardWeather,
	},
	{
		keywords: []string{"feedback"},
		text:     "I'd love to hear how I'm doing.",
		card:     CardFeedback,
	},
	{
		keywords: []string{"product", "headphones", "shop"},
		text:     "This one is popular right now:",
		card:     CardProduct,
	},
}

const fallbackReply = "I'm a demo bot. Try asking about **time off**, your **leave balance**, your **calendar**, the **weather**, or a **product**."

// CannedResponder answers from a fixed keyword table and attaches the
// matching sample card.
type CannedResponder struct{}

func (CannedResponder) Respond(ctx context.Context, text string, emit func(chunk string) error) (Reply, error) {
	lower := strings.ToLower(text)
	answer, matched := cannedReply{text: fallbackReply}, false
	for _, r := range cannedReplies {
		if containsAny(lower, r.keywords) {
			answer, matched = r, true
			break
		}
	}

	for _, chunk := range SplitChunks(answer.text) {
		if err := ctx.Err(); err != nil {
			return Reply{}, err
		}
		if err := emit(chunk); err != nil {
			return Reply{}, err
		}
	}

	var reply Reply
	if answer.card != "" {
		reply.Attachments = []activity.Attachment{mustCard(answer.card)}
	}
	if answer.cite {
		reply.Entities = []activity.Entity{leavePolicyCitation()}
	}
	if !matched {
		reply.SuggestedActions = QuickReplies()
	}
	return reply, nil
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func leavePolicyCitation() activity.Entity {
	return activity.Entity{
		Type:       "https://schema.org/Message",
		SchemaType: "Message",
		Citations: []activity.Citation{{
			ID:       "cite:1",
			Position: 1,
			Appearance: activity.Appearance{
				Name:     "Leave Policy 2025",
				URL:      "https://example.com/hr/leave-policy",
				Abstract: "Annual vacation, wellness and sick leave allowances.",
			},
		}},
	}
}

// SplitChunks cuts text into word-sized stream chunks. Joining the chunks
// gives back text exactly.
func SplitChunks(text string) []string {
	if text == "" {
		return nil
	}
	return strings.SplitAfter(text, " ")
}

const ollamaSystemPrompt = "You are a friendly workplace assistant in a chat demo. Keep answers short and use Markdown."

// OllamaResponder streams answers from a local Ollama model and keeps the
// conversation so far as context.
type OllamaResponder struct {
	client *ollama.Client

	mu      sync.Mutex
	history []api.Message
}

func NewOllamaResponder(host, model string) (*OllamaResponder, error) {
	client, err := ollama.NewClient(host, model)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}
	return &OllamaResponder{
		client:  client,
		history: []api.Message{{Role: "system", Content: ollamaSystemPrompt}},
	}, nil
}

// Ping checks that the Ollama server is reachable.
func (r *OllamaResponder) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

func (r *OllamaResponder) Respond(ctx context.Context, text string, emit func(chunk string) error) (Reply, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	messages := append(append([]api.Message(nil), r.history...), api.Message{Role: "user", Content: text})

	var answer strings.Builder
	err := r.client.Chat(ctx, messages, func(chunk string) error {
		answer.WriteString(chunk)
		return emit(chunk)
	})
	if err != nil {
		return Reply{}, fmt.Errorf("ollama chat failed: %w", err)
	}

	r.history = append(messages, api.Message{Role: "assistant", Content: answer.String()})
	return Reply{}, nil
}
