package demo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"botchat/activity"
	"botchat/directline"
	"botchat/transcript"
)

func newMock(t *testing.T) *directline.Mock {
	t.Helper()
	m := directline.NewMock(directline.WithConnectDelays(0, 0), directline.WithPostDelay(0))
	t.Cleanup(func() { m.End() })
	return m
}

// settle polls the reconciled transcript until cond holds.
func settle(t *testing.T, m *directline.Mock, what string, cond func(transcript.RenderModel) bool) transcript.RenderModel {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		model := transcript.Reconcile(m.History())
		if cond(model) {
			return model
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last model: %+v", what, model)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestScenarioGreeting(t *testing.T) {
	m := newMock(t)
	s := NewScenario(m, nil, 0)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	model := transcript.Reconcile(m.History())
	if len(model.Messages) != 1 || model.Messages[0].Text != greeting {
		t.Fatalf("messages = %+v, want the greeting", model.Messages)
	}
	if model.Streaming() || model.IsBotThinking {
		t.Errorf("greeting left streaming=%v thinking=%v", model.Streaming(), model.IsBotThinking)
	}
	if len(model.SuggestedActions) != 3 || model.SuggestedActions[0].Title != "Request time off" {
		t.Errorf("SuggestedActions = %+v", model.SuggestedActions)
	}

	var typing, chunks int
	for _, a := range m.History() {
		switch {
		case a.IsDeltaChunk():
			chunks++
		case a.IsTyping():
			typing++
		}
	}
	if typing != 1 || chunks != len(SplitChunks(greeting)) {
		t.Errorf("typing = %d, chunks = %d", typing, chunks)
	}
}

func TestScenarioAnswersUserMessages(t *testing.T) {
	m := newMock(t)
	s := NewScenario(m, CannedResponder{}, 0)
	s.HandleUserMessages(context.Background())

	if _, err := m.PostUserText(context.Background(), "What is my leave balance?"); err != nil {
		t.Fatalf("PostUserText() error = %v", err)
	}

	model := settle(t, m, "bot answer", func(rm transcript.RenderModel) bool {
		return len(rm.Messages) == 2 && !rm.Streaming()
	})
	bot := model.Messages[1]
	if bot.Role != activity.RoleBot || !strings.Contains(bot.Text, "80h") {
		t.Errorf("bot message = %+v", bot)
	}
	if len(bot.Citations) != 1 || bot.Citations[0].Name != "Leave Policy 2025" {
		t.Errorf("citations = %+v", bot.Citations)
	}
	// The user message cleared the quick replies and this answer has none.
	if model.SuggestedActions != nil {
		t.Errorf("SuggestedActions = %+v, want nil", model.SuggestedActions)
	}
}

// echoResponder answers with the question it was asked.
type echoResponder struct{}

func (echoResponder) Respond(ctx context.Context, text string, emit func(chunk string) error) (Reply, error) {
	for _, chunk := range SplitChunks("re: " + text) {
		if err := emit(chunk); err != nil {
			return Reply{}, err
		}
	}
	return Reply{}, nil
}

func TestScenarioAnswersInPostedOrder(t *testing.T) {
	m := newMock(t)
	NewScenario(m, echoResponder{}, 10*time.Millisecond).HandleUserMessages(context.Background())

	questions := []string{"one", "two", "three", "four"}
	for _, q := range questions {
		if _, err := m.PostUserText(context.Background(), q); err != nil {
			t.Fatalf("PostUserText() error = %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	model := settle(t, m, "all answers", func(rm transcript.RenderModel) bool {
		bots := 0
		for _, msg := range rm.Messages {
			if msg.Role == activity.RoleBot {
				bots++
			}
		}
		return bots == len(questions) && !rm.Streaming()
	})

	var answers []string
	for _, msg := range model.Messages {
		if msg.Role == activity.RoleBot {
			answers = append(answers, msg.Text)
		}
	}
	for i, q := range questions {
		if answers[i] != "re: "+q {
			t.Fatalf("answers = %q, want them in posted order", answers)
		}
	}
}

func TestScenarioIgnoresEmptyMessages(t *testing.T) {
	m := newMock(t)
	NewScenario(m, nil, 0).HandleUserMessages(context.Background())

	m.PostUserText(context.Background(), "   ")
	m.PostUserText(context.Background(), "weather please")

	model := settle(t, m, "weather answer", func(rm transcript.RenderModel) bool {
		last, ok := rm.LastBotMessage()
		return ok && len(last.Attachments) == 1 && !rm.Streaming()
	})
	bots := 0
	for _, msg := range model.Messages {
		if msg.Role == activity.RoleBot {
			bots++
		}
	}
	if bots != 1 {
		t.Errorf("got %d bot messages, want only the weather answer", bots)
	}
}

func TestScenarioCancelStopsEmissions(t *testing.T) {
	m := directline.NewMock(directline.WithConnectDelays(time.Hour, time.Hour))
	defer m.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewScenario(m, nil, 0).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if n := len(m.History()); n != 0 {
		t.Errorf("history has %d activities after cancel", n)
	}
}

func TestScenarioCancelMidTurn(t *testing.T) {
	m := newMock(t)
	ctx, cancel := context.WithCancel(context.Background())

	responder := responderFunc(func(ctx context.Context, text string, emit func(string) error) (Reply, error) {
		if err := emit("partial "); err != nil {
			return Reply{}, err
		}
		cancel()
		return Reply{}, emit("never")
	})
	s := NewScenario(m, responder, 0)

	err := s.play(ctx, func(emit func(string) error) (Reply, error) {
		return responder.Respond(ctx, "hi", emit)
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("play() error = %v, want context.Canceled", err)
	}
	for _, a := range m.History() {
		if a.IsFinalStream() || a.Text == "never" {
			t.Errorf("emitted %+v after cancel", a)
		}
	}
}

func TestScenarioResponderFailureFinalizesStream(t *testing.T) {
	m := newMock(t)
	boom := errors.New("model offline")
	s := NewScenario(m, responderFunc(func(ctx context.Context, text string, emit func(string) error) (Reply, error) {
		emit("Let me ")
		return Reply{}, boom
	}), 0)

	err := s.play(context.Background(), func(emit func(string) error) (Reply, error) {
		return s.Responder.Respond(context.Background(), "hi", emit)
	})
	if !errors.Is(err, boom) {
		t.Fatalf("play() error = %v, want %v", err, boom)
	}

	model := transcript.Reconcile(m.History())
	if model.Streaming() {
		t.Error("stream left open after responder failure")
	}
	if len(model.Messages) != 1 || !strings.HasPrefix(model.Messages[0].Text, "Sorry") {
		t.Errorf("messages = %+v", model.Messages)
	}
}

type responderFunc func(ctx context.Context, text string, emit func(string) error) (Reply, error)

func (f responderFunc) Respond(ctx context.Context, text string, emit func(string) error) (Reply, error) {
	return f(ctx, text, emit)
}

func TestCannedResponder(t *testing.T) {
	tests := []struct {
		input       string
		wantCard    bool
		wantCite    bool
		wantActions bool
		wantText    string
	}{
		{input: "I want to request time off", wantCard: true, wantText: "time off request"},
		{input: "What is my leave balance?", wantCite: true, wantText: "80h"},
		{input: "Show my calendar", wantText: "Design review"},
		{input: "how's the WEATHER", wantCard: true},
		{input: "I have feedback", wantCard: true},
		{input: "any headphones?", wantCard: true},
		{input: "hello", wantActions: true, wantText: "demo bot"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var text strings.Builder
			reply, err := CannedResponder{}.Respond(context.Background(), tt.input, func(c string) error {
				text.WriteString(c)
				return nil
			})
			if err != nil {
				t.Fatalf("Respond() error = %v", err)
			}
			if got := len(reply.Attachments) == 1; got != tt.wantCard {
				t.Errorf("card = %v, want %v", got, tt.wantCard)
			}
			if got := len(reply.Entities) == 1; got != tt.wantCite {
				t.Errorf("citation = %v, want %v", got, tt.wantCite)
			}
			if got := reply.SuggestedActions != nil; got != tt.wantActions {
				t.Errorf("suggested actions = %v, want %v", got, tt.wantActions)
			}
			if !strings.Contains(text.String(), tt.wantText) {
				t.Errorf("text = %q, want it to contain %q", text.String(), tt.wantText)
			}
		})
	}
}

func TestCannedResponderStopsOnEmitError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	_, err := CannedResponder{}.Respond(context.Background(), "hello", func(string) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("Respond() error = %v after %d calls", err, calls)
	}
}

func TestCards(t *testing.T) {
	for _, name := range CardNames() {
		att, err := Card(name)
		if err != nil {
			t.Fatalf("Card(%q) error = %v", name, err)
		}
		if att.ContentType != activity.AdaptiveCardContentType {
			t.Errorf("Card(%q) content type = %q", name, att.ContentType)
		}
		if len(activity.CardSummary(att)) == 0 {
			t.Errorf("Card(%q) has an empty summary", name)
		}
	}

	summary := strings.Join(activity.CardSummary(mustCard(CardTimeOff)), "\n")
	for _, want := range []string{"Time Off Request", "Type of leave: ____", "[Submit Request]"} {
		if !strings.Contains(summary, want) {
			t.Errorf("time off summary missing %q:\n%s", want, summary)
		}
	}

	if _, err := Card("nope"); err == nil {
		t.Error("Card(nope) succeeded")
	}
}

func TestSplitChunks(t *testing.T) {
	for _, text := range []string{"", "one", "two words", " padded  text "} {
		if got := strings.Join(SplitChunks(text), ""); got != text {
			t.Errorf("SplitChunks(%q) joins to %q", text, got)
		}
	}
}
