// Package demo drives a Mock source like a real bot would: a greeting with
// quick replies, then a typing signal, a chunk stream and a final message
// for every user message.
package demo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"botchat/activity"
	"botchat/config"
	"botchat/directline"
)

const greeting = "Hi! I'm the **botchat demo**. I can help with time off, your calendar and more. What would you like to do?"

// Scenario scripts bot behaviour on top of a Mock.
type Scenario struct {
	Source    *directline.Mock
	Responder Responder
	// Pace is the delay before the typing signal and between chunks.
	Pace time.Duration

	turn    sync.Mutex
	streams int
}

func NewScenario(src *directline.Mock, responder Responder, pace time.Duration) *Scenario {
	if responder == nil {
		responder = CannedResponder{}
	}
	return &Scenario{Source: src, Responder: responder, Pace: pace}
}

// Run waits for the source to connect and plays the greeting. It returns
// early with ctx.Err() when ctx is cancelled; nothing is emitted after that.
func (s *Scenario) Run(ctx context.Context) error {
	if err := s.waitConnected(ctx); err != nil {
		return err
	}
	return s.play(ctx, func(emit func(string) error) (Reply, error) {
		for _, chunk := range SplitChunks(greeting) {
			if err := emit(chunk); err != nil {
				return Reply{}, err
			}
		}
		return Reply{SuggestedActions: QuickReplies()}, nil
	})
}

// HandleUserMessages answers every user message posted to the source until
// ctx is cancelled. Messages are queued and answered one at a time, in the
// order they were posted.
func (s *Scenario) HandleUserMessages(ctx context.Context) {
	var (
		mu      sync.Mutex
		queue   []activity.Activity
		pending = make(chan struct{}, 1)
	)
	s.Source.OnUserActivity(func(a activity.Activity) {
		if !a.IsMessage() || strings.TrimSpace(a.Text) == "" || ctx.Err() != nil {
			return
		}
		mu.Lock()
		queue = append(queue, a)
		mu.Unlock()
		select {
		case pending <- struct{}{}:
		default:
		}
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-pending:
			}
			for {
				mu.Lock()
				if len(queue) == 0 {
					mu.Unlock()
					break
				}
				a := queue[0]
				queue = queue[1:]
				mu.Unlock()

				s.answer(ctx, a)
			}
		}
	}()
}

func (s *Scenario) answer(ctx context.Context, a activity.Activity) {
	text := strings.TrimSpace(a.Text)
	err := s.play(ctx, func(emit func(string) error) (Reply, error) {
		return s.responder().Respond(ctx, text, emit)
	})
	if err != nil && ctx.Err() == nil && config.DebugLog != nil {
		config.DebugLog.Printf("[demo] reply to %s failed: %v", a.ID, err)
	}
}

func (s *Scenario) responder() Responder {
	if s.Responder == nil {
		return CannedResponder{}
	}
	return s.Responder
}

func (s *Scenario) waitConnected(ctx context.Context) error {
	connected := make(chan struct{})
	var once sync.Once
	s.Source.SubscribeStatus(func(st directline.ConnectionStatus) {
		if st == directline.Connected {
			once.Do(func() { close(connected) })
		}
	})
	select {
	case <-connected:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// play emits one bot turn: typing, the streamed chunks, then the final
// message that replaces them. A responder failure still finalizes the
// stream, with an apology as its text.
func (s *Scenario) play(ctx context.Context, produce func(emit func(string) error) (Reply, error)) error {
	s.turn.Lock()
	defer s.turn.Unlock()

	s.streams++
	streamID := fmt.Sprintf("stream-%d", s.streams)

	if err := sleep(ctx, s.Pace); err != nil {
		return err
	}
	s.Source.EmitTyping()

	var text strings.Builder
	seq := 0
	reply, err := produce(func(chunk string) error {
		if err := sleep(ctx, s.Pace); err != nil {
			return err
		}
		seq++
		text.WriteString(chunk)
		s.Source.EmitStreamChunk(streamID, seq, chunk)
		return nil
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}

	final := activity.Activity{
		Text: strings.TrimSpace(text.String()),
		ChannelData: &activity.ChannelData{
			StreamType: activity.StreamTypeFinal,
			StreamID:   streamID,
		},
	}
	if err != nil {
		final.Text = "Sorry, I couldn't answer that right now."
	} else {
		final.Attachments = reply.Attachments
		final.Entities = reply.Entities
		final.SuggestedActions = reply.SuggestedActions
	}
	if final.Text == "" && len(final.Attachments) == 0 {
		final.Text = "…"
	}
	s.Source.EmitBotMessage(final)
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
