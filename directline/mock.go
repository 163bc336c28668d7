package directline

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"botchat/activity"
)

const (
	defaultConnectingDelay = 50 * time.Millisecond
	defaultConnectedDelay  = 150 * time.Millisecond
	defaultPostDelay       = 10 * time.Millisecond

	mockSessionID = "demo-session"
)

// Mock is an in-memory Source for demo mode and tests. Bot activities are
// injected with the Emit methods; user posts echo back after a short delay
// and are handed to the OnUserActivity observers.
//
// The connection comes up on its own: Uninitialized, then Connecting, then
// Connected. The mock never fails to connect.
type Mock struct {
	*hub

	mu        sync.Mutex
	nextID    int
	history   []activity.Activity
	outbound  []func(activity.Activity)
	timers    []*time.Timer
	postDelay time.Duration
	now       func() time.Time
}

type mockOptions struct {
	connecting time.Duration
	connected  time.Duration
	postDelay  time.Duration
	now        func() time.Time
}

// MockOption configures a Mock.
type MockOption func(*mockOptions)

// WithConnectDelays sets when the mock reports Connecting and Connected,
// measured from construction. connected is clamped to be no earlier than
// connecting.
func WithConnectDelays(connecting, connected time.Duration) MockOption {
	return func(o *mockOptions) {
		o.connecting = connecting
		o.connected = connected
	}
}

// WithPostDelay sets the simulated network delay for user posts.
func WithPostDelay(d time.Duration) MockOption {
	return func(o *mockOptions) { o.postDelay = d }
}

// WithClock replaces time.Now for activity timestamps.
func WithClock(now func() time.Time) MockOption {
	return func(o *mockOptions) { o.now = now }
}

func NewMock(opts ...MockOption) *Mock {
	o := mockOptions{
		connecting: defaultConnectingDelay,
		connected:  defaultConnectedDelay,
		postDelay:  defaultPostDelay,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.connected < o.connecting {
		o.connected = o.connecting
	}

	m := &Mock{
		hub:       &hub{},
		nextID:    1,
		postDelay: o.postDelay,
		now:       o.now,
	}

	// Connected is scheduled from the Connecting callback so the two can
	// never fire out of order.
	m.schedule(o.connecting, func() {
		m.advance(Connecting)
		m.schedule(o.connected-o.connecting, func() {
			m.advance(Connected)
		})
	})
	return m
}

func (m *Mock) schedule(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isClosed() {
		return
	}
	m.timers = append(m.timers, time.AfterFunc(d, fn))
}

func (m *Mock) newID(prefix string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprintf("%s-%d", prefix, m.nextID)
	m.nextID++
	return id
}

// append records a and delivers it. Emissions after End are dropped.
func (m *Mock) append(a activity.Activity) bool {
	return m.publish(a, func() {
		m.mu.Lock()
		m.history = append(m.history, a)
		m.mu.Unlock()
	})
}

// SessionID returns the fixed demo session id.
func (m *Mock) SessionID() string {
	return mockSessionID
}

// PostActivity accepts a user activity. The id is assigned immediately; the
// activity is appended after the post delay, then the outbound observers run.
func (m *Mock) PostActivity(ctx context.Context, a activity.Activity) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.isClosed() {
		return "", ErrEnded
	}

	id := m.newID("user")
	m.schedule(m.postDelay, func() {
		posted := a
		posted.ID = id
		posted.Timestamp = m.now()
		posted.From = activity.Account{ID: "user", Role: activity.RoleUser}
		if posted.Type == "" {
			posted.Type = activity.TypeMessage
		}
		if !m.append(posted) {
			return
		}

		m.mu.Lock()
		observers := slices.Clone(m.outbound)
		m.mu.Unlock()
		for _, fn := range observers {
			fn(posted)
		}
	})
	return id, nil
}

// PostUserText posts a plain text message on behalf of the user.
func (m *Mock) PostUserText(ctx context.Context, text string) (string, error) {
	return m.PostActivity(ctx, activity.Activity{Type: activity.TypeMessage, Text: text})
}

// OnUserActivity registers fn to run whenever a user post is accepted. fn
// runs outside delivery and may call the Emit methods.
func (m *Mock) OnUserActivity(fn func(activity.Activity)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outbound = append(m.outbound, fn)
}

func (m *Mock) botActivity(prefix string, typ activity.Type) activity.Activity {
	return activity.Activity{
		ID:        m.newID(prefix),
		Type:      typ,
		Timestamp: m.now(),
		From:      activity.Account{ID: "bot", Role: activity.RoleBot},
	}
}

// EmitBotMessage appends a complete bot activity. Missing id, timestamp,
// sender and type are filled in.
func (m *Mock) EmitBotMessage(partial activity.Activity) string {
	a := partial
	if a.ID == "" {
		a.ID = m.newID("bot")
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = m.now()
	}
	if a.From.Role == "" {
		a.From = activity.Account{ID: "bot", Role: activity.RoleBot}
	}
	if a.Type == "" {
		a.Type = activity.TypeMessage
	}
	m.append(a)
	return a.ID
}

// EmitTyping appends a plain typing signal with no stream metadata.
func (m *Mock) EmitTyping() string {
	a := m.botActivity("typing", activity.TypeTyping)
	m.append(a)
	return a.ID
}

// EmitStreamChunk appends one delta chunk of a streamed bot turn.
func (m *Mock) EmitStreamChunk(streamID string, sequence int, text string) string {
	a := m.botActivity("chunk", activity.TypeTyping)
	a.Text = text
	a.ChannelData = &activity.ChannelData{
		StreamType:     activity.StreamTypeStreaming,
		StreamID:       streamID,
		StreamSequence: sequence,
		ChunkType:      activity.ChunkTypeDelta,
	}
	m.append(a)
	return a.ID
}

// EmitStreamFinal appends the final message of a stream. It supersedes every
// chunk of that stream.
func (m *Mock) EmitStreamFinal(streamID, text string, attachments ...activity.Attachment) string {
	a := m.botActivity("bot", activity.TypeMessage)
	a.Text = text
	a.Attachments = attachments
	a.ChannelData = &activity.ChannelData{
		StreamType: activity.StreamTypeFinal,
		StreamID:   streamID,
	}
	m.append(a)
	return a.ID
}

// SimulateUserMessage appends a user message immediately, skipping the post
// delay and the outbound observers.
func (m *Mock) SimulateUserMessage(text string) string {
	a := activity.Activity{
		ID:        m.newID("user"),
		Type:      activity.TypeMessage,
		Timestamp: m.now(),
		From:      activity.Account{ID: "user", Role: activity.RoleUser},
		Text:      text,
	}
	m.append(a)
	return a.ID
}

// History returns every activity appended so far.
func (m *Mock) History() []activity.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]activity.Activity(nil), m.history...)
}

// End stops pending timers and closes the stream.
func (m *Mock) End() error {
	m.mu.Lock()
	for _, t := range m.timers {
		t.Stop()
	}
	m.timers = nil
	m.mu.Unlock()

	m.close()
	return nil
}
