package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"botchat/activity"
	"botchat/config"
	"botchat/directline"
	"botchat/storage"
	"botchat/transcript"
)

type connectedMsg struct {
	Gen  int
	Src  directline.Source
	Feed *feed
	Err  error
}

type postResultMsg struct {
	Err error
}

type exportResultMsg struct {
	Path string
	Err  error
}

type typingTickMsg struct{}

func typingTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return typingTickMsg{}
	})
}

// connect dials through the Connection and subscribes a fresh feed before
// handing the source to Update.
func (a AppView) connect() tea.Cmd {
	conn, ctx, gen := a.conn, a.ctx, a.gen
	return func() tea.Msg {
		src, err := conn.Get(ctx)
		if err != nil {
			return connectedMsg{Gen: gen, Err: err}
		}
		f := newFeed(gen)
		f.attach(src)
		return connectedMsg{Gen: gen, Src: src, Feed: f}
	}
}

func (a AppView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.layout()
		a.refreshViewport()
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.dots, cmd = a.dots.Update(msg)
		if a.model.IsBotThinking {
			a.refreshViewport()
		}
		return a, cmd

	case connectedMsg:
		return a.handleConnected(msg)

	case feedBatchMsg:
		if msg.Gen != a.gen || a.feed == nil {
			return a, nil
		}
		a.applyFeed(msg.Msgs)
		return a, a.feed.wait()

	case typingTickMsg:
		if a.phase == phaseReady {
			a.model = a.builder.Refresh(a.reconcileOptions())
			a.layout()
			a.refreshViewport()
		}
		return a, typingTick()

	case postResultMsg:
		if msg.Err != nil {
			a.notice = fmt.Sprintf("Send failed: %v", msg.Err)
		}
		return a, nil

	case exportResultMsg:
		if msg.Err != nil {
			a.notice = fmt.Sprintf("Export failed: %v", msg.Err)
		} else {
			a.notice = "Exported to " + msg.Path
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

func (a AppView) handleConnected(msg connectedMsg) (AppView, tea.Cmd) {
	if msg.Gen != a.gen {
		return a, nil
	}
	if msg.Err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[ui] connect to %s failed: %v", a.opts.Backend, msg.Err)
		}
		a.phase = phaseFailed
		a.connErr = msg.Err
		return a, nil
	}

	a.phase = phaseReady
	a.src = msg.Src
	a.feed = msg.Feed
	a.conversationID = conversationIDOf(msg.Src)

	if a.opts.Log != nil {
		if err := a.opts.Log.StartConversation(a.conversationID, a.opts.Backend); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[ui] failed to log conversation start: %v", err)
		}
	}
	if config.DebugLog != nil {
		config.DebugLog.Printf("[ui] connected to %s, conversation %s", a.opts.Backend, a.conversationID)
	}

	a.layout()
	a.refreshViewport()
	return a, a.feed.wait()
}

// conversationIDOf asks the source for its conversation id and falls back
// to a fresh one.
func conversationIDOf(src directline.Source) string {
	switch s := src.(type) {
	case interface{ ConversationID() string }:
		if id := s.ConversationID(); id != "" {
			return id
		}
	case interface{ SessionID() string }:
		if id := s.SessionID(); id != "" {
			return id + "-" + storage.NewConversationID()
		}
	}
	return storage.NewConversationID()
}

func (a AppView) reconcileOptions() transcript.Options {
	return transcript.Options{TypingTimeout: a.opts.TypingTimeout, Now: time.Now()}
}

// applyFeed folds a batch of source callbacks into the view. Activities are
// reconciled once per batch.
func (a *AppView) applyFeed(msgs []tea.Msg) {
	var acts []activity.Activity
	for _, m := range msgs {
		switch m := m.(type) {
		case statusMsg:
			a.status = m.Status
			switch {
			case m.Status == directline.Ended:
				a.notice = "Conversation ended"
			case m.Status.Terminal():
				a.phase = phaseFailed
				a.connErr = fmt.Errorf("connection status: %s", m.Status)
			}
		case activityMsg:
			acts = append(acts, m.Activity)
			a.persist(m.Activity)
		}
	}
	if len(acts) == 0 {
		return
	}

	a.model = a.builder.Append(acts...)
	if a.opts.TypingTimeout > 0 {
		a.model = a.builder.Refresh(a.reconcileOptions())
	}
	a.layout()
	a.refreshViewport()
}

func (a *AppView) persist(act activity.Activity) {
	if a.opts.Log == nil {
		return
	}
	if err := a.opts.Log.Append(a.conversationID, act); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[ui] failed to log activity %s: %v", act.ID, err)
	}
}

func (a AppView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch a.phase {
	case phaseConnecting:
		switch key {
		case "q", "ctrl+c", "alt+q":
			return a, tea.Quit
		}
		return a, nil
	case phaseFailed:
		switch key {
		case "r":
			return a.retry()
		case "q", "esc", "ctrl+c", "alt+q":
			return a, tea.Quit
		}
		return a, nil
	}

	if a.showHelp {
		switch key {
		case "esc", "alt+h":
			a.showHelp = false
		case "ctrl+c", "alt+q":
			return a, tea.Quit
		}
		return a, nil
	}

	if a.search.active {
		return a.handleSearchKey(msg)
	}

	a.notice = ""

	switch key {
	case "ctrl+c", "alt+q":
		return a, tea.Quit

	case "alt+h":
		a.showHelp = true
		return a, nil

	case "enter":
		return a.send(a.textarea.Value(), true)

	case "ctrl+y":
		last, ok := a.model.LastBotMessage()
		if !ok {
			a.notice = "No bot reply to copy"
			return a, nil
		}
		if err := clipboard.WriteAll(last.Text); err != nil {
			a.notice = fmt.Sprintf("Copy failed: %v", err)
			return a, nil
		}
		a.notice = "Copied last reply"
		return a, nil

	case "alt+y":
		if err := clipboard.WriteAll(plainTranscript(a.model)); err != nil {
			a.notice = fmt.Sprintf("Copy failed: %v", err)
			return a, nil
		}
		a.notice = "Copied conversation"
		return a, nil

	case "alt+x":
		return a, a.export()

	case "alt+f":
		return a.openSearch()

	case "alt+j", "alt+down":
		a.viewport.HalfPageDown()
		return a, nil

	case "alt+k", "alt+up":
		a.viewport.HalfPageUp()
		return a, nil

	case "alt+J", "pgdown":
		a.viewport.PageDown()
		return a, nil

	case "alt+K", "pgup":
		a.viewport.PageUp()
		return a, nil

	case "alt+g":
		a.viewport.GotoTop()
		return a, nil

	case "alt+G":
		a.viewport.GotoBottom()
		return a, nil
	}

	if n, ok := actionIndex(key); ok {
		if n >= len(a.model.SuggestedActions) {
			return a, nil
		}
		return a.send(actionText(a.model.SuggestedActions[n]), false)
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

// actionIndex maps alt+1..alt+9 to a zero-based suggested action index.
func actionIndex(key string) (int, bool) {
	if len(key) != 5 || !strings.HasPrefix(key, "alt+") {
		return 0, false
	}
	d := key[4]
	if d < '1' || d > '9' {
		return 0, false
	}
	return int(d - '1'), true
}

// actionText is what a suggested action posts: its value, or its title when
// it has none.
func actionText(act activity.CardAction) string {
	if act.Value != "" {
		return act.Value
	}
	return act.Title
}

// send posts trimmed text without waiting for the echo. The message appears
// once the source delivers it back.
func (a AppView) send(text string, fromInput bool) (AppView, tea.Cmd) {
	text = strings.TrimSpace(text)
	if text == "" || a.src == nil {
		return a, nil
	}
	if fromInput {
		a.textarea.Reset()
	}

	src, ctx := a.src, a.ctx
	return a, func() tea.Msg {
		_, err := src.PostActivity(ctx, activity.Activity{Type: activity.TypeMessage, Text: text})
		return postResultMsg{Err: err}
	}
}

func (a AppView) export() tea.Cmd {
	model, convID := a.model, a.conversationID
	title := ""
	for _, m := range model.Messages {
		if m.Role == activity.RoleUser {
			title = m.Text
			break
		}
	}
	path := storage.GenerateExportPath(storage.GenerateTitle(title))
	return func() tea.Msg {
		return exportResultMsg{Path: path, Err: storage.ExportTranscript(path, convID, model)}
	}
}

// retry drops the failed source and dials again with an empty transcript.
func (a AppView) retry() (AppView, tea.Cmd) {
	a.conn.Reset()
	if err := a.conn.Close(); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[ui] closing failed source: %v", err)
	}

	a.gen++
	a.phase = phaseConnecting
	a.connErr = nil
	a.src = nil
	a.feed = nil
	a.status = directline.Uninitialized
	a.conversationID = ""
	a.builder = transcript.NewBuilder(a.reconcileOptions())
	a.model = transcript.RenderModel{}
	a.rendered = make(map[string]string)
	a.last = scrollSnapshot{}
	a.notice = ""

	return a, a.connect()
}

func plainTranscript(m transcript.RenderModel) string {
	var b strings.Builder
	for _, msg := range m.Messages {
		role := "Bot"
		if msg.Role == activity.RoleUser {
			role = "You"
		}
		b.WriteString(fmt.Sprintf("%s %s:\n%s\n\n", formatTimestamp(msg.Timestamp), role, msg.Text))
	}
	return strings.TrimRight(b.String(), "\n")
}
