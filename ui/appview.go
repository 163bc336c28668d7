package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"botchat/directline"
	"botchat/storage"
	"botchat/transcript"
)

type phase int

const (
	phaseConnecting phase = iota
	phaseReady
	phaseFailed
)

// Options configure a chat view.
type Options struct {
	// Backend names the source in the title bar and the activity log.
	Backend string
	// TypingTimeout expires stale bot typing signals. Zero keeps them until
	// the next bot message.
	TypingTimeout time.Duration
	// Log receives every activity when non-nil.
	Log *storage.ActivityLog
}

// AppView is the chat view over one Connection.
type AppView struct {
	ctx  context.Context
	conn *directline.Connection
	opts Options

	// Connection state
	phase   phase
	connErr error
	src     directline.Source
	status  directline.ConnectionStatus
	feed    *feed
	gen     int

	conversationID string

	// Transcript state
	builder *transcript.Builder
	model   transcript.RenderModel
	last    scrollSnapshot

	// UI Components
	viewport viewport.Model
	textarea textarea.Model
	dots     spinner.Model

	// Window state
	width  int
	height int
	ready  bool

	showHelp bool
	search   searchState
	notice   string

	// messageLines holds the first viewport line of each message.
	messageLines []int

	// rendered caches markdown output per message id at renderedWidth.
	rendered      map[string]string
	renderedWidth int
}

func NewAppView(ctx context.Context, conn *directline.Connection, opts Options) AppView {
	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.SetWidth(80)

	// Alt+Enter for newline, Enter sends
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))

	ta.SetPromptFunc(2, func(lineIdx int) string {
		if lineIdx == 0 {
			return "> "
		}
		return "| "
	})

	dots := spinner.New()
	dots.Spinner = spinner.Points
	dots.Style = BotStyle

	return AppView{
		ctx:      ctx,
		conn:     conn,
		opts:     opts,
		builder:  transcript.NewBuilder(transcript.Options{TypingTimeout: opts.TypingTimeout, Now: time.Now()}),
		viewport: viewport.New(0, 0),
		textarea: ta,
		dots:     dots,
		search:   searchState{input: newSearchInput()},
		rendered: make(map[string]string),
	}
}

func (a AppView) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textarea.Blink,
		a.dots.Tick,
		a.connect(),
	}
	if a.opts.TypingTimeout > 0 {
		cmds = append(cmds, typingTick())
	}
	return tea.Batch(cmds...)
}

// Model returns the current render model.
func (a AppView) Model() transcript.RenderModel {
	return a.model
}

// ConversationID returns the id activities are logged under, empty until
// connected.
func (a AppView) ConversationID() string {
	return a.conversationID
}

func (a AppView) View() string {
	if !a.ready {
		return "Loading botchat..."
	}

	switch a.phase {
	case phaseConnecting:
		return renderConnecting(a.dots.View(), a.opts.Backend, a.width, a.height)
	case phaseFailed:
		return renderConnectionError(a.connErr, a.width, a.height)
	}

	if a.showHelp {
		return renderHelpModal(a.width, a.height)
	}

	if a.search.active {
		return a.renderMessageSearch()
	}

	title := BotStyle.Render("botchat") +
		TitleStyle.Render(fmt.Sprintf(" - %s", a.opts.Backend)) +
		DimStyle.Render(fmt.Sprintf(" | %s", a.status))

	parts := []string{title, "", a.viewport.View()}
	if actions := renderSuggestedActions(a.model.SuggestedActions, a.width); actions != "" {
		parts = append(parts, actions)
	}
	parts = append(parts, a.textarea.View())

	descStyle := lipgloss.NewStyle().Foreground(successColor).Bold(true)
	statusBar := fmt.Sprintf("Alt+Q %s  Enter %s  Alt+Enter %s  Alt+1-9 %s  Ctrl+Y %s  Alt+F %s  Alt+H %s",
		descStyle.Render("Quit"),
		descStyle.Render("Send"),
		descStyle.Render("New Line"),
		descStyle.Render("Reply"),
		descStyle.Render("Copy"),
		descStyle.Render("Search"),
		descStyle.Render("Help"),
	)
	if a.notice != "" {
		statusBar = NoticeStyle.Render(a.notice)
	}
	parts = append(parts, StatusStyle.Render(statusBar))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// chromeHeight is the number of lines around the viewport.
func (a AppView) chromeHeight() int {
	// title, separator, textarea (3), status bar
	h := 6
	if len(a.model.SuggestedActions) > 0 {
		h += 3
	}
	return h
}

func (a *AppView) layout() {
	h := a.height - a.chromeHeight()
	if h < 1 {
		h = 1
	}
	a.viewport.Width = a.width
	a.viewport.Height = h
	a.textarea.SetWidth(a.width)
}
