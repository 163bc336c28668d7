package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"botchat/activity"
	"botchat/directline"
)

type activityMsg struct {
	Activity activity.Activity
}

type statusMsg struct {
	Status directline.ConnectionStatus
}

// feedBatchMsg carries everything a source delivered since the last wait.
// Gen ties the batch to the connection attempt that produced it.
type feedBatchMsg struct {
	Gen  int
	Msgs []tea.Msg
}

// feed queues source callbacks for the Bubble Tea loop. push never blocks,
// so a slow render cannot stall the source's delivery goroutine.
type feed struct {
	gen     int
	mu      sync.Mutex
	pending []tea.Msg
	notify  chan struct{}
}

func newFeed(gen int) *feed {
	return &feed{gen: gen, notify: make(chan struct{}, 1)}
}

func (f *feed) push(msg tea.Msg) {
	f.mu.Lock()
	f.pending = append(f.pending, msg)
	f.mu.Unlock()

	select {
	case f.notify <- struct{}{}:
	default:
	}
}

// attach subscribes the feed to both of src's streams.
func (f *feed) attach(src directline.Source) {
	src.SubscribeStatus(func(s directline.ConnectionStatus) {
		f.push(statusMsg{Status: s})
	})
	src.Subscribe(func(a activity.Activity) {
		f.push(activityMsg{Activity: a})
	})
}

// wait returns a command that blocks until something was pushed and then
// drains the queue.
func (f *feed) wait() tea.Cmd {
	return func() tea.Msg {
		<-f.notify
		f.mu.Lock()
		batch := f.pending
		f.pending = nil
		f.mu.Unlock()
		return feedBatchMsg{Gen: f.gen, Msgs: batch}
	}
}
