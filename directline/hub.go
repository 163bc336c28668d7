package directline

import (
	"slices"
	"sync"

	"botchat/activity"
)

// hub fans activities and status changes out to subscribers. Deliveries are
// serialized so every subscriber sees the same order.
type hub struct {
	deliver sync.Mutex // held for the whole of a delivery

	mu         sync.Mutex
	status     ConnectionStatus
	subs       []func(activity.Activity)
	statusSubs []func(ConnectionStatus)
	closed     bool

	// hold keeps activities published before the first subscriber and
	// hands them to it on Subscribe.
	hold    bool
	pending []activity.Activity
}

func (h *hub) Subscribe(fn func(activity.Activity)) {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.Lock()
	h.subs = append(h.subs, fn)
	pending := h.pending
	h.pending = nil
	h.mu.Unlock()

	for _, a := range pending {
		fn(a)
	}
}

func (h *hub) SubscribeStatus(fn func(ConnectionStatus)) {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.Lock()
	h.statusSubs = append(h.statusSubs, fn)
	current := h.status
	h.mu.Unlock()

	fn(current)
}

// Status returns the current connection status.
func (h *hub) Status() ConnectionStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// publish delivers a to all subscribers. record, if set, runs first inside
// the same delivery so that callers can keep a log in delivery order. It
// returns false once the hub is closed.
func (h *hub) publish(a activity.Activity, record func()) bool {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	subs := slices.Clone(h.subs)
	if len(subs) == 0 && h.hold {
		h.pending = append(h.pending, a)
	}
	h.mu.Unlock()

	if record != nil {
		record()
	}
	for _, fn := range subs {
		fn(a)
	}
	return true
}

// advance moves the status forward. Transitions that would go backwards, or
// that arrive after Ended, are dropped.
func (h *hub) advance(to ConnectionStatus) bool {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.Lock()
	if to <= h.status || h.status == Ended {
		h.mu.Unlock()
		return false
	}
	h.status = to
	subs := slices.Clone(h.statusSubs)
	h.mu.Unlock()

	for _, fn := range subs {
		fn(to)
	}
	return true
}

// close stops activity delivery and moves the status to Ended. It reports
// whether this call did the closing.
func (h *hub) close() bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.closed = true
	h.mu.Unlock()

	h.advance(Ended)
	return true
}

func (h *hub) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}
