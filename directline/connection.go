package directline

import (
	"context"
	"sync"
)

type connState int

const (
	stateIdle connState = iota
	stateInitializing
	stateReady
	stateFailed
)

func (s connState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateInitializing:
		return "initializing"
	case stateReady:
		return "ready"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

// Connection owns the one Source of a chat view. It dials at most once: a
// second Get while the first is still dialing waits for that same result
// instead of opening another conversation.
type Connection struct {
	dial DialFunc

	mu    sync.Mutex
	state connState
	src   Source
	err   error
	done  chan struct{}
}

func NewConnection(dial DialFunc) *Connection {
	return &Connection{dial: dial}
}

// Get returns the connected source, dialing on first use.
func (c *Connection) Get(ctx context.Context) (Source, error) {
	c.mu.Lock()
	switch c.state {
	case stateReady:
		src := c.src
		c.mu.Unlock()
		return src, nil
	case stateFailed:
		err := c.err
		c.mu.Unlock()
		return nil, err
	case stateInitializing:
		done := c.done
		c.mu.Unlock()
		select {
		case <-done:
			return c.result()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.state = stateInitializing
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	src, err := c.dial(ctx)

	c.mu.Lock()
	if err != nil {
		c.state = stateFailed
		c.err = err
		c.src = nil
	} else {
		c.state = stateReady
		c.src = src
		c.err = nil
	}
	close(done)
	c.mu.Unlock()

	return src, err
}

func (c *Connection) result() (Source, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateFailed {
		return nil, c.err
	}
	return c.src, nil
}

// Reset makes a failed connection dialable again. It reports whether the
// connection was failed.
func (c *Connection) Reset() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateFailed {
		return false
	}
	c.state = stateIdle
	c.err = nil
	return true
}

// Close ends the source if one is connected and returns the connection to
// idle.
func (c *Connection) Close() error {
	c.mu.Lock()
	src := c.src
	if c.state == stateReady {
		c.state = stateIdle
		c.src = nil
	}
	c.mu.Unlock()

	if src == nil {
		return nil
	}
	return src.End()
}

// State returns a short description of the connection state.
func (c *Connection) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.String()
}
