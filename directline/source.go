// Package directline connects the chat view to a bot channel.
//
// A Source produces the conversation's activity stream in arrival order and
// accepts outbound user activities. Three implementations exist: the Direct
// Line client (also used for Copilot Studio), and Mock, an in-memory source
// for demos and tests.
package directline

import (
	"context"
	"errors"
	"fmt"

	"botchat/activity"
)

var (
	// ErrEnded is returned by operations on a source after End.
	ErrEnded = errors.New("conversation ended")
	// ErrNotConnected is returned when posting before the source is connected.
	ErrNotConnected = errors.New("not connected")
)

// ConnectionStatus mirrors the Direct Line connection states. Values only ever
// move forward on a given source.
type ConnectionStatus int

const (
	Uninitialized ConnectionStatus = iota
	Connecting
	Connected
	ExpiredToken
	FailedToConnect
	Ended
)

func (s ConnectionStatus) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case ExpiredToken:
		return "ExpiredToken"
	case FailedToConnect:
		return "FailedToConnect"
	case Ended:
		return "Ended"
	}
	return fmt.Sprintf("ConnectionStatus(%d)", int(s))
}

// Terminal reports whether the source can no longer deliver activities.
func (s ConnectionStatus) Terminal() bool {
	return s == ExpiredToken || s == FailedToConnect || s == Ended
}

// Source is a bidirectional activity channel.
//
// Subscribers are called one at a time in append order and must not call back
// into the source synchronously.
type Source interface {
	// Subscribe registers fn for every activity appended after the call.
	Subscribe(fn func(activity.Activity))

	// SubscribeStatus registers fn for connection status changes. fn is called
	// immediately with the current status.
	SubscribeStatus(fn func(ConnectionStatus))

	// PostActivity sends a user activity and returns its id. The activity
	// shows up in the stream once the channel accepts it.
	PostActivity(ctx context.Context, a activity.Activity) (string, error)

	// End closes the conversation.
	End() error
}

// DialFunc creates a connected Source.
type DialFunc func(ctx context.Context) (Source, error)
