package copilot

import (
	"context"
	"errors"
)

var ErrNoToken = errors.New("no copilot access token")

// TokenSource yields a bearer token carrying Scope.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a token acquired ahead of time, for example by the Azure
// CLI.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	if t == "" {
		return "", ErrNoToken
	}
	return string(t), nil
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}
