package copilot

import (
	"context"
	"fmt"

	"botchat/config"
	"botchat/directline"
)

// Dialer returns a DialFunc that validates the settings, acquires a token
// and opens a Direct Line conversation with the agent.
func Dialer(s Settings, tokens TokenSource, userID string) directline.DialFunc {
	return func(ctx context.Context) (directline.Source, error) {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		token, err := tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire copilot token: %w", err)
		}

		if config.DebugLog != nil {
			config.DebugLog.Printf("[copilot] connecting to agent %s in environment %s", s.AgentIdentifier, s.EnvironmentID)
		}

		client, err := directline.Dial(ctx, directline.ClientConfig{
			Domain: s.Endpoint,
			Token:  token,
			UserID: userID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to copilot agent %s: %w", s.AgentIdentifier, err)
		}
		return client, nil
	}
}
