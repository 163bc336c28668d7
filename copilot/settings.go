// Package copilot connects to a Microsoft 365 Copilot Studio agent.
//
// The agent is reached through its Direct Line compatible endpoint with a
// bearer token. Obtaining that token (the interactive sign-in against
// Entra ID) is left to a TokenSource supplied by the caller.
package copilot

import (
	"errors"
	"fmt"
	"strings"

	"botchat/config"
)

// Scope is the permission a token must carry to talk to the agent.
const Scope = "https://api.powerplatform.com/.default"

var ErrMissingSetting = errors.New("missing copilot setting")

// Settings identify one Copilot Studio agent.
type Settings struct {
	TenantID        string
	AppClientID     string
	EnvironmentID   string
	AgentIdentifier string
	Endpoint        string
}

func SettingsFromConfig(c config.M365Config) Settings {
	return Settings{
		TenantID:        strings.TrimSpace(c.TenantID),
		AppClientID:     strings.TrimSpace(c.AppClientID),
		EnvironmentID:   strings.TrimSpace(c.EnvironmentID),
		AgentIdentifier: strings.TrimSpace(c.AgentIdentifier),
		Endpoint:        strings.TrimSpace(c.Endpoint),
	}
}

// Validate reports every empty setting in a single error wrapping
// ErrMissingSetting.
func (s Settings) Validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"tenant_id", s.TenantID},
		{"app_client_id", s.AppClientID},
		{"environment_id", s.EnvironmentID},
		{"agent_identifier", s.AgentIdentifier},
		{"endpoint", s.Endpoint},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
	}
	return nil
}

// Authority is the sign-in authority for the tenant.
func (s Settings) Authority() string {
	return "https://login.microsoftonline.com/" + s.TenantID
}
