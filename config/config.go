package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendDemo       = "demo"
	BackendDirectLine = "directline"
	BackendM365       = "m365"

	ResponderCanned = "canned"
	ResponderOllama = "ollama"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type DirectLineConfig struct {
	Secret string `toml:"secret,omitempty"`
	Domain string `toml:"domain,omitempty"`
	UserID string `toml:"user_id,omitempty"`
	Locale string `toml:"locale,omitempty"`
}

type M365Config struct {
	TenantID        string `toml:"tenant_id,omitempty"`
	AppClientID     string `toml:"app_client_id,omitempty"`
	EnvironmentID   string `toml:"environment_id,omitempty"`
	AgentIdentifier string `toml:"agent_identifier,omitempty"`
	Endpoint        string `toml:"endpoint,omitempty"`
	// Token is a pre-acquired bearer token. Sign-in itself happens outside
	// botchat.
	Token string `toml:"token,omitempty"`
}

type OllamaConfig struct {
	Host  string `toml:"host"`
	Model string `toml:"model"`
}

type DemoConfig struct {
	Responder string `toml:"responder"`
	PaceMS    int    `toml:"pace_ms"`
}

type UIConfig struct {
	TypingTimeoutSeconds int  `toml:"typing_timeout_seconds"`
	Persist              bool `toml:"persist"`
}

type UserConfig struct {
	Backend    string           `toml:"backend"`
	DirectLine DirectLineConfig `toml:"directline"`
	M365       M365Config       `toml:"m365"`
	Ollama     OllamaConfig     `toml:"ollama"`
	Demo       DemoConfig       `toml:"demo"`
	UI         UIConfig         `toml:"ui"`
}

type Config struct {
	DataDirectory string
	Backend       string
	DirectLine    DirectLineConfig
	M365          M365Config
	Ollama        OllamaConfig
	Demo          DemoConfig
	UI            UIConfig
}

var DebugLog *log.Logger

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// TypingTimeout returns how long a typing indicator stays up without a
// following message. Zero disables the timeout.
func (c *Config) TypingTimeout() time.Duration {
	if c.UI.TypingTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.UI.TypingTimeoutSeconds) * time.Second
}

func (c *Config) DemoPace() time.Duration {
	if c.Demo.PaceMS <= 0 {
		return 0
	}
	return time.Duration(c.Demo.PaceMS) * time.Millisecond
}

// Validate checks that the selected backend has what it needs to start.
// Copilot settings are checked in full when the connection is dialed.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendDemo:
		switch c.Demo.Responder {
		case ResponderCanned, ResponderOllama:
		default:
			return fmt.Errorf("unknown demo responder %q (want %s or %s)", c.Demo.Responder, ResponderCanned, ResponderOllama)
		}
	case BackendDirectLine:
		if c.DirectLine.Secret == "" {
			return fmt.Errorf("directline backend needs a secret (set BOTCHAT_DIRECTLINE_SECRET)")
		}
	case BackendM365:
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s or %s)", c.Backend, BackendDemo, BackendDirectLine, BackendM365)
	}
	return nil
}

func (c *Config) applyUserConfig(u *UserConfig) {
	c.Backend = u.Backend
	c.DirectLine = u.DirectLine
	c.M365 = u.M365
	c.Ollama = u.Ollama
	c.Demo = u.Demo
	c.UI = u.UI
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env string
		dst *string
	}{
		{"BOTCHAT_BACKEND", &c.Backend},
		{"BOTCHAT_DATA_DIR", &c.DataDirectory},
		{"BOTCHAT_DIRECTLINE_SECRET", &c.DirectLine.Secret},
		{"BOTCHAT_DIRECTLINE_DOMAIN", &c.DirectLine.Domain},
		{"BOTCHAT_TENANT_ID", &c.M365.TenantID},
		{"BOTCHAT_APP_CLIENT_ID", &c.M365.AppClientID},
		{"BOTCHAT_ENVIRONMENT_ID", &c.M365.EnvironmentID},
		{"BOTCHAT_AGENT_IDENTIFIER", &c.M365.AgentIdentifier},
		{"BOTCHAT_M365_ENDPOINT", &c.M365.Endpoint},
		{"BOTCHAT_M365_TOKEN", &c.M365.Token},
		{"BOTCHAT_OLLAMA_HOST", &c.Ollama.Host},
		{"BOTCHAT_OLLAMA_MODEL", &c.Ollama.Model},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

func CheckDebug() bool {
	debug := os.Getenv("BOTCHAT_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	logPath := filepath.Join(dataDir, "debug.log")

	// 0600: the log can contain activity text
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (BOTCHAT_DEBUG=%s) ===", os.Getenv("BOTCHAT_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

// LoadDotEnv loads KEY=value pairs from the given files (".env" when none is
// given) into the environment. Missing files are not an error and variables
// that are already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
		if DebugLog != nil {
			DebugLog.Printf("Loaded environment from %s", p)
		}
	}
	return nil
}

// Load builds the configuration from defaults, the settings files and the
// environment, in that order. The settings files are created from templates
// when missing.
func Load() (*Config, error) {
	cfg := &Config{DataDirectory: DefaultSystemConfig().DataDirectory}
	cfg.applyUserConfig(DefaultUserConfig())

	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}
	cfg.DataDirectory = systemCfg.DataDirectory
	if dataDir := os.Getenv("BOTCHAT_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.applyUserConfig(userCfg)
	cfg.applyEnvOverrides()

	return cfg, nil
}
