package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points HOME at a temp dir and clears every BOTCHAT_ variable.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, "BOTCHAT_") {
			t.Setenv(name, "")
		}
	}
	return home
}

func TestLoadCreatesDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !FileExists(filepath.Join(home, ".config", "botchat", "settings.toml")) {
		t.Error("settings.toml not created")
	}
	if !FileExists(UserConfigPath(cfg.DataDir())) {
		t.Error("config.toml not created")
	}
	if cfg.Backend != BackendDemo {
		t.Errorf("Backend = %q, want %q", cfg.Backend, BackendDemo)
	}
	if cfg.Demo.Responder != ResponderCanned {
		t.Errorf("Demo.Responder = %q", cfg.Demo.Responder)
	}
	if !cfg.UI.Persist {
		t.Error("UI.Persist = false, want true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}

	// The generated template must decode back to the defaults.
	again, err := Load()
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if again.Backend != cfg.Backend || again.Ollama != cfg.Ollama || again.Demo != cfg.Demo || again.UI != cfg.UI {
		t.Errorf("template round trip = %+v, want %+v", again, cfg)
	}
}

func TestLoadUserConfigFile(t *testing.T) {
	isolate(t)
	dataDir := t.TempDir()
	t.Setenv("BOTCHAT_DATA_DIR", dataDir)

	content := `
backend = "directline"

[directline]
secret = "from-file"

[ui]
typing_timeout_seconds = 5
`
	if err := os.WriteFile(UserConfigPath(dataDir), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DataDir() != dataDir {
		t.Errorf("DataDir() = %q, want %q", cfg.DataDir(), dataDir)
	}
	if cfg.Backend != BackendDirectLine || cfg.DirectLine.Secret != "from-file" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.TypingTimeout() != 5*time.Second {
		t.Errorf("TypingTimeout() = %v, want 5s", cfg.TypingTimeout())
	}
	// Keys absent from the file keep their defaults.
	if cfg.Ollama.Host != "http://localhost:11434" {
		t.Errorf("Ollama.Host = %q, want default", cfg.Ollama.Host)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	isolate(t)
	dataDir := t.TempDir()
	t.Setenv("BOTCHAT_DATA_DIR", dataDir)
	if err := os.WriteFile(UserConfigPath(dataDir), []byte("backend = \"directline\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BOTCHAT_BACKEND", "m365")
	t.Setenv("BOTCHAT_TENANT_ID", "tenant")
	t.Setenv("BOTCHAT_M365_TOKEN", "tok")
	t.Setenv("BOTCHAT_OLLAMA_MODEL", "qwen3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backend != BackendM365 {
		t.Errorf("Backend = %q, want m365", cfg.Backend)
	}
	if cfg.M365.TenantID != "tenant" || cfg.M365.Token != "tok" {
		t.Errorf("M365 = %+v", cfg.M365)
	}
	if cfg.Ollama.Model != "qwen3" {
		t.Errorf("Ollama.Model = %q", cfg.Ollama.Model)
	}
}

func TestLoadRejectsBrokenToml(t *testing.T) {
	isolate(t)
	dataDir := t.TempDir()
	t.Setenv("BOTCHAT_DATA_DIR", dataDir)
	if err := os.WriteFile(UserConfigPath(dataDir), []byte("backend = "), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "failed to load user config") {
		t.Errorf("Load() error = %v, want parse failure", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "BOTCHAT_DIRECTLINE_SECRET=dotenv-secret\nBOTCHAT_BACKEND=directline\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("BOTCHAT_DIRECTLINE_SECRET")
	})
	// Already-set variables win over the file.
	t.Setenv("BOTCHAT_BACKEND", "demo")
	os.Unsetenv("BOTCHAT_DIRECTLINE_SECRET")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("BOTCHAT_DIRECTLINE_SECRET"); got != "dotenv-secret" {
		t.Errorf("BOTCHAT_DIRECTLINE_SECRET = %q", got)
	}
	if got := os.Getenv("BOTCHAT_BACKEND"); got != "demo" {
		t.Errorf("BOTCHAT_BACKEND = %q, want demo", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"demo canned", Config{Backend: BackendDemo, Demo: DemoConfig{Responder: ResponderCanned}}, ""},
		{"demo ollama", Config{Backend: BackendDemo, Demo: DemoConfig{Responder: ResponderOllama}}, ""},
		{"demo unknown responder", Config{Backend: BackendDemo, Demo: DemoConfig{Responder: "gpt"}}, "unknown demo responder"},
		{"directline without secret", Config{Backend: BackendDirectLine}, "needs a secret"},
		{"directline", Config{Backend: BackendDirectLine, DirectLine: DirectLineConfig{Secret: "s"}}, ""},
		{"m365", Config{Backend: BackendM365}, ""},
		{"unknown", Config{Backend: "irc"}, "unknown backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home := isolate(t)
	t.Setenv("BOTCHAT_TEST_DIR", "sub")

	tests := map[string]string{
		"":                         "",
		"~":                        home,
		"~/chats":                  filepath.Join(home, "chats"),
		"/tmp/$BOTCHAT_TEST_DIR/x": "/tmp/sub/x",
	}
	for in, want := range tests {
		if got := ExpandPath(in); got != want {
			t.Errorf("ExpandPath(%q) = %q, want %q", in, got, want)
		}
	}
}
