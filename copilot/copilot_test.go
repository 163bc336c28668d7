package copilot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"botchat/config"
	"botchat/directline"
)

func validSettings() Settings {
	return Settings{
		TenantID:        "tenant",
		AppClientID:     "client",
		EnvironmentID:   "env",
		AgentIdentifier: "agent",
		Endpoint:        "https://example.invalid/v3/directline",
	}
}

func TestValidate(t *testing.T) {
	if err := validSettings().Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	s := validSettings()
	s.TenantID = ""
	s.Endpoint = ""
	err := s.Validate()
	if !errors.Is(err, ErrMissingSetting) {
		t.Fatalf("Validate() = %v, want ErrMissingSetting", err)
	}
	if !strings.Contains(err.Error(), "tenant_id, endpoint") {
		t.Errorf("Validate() = %q, want both names", err)
	}
}

func TestSettingsFromConfig(t *testing.T) {
	s := SettingsFromConfig(config.M365Config{TenantID: " t ", AgentIdentifier: "a", Token: "ignored"})
	if s.TenantID != "t" || s.AgentIdentifier != "a" {
		t.Errorf("SettingsFromConfig() = %+v", s)
	}
	if s.Authority() != "https://login.microsoftonline.com/t" {
		t.Errorf("Authority() = %q", s.Authority())
	}
}

func TestStaticToken(t *testing.T) {
	if _, err := StaticToken("").Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Errorf("empty StaticToken error = %v", err)
	}
	tok, err := StaticToken("abc").Token(context.Background())
	if err != nil || tok != "abc" {
		t.Errorf("Token() = %q, %v", tok, err)
	}
}

func TestDialerFailsBeforeNetwork(t *testing.T) {
	called := false
	tokens := TokenFunc(func(ctx context.Context) (string, error) {
		called = true
		return "tok", nil
	})

	_, err := Dialer(Settings{}, tokens, "user")(context.Background())
	if !errors.Is(err, ErrMissingSetting) {
		t.Errorf("dial error = %v, want ErrMissingSetting", err)
	}
	if called {
		t.Error("token acquired despite invalid settings")
	}

	_, err = Dialer(validSettings(), StaticToken(""), "user")(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("dial error = %v, want ErrNoToken", err)
	}
}

func TestDialerConnects(t *testing.T) {
	var gotAuth string
	upgrader := websocket.Upgrader{}
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v3/directline/conversations", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{
			"conversationId": "c1",
			"streamUrl":      "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream",
		})
	})
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	s := validSettings()
	s.Endpoint = srv.URL + "/v3/directline"
	src, err := Dialer(s, StaticToken("user-token"), "user")(context.Background())
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer src.End()

	if gotAuth != "Bearer user-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	var status directline.ConnectionStatus
	src.SubscribeStatus(func(s directline.ConnectionStatus) { status = s })
	if status != directline.Connected {
		t.Errorf("status = %v, want Connected", status)
	}
}
