package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"botchat/config"
	"botchat/copilot"
	"botchat/demo"
	"botchat/directline"
	"botchat/ui"
)

var chatFlags struct {
	backend       string
	responder     string
	typingTimeout time.Duration
	noPersist     bool
}

func init() {
	rootCmd.AddCommand(chatCmd)
	addChatFlags(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start a conversation (the default command)",
	RunE:  runChat,
}

func addChatFlags(c *cobra.Command) {
	c.Flags().StringVarP(&chatFlags.backend, "backend", "b", "", "backend: demo, directline or m365")
	c.Flags().StringVar(&chatFlags.responder, "responder", "", "demo responder: canned or ollama")
	c.Flags().DurationVar(&chatFlags.typingTimeout, "typing-timeout", 0, "hide typing indicators older than this (0 keeps them)")
	c.Flags().BoolVar(&chatFlags.noPersist, "no-persist", false, "do not record the conversation")
}

// applyChatFlags lets explicitly set flags win over settings and environment.
func applyChatFlags(c *cobra.Command) {
	if c.Flags().Changed("backend") {
		cfg.Backend = chatFlags.backend
	}
	if c.Flags().Changed("responder") {
		cfg.Demo.Responder = chatFlags.responder
	}
	if c.Flags().Changed("typing-timeout") {
		cfg.UI.TypingTimeoutSeconds = int(chatFlags.typingTimeout / time.Second)
	}
	if chatFlags.noPersist {
		cfg.UI.Persist = false
	}
}

func runChat(c *cobra.Command, args []string) error {
	applyChatFlags(c)

	if err := cfg.Validate(); err != nil {
		showError("Configuration Error", err.Error())
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dial, err := dialerFor(ctx, cfg)
	if err != nil {
		showError("Configuration Error", err.Error())
		return nil
	}

	opts := ui.Options{Backend: cfg.Backend, TypingTimeout: cfg.TypingTimeout()}
	if cfg.UI.Persist {
		log, err := openLog()
		if err != nil {
			return err
		}
		defer log.Close()
		opts.Log = log
	}

	conn := directline.NewConnection(dial)
	defer func() {
		if err := conn.Close(); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[cmd] closing connection: %v", err)
		}
	}()

	p := tea.NewProgram(ui.NewAppView(ctx, conn, opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running botchat: %w", err)
	}
	return nil
}

// dialerFor builds the DialFunc of the configured backend. ctx bounds the
// demo bot's lifetime.
func dialerFor(ctx context.Context, cfg *config.Config) (directline.DialFunc, error) {
	switch cfg.Backend {
	case config.BackendDemo:
		return demoDialer(ctx, cfg), nil

	case config.BackendDirectLine:
		dl := directline.ClientConfig{
			Domain: cfg.DirectLine.Domain,
			Token:  cfg.DirectLine.Secret,
			UserID: cfg.DirectLine.UserID,
			Locale: cfg.DirectLine.Locale,
		}
		return func(ctx context.Context) (directline.Source, error) {
			client, err := directline.Dial(ctx, dl)
			if err != nil {
				return nil, err
			}
			return client, nil
		}, nil

	case config.BackendM365:
		settings := copilot.SettingsFromConfig(cfg.M365)
		if err := settings.Validate(); err != nil {
			return nil, err
		}
		return copilot.Dialer(settings, copilot.StaticToken(cfg.M365.Token), cfg.DirectLine.UserID), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func demoDialer(ctx context.Context, cfg *config.Config) directline.DialFunc {
	return func(dialCtx context.Context) (directline.Source, error) {
		var responder demo.Responder = demo.CannedResponder{}
		if cfg.Demo.Responder == config.ResponderOllama {
			r, err := demo.NewOllamaResponder(cfg.Ollama.Host, cfg.Ollama.Model)
			if err != nil {
				return nil, err
			}
			if err := r.Ping(dialCtx); err != nil {
				return nil, err
			}
			responder = r
		}

		mock := directline.NewMock()
		scenario := demo.NewScenario(mock, responder, cfg.DemoPace())
		scenario.HandleUserMessages(ctx)
		go func() {
			if err := scenario.Run(ctx); err != nil && config.DebugLog != nil {
				config.DebugLog.Printf("[cmd] demo greeting stopped: %v", err)
			}
		}()
		return mock, nil
	}
}

func showError(title, message string) {
	p := tea.NewProgram(ui.NewErrorModal(title, message), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}
