package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"botchat/config"
	"botchat/storage"
)

const (
	Version = "v0.1.0"
	License = "Apache-2.0"
)

var (
	cfg     *config.Config
	envFile string
	dataDir string
)

// rootCmd starts a chat when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "botchat",
	Short: "Terminal chat front-end for Direct Line and Copilot Studio bots",
	Long: `botchat renders a bot conversation in the terminal, including streamed
replies, typing indicators, suggested actions and adaptive card summaries.
It talks to a Direct Line channel, a Microsoft 365 Copilot Studio agent, or a
built-in demo bot.`,
	Version:           fmt.Sprintf("%s (%s)", Version, License),
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runChat,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with BOTCHAT_* variables")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (overrides settings and BOTCHAT_DATA_DIR)")

	addChatFlags(rootCmd)
}

// loadConfig reads .env, the settings files and the environment, then turns
// on the debug log if asked to.
func loadConfig(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	if dataDir != "" {
		if err := os.Setenv("BOTCHAT_DATA_DIR", dataDir); err != nil {
			return fmt.Errorf("failed to set data directory: %w", err)
		}
	}

	loaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg = loaded

	config.InitDebugLog(cfg.DataDir())
	if config.DebugLog != nil {
		config.DebugLog.Printf("[cmd] %s %s, data dir %s", cmd.Name(), Version, cfg.DataDir())
	}
	return nil
}

func openLog() (*storage.ActivityLog, error) {
	log, err := storage.NewActivityLog(cfg.DataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open activity log: %w", err)
	}
	return log, nil
}
