// sidekick is an AI chat assistant for the terminal. Run without
// arguments to start the interactive chat; the history subcommands manage
// stored conversations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sidekick/cmd/sidekick/chat"
)

var (
	// Global flags
	verbose    bool
	configPath string
	dbPath     string
	headless   bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sidekick",
	Short: "sidekick - AI chat assistant for the terminal",
	Long: `sidekick is a conversational AI assistant that lives in your terminal.

It keeps per-account chat history, streams responses as they are
generated, and supports editing earlier messages, regenerating code
blocks, and duplicating conversations.

Run without arguments to start the interactive chat interface.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		// The TUI owns the terminal; keep logs out of its way.
		if cmd.CalledAs() == "sidekick" && !verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()
		return chat.Run(app.Controller, app.Surface, app.History, app.Account, logger)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to the config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "override the chat history database path")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "disable best-effort side tasks (title generation)")

	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.sidekick/config.yaml"
}
