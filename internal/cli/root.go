// Package cli implements the bizanalyst command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/comigor/bizanalyst/internal/config"
	"github.com/comigor/bizanalyst/internal/history"
	"github.com/comigor/bizanalyst/internal/logger"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

type app struct {
	cfgPath  string
	logLevel string
	cfg      *config.Config
	logFile  *os.File
}

// NewRootCmd builds the command tree. Running it without a subcommand
// starts an interactive chat.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "bizanalyst",
		Short: "AI business analyst in your terminal",
		Long: `bizanalyst is a chat client for an AI business analysis backend.

Ask for business ideas, market analysis, financial projections or marketing
strategies, and upload .txt, .csv or .json data files for analysis. Chats are
saved locally and can be resumed, listed and exported.

Run "bizanalyst serve" to start the companion backend.`,
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { a.teardown() },
		Args:              cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(cmd, "")
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "config file (default $CONFIG_PATH, ./config.yaml or ~/.bizanalyst/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		a.chatCmd(),
		a.historyCmd(),
		a.healthCmd(),
		a.serveCmd(),
		a.mcpCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	// Variables from .env never override the real environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	logger.SetLevel(level)

	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		logger.SetOutput(f)
	}

	logger.L.Debug("configuration loaded", "command", cmd.CommandPath(), "api", cfg.API.BaseURL, "storage", cfg.Storage.Path)
	return nil
}

func (a *app) teardown() {
	if a.logFile != nil {
		logger.SetOutput(os.Stderr)
		a.logFile.Close()
		a.logFile = nil
	}
}

// openStore opens the configured history backend. The returned func closes it.
func (a *app) openStore() (*history.KVStore, func()) {
	kv := history.Open(a.cfg.Storage.Path)
	return history.NewKVStore(kv), func() {
		if err := kv.Close(); err != nil {
			logger.L.Warn("failed to close history store", "error", err)
		}
	}
}
