// Package main provides the CLI entry point for grove.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	internalconfig "github.com/grove-sh/grove/internal/config"
	"github.com/grove-sh/grove/internal/github"
	"github.com/grove-sh/grove/internal/updater"
	"github.com/grove-sh/grove/internal/xdg"
	"github.com/grove-sh/grove/pkg/config"
	"github.com/grove-sh/grove/pkg/logger"
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	cmd, err := rootCmd.ExecuteC()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return 1
	}

	maybeNotify(cmd)

	return 0
}

var rootCmd = &cobra.Command{
	Use:   "grove",
	Short: "Self-updating binary distribution manager",
	Long: `grove keeps its own binary up to date from GitHub Releases.

It resolves the latest (or a pinned) release, matches the asset for
the running platform, downloads and extracts the archive, and replaces
the installed binary atomically.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		checkVersionFlag()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
	SilenceUsage: true,
}

// maybeNotify runs the advisory update check after a command finishes.
// It never runs after update or version, never without a terminal, and
// is disabled entirely by updates.check = false.
func maybeNotify(cmd *cobra.Command) {
	if cmd != nil {
		switch cmd.Name() {
		case "update", "version", "help":
			return
		}
	}

	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return
	}

	cfg, err := internalconfig.NewLoader().Load()
	if err != nil || !cfg.UpdatesEnabled() {
		return
	}

	notifier := updater.NewNotifier(
		version,
		newGitHubClient(cfg),
		updater.WithCheckInterval(cfg.Updates.Interval.ToDuration()),
		updater.WithCheckTimeout(cfg.Updates.Timeout.ToDuration()),
		updater.WithNotifierLogger(newLogger(cfg)),
	)

	notifier.Notify(context.Background(), os.Stderr)
}

// newGitHubClient builds a registry client, preferring the configured
// token; the client falls back to the environment and gh CLI on its own.
func newGitHubClient(cfg *config.Config) github.Client {
	if cfg != nil && cfg.GitHub != nil && cfg.GitHub.Token != "" {
		return github.NewClient(github.WithToken(cfg.GitHub.Token))
	}

	return github.NewClient()
}

// newLogger builds the file logger, falling back to a no-op when the
// log file cannot be opened.
func newLogger(cfg *config.Config) logger.Logger {
	path := xdg.LogFile()
	if cfg != nil && cfg.Log != nil && cfg.Log.File != "" {
		path = cfg.Log.File
	}

	log, err := logger.NewFileLogger(path, cfg.DebugEnabled())
	if err != nil {
		return logger.NewNoopLogger()
	}

	return log
}
