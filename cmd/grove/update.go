package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	internalconfig "github.com/grove-sh/grove/internal/config"
	"github.com/grove-sh/grove/internal/github"
	"github.com/grove-sh/grove/internal/updater"
)

const (
	updateTimeout   = 5 * time.Minute
	percentMultiple = 100
)

var (
	updateToVersion string
	updateCheckOnly bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update grove to the latest version",
	Long: `Update grove to the latest version from GitHub Releases.

Downloads the release archive for the running platform, extracts the
binary, and atomically replaces the current executable. Nothing is
written to the installed binary until the final step, so a failed
update leaves the installation untouched.

Examples:
  grove update                 # Update to latest
  grove update --to v1.3.0     # Update to a specific version
  grove update --check         # Check only, don't install`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().StringVar(
		&updateToVersion,
		"to",
		"",
		"Update to a specific version (e.g. v1.3.0)",
	)
	updateCmd.Flags().BoolVar(
		&updateCheckOnly,
		"check",
		false,
		"Only check for updates, don't install",
	)
}

func runUpdate(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
	defer cancel()

	cfg, err := internalconfig.NewLoader().Load()
	if err != nil {
		return errors.Wrap(err, "loading configuration")
	}

	up := updater.NewUpdater(
		version,
		newGitHubClient(cfg),
		updater.WithLogger(newLogger(cfg)),
	)

	if updateToVersion != "" {
		return runUpdateToVersion(ctx, up)
	}

	return runUpdateLatest(ctx, up)
}

func runUpdateLatest(ctx context.Context, up *updater.Updater) error {
	release, err := up.CheckLatest(ctx)
	if err != nil {
		if errors.Is(err, updater.ErrAlreadyLatest) {
			fmt.Printf("Already up to date (version %s)\n", version)

			return nil
		}

		return errors.Wrap(err, "checking for updates")
	}

	fmt.Printf("Current version: %s\n", version)
	fmt.Printf("Latest version:  %s\n", release.TagName)

	if updateCheckOnly {
		fmt.Printf("\nRun 'grove update' to install\n")

		return nil
	}

	return performUpdate(ctx, up, release)
}

func runUpdateToVersion(ctx context.Context, up *updater.Updater) error {
	release, err := up.ValidateTargetVersion(ctx, updateToVersion)
	if err != nil {
		return err
	}

	fmt.Printf("Current version: %s\n", version)
	fmt.Printf("Target version:  %s\n", release.TagName)

	if updateCheckOnly {
		fmt.Printf("\nRelease %s exists and is available for install\n", release.TagName)

		return nil
	}

	return performUpdate(ctx, up, release)
}

func performUpdate(ctx context.Context, up *updater.Updater, release *github.Release) error {
	fmt.Printf("\nDownloading %s...\n", release.TagName)

	result, err := up.Update(ctx, release, printProgress)
	if err != nil {
		return errors.Wrap(err, "update failed")
	}

	// Clear progress line
	fmt.Fprintf(os.Stderr, "\r%60s\r", "")

	fmt.Printf("Updated %s -> %s\n", result.PreviousVersion, result.NewVersion)
	fmt.Printf("Binary: %s\n", result.BinaryPath)

	return nil
}

func printProgress(received, total int64) {
	if total > 0 {
		pct := float64(received) / float64(total) * percentMultiple
		fmt.Fprintf(os.Stderr, "\r  %.0f%% (%s / %s)",
			pct,
			humanize.Bytes(uint64(received)),
			humanize.Bytes(uint64(total)),
		)
	} else {
		fmt.Fprintf(os.Stderr, "\r  %s", humanize.Bytes(uint64(received)))
	}
}
