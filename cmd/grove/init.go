package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	internalconfig "github.com/grove-sh/grove/internal/config"
)

var initForceFlag bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize grove configuration",
	Long: `Write a starter configuration file with the default settings.

The file lives in the XDG config directory (usually
~/.config/grove/config.toml) and controls the background update check,
registry authentication, and logging.

Use --force to overwrite an existing configuration file.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(
		&initForceFlag,
		"force",
		"f",
		false,
		"Overwrite existing configuration file",
	)
}

func runInit(_ *cobra.Command, _ []string) error {
	loader := internalconfig.NewLoader()
	if loader.HasConfig() && !initForceFlag {
		return errors.Newf(
			"configuration already exists at %s (use --force to overwrite)",
			loader.ConfigPath(),
		)
	}

	writer := internalconfig.NewWriter()
	if err := writer.Write(internalconfig.DefaultConfig()); err != nil {
		return errors.Wrap(err, "writing configuration")
	}

	fmt.Printf("Created %s\n", writer.Path())

	return nil
}
