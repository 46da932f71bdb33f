// Package initcmder provides the init command for initializing a local
// .memex directory in the current working directory.
package initcmder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const dirName = ".memex"

const initLongDesc string = `Initialize a new .memex/ directory in the current working directory.

Creates a local .memex/ directory that takes precedence over the default
~/.memex/ directory for config.toml and the default database file.

This is useful for maintaining separate memex state per project.

Examples:
  memex init`

const initShortDesc string = "Initialize a local .memex/ directory"

func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit()
		},
	}
}

func runInit() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		fmt.Printf("Already initialized: %s\n", dir)
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .memex directory: %w", err)
	}

	fmt.Printf("Initialized: %s\n", dir)
	return nil
}
