// Package resetcmder provides the `memex reset` CLI command.
package resetcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftwood-labs/memex/pkg/bootstrap"
	"github.com/driftwood-labs/memex/pkg/config"
	"github.com/driftwood-labs/memex/pkg/logger"
)

const resetLongDesc string = `Permanently delete all memories in the store.

This clears every owner's memories and their history. It cannot be undone.

Examples:
  memex reset --yes`

const resetShortDesc string = "Delete all memories"

type resetCommander struct {
	confirmed bool
}

func NewResetCmd() *cobra.Command {
	cmder := &resetCommander{}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: resetShortDesc,
		Long:  resetLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.confirmed, "yes", false, "Skip the confirmation prompt")

	return cmd
}

func (c *resetCommander) run(cmd *cobra.Command) error {
	if !c.confirmed {
		return fmt.Errorf("refusing to reset without --yes")
	}

	debug, _ := cmd.Flags().GetBool("debug")
	configDir, _ := cmd.Flags().GetString("config-dir")
	log := logger.NewLogger(debug)
	defer log.Sync()

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	co, err := bootstrap.Open(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer co.Shutdown()

	if err := co.Reset(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "All memories deleted.")
	return nil
}
