// Package updatecmder provides the `memex update` CLI command.
package updatecmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftwood-labs/memex/pkg/bootstrap"
	"github.com/driftwood-labs/memex/pkg/config"
	"github.com/driftwood-labs/memex/pkg/logger"
)

const updateLongDesc string = `Update a memory's text by ID.

The mutation is appended to the memory's history with both the old and
new text recorded.

Examples:
  memex update 3f9c... "I now prefer drip coffee"`

const updateShortDesc string = "Update a memory's text"

func NewUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id> <text>",
		Short: updateShortDesc,
		Long:  updateLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], args[1])
		},
	}

	return cmd
}

func run(cmd *cobra.Command, id, text string) error {
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

	if err := co.Update(cmd.Context(), id, text, nil); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Updated memory %s\n", id)
	return nil
}
