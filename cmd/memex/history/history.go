// Package historycmder provides the `memex history` CLI command.
package historycmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftwood-labs/memex/pkg/bootstrap"
	"github.com/driftwood-labs/memex/pkg/config"
	"github.com/driftwood-labs/memex/pkg/logger"
)

const historyLongDesc string = `Show the mutation history of a memory by ID.

Examples:
  memex history 3f9c...`

const historyShortDesc string = "Show a memory's mutation history"

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	return cmd
}

func run(cmd *cobra.Command, id string) error {
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

	items, err := co.History(cmd.Context(), id)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No history found.")
		return nil
	}

	for _, h := range items {
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", h.Action, h.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
		if h.PreviousValue != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "  from: %s\n", *h.PreviousValue)
		}
		if h.NewValue != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "  to:   %s\n", *h.NewValue)
		}
	}
	return nil
}
