// Package listcmder provides the `memex list` CLI command.
package listcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftwood-labs/memex/pkg/bootstrap"
	"github.com/driftwood-labs/memex/pkg/config"
	"github.com/driftwood-labs/memex/pkg/logger"
	"github.com/driftwood-labs/memex/pkg/memory"
)

const listLongDesc string = `List memories for an owner.

Examples:
  memex list --user alice
  memex list --user alice --agent assistant-1 --limit 50`

const listShortDesc string = "List memories"

type listCommander struct {
	userID  string
	agentID string
	runID   string
	limit   int
}

func NewListCmd() *cobra.Command {
	cmder := &listCommander{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.userID, "user", "", "Owner user ID")
	cmd.Flags().StringVar(&cmder.agentID, "agent", "", "Owner agent ID")
	cmd.Flags().StringVar(&cmder.runID, "run", "", "Owner run ID")
	cmd.Flags().IntVar(&cmder.limit, "limit", 100, "Maximum results to return")

	return cmd
}

func (c *listCommander) run(cmd *cobra.Command) error {
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

	opts := memory.ListOptions{
		Owner: memory.Owner{UserID: c.userID, AgentID: c.agentID, RunID: c.runID},
		Limit: c.limit,
	}
	memories, err := co.List(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if len(memories) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No memories found.")
		return nil
	}

	for _, m := range memories {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", m.ID, m.Text)
	}
	return nil
}
