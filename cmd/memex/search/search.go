// Package searchcmder provides the `memex search` CLI command.
package searchcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftwood-labs/memex/pkg/bootstrap"
	"github.com/driftwood-labs/memex/pkg/cliui"
	"github.com/driftwood-labs/memex/pkg/config"
	"github.com/driftwood-labs/memex/pkg/logger"
	"github.com/driftwood-labs/memex/pkg/memory"
)

const searchLongDesc string = `Search memories by hybrid vector + text relevance.

Falls back to plain text search when no embedder is configured.

Examples:
  memex search "coffee preferences" --user alice
  memex search "coffee" --limit 5 --threshold 0.5`

const searchShortDesc string = "Search memories"

type searchCommander struct {
	userID    string
	agentID   string
	runID     string
	limit     int
	threshold float64
}

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&cmder.userID, "user", "", "Owner user ID")
	cmd.Flags().StringVar(&cmder.agentID, "agent", "", "Owner agent ID")
	cmd.Flags().StringVar(&cmder.runID, "run", "", "Owner run ID")
	cmd.Flags().IntVar(&cmder.limit, "limit", 10, "Maximum results to return")
	cmd.Flags().Float64Var(&cmder.threshold, "threshold", 0, "Minimum hybrid-search score, [0,1]")

	return cmd
}

func (c *searchCommander) run(cmd *cobra.Command, query string) error {
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

	opts := memory.SearchOptions{
		Owner:     memory.Owner{UserID: c.userID, AgentID: c.agentID, RunID: c.runID},
		Limit:     c.limit,
		Threshold: c.threshold,
	}
	result, err := co.Search(cmd.Context(), query, opts)
	if err != nil {
		return err
	}

	if result.Degraded {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cliui.DimStyle.Render("(degraded:"), cliui.DimStyle.Render(result.Reason+")"))
	}

	if len(result.Memories) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching memories.")
		return nil
	}

	for _, m := range result.Memories {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  (score %.3f)  %s\n", m.ID, m.Score, m.Text)
	}
	return nil
}
