// Package addcmder provides the `memex add` CLI command.
package addcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftwood-labs/memex/pkg/bootstrap"
	"github.com/driftwood-labs/memex/pkg/cliui"
	"github.com/driftwood-labs/memex/pkg/config"
	"github.com/driftwood-labs/memex/pkg/logger"
	"github.com/driftwood-labs/memex/pkg/memory"
)

const addLongDesc string = `Add a memory to the store.

Text is deduplicated by content hash: adding the same text for the same
owner twice returns the existing memory rather than creating a duplicate.

Examples:
  memex add "I like espresso"
  memex add "I work at Acme Corp" --user alice --agent assistant-1`

const addShortDesc string = "Add a memory to the store"

type addCommander struct {
	userID  string
	agentID string
	runID   string
}

func NewAddCmd() *cobra.Command {
	cmder := &addCommander{}

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: addShortDesc,
		Long:  addLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&cmder.userID, "user", "", "Owner user ID")
	cmd.Flags().StringVar(&cmder.agentID, "agent", "", "Owner agent ID")
	cmd.Flags().StringVar(&cmder.runID, "run", "", "Owner run ID")

	return cmd
}

func (c *addCommander) run(cmd *cobra.Command, text string) error {
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

	owner := memory.Owner{UserID: c.userID, AgentID: c.agentID, RunID: c.runID}

	var m memory.Memory
	stepErr := cliui.Step(cmd.OutOrStdout(), fmt.Sprintf("Adding memory: %s", text), func() error {
		var addErr error
		m, addErr = co.Add(cmd.Context(), text, owner, nil)
		return addErr
	})
	if stepErr != nil {
		return stepErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", cliui.KeyStyle.Render("Added memory "+m.ID+":"), m.Text)
	return nil
}
