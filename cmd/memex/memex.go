// Package memexcmder assembles the memex command tree.
package memexcmder

import (
	"github.com/spf13/cobra"

	addcmder "github.com/driftwood-labs/memex/cmd/memex/add"
	configcmder "github.com/driftwood-labs/memex/cmd/memex/config"
	deletecmder "github.com/driftwood-labs/memex/cmd/memex/delete"
	historycmder "github.com/driftwood-labs/memex/cmd/memex/history"
	initcmder "github.com/driftwood-labs/memex/cmd/memex/init"
	listcmder "github.com/driftwood-labs/memex/cmd/memex/list"
	resetcmder "github.com/driftwood-labs/memex/cmd/memex/reset"
	searchcmder "github.com/driftwood-labs/memex/cmd/memex/search"
	servecmder "github.com/driftwood-labs/memex/cmd/memex/serve"
	updatecmder "github.com/driftwood-labs/memex/cmd/memex/update"
	versioncmder "github.com/driftwood-labs/memex/cmd/version"
)

const memexLongDesc string = `Memex is a personal memory store for conversational AI.

Run a command against the configured .memex/ store, or run:
  memex serve     Run the HTTP + MCP server`

const memexShortDesc string = "Memex - Personal Memory Engine"

func NewMemexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memex",
		Short: memexShortDesc,
		Long:  memexLongDesc,
	}

	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().StringP("config-dir", "c", "", "Override the .memex/ directory to use")

	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(addcmder.NewAddCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(listcmder.NewListCmd())
	cmd.AddCommand(updatecmder.NewUpdateCmd())
	cmd.AddCommand(deletecmder.NewDeleteCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(resetcmder.NewResetCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
