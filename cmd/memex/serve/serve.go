// Package servecmder provides the `memex serve` CLI command, running the
// HTTP REST surface with the MCP tool handler mounted alongside it.
package servecmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/driftwood-labs/memex/api/httpapi"
	"github.com/driftwood-labs/memex/api/mcp"
	"github.com/driftwood-labs/memex/pkg/bootstrap"
	"github.com/driftwood-labs/memex/pkg/config"
	"github.com/driftwood-labs/memex/pkg/logger"
)

const serveLongDesc string = `Run the memex HTTP + MCP server.

Serves the REST surface (add/search/list/update/delete/history/reset/
process-turn) and mounts the MCP streamable-HTTP handler at /mcp, so a
single process backs both a direct HTTP client and an MCP-speaking agent.

Examples:
  memex serve
  memex serve --listen :9000`

const serveShortDesc string = "Run the memex HTTP + MCP server"

type serveCommander struct {
	listen string
	logger *zap.Logger
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.listen, "listen", "", "Address to listen on (default: api.listen from config)")

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	debug, _ := cmd.Flags().GetBool("debug")
	configDir, _ := cmd.Flags().GetString("config-dir")
	c.logger = logger.NewLogger(debug)
	defer c.logger.Sync()

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	listenAddr := cfg.API.Listen
	if c.listen != "" {
		listenAddr = c.listen
	}

	co, err := bootstrap.Open(cmd.Context(), cfg, c.logger)
	if err != nil {
		return err
	}
	defer co.Shutdown()

	mcpServer, err := mcp.NewServer(mcp.Config{
		Coordinator: co,
		Logger:      c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	apiServer := httpapi.NewServer(httpapi.Config{ListenAddr: listenAddr}, co, c.logger, mcpServer.Handler())

	c.logger.Info("starting memex server",
		zap.String("listen", listenAddr),
		zap.String("mcp_path", "/mcp"),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return apiServer.Shutdown()
	}
}
