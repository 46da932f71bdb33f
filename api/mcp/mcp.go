// Package mcp provides an MCP (Model Context Protocol) server exposing the
// Coordinator's public API as tools: memory_add, memory_search, memory_list,
// memory_history, and memory_process_turn.
package mcp

import (
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/driftwood-labs/memex/pkg/coordinator"
)

const serverVersion = "0.1.0"

// Config configures the MCP server.
type Config struct {
	// Coordinator is the core the tools are dispatched against.
	Coordinator *coordinator.Coordinator

	// Noop returns an MCP server with no tools registered, for disabled mode.
	Noop bool

	// Logger is the configured zap logger.
	Logger *zap.Logger
}

// Server wraps an MCP server exposing the memory tool surface over a
// stateless streamable-HTTP handler.
type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the memory tools registered.
func NewServer(c Config) (*Server, error) {
	s := &Server{config: c}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "memex",
			Version: serverVersion,
		},
		&mcp.ServerOptions{},
	)

	if c.Noop {
		s.mcpServer = mcpServer
		return s, nil
	}

	if c.Coordinator == nil {
		return nil, errors.New("coordinator is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        memoryAddToolName,
		Description: memoryAddDescription,
	}, s.handleMemoryAdd)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        memorySearchToolName,
		Description: memorySearchDescription,
	}, s.handleMemorySearch)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        memoryListToolName,
		Description: memoryListDescription,
	}, s.handleMemoryList)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        memoryHistoryToolName,
		Description: memoryHistoryDescription,
	}, s.handleMemoryHistory)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        memoryProcessTurnToolName,
		Description: memoryProcessTurnDescription,
	}, s.handleMemoryProcessTurn)

	s.mcpServer = mcpServer

	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
