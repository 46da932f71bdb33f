// Package httpapi provides a thin JSON HTTP surface over the Coordinator's
// public API, mirroring the same add/search/list/update/delete/history/
// reset/process_turn operations the MCP tool surface exposes.
package httpapi

import (
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/driftwood-labs/memex/pkg/coordinator"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090").
	ListenAddr string
}

// Server is the HTTP API server for the memory store.
type Server struct {
	config      Config
	coordinator *coordinator.Coordinator
	logger      *zap.Logger
	app         *fiber.App
}

// NewServer creates a new API server. mcpHandler, when non-nil, is mounted
// at /mcp so a single process serves both the REST surface and the MCP
// streamable-HTTP endpoint.
func NewServer(config Config, co *coordinator.Coordinator, logger *zap.Logger, mcpHandler http.Handler) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:      config,
		coordinator: co,
		logger:      logger,
		app:         app,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Post("/memories", s.handleAdd)
	v1.Get("/memories", s.handleList)
	v1.Put("/memories/:id", s.handleUpdate)
	v1.Delete("/memories/:id", s.handleDelete)
	v1.Get("/memories/:id/history", s.handleHistory)
	v1.Get("/search", s.handleSearch)
	v1.Post("/process-turn", s.handleProcessTurn)
	v1.Post("/reset", s.handleReset)

	if mcpHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(mcpHandler))
		app.All("/mcp/*", adaptor.HTTPHandler(mcpHandler))
	}

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", zap.String("listen", s.config.ListenAddr))
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
