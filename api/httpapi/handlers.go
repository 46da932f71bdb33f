package httpapi

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/driftwood-labs/memex/pkg/factextract"
	"github.com/driftwood-labs/memex/pkg/memerr"
	"github.com/driftwood-labs/memex/pkg/memory"
)

// ErrorResponse is the JSON body returned for a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func statusForError(err error) int {
	switch {
	case memerr.HasCode(err, memerr.InvalidInput):
		return fiber.StatusBadRequest
	case memerr.HasCode(err, memerr.NotFound):
		return fiber.StatusNotFound
	case memerr.HasCode(err, memerr.NotConfigured):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(ErrorResponse{Error: err.Error()})
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func ownerFromQuery(c *fiber.Ctx) memory.Owner {
	return memory.Owner{
		UserID:  c.Query("user_id"),
		AgentID: c.Query("agent_id"),
		RunID:   c.Query("run_id"),
	}
}

// addRequest is the JSON body for POST /v1/memories.
type addRequest struct {
	Text     string         `json:"text"`
	UserID   string         `json:"user_id,omitempty"`
	AgentID  string         `json:"agent_id,omitempty"`
	RunID    string         `json:"run_id,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// handleAdd handles POST /v1/memories.
func (s *Server) handleAdd(c *fiber.Ctx) error {
	var req addRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	owner := memory.Owner{UserID: req.UserID, AgentID: req.AgentID, RunID: req.RunID}
	m, err := s.coordinator.Add(c.Context(), req.Text, owner, req.Metadata)
	if err != nil {
		return s.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(m)
}

// handleList handles GET /v1/memories.
func (s *Server) handleList(c *fiber.Ctx) error {
	opts := memory.ListOptions{Owner: ownerFromQuery(c)}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be a non-negative integer"})
		}
		opts.Limit = limit
	}

	memories, err := s.coordinator.List(c.Context(), opts)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(map[string]any{"memories": memories, "count": len(memories)})
}

// updateRequest is the JSON body for PUT /v1/memories/:id.
type updateRequest struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// handleUpdate handles PUT /v1/memories/:id.
func (s *Server) handleUpdate(c *fiber.Ctx) error {
	id := c.Params("id")

	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if err := s.coordinator.Update(c.Context(), id, req.Text, req.Metadata); err != nil {
		return s.fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// handleDelete handles DELETE /v1/memories/:id.
func (s *Server) handleDelete(c *fiber.Ctx) error {
	if err := s.coordinator.Delete(c.Context(), c.Params("id")); err != nil {
		return s.fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// handleHistory handles GET /v1/memories/:id/history.
func (s *Server) handleHistory(c *fiber.Ctx) error {
	history, err := s.coordinator.History(c.Context(), c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(map[string]any{"history": history})
}

// handleSearch handles GET /v1/search.
func (s *Server) handleSearch(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "query parameter is required"})
	}

	opts := memory.SearchOptions{Owner: ownerFromQuery(c)}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be a positive integer"})
		}
		opts.Limit = limit
	}
	if thresholdStr := c.Query("threshold"); thresholdStr != "" {
		threshold, err := strconv.ParseFloat(thresholdStr, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "threshold must be a number"})
		}
		opts.Threshold = threshold
	}

	result, err := s.coordinator.Search(c.Context(), query, opts)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(map[string]any{
		"query":    query,
		"results":  result.Memories,
		"count":    len(result.Memories),
		"degraded": result.Degraded,
		"reason":   result.Reason,
	})
}

// processTurnRequest is the JSON body for POST /v1/process-turn.
type processTurnRequest struct {
	UserID  string             `json:"user_id,omitempty"`
	AgentID string             `json:"agent_id,omitempty"`
	RunID   string             `json:"run_id,omitempty"`
	Turns   []factextract.Turn `json:"turns"`
}

// handleProcessTurn handles POST /v1/process-turn.
func (s *Server) handleProcessTurn(c *fiber.Ctx) error {
	var req processTurnRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if len(req.Turns) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "turns is required"})
	}

	owner := memory.Owner{UserID: req.UserID, AgentID: req.AgentID, RunID: req.RunID}
	facts, outcomes, err := s.coordinator.ProcessTurn(c.Context(), req.Turns, owner)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(map[string]any{"facts": facts, "outcomes": outcomes})
}

// handleReset handles POST /v1/reset.
func (s *Server) handleReset(c *fiber.Ctx) error {
	if err := s.coordinator.Reset(c.Context()); err != nil {
		return s.fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
