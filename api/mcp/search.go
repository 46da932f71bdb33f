package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/driftwood-labs/memex/pkg/memory"
)

var (
	memorySearchToolName    = "memory_search"
	memorySearchDescription = "Search an owner's memories with Hybrid Search (vector similarity + text match) when an embedder is configured, falling back to a text-only search otherwise."
)

// MemorySearchInput represents the input arguments for the memory_search tool.
type MemorySearchInput struct {
	OwnerInput
	Query     string  `json:"query" jsonschema:"the search query text"`
	Limit     int     `json:"limit,omitempty" jsonschema:"maximum number of results to return (default: 10)"`
	Threshold float64 `json:"threshold,omitempty" jsonschema:"minimum score a result must meet to be included"`
}

// MemorySearchOutput represents the output of the memory_search tool.
type MemorySearchOutput struct {
	Query    string         `json:"query"`
	Results  []MemoryOutput `json:"results"`
	Count    int            `json:"count"`
	Degraded bool           `json:"degraded,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}

// handleMemorySearch processes a memory_search request.
func (s *Server) handleMemorySearch(ctx context.Context, _ *mcp.CallToolRequest, input MemorySearchInput) (*mcp.CallToolResult, MemorySearchOutput, error) {
	logger := s.config.Logger

	if input.Query == "" {
		return errResult("query is required"), MemorySearchOutput{}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	logger.Debug("MCP memory_search request",
		zap.String("query", input.Query),
		zap.Int("limit", limit),
	)

	result, err := s.config.Coordinator.Search(ctx, input.Query, memory.SearchOptions{
		Owner:     input.toOwner(),
		Limit:     limit,
		Threshold: input.Threshold,
	})
	if err != nil {
		logger.Error("memory_search failed", zap.Error(err))
		return errResult(fmt.Sprintf("memory_search failed: %v", err)), MemorySearchOutput{}, nil
	}

	out := make([]MemoryOutput, len(result.Memories))
	for i, m := range result.Memories {
		out[i] = toMemoryOutput(m)
	}

	return jsonResult(MemorySearchOutput{
		Query:    input.Query,
		Results:  out,
		Count:    len(out),
		Degraded: result.Degraded,
		Reason:   result.Reason,
	})
}
