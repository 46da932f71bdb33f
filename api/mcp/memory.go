package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/driftwood-labs/memex/pkg/memory"
)

var (
	memoryAddToolName    = "memory_add"
	memoryAddDescription = "Add a fact to the memory store for an owner. Deduplicates against existing memories with the same text, ignoring case and surrounding whitespace."

	memoryListToolName    = "memory_list"
	memoryListDescription = "List non-deleted memories for an owner, newest first."

	memoryHistoryToolName    = "memory_history"
	memoryHistoryDescription = "Return the append-only mutation history for a single memory id."
)

// OwnerInput is embedded by every tool that scopes its operation to an owner.
type OwnerInput struct {
	UserID  string `json:"user_id,omitempty" jsonschema:"the user this memory belongs to"`
	AgentID string `json:"agent_id,omitempty" jsonschema:"the agent this memory belongs to"`
	RunID   string `json:"run_id,omitempty" jsonschema:"the run this memory belongs to"`
}

func (o OwnerInput) toOwner() memory.Owner {
	return memory.Owner{UserID: o.UserID, AgentID: o.AgentID, RunID: o.RunID}
}

// MemoryOutput is the MCP-facing view of a memory.Memory: no embedding, and
// only the fields a tool caller needs to act on.
type MemoryOutput struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	AgentID   string         `json:"agent_id,omitempty"`
	RunID     string         `json:"run_id,omitempty"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	Score     float64        `json:"score,omitempty"`
}

func toMemoryOutput(m memory.Memory) MemoryOutput {
	return MemoryOutput{
		ID:        m.ID,
		Text:      m.Text,
		Metadata:  m.Metadata,
		UserID:    m.UserID,
		AgentID:   m.AgentID,
		RunID:     m.RunID,
		CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: m.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Score:     m.Score,
	}
}

// MemoryAddInput represents the input arguments for the memory_add tool.
type MemoryAddInput struct {
	OwnerInput
	Text     string         `json:"text" jsonschema:"the fact text to store"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"arbitrary metadata to attach to the memory"`
}

// MemoryAddOutput represents the structured output of memory_add.
type MemoryAddOutput struct {
	Memory MemoryOutput `json:"memory"`
}

func (s *Server) handleMemoryAdd(ctx context.Context, _ *mcp.CallToolRequest, input MemoryAddInput) (*mcp.CallToolResult, MemoryAddOutput, error) {
	if input.Text == "" {
		return errResult("text is required"), MemoryAddOutput{}, nil
	}

	m, err := s.config.Coordinator.Add(ctx, input.Text, input.toOwner(), input.Metadata)
	if err != nil {
		return errResult(fmt.Sprintf("memory_add failed: %v", err)), MemoryAddOutput{}, nil
	}

	return jsonResult(MemoryAddOutput{Memory: toMemoryOutput(m)})
}

// MemoryListInput represents the input arguments for the memory_list tool.
type MemoryListInput struct {
	OwnerInput
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of memories to return"`
}

// MemoryListOutput represents the structured output of memory_list.
type MemoryListOutput struct {
	Memories []MemoryOutput `json:"memories"`
}

func (s *Server) handleMemoryList(ctx context.Context, _ *mcp.CallToolRequest, input MemoryListInput) (*mcp.CallToolResult, MemoryListOutput, error) {
	results, err := s.config.Coordinator.List(ctx, memory.ListOptions{Owner: input.toOwner(), Limit: input.Limit})
	if err != nil {
		return errResult(fmt.Sprintf("memory_list failed: %v", err)), MemoryListOutput{}, nil
	}

	out := make([]MemoryOutput, len(results))
	for i, m := range results {
		out[i] = toMemoryOutput(m)
	}

	return jsonResult(MemoryListOutput{Memories: out})
}

// MemoryHistoryInput represents the input arguments for the memory_history tool.
type MemoryHistoryInput struct {
	ID string `json:"id" jsonschema:"the memory id to fetch history for"`
}

// HistoryOutput is the MCP-facing view of a memory.HistoryItem.
type HistoryOutput struct {
	MemoryID      string `json:"memory_id"`
	PreviousValue string `json:"previous_value,omitempty"`
	NewValue      string `json:"new_value,omitempty"`
	Action        string `json:"action"`
	CreatedAt     string `json:"created_at"`
}

// MemoryHistoryOutput represents the structured output of memory_history.
type MemoryHistoryOutput struct {
	History []HistoryOutput `json:"history"`
}

func (s *Server) handleMemoryHistory(ctx context.Context, _ *mcp.CallToolRequest, input MemoryHistoryInput) (*mcp.CallToolResult, MemoryHistoryOutput, error) {
	if input.ID == "" {
		return errResult("id is required"), MemoryHistoryOutput{}, nil
	}

	items, err := s.config.Coordinator.History(ctx, input.ID)
	if err != nil {
		return errResult(fmt.Sprintf("memory_history failed: %v", err)), MemoryHistoryOutput{}, nil
	}

	out := make([]HistoryOutput, len(items))
	for i, h := range items {
		o := HistoryOutput{
			MemoryID:  h.MemoryID,
			Action:    string(h.Action),
			CreatedAt: h.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if h.PreviousValue != nil {
			o.PreviousValue = *h.PreviousValue
		}
		if h.NewValue != nil {
			o.NewValue = *h.NewValue
		}
		out[i] = o
	}

	return jsonResult(MemoryHistoryOutput{History: out})
}

// errResult builds an error CallToolResult with a plain-text message.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}

// jsonResult serializes output as the structured result and mirrors it into
// a TextContent block, per the MCP convention that structured-content tools
// also return serialized JSON for backwards compatibility.
func jsonResult[T any](output T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return errResult(fmt.Sprintf("failed to serialize result: %v", err)), output, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(jsonBytes)}},
	}, output, nil
}
