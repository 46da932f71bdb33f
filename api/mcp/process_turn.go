package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/driftwood-labs/memex/pkg/factextract"
	"github.com/driftwood-labs/memex/pkg/reconcile"
)

var (
	memoryProcessTurnToolName    = "memory_process_turn"
	memoryProcessTurnDescription = "Run the fact extraction and memory reconciliation pipeline against a conversation turn, updating the owner's memories in place."
)

// TurnInput is one message in the conversation passed to memory_process_turn.
type TurnInput struct {
	Role    string `json:"role" jsonschema:"the speaker role, e.g. user or assistant"`
	Content string `json:"content" jsonschema:"the message text"`
}

// MemoryProcessTurnInput represents the input arguments for the memory_process_turn tool.
type MemoryProcessTurnInput struct {
	OwnerInput
	Turns []TurnInput `json:"turns" jsonschema:"the conversation turns to extract facts from"`
}

// OperationOutput is the MCP-facing view of a reconcile.Outcome.
type OperationOutput struct {
	ID        string `json:"id,omitempty"`
	Text      string `json:"text"`
	Event     string `json:"event"`
	OldMemory string `json:"old_memory,omitempty"`
	Applied   bool   `json:"applied"`
	Error     string `json:"error,omitempty"`
}

// MemoryProcessTurnOutput represents the output of memory_process_turn.
type MemoryProcessTurnOutput struct {
	Facts      []string          `json:"facts"`
	Operations []OperationOutput `json:"operations"`
}

func (s *Server) handleMemoryProcessTurn(ctx context.Context, _ *mcp.CallToolRequest, input MemoryProcessTurnInput) (*mcp.CallToolResult, MemoryProcessTurnOutput, error) {
	if len(input.Turns) == 0 {
		return errResult("turns is required"), MemoryProcessTurnOutput{}, nil
	}

	turns := make([]factextract.Turn, len(input.Turns))
	for i, t := range input.Turns {
		turns[i] = factextract.Turn{Role: t.Role, Content: t.Content}
	}

	facts, outcomes, err := s.config.Coordinator.ProcessTurn(ctx, turns, input.toOwner())
	if err != nil {
		return errResult(fmt.Sprintf("memory_process_turn failed: %v", err)), MemoryProcessTurnOutput{}, nil
	}

	ops := make([]OperationOutput, len(outcomes))
	for i, o := range outcomes {
		ops[i] = toOperationOutput(o)
	}

	return jsonResult(MemoryProcessTurnOutput{Facts: facts, Operations: ops})
}

func toOperationOutput(o reconcile.Outcome) OperationOutput {
	out := OperationOutput{
		ID:        o.Operation.ID,
		Text:      o.Operation.Text,
		Event:     string(o.Operation.Event),
		OldMemory: o.Operation.OldMemory,
		Applied:   o.Applied,
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return out
}
