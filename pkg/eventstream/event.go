package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMemoryMutated is emitted after a memory row is added, updated, or deleted.
	EventTypeMemoryMutated = "memex.memory.mutated"
)

// MemoryMutatedEvent is a transport-neutral event payload for a committed
// memory mutation. It carries enough of the row to let a downstream
// collaborator rebuild its own view of an owner's memory set without
// querying the store directly.
type MemoryMutatedEvent struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	EventID       string         `json:"event_id"`
	EmittedAt     time.Time      `json:"emitted_at"`
	Owner         EventOwner     `json:"owner"`
	Mutation      MemoryMutation `json:"mutation"`
}

// EventOwner identifies whose memory set the mutation belongs to.
type EventOwner struct {
	UserID  string `json:"user_id,omitempty"`
	AgentID string `json:"agent_id,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

// MemoryMutation describes what changed. Event is one of ADD, UPDATE, DELETE
// — NONE mutations are never published since nothing committed.
type MemoryMutation struct {
	MemoryID string `json:"memory_id"`
	Event    string `json:"event"`
	Text     string `json:"text"`
	OldText  string `json:"old_text,omitempty"`
}
