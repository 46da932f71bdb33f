// Package reconcile applies the LLM's proposed ADD/UPDATE/DELETE/NONE
// operations against a memory.Store, best-effort: a single failing
// operation never aborts the rest, matching the accumulate-then-parse and
// continue-on-error idiom used throughout this codebase's ingestion paths.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/driftwood-labs/memex/pkg/chatllm"
	"github.com/driftwood-labs/memex/pkg/embedadapter"
	"github.com/driftwood-labs/memex/pkg/memerr"
	"github.com/driftwood-labs/memex/pkg/memory"
)

// DefaultSimilarityThreshold gates the near-duplicate check an ADD runs
// against all stored memories (FindSimilar is not owner-scoped) before
// inserting: a proposed fact
// whose embedding is at least this similar to something already stored is
// treated as already known rather than added again.
const DefaultSimilarityThreshold = 0.95

// DefaultPrompt is used when the caller's configuration does not override
// update_memory_prompt.
const DefaultPrompt = `You reconcile newly extracted facts against a user's existing memory.
You are given the current memories (id + text) and a list of new facts.
For each fact, decide one of: ADD (a new memory), UPDATE (an existing memory changed), DELETE (an existing memory is now false), or NONE (already known, no action).
Return ONLY a JSON object of the form:
{"memory": [{"id": "existing-id-or-omitted", "text": "...", "event": "ADD|UPDATE|DELETE|NONE", "old_memory": "previous text, for UPDATE only"}]}`

// Event is the operation the Reconciler decided to apply to one memory.
type Event string

const (
	EventAdd    Event = "ADD"
	EventUpdate Event = "UPDATE"
	EventDelete Event = "DELETE"
	EventNone   Event = "NONE"
)

// Operation is one entry in the LLM's proposed operation list.
type Operation struct {
	ID        string `json:"id,omitempty"`
	Text      string `json:"text"`
	Event     Event  `json:"event"`
	OldMemory string `json:"old_memory,omitempty"`
}

// Outcome records what actually happened when Operation was applied.
type Outcome struct {
	Operation Operation
	Applied   bool
	Err       error
}

type updateResponse struct {
	Memory []Operation `json:"memory"`
}

type candidate struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Reconcile implements §4.6: given newly extracted facts and a store
// scoped to owner, loads the current memory snapshot, asks the LLM how to
// apply the facts, and applies each resulting operation in order. embedder
// may be nil when no embedder is configured, in which case ADD skips the
// near-duplicate check and inserts without a vector, same as
// Coordinator.Add does.
func Reconcile(ctx context.Context, store memory.Store, adapter chatllm.Adapter, desc chatllm.ModelDescriptor, prompt string, embedder embedadapter.Adapter, embedDesc embedadapter.ModelDescriptor, owner memory.Owner, facts []string) ([]Outcome, error) {
	if len(facts) == 0 {
		return nil, nil
	}
	if prompt == "" {
		prompt = DefaultPrompt
	}

	current, err := store.List(ctx, memory.ListOptions{Owner: owner, Limit: 100})
	if err != nil {
		return nil, err
	}

	candidates := make([]candidate, len(current))
	for i, m := range current {
		candidates[i] = candidate{ID: m.ID, Text: m.Text}
	}

	userPrompt, err := renderUpdatePrompt(candidates, facts)
	if err != nil {
		return nil, err
	}

	text, err := adapter.Complete(ctx, desc, chatllm.Request{
		System:      prompt,
		User:        userPrompt,
		Temperature: 0.1,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, err
	}

	ops, ok := parseOperations(text)
	if !ok {
		return nil, nil
	}

	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.ID] = true
	}

	outcomes := make([]Outcome, 0, len(ops))
	for _, op := range ops {
		outcomes = append(outcomes, apply(ctx, store, embedder, embedDesc, owner, op, known))
	}
	return outcomes, nil
}

func renderUpdatePrompt(candidates []candidate, facts []string) (string, error) {
	existingJSON, err := json.Marshal(candidates)
	if err != nil {
		return "", memerr.Wrap(memerr.InvalidInput, "marshaling existing memories", err)
	}
	factsJSON, err := json.Marshal(facts)
	if err != nil {
		return "", memerr.Wrap(memerr.InvalidInput, "marshaling facts", err)
	}
	return fmt.Sprintf("Existing memories:\n%s\n\nNew facts:\n%s", existingJSON, factsJSON), nil
}

func parseOperations(text string) ([]Operation, bool) {
	ops, ok := tryParseOperations(text)
	if !ok {
		ops, ok = tryParseOperations(strings.TrimSpace(text))
	}
	return ops, ok
}

func tryParseOperations(text string) ([]Operation, bool) {
	var resp updateResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, false
	}
	return resp.Memory, true
}

func apply(ctx context.Context, store memory.Store, embedder embedadapter.Adapter, embedDesc embedadapter.ModelDescriptor, owner memory.Owner, op Operation, known map[string]bool) Outcome {
	switch op.Event {
	case EventAdd:
		var vec []float32
		if embedder != nil {
			v, err := embedder.EmbedOne(ctx, op.Text, embedDesc)
			if err != nil {
				return Outcome{Operation: op, Err: err}
			}
			vec = v

			similar, err := store.FindSimilar(ctx, vec, DefaultSimilarityThreshold, "")
			if err != nil {
				return Outcome{Operation: op, Err: err}
			}
			if len(similar) > 0 {
				// Already have a near-identical memory; treat as NONE.
				return Outcome{Operation: op}
			}
		}

		_, err := store.Add(ctx, op.Text, owner, map[string]any{"owner": owner}, vec)
		if err != nil {
			return Outcome{Operation: op, Err: err}
		}
		return Outcome{Operation: op, Applied: true}

	case EventUpdate:
		if op.ID == "" || !known[op.ID] {
			return Outcome{Operation: op}
		}
		err := store.Update(ctx, op.ID, op.Text, map[string]any{"owner": owner, "old_memory": op.OldMemory}, nil)
		if err != nil {
			if memerr.HasCode(err, memerr.NotFound) {
				return Outcome{Operation: op}
			}
			return Outcome{Operation: op, Err: err}
		}
		return Outcome{Operation: op, Applied: true}

	case EventDelete:
		err := store.Delete(ctx, op.ID)
		if err != nil {
			if memerr.HasCode(err, memerr.NotFound) {
				return Outcome{Operation: op}
			}
			return Outcome{Operation: op, Err: err}
		}
		return Outcome{Operation: op, Applied: true}

	default: // EventNone or unrecognized
		return Outcome{Operation: op}
	}
}
