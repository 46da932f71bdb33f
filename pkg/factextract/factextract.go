// Package factextract turns a chat transcript into a list of atomic
// declarative facts by delegating to a chatllm.Adapter, matching the
// accumulate-then-parse idiom the codebase this module is modeled on
// uses for every outbound LLM call.
package factextract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/driftwood-labs/memex/pkg/chatllm"
)

// DefaultPrompt is used when the caller's configuration does not override
// fact_extraction_prompt.
const DefaultPrompt = `You extract atomic, declarative facts about the user from a conversation transcript.
Return ONLY a JSON object of the form {"facts": ["fact one", "fact two", ...]}.
Each fact must be a short, self-contained statement with no pronouns referring outside itself.
If the transcript contains no durable facts worth remembering, return {"facts": []}.`

// Turn is one message in the transcript handed to Extract.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Render joins turns as "{role}: {content}" lines.
func Render(turns []Turn) string {
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = t.Role + ": " + t.Content
	}
	return strings.Join(lines, "\n")
}

type factsResponse struct {
	Facts []string `json:"facts"`
}

// Extract renders turns, calls adapter with a fixed temperature/token cap,
// and parses the result into a filtered, non-empty fact list. It never
// returns an error for a malformed LLM response — an empty list is
// returned instead — but does propagate adapter-level failures (network,
// auth, etc.) to the caller.
func Extract(ctx context.Context, adapter chatllm.Adapter, desc chatllm.ModelDescriptor, prompt string, turns []Turn) ([]string, error) {
	if prompt == "" {
		prompt = DefaultPrompt
	}

	text, err := adapter.Complete(ctx, desc, chatllm.Request{
		System:      prompt,
		User:        Render(turns),
		Temperature: 0.1,
		MaxTokens:   1000,
	})
	if err != nil {
		return nil, err
	}

	return parseFacts(text), nil
}

func parseFacts(text string) []string {
	facts, ok := tryParseFacts(text)
	if !ok {
		facts, ok = tryParseFacts(strings.TrimSpace(text))
		if !ok {
			return nil
		}
	}

	out := make([]string, 0, len(facts))
	for _, f := range facts {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func tryParseFacts(text string) ([]string, bool) {
	var resp factsResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, false
	}
	return resp.Facts, true
}
