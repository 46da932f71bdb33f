// Package chatllm defines the chat-completion contract consumed by the
// Fact Extractor and Memory Reconciler: a two-message request (system +
// user) at a fixed temperature and output-token cap, returning the
// accumulated response text. Concrete providers live in subpackages (see
// chatllm/anthropic).
package chatllm

import "context"

// ModelDescriptor names the chat model and where to reach it.
type ModelDescriptor struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// Request is a two-message chat-completion request: a system prompt and a
// single user prompt, at a fixed temperature and output-token cap.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int64
}

// Adapter is the chat-completion contract the core calls into.
type Adapter interface {
	// Complete sends req to the model described by desc and returns the
	// accumulated response text.
	Complete(ctx context.Context, desc ModelDescriptor, req Request) (string, error)
}
