// Package ollama implements chatllm's Adapter against Ollama's chat
// completion API, the non-streaming counterpart to embedadapter/ollama's
// embedding client.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/driftwood-labs/memex/pkg/chatllm"
	"github.com/driftwood-labs/memex/pkg/memerr"
)

// DefaultBaseURL is the default Ollama API URL.
const DefaultBaseURL = "http://localhost:11434"

// Adapter wraps Ollama's /api/chat endpoint.
type Adapter struct {
	httpClient *http.Client
}

// New constructs an Ollama-backed chatllm.Adapter.
func New() *Adapter {
	return &Adapter{
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int64   `json:"num_predict"`
}

type chatRequest struct {
	Model    string      `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool        `json:"stream"`
	Options  chatOptions `json:"options"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// Complete sends a system + user message pair to Ollama and returns the
// accumulated response text. Stream is always false: the Fact Extractor and
// Memory Reconciler only ever want the final text, never partial tokens.
func (a *Adapter) Complete(ctx context.Context, desc chatllm.ModelDescriptor, req chatllm.Request) (string, error) {
	baseURL := desc.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	body := chatRequest{
		Model: desc.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Stream: false,
		Options: chatOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", memerr.Wrap(memerr.LLM, "marshaling ollama chat request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return "", memerr.Wrap(memerr.LLM, "creating ollama chat request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", memerr.Wrap(memerr.LLM, "sending ollama chat request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", memerr.New(memerr.LLM, fmt.Sprintf("ollama returned status %d: %s", resp.StatusCode, string(respBody)))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", memerr.Wrap(memerr.LLM, "decoding ollama chat response", err)
	}

	return chatResp.Message.Content, nil
}

var _ chatllm.Adapter = (*Adapter)(nil)
