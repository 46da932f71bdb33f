// Package ollama implements embedadapter's Adapter against Ollama's
// embedding API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/driftwood-labs/memex/pkg/embedadapter"
	"github.com/driftwood-labs/memex/pkg/memerr"
)

// DefaultBaseURL is the default Ollama API URL.
const DefaultBaseURL = "http://localhost:11434"

// Adapter wraps Ollama's embedding API.
type Adapter struct {
	httpClient *http.Client
}

// New constructs an Ollama-backed embedadapter.Adapter.
func New() *Adapter {
	return &Adapter{
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EmbedOne embeds a single text.
func (a *Adapter) EmbedOne(ctx context.Context, text string, desc embedadapter.ModelDescriptor) ([]float32, error) {
	vecs, err := a.EmbedMany(ctx, []string{text}, desc)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedMany embeds a batch of texts in a single Ollama request.
func (a *Adapter) EmbedMany(ctx context.Context, texts []string, desc embedadapter.ModelDescriptor) ([][]float32, error) {
	baseURL := desc.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	jsonBody, err := json.Marshal(embedRequest{Model: desc.Model, Input: texts})
	if err != nil {
		return nil, memerr.Wrap(memerr.Embedding, "marshaling ollama embed request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/embed", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, memerr.Wrap(memerr.Embedding, "creating ollama embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, memerr.Wrap(memerr.Embedding, "sending ollama embed request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, memerr.New(memerr.Embedding, fmt.Sprintf("ollama returned status %d: %s", resp.StatusCode, string(body)))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, memerr.Wrap(memerr.Embedding, "decoding ollama embed response", err)
	}

	if len(embedResp.Embeddings) != len(texts) {
		return nil, memerr.New(memerr.Embedding, fmt.Sprintf("ollama returned %d embeddings for %d inputs", len(embedResp.Embeddings), len(texts)))
	}

	return embedResp.Embeddings, nil
}

var _ embedadapter.Adapter = (*Adapter)(nil)
