// Package embedadapter defines the Embedding Adapter contract consumed by
// the memory core: embed_one, embed_many, and expected_dimensions. Concrete
// providers live in subpackages (see embedadapter/ollama); Cached wraps any
// Adapter with pkg/embedcache so repeated text for the same model is never
// re-embedded.
package embedadapter

import (
	"context"
	"fmt"

	"github.com/driftwood-labs/memex/pkg/embedcache"
	"github.com/driftwood-labs/memex/pkg/memerr"
)

// BatchSize is the chunk size embed_many splits its input into.
const BatchSize = 100

// ModelDescriptor names the embedding model and where to reach it. Model is
// also the key expected_dimensions and the embedding cache use.
type ModelDescriptor struct {
	Provider string
	Model    string
	BaseURL  string
}

// Adapter is the Embedding Adapter contract: embed_one and embed_many.
type Adapter interface {
	// EmbedOne embeds a single text.
	EmbedOne(ctx context.Context, text string, desc ModelDescriptor) ([]float32, error)

	// EmbedMany embeds a batch of texts, order-preserving and same length as input.
	EmbedMany(ctx context.Context, texts []string, desc ModelDescriptor) ([][]float32, error)
}

// expectedDims are the recognized defaults used when a configuration omits
// an explicit dimension count.
var expectedDims = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
}

// ExpectedDimensions returns the known dimension count for modelID, falling
// back to 1536 for any model this table doesn't recognize.
func ExpectedDimensions(modelID string) int {
	if d, ok := expectedDims[modelID]; ok {
		return d
	}
	return 1536
}

// Cached wraps an Adapter with a bounded embedding cache, so embed_one and
// embed_many only reach the underlying provider for cache misses.
type Cached struct {
	inner Adapter
	cache *embedcache.Cache
}

// NewCached builds a Cached adapter around inner using cache for memoization.
func NewCached(inner Adapter, cache *embedcache.Cache) *Cached {
	return &Cached{inner: inner, cache: cache}
}

// EmbedOne returns the cached vector for (text, desc.Model) if present,
// otherwise embeds via the underlying adapter and populates the cache.
func (c *Cached) EmbedOne(ctx context.Context, text string, desc ModelDescriptor) ([]float32, error) {
	if v, ok := c.cache.Get(text, desc.Model); ok {
		return v, nil
	}

	v, err := c.inner.EmbedOne(ctx, text, desc)
	if err != nil {
		return nil, err
	}
	c.cache.Put(text, desc.Model, v)
	return v, nil
}

// EmbedMany embeds texts in order, reusing cache hits and batching the
// remaining misses to the underlying adapter in chunks of BatchSize. The
// result is order-preserving and the same length as texts.
func (c *Cached) EmbedMany(ctx context.Context, texts []string, desc ModelDescriptor) ([][]float32, error) {
	result := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		if v, ok := c.cache.Get(t, desc.Model); ok {
			result[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	for start := 0; start < len(missTexts); start += BatchSize {
		end := start + BatchSize
		if end > len(missTexts) {
			end = len(missTexts)
		}

		chunk := missTexts[start:end]
		vecs, err := c.inner.EmbedMany(ctx, chunk, desc)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(chunk) {
			return nil, memerr.New(memerr.Embedding, fmt.Sprintf("embed_many returned %d vectors for %d inputs", len(vecs), len(chunk)))
		}

		for j, v := range vecs {
			idx := missIdx[start+j]
			result[idx] = v
			c.cache.Put(chunk[j], desc.Model, v)
		}
	}

	return result, nil
}

var _ Adapter = (*Cached)(nil)
