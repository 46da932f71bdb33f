package embedadapter_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/driftwood-labs/memex/pkg/embedadapter"
	"github.com/driftwood-labs/memex/pkg/embedcache"
)

func TestEmbedadapter(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "embedadapter Suite")
}

var _ = Describe("ExpectedDimensions", func() {
	It("returns the known dimension count for recognized models", func() {
		Expect(embedadapter.ExpectedDimensions("text-embedding-3-small")).To(Equal(1536))
		Expect(embedadapter.ExpectedDimensions("text-embedding-3-large")).To(Equal(3072))
		Expect(embedadapter.ExpectedDimensions("text-embedding-ada-002")).To(Equal(1536))
		Expect(embedadapter.ExpectedDimensions("nomic-embed-text")).To(Equal(768))
		Expect(embedadapter.ExpectedDimensions("mxbai-embed-large")).To(Equal(1024))
	})

	It("falls back to 1536 for an unknown model", func() {
		Expect(embedadapter.ExpectedDimensions("some-future-model")).To(Equal(1536))
	})
})

// fakeAdapter counts calls and returns a deterministic vector per text so
// tests can assert batching and cache behavior without a real provider.
type fakeAdapter struct {
	calls    int
	lastSize int
}

func (f *fakeAdapter) EmbedOne(ctx context.Context, text string, desc embedadapter.ModelDescriptor) ([]float32, error) {
	f.calls++
	return []float32{float32(len(text))}, nil
}

func (f *fakeAdapter) EmbedMany(ctx context.Context, texts []string, desc embedadapter.ModelDescriptor) ([][]float32, error) {
	f.calls++
	f.lastSize = len(texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

var _ = Describe("Cached", func() {
	var (
		fake  *fakeAdapter
		cache *embedcache.Cache
		c     *embedadapter.Cached
		desc  embedadapter.ModelDescriptor
	)

	BeforeEach(func() {
		fake = &fakeAdapter{}
		cache = embedcache.New()
		c = embedadapter.NewCached(fake, cache)
		desc = embedadapter.ModelDescriptor{Model: "nomic-embed-text"}
	})

	It("only calls the underlying adapter once for a repeated EmbedOne", func() {
		v1, err := c.EmbedOne(context.Background(), "hello", desc)
		Expect(err).NotTo(HaveOccurred())
		v2, err := c.EmbedOne(context.Background(), "hello", desc)
		Expect(err).NotTo(HaveOccurred())
		Expect(v1).To(Equal(v2))
		Expect(fake.calls).To(Equal(1))
	})

	It("preserves order across cache hits and misses in EmbedMany", func() {
		_, err := c.EmbedOne(context.Background(), "b", desc)
		Expect(err).NotTo(HaveOccurred())
		fake.calls = 0

		vecs, err := c.EmbedMany(context.Background(), []string{"a", "b", "ccc"}, desc)
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(HaveLen(3))
		Expect(vecs[0]).To(Equal([]float32{1}))
		Expect(vecs[1]).To(Equal([]float32{1}))
		Expect(vecs[2]).To(Equal([]float32{3}))
		// "b" was cached already, so only "a" and "ccc" hit the adapter.
		Expect(fake.lastSize).To(Equal(2))
	})

	It("splits more than BatchSize misses into multiple underlying calls", func() {
		texts := make([]string, embedadapter.BatchSize+10)
		for i := range texts {
			texts[i] = string(rune('a' + i%26))
		}

		vecs, err := c.EmbedMany(context.Background(), texts, desc)
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(HaveLen(len(texts)))
		Expect(fake.calls).To(Equal(2))
	})
})
