package sqlitestore_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/driftwood-labs/memex/pkg/memerr"
	"github.com/driftwood-labs/memex/pkg/memory"
	"github.com/driftwood-labs/memex/pkg/memory/sqlitestore"
)

func TestSqlitestore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "memory/sqlitestore Suite")
}

func openStore() *sqlitestore.Store {
	s, err := sqlitestore.Open(":memory:", zap.NewNop())
	Expect(err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		store *sqlitestore.Store
		owner memory.Owner
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = openStore()
		owner = memory.Owner{UserID: "u1"}
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	Describe("Add", func() {
		It("inserts a new row with an ADD history entry", func() {
			m, err := store.Add(ctx, "  My name is John  ", owner, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Text).To(Equal("My name is John"))
			Expect(m.ID).NotTo(BeEmpty())

			hist, err := store.History(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(hist).To(HaveLen(1))
			Expect(hist[0].Action).To(Equal(memory.ActionAdd))
		})

		It("rejects empty text", func() {
			_, err := store.Add(ctx, "   ", owner, nil, nil)
			Expect(memerr.HasCode(err, memerr.InvalidInput)).To(BeTrue())
		})

		It("is idempotent for the same text (dedup on hash)", func() {
			a, err := store.Add(ctx, "My name is John", owner, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			b, err := store.Add(ctx, "my name is JOHN  ", owner, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.ID).To(Equal(a.ID))

			all, err := store.List(ctx, memory.ListOptions{Owner: owner})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))

			hist, err := store.History(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(hist).To(HaveLen(1))
		})

		It("mints a new id when re-adding previously soft-deleted text", func() {
			a, err := store.Add(ctx, "ephemeral fact", owner, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Delete(ctx, a.ID)).To(Succeed())

			b, err := store.Add(ctx, "ephemeral fact", owner, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.ID).NotTo(Equal(a.ID))
		})
	})

	Describe("Update", func() {
		It("rewrites text and hash, merges metadata, and appends UPDATE history", func() {
			m, err := store.Add(ctx, "My name is John", owner, map[string]any{"a": 1}, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(store.Update(ctx, m.ID, "My name is Tony", map[string]any{"b": 2}, nil)).To(Succeed())

			list, err := store.List(ctx, memory.ListOptions{Owner: owner})
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(list[0].Text).To(Equal("My name is Tony"))
			Expect(list[0].Metadata).To(Equal(map[string]any{"a": float64(1), "b": float64(2)}))

			hist, err := store.History(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(hist).To(HaveLen(2))
			Expect(hist[0].Action).To(Equal(memory.ActionUpdate))
			Expect(hist[1].Action).To(Equal(memory.ActionAdd))
		})

		It("fails with NotFound for a missing id", func() {
			err := store.Update(ctx, "does-not-exist", "x", nil, nil)
			Expect(memerr.HasCode(err, memerr.NotFound)).To(BeTrue())
		})
	})

	Describe("Delete", func() {
		It("soft-deletes and hides the row from List while keeping history", func() {
			m, err := store.Add(ctx, "to be deleted", owner, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Delete(ctx, m.ID)).To(Succeed())

			list, err := store.List(ctx, memory.ListOptions{Owner: owner})
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())

			hist, err := store.History(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(hist).To(HaveLen(2))
		})

		It("returns NotFound when deleting a missing id", func() {
			err := store.Delete(ctx, "does-not-exist")
			Expect(memerr.HasCode(err, memerr.NotFound)).To(BeTrue())
		})
	})

	Describe("SearchText", func() {
		It("ranks an exact substring match and excludes non-matches", func() {
			_, err := store.Add(ctx, "I like espresso", owner, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Add(ctx, "My favorite color is blue", owner, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			results, err := store.SearchText(ctx, "espresso", memory.SearchOptions{Owner: owner, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Text).To(Equal("I like espresso"))
			Expect(results[0].Score).To(Equal(1.0))
		})
	})

	Describe("SearchHybrid", func() {
		It("blends vector and text similarity and filters by threshold", func() {
			_, err := store.Add(ctx, "coffee and espresso", owner, nil, []float32{1, 0})
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Add(ctx, "my favorite color", owner, nil, []float32{0, 1})
			Expect(err).NotTo(HaveOccurred())

			results, err := store.SearchHybrid(ctx, "espresso", []float32{1, 0}, memory.SearchOptions{Owner: owner, Limit: 10, Threshold: 0})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Text).To(Equal("coffee and espresso"))
			Expect(results[0].Score).To(BeNumerically("~", 1.0, 1e-6))
		})
	})

	Describe("FindSimilar", func() {
		It("finds near-duplicate embeddings above threshold, excluding the given id", func() {
			a, err := store.Add(ctx, "first", owner, nil, []float32{1, 0})
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Add(ctx, "second", owner, nil, []float32{1, 0})
			Expect(err).NotTo(HaveOccurred())

			results, err := store.FindSimilar(ctx, []float32{1, 0}, 0.95, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Text).To(Equal("second"))
		})
	})

	Describe("Reset", func() {
		It("truncates both tables", func() {
			m, err := store.Add(ctx, "to be reset", owner, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Reset(ctx)).To(Succeed())

			list, err := store.List(ctx, memory.ListOptions{Owner: owner})
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())

			hist, err := store.History(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(hist).To(BeEmpty())
		})
	})
})
