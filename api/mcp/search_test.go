package mcp_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	apimcp "github.com/driftwood-labs/memex/api/mcp"
	"github.com/driftwood-labs/memex/pkg/coordinator"
	"github.com/driftwood-labs/memex/pkg/memory"
	"github.com/driftwood-labs/memex/pkg/memory/sqlitestore"
)

var _ = Describe("memory_search tool", func() {
	var (
		ctx context.Context
		co  *coordinator.Coordinator
	)

	BeforeEach(func() {
		ctx = context.Background()
		store, err := sqlitestore.Open(":memory:", zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		co = coordinator.New(zap.NewNop())
		Expect(co.Init(store, coordinator.Config{}, 0)).To(Succeed())

		_, err = co.Add(ctx, "My favorite coffee is espresso", memory.Owner{UserID: "u1"}, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	It("falls back to text search with no embedder configured and finds the match", func() {
		result, err := co.Search(ctx, "espresso", memory.SearchOptions{Owner: memory.Owner{UserID: "u1"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Memories).To(HaveLen(1))
		Expect(result.Degraded).To(BeTrue())
	})

	It("exposes the tool behind a working MCP server", func() {
		server, err := apimcp.NewServer(apimcp.Config{Coordinator: co, Logger: zap.NewNop()})
		Expect(err).NotTo(HaveOccurred())
		Expect(server.Handler()).NotTo(BeNil())
	})
})
