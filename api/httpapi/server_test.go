package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/driftwood-labs/memex/pkg/coordinator"
	"github.com/driftwood-labs/memex/pkg/memory"
	"github.com/driftwood-labs/memex/pkg/memory/sqlitestore"
)

func TestHTTPAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "httpapi Suite")
}

func decodeJSON(t GinkgoTInterface, body io.Reader, out any) {
	Expect(json.NewDecoder(body).Decode(out)).To(Succeed())
}

var _ = Describe("Server", func() {
	var (
		ctx    context.Context
		co     *coordinator.Coordinator
		server *Server
	)

	BeforeEach(func() {
		ctx = context.Background()
		store, err := sqlitestore.Open(":memory:", zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		co = coordinator.New(zap.NewNop())
		Expect(co.Init(store, coordinator.Config{}, 0)).To(Succeed())

		server = NewServer(Config{ListenAddr: ":0"}, co, zap.NewNop(), nil)
	})

	Describe("GET /ping", func() {
		It("returns 200", func() {
			req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("POST /v1/memories", func() {
		It("creates a memory and returns 201", func() {
			body := `{"text":"I like espresso","user_id":"u1"}`
			req, _ := http.NewRequest(http.MethodPost, "/v1/memories", bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var m memory.Memory
			decodeJSON(GinkgoT(), resp.Body, &m)
			Expect(m.Text).To(Equal("I like espresso"))
			Expect(m.UserID).To(Equal("u1"))
		})

		It("rejects an empty text with 400", func() {
			body := `{"text":"","user_id":"u1"}`
			req, _ := http.NewRequest(http.MethodPost, "/v1/memories", bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /v1/memories", func() {
		It("lists memories for an owner", func() {
			_, err := co.Add(ctx, "I like espresso", memory.Owner{UserID: "u1"}, nil)
			Expect(err).NotTo(HaveOccurred())

			req, _ := http.NewRequest(http.MethodGet, "/v1/memories?user_id=u1", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out struct {
				Memories []memory.Memory `json:"memories"`
				Count    int             `json:"count"`
			}
			decodeJSON(GinkgoT(), resp.Body, &out)
			Expect(out.Count).To(Equal(1))
		})

		It("rejects a negative limit with 400", func() {
			req, _ := http.NewRequest(http.MethodGet, "/v1/memories?limit=-1", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("PUT /v1/memories/:id", func() {
		It("updates a memory and returns 204", func() {
			m, err := co.Add(ctx, "I like espresso", memory.Owner{UserID: "u1"}, nil)
			Expect(err).NotTo(HaveOccurred())

			body := `{"text":"I like cappuccino"}`
			req, _ := http.NewRequest(http.MethodPut, "/v1/memories/"+m.ID, bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
		})

		It("returns 404 for an unknown id", func() {
			body := `{"text":"I like cappuccino"}`
			req, _ := http.NewRequest(http.MethodPut, "/v1/memories/does-not-exist", bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("DELETE /v1/memories/:id", func() {
		It("deletes a memory and returns 204", func() {
			m, err := co.Add(ctx, "I like espresso", memory.Owner{UserID: "u1"}, nil)
			Expect(err).NotTo(HaveOccurred())

			req, _ := http.NewRequest(http.MethodDelete, "/v1/memories/"+m.ID, nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
		})
	})

	Describe("GET /v1/memories/:id/history", func() {
		It("returns the add event for a fresh memory", func() {
			m, err := co.Add(ctx, "I like espresso", memory.Owner{UserID: "u1"}, nil)
			Expect(err).NotTo(HaveOccurred())

			req, _ := http.NewRequest(http.MethodGet, "/v1/memories/"+m.ID+"/history", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out struct {
				History []memory.HistoryItem `json:"history"`
			}
			decodeJSON(GinkgoT(), resp.Body, &out)
			Expect(out.History).To(HaveLen(1))
			Expect(out.History[0].Action).To(Equal(memory.ActionAdd))
		})
	})

	Describe("GET /v1/search", func() {
		It("requires a query parameter", func() {
			req, _ := http.NewRequest(http.MethodGet, "/v1/search", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("finds a matching memory via text fallback", func() {
			_, err := co.Add(ctx, "My favorite coffee is espresso", memory.Owner{UserID: "u1"}, nil)
			Expect(err).NotTo(HaveOccurred())

			req, _ := http.NewRequest(http.MethodGet, "/v1/search?query=espresso&user_id=u1", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out struct {
				Results []memory.Memory `json:"results"`
				Count   int             `json:"count"`
			}
			decodeJSON(GinkgoT(), resp.Body, &out)
			Expect(out.Count).To(Equal(1))
		})
	})

	Describe("POST /v1/process-turn", func() {
		It("returns 503 when no chat LLM is configured", func() {
			body := `{"user_id":"u1","turns":[{"role":"user","content":"I like espresso"}]}`
			req, _ := http.NewRequest(http.MethodPost, "/v1/process-turn", bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		})

		It("rejects an empty turns list with 400", func() {
			body := `{"user_id":"u1","turns":[]}`
			req, _ := http.NewRequest(http.MethodPost, "/v1/process-turn", bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /v1/reset", func() {
		It("truncates memories and returns 204", func() {
			_, err := co.Add(ctx, "I like espresso", memory.Owner{UserID: "u1"}, nil)
			Expect(err).NotTo(HaveOccurred())

			req, _ := http.NewRequest(http.MethodPost, "/v1/reset", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			memories, err := co.List(ctx, memory.ListOptions{Owner: memory.Owner{UserID: "u1"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(memories).To(BeEmpty())
		})
	})
})
