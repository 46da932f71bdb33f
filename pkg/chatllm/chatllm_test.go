package chatllm_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/driftwood-labs/memex/pkg/chatllm"
)

func TestChatllm(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "chatllm Suite")
}

type fakeAdapter struct {
	lastReq  chatllm.Request
	response string
}

func (f *fakeAdapter) Complete(ctx context.Context, desc chatllm.ModelDescriptor, req chatllm.Request) (string, error) {
	f.lastReq = req
	return f.response, nil
}

var _ = Describe("Adapter", func() {
	It("is satisfiable by a fake implementation carrying system/user/temperature/max_tokens through", func() {
		fake := &fakeAdapter{response: `{"facts":[]}`}
		var a chatllm.Adapter = fake

		out, err := a.Complete(context.Background(), chatllm.ModelDescriptor{Model: "claude-sonnet-4-5"}, chatllm.Request{
			System:      "extract facts",
			User:        "user: hello",
			Temperature: 0.1,
			MaxTokens:   1000,
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(`{"facts":[]}`))
		Expect(fake.lastReq.System).To(Equal("extract facts"))
		Expect(fake.lastReq.Temperature).To(BeNumerically("~", 0.1, 1e-9))
		Expect(fake.lastReq.MaxTokens).To(Equal(int64(1000)))
	})
})
