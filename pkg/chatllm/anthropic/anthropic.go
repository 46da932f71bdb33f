// Package anthropic implements chatllm's Adapter against the Anthropic
// Messages API, accumulating a streamed response into a single string the
// way the Fact Extractor and Memory Reconciler expect.
package anthropic

import (
	"context"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/driftwood-labs/memex/pkg/chatllm"
	"github.com/driftwood-labs/memex/pkg/memerr"
)

// Adapter calls the Anthropic Messages API.
type Adapter struct{}

// New constructs an Anthropic-backed chatllm.Adapter. A fresh SDK client is
// built per call from desc, since each ModelDescriptor may carry its own
// API key and base URL.
func New() *Adapter {
	return &Adapter{}
}

// Complete sends a two-message request (system + user) and returns the
// accumulated response text.
func (a *Adapter) Complete(ctx context.Context, desc chatllm.ModelDescriptor, req chatllm.Request) (string, error) {
	var opts []option.RequestOption
	if desc.APIKey != "" {
		opts = append(opts, option.WithAPIKey(desc.APIKey))
	}
	if desc.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(desc.BaseURL))
	}
	client := sdkanthropic.NewClient(opts...)

	params := sdkanthropic.MessageNewParams{
		Model:       sdkanthropic.Model(desc.Model),
		MaxTokens:   req.MaxTokens,
		Temperature: sdkanthropic.Float(req.Temperature),
		System: []sdkanthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []sdkanthropic.MessageParam{
			sdkanthropic.NewUserMessage(sdkanthropic.NewTextBlock(req.User)),
		},
	}

	stream := client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	message := sdkanthropic.Message{}
	for stream.Next() {
		if err := message.Accumulate(stream.Current()); err != nil {
			return "", memerr.Wrap(memerr.LLM, "accumulating anthropic stream", err)
		}
	}
	if err := stream.Err(); err != nil {
		return "", memerr.Wrap(memerr.LLM, "anthropic streaming request failed", err)
	}

	var text string
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(sdkanthropic.TextBlock); ok {
			text += tb.Text
		}
	}
	return text, nil
}

var _ chatllm.Adapter = (*Adapter)(nil)
