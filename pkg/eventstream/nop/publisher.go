package nop

import (
	"context"

	"github.com/driftwood-labs/memex/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and for the
// Coordinator's default, unconfigured mutation-event sink.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishMutation validates input and otherwise does nothing.
func (p *Publisher) PublishMutation(_ context.Context, event *eventstream.MemoryMutatedEvent) error {
	if event == nil {
		return eventstream.ErrNilMutationEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
