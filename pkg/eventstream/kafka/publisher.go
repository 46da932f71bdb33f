// Package kafka publishes memory mutation events to a Kafka topic. It is an
// opt-in extension of the history mechanism: history is queryable through the
// store directly, this is for collaborators who want a durable, ordered feed
// without polling it.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	segmentio "github.com/segmentio/kafka-go"

	"github.com/driftwood-labs/memex/pkg/eventstream"
)

// Publisher writes MemoryMutatedEvent payloads to a Kafka topic, keyed on
// owner so a consumer group can partition by owner and see a per-owner
// mutation order.
type Publisher struct {
	writer *segmentio.Writer
}

// Config configures the underlying Kafka writer.
type Config struct {
	Brokers []string
	Topic   string
}

// New dials no connections eagerly; segmentio/kafka-go's Writer connects
// lazily on the first WriteMessages call.
func New(cfg Config) *Publisher {
	return &Publisher{
		writer: &segmentio.Writer{
			Addr:                   segmentio.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &segmentio.Hash{},
			RequiredAcks:           segmentio.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

// PublishMutation marshals event as JSON and writes it keyed on the event's
// owner, so all mutations for one owner land on the same partition.
func (p *Publisher) PublishMutation(ctx context.Context, event *eventstream.MemoryMutatedEvent) error {
	if event == nil {
		return eventstream.ErrNilMutationEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling memory mutated event: %w", err)
	}

	key := event.Owner.UserID + "/" + event.Owner.AgentID + "/" + event.Owner.RunID

	return p.writer.WriteMessages(ctx, segmentio.Message{
		Key:   []byte(key),
		Value: payload,
	})
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
