// Package events publishes domain events for the order, negotiation and
// provenance workflows. Publishing happens after the owning transaction commits
// and never affects the outcome of the operation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	OrderCreated                  = "order.created"
	OrderStatusChanged            = "order.status_changed"
	OrderPaymentUpdated           = "order.payment_updated"
	BulkRequestCreated            = "bulk_request.created"
	BulkRequestUpdated            = "bulk_request.updated"
	OfferSubmitted                = "offer.submitted"
	OfferResolved                 = "offer.resolved"
	OfferConverted                = "offer.converted"
	TraceabilityOpened            = "traceability.opened"
	TraceabilityProcessingAdded   = "traceability.processing_appended"
	TraceabilityQualityCheckAdded = "traceability.quality_check_appended"
)

type Event struct {
	ID          uuid.UUID   `json:"id"`
	Type        string      `json:"type"`
	AggregateID uuid.UUID   `json:"aggregate_id"`
	Reference   string      `json:"reference"`
	ActorID     uuid.UUID   `json:"actor_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Payload     interface{} `json:"payload,omitempty"`
}

func New(eventType string, aggregateID uuid.UUID, reference string, actorID uuid.UUID, payload interface{}) Event {
	return Event{
		ID:          uuid.New(),
		Type:        eventType,
		AggregateID: aggregateID,
		Reference:   reference,
		ActorID:     actorID,
		OccurredAt:  time.Now().UTC(),
		Payload:     payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NewKafkaWriter builds a writer for the marketplace topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// KafkaPublisher keys messages by the aggregate reference so all events of one
// order, request or batch land on the same partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", evt.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.Reference),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
		},
		Time: evt.OccurredAt,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", evt.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards events; used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, evt)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Types() []string {
	var types []string
	for _, e := range r.Events() {
		types = append(types, e.Type)
	}
	return types
}
