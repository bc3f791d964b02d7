// Package kafka mirrors audit events to a Kafka topic so downstream
// compliance tooling can consume them independently of the service's
// database.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "basera/pkg/platform/audit"
)

type Sink struct {
	client *kgo.Client
	topic  string
}

// NewSink connects to the given brokers. The caller owns the sink and
// must Close it on shutdown.
func NewSink(brokers []string, topic string) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RecordRetries(3),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Sink{client: client, topic: topic}, nil
}

// payload is the wire format published to the topic. Field names are part
// of the consumer contract; do not rename without coordinating.
type payload struct {
	ID        string            `json:"id"`
	Category  string            `json:"category"`
	Timestamp string            `json:"timestamp"`
	UserID    string            `json:"user_id,omitempty"`
	Action    string            `json:"action"`
	ActorID   string            `json:"actor_id,omitempty"`
	Decision  string            `json:"decision,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Append publishes the event, keyed by user so a consumer sees one user's
// events in order.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	p := payload{
		ID:        uuid.NewString(),
		Category:  string(audit.AuditEvent(event.Action).Category()),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    event.Action,
		ActorID:   event.ActorID,
		Decision:  event.Decision,
		Reason:    event.Reason,
		RequestID: event.RequestID,
		Details:   event.Details,
	}

	var key []byte
	if !event.UserID.IsNil() {
		p.UserID = event.UserID.String()
		key = []byte(p.UserID)
	}

	value, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   key,
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func (s *Sink) Close() {
	s.client.Close()
}
