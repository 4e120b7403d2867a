package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink publishes quarantine events to a Kafka topic so operator
// tooling (alerting, a review dashboard) can consume them.
type KafkaSink struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaSink connects to the brokers and ensures the topic exists.
// Topic creation failing because the topic is already there is fine.
func NewKafkaSink(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopics(ctx, 1, 1, nil, topic); err != nil {
		logger.Warn("ensure notify topic", "topic", topic, "error", err)
	}

	return &KafkaSink{client: client, topic: topic, logger: logger}, nil
}

// Notify produces the event asynchronously. Produce errors surface in the
// callback and are logged; the caller already treats delivery as best
// effort.
func (s *KafkaSink) Notify(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal quarantine event: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.ClientIdentifier),
		Value: payload,
	}
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.logger.Error("produce quarantine event",
				"client_identifier", event.ClientIdentifier, "error", err)
		}
	})
	return nil
}

// Close flushes outstanding produces and releases the client.
func (s *KafkaSink) Close() {
	if err := s.client.Flush(context.Background()); err != nil {
		s.logger.Warn("flush kafka producer", "error", err)
	}
	s.client.Close()
}
