package kafkabus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"ecoscale/domain/energy"

	"github.com/segmentio/kafka-go"
)

// Sink publishes anomaly records to a Kafka topic, one JSON message per
// record keyed by building, so downstream reporting consumers can
// partition by building.
type Sink struct {
	writer *kafka.Writer
}

// NewSink creates a sink for the given brokers and topic
func NewSink(brokers []string, topic string) *Sink {
	return &Sink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
	}
}

// Publish sends every report record plus a trailing manifest message
func (s *Sink) Publish(ctx context.Context, report *energy.AnomalyReport, manifest *energy.RunManifest) error {
	messages := make([]kafka.Message, 0, len(report.Records)+1)
	for _, rec := range report.Records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(rec.BuildingID.String()),
			Value: payload,
		})
	}

	manifestPayload, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	messages = append(messages, kafka.Message{
		Key:   []byte("manifest:" + report.RunID.String()),
		Value: manifestPayload,
	})

	if err := s.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("failed to publish report: %w", err)
	}
	log.Printf("[KafkaSink] run %s published (%d messages)", report.RunID, len(messages))
	return nil
}

// Close releases the underlying writer
func (s *Sink) Close() error {
	return s.writer.Close()
}
