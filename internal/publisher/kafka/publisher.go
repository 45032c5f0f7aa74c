// Package kafka implements the Kafka completion-event publisher.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kbsearch/crawl-worker/internal/publisher"
)

// Config holds the Kafka connection settings.
type Config struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Publisher writes completion events to a Kafka topic, keyed by job ID so
// events for the same job land in the same partition.
type Publisher struct {
	writer *kafka.Writer
}

// New validates cfg and builds the writer. The broker connection is lazy:
// the first write establishes it.
func New(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  3,
		BatchSize:    1,
		BatchTimeout: 100 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
	return &Publisher{writer: writer}, nil
}

// Publish marshals the event to JSON and writes it synchronously.
func (p *Publisher) Publish(ctx context.Context, event publisher.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.JobID),
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("write event for job %s: %w", event.JobID, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}
