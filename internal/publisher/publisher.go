// Package publisher defines the completion-event contract. The worker emits
// one event per run once the job record holds its terminal status, so
// downstream consumers can react without polling the job store.
package publisher

import "context"

// Event describes the outcome of one ingestion run.
type Event struct {
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	Collection    string `json:"collection"`
	Bucket        string `json:"bucket"`
	DocumentCount int    `json:"document_count"`
}

// Publisher delivers completion events. Delivery is best effort: a failed
// publish is logged and never changes the job's status or the exit code.
type Publisher interface {
	// Publish sends one completion event to the configured destination.
	Publish(ctx context.Context, event Event) error

	// Close cleans up any client connections and resources.
	Close() error
}

// NoOpPublisher discards events. It is the default when no broker is
// configured.
type NoOpPublisher struct{}

// Publish for NoOpPublisher does nothing and returns nil.
func (n *NoOpPublisher) Publish(_ context.Context, _ Event) error { return nil }

// Close for NoOpPublisher does nothing and returns nil.
func (n *NoOpPublisher) Close() error { return nil }
