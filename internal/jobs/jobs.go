// Package jobs defines the shared job record that coordinates one ingestion
// run between the service that created the job and this worker process.
package jobs

import (
	"context"
	"errors"
)

// Status represents the lifecycle state of an ingestion job.
type Status string

// Job status values persisted in the job record.
const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// ErrNotFound is returned by a Store when no record exists for the job id.
var ErrNotFound = errors.New("job not found")

// Record is the job document shared with the rest of the pipeline.
// InputData carries the JSON-encoded Input exactly as the creating service
// wrote it; the worker never rewrites it.
type Record struct {
	ID        string
	Status    Status
	InputData string
	Message   string
	Errors    []string
}

// ScrapedDocument describes one stored crawl artifact. The slice of these is
// the payload the indexing pipeline reads from result_data.
type ScrapedDocument struct {
	Filename    string `json:"filename" firestore:"filename"`
	SourceURL   string `json:"source_url" firestore:"source_url"`
	StoragePath string `json:"storage_path" firestore:"storage_path"`
	ContentType string `json:"content_type" firestore:"content_type"`
}

// Store is the persistence interface for job records. Implementations must
// make Complete and Fail atomic so a reader can never observe a terminal
// status without the fields written alongside it.
type Store interface {
	// Get fetches the record for the given job id.
	Get(ctx context.Context, id string) (Record, error)

	// MarkActive transitions the record to StatusActive.
	MarkActive(ctx context.Context, id string) error

	// Complete writes the scraped document list, a summary message and
	// StatusSucceeded in a single update.
	Complete(ctx context.Context, id string, docs []ScrapedDocument, message string) error

	// Fail appends errMsg to the record's errors and sets StatusFailed in a
	// single update.
	Fail(ctx context.Context, id string, errMsg string) error

	// Close releases any client connections held by the store.
	Close() error
}
