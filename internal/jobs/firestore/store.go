// Package firestore provides the Firestore-backed job store. This is the
// canonical store: the job-creating service and this worker share one
// document per job.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kbsearch/crawl-worker/internal/jobs"
)

// DefaultCollection is used when no collection is configured.
const DefaultCollection = "jobs"

// Store reads and updates job documents in a Firestore collection.
type Store struct {
	client     *firestore.Client
	collection string
}

// record mirrors the job document fields the worker touches. result_data is
// written wholesale on success and never read, so it has no field here.
type record struct {
	Status    string   `firestore:"status"`
	InputData string   `firestore:"input_data"`
	Message   string   `firestore:"message"`
	Errors    []string `firestore:"errors"`
}

// New wraps an existing Firestore client.
func New(client *firestore.Client, collection string) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client is required")
	}
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{client: client, collection: collection}, nil
}

func (s *Store) doc(id string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(id)
}

// Get fetches the job document.
func (s *Store) Get(ctx context.Context, id string) (jobs.Record, error) {
	snap, err := s.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return jobs.Record{}, fmt.Errorf("job %s: %w", id, jobs.ErrNotFound)
		}
		return jobs.Record{}, fmt.Errorf("get job %s: %w", id, err)
	}

	var rec record
	if err := snap.DataTo(&rec); err != nil {
		return jobs.Record{}, fmt.Errorf("decode job %s: %w", id, err)
	}

	return jobs.Record{
		ID:        snap.Ref.ID,
		Status:    jobs.Status(rec.Status),
		InputData: rec.InputData,
		Message:   rec.Message,
		Errors:    rec.Errors,
	}, nil
}

// MarkActive transitions the document to the active status.
func (s *Store) MarkActive(ctx context.Context, id string) error {
	_, err := s.doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(jobs.StatusActive)},
		{Path: "updated_at", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("job %s: %w", id, jobs.ErrNotFound)
		}
		return fmt.Errorf("mark job %s active: %w", id, err)
	}
	return nil
}

// Complete writes results, message and succeeded status in one update, so no
// reader can see the terminal status without its documents.
func (s *Store) Complete(ctx context.Context, id string, docs []jobs.ScrapedDocument, message string) error {
	if docs == nil {
		docs = []jobs.ScrapedDocument{}
	}
	_, err := s.doc(id).Update(ctx, []firestore.Update{
		{Path: "result_data", Value: map[string]any{"scraped_documents": docs}},
		{Path: "message", Value: message},
		{Path: "status", Value: string(jobs.StatusSucceeded)},
		{Path: "updated_at", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return fmt.Errorf("complete job %s: %w", id, err)
	}
	return nil
}

// Fail appends the error string and sets failed status in one update.
func (s *Store) Fail(ctx context.Context, id string, errMsg string) error {
	_, err := s.doc(id).Update(ctx, []firestore.Update{
		{Path: "errors", Value: firestore.ArrayUnion(errMsg)},
		{Path: "message", Value: errMsg},
		{Path: "status", Value: string(jobs.StatusFailed)},
		{Path: "updated_at", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return fmt.Errorf("fail job %s: %w", id, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close firestore client: %w", err)
	}
	return nil
}
