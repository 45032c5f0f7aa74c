// Package memory provides an in-memory job store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbsearch/crawl-worker/internal/jobs"
)

// Store keeps job records in a map guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	records map[string]jobs.Record
	docs    map[string][]jobs.ScrapedDocument
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		records: make(map[string]jobs.Record),
		docs:    make(map[string][]jobs.ScrapedDocument),
	}
}

// Seed inserts a record, replacing any existing one with the same id.
func (s *Store) Seed(rec jobs.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
}

// Get fetches the record for the given job id.
func (s *Store) Get(_ context.Context, id string) (jobs.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return jobs.Record{}, fmt.Errorf("job %s: %w", id, jobs.ErrNotFound)
	}
	rec.Errors = append([]string(nil), rec.Errors...)
	return rec, nil
}

// MarkActive transitions the record to jobs.StatusActive.
func (s *Store) MarkActive(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, jobs.ErrNotFound)
	}
	rec.Status = jobs.StatusActive
	s.records[id] = rec
	return nil
}

// Complete stores the document list, message and succeeded status together.
func (s *Store) Complete(_ context.Context, id string, docs []jobs.ScrapedDocument, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, jobs.ErrNotFound)
	}
	rec.Status = jobs.StatusSucceeded
	rec.Message = message
	s.records[id] = rec
	s.docs[id] = append([]jobs.ScrapedDocument(nil), docs...)
	return nil
}

// Fail appends the error and sets failed status together.
func (s *Store) Fail(_ context.Context, id string, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, jobs.ErrNotFound)
	}
	rec.Status = jobs.StatusFailed
	rec.Errors = append(rec.Errors, errMsg)
	rec.Message = errMsg
	s.records[id] = rec
	return nil
}

// Close implements jobs.Store; there is nothing to release.
func (s *Store) Close() error { return nil }

// Documents returns the scraped documents recorded for a job.
func (s *Store) Documents(id string) []jobs.ScrapedDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]jobs.ScrapedDocument(nil), s.docs[id]...)
}
