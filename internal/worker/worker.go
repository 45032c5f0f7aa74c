// Package worker coordinates one ingestion run end to end: load the job,
// prepare the destination bucket, crawl, and report the terminal status.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kbsearch/crawl-worker/internal/crawler"
	"github.com/kbsearch/crawl-worker/internal/jobs"
	"github.com/kbsearch/crawl-worker/internal/logging"
	"github.com/kbsearch/crawl-worker/internal/publisher"
	"github.com/kbsearch/crawl-worker/internal/storage"
)

// CrawlRunner runs one crawl and returns the persisted documents.
type CrawlRunner interface {
	Run(ctx context.Context, crawl crawler.Crawl) ([]jobs.ScrapedDocument, error)
}

// reportTimeout bounds terminal status writes and event publishes. They run
// on a fresh context so a canceled run context cannot leave the job record
// stuck at active.
const reportTimeout = 30 * time.Second

// Worker executes a single ingestion job against the injected providers.
type Worker struct {
	jobs   jobs.Store
	blobs  storage.Store
	events publisher.Publisher
	runner CrawlRunner
	logger *zap.Logger
}

// New constructs a Worker.
func New(
	jobStore jobs.Store,
	blobStore storage.Store,
	events publisher.Publisher,
	runner CrawlRunner,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		jobs:   jobStore,
		blobs:  blobStore,
		events: events,
		runner: runner,
		logger: logger,
	}
}

// Run executes the job identified by jobID. It returns nil only when the
// record reached succeeded; every other outcome has already been written to
// the record as failed (best effort when the record itself is unreadable).
func (w *Worker) Run(ctx context.Context, projectID, jobID string) error {
	runID := uuid.NewString()
	logger := logging.ForRun(w.logger, jobID, runID)
	event := publisher.Event{JobID: jobID}

	logger.Info("Starting ingestion run", zap.String("project_id", projectID))

	rec, err := w.jobs.Get(ctx, jobID)
	if err != nil {
		return w.reportFailure(logger, event, fmt.Errorf("load job %s: %w", jobID, err))
	}

	input, err := jobs.ParseInput(rec.InputData)
	if err != nil {
		return w.reportFailure(logger, event, fmt.Errorf("invalid job input: %w", err))
	}
	event.Collection = input.CollectionName

	if err := w.jobs.MarkActive(ctx, jobID); err != nil {
		return w.reportFailure(logger, event, fmt.Errorf("mark job active: %w", err))
	}

	bucket, err := storage.DeriveBucketName(projectID, input.CollectionName)
	if err != nil {
		return w.reportFailure(logger, event, err)
	}
	event.Bucket = bucket

	if err := w.blobs.EnsureBucket(ctx, bucket); err != nil {
		return w.reportFailure(logger, event, fmt.Errorf("prepare bucket %s: %w", bucket, err))
	}

	docs, err := w.runner.Run(ctx, crawler.Crawl{
		StartURL:   input.URL,
		DepthLimit: input.DepthLimit,
		Bucket:     bucket,
	})
	if err != nil {
		return w.reportFailure(logger, event, err)
	}
	event.DocumentCount = len(docs)

	message := fmt.Sprintf("scraped %d documents from %s", len(docs), input.URL)

	reportCtx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()
	if err := w.jobs.Complete(reportCtx, jobID, docs, message); err != nil {
		return w.reportFailure(logger, event, fmt.Errorf("record job success: %w", err))
	}

	logger.Info("Job succeeded",
		zap.Int("documents", len(docs)),
		zap.String("bucket", bucket),
	)

	event.Status = string(jobs.StatusSucceeded)
	w.publish(logger, event)
	return nil
}

// reportFailure performs the terminal failed transition and always returns
// cause, so callers exit non-zero. A failed status write is logged and
// swallowed: there is nowhere left to report it.
func (w *Worker) reportFailure(logger *zap.Logger, event publisher.Event, cause error) error {
	logger.Error("Job failed", zap.Error(cause))

	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	if err := w.jobs.Fail(ctx, event.JobID, cause.Error()); err != nil {
		logger.Error("Failed to record job failure", zap.Error(err))
	}

	event.Status = string(jobs.StatusFailed)
	w.publish(logger, event)
	return cause
}

// publish emits the completion event. Failures are logged and swallowed; the
// job record stays the source of truth.
func (w *Worker) publish(logger *zap.Logger, event publisher.Event) {
	if w.events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	if err := w.events.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish completion event", zap.Error(err))
		return
	}
	logger.Debug("Published completion event", zap.String("status", event.Status))
}
