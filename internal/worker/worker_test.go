package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kbsearch/crawl-worker/internal/crawler"
	"github.com/kbsearch/crawl-worker/internal/jobs"
	jobsmem "github.com/kbsearch/crawl-worker/internal/jobs/memory"
	"github.com/kbsearch/crawl-worker/internal/publisher"
	pubmem "github.com/kbsearch/crawl-worker/internal/publisher/memory"
	"github.com/kbsearch/crawl-worker/internal/storage"
	storemem "github.com/kbsearch/crawl-worker/internal/storage/memory"
)

// newSite serves a start page linking to one HTML sibling and one PDF.
func newSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><a href="/guide.html">Guide</a><a href="/manual.pdf">Manual</a></body></html>`)
	})
	mux.HandleFunc("/guide.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body>guide</body></html>")
	})
	mux.HandleFunc("/manual.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4 stub")
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func seedJob(t *testing.T, store *jobsmem.Store, id string, input map[string]any) {
	t.Helper()

	raw, err := json.Marshal(input)
	require.NoError(t, err)
	store.Seed(jobs.Record{ID: id, Status: jobs.StatusPending, InputData: string(raw)})
}

func newTestWorker(jobStore *jobsmem.Store, blobStore *storemem.Store, pub *pubmem.Publisher) *Worker {
	engine := crawler.NewEngine(
		crawler.Options{Concurrency: 2, RequestTimeout: 5 * time.Second},
		blobStore,
		zap.NewNop(),
	)
	return New(jobStore, blobStore, pub, engine, zap.NewNop())
}

func TestRunSuccess(t *testing.T) {
	t.Parallel()

	site := newSite(t)
	jobStore := jobsmem.New()
	blobStore := storemem.New()
	pub := pubmem.New()
	seedJob(t, jobStore, "job-1", map[string]any{
		"url":               site.URL,
		"query_engine_name": "Product Docs",
		"depth_limit":       2,
	})

	w := newTestWorker(jobStore, blobStore, pub)
	require.NoError(t, w.Run(context.Background(), "acme-prod", "job-1"))

	rec, err := jobStore.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusSucceeded, rec.Status)
	assert.Equal(t, "scraped 3 documents from "+site.URL, rec.Message)
	assert.Empty(t, rec.Errors)

	docs := jobStore.Documents("job-1")
	require.Len(t, docs, 3)

	const bucket = "acme-prod-downloads-product-docs"
	assert.True(t, blobStore.HasBucket(bucket))
	assert.Equal(t, []string{".html", "guide.html", "manual.pdf"}, blobStore.Objects(bucket))

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, publisher.Event{
		JobID:         "job-1",
		Status:        "succeeded",
		Collection:    "Product Docs",
		Bucket:        bucket,
		DocumentCount: 3,
	}, events[0])
}

func TestRunDepthLimitAsString(t *testing.T) {
	t.Parallel()

	site := newSite(t)
	jobStore := jobsmem.New()
	blobStore := storemem.New()
	seedJob(t, jobStore, "job-1", map[string]any{
		"url":               site.URL,
		"query_engine_name": "docs",
		"depth_limit":       "0",
	})

	w := newTestWorker(jobStore, blobStore, pubmem.New())
	require.NoError(t, w.Run(context.Background(), "acme-prod", "job-1"))

	require.Len(t, jobStore.Documents("job-1"), 1)
}

func TestRunInvalidInputMarksJobFailed(t *testing.T) {
	t.Parallel()

	jobStore := jobsmem.New()
	blobStore := storemem.New()
	pub := pubmem.New()
	seedJob(t, jobStore, "job-1", map[string]any{
		"query_engine_name": "docs",
		"depth_limit":       1,
	})

	w := newTestWorker(jobStore, blobStore, pub)
	err := w.Run(context.Background(), "acme-prod", "job-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing url")

	rec, getErr := jobStore.Get(context.Background(), "job-1")
	require.NoError(t, getErr)
	assert.Equal(t, jobs.StatusFailed, rec.Status)
	require.Len(t, rec.Errors, 1)
	assert.Contains(t, rec.Errors[0], "invalid job input")

	assert.False(t, blobStore.HasBucket("acme-prod-downloads-docs"), "no bucket may be touched for invalid input")

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "failed", events[0].Status)
	assert.Zero(t, events[0].DocumentCount)
}

func TestRunJobNotFound(t *testing.T) {
	t.Parallel()

	w := newTestWorker(jobsmem.New(), storemem.New(), pubmem.New())
	err := w.Run(context.Background(), "acme-prod", "missing")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load job")
	assert.ErrorIs(t, err, jobs.ErrNotFound)
}

func TestRunUnreachableStartURL(t *testing.T) {
	t.Parallel()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	startURL := dead.URL
	dead.Close()

	jobStore := jobsmem.New()
	blobStore := storemem.New()
	seedJob(t, jobStore, "job-1", map[string]any{
		"url":               startURL,
		"query_engine_name": "docs",
		"depth_limit":       1,
	})

	w := newTestWorker(jobStore, blobStore, pubmem.New())
	err := w.Run(context.Background(), "acme-prod", "job-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch start url")

	rec, getErr := jobStore.Get(context.Background(), "job-1")
	require.NoError(t, getErr)
	assert.Equal(t, jobs.StatusFailed, rec.Status)
	require.Len(t, rec.Errors, 1)
	assert.Contains(t, rec.Errors[0], "fetch start url")
	assert.Empty(t, jobStore.Documents("job-1"))

	// The bucket is prepared before the crawl starts, so it exists but
	// holds nothing.
	assert.True(t, blobStore.HasBucket("acme-prod-downloads-docs"))
	assert.Empty(t, blobStore.Objects("acme-prod-downloads-docs"))
}

func TestRunInvalidCollectionNameMarksJobFailed(t *testing.T) {
	t.Parallel()

	jobStore := jobsmem.New()
	seedJob(t, jobStore, "job-1", map[string]any{
		"url":               "https://example.com",
		"query_engine_name": "docs!",
		"depth_limit":       1,
	})

	w := newTestWorker(jobStore, storemem.New(), pubmem.New())
	err := w.Run(context.Background(), "acme-prod", "job-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket name")

	rec, getErr := jobStore.Get(context.Background(), "job-1")
	require.NoError(t, getErr)
	assert.Equal(t, jobs.StatusFailed, rec.Status)
}

func TestRunPurgesStaleBucket(t *testing.T) {
	t.Parallel()

	site := newSite(t)
	jobStore := jobsmem.New()
	blobStore := storemem.New()

	const bucket = "acme-prod-downloads-product-docs"
	require.NoError(t, blobStore.EnsureBucket(context.Background(), bucket))
	_, err := blobStore.PutObject(context.Background(), bucket, "stale.html", "text/html", []byte("old"))
	require.NoError(t, err)

	seedJob(t, jobStore, "job-1", map[string]any{
		"url":               site.URL,
		"query_engine_name": "Product Docs",
		"depth_limit":       2,
	})

	w := newTestWorker(jobStore, blobStore, pubmem.New())
	require.NoError(t, w.Run(context.Background(), "acme-prod", "job-1"))

	assert.Equal(t, []string{".html", "guide.html", "manual.pdf"}, blobStore.Objects(bucket),
		"previous run's objects must not survive")
}

func TestRunBucketSetupFailureMarksJobFailed(t *testing.T) {
	t.Parallel()

	jobStore := jobsmem.New()
	seedJob(t, jobStore, "job-1", map[string]any{
		"url":               "https://example.com",
		"query_engine_name": "docs",
		"depth_limit":       1,
	})

	blobs := new(storage.MockStore)
	blobs.On("EnsureBucket", mock.Anything, "acme-prod-downloads-docs").
		Return(errors.New("storage: permission denied"))

	engine := crawler.NewEngine(crawler.Options{}, blobs, zap.NewNop())
	w := New(jobStore, blobs, pubmem.New(), engine, zap.NewNop())

	err := w.Run(context.Background(), "acme-prod", "job-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prepare bucket acme-prod-downloads-docs")

	rec, getErr := jobStore.Get(context.Background(), "job-1")
	require.NoError(t, getErr)
	assert.Equal(t, jobs.StatusFailed, rec.Status)
	require.Len(t, rec.Errors, 1)
	assert.Contains(t, rec.Errors[0], "permission denied")

	blobs.AssertExpectations(t)
}

func TestRunCompleteFailureFallsBackToFail(t *testing.T) {
	t.Parallel()

	site := newSite(t)
	input, err := json.Marshal(map[string]any{
		"url":               site.URL,
		"query_engine_name": "docs",
		"depth_limit":       0,
	})
	require.NoError(t, err)

	jobStore := new(jobs.MockStore)
	jobStore.On("Get", mock.Anything, "job-1").
		Return(jobs.Record{ID: "job-1", Status: jobs.StatusPending, InputData: string(input)}, nil)
	jobStore.On("MarkActive", mock.Anything, "job-1").Return(nil)
	jobStore.On("Complete", mock.Anything, "job-1", mock.Anything, mock.Anything).
		Return(errors.New("update quota exceeded"))
	// The record must not stay active when the success write is lost.
	jobStore.On("Fail", mock.Anything, "job-1", mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "record job success")
	})).Return(nil)

	blobStore := storemem.New()
	engine := crawler.NewEngine(
		crawler.Options{Concurrency: 2, RequestTimeout: 5 * time.Second},
		blobStore,
		zap.NewNop(),
	)
	w := New(jobStore, blobStore, pubmem.New(), engine, zap.NewNop())

	err = w.Run(context.Background(), "acme-prod", "job-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record job success")

	jobStore.AssertExpectations(t)
}

func TestRunPublisherFailureDoesNotAffectOutcome(t *testing.T) {
	t.Parallel()

	site := newSite(t)
	jobStore := jobsmem.New()
	pub := pubmem.New()
	pub.FailWith(errors.New("broker unavailable"))

	seedJob(t, jobStore, "job-1", map[string]any{
		"url":               site.URL,
		"query_engine_name": "docs",
		"depth_limit":       1,
	})

	w := newTestWorker(jobStore, storemem.New(), pub)
	require.NoError(t, w.Run(context.Background(), "acme-prod", "job-1"))

	rec, err := jobStore.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusSucceeded, rec.Status)
	assert.Empty(t, pub.Events())
}
