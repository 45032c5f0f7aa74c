package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbsearch/crawl-worker/internal/jobs"
)

func TestStoreLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()
	store.Seed(jobs.Record{
		ID:        "job-1",
		Status:    jobs.StatusPending,
		InputData: `{"url":"https://example.com","query_engine_name":"docs","depth_limit":1}`,
	})

	rec, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusPending, rec.Status)

	require.NoError(t, store.MarkActive(ctx, "job-1"))
	rec, err = store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusActive, rec.Status)

	docs := []jobs.ScrapedDocument{{
		Filename:    "start.html",
		SourceURL:   "https://example.com/start",
		StoragePath: "bucket/start.html",
		ContentType: "text/html",
	}}
	require.NoError(t, store.Complete(ctx, "job-1", docs, "crawl complete"))

	rec, err = store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusSucceeded, rec.Status)
	assert.Equal(t, "crawl complete", rec.Message)
	assert.Equal(t, docs, store.Documents("job-1"))
}

func TestStoreFailAppendsErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()
	store.Seed(jobs.Record{ID: "job-2", Status: jobs.StatusPending})

	require.NoError(t, store.Fail(ctx, "job-2", "fetch start url: connection refused"))

	rec, err := store.Get(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, rec.Status)
	assert.Equal(t, []string{"fetch start url: connection refused"}, rec.Errors)
	assert.Equal(t, "fetch start url: connection refused", rec.Message)
}

func TestStoreUnknownJob(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrNotFound)
	assert.ErrorIs(t, store.MarkActive(ctx, "missing"), jobs.ErrNotFound)
	assert.ErrorIs(t, store.Complete(ctx, "missing", nil, ""), jobs.ErrNotFound)
	assert.ErrorIs(t, store.Fail(ctx, "missing", "boom"), jobs.ErrNotFound)
}
