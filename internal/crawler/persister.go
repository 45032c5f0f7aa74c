package crawler

import (
	"context"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/kbsearch/crawl-worker/internal/jobs"
	"github.com/kbsearch/crawl-worker/internal/storage"
)

// Persister filters fetched resources by content type, writes the accepted
// ones to the destination bucket, and accumulates one ScrapedDocument per
// stored object. It is safe for use from concurrent fetch callbacks.
type Persister struct {
	store        storage.Store
	bucket       string
	maxBodyBytes int64
	logger       *zap.Logger

	mu   sync.Mutex
	docs []jobs.ScrapedDocument
}

// NewPersister returns a Persister writing into bucket. A maxBodyBytes of
// zero disables the size guard.
func NewPersister(store storage.Store, bucket string, maxBodyBytes int64, logger *zap.Logger) *Persister {
	return &Persister{
		store:        store,
		bucket:       bucket,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// Persist stores one fetched resource. Resources that are neither HTML nor
// PDF are skipped silently; a storage write failure is logged and the
// resource omitted from the result list. Neither outcome aborts the crawl.
func (p *Persister) Persist(ctx context.Context, u *url.URL, contentType string, body []byte) {
	kind, mediaType, ok := ClassifyContentType(contentType)
	if !ok {
		TotalSkippedResponses.Inc()
		p.logger.Debug("Skipping unsupported content type",
			zap.String("url", u.String()),
			zap.String("content_type", contentType),
		)
		return
	}

	if p.maxBodyBytes > 0 && int64(len(body)) > p.maxBodyBytes {
		TotalSkippedResponses.Inc()
		p.logger.Warn("Skipping oversized response",
			zap.String("url", u.String()),
			zap.Int("size_bytes", len(body)),
			zap.Int64("limit_bytes", p.maxBodyBytes),
		)
		return
	}

	filename := DeriveFilename(u, kind)

	storagePath, err := p.store.PutObject(ctx, p.bucket, filename, mediaType, body)
	if err != nil {
		TotalPersistErrors.Inc()
		p.logger.Error("Failed to store document",
			zap.String("url", u.String()),
			zap.String("filename", filename),
			zap.Error(err),
		)
		return
	}

	p.mu.Lock()
	p.docs = append(p.docs, jobs.ScrapedDocument{
		Filename:    filename,
		SourceURL:   u.String(),
		StoragePath: storagePath,
		ContentType: mediaType,
	})
	p.mu.Unlock()

	TotalPersistedDocuments.Inc()
	p.logger.Debug("Stored document",
		zap.String("filename", filename),
		zap.String("storage_path", storagePath),
		zap.String("content_type", mediaType),
	)
}

// Documents returns a copy of the accumulated records.
func (p *Persister) Documents() []jobs.ScrapedDocument {
	p.mu.Lock()
	defer p.mu.Unlock()

	docs := make([]jobs.ScrapedDocument, len(p.docs))
	copy(docs, p.docs)
	return docs
}

// Count reports how many documents have been persisted so far.
func (p *Persister) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.docs)
}
