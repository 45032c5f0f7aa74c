// Package gcs provides the Google Cloud Storage implementation of the crawl
// artifact store.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
)

// Store writes crawl artifacts to GCS buckets owned by one project.
type Store struct {
	client    *storage.Client
	projectID string
	logger    *zap.Logger
}

// New wraps an existing GCS client. Authentication is handled by the client,
// normally via Application Default Credentials.
func New(client *storage.Client, projectID string, logger *zap.Logger) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if projectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	return &Store{client: client, projectID: projectID, logger: logger}, nil
}

// EnsureBucket creates the bucket when absent and purges every object it
// holds when present, so a re-crawl fully replaces the collection contents.
func (s *Store) EnsureBucket(ctx context.Context, bucket string) error {
	bkt := s.client.Bucket(bucket)

	_, err := bkt.Attrs(ctx)
	if errors.Is(err, storage.ErrBucketNotExist) {
		if err := bkt.Create(ctx, s.projectID, nil); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		s.logger.Info("Created destination bucket", zap.String("bucket", bucket))
		return nil
	}
	if err != nil {
		return fmt.Errorf("get bucket %s attributes: %w", bucket, err)
	}

	purged := 0
	it := bkt.Objects(ctx, nil)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return fmt.Errorf("list bucket %s: %w", bucket, err)
		}
		if err := bkt.Object(attrs.Name).Delete(ctx); err != nil {
			return fmt.Errorf("delete object %s/%s: %w", bucket, attrs.Name, err)
		}
		purged++
	}
	s.logger.Info("Reusing existing bucket",
		zap.String("bucket", bucket),
		zap.Int("objects_purged", purged),
	)
	return nil
}

// PutObject uploads data and returns the object's storage path.
func (s *Store) PutObject(ctx context.Context, bucket, object, contentType string, data []byte) (string, error) {
	if strings.TrimSpace(object) == "" {
		return "", fmt.Errorf("object name is required")
	}

	writer := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := writer.Write(data); err != nil {
		// Close must still run to release the session; the write error is the
		// one worth surfacing.
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("write object %s/%s: %w (close writer: %v)", bucket, object, err, closeErr)
		}
		return "", fmt.Errorf("write object %s/%s: %w", bucket, object, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer for %s/%s: %w", bucket, object, err)
	}
	return fmt.Sprintf("%s/%s", bucket, object), nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close storage client: %w", err)
	}
	return nil
}
