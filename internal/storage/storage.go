// Package storage defines the object storage interface the crawl writes
// through, plus the deterministic naming of per-collection buckets. The
// abstraction keeps the worker independent of a specific backend (Google
// Cloud Storage, S3, or in-memory for tests).
package storage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Store is the destination for crawl artifacts.
type Store interface {
	// EnsureBucket makes the named bucket exist and empty: it is created if
	// absent, and purged of every object if present. Re-crawling a collection
	// fully replaces its previous contents.
	EnsureBucket(ctx context.Context, bucket string) error

	// PutObject uploads data under the given object name and returns the
	// fully qualified storage path ("<bucket>/<object>") recorded in the
	// job results. The format is uniform across backends so downstream
	// consumers of the job record never parse provider-specific URIs.
	PutObject(ctx context.Context, bucket, object, contentType string, data []byte) (string, error)

	// Close releases any client connections held by the store.
	Close() error
}

// Bucket names follow the GCS ruleset, which is the strictest backend served.
const (
	minBucketLen = 3
	maxBucketLen = 63
)

var bucketCharset = regexp.MustCompile(`^[a-z0-9.-]+$`)

// DeriveBucketName maps a project id and a human-entered collection name to
// the destination bucket. The same inputs always produce the same name:
// the collection is lower-cased, spaces and underscores become hyphens, and
// the result is "{projectID}-downloads-{collection}".
func DeriveBucketName(projectID, collectionName string) (string, error) {
	normalized := strings.ToLower(collectionName)
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.ReplaceAll(normalized, "_", "-")

	name := fmt.Sprintf("%s-downloads-%s", projectID, normalized)
	if err := validateBucketName(name); err != nil {
		return "", err
	}
	return name, nil
}

// validateBucketName enforces the bucket naming rules. Each rule has its own
// error so a bad collection name is diagnosable from the job record alone.
func validateBucketName(name string) error {
	if !bucketCharset.MatchString(name) {
		return fmt.Errorf("bucket name %q contains characters outside [a-z0-9.-]", name)
	}
	if len(name) < minBucketLen || len(name) > maxBucketLen {
		return fmt.Errorf("bucket name %q must be %d-%d characters, got %d", name, minBucketLen, maxBucketLen, len(name))
	}
	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return fmt.Errorf("bucket name %q must not start or end with a hyphen", name)
	}
	return nil
}
