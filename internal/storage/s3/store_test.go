package s3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestStore points the client at a local server the way a LocalStack
// deployment would be wired: static credentials and path-style addressing.
func newTestStore(t *testing.T, handler http.Handler) *Store {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := New(context.Background(), Config{
		Region:          "us-east-1",
		Endpoint:        server.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		UsePathStyle:    true,
	}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestEnsureBucketCreatesMissingBucket(t *testing.T) {
	var mu sync.Mutex
	var created bool

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/bucket":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut && r.URL.Path == "/bucket":
			mu.Lock()
			created = true
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	store := newTestStore(t, handler)

	require.NoError(t, store.EnsureBucket(context.Background(), "bucket"))

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, created)
}

func TestEnsureBucketPurgesExistingObjects(t *testing.T) {
	var mu sync.Mutex
	var deleted []string

	listBody := `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
	<Name>bucket</Name>
	<KeyCount>2</KeyCount>
	<IsTruncated>false</IsTruncated>
	<Contents><Key>stale-1.html</Key></Contents>
	<Contents><Key>stale-2.pdf</Key></Contents>
</ListBucketResult>`

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/bucket":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet && r.URL.Path == "/bucket":
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprint(w, listBody)
		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/bucket/"):
			mu.Lock()
			deleted = append(deleted, strings.TrimPrefix(r.URL.Path, "/bucket/"))
			mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	store := newTestStore(t, handler)

	require.NoError(t, store.EnsureBucket(context.Background(), "bucket"))

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"stale-1.html", "stale-2.pdf"}, deleted)
}

func TestPutObject(t *testing.T) {
	var mu sync.Mutex
	var gotBody, gotContentType string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/bucket/guide.html" {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			mu.Lock()
			gotBody = string(body)
			gotContentType = r.Header.Get("Content-Type")
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	store := newTestStore(t, handler)

	path, err := store.PutObject(context.Background(), "bucket", "guide.html", "text/html", []byte("<html/>"))
	require.NoError(t, err)
	assert.Equal(t, "bucket/guide.html", path)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, gotBody, "<html/>")
	assert.Equal(t, "text/html", gotContentType)
}

func TestNewWithClientValidation(t *testing.T) {
	t.Parallel()

	_, err := NewWithClient(nil, zap.NewNop())
	assert.Error(t, err)
}
