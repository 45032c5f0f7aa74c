// Package local_test tests the filesystem artifact store.
package local_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbsearch/crawl-worker/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		tempFile, err := os.CreateTemp("", "testfile")
		require.NoError(t, err)
		t.Cleanup(func() {
			removeErr := os.Remove(tempFile.Name())
			if removeErr != nil && !os.IsNotExist(removeErr) {
				t.Fatalf("failed to remove temp file: %v", removeErr)
			}
		})

		_, err = local.New(local.Config{BaseDir: tempFile.Name()})
		assert.Error(t, err)
	})
}

func TestEnsureBucketPurges(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	baseDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: baseDir})
	require.NoError(t, err)

	require.NoError(t, store.EnsureBucket(ctx, "bucket"))
	_, err = store.PutObject(ctx, "bucket", "stale.html", "text/html", []byte("old"))
	require.NoError(t, err)

	require.NoError(t, store.EnsureBucket(ctx, "bucket"))

	entries, err := os.ReadDir(filepath.Join(baseDir, "bucket"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPutObject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	baseDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: baseDir})
	require.NoError(t, err)
	require.NoError(t, store.EnsureBucket(ctx, "bucket"))

	path, err := store.PutObject(ctx, "bucket", "guide.html", "text/html", []byte("<html/>"))
	require.NoError(t, err)
	assert.Equal(t, "bucket/guide.html", path)

	data, err := os.ReadFile(filepath.Join(baseDir, "bucket", "guide.html"))
	require.NoError(t, err)
	assert.Equal(t, []byte("<html/>"), data)
}

func TestPutObjectRejectsTraversal(t *testing.T) {
	t.Parallel()

	store, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, store.EnsureBucket(context.Background(), "bucket"))

	_, err = store.PutObject(context.Background(), "bucket", "../../escape.html", "text/html", []byte("x"))
	assert.Error(t, err)
}
