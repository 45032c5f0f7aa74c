package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveBucketName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		projectID  string
		collection string
		want       string
	}{
		{
			name:       "plain collection",
			projectID:  "acme-prod",
			collection: "docs",
			want:       "acme-prod-downloads-docs",
		},
		{
			name:       "spaces become hyphens",
			projectID:  "acme-prod",
			collection: "Product Docs",
			want:       "acme-prod-downloads-product-docs",
		},
		{
			name:       "underscores become hyphens",
			projectID:  "acme-prod",
			collection: "release_notes",
			want:       "acme-prod-downloads-release-notes",
		},
		{
			name:       "mixed case is lowered",
			projectID:  "acme-prod",
			collection: "API Reference_V2",
			want:       "acme-prod-downloads-api-reference-v2",
		},
		{
			name:       "dots are preserved",
			projectID:  "acme-prod",
			collection: "docs.v1",
			want:       "acme-prod-downloads-docs.v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DeriveBucketName(tt.projectID, tt.collection)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveBucketNameIsDeterministic(t *testing.T) {
	t.Parallel()

	first, err := DeriveBucketName("acme-prod", "Product Docs")
	require.NoError(t, err)
	second, err := DeriveBucketName("acme-prod", "Product Docs")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDeriveBucketNameErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		projectID  string
		collection string
		want       string
	}{
		{
			name:       "invalid characters",
			projectID:  "acme-prod",
			collection: "docs!",
			want:       "characters outside",
		},
		{
			name:       "slash in collection",
			projectID:  "acme-prod",
			collection: "docs/v1",
			want:       "characters outside",
		},
		{
			name:       "too long",
			projectID:  "acme-prod",
			collection: strings.Repeat("a", 64),
			want:       "must be 3-63 characters",
		},
		{
			name:       "trailing hyphen",
			projectID:  "acme-prod",
			collection: "docs-",
			want:       "must not start or end with a hyphen",
		},
		{
			name:       "missing project id",
			projectID:  "",
			collection: "docs",
			want:       "must not start or end with a hyphen",
		},
		{
			name:       "uppercase project id",
			projectID:  "Acme",
			collection: "docs",
			want:       "characters outside",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DeriveBucketName(tt.projectID, tt.collection)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
