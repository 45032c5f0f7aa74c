package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of the Store interface for testing.
type MockStore struct {
	mock.Mock
}

// EnsureBucket is the mock implementation of the EnsureBucket method.
func (m *MockStore) EnsureBucket(ctx context.Context, bucket string) error {
	args := m.Called(ctx, bucket)
	return args.Error(0) //nolint:wrapcheck
}

// PutObject is the mock implementation of the PutObject method.
func (m *MockStore) PutObject(ctx context.Context, bucket, object, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, bucket, object, contentType, data)
	return args.String(0), args.Error(1) //nolint:wrapcheck
}

// Close is the mock implementation of the Close method.
func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0) //nolint:wrapcheck
}
