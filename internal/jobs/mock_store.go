package jobs

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of the Store interface for testing.
type MockStore struct {
	mock.Mock
}

// Get is the mock implementation of the Get method.
func (m *MockStore) Get(ctx context.Context, id string) (Record, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Record), args.Error(1) //nolint:wrapcheck
}

// MarkActive is the mock implementation of the MarkActive method.
func (m *MockStore) MarkActive(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0) //nolint:wrapcheck
}

// Complete is the mock implementation of the Complete method.
func (m *MockStore) Complete(ctx context.Context, id string, docs []ScrapedDocument, message string) error {
	args := m.Called(ctx, id, docs, message)
	return args.Error(0) //nolint:wrapcheck
}

// Fail is the mock implementation of the Fail method.
func (m *MockStore) Fail(ctx context.Context, id string, errMsg string) error {
	args := m.Called(ctx, id, errMsg)
	return args.Error(0) //nolint:wrapcheck
}

// Close is the mock implementation of the Close method.
func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0) //nolint:wrapcheck
}
