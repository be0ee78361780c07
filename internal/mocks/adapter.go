package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/brettbedarf/resultfs"
)

// MockFetcher implements resultfs.Fetcher for testing across packages
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	args := m.Called(ctx, locator)

	// Handle function return types (for complex tests)
	if fn, ok := args.Get(0).(func(context.Context, string) []byte); ok {
		return fn(ctx, locator), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

var _ resultfs.Fetcher = (*MockFetcher)(nil)

// MockUploader implements resultfs.Uploader for testing across packages
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, cs *resultfs.ChangeSet) (resultfs.CommitOutcome, error) {
	args := m.Called(ctx, cs)
	return args.Get(0).(resultfs.CommitOutcome), args.Error(1)
}

var _ resultfs.Uploader = (*MockUploader)(nil)

// MockQuerySubmitter implements resultfs.QuerySubmitter for testing across packages
type MockQuerySubmitter struct {
	mock.Mock
}

func (m *MockQuerySubmitter) SubmitQuery(ctx context.Context, query string) error {
	return m.Called(ctx, query).Error(0)
}

func (m *MockQuerySubmitter) SubmitTable(ctx context.Context, tableID string) error {
	return m.Called(ctx, tableID).Error(0)
}

var _ resultfs.QuerySubmitter = (*MockQuerySubmitter)(nil)
