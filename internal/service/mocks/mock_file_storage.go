package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"uploadstore/internal/model"
	"uploadstore/internal/service"
)

// MockFileStorage is a testify mock for service.FileStorage.
type MockFileStorage struct {
	mock.Mock
}

var _ service.FileStorage = (*MockFileStorage)(nil)

func (m *MockFileStorage) Save(ctx context.Context, p model.Payload, ttlSeconds int64, fileContext, metadata *string) (string, error) {
	args := m.Called(ctx, p, ttlSeconds, fileContext, metadata)
	return args.String(0), args.Error(1)
}

func (m *MockFileStorage) SaveWithID(ctx context.Context, id string, p model.Payload, ttlSeconds int64, fileContext, metadata *string) error {
	args := m.Called(ctx, id, p, ttlSeconds, fileContext, metadata)
	return args.Error(0)
}

func (m *MockFileStorage) Find(ctx context.Context, id string) (*model.StoredFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoredFile), args.Error(1)
}

func (m *MockFileStorage) FindByContext(ctx context.Context, fileContext string) ([]model.StoredFile, error) {
	args := m.Called(ctx, fileContext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StoredFile), args.Error(1)
}

func (m *MockFileStorage) Payload(ctx context.Context, id string) (io.ReadCloser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockFileStorage) SetTimeToLive(ctx context.Context, id string, ttlSeconds int64) (*time.Time, error) {
	args := m.Called(ctx, id, ttlSeconds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockFileStorage) SetMetadata(ctx context.Context, id string, metadata *string) (int64, error) {
	args := m.Called(ctx, id, metadata)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFileStorage) Delete(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFileStorage) DeleteByContext(ctx context.Context, fileContext string) (int64, error) {
	args := m.Called(ctx, fileContext)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFileStorage) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFileStorage) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFileStorage) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
