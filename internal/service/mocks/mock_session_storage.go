package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"uploadstore/internal/model"
	"uploadstore/internal/service"
)

// MockSessionStorage is a testify mock for service.SessionStorage.
type MockSessionStorage struct {
	mock.Mock
}

var _ service.SessionStorage = (*MockSessionStorage)(nil)

func (m *MockSessionStorage) Context() string {
	return m.Called().String(0)
}

func (m *MockSessionStorage) Save(ctx context.Context, p model.Payload, ttlSeconds int64, metadata *string) (string, error) {
	args := m.Called(ctx, p, ttlSeconds, metadata)
	return args.String(0), args.Error(1)
}

func (m *MockSessionStorage) SaveWithID(ctx context.Context, id string, p model.Payload, ttlSeconds int64, metadata *string) error {
	args := m.Called(ctx, id, p, ttlSeconds, metadata)
	return args.Error(0)
}

func (m *MockSessionStorage) Find(ctx context.Context, id string) (*model.StoredFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoredFile), args.Error(1)
}

func (m *MockSessionStorage) FindAll(ctx context.Context) ([]model.StoredFile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StoredFile), args.Error(1)
}

func (m *MockSessionStorage) Payload(ctx context.Context, id string) (io.ReadCloser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockSessionStorage) Delete(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionStorage) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionStorage) SetTimeToLive(ctx context.Context, ttlSeconds int64) (int, error) {
	args := m.Called(ctx, ttlSeconds)
	return args.Int(0), args.Error(1)
}

func (m *MockSessionStorage) SetMetadata(ctx context.Context, id string, metadata *string) (int64, error) {
	args := m.Called(ctx, id, metadata)
	return args.Get(0).(int64), args.Error(1)
}
