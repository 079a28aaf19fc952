package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"uploadstore/internal/model"
)

type MockFileRepository struct {
	mock.Mock
}

func (m *MockFileRepository) Insert(ctx context.Context, f *model.StoredFile, data []byte) error {
	args := m.Called(ctx, f, data)
	return args.Error(0)
}

func (m *MockFileRepository) FindByID(ctx context.Context, id string) (*model.StoredFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoredFile), args.Error(1)
}

func (m *MockFileRepository) FindByContext(ctx context.Context, fileContext string) ([]model.StoredFile, error) {
	args := m.Called(ctx, fileContext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StoredFile), args.Error(1)
}

func (m *MockFileRepository) OpenPayload(ctx context.Context, id string) (io.ReadCloser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockFileRepository) UpdateExpiresAt(ctx context.Context, id string, expiresAt time.Time) (int64, error) {
	args := m.Called(ctx, id, expiresAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFileRepository) UpdateMetadata(ctx context.Context, id string, metadata *string) (int64, error) {
	args := m.Called(ctx, id, metadata)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFileRepository) Delete(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFileRepository) DeleteByContext(ctx context.Context, fileContext string) (int64, error) {
	args := m.Called(ctx, fileContext)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFileRepository) DeleteExpired(ctx context.Context, threshold time.Time) (int64, error) {
	args := m.Called(ctx, threshold)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFileRepository) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFileRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
