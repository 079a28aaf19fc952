package repository

import (
	"context"
	"errors"
	"io"
	"time"

	"uploadstore/internal/model"
)

var (
	// ErrNotFound is returned by point lookups when no row matches the id.
	ErrNotFound = errors.New("stored file not found")
	// ErrDuplicateID is returned by Insert when a row with the same id already exists.
	ErrDuplicateID = errors.New("stored file id already exists")
)

// FileRepository defines data access for stored files.
// It holds no business logic. Every method maps to a single
// atomic statement against one row or one filtered set, so implementations need no
// transactions spanning multiple calls.
type FileRepository interface {
	// Insert persists all fields of f together with the payload bytes.
	// Returns ErrDuplicateID if f.ID is already taken.
	Insert(ctx context.Context, f *model.StoredFile, data []byte) error

	// FindByID returns the file with the given id, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.StoredFile, error)

	// FindByContext returns all files bound to the given context ordered by creation time.
	FindByContext(ctx context.Context, fileContext string) ([]model.StoredFile, error)

	// OpenPayload returns a reader over the payload of the given file, or ErrNotFound.
	// The caller must close the reader.
	OpenPayload(ctx context.Context, id string) (io.ReadCloser, error)

	// UpdateExpiresAt sets the expiration time of a file and returns the number of affected rows.
	UpdateExpiresAt(ctx context.Context, id string, expiresAt time.Time) (int64, error)

	// UpdateMetadata replaces the metadata of a file and returns the number of affected rows.
	UpdateMetadata(ctx context.Context, id string, metadata *string) (int64, error)

	// Delete removes a file by id and returns the number of affected rows.
	Delete(ctx context.Context, id string) (int64, error)

	// DeleteByContext removes all files bound to the given context.
	DeleteByContext(ctx context.Context, fileContext string) (int64, error)

	// DeleteExpired removes all files with expires_at <= threshold.
	DeleteExpired(ctx context.Context, threshold time.Time) (int64, error)

	// DeleteAll removes every file.
	DeleteAll(ctx context.Context) (int64, error)

	// Count returns the number of stored files.
	Count(ctx context.Context) (int64, error)
}
