// Package storage abstracts the S3-compatible bucket that backs the object store file repository.
// Payloads are streamed; nothing is staged on local disk.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned when a key does not exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

// PutObjectOptions describe an upload. Size is the exact byte count, or -1 when unknown.
// Metadata is stored as object user metadata and comes back from Stat and Get.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo describes a stored object. Metadata keys are in canonical MIME header form
// (e.g. "Expires-At") regardless of how they were written.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the bucket client. Lookups of a missing key fail with an error wrapping ErrObjectNotFound.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Stat returns the object's info without its content.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// List returns the keys stored under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// ReplaceMetadata atomically swaps the user metadata of an existing object.
	ReplaceMetadata(ctx context.Context, key string, contentType string, metadata map[string]string) error
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PingContext verifies the bucket is reachable.
	PingContext(ctx context.Context) error
}
