// Package memory keeps stored files in process memory.
// It is meant for local development and tests; nothing survives a restart.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"uploadstore/internal/model"
	"uploadstore/internal/repository"
)

type entry struct {
	file model.StoredFile
	data []byte
}

// FileMemory is an in-process implementation of repository.FileRepository.
// Each method holds the lock for its whole duration, which gives it the same
// per-statement atomicity as the SQL backend.
type FileMemory struct {
	mu    sync.RWMutex
	files map[string]*entry
}

// NewFileMemory creates an empty repository.
func NewFileMemory() *FileMemory {
	return &FileMemory{files: make(map[string]*entry)}
}

var _ repository.FileRepository = (*FileMemory)(nil)

func (r *FileMemory) Insert(_ context.Context, f *model.StoredFile, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[f.ID]; ok {
		return fmt.Errorf("%w: %s", repository.ErrDuplicateID, f.ID)
	}
	r.files[f.ID] = &entry{file: copyFile(*f), data: bytes.Clone(data)}
	return nil
}

func (r *FileMemory) FindByID(_ context.Context, id string) (*model.StoredFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	f := copyFile(e.file)
	return &f, nil
}

func (r *FileMemory) FindByContext(_ context.Context, fileContext string) ([]model.StoredFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]model.StoredFile, 0)
	for _, e := range r.files {
		if e.file.HasContext(fileContext) {
			items = append(items, copyFile(e.file))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (r *FileMemory) OpenPayload(_ context.Context, id string) (io.ReadCloser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Stored bytes are never mutated, so the reader can share them.
	return io.NopCloser(bytes.NewReader(e.data)), nil
}

func (r *FileMemory) UpdateExpiresAt(_ context.Context, id string, expiresAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.files[id]
	if !ok {
		return 0, nil
	}
	e.file.ExpiresAt = expiresAt
	return 1, nil
}

func (r *FileMemory) UpdateMetadata(_ context.Context, id string, metadata *string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.files[id]
	if !ok {
		return 0, nil
	}
	e.file.Metadata = cloneString(metadata)
	return 1, nil
}

func (r *FileMemory) Delete(_ context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[id]; !ok {
		return 0, nil
	}
	delete(r.files, id)
	return 1, nil
}

func (r *FileMemory) DeleteByContext(_ context.Context, fileContext string) (int64, error) {
	return r.deleteWhere(func(f *model.StoredFile) bool { return f.HasContext(fileContext) }), nil
}

func (r *FileMemory) DeleteExpired(_ context.Context, threshold time.Time) (int64, error) {
	return r.deleteWhere(func(f *model.StoredFile) bool { return f.IsExpired(threshold) }), nil
}

func (r *FileMemory) DeleteAll(_ context.Context) (int64, error) {
	return r.deleteWhere(func(*model.StoredFile) bool { return true }), nil
}

func (r *FileMemory) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.files)), nil
}

func (r *FileMemory) deleteWhere(match func(f *model.StoredFile) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, e := range r.files {
		if match(&e.file) {
			delete(r.files, id)
			n++
		}
	}
	return n
}

func copyFile(f model.StoredFile) model.StoredFile {
	f.Context = cloneString(f.Context)
	f.Metadata = cloneString(f.Metadata)
	return f
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
