// Package objectstore persists stored files as objects in an S3-compatible bucket.
//
// Every file is one object under files/<id>. Descriptive fields live in the object's user
// metadata, so a point update (TTL, metadata) is a single server-side copy of one object.
// Filtered operations (by context, by expiry) list the prefix and act object by object.
//
// Uniqueness of predefined ids is not atomic on this backend. Insert checks for an existing
// object and then uploads, so two concurrent inserts of the same id can both succeed and the
// last upload wins. The minio-go client in use quotes If-None-Match values, so a create-only
// conditional PUT cannot be expressed. Use the postgres backend when callers race on ids.
package objectstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"uploadstore/internal/model"
	"uploadstore/internal/repository"
	"uploadstore/internal/storage"
)

const keyPrefix = "files/"

// Metadata keys, canonical MIME header form.
const (
	metaName             = "File-Name"
	metaOriginalFilename = "Original-Filename"
	metaContext          = "File-Context"
	metaMetadata         = "File-Metadata"
	metaSize             = "File-Size"
	metaCreatedAt        = "Created-At"
	metaExpiresAt        = "Expires-At"
)

// FileObjectStore is an object storage implementation of repository.FileRepository.
type FileObjectStore struct {
	store storage.Storage
}

// NewFileObjectStore creates a repository on top of an object storage client.
func NewFileObjectStore(store storage.Storage) *FileObjectStore {
	return &FileObjectStore{store: store}
}

var _ repository.FileRepository = (*FileObjectStore)(nil)

// Insert uploads the payload with all descriptive fields attached as metadata.
// The existence check and the upload are two requests; a concurrent insert of the same id
// between them is last-writer-wins.
func (r *FileObjectStore) Insert(ctx context.Context, f *model.StoredFile, data []byte) error {
	key := objectKey(f.ID)
	_, err := r.store.Stat(ctx, key)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", repository.ErrDuplicateID, f.ID)
	case !errors.Is(err, storage.ErrObjectNotFound):
		return err
	}

	_, err = r.store.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: f.ContentType,
		Metadata:    encodeFile(f),
	})
	return err
}

func (r *FileObjectStore) FindByID(ctx context.Context, id string) (*model.StoredFile, error) {
	info, err := r.store.Stat(ctx, objectKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return decodeFile(id, info)
}

func (r *FileObjectStore) FindByContext(ctx context.Context, fileContext string) ([]model.StoredFile, error) {
	files, err := r.scan(ctx, func(f *model.StoredFile) bool { return f.HasContext(fileContext) })
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].ID < files[j].ID
		}
		return files[i].CreatedAt.Before(files[j].CreatedAt)
	})
	return files, nil
}

func (r *FileObjectStore) OpenPayload(ctx context.Context, id string) (io.ReadCloser, error) {
	rc, _, err := r.store.Get(ctx, objectKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return rc, nil
}

func (r *FileObjectStore) UpdateExpiresAt(ctx context.Context, id string, expiresAt time.Time) (int64, error) {
	return r.updateMetadata(ctx, id, func(meta map[string]string) {
		meta[metaExpiresAt] = formatTime(expiresAt)
	})
}

func (r *FileObjectStore) UpdateMetadata(ctx context.Context, id string, metadata *string) (int64, error) {
	return r.updateMetadata(ctx, id, func(meta map[string]string) {
		setOptional(meta, metaMetadata, metadata)
	})
}

func (r *FileObjectStore) Delete(ctx context.Context, id string) (int64, error) {
	key := objectKey(id)
	if _, err := r.store.Stat(ctx, key); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if err := r.store.Delete(ctx, key); err != nil {
		return 0, err
	}
	return 1, nil
}

func (r *FileObjectStore) DeleteByContext(ctx context.Context, fileContext string) (int64, error) {
	return r.deleteWhere(ctx, func(f *model.StoredFile) bool { return f.HasContext(fileContext) })
}

func (r *FileObjectStore) DeleteExpired(ctx context.Context, threshold time.Time) (int64, error) {
	return r.deleteWhere(ctx, func(f *model.StoredFile) bool { return f.IsExpired(threshold) })
}

func (r *FileObjectStore) DeleteAll(ctx context.Context) (int64, error) {
	keys, err := r.store.List(ctx, keyPrefix)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, key := range keys {
		if err := r.store.Delete(ctx, key); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (r *FileObjectStore) Count(ctx context.Context) (int64, error) {
	keys, err := r.store.List(ctx, keyPrefix)
	if err != nil {
		return 0, err
	}
	return int64(len(keys)), nil
}

func (r *FileObjectStore) updateMetadata(ctx context.Context, id string, mutate func(meta map[string]string)) (int64, error) {
	key := objectKey(id)
	info, err := r.store.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return 0, nil
		}
		return 0, err
	}
	meta := make(map[string]string, len(info.Metadata))
	for k, v := range info.Metadata {
		meta[k] = v
	}
	mutate(meta)
	if err := r.store.ReplaceMetadata(ctx, key, info.ContentType, meta); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return 1, nil
}

// scan lists every object and returns the decoded files accepted by match.
// Objects removed between listing and stat are skipped.
func (r *FileObjectStore) scan(ctx context.Context, match func(f *model.StoredFile) bool) ([]model.StoredFile, error) {
	keys, err := r.store.List(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	files := make([]model.StoredFile, 0)
	for _, key := range keys {
		info, err := r.store.Stat(ctx, key)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				continue
			}
			return nil, err
		}
		f, err := decodeFile(strings.TrimPrefix(key, keyPrefix), info)
		if err != nil {
			return nil, err
		}
		if match(f) {
			files = append(files, *f)
		}
	}
	return files, nil
}

func (r *FileObjectStore) deleteWhere(ctx context.Context, match func(f *model.StoredFile) bool) (int64, error) {
	files, err := r.scan(ctx, match)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, f := range files {
		if err := r.store.Delete(ctx, objectKey(f.ID)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func objectKey(id string) string {
	return keyPrefix + id
}

func encodeFile(f *model.StoredFile) map[string]string {
	meta := map[string]string{
		metaSize:      strconv.FormatInt(f.Size, 10),
		metaCreatedAt: formatTime(f.CreatedAt),
		metaExpiresAt: formatTime(f.ExpiresAt),
	}
	setOptional(meta, metaName, &f.Name)
	setOptional(meta, metaOriginalFilename, &f.OriginalFilename)
	setOptional(meta, metaContext, f.Context)
	setOptional(meta, metaMetadata, f.Metadata)
	return meta
}

func decodeFile(id string, info storage.ObjectInfo) (*model.StoredFile, error) {
	f := &model.StoredFile{
		ID:          id,
		ContentType: info.ContentType,
		Size:        info.Size,
	}
	var err error
	if f.CreatedAt, err = parseTime(info.Metadata[metaCreatedAt]); err != nil {
		return nil, fmt.Errorf("object %s: created-at: %w", id, err)
	}
	if f.ExpiresAt, err = parseTime(info.Metadata[metaExpiresAt]); err != nil {
		return nil, fmt.Errorf("object %s: expires-at: %w", id, err)
	}
	if s, ok := info.Metadata[metaSize]; ok {
		if f.Size, err = strconv.ParseInt(s, 10, 64); err != nil {
			return nil, fmt.Errorf("object %s: size: %w", id, err)
		}
	}
	if f.Context, err = getOptional(info.Metadata, metaContext); err != nil {
		return nil, fmt.Errorf("object %s: context: %w", id, err)
	}
	if f.Metadata, err = getOptional(info.Metadata, metaMetadata); err != nil {
		return nil, fmt.Errorf("object %s: metadata: %w", id, err)
	}
	if name, err := getOptional(info.Metadata, metaName); err != nil {
		return nil, fmt.Errorf("object %s: name: %w", id, err)
	} else if name != nil {
		f.Name = *name
	}
	if orig, err := getOptional(info.Metadata, metaOriginalFilename); err != nil {
		return nil, fmt.Errorf("object %s: original filename: %w", id, err)
	} else if orig != nil {
		f.OriginalFilename = *orig
	}
	return f, nil
}

// Free-form strings are base64 encoded because object metadata must be plain ASCII.
// The "=" marker keeps an empty value distinguishable from an absent one.
func setOptional(meta map[string]string, key string, v *string) {
	if v == nil {
		delete(meta, key)
		return
	}
	meta[key] = "=" + base64.RawURLEncoding.EncodeToString([]byte(*v))
}

func getOptional(meta map[string]string, key string) (*string, error) {
	raw, ok := meta[key]
	if !ok {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(raw, "="))
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
