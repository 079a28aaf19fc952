package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"uploadstore/internal/model"
)

// ErrContextRequired is returned by a view whose resolver yields an empty context.
var ErrContextRequired = errors.New("context is required")

// ContextResolver supplies the context a view is bound to.
// It is consulted on every call, so a per-request implementation may change between calls.
type ContextResolver interface {
	ResolveContext() string
}

// ContextResolverFunc adapts a function to ContextResolver.
type ContextResolverFunc func() string

func (f ContextResolverFunc) ResolveContext() string { return f() }

// FixedContext resolves to itself.
type FixedContext string

func (c FixedContext) ResolveContext() string { return string(c) }

// SessionStorage is the storage surface exposed to one caller context.
type SessionStorage interface {
	// Context returns the resolved context the view operates on.
	Context() string
	Save(ctx context.Context, p model.Payload, ttlSeconds int64, metadata *string) (string, error)
	SaveWithID(ctx context.Context, id string, p model.Payload, ttlSeconds int64, metadata *string) error
	Find(ctx context.Context, id string) (*model.StoredFile, error)
	FindAll(ctx context.Context) ([]model.StoredFile, error)
	Payload(ctx context.Context, id string) (io.ReadCloser, error)
	Delete(ctx context.Context, id string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	// SetTimeToLive renews every file owned by the context and returns how many were renewed.
	SetTimeToLive(ctx context.Context, ttlSeconds int64) (int, error)
	SetMetadata(ctx context.Context, id string, metadata *string) (int64, error)
}

// ContextView binds a FileStorage to one context.
//
// Every read, update and delete by id checks that the file belongs to the context first. A file
// owned by another context is reported exactly like a missing one. Ownership is looked up on
// every call and never cached.
type ContextView struct {
	storage  FileStorage
	resolver ContextResolver
}

var _ SessionStorage = (*ContextView)(nil)

// NewView returns a view whose context is resolved through resolver on each call.
func NewView(storage FileStorage, resolver ContextResolver) *ContextView {
	return &ContextView{storage: storage, resolver: resolver}
}

// NewFixedView returns a view bound to a single context value.
func NewFixedView(storage FileStorage, fileContext string) *ContextView {
	return NewView(storage, FixedContext(fileContext))
}

func (v *ContextView) Context() string {
	return v.resolver.ResolveContext()
}

func (v *ContextView) context() (string, error) {
	c := v.resolver.ResolveContext()
	if c == "" {
		return "", ErrContextRequired
	}
	return c, nil
}

func (v *ContextView) Save(ctx context.Context, p model.Payload, ttlSeconds int64, metadata *string) (string, error) {
	c, err := v.context()
	if err != nil {
		return "", err
	}
	return v.storage.Save(ctx, p, ttlSeconds, &c, metadata)
}

func (v *ContextView) SaveWithID(ctx context.Context, id string, p model.Payload, ttlSeconds int64, metadata *string) error {
	c, err := v.context()
	if err != nil {
		return err
	}
	return v.storage.SaveWithID(ctx, id, p, ttlSeconds, &c, metadata)
}

// Find returns the file only if it belongs to the view's context.
func (v *ContextView) Find(ctx context.Context, id string) (*model.StoredFile, error) {
	c, err := v.context()
	if err != nil {
		return nil, err
	}
	return v.owned(ctx, c, id)
}

func (v *ContextView) owned(ctx context.Context, c, id string) (*model.StoredFile, error) {
	f, err := v.storage.Find(ctx, id)
	if err != nil || f == nil {
		return nil, err
	}
	if !f.HasContext(c) {
		return nil, nil
	}
	return f, nil
}

func (v *ContextView) FindAll(ctx context.Context) ([]model.StoredFile, error) {
	c, err := v.context()
	if err != nil {
		return nil, err
	}
	return v.storage.FindByContext(ctx, c)
}

// Payload opens the payload of an owned file, or returns nil.
func (v *ContextView) Payload(ctx context.Context, id string) (io.ReadCloser, error) {
	f, err := v.Find(ctx, id)
	if err != nil || f == nil {
		return nil, err
	}
	return v.storage.Payload(ctx, f.ID)
}

func (v *ContextView) Delete(ctx context.Context, id string) (int64, error) {
	f, err := v.Find(ctx, id)
	if err != nil || f == nil {
		return 0, err
	}
	return v.storage.Delete(ctx, f.ID)
}

func (v *ContextView) DeleteAll(ctx context.Context) (int64, error) {
	c, err := v.context()
	if err != nil {
		return 0, err
	}
	return v.storage.DeleteByContext(ctx, c)
}

// SetTimeToLive renews the files of the context one by one and stops at the first error.
// Files renewed before the error keep their new expiration.
func (v *ContextView) SetTimeToLive(ctx context.Context, ttlSeconds int64) (int, error) {
	if ttlSeconds < 0 || ttlSeconds > MaxTTL {
		return 0, ErrInvalidTTL
	}
	files, err := v.FindAll(ctx)
	if err != nil {
		return 0, err
	}
	renewed := 0
	for _, f := range files {
		expiresAt, err := v.storage.SetTimeToLive(ctx, f.ID, ttlSeconds)
		if err != nil {
			return renewed, fmt.Errorf("renew file %s: %w", f.ID, err)
		}
		if expiresAt != nil {
			renewed++
		}
	}
	return renewed, nil
}

func (v *ContextView) SetMetadata(ctx context.Context, id string, metadata *string) (int64, error) {
	f, err := v.Find(ctx, id)
	if err != nil || f == nil {
		return 0, err
	}
	return v.storage.SetMetadata(ctx, f.ID, metadata)
}
