package model

import (
	"io"
	"time"
)

// StoredFile represents an uploaded payload kept for a bounded lifetime.
// The payload itself is not part of the struct; it is read lazily through the storage engine.
type StoredFile struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	OriginalFilename string    `json:"original_filename"`
	ContentType      string    `json:"content_type"`
	Size             int64     `json:"size"`
	Context          *string   `json:"context,omitempty"`
	Metadata         *string   `json:"metadata,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// IsExpired reports whether the file is eligible for deletion at now.
func (f *StoredFile) IsExpired(now time.Time) bool {
	return !f.ExpiresAt.After(now)
}

// HasContext reports whether the file is bound to the given context.
func (f *StoredFile) HasContext(context string) bool {
	return f != nil && f.Context != nil && *f.Context == context
}

// Payload is the input of a save operation.
// Size is the declared byte length; -1 means unknown and is resolved by reading Content.
type Payload struct {
	Name             string
	OriginalFilename string
	ContentType      string
	Size             int64
	Content          io.Reader
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
