package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"
	"unicode/utf8"

	"uploadstore/internal/idgen"
	"uploadstore/internal/model"
	"uploadstore/internal/repository"
)

// Common time-to-live values, in seconds.
const (
	TTL30Minutes int64 = 1800
	TTL1Hour     int64 = 3600
	DefaultTTL         = TTL30Minutes
)

const (
	// MaxFieldLength caps context and metadata, counted in characters.
	MaxFieldLength = 255
	// DefaultMaxPayloadSize is the largest payload whose size fits a signed 32-bit integer.
	DefaultMaxPayloadSize int64 = math.MaxInt32
	// MaxTTL is the largest ttl that can be added to the current time without overflow.
	MaxTTL int64 = math.MaxInt64 / int64(time.Second)
)

var (
	// ErrValidation is wrapped by every input validation error.
	ErrValidation = errors.New("validation failed")

	ErrInvalidTTL      = fmt.Errorf("%w: ttl must be between 0 and %d seconds", ErrValidation, MaxTTL)
	ErrPayloadTooLarge = fmt.Errorf("%w: payload too large", ErrValidation)
	ErrSizeMismatch    = fmt.Errorf("%w: declared size does not match payload length", ErrValidation)
	ErrInvalidSize     = fmt.Errorf("%w: size must be -1 (unknown) or at least 0", ErrValidation)
	ErrContextTooLong  = fmt.Errorf("%w: context exceeds %d characters", ErrValidation, MaxFieldLength)
	ErrMetadataTooLong = fmt.Errorf("%w: metadata exceeds %d characters", ErrValidation, MaxFieldLength)
	ErrIDRequired      = fmt.Errorf("%w: id is required", ErrValidation)
	ErrReaderNil       = fmt.Errorf("%w: payload reader is nil", ErrValidation)

	// ErrDuplicateID is returned by SaveWithID when the id is already taken.
	ErrDuplicateID = repository.ErrDuplicateID
)

// FileStorage stores payloads for a bounded lifetime.
//
// Lookups and updates by id report a missing file as an absent result (nil or 0), never as an
// error. Context is stored verbatim and never interpreted; ownership is enforced by ContextView.
type FileStorage interface {
	// Save validates and persists the payload with a generated id and returns that id.
	Save(ctx context.Context, p model.Payload, ttlSeconds int64, fileContext, metadata *string) (string, error)
	// SaveWithID is Save with a caller-supplied id. Fails with ErrDuplicateID if the id exists.
	SaveWithID(ctx context.Context, id string, p model.Payload, ttlSeconds int64, fileContext, metadata *string) error
	// Find returns the file or nil.
	Find(ctx context.Context, id string) (*model.StoredFile, error)
	// FindByContext returns the files bound to fileContext, oldest first.
	FindByContext(ctx context.Context, fileContext string) ([]model.StoredFile, error)
	// Payload opens the payload of a file, or returns nil if it does not exist.
	Payload(ctx context.Context, id string) (io.ReadCloser, error)
	// SetTimeToLive sets expires_at to now + ttlSeconds and returns the new value, or nil if the file does not exist.
	SetTimeToLive(ctx context.Context, id string, ttlSeconds int64) (*time.Time, error)
	// SetMetadata replaces the metadata of a file; nil clears it.
	SetMetadata(ctx context.Context, id string, metadata *string) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
	DeleteByContext(ctx context.Context, fileContext string) (int64, error)
	// DeleteExpired removes every file with expires_at <= now.
	DeleteExpired(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// Option configures a FileStorage.
type Option func(*fileStorage)

// WithIDGenerator replaces the default uuid generator.
func WithIDGenerator(g idgen.Generator) Option {
	return func(s *fileStorage) { s.ids = g }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *fileStorage) { s.now = now }
}

// WithMaxPayloadSize lowers the accepted payload size.
// Values outside (0, DefaultMaxPayloadSize] are ignored.
func WithMaxPayloadSize(n int64) Option {
	return func(s *fileStorage) {
		if n > 0 && n <= DefaultMaxPayloadSize {
			s.maxPayload = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *fileStorage) { s.logger = l }
}

type fileStorage struct {
	repo       repository.FileRepository
	ids        idgen.Generator
	now        func() time.Time
	maxPayload int64
	logger     *slog.Logger
}

// NewFileStorage constructs a FileStorage on top of the given repository.
func NewFileStorage(repo repository.FileRepository, opts ...Option) FileStorage {
	s := &fileStorage{
		repo:       repo,
		ids:        idgen.Default,
		now:        time.Now,
		maxPayload: DefaultMaxPayloadSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "file_storage")
	return s
}

func (s *fileStorage) Save(ctx context.Context, p model.Payload, ttlSeconds int64, fileContext, metadata *string) (string, error) {
	data, err := s.validate(p, ttlSeconds, fileContext, metadata)
	if err != nil {
		return "", err
	}
	id := s.ids.GenerateID()
	if err := s.insert(ctx, id, p, data, ttlSeconds, fileContext, metadata); err != nil {
		return "", err
	}
	return id, nil
}

func (s *fileStorage) SaveWithID(ctx context.Context, id string, p model.Payload, ttlSeconds int64, fileContext, metadata *string) error {
	if id == "" {
		return ErrIDRequired
	}
	data, err := s.validate(p, ttlSeconds, fileContext, metadata)
	if err != nil {
		return err
	}
	return s.insert(ctx, id, p, data, ttlSeconds, fileContext, metadata)
}

func (s *fileStorage) insert(ctx context.Context, id string, p model.Payload, data []byte, ttlSeconds int64, fileContext, metadata *string) error {
	now := s.clock()
	f := &model.StoredFile{
		ID:               id,
		Name:             p.Name,
		OriginalFilename: p.OriginalFilename,
		ContentType:      p.ContentType,
		Size:             int64(len(data)),
		Context:          fileContext,
		Metadata:         metadata,
		CreatedAt:        now,
		ExpiresAt:        now.Add(time.Duration(ttlSeconds) * time.Second),
	}
	if err := s.repo.Insert(ctx, f, data); err != nil {
		if errors.Is(err, repository.ErrDuplicateID) {
			return err
		}
		return fmt.Errorf("insert file %s: %w", id, err)
	}
	s.logger.DebugContext(ctx, "file stored", "file_id", id, "size", f.Size, "expires_at", f.ExpiresAt)
	return nil
}

func (s *fileStorage) Find(ctx context.Context, id string) (*model.StoredFile, error) {
	if id == "" {
		return nil, nil
	}
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return f, nil
}

func (s *fileStorage) FindByContext(ctx context.Context, fileContext string) ([]model.StoredFile, error) {
	return s.repo.FindByContext(ctx, fileContext)
}

func (s *fileStorage) Payload(ctx context.Context, id string) (io.ReadCloser, error) {
	if id == "" {
		return nil, nil
	}
	rc, err := s.repo.OpenPayload(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rc, nil
}

func (s *fileStorage) SetTimeToLive(ctx context.Context, id string, ttlSeconds int64) (*time.Time, error) {
	if ttlSeconds < 0 || ttlSeconds > MaxTTL {
		return nil, ErrInvalidTTL
	}
	if id == "" {
		return nil, nil
	}
	expiresAt := s.clock().Add(time.Duration(ttlSeconds) * time.Second)
	n, err := s.repo.UpdateExpiresAt(ctx, id, expiresAt)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return &expiresAt, nil
}

func (s *fileStorage) SetMetadata(ctx context.Context, id string, metadata *string) (int64, error) {
	if metadata != nil && utf8.RuneCountInString(*metadata) > MaxFieldLength {
		return 0, ErrMetadataTooLong
	}
	if id == "" {
		return 0, nil
	}
	return s.repo.UpdateMetadata(ctx, id, metadata)
}

func (s *fileStorage) Delete(ctx context.Context, id string) (int64, error) {
	if id == "" {
		return 0, nil
	}
	return s.repo.Delete(ctx, id)
}

func (s *fileStorage) DeleteByContext(ctx context.Context, fileContext string) (int64, error) {
	return s.repo.DeleteByContext(ctx, fileContext)
}

func (s *fileStorage) DeleteExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.clock())
}

func (s *fileStorage) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "all files deleted", "deleted", n)
	return n, nil
}

func (s *fileStorage) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// validate checks every input and reads the payload into memory.
// Nothing is persisted when it returns an error.
func (s *fileStorage) validate(p model.Payload, ttlSeconds int64, fileContext, metadata *string) ([]byte, error) {
	if ttlSeconds < 0 || ttlSeconds > MaxTTL {
		return nil, ErrInvalidTTL
	}
	if fileContext != nil && utf8.RuneCountInString(*fileContext) > MaxFieldLength {
		return nil, ErrContextTooLong
	}
	if metadata != nil && utf8.RuneCountInString(*metadata) > MaxFieldLength {
		return nil, ErrMetadataTooLong
	}
	if p.Content == nil {
		return nil, ErrReaderNil
	}
	if p.Size < -1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidSize, p.Size)
	}
	if p.Size > s.maxPayload {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrPayloadTooLarge, p.Size, s.maxPayload)
	}

	var buf bytes.Buffer
	if p.Size > 0 {
		buf.Grow(int(p.Size))
	}
	if _, err := buf.ReadFrom(io.LimitReader(p.Content, s.maxPayload+1)); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if int64(buf.Len()) > s.maxPayload {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrPayloadTooLarge, s.maxPayload)
	}
	if p.Size >= 0 && int64(buf.Len()) != p.Size {
		return nil, fmt.Errorf("%w: declared %d, read %d", ErrSizeMismatch, p.Size, buf.Len())
	}
	return buf.Bytes(), nil
}

// clock returns the current time in UTC at the precision PostgreSQL keeps.
func (s *fileStorage) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}
