package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"uploadstore/internal/model"
	"uploadstore/internal/repository"
)

// uniqueViolation is the SQLSTATE raised by PostgreSQL for primary key conflicts.
const uniqueViolation = "23505"

const fileColumns = `id, name, original_filename, content_type, size, context, metadata, created_at, expires_at`

// FilePostgres is a PostgreSQL implementation of repository.FileRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type FilePostgres struct {
	db *sql.DB
}

// NewFilePostgres creates a new FilePostgres repository.
func NewFilePostgres(db *sql.DB) *FilePostgres {
	return &FilePostgres{db: db}
}

var _ repository.FileRepository = (*FilePostgres)(nil)

// Insert stores a new row including the payload in a single statement.
func (r *FilePostgres) Insert(ctx context.Context, f *model.StoredFile, data []byte) error {
	const q = `
		INSERT INTO stored_files (id, name, original_filename, content_type, size, payload, context, metadata, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, q,
		f.ID,
		f.Name,
		f.OriginalFilename,
		f.ContentType,
		f.Size,
		data,
		nullString(f.Context),
		nullString(f.Metadata),
		f.CreatedAt,
		f.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", repository.ErrDuplicateID, f.ID)
		}
		return err
	}
	return nil
}

// FindByID fetches a single file by its ID.
func (r *FilePostgres) FindByID(ctx context.Context, id string) (*model.StoredFile, error) {
	const q = `SELECT ` + fileColumns + ` FROM stored_files WHERE id = $1`
	f, err := scanFile(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// FindByContext returns the files bound to a context, oldest first.
func (r *FilePostgres) FindByContext(ctx context.Context, fileContext string) ([]model.StoredFile, error) {
	const q = `SELECT ` + fileColumns + ` FROM stored_files WHERE context = $1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, fileContext)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.StoredFile, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// OpenPayload reads the payload column of a single row.
func (r *FilePostgres) OpenPayload(ctx context.Context, id string) (io.ReadCloser, error) {
	const q = `SELECT payload FROM stored_files WHERE id = $1`
	var data []byte
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// UpdateExpiresAt sets expires_at for one row.
func (r *FilePostgres) UpdateExpiresAt(ctx context.Context, id string, expiresAt time.Time) (int64, error) {
	const q = `UPDATE stored_files SET expires_at = $1 WHERE id = $2`
	return r.exec(ctx, q, expiresAt, id)
}

// UpdateMetadata replaces metadata for one row.
func (r *FilePostgres) UpdateMetadata(ctx context.Context, id string, metadata *string) (int64, error) {
	const q = `UPDATE stored_files SET metadata = $1 WHERE id = $2`
	return r.exec(ctx, q, nullString(metadata), id)
}

// Delete removes a row by ID.
func (r *FilePostgres) Delete(ctx context.Context, id string) (int64, error) {
	const q = `DELETE FROM stored_files WHERE id = $1`
	return r.exec(ctx, q, id)
}

// DeleteByContext removes every row bound to the context.
func (r *FilePostgres) DeleteByContext(ctx context.Context, fileContext string) (int64, error) {
	const q = `DELETE FROM stored_files WHERE context = $1`
	return r.exec(ctx, q, fileContext)
}

// DeleteExpired removes every row that expired at or before threshold.
func (r *FilePostgres) DeleteExpired(ctx context.Context, threshold time.Time) (int64, error) {
	const q = `DELETE FROM stored_files WHERE expires_at <= $1`
	return r.exec(ctx, q, threshold)
}

// DeleteAll removes every row.
func (r *FilePostgres) DeleteAll(ctx context.Context) (int64, error) {
	const q = `DELETE FROM stored_files`
	return r.exec(ctx, q)
}

// Count returns the total number of rows.
func (r *FilePostgres) Count(ctx context.Context) (int64, error) {
	const q = `SELECT COUNT(*) FROM stored_files`
	var n int64
	if err := r.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *FilePostgres) exec(ctx context.Context, q string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*model.StoredFile, error) {
	var (
		f        model.StoredFile
		fileCtx  sql.NullString
		metadata sql.NullString
	)
	if err := row.Scan(
		&f.ID,
		&f.Name,
		&f.OriginalFilename,
		&f.ContentType,
		&f.Size,
		&fileCtx,
		&metadata,
		&f.CreatedAt,
		&f.ExpiresAt,
	); err != nil {
		return nil, err
	}
	if fileCtx.Valid {
		f.Context = &fileCtx.String
	}
	if metadata.Valid {
		f.Metadata = &metadata.String
	}
	f.CreatedAt = f.CreatedAt.UTC()
	f.ExpiresAt = f.ExpiresAt.UTC()
	return &f, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
