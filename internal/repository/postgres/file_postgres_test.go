package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uploadstore/internal/model"
	"uploadstore/internal/repository"
)

var fileRowColumns = []string{"id", "name", "original_filename", "content_type", "size", "context", "metadata", "created_at", "expires_at"}

func newMockRepo(t *testing.T) (*FilePostgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewFilePostgres(db), mock
}

func TestFilePostgres_Insert(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	sess := "sess1"
	f := &model.StoredFile{
		ID:               "file-1",
		Name:             "file",
		OriginalFilename: "hello.txt",
		ContentType:      "text/plain",
		Size:             5,
		Context:          &sess,
		CreatedAt:        now,
		ExpiresAt:        now.Add(time.Minute),
	}
	data := []byte("hello")

	t.Run("success", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("INSERT INTO stored_files").
			WithArgs(f.ID, f.Name, f.OriginalFilename, f.ContentType, f.Size, data, "sess1", nil, f.CreatedAt, f.ExpiresAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Insert(ctx, f, data)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate id", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("INSERT INTO stored_files").
			WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

		err := repo.Insert(ctx, f, data)

		assert.ErrorIs(t, err, repository.ErrDuplicateID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other error", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("INSERT INTO stored_files").WillReturnError(errors.New("connection reset"))

		err := repo.Insert(ctx, f, data)

		assert.EqualError(t, err, "connection reset")
		assert.NotErrorIs(t, err, repository.ErrDuplicateID)
	})
}

func TestFilePostgres_FindByID(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepo(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows(fileRowColumns).
			AddRow("test-id", "file", "a.txt", "text/plain", int64(3), "sess1", `{"k":1}`, created, created.Add(time.Hour))

		mock.ExpectQuery("SELECT (.+) FROM stored_files WHERE id = ?").
			WithArgs("test-id").
			WillReturnRows(rows)

		f, err := repo.FindByID(ctx, "test-id")

		require.NoError(t, err)
		assert.Equal(t, "test-id", f.ID)
		require.NotNil(t, f.Context)
		assert.Equal(t, "sess1", *f.Context)
		require.NotNil(t, f.Metadata)
		assert.Equal(t, `{"k":1}`, *f.Metadata)
		assert.Equal(t, created, f.CreatedAt)
	})

	t.Run("null context and metadata", func(t *testing.T) {
		rows := sqlmock.NewRows(fileRowColumns).
			AddRow("test-id", "file", "a.txt", "text/plain", int64(3), nil, nil, created, created)

		mock.ExpectQuery("SELECT (.+) FROM stored_files WHERE id = ?").
			WithArgs("test-id").
			WillReturnRows(rows)

		f, err := repo.FindByID(ctx, "test-id")

		require.NoError(t, err)
		assert.Nil(t, f.Context)
		assert.Nil(t, f.Metadata)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM stored_files WHERE id = ?").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(fileRowColumns))

		f, err := repo.FindByID(ctx, "missing")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, f)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilePostgres_FindByContext(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepo(t)
	created := time.Now().UTC()

	rows := sqlmock.NewRows(fileRowColumns).
		AddRow("a", "file", "a.txt", "text/plain", int64(1), "sess1", nil, created, created.Add(time.Minute)).
		AddRow("b", "file", "b.txt", "text/plain", int64(2), "sess1", nil, created.Add(time.Second), created.Add(time.Minute))

	mock.ExpectQuery("SELECT (.+) FROM stored_files WHERE context = \\$1 ORDER BY created_at ASC").
		WithArgs("sess1").
		WillReturnRows(rows)

	files, err := repo.FindByContext(ctx, "sess1")

	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a", files[0].ID)
	assert.Equal(t, "b", files[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilePostgres_OpenPayload(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepo(t)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT payload FROM stored_files WHERE id = ?").
			WithArgs("test-id").
			WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte("hello")))

		rc, err := repo.OpenPayload(ctx, "test-id")
		require.NoError(t, err)
		defer rc.Close()

		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(b))
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT payload FROM stored_files WHERE id = ?").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"payload"}))

		rc, err := repo.OpenPayload(ctx, "missing")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, rc)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilePostgres_Mutations(t *testing.T) {
	ctx := context.Background()
	threshold := time.Now().UTC()
	metadata := "meta"

	tests := []struct {
		name     string
		query    string
		args     []driver.Value
		affected int64
		call     func(r *FilePostgres) (int64, error)
	}{
		{
			name:     "update expires_at",
			query:    "UPDATE stored_files SET expires_at = \\$1 WHERE id = \\$2",
			args:     []driver.Value{threshold, "id-1"},
			affected: 1,
			call:     func(r *FilePostgres) (int64, error) { return r.UpdateExpiresAt(ctx, "id-1", threshold) },
		},
		{
			name:     "update metadata",
			query:    "UPDATE stored_files SET metadata = \\$1 WHERE id = \\$2",
			args:     []driver.Value{"meta", "id-1"},
			affected: 1,
			call:     func(r *FilePostgres) (int64, error) { return r.UpdateMetadata(ctx, "id-1", &metadata) },
		},
		{
			name:     "clear metadata",
			query:    "UPDATE stored_files SET metadata = \\$1 WHERE id = \\$2",
			args:     []driver.Value{nil, "id-1"},
			affected: 0,
			call:     func(r *FilePostgres) (int64, error) { return r.UpdateMetadata(ctx, "id-1", nil) },
		},
		{
			name:     "delete by id",
			query:    "DELETE FROM stored_files WHERE id = \\$1",
			args:     []driver.Value{"id-1"},
			affected: 1,
			call:     func(r *FilePostgres) (int64, error) { return r.Delete(ctx, "id-1") },
		},
		{
			name:     "delete by context",
			query:    "DELETE FROM stored_files WHERE context = \\$1",
			args:     []driver.Value{"sess1"},
			affected: 3,
			call:     func(r *FilePostgres) (int64, error) { return r.DeleteByContext(ctx, "sess1") },
		},
		{
			name:     "delete expired",
			query:    "DELETE FROM stored_files WHERE expires_at <= \\$1",
			args:     []driver.Value{threshold},
			affected: 2,
			call:     func(r *FilePostgres) (int64, error) { return r.DeleteExpired(ctx, threshold) },
		},
		{
			name:     "delete all",
			query:    "DELETE FROM stored_files$",
			affected: 7,
			call:     func(r *FilePostgres) (int64, error) { return r.DeleteAll(ctx) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			exp := mock.ExpectExec(tt.query)
			if len(tt.args) > 0 {
				exp = exp.WithArgs(tt.args...)
			}
			exp.WillReturnResult(sqlmock.NewResult(0, tt.affected))

			n, err := tt.call(repo)

			assert.NoError(t, err)
			assert.Equal(t, tt.affected, n)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestFilePostgres_ExecError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("DELETE FROM stored_files WHERE id = ?").
		WithArgs("id-1").
		WillReturnError(errors.New("db down"))

	n, err := repo.Delete(context.Background(), "id-1")

	assert.EqualError(t, err, "db down")
	assert.Zero(t, n)
}

func TestFilePostgres_Count(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM stored_files").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(4)))

	n, err := repo.Count(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
