// Package files stores uploaded files through the object-storage adapter and
// keeps their records in PostgreSQL.
package files

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gcsfiles/service/internal/adapter"
)

// File is a persisted file record plus its public URL.
type File struct {
	ID string `json:"id"`
	adapter.FileRecord
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// ErrNotFound is returned when a file record does not exist.
var ErrNotFound = errors.New("file not found")

// Store persists file records.
type Store interface {
	Create(ctx context.Context, rec adapter.FileRecord) (*File, error)
	GetByID(ctx context.Context, id string) (*File, error)
	Delete(ctx context.Context, id string) error
}

// Repository handles all file database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const fileColumns = `id, filename, original_name, mimetype, size, bucket, path, etag, created_at`

// Create inserts a record and returns it with its generated id.
func (r *Repository) Create(ctx context.Context, rec adapter.FileRecord) (*File, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO files (filename, original_name, mimetype, size, bucket, path, etag)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+fileColumns,
		rec.Filename, rec.OriginalName, rec.Mimetype, rec.Size,
		nullable(rec.Bucket), nullable(rec.Path), nullable(rec.Etag),
	)
	f, err := scanFile(row)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	return f, nil
}

// GetByID fetches a record by its UUID.
func (r *Repository) GetByID(ctx context.Context, id string) (*File, error) {
	f, err := scanFile(r.db.QueryRow(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file by id: %w", err)
	}
	return f, nil
}

// Delete removes a record by its UUID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		if isInvalidText(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanFile(row pgx.Row) (*File, error) {
	var (
		f                  File
		bucket, path, etag *string
	)
	err := row.Scan(&f.ID, &f.Filename, &f.OriginalName, &f.Mimetype, &f.Size,
		&bucket, &path, &etag, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	f.Bucket = deref(bucket)
	f.Path = deref(path)
	f.Etag = deref(etag)
	return &f, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// isInvalidText checks for PostgreSQL invalid_text_representation (code 22P02),
// raised for malformed UUIDs.
func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
