package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/gcsfiles/service/internal/adapter"
	"github.com/gcsfiles/service/internal/logging"
	"github.com/gcsfiles/service/internal/storage"
)

// Service uploads files through the adapter and records them in the store.
type Service struct {
	store   Store
	adapter *adapter.Adapter
	tempDir string
}

// NewService creates a new files Service. Uploads are spooled to tempDir
// (os.TempDir when empty) before being handed to the adapter.
func NewService(store Store, a *adapter.Adapter, tempDir string) *Service {
	return &Service{store: store, adapter: a, tempDir: tempDir}
}

// UploadInput describes an incoming file.
type UploadInput struct {
	Body         io.Reader
	OriginalName string
	Mimetype     string
	Size         int64
}

// Upload stores in.Body in object storage and persists its record.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*File, error) {
	tmp, err := os.CreateTemp(s.tempDir, "upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, in.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("spool upload: %w", err)
	}

	size := in.Size
	if size <= 0 {
		size = written
	}
	rec := &adapter.FileRecord{
		Path:         tmp.Name(),
		Mimetype:     in.Mimetype,
		OriginalName: in.OriginalName,
		Size:         size,
	}
	if _, err := s.adapter.Upload(ctx, rec); err != nil {
		return nil, err
	}

	f, err := s.store.Create(ctx, s.adapter.Schema().Apply(*rec))
	if err != nil {
		// Best-effort cleanup so the bucket does not keep an orphan.
		if delErr := s.adapter.RemoveFile(ctx, rec); delErr != nil {
			logging.Warn("failed to clean up uploaded object after store error",
				zap.String("filename", rec.Filename),
				zap.Error(delErr))
		}
		return nil, fmt.Errorf("save file record: %w", err)
	}
	f.URL = s.adapter.FileURL(&f.FileRecord)

	logging.Info("file uploaded",
		zap.String("id", f.ID),
		zap.String("filename", rec.Filename),
		zap.String("bucket", rec.Bucket),
		zap.Int64("size", size))
	return f, nil
}

// Get returns a stored file with its public URL.
func (s *Service) Get(ctx context.Context, id string) (*File, error) {
	f, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	f.URL = s.adapter.FileURL(&f.FileRecord)
	return f, nil
}

// Delete removes the object and then its record.
func (s *Service) Delete(ctx context.Context, id string) error {
	f, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.adapter.RemoveFile(ctx, &f.FileRecord); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	logging.Info("file deleted", zap.String("id", id), zap.String("filename", f.Filename))
	return nil
}

// Exists reports the object metadata for filename in the default bucket,
// or nil when there is no such object.
func (s *Service) Exists(ctx context.Context, filename string) (*storage.ObjectAttrs, error) {
	return s.adapter.FileExists(ctx, filename)
}

// IsNotFound returns true when the error indicates a file record was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsCollision returns true when every generated filename was already taken.
func (s *Service) IsCollision(err error) bool {
	return errors.Is(err, storage.ErrObjectExists)
}
