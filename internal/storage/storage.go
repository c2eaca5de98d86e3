// Package storage defines the object-storage provider boundary used by the adapter.
// Swap providers by changing the concrete type injected at startup: Google Cloud
// Storage is the primary target, AWS S3 and any MinIO-compatible endpoint work too.
package storage

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/gcsfiles/service/internal/logging"
	"github.com/gcsfiles/service/internal/metrics"
)

// ErrObjectExists is returned by Upload when UploadOptions.IfNotExists is set
// and the key is already taken. The adapter treats it as a naming collision.
var ErrObjectExists = errors.New("object already exists")

// UploadOptions controls how an object is written.
type UploadOptions struct {
	ContentType  string
	CacheControl string
	// Gzip compresses the body and stores it with Content-Encoding: gzip.
	Gzip bool
	// Public makes the object world-readable.
	Public bool
	// IfNotExists makes the write conditional on the key being free.
	IfNotExists bool
}

// ObjectAttrs is the provider-neutral view of an object's metadata.
type ObjectAttrs struct {
	Bucket          string    `json:"bucket"`
	Name            string    `json:"name"`
	ContentType     string    `json:"contentType,omitempty"`
	ContentEncoding string    `json:"contentEncoding,omitempty"`
	CacheControl    string    `json:"cacheControl,omitempty"`
	Etag            string    `json:"etag"`
	Size            int64     `json:"size"`
	Updated         time.Time `json:"updated"`
}

// Provider is the set of object-storage operations the adapter consumes.
type Provider interface {
	// Upload writes the file at localPath to bucket/key and returns the
	// provider-confirmed attributes of the stored object.
	Upload(ctx context.Context, bucket, key, localPath string, opts UploadOptions) (*ObjectAttrs, error)
	// Delete removes bucket/key.
	Delete(ctx context.Context, bucket, key string) error
	// Attrs returns the metadata of bucket/key, or nil when it does not exist.
	Attrs(ctx context.Context, bucket, key string) (*ObjectAttrs, error)
	// Name identifies the provider in logs and metrics ("gcs", "s3", "minio").
	Name() string
	// Close releases any resources held by the provider.
	Close() error
}

func observe(provider, operation, bucket, key string, start time.Time, err error) {
	d := time.Since(start)
	metrics.RecordProviderOperation(provider, operation, d, err == nil)
	logging.Debug("storage provider call",
		zap.String("provider", provider),
		zap.String("operation", operation),
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Duration("duration", d),
		zap.Error(err))
}
