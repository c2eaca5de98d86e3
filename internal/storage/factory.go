package storage

import (
	"context"
	"fmt"
)

// Drivers accepted by NewProvider.
const (
	DriverGCS   = "gcs"
	DriverS3    = "s3"
	DriverMinio = "minio"
)

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	Driver string
	GCS    GCSConfig
	S3     S3Config
	Minio  MinioConfig
}

// BucketEnsurer is implemented by providers that can create a missing bucket.
type BucketEnsurer interface {
	EnsureBucket(ctx context.Context, bucket string) error
}

// NewProvider creates the Provider named by cfg.Driver.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	switch cfg.Driver {
	case DriverGCS, "":
		return NewGCS(ctx, cfg.GCS)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMinio:
		return NewMinio(cfg.Minio)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}
