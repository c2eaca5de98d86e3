package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/gcsfiles/service/internal/logging"
)

// MinioConfig holds the settings for a MinIO (or any S3-compatible) endpoint.
// To switch to another S3-compatible vendor change the endpoint and
// credentials; no code changes are needed.
type MinioConfig struct {
	Endpoint  string // host:port, no scheme
	AccessKey string
	SecretKey string
	Region    string // optional; skips the bucket-location lookup when set
	UseSSL    bool
}

// Minio implements Provider using minio-go.
type Minio struct {
	client *minio.Client
}

// NewMinio creates a MinIO client.
func NewMinio(cfg MinioConfig) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Minio{client: client}, nil
}

// EnsureBucket creates bucket if needed and applies a public-read policy.
func (m *Minio) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		logging.Info("storage: created bucket", zap.String("bucket", bucket))
	}

	if err := m.client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
		return fmt.Errorf("set bucket policy: %w", err)
	}
	return nil
}

// Upload puts localPath at bucket/key. The existence precondition is checked
// with a StatObject first, so two racing writers can both pass it.
func (m *Minio) Upload(ctx context.Context, bucket, key, localPath string, opts UploadOptions) (attrs *ObjectAttrs, err error) {
	start := time.Now()
	defer func() { observe(m.Name(), "upload", bucket, key, start, err) }()

	if opts.IfNotExists {
		existing, err := m.stat(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrObjectExists
		}
	}

	body, err := readBody(localPath, opts.Gzip)
	if err != nil {
		return nil, err
	}

	putOpts := minio.PutObjectOptions{
		ContentType:     opts.ContentType,
		ContentEncoding: contentEncoding(opts.Gzip),
		CacheControl:    opts.CacheControl,
	}
	if opts.Public {
		putOpts.UserMetadata = map[string]string{"x-amz-acl": "public-read"}
	}

	info, err := m.client.PutObject(ctx, bucket, key, body, body.Size(), putOpts)
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", key, err)
	}

	name := info.Key
	if name == "" {
		name = key
	}
	return &ObjectAttrs{
		Bucket:          bucket,
		Name:            name,
		ContentType:     opts.ContentType,
		ContentEncoding: putOpts.ContentEncoding,
		CacheControl:    opts.CacheControl,
		Etag:            trimETag(info.ETag),
		Size:            info.Size,
		Updated:         info.LastModified,
	}, nil
}

// Delete removes bucket/key.
func (m *Minio) Delete(ctx context.Context, bucket, key string) (err error) {
	start := time.Now()
	defer func() { observe(m.Name(), "delete", bucket, key, start, err) }()

	if err := m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

// Attrs returns object metadata, or nil when the key does not exist.
func (m *Minio) Attrs(ctx context.Context, bucket, key string) (attrs *ObjectAttrs, err error) {
	start := time.Now()
	defer func() { observe(m.Name(), "attrs", bucket, key, start, err) }()

	return m.stat(ctx, bucket, key)
}

func (m *Minio) stat(ctx context.Context, bucket, key string) (*ObjectAttrs, error) {
	info, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil
		}
		return nil, fmt.Errorf("stat object %q: %w", key, err)
	}
	return &ObjectAttrs{
		Bucket:          bucket,
		Name:            info.Key,
		ContentType:     info.ContentType,
		ContentEncoding: info.Metadata.Get("Content-Encoding"),
		CacheControl:    info.Metadata.Get("Cache-Control"),
		Etag:            trimETag(info.ETag),
		Size:            info.Size,
		Updated:         info.LastModified,
	}, nil
}

// Name returns "minio".
func (m *Minio) Name() string { return "minio" }

// Close is a no-op for MinIO.
func (m *Minio) Close() error { return nil }

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
