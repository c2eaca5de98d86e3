package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSConfig holds explicit connection settings for Google Cloud Storage.
// Nothing is read from the environment here; callers pass what they resolved.
type GCSConfig struct {
	ProjectID       string
	CredentialsFile string // service-account JSON; empty uses application default credentials
	Endpoint        string // emulator endpoint, e.g. "http://localhost:4443/storage/v1/"
}

// GCS implements Provider on top of cloud.google.com/go/storage.
type GCS struct {
	client    *gcs.Client
	projectID string
}

// NewGCS creates a Cloud Storage client from cfg.
func NewGCS(ctx context.Context, cfg GCSConfig) (*GCS, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCS{client: client, projectID: cfg.ProjectID}, nil
}

// NewGCSFromClient wraps an existing client, e.g. one served by fakestorage.
func NewGCSFromClient(client *gcs.Client, projectID string) *GCS {
	return &GCS{client: client, projectID: projectID}
}

// Upload streams localPath into bucket/key.
func (g *GCS) Upload(ctx context.Context, bucket, key, localPath string, opts UploadOptions) (attrs *ObjectAttrs, err error) {
	start := time.Now()
	defer func() { observe(g.Name(), "upload", bucket, key, start, err) }()

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	obj := g.client.Bucket(bucket).Object(key)
	if opts.IfNotExists {
		obj = obj.If(gcs.Conditions{DoesNotExist: true})
	}

	// Cancelling the context is the only way to abort a gcs.Writer.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := obj.NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.CacheControl = opts.CacheControl
	w.ContentEncoding = contentEncoding(opts.Gzip)
	if opts.Public {
		w.PredefinedACL = "publicRead"
	}

	if opts.Gzip {
		err = gzipTo(w, f)
	} else if _, err = io.Copy(w, f); err != nil {
		err = fmt.Errorf("write object %q: %w", key, err)
	}
	if err != nil {
		cancel()
		_ = w.Close()
		return nil, err
	}

	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return nil, ErrObjectExists
		}
		return nil, fmt.Errorf("upload object %q: %w", key, err)
	}
	return fromGCSAttrs(w.Attrs()), nil
}

// Delete removes bucket/key.
func (g *GCS) Delete(ctx context.Context, bucket, key string) (err error) {
	start := time.Now()
	defer func() { observe(g.Name(), "delete", bucket, key, start, err) }()

	if err := g.client.Bucket(bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}

// Attrs returns object metadata, or nil when the object does not exist.
func (g *GCS) Attrs(ctx context.Context, bucket, key string) (attrs *ObjectAttrs, err error) {
	start := time.Now()
	defer func() { observe(g.Name(), "attrs", bucket, key, start, err) }()

	a, err := g.client.Bucket(bucket).Object(key).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat object %q: %w", key, err)
	}
	return fromGCSAttrs(a), nil
}

// EnsureBucket creates bucket in the configured project when it is missing.
func (g *GCS) EnsureBucket(ctx context.Context, bucket string) error {
	b := g.client.Bucket(bucket)
	_, err := b.Attrs(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gcs.ErrBucketNotExist) {
		return fmt.Errorf("check bucket %q: %w", bucket, err)
	}
	if err := b.Create(ctx, g.projectID, nil); err != nil {
		return fmt.Errorf("create bucket %q: %w", bucket, err)
	}
	return nil
}

// Name returns "gcs".
func (g *GCS) Name() string { return "gcs" }

// Close closes the underlying client.
func (g *GCS) Close() error { return g.client.Close() }

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

func fromGCSAttrs(a *gcs.ObjectAttrs) *ObjectAttrs {
	if a == nil {
		return nil
	}
	return &ObjectAttrs{
		Bucket:          a.Bucket,
		Name:            a.Name,
		ContentType:     a.ContentType,
		ContentEncoding: a.ContentEncoding,
		CacheControl:    a.CacheControl,
		Etag:            a.Etag,
		Size:            a.Size,
		Updated:         a.Updated,
	}
}
