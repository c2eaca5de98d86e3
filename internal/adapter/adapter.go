// Package adapter persists host file records to a cloud object-storage bucket.
//
// The Adapter translates FileRecords into provider calls: upload a local file
// under a generated name, compute the object's public URL, delete it, and
// check whether a key exists. It holds no mutable state after construction, so
// a single Adapter may be shared by concurrent callers.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/gcsfiles/service/internal/logging"
	"github.com/gcsfiles/service/internal/metrics"
	"github.com/gcsfiles/service/internal/naming"
	"github.com/gcsfiles/service/internal/storage"
)

// CompatibilityLevel is the host storage API version this adapter implements.
const CompatibilityLevel = 1

const (
	DefaultPublicHost   = "storage.cloud.google.com"
	DefaultCacheControl = "public, max-age=31536000"
)

// Options configures an Adapter. Zero fields fall back to DefaultOptions.
type Options struct {
	ProjectID string
	Bucket    string
	// Path is the default key prefix. It always gains a leading "/".
	Path             string
	GenerateFilename Namer
	PublicHost       string
	CacheControl     string
	// MaxAttempts bounds how many names are tried when the provider reports
	// that a key is already taken.
	MaxAttempts int
	// Schema lists the record fields the host persists. nil means
	// DefaultSchema; &Schema{} persists none of the optional fields.
	Schema *Schema
}

// DefaultOptions returns the defaults, taking project and bucket from
// GCLOUD_PROJECT_ID and GCLOUD_BUCKET.
func DefaultOptions() Options {
	return Options{
		ProjectID:        os.Getenv("GCLOUD_PROJECT_ID"),
		Bucket:           os.Getenv("GCLOUD_BUCKET"),
		Path:             "/",
		GenerateFilename: FromStrategy(naming.Random),
		PublicHost:       DefaultPublicHost,
		CacheControl:     DefaultCacheControl,
		MaxAttempts:      1,
	}
}

func mergeOptions(opts Options) Options {
	merged := DefaultOptions()
	if opts.ProjectID != "" {
		merged.ProjectID = opts.ProjectID
	}
	if opts.Bucket != "" {
		merged.Bucket = opts.Bucket
	}
	if opts.Path != "" {
		merged.Path = opts.Path
	}
	if opts.GenerateFilename != nil {
		merged.GenerateFilename = opts.GenerateFilename
	}
	if opts.PublicHost != "" {
		merged.PublicHost = opts.PublicHost
	}
	if opts.CacheControl != "" {
		merged.CacheControl = opts.CacheControl
	}
	if opts.MaxAttempts > 0 {
		merged.MaxAttempts = opts.MaxAttempts
	}
	schema := DefaultSchema()
	if opts.Schema != nil {
		schema = *opts.Schema
	}
	merged.Schema = &schema
	return merged
}

// Adapter stores FileRecords in an object-storage bucket.
type Adapter struct {
	opts     Options
	provider storage.Provider
}

// New validates opts and binds them to provider. It returns a
// *ConfigurationError when projectId or bucket is missing after the merge.
func New(opts Options, provider storage.Provider) (*Adapter, error) {
	o := mergeOptions(opts)

	required := []struct{ name, value string }{
		{"projectId", o.ProjectID},
		{"bucket", o.Bucket},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, &ConfigurationError{Option: r.name}
		}
	}
	if provider == nil {
		return nil, &ConfigurationError{Option: "provider"}
	}

	o.Path = ensureLeadingSlash(o.Path)
	return &Adapter{opts: o, provider: provider}, nil
}

// Options returns the resolved configuration.
func (a *Adapter) Options() Options { return a.opts }

// Schema returns the record fields the host is expected to persist.
func (a *Adapter) Schema() Schema { return *a.opts.Schema }

func (a *Adapter) resolveBucket(rec *FileRecord) string {
	if rec != nil && rec.Bucket != "" {
		return rec.Bucket
	}
	return a.opts.Bucket
}

// Older records may carry a path without its leading slash.
func (a *Adapter) resolvePath(rec *FileRecord) string {
	p := a.opts.Path
	if rec != nil && rec.Path != "" {
		p = rec.Path
	}
	return ensureLeadingSlash(p)
}

func (a *Adapter) objectKey(rec *FileRecord) string {
	return resolveKey(a.resolvePath(rec), rec.Filename)
}

// AbsoluteKey is the encoded, slash-prefixed key of rec within its bucket.
func (a *Adapter) AbsoluteKey(rec *FileRecord) string {
	return EncodeKey(a.objectKey(rec))
}

// Upload stores the local file at rec.Path under a generated name. rec is
// only modified once the provider confirms the write: Filename and Etag take
// the stored values, Bucket the bucket written to, and Path is cleared.
func (a *Adapter) Upload(ctx context.Context, rec *FileRecord) (*FileRecord, error) {
	if rec == nil {
		return nil, errors.New("upload: nil file record")
	}

	bucket := a.resolveBucket(rec)
	var lastKey string
	for attempt := 0; attempt < a.opts.MaxAttempts; attempt++ {
		name, err := a.opts.GenerateFilename.Generate(ctx, *rec, attempt)
		if err != nil {
			metrics.RecordUpload(false)
			return nil, &NameGenerationError{Attempt: attempt, Err: err}
		}

		// rec.Path is the local source here, never a key prefix.
		work := *rec
		work.Path = ""
		work.Filename = name
		lastKey = a.objectKey(&work)

		logging.Debug("uploading file",
			zap.String("key", EncodeKey(lastKey)),
			zap.String("bucket", bucket),
			zap.String("mimetype", rec.Mimetype),
			zap.Int("attempt", attempt))

		attrs, err := a.provider.Upload(ctx, bucket, removeLeadingSlash(lastKey), rec.Path, storage.UploadOptions{
			ContentType:  rec.Mimetype,
			CacheControl: a.opts.CacheControl,
			Gzip:         true,
			Public:       true,
			IfNotExists:  true,
		})
		if errors.Is(err, storage.ErrObjectExists) {
			metrics.RecordCollision()
			logging.Info("filename collision",
				zap.String("key", lastKey),
				zap.String("bucket", bucket),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			metrics.RecordUpload(false)
			return nil, &ProviderError{Op: "upload", Bucket: bucket, Key: lastKey, Err: err}
		}

		rec.Path = ""
		rec.Bucket = bucket
		rec.Filename = name
		if attrs != nil {
			if attrs.Name != "" {
				rec.Filename = storedFilename(a.opts.Path, attrs.Name)
			}
			if attrs.Bucket != "" {
				rec.Bucket = attrs.Bucket
			}
			rec.Etag = attrs.Etag
		}
		metrics.RecordUpload(true)
		return rec, nil
	}

	metrics.RecordUpload(false)
	return nil, &ProviderError{
		Op:     "upload",
		Bucket: bucket,
		Key:    lastKey,
		Err:    fmt.Errorf("%w after %d attempts", storage.ErrObjectExists, a.opts.MaxAttempts),
	}
}

// FileURL returns the public URL of rec. Whether it is fetchable depends on
// the bucket and object ACLs.
func (a *Adapter) FileURL(rec *FileRecord) string {
	return "https://" + a.opts.PublicHost + "/" + a.resolveBucket(rec) + a.AbsoluteKey(rec)
}

// RemoveFile deletes the object rec points at.
func (a *Adapter) RemoveFile(ctx context.Context, rec *FileRecord) error {
	bucket := a.resolveBucket(rec)
	key := a.objectKey(rec)

	logging.Debug("removing file", zap.String("key", key), zap.String("bucket", bucket))

	if err := a.provider.Delete(ctx, bucket, removeLeadingSlash(key)); err != nil {
		return &ProviderError{Op: "delete", Bucket: bucket, Key: key, Err: err}
	}
	return nil
}

// FileExists looks filename up in the default bucket. It returns nil
// attributes and a nil error when the object is absent.
func (a *Adapter) FileExists(ctx context.Context, filename string) (*storage.ObjectAttrs, error) {
	bucket := a.resolveBucket(nil)

	logging.Debug("checking file exists", zap.String("filename", filename), zap.String("bucket", bucket))

	attrs, err := a.provider.Attrs(ctx, bucket, filename)
	if err != nil {
		return nil, &ProviderError{Op: "stat", Bucket: bucket, Key: filename, Err: err}
	}
	return attrs, nil
}
