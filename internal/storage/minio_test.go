package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	header http.Header
}

// fakeMinio answers HEAD from a set of existing keys and accepts every PUT and DELETE.
type fakeMinio struct {
	mu       sync.Mutex
	existing map[string]bool
	requests []recordedRequest
}

func (f *fakeMinio) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{r.Method, r.URL.Path, r.Header.Clone()})

	switch r.Method {
	case http.MethodHead:
		if !f.existing[r.URL.Path] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("ETag", `"existing-etag"`)
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", "7")
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		w.Header().Set("ETag", `"put-etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeMinio) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.method)
	}
	return out
}

func newTestMinio(t *testing.T, fake *fakeMinio) *Minio {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	m, err := NewMinio(MinioConfig{
		Endpoint:  strings.TrimPrefix(server.URL, "http://"),
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Region:    "us-east-1",
	})
	require.NoError(t, err)
	return m
}

func TestMinioUpload(t *testing.T) {
	fake := &fakeMinio{}
	m := newTestMinio(t, fake)

	src := writeTempFile(t, "x.png", "image data")
	attrs, err := m.Upload(context.Background(), "media", "uploads/x.png", src, UploadOptions{
		ContentType:  "image/png",
		CacheControl: "public, max-age=31536000",
		Gzip:         true,
		Public:       true,
		IfNotExists:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{http.MethodHead, http.MethodPut}, fake.methods())
	put := fake.requests[1]
	assert.Equal(t, "/media/uploads/x.png", put.path)
	assert.Equal(t, "image/png", put.header.Get("Content-Type"))
	assert.Equal(t, "public, max-age=31536000", put.header.Get("Cache-Control"))
	assert.Contains(t, put.header.Get("Content-Encoding"), "gzip")
	assert.Equal(t, "public-read", put.header.Get("X-Amz-Acl"))

	assert.Equal(t, "media", attrs.Bucket)
	assert.Equal(t, "uploads/x.png", attrs.Name)
	assert.Equal(t, "put-etag", attrs.Etag)
}

func TestMinioUploadCollision(t *testing.T) {
	fake := &fakeMinio{existing: map[string]bool{"/media/taken.png": true}}
	m := newTestMinio(t, fake)

	src := writeTempFile(t, "x.png", "data")
	_, err := m.Upload(context.Background(), "media", "taken.png", src, UploadOptions{IfNotExists: true})
	assert.ErrorIs(t, err, ErrObjectExists)
	assert.Equal(t, []string{http.MethodHead}, fake.methods())
}

func TestMinioUploadWithoutPrecondition(t *testing.T) {
	fake := &fakeMinio{existing: map[string]bool{"/media/taken.png": true}}
	m := newTestMinio(t, fake)

	src := writeTempFile(t, "x.png", "data")
	_, err := m.Upload(context.Background(), "media", "taken.png", src, UploadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{http.MethodPut}, fake.methods())
}

func TestMinioAttrs(t *testing.T) {
	fake := &fakeMinio{existing: map[string]bool{"/media/here.png": true}}
	m := newTestMinio(t, fake)

	attrs, err := m.Attrs(context.Background(), "media", "missing.png")
	require.NoError(t, err)
	assert.Nil(t, attrs)

	attrs, err = m.Attrs(context.Background(), "media", "here.png")
	require.NoError(t, err)
	require.NotNil(t, attrs)
	assert.Equal(t, "existing-etag", attrs.Etag)
	assert.Equal(t, "image/png", attrs.ContentType)
	assert.Equal(t, int64(7), attrs.Size)
}

func TestMinioDelete(t *testing.T) {
	fake := &fakeMinio{}
	m := newTestMinio(t, fake)

	require.NoError(t, m.Delete(context.Background(), "media", "uploads/old.png"))
	require.Len(t, fake.requests, 1)
	assert.Equal(t, http.MethodDelete, fake.requests[0].method)
	assert.Equal(t, "/media/uploads/old.png", fake.requests[0].path)
}

func TestPublicReadPolicy(t *testing.T) {
	policy := publicReadPolicy("media")
	assert.Contains(t, policy, `"arn:aws:s3:::media/*"`)
	assert.Contains(t, policy, `"s3:GetObject"`)
}
