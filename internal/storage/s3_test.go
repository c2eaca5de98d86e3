package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestS3 points an S3 provider at a mock HTTP backend.
func newTestS3(t *testing.T, handler http.Handler) *S3 {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := s3.New(s3.Options{
		BaseEndpoint:               aws.String(server.URL),
		Region:                     "us-east-1",
		UsePathStyle:               true,
		Credentials:                credentials.NewStaticCredentialsProvider("test-key", "test-secret", ""),
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
	})
	return NewS3FromClient(client)
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func gunzip(t *testing.T, body []byte) string {
	t.Helper()
	zr, err := gzip.NewReader(strings.NewReader(string(body)))
	require.NoError(t, err)
	out, err := io.ReadAll(zr)
	require.NoError(t, err)
	return string(out)
}

func TestS3UploadSuccess(t *testing.T) {
	var (
		method, path string
		header       http.Header
		body         []byte
	)
	store := newTestS3(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		header = r.Header.Clone()
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"abc123"`)
		w.WriteHeader(http.StatusOK)
	}))

	src := writeTempFile(t, "photo.png", "image data")
	attrs, err := store.Upload(context.Background(), "test-bucket", "uploads/x.png", src, UploadOptions{
		ContentType:  "image/png",
		CacheControl: "public, max-age=31536000",
		Gzip:         true,
		Public:       true,
		IfNotExists:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/test-bucket/uploads/x.png", path)
	assert.Equal(t, "image/png", header.Get("Content-Type"))
	assert.Equal(t, "public, max-age=31536000", header.Get("Cache-Control"))
	assert.Equal(t, "gzip", header.Get("Content-Encoding"))
	assert.Equal(t, "public-read", header.Get("X-Amz-Acl"))
	assert.Equal(t, "*", header.Get("If-None-Match"))
	assert.Equal(t, "image data", gunzip(t, body))

	assert.Equal(t, "test-bucket", attrs.Bucket)
	assert.Equal(t, "uploads/x.png", attrs.Name)
	assert.Equal(t, "abc123", attrs.Etag)
	assert.Equal(t, "gzip", attrs.ContentEncoding)
	assert.Equal(t, int64(len(body)), attrs.Size)
}

func TestS3UploadPlain(t *testing.T) {
	var header http.Header
	var body []byte
	store := newTestS3(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))

	src := writeTempFile(t, "notes.txt", "hello")
	_, err := store.Upload(context.Background(), "b", "notes.txt", src, UploadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "hello", string(body))
	assert.Empty(t, header.Get("Content-Encoding"))
	assert.Empty(t, header.Get("X-Amz-Acl"))
	assert.Empty(t, header.Get("If-None-Match"))
}

func TestS3UploadPreconditionFailed(t *testing.T) {
	store := newTestS3(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPreconditionFailed)
		_, _ = w.Write([]byte(`<?xml version="1.0"?><Error><Code>PreconditionFailed</Code><Message>At least one of the pre-conditions you specified did not hold</Message></Error>`))
	}))

	src := writeTempFile(t, "x.png", "data")
	_, err := store.Upload(context.Background(), "b", "x.png", src, UploadOptions{IfNotExists: true})
	assert.ErrorIs(t, err, ErrObjectExists)
}

func TestS3UploadError(t *testing.T) {
	store := newTestS3(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<?xml version="1.0"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`))
	}))

	src := writeTempFile(t, "x.png", "data")
	_, err := store.Upload(context.Background(), "b", "x.png", src, UploadOptions{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrObjectExists)
	assert.Contains(t, err.Error(), "put object")
}

func TestS3UploadMissingSource(t *testing.T) {
	called := false
	store := newTestS3(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	_, err := store.Upload(context.Background(), "b", "x.png", filepath.Join(t.TempDir(), "missing"), UploadOptions{})
	require.Error(t, err)
	assert.False(t, called)
}

func TestS3Delete(t *testing.T) {
	var method, path string
	store := newTestS3(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, store.Delete(context.Background(), "b", "uploads/old.jpg"))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/b/uploads/old.jpg", path)
}

func TestS3DeleteError(t *testing.T) {
	store := newTestS3(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<?xml version="1.0"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`))
	}))

	err := store.Delete(context.Background(), "b", "x.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete object")
}

func TestS3Attrs(t *testing.T) {
	store := newTestS3(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/b/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("ETag", `"etag-1"`)
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Length", "42")
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		w.WriteHeader(http.StatusOK)
	}))

	attrs, err := store.Attrs(context.Background(), "b", "missing.png")
	require.NoError(t, err)
	assert.Nil(t, attrs)

	attrs, err = store.Attrs(context.Background(), "b", "here.png")
	require.NoError(t, err)
	require.NotNil(t, attrs)
	assert.Equal(t, "here.png", attrs.Name)
	assert.Equal(t, "etag-1", attrs.Etag)
	assert.Equal(t, "image/png", attrs.ContentType)
	assert.Equal(t, "gzip", attrs.ContentEncoding)
	assert.Equal(t, int64(42), attrs.Size)
	assert.Equal(t, 2006, attrs.Updated.Year())
}

func TestS3AttrsError(t *testing.T) {
	store := newTestS3(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	attrs, err := store.Attrs(context.Background(), "b", "x.png")
	assert.Nil(t, attrs)
	assert.Error(t, err)
}
