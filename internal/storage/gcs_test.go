package storage

import (
	"context"
	"testing"

	gcs "cloud.google.com/go/storage"
	"github.com/fsouza/fake-gcs-server/fakestorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGCS(t *testing.T, objects ...fakestorage.Object) (*GCS, *fakestorage.Server) {
	t.Helper()
	server, err := fakestorage.NewServerWithOptions(fakestorage.Options{
		NoListener:     true,
		InitialObjects: objects,
	})
	require.NoError(t, err)
	t.Cleanup(server.Stop)

	return NewGCSFromClient(server.Client(), "test-project"), server
}

func TestGCSUpload(t *testing.T) {
	g, server := newTestGCS(t)
	server.CreateBucketWithOpts(fakestorage.CreateBucketOpts{Name: "media"})

	src := writeTempFile(t, "x.png", "image data")
	attrs, err := g.Upload(context.Background(), "media", "uploads/x.png", src, UploadOptions{
		ContentType:  "image/png",
		CacheControl: "public, max-age=31536000",
	})
	require.NoError(t, err)
	require.NotNil(t, attrs)
	assert.Equal(t, "media", attrs.Bucket)
	assert.Equal(t, "uploads/x.png", attrs.Name)
	assert.Equal(t, "image/png", attrs.ContentType)

	obj, err := server.GetObject("media", "uploads/x.png")
	require.NoError(t, err)
	assert.Equal(t, "image data", string(obj.Content))
}

func TestGCSUploadGzip(t *testing.T) {
	g, server := newTestGCS(t)
	server.CreateBucketWithOpts(fakestorage.CreateBucketOpts{Name: "media"})

	src := writeTempFile(t, "notes.txt", "some text worth compressing")
	attrs, err := g.Upload(context.Background(), "media", "notes.txt", src, UploadOptions{
		ContentType: "text/plain",
		Gzip:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, "gzip", attrs.ContentEncoding)

	obj, err := server.GetObject("media", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "gzip", obj.ContentEncoding)
	assert.Equal(t, "some text worth compressing", gunzip(t, obj.Content))
}

func TestGCSUploadPublic(t *testing.T) {
	g, server := newTestGCS(t)
	server.CreateBucketWithOpts(fakestorage.CreateBucketOpts{Name: "media"})

	src := writeTempFile(t, "x.png", "data")
	_, err := g.Upload(context.Background(), "media", "x.png", src, UploadOptions{Public: true})
	require.NoError(t, err)

	obj, err := server.GetObject("media", "x.png")
	require.NoError(t, err)
	assert.Contains(t, obj.ACL, gcs.ACLRule{Entity: gcs.AllUsers, Role: gcs.RoleReader})
}

func TestGCSUploadIfNotExists(t *testing.T) {
	g, server := newTestGCS(t, fakestorage.Object{
		ObjectAttrs: fakestorage.ObjectAttrs{BucketName: "media", Name: "taken.png"},
		Content:     []byte("original"),
	})
	ctx := context.Background()
	src := writeTempFile(t, "x.png", "replacement")

	_, err := g.Upload(ctx, "media", "taken.png", src, UploadOptions{IfNotExists: true})
	assert.ErrorIs(t, err, ErrObjectExists)

	obj, err := server.GetObject("media", "taken.png")
	require.NoError(t, err)
	assert.Equal(t, "original", string(obj.Content))

	attrs, err := g.Upload(ctx, "media", "free.png", src, UploadOptions{IfNotExists: true})
	require.NoError(t, err)
	assert.Equal(t, "free.png", attrs.Name)
}

func TestGCSUploadMissingSource(t *testing.T) {
	g, _ := newTestGCS(t)

	_, err := g.Upload(context.Background(), "media", "x.png", "/nonexistent/source", UploadOptions{})
	assert.Error(t, err)
}

func TestGCSAttrs(t *testing.T) {
	g, _ := newTestGCS(t, fakestorage.Object{
		ObjectAttrs: fakestorage.ObjectAttrs{
			BucketName:  "media",
			Name:        "here.png",
			ContentType: "image/png",
		},
		Content: []byte("pixels"),
	})

	attrs, err := g.Attrs(context.Background(), "media", "missing.png")
	require.NoError(t, err)
	assert.Nil(t, attrs)

	attrs, err = g.Attrs(context.Background(), "media", "here.png")
	require.NoError(t, err)
	require.NotNil(t, attrs)
	assert.Equal(t, "here.png", attrs.Name)
	assert.Equal(t, "image/png", attrs.ContentType)
	assert.Equal(t, int64(len("pixels")), attrs.Size)
}

func TestGCSDelete(t *testing.T) {
	g, _ := newTestGCS(t, fakestorage.Object{
		ObjectAttrs: fakestorage.ObjectAttrs{BucketName: "media", Name: "old.png"},
		Content:     []byte("x"),
	})
	ctx := context.Background()

	require.NoError(t, g.Delete(ctx, "media", "old.png"))

	attrs, err := g.Attrs(ctx, "media", "old.png")
	require.NoError(t, err)
	assert.Nil(t, attrs)

	assert.Error(t, g.Delete(ctx, "media", "old.png"))
}

func TestGCSEnsureBucket(t *testing.T) {
	g, _ := newTestGCS(t)
	ctx := context.Background()

	require.NoError(t, g.EnsureBucket(ctx, "fresh"))
	_, err := g.client.Bucket("fresh").Attrs(ctx)
	require.NoError(t, err)

	// Second call sees the existing bucket.
	require.NoError(t, g.EnsureBucket(ctx, "fresh"))
}

func TestNewProviderUnknownDriver(t *testing.T) {
	_, err := NewProvider(context.Background(), ProviderConfig{Driver: "ftp"})
	assert.Error(t, err)
}
