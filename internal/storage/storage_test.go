package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/checksum"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	require.NoError(t, err)
	return fs
}

// runProviderSuite checks the Provider contract against p.
func runProviderSuite(t *testing.T, p Provider) {
	t.Helper()
	ctx := context.Background()

	t.Run("put get", func(t *testing.T) {
		name := NewName("png")
		require.NoError(t, p.Put(ctx, name, strings.NewReader("pixels"), "image/png"))

		obj, err := p.Get(ctx, name)
		require.NoError(t, err)
		defer obj.Body.Close()
		data, err := io.ReadAll(obj.Body)
		require.NoError(t, err)
		assert.Equal(t, "pixels", string(data))
		assert.Equal(t, "image/png", obj.ContentType)
		assert.NotEmpty(t, obj.ETag)
		assert.Equal(t, int64(len("pixels")), obj.Size)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := p.Get(ctx, NewName("txt"))
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("delete idempotent", func(t *testing.T) {
		name := NewName("txt")
		require.NoError(t, p.Put(ctx, name, strings.NewReader("bye"), "text/plain"))
		require.NoError(t, p.Delete(ctx, name))
		require.NoError(t, p.Delete(ctx, name))
		_, err := p.Get(ctx, name)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("rejects unsafe names", func(t *testing.T) {
		for _, name := range []string{"../../etc/passwd", "a/b.png", `..\x.png`, ".meta", ""} {
			assert.Error(t, p.Put(ctx, name, strings.NewReader("x"), ""), name)
			_, err := p.Get(ctx, name)
			assert.ErrorIs(t, err, apperr.ErrNotFound, name)
		}
	})
}

func TestFSProvider(t *testing.T) {
	runProviderSuite(t, tempStore(t))
}

func TestFSETagIsContentDigest(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "a.txt", strings.NewReader("same"), "text/plain"))
	obj, err := s.Get(ctx, "a.txt")
	require.NoError(t, err)
	obj.Body.Close()
	assert.Equal(t, checksum.ETag(checksum.Sum([]byte("same"))), obj.ETag)
}

func TestFSMissingSidecarFallsBack(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "doc.pdf", strings.NewReader("%PDF"), ""))
	require.NoError(t, os.Remove(s.metaPath("doc.pdf")))

	obj, err := s.Get(ctx, "doc.pdf")
	require.NoError(t, err)
	defer obj.Body.Close()
	assert.Equal(t, "application/pdf", obj.ContentType)
	assert.True(t, strings.HasPrefix(obj.ETag, `W/"`), obj.ETag)
}

func TestFSNoLeftoverTempFiles(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "x.md", strings.NewReader("v1"), "text/markdown"))
	require.NoError(t, s.Put(ctx, "x.md", strings.NewReader("v2"), "text/markdown"))

	for _, dir := range []string{s.root, filepath.Join(s.root, metaDir)} {
		matches, _ := filepath.Glob(filepath.Join(dir, ".quire-tmp-*"))
		assert.Empty(t, matches, dir)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "quire-test-*")
	require.NoError(t, err)
	f.Close()
	_, err = NewFS(f.Name())
	assert.Error(t, err)
}

func TestOpenCreatesFSRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	p, err := Open(context.Background(), Config{Driver: DriverFS, FS: FSConfig{Path: dir}})
	require.NoError(t, err)
	assert.NotNil(t, p)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestS3Provider(t *testing.T) {
	endpoint := os.Getenv("QUIRE_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("QUIRE_TEST_S3_ENDPOINT not set")
	}
	p, err := NewS3(context.Background(), S3Config{
		Bucket:          envOr("QUIRE_TEST_S3_BUCKET", "quire"),
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     os.Getenv("QUIRE_TEST_S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("QUIRE_TEST_S3_SECRET_ACCESS_KEY"),
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	runProviderSuite(t, p)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func TestExtension(t *testing.T) {
	cases := map[string]string{
		"x.png":          "png",
		"Photo.JPEG":     "jpeg",
		"archive.tar.gz": "gz",
		"noext":          "noext",
		"trailing.":      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Extension(in), in)
	}
}

func TestExtensionAllowed(t *testing.T) {
	assert.True(t, ExtensionAllowed("png", DefaultAllowedExtensions))
	assert.False(t, ExtensionAllowed("exe", DefaultAllowedExtensions))
	assert.False(t, ExtensionAllowed("", DefaultAllowedExtensions))
}

func TestNewNameUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		n := NewName("png")
		require.False(t, seen[n], "duplicate %s", n)
		require.NoError(t, ValidateName(n))
		seen[n] = true
	}
}
