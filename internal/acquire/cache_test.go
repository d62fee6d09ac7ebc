package acquire

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is a minimal objectstore.Store that never has the key, so
// Acquire always falls through to the local cache check / remote path.
type fakeStore struct {
	uploaded map[string][]byte
}

func (f *fakeStore) Exists(key string) (bool, error) { return false, nil }
func (f *fakeStore) Upload(key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if f.uploaded == nil {
		f.uploaded = map[string][]byte{}
	}
	f.uploaded[key] = data
	return nil
}
func (f *fakeStore) Head(key string) (int64, bool, error)   { return 0, false, nil }
func (f *fakeStore) Download(key, destPath string) error    { return os.WriteFile(destPath, f.uploaded[key], 0o644) }
func (f *fakeStore) Delete(key string) error                { return nil }
func (f *fakeStore) PublicURL(key string) string            { return "https://cdn.example/" + key }

type fakeDownloader struct{ content []byte }

func (d fakeDownloader) Download(ctx context.Context, query, destDir string) (string, error) {
	path := filepath.Join(destDir, "downloaded.mp3")
	return path, os.WriteFile(path, d.content, 0o644)
}

type passthroughNormaliser struct{}

func (passthroughNormaliser) Normalise(ctx context.Context, path, destDir string) (string, error) {
	return path, nil
}

func TestAcquireRemoteWritesThroughToLocalCache(t *testing.T) {
	cacheDir := t.TempDir()
	store := &fakeStore{}
	a := New(store, cacheDir, nil, fakeDownloader{content: []byte("audio-bytes")}, passthroughNormaliser{})

	result, err := a.Acquire(context.Background(), "Daft Punk", "One More Time", "cat-1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Key)

	cachePath := a.localCachePath("Daft Punk", "One More Time")
	data, err := os.ReadFile(cachePath)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))
}

func TestAcquireHitsLocalCacheBeforeDownloading(t *testing.T) {
	cacheDir := t.TempDir()
	store := &fakeStore{}
	downloadCalls := 0
	dl := downloaderFunc(func(ctx context.Context, query, destDir string) (string, error) {
		downloadCalls++
		return "", assert.AnError
	})
	a := New(store, cacheDir, nil, dl, nil)

	cachePath := a.localCachePath("Daft Punk", "One More Time")
	require.NoError(t, os.WriteFile(cachePath, []byte("cached"), 0o644))

	result, err := a.Acquire(context.Background(), "Daft Punk", "One More Time", "cat-1")
	require.NoError(t, err)
	assert.Equal(t, cachePath, result.Key)
	assert.Equal(t, 0, downloadCalls)
}

type downloaderFunc func(ctx context.Context, query, destDir string) (string, error)

func (f downloaderFunc) Download(ctx context.Context, query, destDir string) (string, error) {
	return f(ctx, query, destDir)
}
