// Package acquire implements C5's content-acquisition resolution order
// (§4.5): object store -> local cache -> remote search+download ->
// loudness normalisation -> upload, grounded on the teacher's
// analyzer.go (fileHash/cache path conventions) and downloader.go
// (subprocess download + cleanup-on-failure discipline).
package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/vividhyeok/mixpipeline/internal/objectstore"
	"github.com/vividhyeok/mixpipeline/internal/ratelimit"
	"github.com/vividhyeok/mixpipeline/internal/store"
)

// Result is what the sub-pipeline (§4.6 step) merges back into a Track's
// file pointer fields.
type Result struct {
	Key    string
	Source store.FileSource
	Size   int64
}

// Downloader performs the opaque "remote media search/download" side
// effect of §6: given a search string, it produces a single local audio
// file or an error. Implementations are rate-limited by the caller, not
// by the Downloader itself.
type Downloader interface {
	Download(ctx context.Context, query, destDir string) (path string, err error)
}

// Normaliser runs loudness normalisation over a local file, producing a
// new local file (§4.5, §6). On failure the acquirer keeps the
// un-normalised file and records a warning rather than aborting (§7
// NormalisationFailed).
type Normaliser interface {
	Normalise(ctx context.Context, path, destDir string) (string, error)
}

// Acquirer wires together the object store, local cache, rate limiter and
// remote download+normalise drivers behind the single §4.5 Acquire entry
// point.
type Acquirer struct {
	Store      objectstore.Store
	CacheDir   string
	Limiter    *ratelimit.Limiter
	Downloader Downloader
	Normaliser Normaliser
	Logger     *slog.Logger
}

// New builds an Acquirer, defaulting the logger to slog's default handler
// the way the rest of this service's components do.
func New(os objectstore.Store, cacheDir string, limiter *ratelimit.Limiter, dl Downloader, norm Normaliser) *Acquirer {
	return &Acquirer{
		Store:      os,
		CacheDir:   cacheDir,
		Limiter:    limiter,
		Downloader: dl,
		Normaliser: norm,
		Logger:     slog.Default(),
	}
}

var hostileChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
var underscoreRuns = regexp.MustCompile(`_+`)

// Sanitize strips filesystem-hostile characters, collapses runs of
// underscores, and lowercases the result (§4.5).
func Sanitize(s string) string {
	s = hostileChars.ReplaceAllString(s, "_")
	s = underscoreRuns.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	return strings.ToLower(s)
}

// ObjectKey computes the deterministic object-store key for a (artist,
// title) pair, used for the existence check in step 1 of §4.5.
func ObjectKey(artist, title string) string {
	return fmt.Sprintf("audio/%s/%s.mp3", Sanitize(artist), Sanitize(title))
}

// freshObjectKey computes a uuid-suffixed key for a newly-uploaded file
// (§4.5 "fresh (uuid-suffixed) key"), so concurrent uploads for the same
// (artist, title) never collide (§5).
func freshObjectKey(artist, title string) string {
	return fmt.Sprintf("audio/%s/%s_%s.mp3", Sanitize(artist), Sanitize(title), uuid.NewString()[:8])
}

func (a *Acquirer) localCachePath(artist, title string) string {
	return filepath.Join(a.CacheDir, fmt.Sprintf("%s_%s.mp3", Sanitize(artist), Sanitize(title)))
}

// writeLocalCache copies a freshly acquired file into the local cache, the
// write-through half of the teacher's saveCachedAnalysis
// (backend/analyzer.go): os.MkdirAll the cache dir, then write the file,
// so the next Acquire call for the same (artist, title) hits the cache
// check in Acquire before ever reaching acquireRemote again.
func (a *Acquirer) writeLocalCache(artist, title, srcPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("acquire: read for cache write-through: %w", err)
	}
	dest := a.localCachePath(artist, title)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("acquire: mkdir cache dir: %w", err)
	}
	return os.WriteFile(dest, data, 0o644)
}

// Acquire resolves a track's audio payload per §4.5's resolution order:
// object store, then local cache, then remote download.
// Any failure in step 3 is returned as an error with the temp directory
// already cleaned up; the caller (the orchestrator) marks the Track
// unavailable and continues (§7 AcquisitionFailed).
func (a *Acquirer) Acquire(ctx context.Context, artist, title, catalogueID string) (Result, error) {
	key := ObjectKey(artist, title)

	if a.Store != nil {
		if exists, err := a.Store.Exists(key); err == nil && exists {
			size, _, _ := a.Store.Head(key)
			a.Logger.Debug("acquire: hit object store", "catalogue_id", catalogueID, "key", key)
			return Result{Key: key, Source: store.FileSourceObjectStore, Size: size}, nil
		}
	}

	if localPath := a.localCachePath(artist, title); fileNonEmpty(localPath) {
		info, _ := os.Stat(localPath)
		a.Logger.Debug("acquire: hit local cache", "catalogue_id", catalogueID, "path", localPath)
		return Result{Key: localPath, Source: store.FileSourceLocal, Size: info.Size()}, nil
	}

	return a.acquireRemote(ctx, artist, title, catalogueID, key)
}

func (a *Acquirer) acquireRemote(ctx context.Context, artist, title, catalogueID, deterministicKey string) (Result, error) {
	if a.Limiter != nil {
		if err := a.Limiter.Wait(ctx); err != nil {
			return Result{}, fmt.Errorf("acquire: rate limiter: %w", err)
		}
	}

	tmpDir, err := os.MkdirTemp("", fmt.Sprintf("mixpipeline-%s-*", Sanitize(catalogueID)))
	if err != nil {
		return Result{}, fmt.Errorf("acquire: create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	query := fmt.Sprintf("%s %s", artist, title)
	localPath, err := a.Downloader.Download(ctx, query, tmpDir)
	if err != nil {
		return Result{}, fmt.Errorf("acquire: download %q: %w", query, err)
	}

	finalPath := localPath
	if a.Normaliser != nil {
		normPath, nerr := a.Normaliser.Normalise(ctx, localPath, tmpDir)
		if nerr != nil {
			a.Logger.Warn("acquire: normalisation failed, keeping raw download", "catalogue_id", catalogueID, "error", nerr)
		} else {
			finalPath = normPath
		}
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		return Result{}, fmt.Errorf("acquire: stat downloaded file: %w", err)
	}

	if a.CacheDir != "" {
		if err := a.writeLocalCache(artist, title, finalPath); err != nil {
			a.Logger.Warn("acquire: local cache write-through failed", "catalogue_id", catalogueID, "error", err)
		}
	}

	uploadKey := freshObjectKey(artist, title)
	f, err := os.Open(finalPath)
	if err != nil {
		return Result{}, fmt.Errorf("acquire: open for upload: %w", err)
	}
	defer f.Close()

	if a.Store == nil {
		return Result{}, fmt.Errorf("acquire: no object store configured")
	}
	if err := a.Store.Upload(uploadKey, f, info.Size(), "audio/mpeg"); err != nil {
		return Result{}, fmt.Errorf("acquire: upload %s: %w", uploadKey, err)
	}

	a.Logger.Info("acquire: downloaded and uploaded", "catalogue_id", catalogueID, "key", uploadKey, "size", info.Size())
	return Result{Key: uploadKey, Source: store.FileSourceObjectStore, Size: info.Size()}, nil
}

func fileNonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
