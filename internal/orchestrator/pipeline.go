package orchestrator

import (
	"context"
	"fmt"
	"os"

	"github.com/vividhyeok/mixpipeline/internal/catalogue"
	"github.com/vividhyeok/mixpipeline/internal/compat"
	"github.com/vividhyeok/mixpipeline/internal/feature"
	"github.com/vividhyeok/mixpipeline/internal/mixplan"
	"github.com/vividhyeok/mixpipeline/internal/signal"
	"github.com/vividhyeok/mixpipeline/internal/store"
)

// subPipeline executes the per-track steps of §4.6: upsert, acquisition
// (skipped if already usable), analysis (skipped per opts.SkipIfAnalysed),
// and reports what the caller should add to the job's counters. It never
// returns an error for a per-track failure — those are non-fatal per §7
// and are folded into the `failed` return instead.
func (o *Orchestrator) subPipeline(ctx context.Context, opts store.AnalysisOptions, tm catalogue.TrackMeta) (track *store.Track, analysed, downloaded, failed bool) {
	track, err := o.Store.UpsertTrack(tm.CatalogueID, func(t *store.Track) {
		t.Title = tm.Title
		t.Artist = tm.Artist
		t.Album = tm.Album
		t.Duration = tm.Duration
		t.Popularity = tm.Popularity
		t.PreviewURL = tm.PreviewURL
	})
	if err != nil {
		o.Logger.Error("subPipeline: upsert", "catalogue_id", tm.CatalogueID, "error", err)
		return nil, false, false, true
	}

	if !track.HasUsableFile() {
		oldSource := track.FileSource
		result, err := o.Acquirer.Acquire(ctx, track.Artist, track.Title, track.CatalogueID)
		if err != nil {
			o.Logger.Warn("subPipeline: acquisition failed", "catalogue_id", track.CatalogueID, "error", err)
			track.FileSource = store.FileSourceUnavailable
			_ = o.Store.SaveTrack(track)
			return track, false, false, true
		}
		track.FileSource = result.Source
		track.FileKey = result.Key
		track.FileSize = result.Size
		if err := o.Store.SaveTrack(track); err != nil {
			o.Logger.Error("subPipeline: save after acquire", "catalogue_id", track.CatalogueID, "error", err)
		}
		downloaded = oldSource != store.FileSourceObjectStore && result.Source == store.FileSourceObjectStore
	}

	if !track.HasUsableFile() {
		return track, false, downloaded, true
	}

	if opts.SkipIfAnalysed && track.AnalyzedAt != nil {
		return track, true, downloaded, false
	}

	localPath, cleanup, err := o.localPathFor(track)
	if err != nil {
		o.Logger.Warn("subPipeline: decode source unavailable", "catalogue_id", track.CatalogueID, "error", err)
		track.AnalysisError = "decode: " + err.Error()
		_ = o.Store.SaveTrack(track)
		return track, false, downloaded, true
	}
	defer cleanup()

	buf, err := signal.Decode(o.FFmpegPath, localPath)
	if err != nil {
		o.Logger.Warn("subPipeline: decode failed", "catalogue_id", track.CatalogueID, "error", err)
		track.AnalysisError = err.Error()
		_ = o.Store.SaveTrack(track)
		return track, false, downloaded, true
	}

	analysis := feature.Extract(buf)
	keyStr, minor := "", false
	if analysis.Key != nil {
		keyStr, minor = analysis.Key.PitchClass, analysis.Key.Minor
	}
	if err := track.SetAnalysis(analysis.Version, analysis.BPM, keyStr, minor, analysis.Energy, analysis.AnalysisError(), analysis); err != nil {
		o.Logger.Error("subPipeline: marshal analysis", "catalogue_id", track.CatalogueID, "error", err)
		return track, false, downloaded, true
	}
	if err := o.Store.SaveTrack(track); err != nil {
		o.Logger.Error("subPipeline: save analysis", "catalogue_id", track.CatalogueID, "error", err)
		return track, false, downloaded, true
	}

	return track, true, downloaded, false
}

// localPathFor returns a local filesystem path for the track's audio,
// downloading from the object store to a temp file first when the
// current file pointer lives there (§9 open question: S3-resident
// analysis proceeds symmetrically — download to temp, then the identical
// C2 pipeline runs, with the temp file removed on every exit path).
func (o *Orchestrator) localPathFor(t *store.Track) (path string, cleanup func(), err error) {
	noop := func() {}
	if t.FileSource == store.FileSourceLocal || t.FileSource == store.FileSourceRemoteVideo {
		return t.FileKey, noop, nil
	}

	tmp, err := os.CreateTemp("", "mixpipeline-analyze-*.mp3")
	if err != nil {
		return "", noop, err
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := o.Acquirer.Store.Download(t.FileKey, tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", noop, err
	}

	return tmpPath, func() { os.Remove(tmpPath) }, nil
}

// RenderTransitionPreview resolves the two tracks of a persisted
// MixTransition to local files and renders a short preview via
// mixplan.RenderPreview (§6 "Emitted plan" downstream consumer). The
// returned path lives under the acquirer's cache dir under a fresh,
// randomly suffixed name on every call; callers are responsible for it once
// rendered (the API layer streams it back and does not remove it).
func (o *Orchestrator) RenderTransitionPreview(mt *store.MixTransition) (string, error) {
	trackA, err := o.Store.GetTrack(mt.TrackAID)
	if err != nil {
		return "", fmt.Errorf("orchestrator: preview: load track A: %w", err)
	}
	trackB, err := o.Store.GetTrack(mt.TrackBID)
	if err != nil {
		return "", fmt.Errorf("orchestrator: preview: load track B: %w", err)
	}

	pathA, cleanupA, err := o.localPathFor(trackA)
	if err != nil {
		return "", fmt.Errorf("orchestrator: preview: resolve track A: %w", err)
	}
	defer cleanupA()

	pathB, cleanupB, err := o.localPathFor(trackB)
	if err != nil {
		return "", fmt.Errorf("orchestrator: preview: resolve track B: %w", err)
	}
	defer cleanupB()

	tr := mixplan.Transition{
		Position:           mt.Position,
		TrackAID:           mt.TrackAID,
		TrackBID:           mt.TrackBID,
		TransitionStart:    mt.TransitionStart,
		TransitionDuration: mt.TransitionDuration,
		Technique:          compat.Technique(mt.Technique),
		BPMAdjustment:      mt.BPMAdjustment,
	}

	out, err := mixplan.RenderPreview(o.FFmpegPath, pathA, pathB, tr, o.Acquirer.CacheDir)
	if err != nil {
		return "", fmt.Errorf("orchestrator: preview: render: %w", err)
	}
	return out, nil
}
