// Package orchestrator implements C6: the per-job state machine,
// catalogue resolution, per-track sub-pipeline, planner invocation and
// result persistence of §4.6, scheduled on a bounded worker pool per §5.
// It is the single writer of a job's status/counters/result for the
// duration of that job's run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/vividhyeok/mixpipeline/internal/acquire"
	"github.com/vividhyeok/mixpipeline/internal/apperrors"
	"github.com/vividhyeok/mixpipeline/internal/catalogue"
	"github.com/vividhyeok/mixpipeline/internal/mixplan"
	"github.com/vividhyeok/mixpipeline/internal/store"
	"github.com/vividhyeok/mixpipeline/internal/workerpool"
)

// Orchestrator wires the C1-C5 collaborators behind the C6 job lifecycle.
type Orchestrator struct {
	Store      *store.Store
	Catalogue  catalogue.Provider
	Acquirer   *acquire.Acquirer
	FFmpegPath string
	Pool       *workerpool.Pool
	Priors     mixplan.StrategyPriors
	Logger     *slog.Logger

	mu      sync.Mutex
	cancels map[uint]context.CancelFunc
}

// New builds an Orchestrator ready to accept job submissions.
func New(st *store.Store, cat catalogue.Provider, acq *acquire.Acquirer, ffmpegPath string, pool *workerpool.Pool) *Orchestrator {
	return &Orchestrator{
		Store:      st,
		Catalogue:  cat,
		Acquirer:   acq,
		FFmpegPath: ffmpegPath,
		Pool:       pool,
		Priors:     mixplan.DefaultStrategyPriors(),
		Logger:     slog.Default(),
		cancels:    make(map[uint]context.CancelFunc),
	}
}

// Submit creates (or returns, per §4.6's idempotent dedup) a job for
// playlistRef and schedules it on the worker pool.
func (o *Orchestrator) Submit(playlistRef string, opts store.AnalysisOptions) (*store.AnalysisJob, error) {
	if existing, err := o.Store.FindActiveJobByPlaylistRef(playlistRef); err == nil {
		o.Logger.Info("submit: dedup hit", "playlist_ref", playlistRef, "job_id", existing.ID)
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("orchestrator: dedup lookup: %w", err)
	}

	job, err := o.Store.CreateJob(playlistRef, opts)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: create job: %w", err)
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.cancels[job.ID] = cancel
	o.mu.Unlock()

	o.Pool.Submit(func() {
		defer func() {
			o.mu.Lock()
			delete(o.cancels, job.ID)
			o.mu.Unlock()
		}()
		o.runJob(jobCtx, job)
	})

	return job, nil
}

// Cancel records cancellation intent for jobID (§4.6/§5: cooperative —
// the worker observes it at the next track boundary) and, if a worker is
// currently assigned, signals it via context cancellation.
func (o *Orchestrator) Cancel(jobID uint) error {
	job, err := o.Store.GetJob(jobID)
	if err != nil {
		return fmt.Errorf("orchestrator: cancel: %w", err)
	}
	if job.Status != store.JobPending && job.Status != store.JobProcessing {
		return fmt.Errorf("orchestrator: job %d is not cancellable (status=%s)", jobID, job.Status)
	}

	if err := o.Store.FailJob(job, apperrors.ErrCancelled.Error()); err != nil {
		return fmt.Errorf("orchestrator: cancel: %w", err)
	}

	o.mu.Lock()
	cancel, ok := o.cancels[jobID]
	o.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

// runJob executes the full §4.6 lifecycle for one job. It is the sole
// writer of job.Status/counters/error/result for the lifetime of this
// call; a concurrent Cancel() may also write the terminal failed state,
// at which point runJob must stop touching the row (detected via ctx).
func (o *Orchestrator) runJob(ctx context.Context, job *store.AnalysisJob) {
	defer func() {
		if r := recover(); r != nil {
			o.Logger.Error("runJob: panic", "job_id", job.ID, "panic", r)
			if ctx.Err() == nil {
				_ = o.Store.FailJob(job, fmt.Sprintf("internal error: %v", r))
			}
		}
	}()

	if ctx.Err() != nil {
		return // cancelled while still pending
	}
	if err := o.Store.StartJob(job); err != nil {
		o.Logger.Error("runJob: start", "job_id", job.ID, "error", err)
		return
	}

	catalogueID, name, err := o.Catalogue.ResolvePlaylist(ctx, job.PlaylistRef)
	if err != nil {
		o.fail(ctx, job, fmt.Errorf("%w: %v", apperrors.ErrCatalogueUnavailable, err))
		return
	}
	job.CatalogueID = catalogueID
	job.PlaylistName = name

	tracks, err := o.Catalogue.ListPlaylistTracks(ctx, catalogueID)
	if err != nil {
		o.fail(ctx, job, fmt.Errorf("%w: %v", apperrors.ErrCatalogueUnavailable, err))
		return
	}

	opts := job.Options()
	if opts.MaxTracks > 0 && len(tracks) > opts.MaxTracks {
		tracks = tracks[:opts.MaxTracks]
	}
	job.TotalTracks = len(tracks)
	if ctx.Err() != nil {
		return
	}
	if err := o.Store.SaveJob(job); err != nil {
		o.Logger.Error("runJob: save after resolve", "job_id", job.ID, "error", err)
		return
	}

	analysedTracks := make([]*store.Track, 0, len(tracks))

	for _, tm := range tracks {
		if ctx.Err() != nil {
			o.Logger.Info("runJob: cancelled at track boundary", "job_id", job.ID)
			return
		}

		track, analysed, downloaded, failed := o.subPipeline(ctx, opts, tm)

		if downloaded {
			job.DownloadedCount++
		}
		if analysed {
			job.AnalysedCount++
			analysedTracks = append(analysedTracks, track)
		}
		if failed {
			job.FailedCount++
		}
		if ctx.Err() != nil {
			return
		}
		if err := o.Store.SaveJob(job); err != nil {
			o.Logger.Error("runJob: save counters", "job_id", job.ID, "error", err)
			return
		}
	}

	if ctx.Err() != nil {
		return
	}

	usable := usableTracks(analysedTracks)
	if len(usable) < 2 {
		o.fail(ctx, job, apperrors.ErrPlannerInfeasible)
		return
	}

	if err := o.planAndPersist(job, usable); err != nil {
		o.fail(ctx, job, fmt.Errorf("%w: %v", apperrors.ErrPlannerInfeasible, err))
		return
	}

	if err := o.Store.CompleteJob(job); err != nil {
		o.Logger.Error("runJob: complete", "job_id", job.ID, "error", err)
	}
}

func (o *Orchestrator) fail(ctx context.Context, job *store.AnalysisJob, cause error) {
	if ctx.Err() != nil {
		return // already cancelled; Cancel() owns the terminal write
	}
	o.Logger.Warn("runJob: failing job", "job_id", job.ID, "error", cause)
	if err := o.Store.FailJob(job, cause.Error()); err != nil {
		o.Logger.Error("runJob: fail write", "job_id", job.ID, "error", err)
	}
}

func usableTracks(tracks []*store.Track) []*store.Track {
	out := make([]*store.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.HasUsableFile() && t.AnalyzedAt != nil {
			out = append(out, t)
		}
	}
	return out
}
