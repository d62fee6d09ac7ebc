package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vividhyeok/mixpipeline/internal/orchestrator"
	"github.com/vividhyeok/mixpipeline/internal/store"
)

// JobsHandler exposes the AnalysisJob lifecycle (§4.6) over HTTP.
type JobsHandler struct {
	Orchestrator *orchestrator.Orchestrator
	Store        *store.Store
	Logger       *slog.Logger
}

func NewJobsHandler(o *orchestrator.Orchestrator, st *store.Store, logger *slog.Logger) *JobsHandler {
	return &JobsHandler{Orchestrator: o, Store: st, Logger: logger}
}

type submitJobRequest struct {
	PlaylistRef     string `json:"playlist_ref" binding:"required"`
	MaxTracks       int    `json:"max_tracks"`
	SkipIfAnalysed  bool   `json:"skip_if_analysed"`
	AutoFetch       bool   `json:"auto_fetch"`
	DownloadTimeout int    `json:"download_timeout_sec"`
}

type jobResponse struct {
	ID              uint            `json:"id"`
	PlaylistRef     string          `json:"playlist_ref"`
	CatalogueID     string          `json:"catalogue_id,omitempty"`
	PlaylistName    string          `json:"playlist_name,omitempty"`
	Status          store.JobStatus `json:"status"`
	Progress        float64         `json:"progress_percentage"`
	TotalTracks     int             `json:"total_tracks"`
	AnalysedCount   int             `json:"analysed_count"`
	DownloadedCount int             `json:"downloaded_count"`
	FailedCount     int             `json:"failed_count"`
	Error           string          `json:"error,omitempty"`
	Result          *store.JobResult `json:"result,omitempty"`
}

func toJobResponse(j *store.AnalysisJob) jobResponse {
	resp := jobResponse{
		ID:              j.ID,
		PlaylistRef:     j.PlaylistRef,
		CatalogueID:     j.CatalogueID,
		PlaylistName:    j.PlaylistName,
		Status:          j.Status,
		Progress:        j.ProgressPercentage(),
		TotalTracks:     j.TotalTracks,
		AnalysedCount:   j.AnalysedCount,
		DownloadedCount: j.DownloadedCount,
		FailedCount:     j.FailedCount,
		Error:           j.ErrorMsg,
	}
	if j.Status == store.JobCompleted {
		r := j.Result()
		resp.Result = &r
	}
	return resp
}

// SubmitJob handles POST /jobs: creates (or reuses, per §4.6 dedup) an
// AnalysisJob for a playlist reference and schedules it on the worker pool.
func (h *JobsHandler) SubmitJob(c *gin.Context) {
	var req submitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := store.AnalysisOptions{
		MaxTracks:       req.MaxTracks,
		SkipIfAnalysed:  req.SkipIfAnalysed,
		AutoFetch:       req.AutoFetch,
		DownloadTimeout: req.DownloadTimeout,
	}

	job, err := h.Orchestrator.Submit(req.PlaylistRef, opts)
	if err != nil {
		h.Logger.Error("submit job", "playlist_ref", req.PlaylistRef, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, toJobResponse(job))
}

// GetJob handles GET /jobs/:id: current status, progress and (once
// completed) the result summary.
func (h *JobsHandler) GetJob(c *gin.Context) {
	id, err := jobIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.Store.GetJob(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, toJobResponse(job))
}

// CancelJob handles POST /jobs/:id/cancel (§4.6/§5 cooperative cancel).
func (h *JobsHandler) CancelJob(c *gin.Context) {
	id, err := jobIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Orchestrator.Cancel(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelling"})
}

type transitionResponse struct {
	Position           int            `json:"position"`
	TrackAID           uint           `json:"track_a_id"`
	TrackBID           uint           `json:"track_b_id"`
	TransitionStart    float64        `json:"transition_start"`
	TransitionDuration float64        `json:"transition_duration"`
	Technique          string         `json:"technique"`
	BPMAdjustment      float64        `json:"bpm_adjustment"`
	Scores             transitionScores `json:"scores"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

type transitionScores struct {
	BPM     float64 `json:"bpm"`
	Key     float64 `json:"key"`
	Energy  float64 `json:"energy"`
	Style   float64 `json:"style"`
	Vocal   float64 `json:"vocal"`
	Overall float64 `json:"overall"`
}

// GetPlan handles GET /jobs/:id/plan: the job's default plan, rendered as
// its ordered transitions plus the overall result summary.
func (h *JobsHandler) GetPlan(c *gin.Context) {
	id, err := jobIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.Store.GetJob(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if job.Status != store.JobCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "job has no plan yet", "status": job.Status})
		return
	}

	transitions, err := h.Store.ListTransitions(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]transitionResponse, 0, len(transitions))
	for _, t := range transitions {
		out = append(out, transitionResponse{
			Position:           t.Position,
			TrackAID:           t.TrackAID,
			TrackBID:           t.TrackBID,
			TransitionStart:    t.TransitionStart,
			TransitionDuration: t.TransitionDuration,
			Technique:          t.Technique,
			BPMAdjustment:      t.BPMAdjustment,
			Scores: transitionScores{
				BPM:     t.ScoreBPM,
				Key:     t.ScoreKey,
				Energy:  t.ScoreEnergy,
				Style:   t.ScoreStyle,
				Vocal:   t.ScoreVocal,
				Overall: t.ScoreOverall,
			},
			Metadata: t.Metadata(),
		})
	}

	result := job.Result()
	c.JSON(http.StatusOK, gin.H{
		"job_id":      job.ID,
		"result":      result,
		"transitions": out,
	})
}

// GetPlanPreview handles GET /jobs/:id/plan/preview?position=N: renders
// and streams back a short audio preview of one transition in the job's
// plan, the HTTP-reachable consumer of RenderPreview (§6 "Emitted plan").
func (h *JobsHandler) GetPlanPreview(c *gin.Context) {
	id, err := jobIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.Store.GetJob(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if job.Status != store.JobCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "job has no plan yet", "status": job.Status})
		return
	}

	position, err := strconv.Atoi(c.DefaultQuery("position", "0"))
	if err != nil || position < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid position"})
		return
	}

	transitions, err := h.Store.ListTransitions(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if position >= len(transitions) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no transition at that position"})
		return
	}

	path, err := h.Orchestrator.RenderTransitionPreview(&transitions[position])
	if err != nil {
		h.Logger.Error("render preview", "job_id", id, "position", position, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.File(path)
}

func jobIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, errors.New("invalid job id")
	}
	return uint(id), nil
}
