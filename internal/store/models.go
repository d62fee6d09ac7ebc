// Package store holds the gorm-backed persistence models and repository
// functions for Track, AnalysisJob and MixTransition (§3), grounded on the
// magda-api models package's gorm conventions.
package store

import (
	"encoding/json"
	"math"
	"time"

	"gorm.io/gorm"
)

// FileSource tags where a Track's audio payload currently lives (§3).
type FileSource string

const (
	FileSourceLocal       FileSource = "local"
	FileSourceRemoteVideo FileSource = "remote-video"
	FileSourceObjectStore FileSource = "object-store"
	FileSourceUnavailable FileSource = "unavailable"
)

// JobStatus enumerates the AnalysisJob state machine (§4.6).
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Track is the catalogue-identity-keyed audio record (§3). Analysis fields
// are stored as a JSON blob (AnalysisJSON) rather than normalised columns,
// since the block is versioned and fully replaced on re-analysis — no
// partial-merge semantics to enforce at the column level.
type Track struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CatalogueID string  `gorm:"uniqueIndex;not null" json:"catalogue_id"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album"`
	Duration    float64 `json:"duration"`
	Popularity  int     `json:"popularity"`
	PreviewURL  string  `json:"preview_url,omitempty"`

	FileSource FileSource `gorm:"default:unavailable" json:"file_source"`
	FileKey    string     `json:"file_key,omitempty"` // object-store key or local path
	FileSize   int64      `json:"file_size"`

	AnalysisVersion int        `json:"analysis_version"`
	AnalyzedAt      *time.Time `json:"analyzed_at,omitempty"`
	AnalysisJSON    string     `gorm:"type:text" json:"-"`
	AnalysisError   string     `json:"analysis_error,omitempty"`

	// Flattened scalars duplicated from AnalysisJSON for fast query access
	// (the compatibility scorer and mix planner read these without an
	// unmarshal on every pairwise comparison).
	BPM    float64 `json:"bpm"`
	Key    string  `json:"key,omitempty"`
	Minor  bool    `json:"minor"`
	Energy float64 `json:"energy"`
}

// HasUsableFile reports whether the track's file pointer can be read
// (§3 invariant: file_source=unavailable implies no usable pointer).
func (t *Track) HasUsableFile() bool {
	return t.FileSource != FileSourceUnavailable && t.FileKey != ""
}

// SetAnalysis marshals an arbitrary analysis payload into AnalysisJSON and
// stamps the flattened query columns, replacing any prior analysis in full.
func (t *Track) SetAnalysis(version int, bpm float64, key string, minor bool, energy float64, analysisErr string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	now := time.Now()
	t.AnalysisVersion = version
	t.AnalyzedAt = &now
	t.AnalysisJSON = string(data)
	t.AnalysisError = analysisErr
	t.BPM = bpm
	t.Key = key
	t.Minor = minor
	t.Energy = energy
	return nil
}

// AnalysisOptions is the per-job override bundle (§3 AnalysisJob.options).
type AnalysisOptions struct {
	MaxTracks       int  `json:"max_tracks"`
	SkipIfAnalysed  bool `json:"skip_if_analysed"`
	AutoFetch       bool `json:"auto_fetch"`
	DownloadTimeout int  `json:"download_timeout_sec"`
}

// AnalysisJob is the orchestration unit of work (§3, §4.6).
type AnalysisJob struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	PlaylistRef  string    `gorm:"not null" json:"playlist_ref"`
	CatalogueID  string    `json:"catalogue_id"`
	PlaylistName string    `json:"playlist_name"`
	Status       JobStatus `gorm:"default:pending;index" json:"status"`

	TotalTracks     int `json:"total_tracks"`
	AnalysedCount   int `json:"analysed_count"`
	DownloadedCount int `json:"downloaded_count"`
	FailedCount     int `json:"failed_count"`

	OptionsJSON string `gorm:"type:text" json:"-"`
	ErrorMsg    string `json:"error,omitempty"`
	ResultJSON  string `gorm:"type:text" json:"-"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Transitions []MixTransition `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"-"`
}

// Options unmarshals the job's stored option bundle, applying defaults for
// zero-value fields.
func (j *AnalysisJob) Options() AnalysisOptions {
	var o AnalysisOptions
	if j.OptionsJSON != "" {
		_ = json.Unmarshal([]byte(j.OptionsJSON), &o)
	}
	if o.MaxTracks <= 0 {
		o.MaxTracks = 200
	}
	if o.DownloadTimeout <= 0 {
		o.DownloadTimeout = 120
	}
	return o
}

// SetOptions marshals and stores the option bundle.
func (j *AnalysisJob) SetOptions(o AnalysisOptions) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	j.OptionsJSON = string(data)
	return nil
}

// SetResult marshals the completed job's mix summary into ResultJSON.
func (j *AnalysisJob) SetResult(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	j.ResultJSON = string(data)
	return nil
}

// Result unmarshals the job's stored result blob, or returns the zero
// value if the job hasn't produced one yet.
func (j *AnalysisJob) Result() JobResult {
	var r JobResult
	if j.ResultJSON != "" {
		_ = json.Unmarshal([]byte(j.ResultJSON), &r)
	}
	return r
}

// JobResult is the AnalysisJob's result blob (§3: "total duration,
// metadata, playlist info"), set once the default plan is chosen.
type JobResult struct {
	TotalDuration float64        `json:"total_duration"`
	TotalTracks   int            `json:"total_tracks"`
	Strategy      string         `json:"strategy"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	PlaylistInfo  map[string]any `json:"playlist_info,omitempty"`
}

// ProgressPercentage implements §4.6's progress contract: 100 once
// completed, 0 once failed, otherwise the analysed fraction capped at 99
// so a client never sees 100% before the result blob is actually written.
func (j *AnalysisJob) ProgressPercentage() float64 {
	switch j.Status {
	case JobCompleted:
		return 100
	case JobFailed:
		return 0
	default:
		if j.TotalTracks <= 0 {
			return 0
		}
		pct := 100 * float64(j.AnalysedCount) / float64(j.TotalTracks)
		if pct > 99 {
			pct = 99
		}
		return math.Round(pct*10) / 10
	}
}

// MixTransition is one adjacent-pair transition within a job's default plan
// (§3). Position is dense 0..N-1 within the owning job.
type MixTransition struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	JobID    uint `gorm:"not null;index" json:"job_id"`
	Position int  `gorm:"not null" json:"position"`

	TrackAID uint `gorm:"not null" json:"track_a_id"`
	TrackBID uint `gorm:"not null" json:"track_b_id"`

	TransitionStart    float64 `json:"transition_start"`
	TransitionDuration float64 `json:"transition_duration"`
	Technique          string  `json:"technique"`
	BPMAdjustment      float64 `json:"bpm_adjustment"`

	ScoreBPM     float64 `json:"score_bpm"`
	ScoreKey     float64 `json:"score_key"`
	ScoreEnergy  float64 `json:"score_energy"`
	ScoreStyle   float64 `json:"score_style"`
	ScoreVocal   float64 `json:"score_vocal"`
	ScoreOverall float64 `json:"score_overall"`

	MetadataJSON string `gorm:"type:text" json:"-"`
}

// SetMetadata marshals the free-form per-track snapshot (§3) into
// MetadataJSON.
func (m *MixTransition) SetMetadata(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	m.MetadataJSON = string(data)
	return nil
}

// Metadata unmarshals the transition's free-form per-track snapshot.
func (m *MixTransition) Metadata() map[string]any {
	var v map[string]any
	if m.MetadataJSON != "" {
		_ = json.Unmarshal([]byte(m.MetadataJSON), &v)
	}
	return v
}

// TrackSnapshot is the per-track key/bpm/energy snapshot embedded in a
// MixTransition's metadata at synthesis time (§3), so a later repeated
// re-analysis of a Track never silently reshapes a historical transition.
type TrackSnapshot struct {
	TrackID uint    `json:"track_id"`
	Title   string  `json:"title"`
	Artist  string  `json:"artist"`
	BPM     float64 `json:"bpm"`
	Key     string  `json:"key,omitempty"`
	Energy  float64 `json:"energy"`
}
