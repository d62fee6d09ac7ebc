package store

import (
	"errors"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the sqlite database at path and auto-migrates the
// schema, mirroring the magda-api pattern of a single gorm.Open +
// AutoMigrate at startup.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Track{}, &AnalysisJob{}, &MixTransition{}); err != nil {
		return nil, err
	}
	return db, nil
}

// Store wraps a *gorm.DB with the repository operations C6 and the API
// layer need, keeping transaction boundaries out of callers' hands.
type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// UpsertTrack inserts a new Track for catalogueID or returns the existing
// one, filling catalogue metadata only when the row is new (§4.6 sub-
// pipeline step 1).
func (s *Store) UpsertTrack(catalogueID string, fill func(*Track)) (*Track, error) {
	var t Track
	err := s.DB.Where("catalogue_id = ?", catalogueID).First(&t).Error
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	t = Track{CatalogueID: catalogueID, FileSource: FileSourceUnavailable}
	fill(&t)
	if err := s.DB.Create(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) SaveTrack(t *Track) error {
	return s.DB.Save(t).Error
}

func (s *Store) GetTrack(id uint) (*Track, error) {
	var t Track
	if err := s.DB.First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// FindActiveJobByPlaylistRef returns the most recent pending/processing
// job for playlistRef, or (nil, gorm.ErrRecordNotFound) if none is in
// flight — the lookup behind §4.6's submission-time dedup.
func (s *Store) FindActiveJobByPlaylistRef(playlistRef string) (*AnalysisJob, error) {
	var j AnalysisJob
	err := s.DB.Where("playlist_ref = ? AND status IN ?", playlistRef, []JobStatus{JobPending, JobProcessing}).
		Order("created_at desc").First(&j).Error
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateJob inserts a new pending job.
func (s *Store) CreateJob(playlistRef string, opts AnalysisOptions) (*AnalysisJob, error) {
	j := &AnalysisJob{PlaylistRef: playlistRef, Status: JobPending}
	if err := j.SetOptions(opts); err != nil {
		return nil, err
	}
	if err := s.DB.Create(j).Error; err != nil {
		return nil, err
	}
	return j, nil
}

func (s *Store) GetJob(id uint) (*AnalysisJob, error) {
	var j AnalysisJob
	if err := s.DB.First(&j, id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *Store) SaveJob(j *AnalysisJob) error {
	return s.DB.Save(j).Error
}

// StartJob transitions pending -> processing and stamps started_at.
func (s *Store) StartJob(j *AnalysisJob) error {
	now := time.Now()
	j.Status = JobProcessing
	j.StartedAt = &now
	return s.SaveJob(j)
}

// CompleteJob transitions processing -> completed and stamps completed_at.
func (s *Store) CompleteJob(j *AnalysisJob) error {
	now := time.Now()
	j.Status = JobCompleted
	j.CompletedAt = &now
	return s.SaveJob(j)
}

// FailJob transitions processing -> failed with reason, stamping
// completed_at (§4.6: "cancellation moves processing -> failed").
func (s *Store) FailJob(j *AnalysisJob, reason string) error {
	now := time.Now()
	j.Status = JobFailed
	j.ErrorMsg = reason
	j.CompletedAt = &now
	return s.SaveJob(j)
}

// ReplaceTransitions deletes any existing transitions for the job and
// inserts the new set inside a single transaction (the default plan is
// persisted wholesale, never merged).
func (s *Store) ReplaceTransitions(jobID uint, transitions []MixTransition) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", jobID).Delete(&MixTransition{}).Error; err != nil {
			return err
		}
		for i := range transitions {
			transitions[i].JobID = jobID
		}
		if len(transitions) == 0 {
			return nil
		}
		return tx.Create(&transitions).Error
	})
}

func (s *Store) ListTransitions(jobID uint) ([]MixTransition, error) {
	var ts []MixTransition
	err := s.DB.Where("job_id = ?", jobID).Order("position asc").Find(&ts).Error
	return ts, err
}
