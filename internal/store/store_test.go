package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open("file::memory:?cache=shared")
	require.NoError(t, err)
	return New(db)
}

func TestUpsertTrackFillsOnlyOnFirstInsert(t *testing.T) {
	s := newTestStore(t)

	t1, err := s.UpsertTrack("cat-1", func(tr *Track) { tr.Title = "One More Time" })
	require.NoError(t, err)
	assert.Equal(t, "One More Time", t1.Title)

	t2, err := s.UpsertTrack("cat-1", func(tr *Track) { tr.Title = "should not overwrite" })
	require.NoError(t, err)
	assert.Equal(t, t1.ID, t2.ID)
	assert.Equal(t, "One More Time", t2.Title)
}

func TestJobLifecycleTransitions(t *testing.T) {
	s := newTestStore(t)

	job, err := s.CreateJob("playlist:abc", AnalysisOptions{MaxTracks: 10})
	require.NoError(t, err)
	assert.Equal(t, JobPending, job.Status)

	require.NoError(t, s.StartJob(job))
	assert.Equal(t, JobProcessing, job.Status)
	assert.NotNil(t, job.StartedAt)

	require.NoError(t, s.CompleteJob(job))
	assert.Equal(t, JobCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)

	got, err := s.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, got.Status)
}

func TestFailJobStampsReason(t *testing.T) {
	s := newTestStore(t)
	job, err := s.CreateJob("playlist:fails", AnalysisOptions{})
	require.NoError(t, err)
	require.NoError(t, s.StartJob(job))

	require.NoError(t, s.FailJob(job, "catalogue unavailable"))
	assert.Equal(t, JobFailed, job.Status)
	assert.Equal(t, "catalogue unavailable", job.ErrorMsg)
}

func TestFindActiveJobByPlaylistRefDedups(t *testing.T) {
	s := newTestStore(t)
	_, err := s.FindActiveJobByPlaylistRef("playlist:none")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	job, err := s.CreateJob("playlist:dup", AnalysisOptions{})
	require.NoError(t, err)

	active, err := s.FindActiveJobByPlaylistRef("playlist:dup")
	require.NoError(t, err)
	assert.Equal(t, job.ID, active.ID)

	require.NoError(t, s.StartJob(job))
	require.NoError(t, s.CompleteJob(job))

	_, err = s.FindActiveJobByPlaylistRef("playlist:dup")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestReplaceTransitionsIsWholesale(t *testing.T) {
	s := newTestStore(t)
	job, err := s.CreateJob("playlist:plan", AnalysisOptions{})
	require.NoError(t, err)

	require.NoError(t, s.ReplaceTransitions(job.ID, []MixTransition{
		{Position: 0, TrackAID: 1, TrackBID: 2, Technique: "crossfade"},
		{Position: 1, TrackAID: 2, TrackBID: 3, Technique: "bass_swap"},
	}))

	ts, err := s.ListTransitions(job.ID)
	require.NoError(t, err)
	assert.Len(t, ts, 2)

	require.NoError(t, s.ReplaceTransitions(job.ID, []MixTransition{
		{Position: 0, TrackAID: 1, TrackBID: 3, Technique: "filter_fade"},
	}))

	ts, err = s.ListTransitions(job.ID)
	require.NoError(t, err)
	require.Len(t, ts, 1)
	assert.Equal(t, "filter_fade", ts[0].Technique)
}
