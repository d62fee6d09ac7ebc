package orchestrator

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/vividhyeok/mixpipeline/internal/feature"
	"github.com/vividhyeok/mixpipeline/internal/mixplan"
	"github.com/vividhyeok/mixpipeline/internal/store"
)

// planAndPersist runs C4 over the job's usable tracks and persists the
// default plan's transitions plus the job's result blob (§4.6 step 4).
func (o *Orchestrator) planAndPersist(job *store.AnalysisJob, tracks []*store.Track) error {
	byID := make(map[uint]*store.Track, len(tracks))
	inputs := make([]mixplan.TrackInput, 0, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
		inputs = append(inputs, trackInput(t))
	}

	plans, defaultIdx := mixplan.BuildPlans(inputs, o.Priors)
	if defaultIdx < 0 {
		return fmt.Errorf("fewer than two usable tracks")
	}
	plan := plans[defaultIdx]

	transitions := make([]store.MixTransition, 0, len(plan.Transitions))
	for _, tr := range plan.Transitions {
		mt := store.MixTransition{
			Position:           tr.Position,
			TrackAID:           tr.TrackAID,
			TrackBID:           tr.TrackBID,
			TransitionStart:    round(tr.TransitionStart, 4),
			TransitionDuration: round(tr.TransitionDuration, 4),
			Technique:          string(tr.Technique),
			BPMAdjustment:      round(tr.BPMAdjustment, 3),
			ScoreBPM:           round(tr.Scores.BPM, 3),
			ScoreKey:           round(tr.Scores.Key, 3),
			ScoreEnergy:        round(tr.Scores.Energy, 3),
			ScoreStyle:         round(tr.Scores.Style, 3),
			ScoreVocal:         round(tr.Scores.Vocal, 3),
			ScoreOverall:       round(tr.Scores.Overall, 3),
		}
		a, b := byID[tr.TrackAID], byID[tr.TrackBID]
		_ = mt.SetMetadata(map[string]store.TrackSnapshot{
			"track_a": snapshot(a),
			"track_b": snapshot(b),
		})
		transitions = append(transitions, mt)
	}

	if err := o.Store.ReplaceTransitions(job.ID, transitions); err != nil {
		return fmt.Errorf("persist transitions: %w", err)
	}

	result := store.JobResult{
		TotalDuration: round(plan.TotalDuration, 2),
		TotalTracks:   len(tracks),
		Strategy:      string(plan.Strategy),
		Metadata: map[string]any{
			"candidate_strategies": len(plans),
		},
		PlaylistInfo: map[string]any{
			"catalogue_id":  job.CatalogueID,
			"playlist_name": job.PlaylistName,
		},
	}
	if err := job.SetResult(result); err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return nil
}

// trackInput assembles a mixplan.TrackInput from a persisted Track,
// unmarshalling its analysis block and flagging which optional field
// groups survived analysis (so compat.Score falls back exactly where
// §4.2's "tolerate partial failure" contract says it should).
func trackInput(t *store.Track) mixplan.TrackInput {
	in := mixplan.TrackInput{
		ID:       t.ID,
		Duration: t.Duration,
		BPM:      t.BPM,
	}

	var a feature.Analysis
	if t.AnalysisJSON != "" {
		if err := json.Unmarshal([]byte(t.AnalysisJSON), &a); err == nil {
			if a.Key != nil && a.Key.PitchClass != "" {
				in.Key = a.Key
			}
			in.Energy = a.Energy
			if !a.SubExtractorFailed("sections") {
				in.HasSections = true
				in.IntroEnergy = a.IntroEnergy
				in.OutroEnergy = a.OutroEnergy
			}
			if a.Style != nil && !a.SubExtractorFailed("style") {
				in.HasStyle = true
				in.DominantStyle = a.Style.Dominant
				in.DominantValue = a.Style.AsMap()[a.Style.Dominant]
				in.VocalCentric = a.Style.VocalCentric
				in.HasVocal = true
			}
			if !a.SubExtractorFailed("mix_points") {
				in.HasMixOutPoint = true
				in.MixOutPoint = a.MixOutPoint
			}
		}
	}
	return in
}

func snapshot(t *store.Track) store.TrackSnapshot {
	if t == nil {
		return store.TrackSnapshot{}
	}
	return store.TrackSnapshot{
		TrackID: t.ID,
		Title:   t.Title,
		Artist:  t.Artist,
		BPM:     t.BPM,
		Key:     t.Key,
		Energy:  t.Energy,
	}
}

// round matches §8's round-trip precisions (BPM 2dp, scalars 3dp,
// intervals 4dp) so persisted transitions are bit-stable across a
// marshal/unmarshal cycle.
func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
