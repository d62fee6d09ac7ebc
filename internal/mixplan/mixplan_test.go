package mixplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func tr(id uint, bpm, duration float64) TrackInput {
	return TrackInput{ID: id, BPM: bpm, Duration: duration}
}

func TestOrderByBPMAscending(t *testing.T) {
	// S1: BPMs {124, 92, 140, 108} -> ascending [92, 108, 124, 140].
	tracks := []TrackInput{
		tr(1, 124, 200), tr(2, 92, 200), tr(3, 140, 200), tr(4, 108, 200),
	}
	ordered := orderByBPM(tracks)
	assert.Equal(t, []float64{92, 108, 124, 140}, bpms(ordered))
}

func bpms(in []TrackInput) []float64 {
	out := make([]float64, len(in))
	for i, t := range in {
		out[i] = t.BPM
	}
	return out
}

func TestSynthesizeTransitionsCount(t *testing.T) {
	// S1: four tracks produce three adjacent-pair transitions.
	tracks := orderByBPM([]TrackInput{
		tr(1, 124, 200), tr(2, 92, 200), tr(3, 140, 200), tr(4, 108, 200),
	})
	transitions := synthesizeTransitions(tracks)
	assert.Len(t, transitions, 3)
	for i, tr := range transitions {
		assert.Equal(t, i, tr.Position)
		assert.LessOrEqual(t, tr.TransitionStart+tr.TransitionDuration, 200.0+1e-9)
	}
}

func TestBuildPlansPicksADefault(t *testing.T) {
	tracks := []TrackInput{
		tr(1, 124, 200), tr(2, 92, 200), tr(3, 140, 200), tr(4, 108, 200),
	}
	plans, defaultIdx := BuildPlans(tracks, DefaultStrategyPriors())
	assert.Len(t, plans, 5)
	assert.GreaterOrEqual(t, defaultIdx, 0)
	assert.Less(t, defaultIdx, len(plans))
}

func TestBuildPlansEmptyForSingleTrack(t *testing.T) {
	plans, idx := BuildPlans([]TrackInput{tr(1, 120, 200)}, DefaultStrategyPriors())
	assert.Nil(t, plans)
	assert.Equal(t, -1, idx)
}

func TestOrderByEnergyFlowInterleaves(t *testing.T) {
	tracks := []TrackInput{
		{ID: 1, Energy: 0.1}, {ID: 2, Energy: 0.9},
		{ID: 3, Energy: 0.2}, {ID: 4, Energy: 0.8},
	}
	ordered := orderByEnergyFlow(tracks)
	assert.Len(t, ordered, 4)
	// low half [1, 3] and high half [4, 2] alternate low, high, low, high.
	ids := make([]uint, len(ordered))
	for i, o := range ordered {
		ids[i] = o.ID
	}
	assert.Equal(t, []uint{1, 4, 3, 2}, ids)
}
