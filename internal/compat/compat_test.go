package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vividhyeok/mixpipeline/internal/feature"
)

func key(pitch string, minor bool) *feature.Key {
	return &feature.Key{PitchClass: pitch, Minor: minor, Confidence: 1}
}

func TestKeyScoreWheelDistances(t *testing.T) {
	// S3: C/G (distance 1) -> 0.7.
	assert.InDelta(t, 0.7, keyScore(key("C", false), key("G", false)), 1e-9)
	// S3: C/Am (A minor shares C major's wheel position, different mode) -> 0.8.
	assert.InDelta(t, 0.8, keyScore(key("C", false), key("A", true)), 1e-9)
	// S3: C/F# (distance 6) -> 0.2.
	assert.InDelta(t, 0.2, keyScore(key("C", false), key("F#", false)), 1e-9)
}

func TestKeyScoreUnknownRoot(t *testing.T) {
	assert.Equal(t, 0.5, keyScore(nil, key("C", false)))
	assert.Equal(t, 0.5, keyScore(key("", false), key("C", false)))
}

func TestBPMScoreWithinSixPercent(t *testing.T) {
	// 124 vs 130: diff 6, max 130, ratio = 6/130/0.06 ~= 0.77 -> score ~0.23
	s := bpmScore(124, 130)
	assert.Greater(t, s, 0.0)
	assert.Less(t, s, 1.0)
	// identical BPMs score 1.
	assert.InDelta(t, 1.0, bpmScore(128, 128), 1e-9)
	// null BPM scores 0.
	assert.Equal(t, 0.0, bpmScore(0, 120))
}

func TestSelectTechniqueSmoothBlend(t *testing.T) {
	// S4: overall ~0.86 (high), BPM=0.9 >= 0.7 -> smooth_blend, duration 24s.
	s := Scores{BPM: 0.9, Key: 0.9, Energy: 0.7, Style: 1.0, Vocal: 1.0}
	s.Overall = weightBPM*s.BPM + weightKey*s.Key + weightEnergy*s.Energy + weightStyle*s.Style + weightVocal*s.Vocal
	tech, dur := SelectTechnique(s)
	assert.Equal(t, TechniqueSmoothBlend, tech)
	assert.InDelta(t, 24.0, dur, 1e-9)
}

func TestSelectTechniqueQuickCut(t *testing.T) {
	// S4: Energy=0.1 low energy forces quick_cut at 2s, BPM kept below the
	// beatmatch threshold (0.8) so it doesn't preempt this branch.
	s := Scores{BPM: 0.5, Key: 0.5, Energy: 0.1, Style: 0.5, Vocal: 0.5}
	s.Overall = weightBPM*s.BPM + weightKey*s.Key + weightEnergy*s.Energy + weightStyle*s.Style + weightVocal*s.Vocal
	tech, dur := SelectTechnique(s)
	assert.Equal(t, TechniqueQuickCut, tech)
	assert.InDelta(t, 2.0, dur, 1e-9)
}

func TestSelectTechniqueForcesShortDurationOnLowOverall(t *testing.T) {
	s := Scores{BPM: 0.2, Key: 0.2, Energy: 0.5, Style: 0.2, Vocal: 0.2}
	s.Overall = weightBPM*s.BPM + weightKey*s.Key + weightEnergy*s.Energy + weightStyle*s.Style + weightVocal*s.Vocal
	_, dur := SelectTechnique(s)
	assert.InDelta(t, 4.0, dur, 1e-9)
}

func TestScoreIsSymmetricForKeyAndBPM(t *testing.T) {
	a := TrackSnapshot{BPM: 120, Key: key("C", false)}
	b := TrackSnapshot{BPM: 124, Key: key("G", false)}
	sAB := Score(a, b)
	sBA := Score(b, a)
	assert.InDelta(t, sAB.BPM, sBA.BPM, 1e-9)
	assert.InDelta(t, sAB.Key, sBA.Key, 1e-9)
}

func TestBPMAdjustmentSign(t *testing.T) {
	assert.InDelta(t, 10.0, BPMAdjustment(100, 110), 1e-9)
	assert.InDelta(t, -10.0, BPMAdjustment(100, 90), 1e-9)
	assert.Equal(t, 0.0, BPMAdjustment(0, 110))
}
