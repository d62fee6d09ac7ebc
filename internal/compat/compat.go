// Package compat implements the C3 pairwise compatibility scorer: five
// sub-scores, a weighted overall, technique selection and transition
// duration, adapted from the teacher's planner.go (camelotDistance,
// selectTransitionType) but restructured to the exact formulas of §4.3.
package compat

import (
	"math"

	"github.com/vividhyeok/mixpipeline/internal/feature"
)

// TrackSnapshot bundles the fields C3 reads from a Track/Analysis pair —
// callers assemble it once per track rather than passing raw models in.
type TrackSnapshot struct {
	BPM           float64
	Key           *feature.Key
	Energy        float64
	IntroEnergy   float64
	OutroEnergy   float64
	HasSections   bool // true if intro/outro energy fields are populated
	DominantStyle string
	HasStyle      bool
	VocalCentric  float64
	HasVocal      bool
}

// Scores holds the five sub-scores and overall for a (A, B) pair (§4.3).
type Scores struct {
	BPM     float64
	Key     float64
	Energy  float64
	Style   float64
	Vocal   float64
	Overall float64
}

const (
	weightBPM    = 0.25
	weightKey    = 0.20
	weightEnergy = 0.30
	weightStyle  = 0.15
	weightVocal  = 0.10
)

// chromaticIndex maps a pitch-class name to its semitone offset from C.
var chromaticIndex = map[string]int{
	"C": 0, "C#": 1, "Db": 1, "D": 2, "D#": 3, "Eb": 3, "E": 4,
	"F": 5, "F#": 6, "Gb": 6, "G": 7, "G#": 8, "Ab": 8,
	"A": 9, "A#": 10, "Bb": 10, "B": 11,
}

// rootPosition maps a key's tonic to its position on the circle of fifths
// (C=0, G=1, D=2, ...), treating a minor key as sharing its relative
// major's position (the Camelot-wheel convention the teacher's camelotMap
// follows) — so C major and A minor both land at position 0.
func rootPosition(pitchClass string, minor bool) (int, bool) {
	semitone, ok := chromaticIndex[pitchClass]
	if !ok {
		return 0, false
	}
	if minor {
		semitone = (semitone + 3) % 12
	}
	return (7 * semitone) % 12, true
}

// Score computes the five sub-scores and overall compatibility for an
// ordered pair (a, b) per §4.3.
func Score(a, b TrackSnapshot) Scores {
	s := Scores{
		BPM:    bpmScore(a.BPM, b.BPM),
		Key:    keyScore(a.Key, b.Key),
		Energy: energyScore(a, b),
		Style:  styleScore(a, b),
		Vocal:  vocalScore(a, b),
	}
	s.Overall = weightBPM*s.BPM + weightKey*s.Key + weightEnergy*s.Energy +
		weightStyle*s.Style + weightVocal*s.Vocal
	return s
}

// bpmScore: 1 - min(|bpmA-bpmB|/max(bpmA,bpmB)/0.06, 1). Nulls -> 0.
func bpmScore(bpmA, bpmB float64) float64 {
	if bpmA <= 0 || bpmB <= 0 {
		return 0
	}
	maxBPM := math.Max(bpmA, bpmB)
	diff := math.Abs(bpmA - bpmB)
	ratio := diff / maxBPM / 0.06
	return 1 - math.Min(ratio, 1)
}

// keyScore implements the circle-of-fifths distance table of §4.3. Unknown
// roots score 0.5.
func keyScore(a, b *feature.Key) float64 {
	if a == nil || b == nil || a.PitchClass == "" || b.PitchClass == "" {
		return 0.5
	}

	posA, okA := rootPosition(a.PitchClass, a.Minor)
	posB, okB := rootPosition(b.PitchClass, b.Minor)
	if !okA || !okB {
		return 0.5
	}

	if posA == posB {
		if a.Minor == b.Minor {
			return 1
		}
		return 0.8 // same root, different mode
	}

	d := posA - posB
	if d < 0 {
		d = -d
	}
	if d > 6 {
		d = 12 - d
	}

	switch d {
	case 1:
		return 0.7
	case 7: // unreachable given folding above but kept for table fidelity
		return 0.6
	case 2:
		return 0.4
	default:
		return 0.2
	}
}

// energyScore uses outro(A)/intro(B) when available, falling back to the
// plain energy scalar (§4.3).
func energyScore(a, b TrackSnapshot) float64 {
	outA, inB := a.Energy, b.Energy
	if a.HasSections {
		outA = a.OutroEnergy
	}
	if b.HasSections {
		inB = b.IntroEnergy
	}
	return 1 - math.Abs(outA-inB)
}

var allowedStylePairs = map[[2]string]bool{
	{"beat_driven", "electronic"}:        true,
	{"electronic", "beat_driven"}:        true,
	{"beat_driven", "melodic_focus"}:     true,
	{"melodic_focus", "beat_driven"}:     true,
	{"melodic_focus", "acoustic"}:        true,
	{"acoustic", "melodic_focus"}:        true,
	{"ambient_texture", "melodic_focus"}: true,
	{"melodic_focus", "ambient_texture"}: true,
}

func styleScore(a, b TrackSnapshot) float64 {
	if !a.HasStyle || !b.HasStyle {
		return 0.5
	}
	if a.DominantStyle == b.DominantStyle {
		return 1
	}
	if allowedStylePairs[[2]string{a.DominantStyle, b.DominantStyle}] {
		return 0.7
	}
	return 0.3
}

func vocalScore(a, b TrackSnapshot) float64 {
	if !a.HasVocal || !b.HasVocal {
		return 0.3
	}
	if a.VocalCentric > 0.7 && b.VocalCentric > 0.7 {
		return 0.3
	}
	return math.Max(0.3, 1-math.Abs(a.VocalCentric-b.VocalCentric))
}

// BPMAdjustment returns the signed percent tempo change from A to B (§4.3).
func BPMAdjustment(bpmA, bpmB float64) float64 {
	if bpmA <= 0 {
		return 0
	}
	return 100 * (bpmB - bpmA) / bpmA
}

// Technique enumerates §3's transition styles.
type Technique string

const (
	TechniqueCrossfade   Technique = "crossfade"
	TechniqueSmoothBlend Technique = "smooth_blend"
	TechniqueQuickCut    Technique = "quick_cut"
	TechniqueBeatmatch   Technique = "beatmatch"
	TechniqueCreative    Technique = "creative"
)

const defaultTransitionDuration = 16.0

// SelectTechnique applies the deterministic first-match rule of §4.3 and
// returns the technique plus its transition duration.
func SelectTechnique(s Scores) (Technique, float64) {
	duration := defaultTransitionDuration

	var tech Technique
	switch {
	case s.Overall >= 0.8 && s.BPM >= 0.7:
		tech = TechniqueSmoothBlend
		duration *= 1.5
	case s.BPM >= 0.8:
		tech = TechniqueBeatmatch
	case s.Energy < 0.3:
		tech = TechniqueQuickCut
		duration = 2
	case s.Overall < 0.4:
		tech = TechniqueCreative
	default:
		tech = TechniqueCrossfade
	}

	if s.Overall < 0.3 {
		duration = 4
	}

	return tech, duration
}
