// Package feature implements the C2 extractors: tempo/beat grid, key,
// perceptual scalars, style vector, structural sections, mix points, and
// vocal/instrumental intervals, all derived from the internal/signal
// primitives. Every extractor tolerates partial failure: it returns its
// own field(s) or a warning, never aborting the rest of the analysis.
package feature

import "strings"

// BeatGrid is the ordered sequence of detected beat timestamps plus the
// derived aggregates (§3).
type BeatGrid struct {
	Beats             []float64 `json:"beats"`
	Intervals         []float64 `json:"intervals"`
	PerBeatConfidence []float64 `json:"per_beat_confidence"`
	MeanConfidence    float64   `json:"mean_confidence"`
	Regularity        float64   `json:"regularity"`
	MeanInterval      float64   `json:"mean_interval"`
}

// Key holds the detected pitch class, mode and confidence (§4.2.2).
type Key struct {
	PitchClass string  `json:"pitch_class"` // "", "C", "C#", ... ; "" = unknown
	Minor      bool    `json:"minor"`
	Confidence float64 `json:"confidence"`
}

// StyleVector maps the five style axes to [0,1] scores (§4.2.4).
type StyleVector struct {
	BeatDriven           float64 `json:"beat_driven"`
	MelodicFocus         float64 `json:"melodic_focus"`
	AmbientTexture       float64 `json:"ambient_texture"`
	VocalCentric         float64 `json:"vocal_centric"`
	AcousticVsElectronic float64 `json:"acoustic_vs_electronic"`
	Dominant             string  `json:"dominant_style"`
	Confidence           float64 `json:"style_confidence"`
}

// AsMap returns the five axes keyed by name, for argmax/lookup logic shared
// with internal/compat.
func (s StyleVector) AsMap() map[string]float64 {
	return map[string]float64{
		"beat_driven":            s.BeatDriven,
		"melodic_focus":          s.MelodicFocus,
		"ambient_texture":        s.AmbientTexture,
		"vocal_centric":          s.VocalCentric,
		"acoustic_vs_electronic": s.AcousticVsElectronic,
	}
}

// EnergySample is one (t, e) point of a track's energy profile (§3).
type EnergySample struct {
	Time   float64 `json:"t"`
	Energy float64 `json:"e"`
}

// Interval is a non-overlapping (start, end) span with a confidence,
// used for vocal/instrumental regions (§3, §4.2.6).
type Interval struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// MixableSectionType enumerates §3's auxiliary mixable-section kinds.
type MixableSectionType string

const (
	SectionBreakdown MixableSectionType = "breakdown"
	SectionAmbient   MixableSectionType = "ambient"
)

// MixableSection is one auxiliary mixable section (§3, §4.2.5).
type MixableSection struct {
	Type      MixableSectionType `json:"type"`
	Start     float64            `json:"start"`
	End       float64            `json:"end"`
	Energy    float64            `json:"energy"`
	Stability float64            `json:"stability"`
	BeatCount int                `json:"beat_count"`
}

// Analysis is the flat record of every descriptor produced by C2 (§3). All
// fields are optional except BPM/beat grid, which are always present once
// AnalyzedAt is set (duration permitting) — a sub-extractor failure nulls
// only the fields it owns and records a human-readable warning in Warnings.
type Analysis struct {
	Version int `json:"version"`

	BPM           float64 `json:"bpm"`
	Key           *Key    `json:"key,omitempty"`
	KeyConfidence float64 `json:"key_confidence"`

	Energy          float64 `json:"energy"`
	Danceability    float64 `json:"danceability"`
	Valence         float64 `json:"valence"`
	Acousticness    float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness        float64 `json:"liveness"`
	Speechiness     float64 `json:"speechiness"`
	LoudnessDB      float64 `json:"loudness_db"`

	BeatGrid BeatGrid `json:"beat_grid"`

	Style *StyleVector `json:"style,omitempty"`

	IntroEnd    float64 `json:"intro_end"`
	OutroStart  float64 `json:"outro_start"`
	IntroEnergy float64 `json:"intro_energy"`
	OutroEnergy float64 `json:"outro_energy"`

	EnergyProfile []EnergySample `json:"energy_profile"`

	VocalIntervals        []Interval `json:"vocal_intervals"`
	InstrumentalIntervals []Interval `json:"instrumental_intervals"`

	MixInPoint      float64          `json:"mix_in_point"`
	MixOutPoint     float64          `json:"mix_out_point"`
	MixableSections []MixableSection `json:"mixable_sections"`

	// Warnings accumulates one message per sub-extractor that failed, in
	// the order the sub-extractors run (§4.2, §7 ExtractorFailed).
	Warnings []string `json:"warnings,omitempty"`
}

// SubExtractorFailed reports whether the named sub-extractor (the "safe"
// tag passed in extract.go, e.g. "sections", "style", "key") recorded a
// warning — used by callers that need to know whether a field group is
// trustworthy rather than merely present-but-zero.
func (a Analysis) SubExtractorFailed(name string) bool {
	prefix := name + ":"
	for _, w := range a.Warnings {
		if strings.HasPrefix(w, prefix) {
			return true
		}
	}
	return false
}

// AnalysisError joins Warnings into a single string for persistence in the
// Track.analysis_error field (§4.6), or "" if there were none.
func (a Analysis) AnalysisError() string {
	if len(a.Warnings) == 0 {
		return ""
	}
	msg := a.Warnings[0]
	for _, w := range a.Warnings[1:] {
		msg += "; " + w
	}
	return msg
}
