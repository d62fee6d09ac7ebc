package feature

import (
	"math"
	"sort"

	"github.com/vividhyeok/mixpipeline/internal/signal"
)

// StyleInputs bundles the primitives ComputeStyle needs (§4.2.4).
type StyleInputs struct {
	Regularity       float64
	MeanOnset        float64
	ChromaVariance   float64
	CentroidVariance float64
	MeanBandwidth    float64
	VocalEnergyRatio float64
	MFCCVocalScore   float64
	Acousticness     float64 // reuse of §4.2.3 acousticness
}

// ComputeStyle evaluates the five style axes and picks the dominant one
// (§4.2.4). dominant_style/style_confidence are argmax/(top-second).
func ComputeStyle(in StyleInputs) StyleVector {
	beatDriven := 0.6*signal.Clamp(in.Regularity, 0, 1) + 0.4*signal.Clamp(2*in.MeanOnset, 0, 1)
	beatDriven = signal.Clamp(beatDriven, 0, 1)

	melodicFocus := 0.5*signal.Clamp(in.ChromaVariance*20, 0, 1) + 0.5*signal.Clamp(in.CentroidVariance/500000, 0, 1)
	melodicFocus = signal.Clamp(melodicFocus, 0, 1)

	ambientTexture := 0.6*(1-signal.Clamp(3*in.MeanOnset, 0, 1)) + 0.4*signal.Clamp(in.MeanBandwidth/1000, 0, 1)
	ambientTexture = signal.Clamp(ambientTexture, 0, 1)

	vocalCentric := 0.7*signal.Clamp(in.VocalEnergyRatio, 0, 1) + 0.3*signal.Clamp(in.MFCCVocalScore, 0, 1)
	vocalCentric = signal.Clamp(vocalCentric, 0, 1)

	acousticVsElectronic := signal.Clamp(in.Acousticness, 0, 1)

	sv := StyleVector{
		BeatDriven:           beatDriven,
		MelodicFocus:         melodicFocus,
		AmbientTexture:       ambientTexture,
		VocalCentric:         vocalCentric,
		AcousticVsElectronic: acousticVsElectronic,
	}

	type axis struct {
		name  string
		value float64
	}
	axes := []axis{
		{"beat_driven", sv.BeatDriven},
		{"melodic_focus", sv.MelodicFocus},
		{"ambient_texture", sv.AmbientTexture},
		{"vocal_centric", sv.VocalCentric},
		{"acoustic_vs_electronic", sv.AcousticVsElectronic},
	}
	sort.Slice(axes, func(i, j int) bool { return axes[i].value > axes[j].value })

	sv.Dominant = axes[0].name
	if len(axes) > 1 {
		sv.Confidence = axes[0].value - axes[1].value
	} else {
		sv.Confidence = axes[0].value
	}
	return sv
}

// MFCCVocalHeuristic scores how formant-like the mid MFCC coefficients
// (2-5, the band most associated with vocal timbre) look, normalised to a
// roughly [0,1] range via their mean absolute value.
func MFCCVocalHeuristic(mfcc [][]float64) float64 {
	if len(mfcc) == 0 {
		return 0
	}
	var sum float64
	var count int
	for _, frame := range mfcc {
		for c := 2; c <= 5 && c < len(frame); c++ {
			sum += math.Abs(frame[c])
			count++
		}
	}
	if count == 0 {
		return 0
	}
	mean := sum / float64(count)
	return signal.Clamp(mean/20, 0, 1)
}

// ChromaVariance returns the mean per-pitch-class variance across frames,
// a proxy for how much harmonic content shifts over time (melodic focus).
func ChromaVariance(chroma [][]float64) float64 {
	if len(chroma) == 0 {
		return 0
	}
	perClass := make([][]float64, 12)
	for _, frame := range chroma {
		for i := 0; i < 12 && i < len(frame); i++ {
			perClass[i] = append(perClass[i], frame[i])
		}
	}
	var sum float64
	for _, series := range perClass {
		sum += signal.Variance(series)
	}
	return sum / 12
}
