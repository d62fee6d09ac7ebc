package feature

import (
	"github.com/vividhyeok/mixpipeline/internal/signal"
)

// Krumhansl-Kessler major/minor key profiles, the same templates the
// teacher's detectKey correlates against (dsp.go majProfile/minProfile).
var (
	majorProfile = []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// DetectKey takes a chromagram already averaged to one 12-vector, finds the
// dominant pitch class, and correlates the vector, rotated so the dominant
// class sits at index 0, against the major/minor templates (§4.2.2).
// Confidence is max-chroma over chroma-sum, as specified. An all-zero
// vector yields the zero Key (unknown pitch class).
func DetectKey(meanChroma []float64) Key {
	if len(meanChroma) != 12 {
		return Key{}
	}

	total := 0.0
	maxVal := 0.0
	dominant := 0
	for i, v := range meanChroma {
		total += v
		if v > maxVal {
			maxVal = v
			dominant = i
		}
	}

	if total <= 1e-9 {
		return Key{}
	}
	confidence := maxVal / total

	// Rotate the chroma vector so the dominant pitch class lines up with
	// the templates' tonic, then correlate.
	rotated := make([]float64, 12)
	for j := 0; j < 12; j++ {
		rotated[j] = meanChroma[(j+dominant)%12]
	}

	majCorr := signal.Pearson(rotated, majorProfile)
	minCorr := signal.Pearson(rotated, minorProfile)

	return Key{
		PitchClass: signal.NoteNames()[dominant],
		Minor:      minCorr > majCorr,
		Confidence: confidence,
	}
}
