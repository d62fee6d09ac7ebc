package feature

import (
	"math"

	"github.com/vividhyeok/mixpipeline/internal/signal"
)

// Scalars holds the 8 perceptual descriptors computed by ComputeScalars.
type Scalars struct {
	Energy           float64
	Danceability     float64
	Valence          float64
	Acousticness     float64
	Instrumentalness float64
	Liveness         float64
	Speechiness      float64
	LoudnessDB       float64
}

// ScalarInputs bundles the frame-level primitives every scalar formula in
// §4.2.3 reads from, so ComputeScalars stays a pure function of already-
// computed signal statistics.
type ScalarInputs struct {
	RMS              []float64
	Onset            []float64
	Centroid         []float64
	Bandwidth        []float64
	ZCR              []float64
	SpectralContrast []float64
	BPM              float64
	MajorCorr        float64
	MinorCorr        float64
	VocalEnergyRatio float64 // energy ratio in 80-1100Hz band
	SpeechBandRatio  float64 // energy ratio in 300-3400Hz band
	BeatRegularity   float64
	AutocorrPeakRatio float64
}

// ComputeScalars evaluates the exact combination formulas of §4.2.3. All
// results are clamped to [0,1] except LoudnessDB which floors at -60 dBFS.
func ComputeScalars(in ScalarInputs) Scalars {
	meanRMS := signal.Mean(in.RMS)
	meanOnset := signal.Mean(in.Onset)
	meanCentroid := signal.Mean(in.Centroid)
	meanBandwidth := signal.Mean(in.Bandwidth)
	meanZCR := signal.Mean(in.ZCR)
	varRMS := signal.Variance(in.RMS)
	meanContrastVar := signal.Variance(in.SpectralContrast)
	varOnset := signal.Variance(in.Onset)

	energy := signal.Clamp(meanRMS*10, 0, 1)

	danceability := 0.4*signal.Clamp(in.BeatRegularity, 0, 1) +
		0.4*signal.Clamp(2*meanOnset, 0, 1) +
		0.2*signal.Clamp(in.AutocorrPeakRatio, 0, 1)
	danceability = signal.Clamp(danceability, 0, 1)

	valence := 0.4*math.Max(in.MajorCorr-in.MinorCorr, 0) +
		0.3*signal.Clamp(meanCentroid/4000, 0, 1) +
		0.3*signal.Clamp(in.BPM/140, 0, 1)
	valence = signal.Clamp(valence, 0, 1)

	acousticness := 0.4*(1-signal.Clamp(meanCentroid/4000, 0, 1)) +
		0.3*(1-signal.Clamp(meanBandwidth/2000, 0, 1)) +
		0.3*(1-signal.Clamp(10*meanZCR, 0, 1))
	acousticness = signal.Clamp(acousticness, 0, 1)

	instrumentalness := signal.Clamp(1-signal.Clamp(3*in.VocalEnergyRatio, 0, 1), 0, 1)

	liveness := 0.6*signal.Clamp(100*varRMS, 0, 1) +
		0.4*signal.Clamp(10*math.Abs(meanContrastVar), 0, 1)
	liveness = signal.Clamp(liveness, 0, 1)

	speechiness := 0.5*signal.Clamp(2*in.SpeechBandRatio, 0, 1) +
		0.3*signal.Clamp(20*meanZCR, 0, 1) +
		0.2*signal.Clamp(5*varOnset, 0, 1)
	speechiness = signal.Clamp(speechiness, 0, 1)

	loudness := math.Max(20*math.Log10(meanRMS+1e-12), -60)

	return Scalars{
		Energy:           energy,
		Danceability:     danceability,
		Valence:          valence,
		Acousticness:     acousticness,
		Instrumentalness: instrumentalness,
		Liveness:         liveness,
		Speechiness:      speechiness,
		LoudnessDB:       loudness,
	}
}

// BandEnergyRatio returns the fraction of total magnitude energy (averaged
// over frames) contained in [loHz, hiHz] across an STFT's bins.
func BandEnergyRatio(st signal.STFTResult, loHz, hiHz float64) float64 {
	if len(st.Magnitudes) == 0 {
		return 0
	}
	var band, total float64
	for _, mag := range st.Magnitudes {
		for b, m := range mag {
			f := float64(b) * float64(st.SR) / float64(st.FFTSize)
			total += m
			if f >= loHz && f <= hiHz {
				band += m
			}
		}
	}
	if total < 1e-9 {
		return 0
	}
	return band / total
}

// AutocorrPeakRatio returns the ratio of the best non-zero-lag onset
// autocorrelation (in the 60-200 BPM lag range) to the zero-lag
// autocorrelation, used as a periodicity-strength signal for danceability.
func AutocorrPeakRatio(onset []float64, sr, hopSize int) float64 {
	if len(onset) < 100 {
		return 0
	}
	zeroLag := 0.0
	for _, v := range onset {
		zeroLag += v * v
	}
	if zeroLag < 1e-9 {
		return 0
	}

	minLag := sr * 60 / (200 * hopSize)
	maxLag := sr * 60 / (60 * hopSize)
	if maxLag >= len(onset) {
		maxLag = len(onset) - 1
	}
	if minLag < 1 {
		minLag = 1
	}

	best := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		corr := 0.0
		for i := 0; i+lag < len(onset); i++ {
			corr += onset[i] * onset[i+lag]
		}
		if corr > best {
			best = corr
		}
	}
	return best / zeroLag
}
