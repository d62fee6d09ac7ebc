package feature

import (
	"fmt"

	"github.com/vividhyeok/mixpipeline/internal/signal"
)

const (
	tempoFrameSize = 1024
	tempoHopSize   = 512
	stftFrameSize  = 2048
	stftHopSize    = 512
)

// safe runs fn and converts any panic into a warning message tagged with
// the sub-extractor's name, so one malformed extractor never aborts the
// rest of the analysis (§4.2 "must tolerate partial failure").
func safe(name string, warnings *[]string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			*warnings = append(*warnings, fmt.Sprintf("%s: %v", name, r))
		}
	}()
	fn()
}

// Extract runs the full C2 pipeline over a decoded PCM buffer and returns
// the Analysis record (§3, §4.2). Each sub-extractor is isolated: a failure
// nulls only its own fields and appends a warning, never the whole record.
func Extract(buf signal.Buffer) Analysis {
	var warnings []string
	a := Analysis{Version: 1}

	duration := buf.Duration()
	if duration <= 0 {
		a.Warnings = append(a.Warnings, "duration: zero-length buffer")
		return a
	}

	onset := signal.OnsetEnvelope(buf.Samples, buf.SR, tempoFrameSize, tempoHopSize)
	rms := signal.RMSFrames(buf.Samples, stftFrameSize, stftHopSize)
	zcr := signal.ZeroCrossingRate(buf.Samples, stftFrameSize, stftHopSize)

	var st signal.STFTResult
	var centroid, bandwidth, rolloff, contrast []float64
	var chroma [][]float64
	var mfcc [][]float64

	safe("spectral", &warnings, func() {
		st = signal.STFT(buf.Samples, buf.SR, stftFrameSize, stftHopSize)
		centroid = signal.SpectralCentroid(st)
		bandwidth = signal.SpectralBandwidth(st, centroid)
		rolloff = signal.SpectralRolloff(st, 0.85)
		contrast = signal.SpectralContrast(st)
		chroma = signal.Chromagram(st)
		mfcc = signal.MFCC(st, 13)
	})
	_ = rolloff

	var bpm float64
	var beats []float64
	safe("tempo", &warnings, func() {
		bpm = EstimateBPM(onset, buf.SR, tempoHopSize)
		beats = EstimateBeatTimes(onset, buf.SR, duration, bpm, tempoHopSize)
	})
	a.BPM = bpm
	a.BeatGrid = BuildBeatGrid(beats, onset, buf.SR, tempoHopSize)

	var keyResult Key
	var majorCorr, minorCorr float64
	safe("key", &warnings, func() {
		meanChroma := signal.MeanChroma(chroma)
		keyResult = DetectKey(meanChroma)

		dominant := 0
		for i, v := range meanChroma {
			if v > meanChroma[dominant] {
				dominant = i
			}
		}
		rotated := make([]float64, 12)
		for j := 0; j < 12; j++ {
			rotated[j] = meanChroma[(j+dominant)%12]
		}
		majorCorr = signal.Pearson(rotated, majorProfile)
		minorCorr = signal.Pearson(rotated, minorProfile)
	})
	if keyResult.PitchClass != "" {
		k := keyResult
		a.Key = &k
		a.KeyConfidence = keyResult.Confidence
	}

	vocalEnergyRatio := 0.0
	speechBandRatio := 0.0
	safe("vocal_ratio", &warnings, func() {
		vocalEnergyRatio = BandEnergyRatio(st, 80, 1100)
		speechBandRatio = BandEnergyRatio(st, 300, 3400)
	})

	autocorrRatio := 0.0
	safe("danceability_autocorr", &warnings, func() {
		autocorrRatio = AutocorrPeakRatio(onset, buf.SR, tempoHopSize)
	})

	safe("scalars", &warnings, func() {
		scalars := ComputeScalars(ScalarInputs{
			RMS:               rms,
			Onset:             onset,
			Centroid:          centroid,
			Bandwidth:         bandwidth,
			ZCR:               zcr,
			SpectralContrast:  contrast,
			BPM:               a.BPM,
			MajorCorr:         majorCorr,
			MinorCorr:         minorCorr,
			VocalEnergyRatio:  vocalEnergyRatio,
			SpeechBandRatio:   speechBandRatio,
			BeatRegularity:    a.BeatGrid.Regularity,
			AutocorrPeakRatio: autocorrRatio,
		})
		a.Energy = scalars.Energy
		a.Danceability = scalars.Danceability
		a.Valence = scalars.Valence
		a.Acousticness = scalars.Acousticness
		a.Instrumentalness = scalars.Instrumentalness
		a.Liveness = scalars.Liveness
		a.Speechiness = scalars.Speechiness
		a.LoudnessDB = scalars.LoudnessDB
	})

	safe("style", &warnings, func() {
		sv := ComputeStyle(StyleInputs{
			Regularity:       a.BeatGrid.Regularity,
			MeanOnset:        signal.Mean(onset),
			ChromaVariance:   ChromaVariance(chroma),
			CentroidVariance: signal.Variance(centroid),
			MeanBandwidth:    signal.Mean(bandwidth),
			VocalEnergyRatio: vocalEnergyRatio,
			MFCCVocalScore:   MFCCVocalHeuristic(mfcc),
			Acousticness:     a.Acousticness,
		})
		a.Style = &sv
	})

	safe("sections", &warnings, func() {
		sec := ComputeSections(rms, buf.SR, stftHopSize, duration)
		a.IntroEnd = sec.IntroEnd
		a.OutroStart = sec.OutroStart
		a.IntroEnergy = sec.IntroEnergy
		a.OutroEnergy = sec.OutroEnergy
		a.EnergyProfile = EnergyProfile(rms, buf.SR, stftHopSize, duration)
	})

	safe("mix_points", &warnings, func() {
		a.MixInPoint = ComputeMixInPoint(rms, buf.SR, stftHopSize, duration, a.IntroEnd, beats)
		a.MixOutPoint = ComputeMixOutPoint(rms, buf.SR, stftHopSize, duration, a.OutroStart, beats)
		a.MixableSections = ComputeMixableSections(rms, buf.SR, stftHopSize, duration, beats)
	})

	safe("vocal_intervals", &warnings, func() {
		vocalIv, instrumentalIv := ComputeVocalIntervals(centroid, buf.SR, stftHopSize, duration)
		a.VocalIntervals = vocalIv
		a.InstrumentalIntervals = instrumentalIv
	})

	a.Warnings = warnings
	return a
}
