package feature

import (
	"math"
	"sort"

	"github.com/vividhyeok/mixpipeline/internal/signal"
)

// EstimateBPM finds the dominant beat period via autocorrelation of the
// onset envelope, biased toward the 120 BPM neighbourhood to avoid octave
// errors, then folds the result into [60, 200] (§4.2.1), adapted from the
// teacher's estimateBPM in dsp.go.
func EstimateBPM(onset []float64, sr, hopSize int) float64 {
	if len(onset) < 100 {
		return 120.0
	}

	minLag := sr * 60 / (200 * hopSize)
	maxLag := sr * 60 / (60 * hopSize)
	if maxLag >= len(onset) {
		maxLag = len(onset) - 1
	}
	if minLag < 1 {
		minLag = 1
	}

	bestLag := minLag
	bestCorr := -1.0
	for lag := minLag; lag <= maxLag; lag++ {
		corr := 0.0
		count := 0
		for i := 0; i+lag < len(onset); i++ {
			corr += onset[i] * onset[i+lag]
			count++
		}
		if count > 0 {
			corr /= float64(count)
		}
		bpmApprox := 60.0 / (float64(lag) * float64(hopSize) / float64(sr))
		weight := math.Exp(-0.5 * math.Pow((bpmApprox-120.0)/40.0, 2))
		weightedCorr := corr * (0.8 + 0.2*weight)

		if weightedCorr > bestCorr {
			bestCorr = weightedCorr
			bestLag = lag
		}
	}

	beatPeriodSec := float64(bestLag) * float64(hopSize) / float64(sr)
	if beatPeriodSec <= 0 {
		return 120.0
	}
	bpm := 60.0 / beatPeriodSec
	return FoldBPM(bpm)
}

// FoldBPM folds a raw detected tempo into [60, 200] by doubling/halving
// (§4.2.1, S2), then rounds the result to 2 decimal places.
func FoldBPM(bpm float64) float64 {
	for bpm > 200 {
		bpm /= 2
	}
	for bpm < 60 {
		bpm *= 2
	}
	return math.Round(bpm*100) / 100
}

// EstimateBeatTimes phase-locks a beat grid to the strongest onset in the
// first 5 seconds, then walks forward/backward at the estimated beat period
// (adapted from the teacher's estimateBeatTimes).
func EstimateBeatTimes(onset []float64, sr int, duration, bpm float64, hopSize int) []float64 {
	if bpm <= 0 {
		bpm = 120
	}
	beatPeriod := 60.0 / bpm

	anchorTime := 0.0
	if len(onset) > 0 {
		searchFrames := int(5.0 * float64(sr) / float64(hopSize))
		if searchFrames > len(onset) {
			searchFrames = len(onset)
		}
		bestIdx, bestVal := 0, 0.0
		for i := 0; i < searchFrames; i++ {
			if onset[i] > bestVal {
				bestVal = onset[i]
				bestIdx = i
			}
		}
		anchorTime = float64(bestIdx) * float64(hopSize) / float64(sr)
	}

	var beats []float64
	for t := anchorTime; t >= 0; t -= beatPeriod {
		beats = append(beats, math.Round(t*1000)/1000)
	}
	for t := anchorTime + beatPeriod; t < duration; t += beatPeriod {
		beats = append(beats, math.Round(t*1000)/1000)
	}

	sort.Float64s(beats)
	return beats
}

// BuildBeatGrid assembles the full BeatGrid record (§3) from beat times and
// the onset envelope they were derived from. If fewer than two beats are
// present, an empty grid with zeroed aggregates is returned (§4.2.1).
func BuildBeatGrid(beats []float64, onset []float64, sr, hopSize int) BeatGrid {
	if len(beats) < 2 {
		return BeatGrid{}
	}

	intervals := make([]float64, len(beats)-1)
	for i := 1; i < len(beats); i++ {
		intervals[i-1] = beats[i] - beats[i-1]
	}

	confidence := make([]float64, len(beats))
	for i, bt := range beats {
		frameIdx := int(bt * float64(sr) / float64(hopSize))
		if frameIdx >= 0 && frameIdx < len(onset) {
			confidence[i] = onset[frameIdx]
		}
	}
	maxConf := 0.0
	for _, c := range confidence {
		if c > maxConf {
			maxConf = c
		}
	}
	if maxConf > 1e-9 {
		for i := range confidence {
			confidence[i] /= maxConf
		}
	}

	meanInterval := signal.Mean(intervals)
	meanConfidence := signal.Mean(confidence)

	regularity := 0.0
	if meanInterval > 1e-9 {
		cv := signal.StdDev(intervals) / meanInterval
		regularity = signal.Clamp(1-cv, 0, 1)
	}

	return BeatGrid{
		Beats:             beats,
		Intervals:         intervals,
		PerBeatConfidence: confidence,
		MeanConfidence:    meanConfidence,
		Regularity:        regularity,
		MeanInterval:      meanInterval,
	}
}
