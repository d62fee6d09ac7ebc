package feature

import (
	"math"

	"github.com/vividhyeok/mixpipeline/internal/signal"
)

const sectionWindowSec = 3.0

// frameWindow converts a window length in seconds to a frame count given
// the RMS hop size, with a floor of 1.
func frameWindow(windowSec float64, sr, hopSize int) int {
	n := int(windowSec * float64(sr) / float64(hopSize))
	if n < 1 {
		n = 1
	}
	return n
}

func frameTime(i, sr, hopSize int) float64 {
	return float64(i*hopSize) / float64(sr)
}

// windowedStats returns, for every frame i, the mean and variance of the
// trailing window rms[i-w+1:i+1]; for the first w-1 frames the window is
// shorter and starts at frame 0.
func windowedStats(rms []float64, w int) (means, variances []float64) {
	means = make([]float64, len(rms))
	variances = make([]float64, len(rms))
	for i := range rms {
		lo := i - w + 1
		if lo < 0 {
			lo = 0
		}
		win := rms[lo : i+1]
		means[i] = signal.Mean(win)
		variances[i] = signal.Variance(win)
	}
	return
}

// Sections holds the §4.2.5 structural outputs.
type Sections struct {
	IntroEnd    float64
	OutroStart  float64
	IntroEnergy float64
	OutroEnergy float64
}

// ComputeSections finds intro_end and outro_start from frame-level RMS
// (§4.2.5).
func ComputeSections(rms []float64, sr, hopSize int, duration float64) Sections {
	if len(rms) == 0 || duration <= 0 {
		return Sections{}
	}
	w := frameWindow(sectionWindowSec, sr, hopSize)
	_, variances := windowedStats(rms, w)

	searchEnd := math.Min(60, 0.3*duration)
	searchEndFrame := int(searchEnd * float64(sr) / float64(hopSize))
	if searchEndFrame >= len(variances) {
		searchEndFrame = len(variances) - 1
	}

	introEnd := 0.0
	if searchEndFrame > w {
		windowVars := append([]float64(nil), variances[w:searchEndFrame+1]...)
		p25 := signal.Percentile(windowVars, 0.25)
		for i := w; i <= searchEndFrame; i++ {
			if variances[i] < p25 {
				introEnd = frameTime(i, sr, hopSize)
				break
			}
		}
	}

	// outro_start: search backwards from duration for a >=20% RMS drop
	// between consecutive trailing windows.
	means, _ := windowedStats(rms, w)
	outroStart := duration
	for i := len(means) - 1; i >= w*2; i-- {
		prevMean := means[i-w]
		curMean := means[i]
		if prevMean > 1e-9 && (prevMean-curMean)/prevMean >= 0.2 {
			outroStart = frameTime(i-w, sr, hopSize)
			break
		}
	}

	introEndFrame := int(introEnd * float64(sr) / float64(hopSize))
	if introEndFrame >= len(rms) {
		introEndFrame = len(rms) - 1
	}
	outroStartFrame := int(outroStart * float64(sr) / float64(hopSize))
	if outroStartFrame < 0 {
		outroStartFrame = 0
	}
	if outroStartFrame >= len(rms) {
		outroStartFrame = len(rms) - 1
	}

	introEnergy := signal.Mean(rms[:introEndFrame+1])
	outroEnergy := signal.Mean(rms[outroStartFrame:])

	return Sections{
		IntroEnd:    introEnd,
		OutroStart:  outroStart,
		IntroEnergy: introEnergy,
		OutroEnergy: outroEnergy,
	}
}

// EnergyProfile samples mean RMS at a fixed 10s cadence across the track
// (§3).
func EnergyProfile(rms []float64, sr, hopSize int, duration float64) []EnergySample {
	if len(rms) == 0 || duration <= 0 {
		return nil
	}
	const cadence = 10.0
	var samples []EnergySample
	for t := 0.0; t < duration; t += cadence {
		startFrame := int(t * float64(sr) / float64(hopSize))
		endFrame := int((t + cadence) * float64(sr) / float64(hopSize))
		if startFrame >= len(rms) {
			break
		}
		if endFrame > len(rms) {
			endFrame = len(rms)
		}
		samples = append(samples, EnergySample{Time: t, Energy: signal.Mean(rms[startFrame:endFrame])})
	}
	return samples
}

// nearestBeatInRange returns the beat time closest to t that also falls in
// [lo, hi], or t unchanged if none qualify.
func nearestBeatInRange(beats []float64, t, lo, hi float64) float64 {
	best := t
	bestD := math.Inf(1)
	found := false
	for _, b := range beats {
		if b < lo || b > hi {
			continue
		}
		if d := math.Abs(b - t); d < bestD {
			bestD = d
			best = b
			found = true
		}
	}
	if !found {
		return t
	}
	return best
}

// ComputeMixInPoint finds the best mix-in time in [0, min(45s, 30%dur)]
// maximising 0.6*stability + 0.4*energy, snaps to the nearest beat at or
// before intro_end, and floors at 8s (§4.2.5).
func ComputeMixInPoint(rms []float64, sr, hopSize int, duration, introEnd float64, beats []float64) float64 {
	if len(rms) == 0 || duration <= 0 {
		return 8
	}
	w := frameWindow(sectionWindowSec, sr, hopSize)
	means, variances := windowedStats(rms, w)

	searchEnd := math.Min(45, 0.3*duration)
	endFrame := int(searchEnd * float64(sr) / float64(hopSize))
	if endFrame >= len(rms) {
		endFrame = len(rms) - 1
	}

	bestScore := math.Inf(-1)
	bestTime := 0.0
	for i := w; i <= endFrame; i++ {
		stability := 0.0
		if means[i] > 1e-9 {
			stability = signal.Clamp(1-math.Sqrt(variances[i])/means[i], 0, 1)
		}
		score := 0.6*stability + 0.4*signal.Clamp(means[i]*10, 0, 1)
		if score > bestScore {
			bestScore = score
			bestTime = frameTime(i, sr, hopSize)
		}
	}

	snapped := nearestBeatInRange(beats, bestTime, 0, math.Max(0, introEnd))
	if snapped < 8 {
		snapped = 8
	}
	return snapped
}

// ComputeMixOutPoint finds the best mix-out time in [max(0,dur-45s), dur]
// maximising 0.7*max(energy_drop,0) + 0.3*after_stability, snaps to the
// nearest beat in [outro_start, dur-4], ceilings at dur-4 and floors at
// 70% duration (§4.2.5).
func ComputeMixOutPoint(rms []float64, sr, hopSize int, duration, outroStart float64, beats []float64) float64 {
	if len(rms) == 0 || duration <= 0 {
		return 0
	}
	w := frameWindow(sectionWindowSec, sr, hopSize)
	means, variances := windowedStats(rms, w)

	searchStart := math.Max(0, duration-45)
	startFrame := int(searchStart * float64(sr) / float64(hopSize))
	if startFrame < w {
		startFrame = w
	}
	endFrame := len(rms) - 1

	bestScore := math.Inf(-1)
	bestTime := duration
	for i := startFrame; i <= endFrame; i++ {
		prevMean := means[i-w]
		curMean := means[i]
		drop := 0.0
		if prevMean > 1e-9 {
			drop = (prevMean - curMean) / prevMean
		}
		stability := 0.0
		if curMean > 1e-9 {
			stability = signal.Clamp(1-math.Sqrt(variances[i])/curMean, 0, 1)
		}
		score := 0.7*math.Max(drop, 0) + 0.3*stability
		if score > bestScore {
			bestScore = score
			bestTime = frameTime(i, sr, hopSize)
		}
	}

	ceiling := duration - 4
	floor := 0.7 * duration
	snapped := nearestBeatInRange(beats, bestTime, outroStart, ceiling)
	if snapped > ceiling {
		snapped = ceiling
	}
	if snapped < floor {
		snapped = floor
	}
	return snapped
}

// ComputeMixableSections slides a window across [20s, duration-20s] and
// emits up to 3 candidate breakdown/ambient sections with mean_energy<0.3
// and stability>0.7, ranked by stability*(1-energy) (§4.2.5).
func ComputeMixableSections(rms []float64, sr, hopSize int, duration float64, beats []float64) []MixableSection {
	if duration <= 40 || len(rms) == 0 {
		return nil
	}
	w := frameWindow(8, sr, hopSize)
	means, variances := windowedStats(rms, w)

	type cand struct {
		MixableSection
		score float64
	}
	var cands []cand

	startFrame := int(20 * float64(sr) / float64(hopSize))
	endFrame := int((duration - 20) * float64(sr) / float64(hopSize))
	if endFrame >= len(rms) {
		endFrame = len(rms) - 1
	}
	step := w
	if step < 1 {
		step = 1
	}

	for i := startFrame; i <= endFrame; i += step {
		if i >= len(means) {
			break
		}
		meanE := means[i]
		stability := 0.0
		if meanE > 1e-9 {
			stability = signal.Clamp(1-math.Sqrt(variances[i])/meanE, 0, 1)
		}
		energyNorm := signal.Clamp(meanE*10, 0, 1)
		if energyNorm >= 0.3 || stability <= 0.7 {
			continue
		}
		start := frameTime(i, sr, hopSize)
		end := start + 8
		if end > duration {
			end = duration
		}
		beatCount := 0
		for _, b := range beats {
			if b >= start && b <= end {
				beatCount++
			}
		}
		sectionType := SectionAmbient
		if energyNorm < 0.15 {
			sectionType = SectionBreakdown
		}
		cands = append(cands, cand{
			MixableSection: MixableSection{
				Type:      sectionType,
				Start:     start,
				End:       end,
				Energy:    energyNorm,
				Stability: stability,
				BeatCount: beatCount,
			},
			score: stability * (1 - energyNorm),
		})
	}

	// Sort descending by score, keep top 3.
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0 && cands[j-1].score < cands[j].score; j-- {
			cands[j-1], cands[j] = cands[j], cands[j-1]
		}
	}
	if len(cands) > 3 {
		cands = cands[:3]
	}
	out := make([]MixableSection, len(cands))
	for i, c := range cands {
		out[i] = c.MixableSection
	}
	return out
}
