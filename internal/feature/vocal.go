package feature

import (
	"github.com/vividhyeok/mixpipeline/internal/signal"
)

const vocalIntervalConfidence = 0.6

// ComputeVocalIntervals marks frames whose spectral centroid exceeds the
// 70th percentile as vocal candidates, consolidates contiguous runs into
// vocal intervals, and fills every gap with an instrumental interval so the
// two interval sets always cover [0, duration] with no overlap (§4.2.6,
// invariant 5).
func ComputeVocalIntervals(centroid []float64, sr, hopSize int, duration float64) (vocal, instrumental []Interval) {
	if len(centroid) == 0 || duration <= 0 {
		return nil, []Interval{{Start: 0, End: duration, Confidence: 1}}
	}

	threshold := signal.Percentile(centroid, 0.70)

	type run struct{ start, end int }
	var runs []run
	inRun := false
	runStart := 0
	for i, c := range centroid {
		above := c > threshold
		if above && !inRun {
			inRun = true
			runStart = i
		} else if !above && inRun {
			inRun = false
			runs = append(runs, run{runStart, i})
		}
	}
	if inRun {
		runs = append(runs, run{runStart, len(centroid)})
	}

	for _, r := range runs {
		start := frameTime(r.start, sr, hopSize)
		end := frameTime(r.end, sr, hopSize)
		if end > duration {
			end = duration
		}
		if end <= start {
			continue
		}
		vocal = append(vocal, Interval{Start: start, End: end, Confidence: vocalIntervalConfidence})
	}

	// Fill gaps between (and around) vocal intervals with instrumental.
	cursor := 0.0
	for _, v := range vocal {
		if v.Start > cursor {
			instrumental = append(instrumental, Interval{Start: cursor, End: v.Start, Confidence: 1 - vocalIntervalConfidence})
		}
		cursor = v.End
	}
	if cursor < duration {
		instrumental = append(instrumental, Interval{Start: cursor, End: duration, Confidence: 1 - vocalIntervalConfidence})
	}

	return vocal, instrumental
}
