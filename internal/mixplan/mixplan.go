// Package mixplan implements the C4 mix planner: the five ordering
// strategies, per-pair transition synthesis via internal/compat, and
// default-option selection (§4.4), adapted from the teacher's
// GenerateMixPlan/sortPlaylist/generateCandidates/selectBest in planner.go.
package mixplan

import (
	"math"
	"sort"

	"github.com/vividhyeok/mixpipeline/internal/compat"
	"github.com/vividhyeok/mixpipeline/internal/feature"
)

// Strategy enumerates the five ordering rules of §4.4.
type Strategy string

const (
	StrategyBPMProgression Strategy = "bpm_progression"
	StrategyEnergyFlow     Strategy = "energy_flow"
	StrategyKeyHarmony     Strategy = "key_harmony"
	StrategyStyleClusters  Strategy = "style_clusters"
	StrategySmartDJ        Strategy = "smart_dj"
)

var allStrategies = []Strategy{
	StrategyBPMProgression, StrategyEnergyFlow, StrategyKeyHarmony,
	StrategyStyleClusters, StrategySmartDJ,
}

// TrackInput bundles everything a track contributes to ordering, transition
// synthesis and compatibility scoring.
type TrackInput struct {
	ID             uint
	Duration       float64
	BPM            float64
	Key            *feature.Key
	Energy         float64
	IntroEnergy    float64
	OutroEnergy    float64
	HasSections    bool
	DominantStyle  string
	DominantValue  float64 // the dominant axis's own [0,1] score
	HasStyle       bool
	VocalCentric   float64
	HasVocal       bool
	MixOutPoint    float64
	HasMixOutPoint bool
}

func (t TrackInput) snapshot() compat.TrackSnapshot {
	return compat.TrackSnapshot{
		BPM:           t.BPM,
		Key:           t.Key,
		Energy:        t.Energy,
		IntroEnergy:   t.IntroEnergy,
		OutroEnergy:   t.OutroEnergy,
		HasSections:   t.HasSections,
		DominantStyle: t.DominantStyle,
		HasStyle:      t.HasStyle,
		VocalCentric:  t.VocalCentric,
		HasVocal:      t.HasVocal,
	}
}

// Transition is one synthesised adjacent-pair record (§3 MixTransition,
// minus persistence fields).
type Transition struct {
	Position           int
	TrackAID           uint
	TrackBID           uint
	TransitionStart    float64
	TransitionDuration float64
	Technique          compat.Technique
	BPMAdjustment      float64
	Scores             compat.Scores
}

// Plan is one full ordered sequence with its synthesised transitions.
type Plan struct {
	Strategy      Strategy
	Order         []TrackInput
	Transitions   []Transition
	TotalDuration float64
}

// BuildPlans produces one plan per strategy (five in all) and picks a
// default via §4.4's scoring rule. Returns all plans plus the index of the
// default, or (nil, -1) when fewer than two tracks are given.
func BuildPlans(tracks []TrackInput, priors StrategyPriors) ([]Plan, int) {
	if len(tracks) < 2 {
		return nil, -1
	}

	var plans []Plan
	for _, strat := range allStrategies {
		order := orderFor(strat, tracks)
		transitions := synthesizeTransitions(order)
		plans = append(plans, Plan{
			Strategy:      strat,
			Order:         order,
			Transitions:   transitions,
			TotalDuration: totalDuration(order, transitions),
		})
	}

	defaultIdx := 0
	bestScore := math.Inf(-1)
	for i, p := range plans {
		score := scorePlan(p, priors)
		if score > bestScore {
			bestScore = score
			defaultIdx = i
		}
	}
	return plans, defaultIdx
}

func scorePlan(p Plan, priors StrategyPriors) float64 {
	meanOverall := 0.0
	if len(p.Transitions) > 0 {
		sum := 0.0
		for _, tr := range p.Transitions {
			sum += tr.Scores.Overall
		}
		meanOverall = sum / float64(len(p.Transitions))
	}
	prior := priors.forStrategy(p.Strategy)
	durationTerm := math.Max(0, 1-p.TotalDuration/3600)
	return 0.4*meanOverall + prior + 0.1*durationTerm
}

func orderFor(strat Strategy, tracks []TrackInput) []TrackInput {
	switch strat {
	case StrategyBPMProgression:
		return orderByBPM(tracks)
	case StrategyEnergyFlow:
		return orderByEnergyFlow(tracks)
	case StrategyKeyHarmony:
		return orderByKeyHarmony(tracks)
	case StrategyStyleClusters:
		return orderByStyleClusters(tracks)
	case StrategySmartDJ:
		return orderBySmartDJ(tracks)
	default:
		return tracks
	}
}

func orderByBPM(tracks []TrackInput) []TrackInput {
	out := append([]TrackInput(nil), tracks...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].BPM < out[j].BPM })
	return out
}

// orderByEnergyFlow splits by median energy and interleaves low/high halves
// to form a rising-falling wave (§4.4).
func orderByEnergyFlow(tracks []TrackInput) []TrackInput {
	byEnergy := append([]TrackInput(nil), tracks...)
	sort.SliceStable(byEnergy, func(i, j int) bool { return byEnergy[i].Energy < byEnergy[j].Energy })

	mid := len(byEnergy) / 2
	low := byEnergy[:mid]
	high := byEnergy[mid:]

	out := make([]TrackInput, 0, len(tracks))
	li, hi := 0, 0
	for li < len(low) || hi < len(high) {
		if li < len(low) {
			out = append(out, low[li])
			li++
		}
		if hi < len(high) {
			out = append(out, high[hi])
			hi++
		}
	}
	return out
}

// orderByKeyHarmony greedily chains the track maximising key compatibility
// with the current tail, appending any track with an unknown key last.
func orderByKeyHarmony(tracks []TrackInput) []TrackInput {
	var known, unknown []TrackInput
	for _, t := range tracks {
		if t.Key != nil && t.Key.PitchClass != "" {
			known = append(known, t)
		} else {
			unknown = append(unknown, t)
		}
	}
	if len(known) == 0 {
		return unknown
	}

	sorted := []TrackInput{known[0]}
	remaining := append([]TrackInput(nil), known[1:]...)
	for len(remaining) > 0 {
		current := sorted[len(sorted)-1]
		bestIdx := 0
		bestScore := -1.0
		for i, t := range remaining {
			s := compat.Score(current.snapshot(), t.snapshot())
			if s.Key > bestScore {
				bestScore = s.Key
				bestIdx = i
			}
		}
		sorted = append(sorted, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return append(sorted, unknown...)
}

// styleGroup resolves a dominant style name to its macro-order bucket
// (§4.4: ambient -> acoustic -> melodic -> beat-driven -> electronic ->
// unknown). acoustic_vs_electronic splits on its own value: >=0.5 is
// acoustic, <0.5 is electronic. vocal_centric has no named bucket in the
// macro order and falls to "unknown" alongside tracks with no style.
func styleGroup(t TrackInput) string {
	if !t.HasStyle {
		return "unknown"
	}
	switch t.DominantStyle {
	case "ambient_texture":
		return "ambient"
	case "acoustic_vs_electronic":
		if t.DominantValue >= 0.5 {
			return "acoustic"
		}
		return "electronic"
	case "melodic_focus":
		return "melodic"
	case "beat_driven":
		return "beat-driven"
	default:
		return "unknown"
	}
}

var styleMacroOrder = []string{"ambient", "acoustic", "melodic", "beat-driven", "electronic", "unknown"}

// orderByStyleClusters groups tracks into the macro style order, sorting
// each group by BPM (§4.4).
func orderByStyleClusters(tracks []TrackInput) []TrackInput {
	groups := make(map[string][]TrackInput, len(styleMacroOrder))
	for _, t := range tracks {
		g := styleGroup(t)
		groups[g] = append(groups[g], t)
	}
	var out []TrackInput
	for _, g := range styleMacroOrder {
		members := groups[g]
		sort.SliceStable(members, func(i, j int) bool { return members[i].BPM < members[j].BPM })
		out = append(out, members...)
	}
	return out
}

// orderBySmartDJ greedily chains the track maximising overall compatibility
// with the current tail.
func orderBySmartDJ(tracks []TrackInput) []TrackInput {
	if len(tracks) == 0 {
		return nil
	}
	sorted := []TrackInput{tracks[0]}
	remaining := append([]TrackInput(nil), tracks[1:]...)
	for len(remaining) > 0 {
		current := sorted[len(sorted)-1]
		bestIdx := 0
		bestScore := math.Inf(-1)
		for i, t := range remaining {
			s := compat.Score(current.snapshot(), t.snapshot())
			if s.Overall > bestScore {
				bestScore = s.Overall
				bestIdx = i
			}
		}
		sorted = append(sorted, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return sorted
}

// exitPoint returns the track's mix_out_point when available, else the
// midpoint of its last 25% — the §4.4 fallback for transition_start.
func exitPoint(t TrackInput) float64 {
	if t.HasMixOutPoint {
		return t.MixOutPoint
	}
	return t.Duration * 0.875
}

func synthesizeTransitions(order []TrackInput) []Transition {
	if len(order) < 2 {
		return nil
	}
	out := make([]Transition, 0, len(order)-1)
	for i := 0; i < len(order)-1; i++ {
		a, b := order[i], order[i+1]
		scores := compat.Score(a.snapshot(), b.snapshot())
		technique, duration := compat.SelectTechnique(scores)

		start := exitPoint(a)
		if start+duration > a.Duration {
			start = math.Max(0, a.Duration-duration)
		}

		out = append(out, Transition{
			Position:           i,
			TrackAID:           a.ID,
			TrackBID:           b.ID,
			TransitionStart:    start,
			TransitionDuration: duration,
			Technique:          technique,
			BPMAdjustment:      compat.BPMAdjustment(a.BPM, b.BPM),
			Scores:             scores,
		})
	}
	return out
}

// totalDuration implements §4.4's total-duration formula: first-track
// transition_start + sum(transition_duration) + remaining tail of the last
// track after its own exit point.
func totalDuration(order []TrackInput, transitions []Transition) float64 {
	if len(order) == 0 {
		return 0
	}
	if len(transitions) == 0 {
		return order[0].Duration
	}
	total := transitions[0].TransitionStart
	for _, tr := range transitions {
		total += tr.TransitionDuration
	}
	last := order[len(order)-1]
	total += last.Duration - exitPoint(last)
	return total
}
