// Package cluster implements the weighted-similarity clustering engine
// (spec.md §4.3): assigning a NormalizedDNA to a PatternCluster (creating one
// on miss) and maintaining recurrence links between clusters.
package cluster

import (
	"strings"

	"github.com/agext/levenshtein"

	domainvdg "github.com/ds4psb/komission-core/internal/domain/vdg"
)

// Similarity weights. They sum to exactly 1.0 (spec.md §4.3).
const (
	weightHook        = 0.30
	weightMicrobeat    = 0.30
	weightVisual       = 0.15
	weightAudio        = 0.10
	weightPatternType  = 0.15

	assignmentThreshold = 0.72
)

// Breakdown is the per-dimension similarity score between two NormalizedDNAs,
// used both for assignment and for recurrence-link subscores.
type Breakdown struct {
	HookSim        float64
	MicrobeatSim   float64
	VisualSim      float64
	AudioSim       float64
	PatternTypeSim float64
}

// Weighted sums the breakdown under the fixed weights, producing the single
// score used for assignment.
func (b Breakdown) Weighted() float64 {
	return b.HookSim*weightHook +
		b.MicrobeatSim*weightMicrobeat +
		b.VisualSim*weightVisual +
		b.AudioSim*weightAudio +
		b.PatternTypeSim*weightPatternType
}

// Similarity computes the full weighted similarity breakdown between two
// NormalizedDNAs. Both inputs must already be normalized — raw VDG dicts are
// never compared directly (spec.md §4.3).
func Similarity(a, b *domainvdg.NormalizedDNA) Breakdown {
	if isEmpty(a) && isEmpty(b) {
		// Two DNAs with no extracted signal at all are not "identical": there
		// is nothing to compare, so similarity reports the neutral midpoint
		// rather than a spurious perfect match (spec.md §8 boundary behavior).
		noSignal := 0.5 / (weightHook + weightMicrobeat + weightVisual + weightAudio + weightPatternType)
		return Breakdown{
			HookSim:        noSignal,
			MicrobeatSim:   noSignal,
			VisualSim:      noSignal,
			AudioSim:       noSignal,
			PatternTypeSim: noSignal,
		}
	}
	return Breakdown{
		HookSim:        hookSimilarity(a.Hook, b.Hook),
		MicrobeatSim:   microbeatSimilarity(a.MicrobeatSequence, b.MicrobeatSequence),
		VisualSim:      jaccard(a.VisualPatterns, b.VisualPatterns),
		AudioSim:       audioSimilarity(a.AudioFlags.IsTrending, b.AudioFlags.IsTrending),
		PatternTypeSim: patternTypeSimilarity(a.PatternType, b.PatternType),
	}
}

// hookSimilarity: same type x duration proximity (1.0 if delta<1s, 0.6
// else); 0.3 if type differs, regardless of duration.
func hookSimilarity(a, b domainvdg.Hook) float64 {
	if a.Type != b.Type {
		return 0.3
	}
	delta := a.DurationSec - b.DurationSec
	if delta < 0 {
		delta = -delta
	}
	if delta < 1.0 {
		return 1.0
	}
	return 0.6
}

// microbeatSimilarity is 1 minus normalized Levenshtein distance over the
// "role:cue" token sequence, joined into a single comparable string.
func microbeatSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	sa := strings.Join(a, "\x1f")
	sb := strings.Join(b, "\x1f")
	maxLen := len(sa)
	if len(sb) > maxLen {
		maxLen = len(sb)
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.Distance(sa, sb, nil)
	sim := 1 - float64(dist)/float64(maxLen)
	if sim < 0 {
		sim = 0
	}
	return sim
}

// jaccard computes |A∩B| / |A∪B| over two sets of camera moves.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	setA := toSet(a)
	setB := toSet(b)
	inter := 0
	for k := range setA {
		if setB[k] {
			inter++
		}
	}
	union := len(setA)
	for k := range setB {
		if !setA[k] {
			union++
		}
	}
	if union == 0 {
		return 1.0
	}
	return float64(inter) / float64(union)
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, i := range items {
		out[i] = true
	}
	return out
}

func isEmpty(d *domainvdg.NormalizedDNA) bool {
	return d.Hook.Type == "" && d.Hook.DurationSec == 0 &&
		len(d.MicrobeatSequence) == 0 && len(d.VisualPatterns) == 0 &&
		!d.AudioFlags.IsTrending && d.PatternType == ""
}

func audioSimilarity(aTrending, bTrending bool) float64 {
	if aTrending == bTrending {
		return 1.0
	}
	return 0.5
}

func patternTypeSimilarity(a, b domainvdg.PatternType) float64 {
	if a == b {
		return 1.0
	}
	return 0.0
}
