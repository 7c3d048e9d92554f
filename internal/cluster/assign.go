package cluster

import (
	domaincluster "github.com/ds4psb/komission-core/internal/domain/cluster"
	domainvdg "github.com/ds4psb/komission-core/internal/domain/vdg"
)

// CandidateDNA pairs a cluster with the NormalizedDNA that represents it
// (typically its earliest or most representative member), so assignment can
// be computed without re-deriving representative DNA per call.
type CandidateDNA struct {
	Cluster *domaincluster.PatternCluster
	DNA     *domainvdg.NormalizedDNA
}

// Assignment is the result of scoring a node's DNA against every candidate
// cluster.
type Assignment struct {
	Cluster    *domaincluster.PatternCluster // nil => create a new cluster
	Breakdown  Breakdown
	IsNew      bool
}

// Assign implements spec.md §4.3's assignment algorithm: score against every
// prefiltered candidate (same pattern_type, same platform if known — the
// prefilter itself is the caller's responsibility via candidates), assign to
// the highest-scoring cluster whose similarity >= 0.72, tie-breaking by
// larger member_count then older created_at. If none qualifies, the caller
// must create a new cluster (IsNew=true).
//
// Candidates must arrive pre-ordered by (member_count DESC, created_at ASC)
// — see ClusterRepo.ListCandidates — so that equal-scoring ties resolve to
// the first candidate in the slice without an explicit secondary sort.
func Assign(dna *domainvdg.NormalizedDNA, candidates []CandidateDNA) Assignment {
	var best *CandidateDNA
	var bestBreakdown Breakdown
	bestScore := -1.0

	for i := range candidates {
		c := candidates[i]
		breakdown := Similarity(dna, c.DNA)
		score := breakdown.Weighted()
		if score < assignmentThreshold {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = &candidates[i]
			bestBreakdown = breakdown
		}
		// Equal scores: candidates is already ordered by the tie-break
		// (member_count desc, created_at asc), so the first hit at a given
		// score wins and later equal-score candidates are skipped.
	}

	if best == nil {
		return Assignment{IsNew: true}
	}
	return Assignment{Cluster: best.Cluster, Breakdown: bestBreakdown}
}

// RecurrenceThresholds gates which dimension subscores are strong enough to
// warrant a candidate recurrence link (spec.md §4.3).
const (
	recurrenceMicrobeatThreshold = 0.7
	recurrenceHookThreshold      = 0.7
	recurrenceAudioThreshold     = 0.5
)

// QualifiesForRecurrence reports whether a new cluster's similarity to an
// older cluster clears the individual per-dimension thresholds that trigger
// a candidate PatternRecurrenceLink.
func QualifiesForRecurrence(b Breakdown) bool {
	return b.MicrobeatSim >= recurrenceMicrobeatThreshold &&
		b.HookSim >= recurrenceHookThreshold &&
		b.AudioSim >= recurrenceAudioThreshold
}
