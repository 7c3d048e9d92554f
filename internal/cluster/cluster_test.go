package cluster

import (
	"testing"
	"time"

	domaincluster "github.com/ds4psb/komission-core/internal/domain/cluster"
	domainvdg "github.com/ds4psb/komission-core/internal/domain/vdg"
)

func problemSolutionDNA() *domainvdg.NormalizedDNA {
	return &domainvdg.NormalizedDNA{
		Hook:              domainvdg.Hook{Type: "problem_solution", DurationSec: 2.5},
		MicrobeatSequence: []string{"setup:text", "build:visual", "punch:audio"},
		VisualPatterns:    []string{"zoom_in", "cut"},
		AudioFlags:        domainvdg.AudioFlags{IsTrending: true},
		PatternType:       domainvdg.PatternTypeHybrid,
	}
}

// TestClusteringDeterminism is spec.md §8 scenario 2: three variants of the
// same hook pattern, inserted in order, all assign to the same cluster.
func TestClusteringDeterminism(t *testing.T) {
	root := &domaincluster.PatternCluster{
		ClusterID:   "cl_root",
		PatternType: string(domainvdg.PatternTypeHybrid),
		MemberCount: 1,
	}
	candidates := []CandidateDNA{{Cluster: root, DNA: problemSolutionDNA()}}

	variantB := problemSolutionDNA()
	variantB.VisualPatterns = []string{"zoom_in", "cut", "pan"} // minor drift

	assignment := Assign(variantB, candidates)
	if assignment.IsNew {
		t.Fatalf("expected variant B to assign to the existing cluster, got a new cluster")
	}
	if assignment.Cluster.ClusterID != "cl_root" {
		t.Fatalf("expected cl_root, got %s", assignment.Cluster.ClusterID)
	}

	variantC := problemSolutionDNA()
	assignment = Assign(variantC, candidates)
	if assignment.IsNew || assignment.Cluster.ClusterID != "cl_root" {
		t.Fatalf("expected variant C to assign to cl_root, got %+v", assignment)
	}
}

func TestAssignCreatesNewClusterBelowThreshold(t *testing.T) {
	root := &domaincluster.PatternCluster{ClusterID: "cl_root", PatternType: "semantic"}
	candidates := []CandidateDNA{{Cluster: root, DNA: problemSolutionDNA()}}

	unrelated := &domainvdg.NormalizedDNA{
		Hook:              domainvdg.Hook{Type: "camera_whip", DurationSec: 0.4},
		MicrobeatSequence: []string{"reveal:motion"},
		VisualPatterns:    []string{"whip_pan"},
		AudioFlags:        domainvdg.AudioFlags{IsTrending: false},
		PatternType:       domainvdg.PatternTypeVisual,
	}
	assignment := Assign(unrelated, candidates)
	if !assignment.IsNew {
		t.Fatalf("expected a dissimilar DNA to fall below threshold and create a new cluster")
	}
}

func TestAssignTieBreaksOnMemberCountThenCreatedAt(t *testing.T) {
	dna := problemSolutionDNA()
	older := &domaincluster.PatternCluster{ClusterID: "cl_older", PatternType: "hybrid", MemberCount: 5, CreatedAt: time.Unix(100, 0)}
	newer := &domaincluster.PatternCluster{ClusterID: "cl_newer", PatternType: "hybrid", MemberCount: 5, CreatedAt: time.Unix(200, 0)}

	// Pre-ordered by (member_count DESC, created_at ASC), as ListCandidates returns.
	candidates := []CandidateDNA{
		{Cluster: older, DNA: dna},
		{Cluster: newer, DNA: dna},
	}
	assignment := Assign(dna, candidates)
	if assignment.Cluster.ClusterID != "cl_older" {
		t.Fatalf("expected the tie-break to prefer the first pre-ordered candidate, got %s", assignment.Cluster.ClusterID)
	}
}

func TestSimilarityEmptyDNAsReturnNoSignal(t *testing.T) {
	a := &domainvdg.NormalizedDNA{}
	b := &domainvdg.NormalizedDNA{}
	got := Similarity(a, b).Weighted()
	if got < 0.499 || got > 0.501 {
		t.Fatalf("expected two empty DNAs to score ~0.5 (no signal), got %f", got)
	}
}

func TestQualifiesForRecurrence(t *testing.T) {
	strong := Breakdown{MicrobeatSim: 0.8, HookSim: 0.75, AudioSim: 0.6}
	if !QualifiesForRecurrence(strong) {
		t.Fatalf("expected a strong breakdown to qualify for recurrence")
	}
	weak := Breakdown{MicrobeatSim: 0.5, HookSim: 0.75, AudioSim: 0.6}
	if QualifiesForRecurrence(weak) {
		t.Fatalf("expected a weak microbeat subscore to disqualify recurrence")
	}
}
