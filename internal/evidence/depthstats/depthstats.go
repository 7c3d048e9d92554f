// Package depthstats computes per-parent-node rollups of genealogy depth
// versus fork success rate, feeding the track_depth_experiment CLI command
// (spec.md §6; computation supplemented per SPEC_FULL.md §10 from the
// original's depth_experiments service, which the distilled spec names but
// never describes).
package depthstats

import (
	"context"
	"time"

	"github.com/google/uuid"

	contentrepos "github.com/ds4psb/komission-core/internal/data/repos/content"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
)

// DepthBucket is one genealogy depth's rollup for a single parent tree.
type DepthBucket struct {
	Depth         int
	ForkCount     int
	PublishedCount int
	ProofReadyCount int
	SuccessRate   float64 // PublishedCount / ForkCount
}

// Report is the full per-parent-node experiment summary.
type Report struct {
	ParentNodeID uuid.UUID
	TotalForks   int
	Buckets      []DepthBucket
}

// Compute walks the fork tree rooted at parentNodeID breadth-first, bucketing
// descendants by genealogy_depth. Forks created before `since` (zero value
// disables the filter, for --all runs) are excluded, mirroring
// track_depth_experiment's --days window. A node with zero forks still
// returns a Report with an empty Buckets slice, not an error — "no
// experiment data yet" is a valid outcome, not a failure.
func Compute(ctx context.Context, nodes contentrepos.PatternNodeRepo, parentNodeID uuid.UUID, since time.Time) (Report, error) {
	dbc := dbctx.Context{Ctx: ctx}

	byDepth := map[int]*DepthBucket{}
	total := 0

	frontier := []uuid.UUID{parentNodeID}
	for len(frontier) > 0 {
		var next []uuid.UUID
		for _, id := range frontier {
			children, err := nodes.ListChildren(dbc, id)
			if err != nil {
				return Report{}, err
			}
			for _, child := range children {
				next = append(next, child.ID)
				if !since.IsZero() && child.CreatedAt.Before(since) {
					continue
				}
				total++
				b := byDepth[child.GenealogyDepth]
				if b == nil {
					b = &DepthBucket{Depth: child.GenealogyDepth}
					byDepth[child.GenealogyDepth] = b
				}
				b.ForkCount++
				if child.IsPublished {
					b.PublishedCount++
				}
				if child.ProofReady {
					b.ProofReadyCount++
				}
			}
		}
		frontier = next
	}

	report := Report{ParentNodeID: parentNodeID, TotalForks: total}
	for _, b := range byDepth {
		if b.ForkCount > 0 {
			b.SuccessRate = float64(b.PublishedCount) / float64(b.ForkCount)
		}
		report.Buckets = append(report.Buckets, *b)
	}
	return report, nil
}
