package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/ds4psb/komission-core/internal/evidence/depthstats"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
)

func runTrackDepthExperiment(ctx context.Context, deps Deps, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("track_depth_experiment", stderr)
	parentID := fs.String("parent-id", "", "root pattern node id to report on")
	all := fs.Bool("all", false, "report on every root pattern node")
	days := fs.Int("days", 14, "only count forks created within this many days")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if (*parentID == "") == !*all {
		fmt.Fprintln(stderr, "track_depth_experiment: exactly one of --parent-id or --all is required")
		return 2
	}

	var since time.Time
	if *days > 0 {
		since = time.Now().UTC().AddDate(0, 0, -*days)
	}

	var roots []uuid.UUID
	if *all {
		nodes, err := deps.Nodes.ListRoots(dbctx.Context{Ctx: ctx})
		if err != nil {
			fmt.Fprintf(stderr, "track_depth_experiment: listing roots: %v\n", err)
			return 1
		}
		for _, n := range nodes {
			roots = append(roots, n.ID)
		}
	} else {
		id, err := uuid.Parse(*parentID)
		if err != nil {
			fmt.Fprintf(stderr, "track_depth_experiment: invalid --parent-id: %v\n", err)
			return 2
		}
		roots = []uuid.UUID{id}
	}

	for _, rootID := range roots {
		report, err := depthstats.Compute(ctx, deps.Nodes, rootID, since)
		if err != nil {
			fmt.Fprintf(stderr, "track_depth_experiment: %s: %v\n", rootID, err)
			return 1
		}
		fmt.Fprintf(stdout, "track_depth_experiment: parent_node_id=%s total_forks=%d\n", report.ParentNodeID, report.TotalForks)
		for _, b := range report.Buckets {
			fmt.Fprintf(stdout, "  depth=%d forks=%d published=%d proof_ready=%d success_rate=%.3f\n",
				b.Depth, b.ForkCount, b.PublishedCount, b.ProofReadyCount, b.SuccessRate)
		}
	}
	return 0
}
