package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ds4psb/komission-core/internal/audit"
)

// staleRunningWindow mirrors the worker's own staleness window (internal/
// jobs/worker), so the audit flags exactly the runs an operator would
// consider stuck rather than ones still within a normal heartbeat gap.
const staleRunningWindow = 30 * time.Minute

func runAuditPipelineState(ctx context.Context, deps Deps, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("audit_pipeline_state", stderr)
	limit := fs.Int("limit", 200, "maximum promoted outliers to scan")
	failOnIssue := fs.Bool("fail-on-issue", false, "exit non-zero if any inconsistency is found")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	report, err := audit.AuditPipelineState(ctx, deps.Runs, deps.Outliers, staleRunningWindow, *limit)
	if err != nil {
		fmt.Fprintf(stderr, "audit_pipeline_state: %v\n", err)
		return 1
	}

	if report.OK {
		fmt.Fprintln(stdout, "audit_pipeline_state: OK, no inconsistencies found")
		return 0
	}

	fmt.Fprintf(stdout, "audit_pipeline_state: FAIL, %d issue(s) found:\n", len(report.Issues))
	for _, issue := range report.Issues {
		fmt.Fprintf(stdout, "  - [%s] %s\n", issue.Kind, issue.Detail)
	}
	if *failOnIssue {
		return 1
	}
	return 0
}
