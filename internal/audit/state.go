package audit

import (
	"context"
	"time"

	contentrepos "github.com/ds4psb/komission-core/internal/data/repos/content"
	runrepos "github.com/ds4psb/komission-core/internal/data/repos/runs"
	domaincontent "github.com/ds4psb/komission-core/internal/domain/content"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
)

// StateIssue is one inconsistency the state sweep found. Kind names the
// check that produced it so callers (and test assertions) don't have to
// parse Detail.
type StateIssue struct {
	Kind   string
	Detail string
}

// StateReport is AuditPipelineState's output.
type StateReport struct {
	OK     bool
	Issues []StateIssue
}

// AuditPipelineState walks the run queue and the outlier table for
// consistency violations that ClaimNextRunnable's staleness window alone
// doesn't surface — a RUNNING Run older than staleRunning means a worker
// died without failing it, and a promoted OutlierItem with no
// PromotedToNodeID means the promotion write was never completed.
//
// This is read-only: it reports, it does not requeue or repair. Operators
// use ClaimNextRunnable's own staleness recovery (or a manual requeue) once
// a stuck Run is identified.
func AuditPipelineState(ctx context.Context, runs runrepos.RunRepo, outliers contentrepos.OutlierRepo, staleRunning time.Duration, limit int) (StateReport, error) {
	dbc := dbctx.Context{Ctx: ctx}
	var issues []StateIssue

	staleRuns, err := runs.ListStaleRunning(dbc, staleRunning)
	if err != nil {
		return StateReport{}, err
	}
	for _, run := range staleRuns {
		issues = append(issues, StateIssue{
			Kind:   "stale_running_run",
			Detail: run.RunID,
		})
	}

	promoted, err := outliers.ListByStatus(dbc, domaincontent.OutlierStatusPromoted, limit)
	if err != nil {
		return StateReport{}, err
	}
	for _, item := range promoted {
		if item.PromotedToNodeID == nil {
			issues = append(issues, StateIssue{
				Kind:   "promoted_without_node",
				Detail: item.ID.String(),
			})
		}
	}

	return StateReport{OK: len(issues) == 0, Issues: issues}, nil
}
