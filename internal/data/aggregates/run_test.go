package aggregates

import (
	"context"
	"testing"

	"gorm.io/gorm"

	runrepos "github.com/ds4psb/komission-core/internal/data/repos/runs"
	repotest "github.com/ds4psb/komission-core/internal/data/repos/testutil"
	domainruns "github.com/ds4psb/komission-core/internal/domain/runs"
	"github.com/ds4psb/komission-core/internal/platform/apperr"
)

func ensureRunTables(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := db.AutoMigrate(&domainruns.Run{}, &domainruns.Artifact{}); err != nil {
		t.Fatalf("AutoMigrate run tables: %v", err)
	}
}

func newRunAggregate(t *testing.T, tx *gorm.DB) (RunAggregate, runrepos.RunRepo, runrepos.ArtifactRepo) {
	t.Helper()
	log := repotest.Logger(t)
	runs := runrepos.NewRunRepo(tx, log)
	artifacts := runrepos.NewArtifactRepo(tx, log)
	agg := NewRunAggregate(RunAggregateDeps{
		Base: BaseDeps{
			DB:       tx,
			Runner:   NewGormTxRunner(tx),
			CASGuard: NewCASGuard(tx),
		},
		Runs:      runs,
		Artifacts: artifacts,
	})
	return agg, runs, artifacts
}

func TestRunAggregateAcquireNewRun(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ensureRunTables(t, tx)

	agg, _, _ := newRunAggregate(t, tx)
	ctx := context.Background()

	run, skipped, err := agg.Acquire(ctx, AcquireRunInput{
		RunType:     domainruns.RunTypeAnalysis,
		Inputs:      map[string]any{"video_url": "https://x/1"},
		TriggeredBy: "test",
	})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if skipped {
		t.Fatalf("expected skipped=false for a fresh acquire")
	}
	if run.Status != domainruns.RunStatusRunning {
		t.Fatalf("status: want=RUNNING got=%s", run.Status)
	}
	if run.IdempotencyKey == "" {
		t.Fatalf("expected a non-empty idempotency_key")
	}
}

func TestRunAggregateAcquireConflictsWhileRunning(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ensureRunTables(t, tx)

	agg, _, _ := newRunAggregate(t, tx)
	ctx := context.Background()

	inputs := map[string]any{"video_url": "https://x/2"}
	if _, _, err := agg.Acquire(ctx, AcquireRunInput{RunType: domainruns.RunTypeAnalysis, Inputs: inputs}); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	_, _, err := agg.Acquire(ctx, AcquireRunInput{RunType: domainruns.RunTypeAnalysis, Inputs: inputs})
	if err == nil {
		t.Fatalf("expected conflict on second concurrent acquire")
	}
	if !apperr.Is(err, apperr.CodeConflict) {
		t.Fatalf("expected conflict code, got: %v", err)
	}
}

func TestRunAggregateAcquireSkipsCompleted(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ensureRunTables(t, tx)

	agg, _, _ := newRunAggregate(t, tx)
	ctx := context.Background()

	inputs := map[string]any{"video_url": "https://x/3"}
	first, _, err := agg.Acquire(ctx, AcquireRunInput{RunType: domainruns.RunTypeAnalysis, Inputs: inputs})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := agg.Complete(ctx, CompleteRunInput{Run: first, ResultSummary: map[string]any{"ok": true}}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	second, skipped, err := agg.Acquire(ctx, AcquireRunInput{
		RunType:      domainruns.RunTypeAnalysis,
		Inputs:       inputs,
		SkipIfExists: true,
	})
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if !skipped {
		t.Fatalf("expected skipped=true for a completed re-attempt")
	}
	if second.ID != first.ID {
		t.Fatalf("expected the existing completed run to be returned unchanged")
	}
}

func TestRunAggregateAddArtifactRequiresRunning(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ensureRunTables(t, tx)

	agg, _, _ := newRunAggregate(t, tx)
	ctx := context.Background()

	run, _, err := agg.Acquire(ctx, AcquireRunInput{RunType: domainruns.RunTypeClustering, Inputs: map[string]any{"a": 1}})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	artifact, err := agg.AddArtifact(ctx, AddArtifactInput{
		Run:          run,
		ArtifactType: "cluster_assignment",
		Name:         "assignment.json",
		Data:         map[string]any{"cluster_id": "c1"},
	})
	if err != nil {
		t.Fatalf("AddArtifact: %v", err)
	}
	if artifact.ContentHash == "" {
		t.Fatalf("expected a content_hash to be stamped")
	}

	completed, err := agg.Complete(ctx, CompleteRunInput{Run: run})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if _, err := agg.AddArtifact(ctx, AddArtifactInput{
		Run:          completed,
		ArtifactType: "cluster_assignment",
		Name:         "late.json",
		Data:         map[string]any{},
	}); err == nil {
		t.Fatalf("expected artifact writes to be rejected once the run is no longer RUNNING")
	} else if !apperr.Is(err, apperr.CodeInvariantViolation) {
		t.Fatalf("expected invariant violation code, got: %v", err)
	}
}

func TestRunAggregateFailDoesNotBlockRetry(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ensureRunTables(t, tx)

	agg, _, _ := newRunAggregate(t, tx)
	ctx := context.Background()

	inputs := map[string]any{"video_url": "https://x/4"}
	run, _, err := agg.Acquire(ctx, AcquireRunInput{RunType: domainruns.RunTypeAnalysis, Inputs: inputs})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := agg.Fail(ctx, FailRunInput{Run: run, ErrorMessage: "boom"}); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	retry, skipped, err := agg.Acquire(ctx, AcquireRunInput{RunType: domainruns.RunTypeAnalysis, Inputs: inputs})
	if err != nil {
		t.Fatalf("retry Acquire: %v", err)
	}
	if skipped {
		t.Fatalf("expected skipped=false: a FAILED run must not block retry")
	}
	if retry.ID == run.ID {
		t.Fatalf("expected a new run id on retry")
	}
	if retry.IdempotencyKey != run.IdempotencyKey {
		t.Fatalf("expected the retry to share the same idempotency_key")
	}
}
