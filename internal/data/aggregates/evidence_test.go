package aggregates

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	evidencerepos "github.com/ds4psb/komission-core/internal/data/repos/evidence"
	repotest "github.com/ds4psb/komission-core/internal/data/repos/testutil"
	domainevidence "github.com/ds4psb/komission-core/internal/domain/evidence"
	"github.com/ds4psb/komission-core/internal/platform/apperr"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
)

func ensureEvidenceTables(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := db.AutoMigrate(&domainevidence.Event{}, &domainevidence.Snapshot{}, &domainevidence.DecisionObject{}); err != nil {
		t.Fatalf("AutoMigrate evidence tables: %v", err)
	}
}

func newEvidenceAggregate(t *testing.T, tx *gorm.DB) (EvidenceAggregate, evidencerepos.EventRepo, evidencerepos.SnapshotRepo) {
	t.Helper()
	log := repotest.Logger(t)
	events := evidencerepos.NewEventRepo(tx, log)
	snapshots := evidencerepos.NewSnapshotRepo(tx, log)
	decisions := evidencerepos.NewDecisionRepo(tx, log)
	agg := NewEvidenceAggregate(EvidenceAggregateDeps{
		Base: BaseDeps{
			DB:       tx,
			Runner:   NewGormTxRunner(tx),
			CASGuard: NewCASGuard(tx),
		},
		Events:    events,
		Snapshots: snapshots,
		Decisions: decisions,
	})
	return agg, events, snapshots
}

func TestEvidenceAggregateHappyPathToDecided(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ensureEvidenceTables(t, tx)

	agg, _, snapshots := newEvidenceAggregate(t, tx)
	ctx := context.Background()

	event, err := agg.StartEvent(ctx, StartEventInput{ParentNodeID: uuid.New()})
	if err != nil {
		t.Fatalf("StartEvent: %v", err)
	}
	if event.Status != domainevidence.StatusRunning {
		t.Fatalf("status: want=RUNNING got=%s", event.Status)
	}

	snapshot := &domainevidence.Snapshot{
		ID:                uuid.New(),
		EventID:           event.ID,
		Period:            "4w",
		Depth1SummaryJSON: []byte(`{}`),
		SampleCount:       10,
		Confidence:        0.8,
	}
	if err := snapshots.Create(dbctx.Context{Ctx: ctx}, snapshot); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	event, err = agg.MarkEvidenceReady(ctx, MarkEvidenceReadyInput{EventID: event.ID, EvidenceSnapshotID: snapshot.ID})
	if err != nil {
		t.Fatalf("MarkEvidenceReady: %v", err)
	}
	if event.Status != domainevidence.StatusEvidenceReady {
		t.Fatalf("status: want=EVIDENCE_READY got=%s", event.Status)
	}

	event, decision, err := agg.Decide(ctx, DecideInput{
		EventID:         event.ID,
		DecisionType:    domainevidence.DecisionGo,
		DecisionJSON:    json.RawMessage(`{"reason":"strong evidence"}`),
		EvidenceSummary: "go",
		DecisionMethod:  domainevidence.DecisionMethodAuto,
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if event.Status != domainevidence.StatusDecided {
		t.Fatalf("status: want=DECIDED got=%s", event.Status)
	}
	if event.DecisionObjectID == nil || *event.DecisionObjectID != decision.ID {
		t.Fatalf("expected event.decision_object_id to reference the new decision")
	}

	if _, err := agg.MarkExecuted(ctx, AdvanceEventInput{EventID: event.ID}); err != nil {
		t.Fatalf("MarkExecuted: %v", err)
	}
	final, err := agg.MarkMeasured(ctx, AdvanceEventInput{EventID: event.ID})
	if err != nil {
		t.Fatalf("MarkMeasured: %v", err)
	}
	if final.Status != domainevidence.StatusMeasured {
		t.Fatalf("status: want=MEASURED got=%s", final.Status)
	}
}

func TestEvidenceAggregateRejectsIllegalTransition(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ensureEvidenceTables(t, tx)

	agg, _, _ := newEvidenceAggregate(t, tx)
	ctx := context.Background()

	event, err := agg.StartEvent(ctx, StartEventInput{ParentNodeID: uuid.New()})
	if err != nil {
		t.Fatalf("StartEvent: %v", err)
	}

	_, _, err = agg.Decide(ctx, DecideInput{
		EventID:      event.ID,
		DecisionType: domainevidence.DecisionGo,
	})
	if err == nil {
		t.Fatalf("expected illegal transition: RUNNING cannot jump straight to DECIDED")
	}
	if !apperr.Is(err, apperr.CodeIllegalTransition) {
		t.Fatalf("expected illegal transition code, got: %v", err)
	}
}

func TestEvidenceAggregateFailFromAnyNonTerminalState(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	ensureEvidenceTables(t, tx)

	agg, _, _ := newEvidenceAggregate(t, tx)
	ctx := context.Background()

	event, err := agg.StartEvent(ctx, StartEventInput{ParentNodeID: uuid.New()})
	if err != nil {
		t.Fatalf("StartEvent: %v", err)
	}

	failed, err := agg.Fail(ctx, FailEventInput{EventID: event.ID, ErrorMessage: "evidence collection timed out"})
	if err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if failed.Status != domainevidence.StatusFailed {
		t.Fatalf("status: want=FAILED got=%s", failed.Status)
	}

	if _, err := agg.MarkExecuted(ctx, AdvanceEventInput{EventID: event.ID}); err == nil {
		t.Fatalf("expected FAILED to be a terminal state")
	}
}
