package aggregates

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	evidencerepos "github.com/ds4psb/komission-core/internal/data/repos/evidence"
	domainevidence "github.com/ds4psb/komission-core/internal/domain/evidence"
	"github.com/ds4psb/komission-core/internal/platform/apperr"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
)

// EvidenceAggregateDeps wires the Evidence Loop state machine to its table
// gateways.
type EvidenceAggregateDeps struct {
	Base BaseDeps

	Events    evidencerepos.EventRepo
	Snapshots evidencerepos.SnapshotRepo
	Decisions evidencerepos.DecisionRepo
}

// EvidenceAggregate drives the Evidence Loop state machine:
//
//	QUEUED -> RUNNING -> EVIDENCE_READY -> DECIDED -> EXECUTED -> MEASURED
//
// Any non-terminal state may transition to FAILED. MEASURED and FAILED are
// final. A single Event row is advanced by only one writer at a time via
// optimistic CAS on (id, version).
type EvidenceAggregate interface {
	// StartEvent inserts a new Event directly in RUNNING, stamping both
	// queued_at and running_at with the same time.
	StartEvent(ctx context.Context, in StartEventInput) (*domainevidence.Event, error)

	// MarkEvidenceReady transitions RUNNING -> EVIDENCE_READY. The referenced
	// Snapshot must already exist.
	MarkEvidenceReady(ctx context.Context, in MarkEvidenceReadyInput) (*domainevidence.Event, error)

	// Decide transitions EVIDENCE_READY -> DECIDED, creating the
	// DecisionObject and wiring the event's decision_object_id in the same
	// atomic write.
	Decide(ctx context.Context, in DecideInput) (*domainevidence.Event, *domainevidence.DecisionObject, error)

	// MarkExecuted transitions DECIDED -> EXECUTED.
	MarkExecuted(ctx context.Context, in AdvanceEventInput) (*domainevidence.Event, error)

	// MarkMeasured transitions EXECUTED -> MEASURED, closing the loop.
	MarkMeasured(ctx context.Context, in AdvanceEventInput) (*domainevidence.Event, error)

	// Fail transitions any non-terminal event to FAILED.
	Fail(ctx context.Context, in FailEventInput) (*domainevidence.Event, error)
}

type evidenceAggregate struct {
	deps EvidenceAggregateDeps
}

func NewEvidenceAggregate(deps EvidenceAggregateDeps) EvidenceAggregate {
	deps.Base = deps.Base.withDefaults()
	return &evidenceAggregate{deps: deps}
}

// legalTransitions encodes exactly the DAG in the Evidence Loop state
// machine. A requested transition outside this table fails with
// apperr.CodeIllegalTransition and leaves the row untouched.
var legalTransitions = map[domainevidence.Status]map[domainevidence.Status]bool{
	domainevidence.StatusQueued:        {domainevidence.StatusRunning: true, domainevidence.StatusFailed: true},
	domainevidence.StatusRunning:       {domainevidence.StatusEvidenceReady: true, domainevidence.StatusFailed: true},
	domainevidence.StatusEvidenceReady: {domainevidence.StatusDecided: true, domainevidence.StatusFailed: true},
	domainevidence.StatusDecided:       {domainevidence.StatusExecuted: true, domainevidence.StatusFailed: true},
	domainevidence.StatusExecuted:      {domainevidence.StatusMeasured: true, domainevidence.StatusFailed: true},
}

func isLegalEvidenceTransition(from, to domainevidence.Status) bool {
	allowed, ok := legalTransitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

func illegalTransitionError(op string, from, to domainevidence.Status) error {
	return apperr.New(apperr.CodeIllegalTransition, op, fmt.Sprintf("illegal evidence transition %s -> %s", from, to), nil)
}

type StartEventInput struct {
	ParentNodeID uuid.UUID
	RunID        *uuid.UUID
}

func (a *evidenceAggregate) StartEvent(ctx context.Context, in StartEventInput) (*domainevidence.Event, error) {
	const op = "Evidence.StartEvent"
	if a.deps.Events == nil {
		return nil, apperr.New(apperr.CodeInternal, op, "event repo not configured", nil)
	}
	if in.ParentNodeID == uuid.Nil {
		return nil, apperr.New(apperr.CodeValidation, op, "missing parent_node_id", nil)
	}

	var out *domainevidence.Event
	werr := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		now := time.Now().UTC()
		event := &domainevidence.Event{
			ID:           uuid.New(),
			ParentNodeID: in.ParentNodeID,
			RunID:        in.RunID,
			Status:       domainevidence.StatusRunning,
			QueuedAt:     now,
			RunningAt:    &now,
			Version:      0,
		}
		if err := a.deps.Events.Create(dbc, event); err != nil {
			return err
		}
		out = event
		return nil
	})
	if werr != nil {
		return nil, werr
	}
	return out, nil
}

type MarkEvidenceReadyInput struct {
	EventID            uuid.UUID
	EvidenceSnapshotID uuid.UUID
}

func (a *evidenceAggregate) MarkEvidenceReady(ctx context.Context, in MarkEvidenceReadyInput) (*domainevidence.Event, error) {
	const op = "Evidence.MarkEvidenceReady"
	if a.deps.Events == nil || a.deps.Snapshots == nil {
		return nil, apperr.New(apperr.CodeInternal, op, "event/snapshot repos not configured", nil)
	}
	if in.EventID == uuid.Nil || in.EvidenceSnapshotID == uuid.Nil {
		return nil, apperr.New(apperr.CodeValidation, op, "missing event_id or evidence_snapshot_id", nil)
	}

	var out *domainevidence.Event
	werr := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		event, err := a.deps.Events.LockByID(dbc, in.EventID)
		if err != nil {
			return err
		}
		if event == nil || event.ID == uuid.Nil {
			return apperr.New(apperr.CodeNotFound, op, fmt.Sprintf("evidence_event not found: %s", in.EventID), nil)
		}
		if !isLegalEvidenceTransition(event.Status, domainevidence.StatusEvidenceReady) {
			return illegalTransitionError(op, event.Status, domainevidence.StatusEvidenceReady)
		}

		snapshot, err := a.deps.Snapshots.GetByID(dbc, in.EvidenceSnapshotID)
		if err != nil {
			return err
		}
		if snapshot == nil {
			return apperr.New(apperr.CodeValidation, op, fmt.Sprintf("evidence_snapshot not found: %s", in.EvidenceSnapshotID), nil)
		}

		now := time.Now().UTC()
		ok, err := a.deps.Events.UpdateByVersion(dbc, event.ID, event.Version, map[string]any{
			"status":               domainevidence.StatusEvidenceReady,
			"evidence_snapshot_id": in.EvidenceSnapshotID,
			"evidence_ready_at":    now,
			"updated_at":           now,
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, fmt.Sprintf("evidence_event %s version changed concurrently", event.ID)); err != nil {
			return err
		}

		event.Status = domainevidence.StatusEvidenceReady
		event.EvidenceSnapshotID = &in.EvidenceSnapshotID
		event.EvidenceReadyAt = &now
		event.Version++
		out = event
		return nil
	})
	if werr != nil {
		return nil, werr
	}
	return out, nil
}

type DecideInput struct {
	EventID              uuid.UUID
	DecisionType         domainevidence.DecisionType
	DecisionJSON         []byte
	EvidenceSummary      string
	DecisionMethod       domainevidence.DecisionMethod
	DecidedBy            string
	TranscriptArtifactID *uuid.UUID
}

func (a *evidenceAggregate) Decide(ctx context.Context, in DecideInput) (*domainevidence.Event, *domainevidence.DecisionObject, error) {
	const op = "Evidence.Decide"
	if a.deps.Events == nil || a.deps.Decisions == nil {
		return nil, nil, apperr.New(apperr.CodeInternal, op, "event/decision repos not configured", nil)
	}
	if in.EventID == uuid.Nil {
		return nil, nil, apperr.New(apperr.CodeValidation, op, "missing event_id", nil)
	}

	var outEvent *domainevidence.Event
	var outDecision *domainevidence.DecisionObject
	werr := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		event, err := a.deps.Events.LockByID(dbc, in.EventID)
		if err != nil {
			return err
		}
		if event == nil || event.ID == uuid.Nil {
			return apperr.New(apperr.CodeNotFound, op, fmt.Sprintf("evidence_event not found: %s", in.EventID), nil)
		}
		if !isLegalEvidenceTransition(event.Status, domainevidence.StatusDecided) {
			return illegalTransitionError(op, event.Status, domainevidence.StatusDecided)
		}

		now := time.Now().UTC()
		decision := &domainevidence.DecisionObject{
			ID:                   uuid.New(),
			EventID:              event.ID,
			DecisionType:         in.DecisionType,
			DecisionJSON:         in.DecisionJSON,
			EvidenceSummary:      in.EvidenceSummary,
			DecisionMethod:       in.DecisionMethod,
			DecidedBy:            in.DecidedBy,
			DecidedAt:            now,
			TranscriptArtifactID: in.TranscriptArtifactID,
		}
		if err := a.deps.Decisions.Create(dbc, decision); err != nil {
			return err
		}

		ok, err := a.deps.Events.UpdateByVersion(dbc, event.ID, event.Version, map[string]any{
			"status":              domainevidence.StatusDecided,
			"decision_object_id":  decision.ID,
			"decided_at":          now,
			"updated_at":          now,
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, fmt.Sprintf("evidence_event %s version changed concurrently", event.ID)); err != nil {
			return err
		}

		event.Status = domainevidence.StatusDecided
		event.DecisionObjectID = &decision.ID
		event.DecidedAt = &now
		event.Version++
		outEvent = event
		outDecision = decision
		return nil
	})
	if werr != nil {
		return nil, nil, werr
	}
	return outEvent, outDecision, nil
}

type AdvanceEventInput struct {
	EventID uuid.UUID
}

func (a *evidenceAggregate) MarkExecuted(ctx context.Context, in AdvanceEventInput) (*domainevidence.Event, error) {
	return a.advance(ctx, "Evidence.MarkExecuted", in.EventID, domainevidence.StatusExecuted, "executed_at")
}

func (a *evidenceAggregate) MarkMeasured(ctx context.Context, in AdvanceEventInput) (*domainevidence.Event, error) {
	return a.advance(ctx, "Evidence.MarkMeasured", in.EventID, domainevidence.StatusMeasured, "measured_at")
}

func (a *evidenceAggregate) advance(ctx context.Context, op string, eventID uuid.UUID, to domainevidence.Status, stampColumn string) (*domainevidence.Event, error) {
	if a.deps.Events == nil {
		return nil, apperr.New(apperr.CodeInternal, op, "event repo not configured", nil)
	}
	if eventID == uuid.Nil {
		return nil, apperr.New(apperr.CodeValidation, op, "missing event_id", nil)
	}

	var out *domainevidence.Event
	werr := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		event, err := a.deps.Events.LockByID(dbc, eventID)
		if err != nil {
			return err
		}
		if event == nil || event.ID == uuid.Nil {
			return apperr.New(apperr.CodeNotFound, op, fmt.Sprintf("evidence_event not found: %s", eventID), nil)
		}
		if !isLegalEvidenceTransition(event.Status, to) {
			return illegalTransitionError(op, event.Status, to)
		}

		now := time.Now().UTC()
		ok, err := a.deps.Events.UpdateByVersion(dbc, event.ID, event.Version, map[string]any{
			"status":    to,
			stampColumn: now,
			"updated_at": now,
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, fmt.Sprintf("evidence_event %s version changed concurrently", event.ID)); err != nil {
			return err
		}

		event.Status = to
		switch stampColumn {
		case "executed_at":
			event.ExecutedAt = &now
		case "measured_at":
			event.MeasuredAt = &now
		}
		event.Version++
		out = event
		return nil
	})
	if werr != nil {
		return nil, werr
	}
	return out, nil
}

type FailEventInput struct {
	EventID      uuid.UUID
	ErrorMessage string
}

func (a *evidenceAggregate) Fail(ctx context.Context, in FailEventInput) (*domainevidence.Event, error) {
	const op = "Evidence.Fail"
	if a.deps.Events == nil {
		return nil, apperr.New(apperr.CodeInternal, op, "event repo not configured", nil)
	}
	if in.EventID == uuid.Nil {
		return nil, apperr.New(apperr.CodeValidation, op, "missing event_id", nil)
	}

	var out *domainevidence.Event
	werr := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		event, err := a.deps.Events.LockByID(dbc, in.EventID)
		if err != nil {
			return err
		}
		if event == nil || event.ID == uuid.Nil {
			return apperr.New(apperr.CodeNotFound, op, fmt.Sprintf("evidence_event not found: %s", in.EventID), nil)
		}
		if !isLegalEvidenceTransition(event.Status, domainevidence.StatusFailed) {
			return illegalTransitionError(op, event.Status, domainevidence.StatusFailed)
		}

		ok, err := a.deps.Events.UpdateByVersion(dbc, event.ID, event.Version, map[string]any{
			"status":        domainevidence.StatusFailed,
			"error_message": in.ErrorMessage,
			"updated_at":    time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, fmt.Sprintf("evidence_event %s version changed concurrently", event.ID)); err != nil {
			return err
		}

		event.Status = domainevidence.StatusFailed
		event.ErrorMessage = in.ErrorMessage
		event.Version++
		out = event
		return nil
	})
	if werr != nil {
		return nil, werr
	}
	return out, nil
}
