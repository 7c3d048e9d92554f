package aggregates

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	runrepos "github.com/ds4psb/komission-core/internal/data/repos/runs"
	domainruns "github.com/ds4psb/komission-core/internal/domain/runs"
	"github.com/ds4psb/komission-core/internal/platform/apperr"
	"github.com/ds4psb/komission-core/internal/platform/canonjson"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
	"github.com/ds4psb/komission-core/internal/platform/idgen"
)

// RunAggregateDeps wires the Run/Artifact engine to its table gateways.
type RunAggregateDeps struct {
	Base BaseDeps

	Runs      runrepos.RunRepo
	Artifacts runrepos.ArtifactRepo
}

// RunAggregate enforces at-most-one-concurrent-execution and
// at-most-one-successful-completion per (run_type, idempotency_key).
type RunAggregate interface {
	// Acquire computes idempotency_key = SHA256(canonical_json(inputs)). If a
	// COMPLETED Run with this key exists and skipIfExists is true, it is
	// returned with skipped=true and no new row is written. Otherwise a new
	// RUNNING Run is inserted; a RUNNING Run already holding the key fails
	// with Conflict.
	Acquire(ctx context.Context, in AcquireRunInput) (run *domainruns.Run, skipped bool, err error)

	// AddArtifact is legal only while the Run is RUNNING. It stamps
	// content_hash from the canonical JSON of data; artifacts are immutable
	// once written.
	AddArtifact(ctx context.Context, in AddArtifactInput) (*domainruns.Artifact, error)

	// Complete transitions a RUNNING Run to COMPLETED under its current
	// version, recording result_summary, ended_at and duration_ms.
	Complete(ctx context.Context, in CompleteRunInput) (*domainruns.Run, error)

	// Fail transitions a RUNNING Run to FAILED under its current version.
	// FAILED runs never block retry: a retry acquires a fresh Run row
	// sharing the same idempotency_key.
	Fail(ctx context.Context, in FailRunInput) (*domainruns.Run, error)
}

type runAggregate struct {
	deps RunAggregateDeps
}

func NewRunAggregate(deps RunAggregateDeps) RunAggregate {
	deps.Base = deps.Base.withDefaults()
	return &runAggregate{deps: deps}
}

type AcquireRunInput struct {
	RunType      domainruns.RunType
	Inputs       any
	TriggeredBy  string
	ParentRunID  *uuid.UUID
	SkipIfExists bool
}

func (a *runAggregate) Acquire(ctx context.Context, in AcquireRunInput) (*domainruns.Run, bool, error) {
	const op = "Runs.Acquire"
	if a.deps.Runs == nil {
		return nil, false, apperr.New(apperr.CodeInternal, op, "run repo not configured", nil)
	}
	if in.RunType == "" {
		return nil, false, apperr.New(apperr.CodeValidation, op, "missing run_type", nil)
	}

	canon, err := canonjson.Marshal(in.Inputs)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.CodeValidation, op, err)
	}
	key := canonjson.HashBytes(canon)

	var out *domainruns.Run
	var skipped bool

	werr := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if in.SkipIfExists {
			completed, err := a.deps.Runs.GetCompletedByTypeAndKey(dbc, in.RunType, key)
			if err != nil {
				return err
			}
			if completed != nil {
				out = completed
				skipped = true
				return nil
			}
		}

		running, err := a.deps.Runs.GetRunningByTypeAndKey(dbc, in.RunType, key)
		if err != nil {
			return err
		}
		if running != nil {
			return ConflictError(fmt.Sprintf("run already in flight for run_type=%s idempotency_key=%s", in.RunType, key))
		}

		now := time.Now().UTC()
		run := &domainruns.Run{
			ID:             uuid.New(),
			RunID:          idgen.New("run"),
			RunType:        in.RunType,
			Status:         domainruns.RunStatusRunning,
			IdempotencyKey: key,
			InputsJSON:     datatypes.JSON(canon),
			TriggeredBy:    in.TriggeredBy,
			ParentRunID:    in.ParentRunID,
			StartedAt:      &now,
			Version:        0,
		}
		if err := a.deps.Runs.Create(dbc, run); err != nil {
			return err
		}
		out = run
		skipped = false
		return nil
	})
	if werr != nil {
		return nil, false, werr
	}
	return out, skipped, nil
}

type AddArtifactInput struct {
	Run          *domainruns.Run
	ArtifactType string
	Name         string
	Data         any
	StorageType  domainruns.StorageType
	StoragePath  string
	MimeType     string
}

func (a *runAggregate) AddArtifact(ctx context.Context, in AddArtifactInput) (*domainruns.Artifact, error) {
	const op = "Runs.AddArtifact"
	if a.deps.Runs == nil || a.deps.Artifacts == nil {
		return nil, apperr.New(apperr.CodeInternal, op, "run/artifact repos not configured", nil)
	}
	if in.Run == nil || in.Run.ID == uuid.Nil {
		return nil, apperr.New(apperr.CodeValidation, op, "missing run", nil)
	}
	if in.ArtifactType == "" || in.Name == "" {
		return nil, apperr.New(apperr.CodeValidation, op, "missing artifact_type or name", nil)
	}

	canon, err := canonjson.Marshal(in.Data)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, op, err)
	}
	storageType := in.StorageType
	if storageType == "" {
		storageType = domainruns.StorageTypeDB
	}

	var out *domainruns.Artifact
	werr := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		run, err := a.deps.Runs.LockByID(dbc, in.Run.ID)
		if err != nil {
			return err
		}
		if run == nil || run.ID == uuid.Nil {
			return apperr.New(apperr.CodeNotFound, op, fmt.Sprintf("run not found: %s", in.Run.ID), nil)
		}
		if run.Status != domainruns.RunStatusRunning {
			return InvariantError(fmt.Sprintf("cannot add artifact when run status is %q", run.Status))
		}

		artifact := &domainruns.Artifact{
			ID:            uuid.New(),
			ArtifactType:  in.ArtifactType,
			Name:          in.Name,
			StorageType:   storageType,
			StoragePath:   in.StoragePath,
			ContentHash:   canonjson.HashBytes(canon),
			DataJSON:      datatypes.JSON(canon),
			SizeBytes:     int64(len(canon)),
			MimeType:      in.MimeType,
			RunID:         run.ID,
		}
		if err := a.deps.Artifacts.Create(dbc, artifact); err != nil {
			return err
		}
		out = artifact
		return nil
	})
	if werr != nil {
		return nil, werr
	}
	return out, nil
}

type CompleteRunInput struct {
	Run           *domainruns.Run
	ResultSummary any
}

func (a *runAggregate) Complete(ctx context.Context, in CompleteRunInput) (*domainruns.Run, error) {
	const op = "Runs.Complete"
	return a.terminate(ctx, op, in.Run, domainruns.RunStatusCompleted, in.ResultSummary, "")
}

type FailRunInput struct {
	Run            *domainruns.Run
	ErrorMessage   string
	ErrorTraceback string
}

func (a *runAggregate) Fail(ctx context.Context, in FailRunInput) (*domainruns.Run, error) {
	const op = "Runs.Fail"
	run, err := a.terminateFail(ctx, op, in.Run, in.ErrorMessage, in.ErrorTraceback)
	return run, err
}

func (a *runAggregate) terminate(ctx context.Context, op string, run *domainruns.Run, status domainruns.RunStatus, resultSummary any, errMsg string) (*domainruns.Run, error) {
	if a.deps.Runs == nil {
		return nil, apperr.New(apperr.CodeInternal, op, "run repo not configured", nil)
	}
	if run == nil || run.ID == uuid.Nil {
		return nil, apperr.New(apperr.CodeValidation, op, "missing run", nil)
	}

	var summaryJSON datatypes.JSON
	if resultSummary != nil {
		canon, err := canonjson.Marshal(resultSummary)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeValidation, op, err)
		}
		summaryJSON = datatypes.JSON(canon)
	}

	var out *domainruns.Run
	werr := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		locked, err := a.deps.Runs.LockByID(dbc, run.ID)
		if err != nil {
			return err
		}
		if locked == nil || locked.ID == uuid.Nil {
			return apperr.New(apperr.CodeNotFound, op, fmt.Sprintf("run not found: %s", run.ID), nil)
		}
		if locked.Status != domainruns.RunStatusRunning {
			return InvariantError(fmt.Sprintf("cannot complete run from status %q", locked.Status))
		}

		now := time.Now().UTC()
		var durationMs *int64
		if locked.StartedAt != nil {
			d := now.Sub(*locked.StartedAt).Milliseconds()
			durationMs = &d
		}

		updates := map[string]any{
			"status":         status,
			"ended_at":       now,
			"duration_ms":    durationMs,
			"result_summary": summaryJSON,
			"error_message":  errMsg,
		}
		ok, err := a.deps.Runs.UpdateByVersion(dbc, locked.ID, locked.Version, updates)
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, fmt.Sprintf("run %s version changed concurrently", locked.ID)); err != nil {
			return err
		}

		locked.Status = status
		locked.EndedAt = &now
		locked.DurationMs = durationMs
		locked.ResultSummary = summaryJSON
		locked.ErrorMessage = errMsg
		locked.Version++
		out = locked
		return nil
	})
	if werr != nil {
		return nil, werr
	}
	return out, nil
}

func (a *runAggregate) terminateFail(ctx context.Context, op string, run *domainruns.Run, errMsg, traceback string) (*domainruns.Run, error) {
	if a.deps.Runs == nil {
		return nil, apperr.New(apperr.CodeInternal, op, "run repo not configured", nil)
	}
	if run == nil || run.ID == uuid.Nil {
		return nil, apperr.New(apperr.CodeValidation, op, "missing run", nil)
	}

	var out *domainruns.Run
	werr := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		locked, err := a.deps.Runs.LockByID(dbc, run.ID)
		if err != nil {
			return err
		}
		if locked == nil || locked.ID == uuid.Nil {
			return apperr.New(apperr.CodeNotFound, op, fmt.Sprintf("run not found: %s", run.ID), nil)
		}
		if locked.Status != domainruns.RunStatusRunning {
			return InvariantError(fmt.Sprintf("cannot fail run from status %q", locked.Status))
		}

		now := time.Now().UTC()
		var durationMs *int64
		if locked.StartedAt != nil {
			d := now.Sub(*locked.StartedAt).Milliseconds()
			durationMs = &d
		}

		updates := map[string]any{
			"status":          domainruns.RunStatusFailed,
			"ended_at":        now,
			"duration_ms":     durationMs,
			"error_message":   errMsg,
			"error_traceback": traceback,
		}
		ok, err := a.deps.Runs.UpdateByVersion(dbc, locked.ID, locked.Version, updates)
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, fmt.Sprintf("run %s version changed concurrently", locked.ID)); err != nil {
			return err
		}

		locked.Status = domainruns.RunStatusFailed
		locked.EndedAt = &now
		locked.DurationMs = durationMs
		locked.ErrorMessage = errMsg
		locked.ErrorTraceback = traceback
		locked.Version++
		out = locked
		return nil
	})
	if werr != nil {
		return nil, werr
	}
	return out, nil
}
