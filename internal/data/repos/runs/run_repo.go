package runs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainruns "github.com/ds4psb/komission-core/internal/domain/runs"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
	"github.com/ds4psb/komission-core/internal/platform/logger"
)

// RunRepo is the table-level gateway for Run rows. Invariant enforcement
// (at most one COMPLETED row per (run_type, idempotency_key), RUNNING-only
// artifact writes) lives one layer up in the aggregate, not here.
type RunRepo interface {
	Create(dbc dbctx.Context, run *domainruns.Run) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domainruns.Run, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*domainruns.Run, error)
	GetCompletedByTypeAndKey(dbc dbctx.Context, runType domainruns.RunType, idempotencyKey string) (*domainruns.Run, error)
	GetRunningByTypeAndKey(dbc dbctx.Context, runType domainruns.RunType, idempotencyKey string) (*domainruns.Run, error)
	UpdateByVersion(dbc dbctx.Context, id uuid.UUID, expectedVersion int, updates map[string]any) (bool, error)

	// ClaimNextRunnable atomically claims the oldest QUEUED row of runType
	// (or a RUNNING row whose heartbeat has gone stale past staleRunning),
	// using SELECT ... FOR UPDATE SKIP LOCKED so concurrent workers never
	// claim the same Run twice.
	ClaimNextRunnable(dbc dbctx.Context, runType domainruns.RunType, staleRunning time.Duration) (*domainruns.Run, error)

	// ListStaleRunning returns RUNNING rows whose heartbeat (updated_at) is
	// older than staleRunning, across all run types. Unlike
	// ClaimNextRunnable this never locks or mutates rows — it exists for
	// read-only diagnostics (audit_pipeline_state) that must not reclaim a
	// Run just by looking at it.
	ListStaleRunning(dbc dbctx.Context, staleRunning time.Duration) ([]*domainruns.Run, error)
}

type runRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRunRepo(db *gorm.DB, baseLog *logger.Logger) RunRepo {
	return &runRepo{db: db, log: baseLog.With("repo", "RunRepo")}
}

func (r *runRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *runRepo) Create(dbc dbctx.Context, run *domainruns.Run) error {
	return r.tx(dbc).Create(run).Error
}

func (r *runRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domainruns.Run, error) {
	var out domainruns.Run
	if err := r.tx(dbc).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *runRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*domainruns.Run, error) {
	var out domainruns.Run
	err := r.tx(dbc).
		Clauses(clauseLockingUpdate()).
		Where("id = ?", id).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *runRepo) GetCompletedByTypeAndKey(dbc dbctx.Context, runType domainruns.RunType, idempotencyKey string) (*domainruns.Run, error) {
	var out domainruns.Run
	err := r.tx(dbc).
		Where("run_type = ? AND idempotency_key = ? AND status = ?", runType, idempotencyKey, domainruns.RunStatusCompleted).
		Order("created_at DESC").
		First(&out).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *runRepo) GetRunningByTypeAndKey(dbc dbctx.Context, runType domainruns.RunType, idempotencyKey string) (*domainruns.Run, error) {
	var out domainruns.Run
	err := r.tx(dbc).
		Clauses(clauseLockingUpdate()).
		Where("run_type = ? AND idempotency_key = ? AND status = ?", runType, idempotencyKey, domainruns.RunStatusRunning).
		Order("created_at DESC").
		First(&out).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *runRepo) UpdateByVersion(dbc dbctx.Context, id uuid.UUID, expectedVersion int, updates map[string]any) (bool, error) {
	updates = withBumpedVersion(updates, expectedVersion)
	res := r.tx(dbc).Model(&domainruns.Run{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ClaimNextRunnable is grounded on the teacher's jobRunRepo.ClaimNextRunnable
// (SELECT ... FOR UPDATE SKIP LOCKED inside its own transaction, then an
// immediate status flip so no other worker can see the row as claimable),
// generalized from JobRun/job_type to Run/RunType.
func (r *runRepo) ClaimNextRunnable(dbc dbctx.Context, runType domainruns.RunType, staleRunning time.Duration) (*domainruns.Run, error) {
	base := dbc.Tx
	if base == nil {
		base = r.db
	}
	now := time.Now().UTC()
	staleCutoff := now.Add(-staleRunning)

	var claimed *domainruns.Run
	err := base.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var run domainruns.Run
		qErr := txx.Clauses(clauseLockingUpdateSkipLocked()).
			Where(`run_type = ? AND (status = ? OR (status = ? AND updated_at < ?))`,
				runType, domainruns.RunStatusQueued, domainruns.RunStatusRunning, staleCutoff).
			Order("created_at ASC").
			First(&run).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&domainruns.Run{}).
			Where("id = ? AND version = ?", run.ID, run.Version).
			Updates(map[string]any{
				"status":     domainruns.RunStatusRunning,
				"started_at": now,
				"version":    run.Version + 1,
				"updated_at": now,
			}).Error
		if uErr != nil {
			return uErr
		}
		run.Status = domainruns.RunStatusRunning
		run.Version++
		claimed = &run
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *runRepo) ListStaleRunning(dbc dbctx.Context, staleRunning time.Duration) ([]*domainruns.Run, error) {
	cutoff := time.Now().UTC().Add(-staleRunning)
	var out []*domainruns.Run
	err := r.tx(dbc).
		Where("status = ? AND updated_at < ?", domainruns.RunStatusRunning, cutoff).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func withBumpedVersion(updates map[string]any, expectedVersion int) map[string]any {
	out := make(map[string]any, len(updates)+2)
	for k, v := range updates {
		out[k] = v
	}
	out["version"] = expectedVersion + 1
	out["updated_at"] = time.Now().UTC()
	return out
}
