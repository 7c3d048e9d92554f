// Package worker is the SQL-backed execution engine for the pipeline queue:
// it polls the run table for claimable rows, claims one with a DB-level
// SELECT ... FOR UPDATE SKIP LOCKED lease, and dispatches it to the handler
// registered for its RunType. Adapted from the teacher's job_run worker
// (internal/jobs/worker's original chat-pipeline version): same polling,
// claim, panic-recovery and fail-safety-net shape, generalized from
// JobRun/job_type to the Run/RunType queue table.
package worker

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"gorm.io/gorm"

	runrepos "github.com/ds4psb/komission-core/internal/data/repos/runs"
	domainruns "github.com/ds4psb/komission-core/internal/domain/runs"
	"github.com/ds4psb/komission-core/internal/jobs/runtime"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
	"github.com/ds4psb/komission-core/internal/platform/logger"
)

// Worker is infrastructure only: business logic lives in the handlers
// registered with runtime.Registry, which interact through runtime.Context.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	runs     runrepos.RunRepo
	registry *runtime.Registry
	runType  domainruns.RunType
}

func New(db *gorm.DB, baseLog *logger.Logger, runs runrepos.RunRepo, registry *runtime.Registry, runType domainruns.RunType) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "Worker", "run_type", string(runType)),
		runs:     runs,
		registry: registry,
		runType:  runType,
	}
}

// Start launches the worker pool for this RunType. Concurrency is read from
// WORKER_CONCURRENCY (default 4); the claim query's SKIP LOCKED clause is
// what keeps multiple goroutines (or processes) from double-executing a Run.
func (w *Worker) Start(ctx context.Context) {
	concurrency := getEnvInt("WORKER_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}
	w.log.Info("starting worker pool", "concurrency", concurrency)
	for i := 0; i < concurrency; i++ {
		go w.runLoop(ctx, i+1)
	}
}

const (
	pollInterval = time.Second
	staleRunning = 30 * time.Minute
)

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			w.tick(ctx, workerID)
		}
	}
}

func (w *Worker) tick(ctx context.Context, workerID int) {
	run, err := w.runs.ClaimNextRunnable(dbctx.Context{Ctx: ctx, Tx: w.db}, w.runType, staleRunning)
	if err != nil {
		w.log.Warn("claim failed", "worker_id", workerID, "error", err)
		return
	}
	if run == nil {
		return
	}

	handler, ok := w.registry.Get(run.RunType)
	if !ok {
		w.log.Warn("no handler registered", "worker_id", workerID, "run_id", run.RunID, "run_type", run.RunType)
		w.fail(ctx, run, fmt.Errorf("no handler registered for run_type %q", run.RunType))
		return
	}

	w.execute(ctx, run, handler, workerID)
}

func (w *Worker) execute(ctx context.Context, run *domainruns.Run, handler runtime.Handler, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("handler panicked", "worker_id", workerID, "run_id", run.RunID, "panic", r)
			w.fail(ctx, run, fmt.Errorf("handler panic: %v", r))
		}
	}()

	rc := runtime.Context{Ctx: ctx, DB: w.db, Run: run, Log: w.log.With("run_id", run.RunID)}
	if err := handler(rc); err != nil {
		w.fail(ctx, run, err)
		return
	}
}

func (w *Worker) fail(ctx context.Context, run *domainruns.Run, cause error) {
	_, err := w.runs.UpdateByVersion(dbctx.Context{Ctx: ctx, Tx: w.db}, run.ID, run.Version, map[string]any{
		"status":        domainruns.RunStatusFailed,
		"error_message": cause.Error(),
	})
	if err != nil {
		w.log.Warn("failed to record run failure", "run_id", run.RunID, "error", err)
	}
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
