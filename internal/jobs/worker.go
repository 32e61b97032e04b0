package jobs

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/types"
)

const (
	pollInterval   = 1 * time.Second
	heartbeatEvery = 30 * time.Second
	maxAttempts    = 5
	retryDelay     = 30 * time.Second
	staleRunning   = 2 * time.Minute
)

// Worker polls for runnable pipeline runs and dispatches them to registered
// handlers, one at a time. Claiming marks the row running and bumps its
// attempt count; a crashed worker's claim expires via the stale-heartbeat
// window and the row becomes claimable again.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	runRepo  repos.PipelineRunRepo
	registry *Registry
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, runRepo repos.PipelineRunRepo, registry *Registry) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		runRepo:  runRepo,
		registry: registry,
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run, err := w.runRepo.ClaimNextRunnable(ctx, nil, maxAttempts, retryDelay, staleRunning)
				if err != nil {
					w.log.Warn("ClaimNextRunnable failed", "error", err)
					continue
				}
				if run == nil {
					continue
				}
				w.dispatch(ctx, run)
			}
		}
	}()
}

func (w *Worker) dispatch(ctx context.Context, run *types.PipelineRun) {
	handler, ok := w.registry.Get(run.JobType)
	if !ok {
		w.log.Warn("No handler registered for job type",
			"job_type", run.JobType,
			"run_id", run.ID)
		w.markFailed(ctx, run, fmt.Errorf("no handler registered for job_type=%s", run.JobType))
		return
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	go w.heartbeat(hbCtx, run.ID)
	defer stopHeartbeat()

	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Job handler panicked",
				"run_id", run.ID,
				"job_type", run.JobType,
				"panic", r)
			w.markFailed(ctx, run, fmt.Errorf("handler panic: %v", r))
		}
	}()

	if err := handler.Run(ctx, run); err != nil {
		// Handlers record their own failure state; this is just the worker's
		// view of the outcome.
		w.log.Warn("Job handler failed",
			"run_id", run.ID,
			"job_type", run.JobType,
			"attempts", run.Attempts,
			"error", err)
		return
	}
	w.log.Info("Job completed", "run_id", run.ID, "job_type", run.JobType)
}

func (w *Worker) heartbeat(ctx context.Context, runID uint) {
	ticker := time.NewTicker(heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.runRepo.Heartbeat(ctx, nil, runID); err != nil {
				w.log.Warn("Heartbeat failed", "run_id", runID, "error", err)
			}
		}
	}
}

func (w *Worker) markFailed(ctx context.Context, run *types.PipelineRun, cause error) {
	now := time.Now().UTC()
	err := w.runRepo.UpdateFields(ctx, nil, run.ID, map[string]interface{}{
		"status":      types.RunStatusFailed,
		"error":       cause.Error(),
		"finished_at": now,
	})
	if err != nil {
		w.log.Error("Failed to mark run failed", "run_id", run.ID, "error", err)
	}
}
