package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/types"
)

type PipelineRunRepo interface {
	Enqueue(ctx context.Context, tx *gorm.DB, run *types.PipelineRun) (*types.PipelineRun, error)
	// ClaimNextRunnable picks one runnable job and marks it running. Runnable
	// means queued, failed with attempts left after the retry delay, or
	// running with a stale heartbeat (crashed worker reclaim).
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay, staleRunning time.Duration) (*types.PipelineRun, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uint, updates map[string]interface{}) error
	Heartbeat(ctx context.Context, tx *gorm.DB, id uint) error
	GetLatestByDocument(ctx context.Context, tx *gorm.DB, documentID uint, jobType string) (*types.PipelineRun, error)
	MaxVersionForDocument(ctx context.Context, tx *gorm.DB, documentID uint) (int, error)
}

type pipelineRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPipelineRunRepo(db *gorm.DB, baseLog *logger.Logger) PipelineRunRepo {
	return &pipelineRunRepo{
		db:  db,
		log: baseLog.With("repo", "PipelineRunRepo"),
	}
}

func (r *pipelineRunRepo) Enqueue(ctx context.Context, tx *gorm.DB, run *types.PipelineRun) (*types.PipelineRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if run == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *pipelineRunRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay, staleRunning time.Duration) (*types.PipelineRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	var claimed *types.PipelineRun
	err := transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		var run types.PipelineRun
		err := inner.
			Where("status = ?", types.RunStatusQueued).
			Or("status = ? AND attempts < ? AND updated_at < ?", types.RunStatusFailed, maxAttempts, now.Add(-retryDelay)).
			Or("status = ? AND (heartbeat_at IS NULL OR heartbeat_at < ?)", types.RunStatusRunning, now.Add(-staleRunning)).
			Order("created_at ASC").
			Limit(1).
			Find(&run).Error
		if err != nil {
			return err
		}
		if run.ID == 0 {
			return nil
		}
		updates := map[string]interface{}{
			"status":       types.RunStatusRunning,
			"attempts":     run.Attempts + 1,
			"heartbeat_at": now,
			"started_at":   now,
			"updated_at":   now,
		}
		if err := inner.Model(&types.PipelineRun{}).Where("id = ?", run.ID).Updates(updates).Error; err != nil {
			return err
		}
		run.Status = types.RunStatusRunning
		run.Attempts++
		claimed = &run
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *pipelineRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uint, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == 0 || len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	return transaction.WithContext(ctx).
		Model(&types.PipelineRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *pipelineRunRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uint) error {
	return r.UpdateFields(ctx, tx, id, map[string]interface{}{
		"heartbeat_at": time.Now().UTC(),
	})
}

func (r *pipelineRunRepo) GetLatestByDocument(ctx context.Context, tx *gorm.DB, documentID uint, jobType string) (*types.PipelineRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if documentID == 0 {
		return nil, nil
	}
	var run types.PipelineRun
	err := transaction.WithContext(ctx).
		Where("document_id = ? AND job_type = ?", documentID, jobType).
		Order("created_at DESC").
		Limit(1).
		Find(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == 0 {
		return nil, nil
	}
	return &run, nil
}

func (r *pipelineRunRepo) MaxVersionForDocument(ctx context.Context, tx *gorm.DB, documentID uint) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if documentID == 0 {
		return 0, nil
	}
	var max *int
	err := transaction.WithContext(ctx).
		Model(&types.PipelineRun{}).
		Where("document_id = ?", documentID).
		Select("MAX(version)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}
