package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/types"
)

type StepProgressRepo interface {
	GetByUserStep(ctx context.Context, tx *gorm.DB, userID, roadmapStepID uint) (*types.StepProgress, error)
	GetByUserConcept(ctx context.Context, tx *gorm.DB, userID, conceptID uint) (*types.StepProgress, error)
	ListByUserSteps(ctx context.Context, tx *gorm.DB, userID uint, stepIDs []uint) ([]*types.StepProgress, error)
	ListByUserConcepts(ctx context.Context, tx *gorm.DB, userID uint, conceptIDs []uint) ([]*types.StepProgress, error)
	// Upsert writes the row keyed by (user, step). Monotonicity of status is
	// the caller's concern; this is plain storage.
	Upsert(ctx context.Context, tx *gorm.DB, progress *types.StepProgress) error
}

type stepProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStepProgressRepo(db *gorm.DB, baseLog *logger.Logger) StepProgressRepo {
	return &stepProgressRepo{
		db:  db,
		log: baseLog.With("repo", "StepProgressRepo"),
	}
}

func (r *stepProgressRepo) GetByUserStep(ctx context.Context, tx *gorm.DB, userID, roadmapStepID uint) (*types.StepProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == 0 || roadmapStepID == 0 {
		return nil, nil
	}
	var row types.StepProgress
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND roadmap_step_id = ?", userID, roadmapStepID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *stepProgressRepo) GetByUserConcept(ctx context.Context, tx *gorm.DB, userID, conceptID uint) (*types.StepProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == 0 || conceptID == 0 {
		return nil, nil
	}
	var row types.StepProgress
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND concept_id = ?", userID, conceptID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *stepProgressRepo) ListByUserSteps(ctx context.Context, tx *gorm.DB, userID uint, stepIDs []uint) ([]*types.StepProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.StepProgress
	if userID == 0 || len(stepIDs) == 0 {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND roadmap_step_id IN ?", userID, stepIDs).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *stepProgressRepo) ListByUserConcepts(ctx context.Context, tx *gorm.DB, userID uint, conceptIDs []uint) ([]*types.StepProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.StepProgress
	if userID == 0 || len(conceptIDs) == 0 {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND concept_id IN ?", userID, conceptIDs).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *stepProgressRepo) Upsert(ctx context.Context, tx *gorm.DB, progress *types.StepProgress) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if progress == nil || progress.UserID == 0 || progress.RoadmapStepID == 0 {
		return nil
	}
	progress.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "roadmap_step_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "mastery_score", "concept_id", "updated_at",
			}),
		}).
		Create(progress).Error
}
