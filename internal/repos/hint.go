package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/types"
)

type HintRepo interface {
	// Create returns gorm.ErrDuplicatedKey when the (user, step, hint_number)
	// slot is already taken; callers retry with the next number.
	Create(ctx context.Context, tx *gorm.DB, hint *types.Hint) (*types.Hint, error)
	CountByUserStep(ctx context.Context, tx *gorm.DB, userID, roadmapStepID uint) (int64, error)
	ListByUserStep(ctx context.Context, tx *gorm.DB, userID, roadmapStepID uint) ([]*types.Hint, error)
}

type hintRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHintRepo(db *gorm.DB, baseLog *logger.Logger) HintRepo {
	return &hintRepo{
		db:  db,
		log: baseLog.With("repo", "HintRepo"),
	}
}

func (r *hintRepo) Create(ctx context.Context, tx *gorm.DB, hint *types.Hint) (*types.Hint, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if hint == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(hint).Error; err != nil {
		return nil, err
	}
	return hint, nil
}

func (r *hintRepo) CountByUserStep(ctx context.Context, tx *gorm.DB, userID, roadmapStepID uint) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == 0 || roadmapStepID == 0 {
		return 0, nil
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.Hint{}).
		Where("user_id = ? AND roadmap_step_id = ?", userID, roadmapStepID).
		Count(&count).Error
	return count, err
}

func (r *hintRepo) ListByUserStep(ctx context.Context, tx *gorm.DB, userID, roadmapStepID uint) ([]*types.Hint, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Hint
	if userID == 0 || roadmapStepID == 0 {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND roadmap_step_id = ?", userID, roadmapStepID).
		Order("hint_number ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
