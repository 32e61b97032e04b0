package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/types"
)

type AttemptRepo interface {
	// Create always appends; attempts are never updated or deleted.
	Create(ctx context.Context, tx *gorm.DB, attempt *types.Attempt) (*types.Attempt, error)
	ListByUserAndSet(ctx context.Context, tx *gorm.DB, userID, questionSetID uint) ([]*types.Attempt, error)
}

type attemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttemptRepo(db *gorm.DB, baseLog *logger.Logger) AttemptRepo {
	return &attemptRepo{
		db:  db,
		log: baseLog.With("repo", "AttemptRepo"),
	}
}

func (r *attemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *types.Attempt) (*types.Attempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if attempt == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(attempt).Error; err != nil {
		return nil, err
	}
	return attempt, nil
}

func (r *attemptRepo) ListByUserAndSet(ctx context.Context, tx *gorm.DB, userID, questionSetID uint) ([]*types.Attempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Attempt
	if userID == 0 || questionSetID == 0 {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND question_set_id = ?", userID, questionSetID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
