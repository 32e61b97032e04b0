package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/types"
)

type FlashcardRepo interface {
	ListByStep(ctx context.Context, tx *gorm.DB, roadmapStepID uint) ([]*types.Flashcard, error)
	CreateBatch(ctx context.Context, tx *gorm.DB, cards []*types.Flashcard) ([]*types.Flashcard, error)
}

type flashcardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFlashcardRepo(db *gorm.DB, baseLog *logger.Logger) FlashcardRepo {
	return &flashcardRepo{
		db:  db,
		log: baseLog.With("repo", "FlashcardRepo"),
	}
}

func (r *flashcardRepo) ListByStep(ctx context.Context, tx *gorm.DB, roadmapStepID uint) ([]*types.Flashcard, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Flashcard
	if roadmapStepID == 0 {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("roadmap_step_id = ?", roadmapStepID).
		Order("card_order ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *flashcardRepo) CreateBatch(ctx context.Context, tx *gorm.DB, cards []*types.Flashcard) ([]*types.Flashcard, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(cards) == 0 {
		return []*types.Flashcard{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}
