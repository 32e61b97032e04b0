package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/types"
)

type NoteRepo interface {
	GetByStep(ctx context.Context, tx *gorm.DB, roadmapStepID uint) (*types.Note, error)
	Create(ctx context.Context, tx *gorm.DB, note *types.Note) (*types.Note, error)
}

type noteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNoteRepo(db *gorm.DB, baseLog *logger.Logger) NoteRepo {
	return &noteRepo{
		db:  db,
		log: baseLog.With("repo", "NoteRepo"),
	}
}

func (r *noteRepo) GetByStep(ctx context.Context, tx *gorm.DB, roadmapStepID uint) (*types.Note, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if roadmapStepID == 0 {
		return nil, nil
	}
	var note types.Note
	err := transaction.WithContext(ctx).
		Where("roadmap_step_id = ?", roadmapStepID).
		Limit(1).
		Find(&note).Error
	if err != nil {
		return nil, err
	}
	if note.ID == 0 {
		return nil, nil
	}
	return &note, nil
}

func (r *noteRepo) Create(ctx context.Context, tx *gorm.DB, note *types.Note) (*types.Note, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if note == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(note).Error; err != nil {
		return nil, err
	}
	return note, nil
}
