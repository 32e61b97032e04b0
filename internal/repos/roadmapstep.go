package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/types"
)

type RoadmapStepRepo interface {
	// UpsertForConcept reuses the existing (document, concept) row when one
	// exists, updating its order and version; otherwise it creates the row.
	UpsertForConcept(ctx context.Context, tx *gorm.DB, documentID, conceptID uint, order, version int) (*types.RoadmapStep, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*types.RoadmapStep, error)
	GetByConcept(ctx context.Context, tx *gorm.DB, documentID, conceptID uint) (*types.RoadmapStep, error)
	ListByDocumentVersion(ctx context.Context, tx *gorm.DB, documentID uint, version int) ([]*types.RoadmapStep, error)
}

type roadmapStepRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoadmapStepRepo(db *gorm.DB, baseLog *logger.Logger) RoadmapStepRepo {
	return &roadmapStepRepo{
		db:  db,
		log: baseLog.With("repo", "RoadmapStepRepo"),
	}
}

func (r *roadmapStepRepo) UpsertForConcept(ctx context.Context, tx *gorm.DB, documentID, conceptID uint, order, version int) (*types.RoadmapStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if documentID == 0 || conceptID == 0 {
		return nil, nil
	}
	var step types.RoadmapStep
	err := transaction.WithContext(ctx).
		Where("document_id = ? AND concept_id = ?", documentID, conceptID).
		Limit(1).
		Find(&step).Error
	if err != nil {
		return nil, err
	}
	if step.ID != 0 {
		step.StepOrder = order
		step.Version = version
		step.UpdatedAt = time.Now().UTC()
		if err := transaction.WithContext(ctx).
			Model(&types.RoadmapStep{}).
			Where("id = ?", step.ID).
			Updates(map[string]interface{}{
				"step_order": order,
				"version":    version,
				"updated_at": step.UpdatedAt,
			}).Error; err != nil {
			return nil, err
		}
		return &step, nil
	}
	step = types.RoadmapStep{
		DocumentID: documentID,
		ConceptID:  conceptID,
		Version:    version,
		StepOrder:  order,
		StepType:   types.StepTypeConcept,
	}
	if err := transaction.WithContext(ctx).Create(&step).Error; err != nil {
		return nil, err
	}
	return &step, nil
}

func (r *roadmapStepRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*types.RoadmapStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == 0 {
		return nil, nil
	}
	var step types.RoadmapStep
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&step).Error
	if err != nil {
		return nil, err
	}
	if step.ID == 0 {
		return nil, nil
	}
	return &step, nil
}

func (r *roadmapStepRepo) GetByConcept(ctx context.Context, tx *gorm.DB, documentID, conceptID uint) (*types.RoadmapStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if documentID == 0 || conceptID == 0 {
		return nil, nil
	}
	var step types.RoadmapStep
	err := transaction.WithContext(ctx).
		Where("document_id = ? AND concept_id = ?", documentID, conceptID).
		Limit(1).
		Find(&step).Error
	if err != nil {
		return nil, err
	}
	if step.ID == 0 {
		return nil, nil
	}
	return &step, nil
}

func (r *roadmapStepRepo) ListByDocumentVersion(ctx context.Context, tx *gorm.DB, documentID uint, version int) ([]*types.RoadmapStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.RoadmapStep
	if documentID == 0 {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("document_id = ? AND version = ?", documentID, version).
		Order("step_order ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
