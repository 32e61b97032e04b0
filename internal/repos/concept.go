package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/types"
)

type ConceptRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, concepts []*types.Concept) ([]*types.Concept, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*types.Concept, error)
	ListByDocumentVersion(ctx context.Context, tx *gorm.DB, documentID uint, version int) ([]*types.Concept, error)
	CountByDocumentVersion(ctx context.Context, tx *gorm.DB, documentID uint, version int) (int64, error)
}

type conceptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConceptRepo(db *gorm.DB, baseLog *logger.Logger) ConceptRepo {
	return &conceptRepo{
		db:  db,
		log: baseLog.With("repo", "ConceptRepo"),
	}
}

func (r *conceptRepo) CreateBatch(ctx context.Context, tx *gorm.DB, concepts []*types.Concept) ([]*types.Concept, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(concepts) == 0 {
		return []*types.Concept{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&concepts).Error; err != nil {
		return nil, err
	}
	return concepts, nil
}

func (r *conceptRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*types.Concept, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == 0 {
		return nil, nil
	}
	var row types.Concept
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
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

func (r *conceptRepo) ListByDocumentVersion(ctx context.Context, tx *gorm.DB, documentID uint, version int) ([]*types.Concept, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Concept
	if documentID == 0 {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("document_id = ? AND version = ?", documentID, version).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conceptRepo) CountByDocumentVersion(ctx context.Context, tx *gorm.DB, documentID uint, version int) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.Concept{}).
		Where("document_id = ? AND version = ?", documentID, version).
		Count(&count).Error
	return count, err
}
