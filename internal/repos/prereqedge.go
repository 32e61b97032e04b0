package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/types"
)

type PrereqEdgeRepo interface {
	// Insert is a no-op when the (concept, prerequisite) pair already exists;
	// uniqueness is enforced by the index, not checked first.
	Insert(ctx context.Context, tx *gorm.DB, edge *types.PrereqEdge) error
	ListByConceptIDs(ctx context.Context, tx *gorm.DB, conceptIDs []uint) ([]*types.PrereqEdge, error)
	ListByConcept(ctx context.Context, tx *gorm.DB, conceptID uint) ([]*types.PrereqEdge, error)
	ListByPrerequisite(ctx context.Context, tx *gorm.DB, prerequisiteID uint) ([]*types.PrereqEdge, error)
}

type prereqEdgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPrereqEdgeRepo(db *gorm.DB, baseLog *logger.Logger) PrereqEdgeRepo {
	return &prereqEdgeRepo{
		db:  db,
		log: baseLog.With("repo", "PrereqEdgeRepo"),
	}
}

func (r *prereqEdgeRepo) Insert(ctx context.Context, tx *gorm.DB, edge *types.PrereqEdge) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if edge == nil || edge.ConceptID == 0 || edge.PrerequisiteID == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "concept_id"}, {Name: "prerequisite_id"}},
			DoNothing: true,
		}).
		Create(edge).Error
}

func (r *prereqEdgeRepo) ListByConceptIDs(ctx context.Context, tx *gorm.DB, conceptIDs []uint) ([]*types.PrereqEdge, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PrereqEdge
	if len(conceptIDs) == 0 {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("concept_id IN ?", conceptIDs).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *prereqEdgeRepo) ListByConcept(ctx context.Context, tx *gorm.DB, conceptID uint) ([]*types.PrereqEdge, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PrereqEdge
	if conceptID == 0 {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("concept_id = ?", conceptID).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *prereqEdgeRepo) ListByPrerequisite(ctx context.Context, tx *gorm.DB, prerequisiteID uint) ([]*types.PrereqEdge, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PrereqEdge
	if prerequisiteID == 0 {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("prerequisite_id = ?", prerequisiteID).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
