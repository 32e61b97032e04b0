package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/apierr"
	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/types"
)

func conceptIDsOf(concepts []*types.Concept) []uint {
	ids := make([]uint, 0, len(concepts))
	for _, c := range concepts {
		ids = append(ids, c.ID)
	}
	return ids
}

// MergeMastery folds a new score into an existing mastery value. Mastery is
// monotone non-decreasing: a worse attempt never lowers it.
func MergeMastery(existing, score float64) float64 {
	if existing > score {
		return existing
	}
	return score
}

// MasteryService aggregates per-concept mastery into document-level views.
// The per-attempt merge itself happens on the progress row during grading.
type MasteryService interface {
	// Aggregate is the arithmetic mean of the user's mastery over all of the
	// document's current concepts; unattempted concepts count as zero.
	Aggregate(ctx context.Context, userID, documentID uint) (float64, error)
	// ByConcept returns the user's recorded mastery keyed by concept id for
	// the document's current version.
	ByConcept(ctx context.Context, tx *gorm.DB, userID, documentID uint) (map[uint]float64, error)
}

type masteryService struct {
	db           *gorm.DB
	log          *logger.Logger
	documentRepo repos.DocumentRepo
	conceptRepo  repos.ConceptRepo
	progressRepo repos.StepProgressRepo
}

func NewMasteryService(
	db *gorm.DB,
	baseLog *logger.Logger,
	documentRepo repos.DocumentRepo,
	conceptRepo repos.ConceptRepo,
	progressRepo repos.StepProgressRepo,
) MasteryService {
	return &masteryService{
		db:           db,
		log:          baseLog.With("service", "MasteryService"),
		documentRepo: documentRepo,
		conceptRepo:  conceptRepo,
		progressRepo: progressRepo,
	}
}

func (s *masteryService) Aggregate(ctx context.Context, userID, documentID uint) (float64, error) {
	doc, err := s.documentRepo.GetByID(ctx, nil, documentID)
	if err != nil {
		return 0, err
	}
	if doc == nil {
		return 0, apierr.NotFound("document %d not found", documentID)
	}
	if doc.CurrentVersion == 0 {
		return 0, nil
	}

	concepts, err := s.conceptRepo.ListByDocumentVersion(ctx, nil, documentID, doc.CurrentVersion)
	if err != nil {
		return 0, err
	}
	if len(concepts) == 0 {
		return 0, nil
	}

	byConcept, err := s.masteryForConcepts(ctx, nil, userID, conceptIDsOf(concepts))
	if err != nil {
		return 0, err
	}

	var sum float64
	for _, c := range concepts {
		sum += byConcept[c.ID]
	}
	return sum / float64(len(concepts)), nil
}

func (s *masteryService) ByConcept(ctx context.Context, tx *gorm.DB, userID, documentID uint) (map[uint]float64, error) {
	doc, err := s.documentRepo.GetByID(ctx, tx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apierr.NotFound("document %d not found", documentID)
	}
	if doc.CurrentVersion == 0 {
		return map[uint]float64{}, nil
	}
	concepts, err := s.conceptRepo.ListByDocumentVersion(ctx, tx, documentID, doc.CurrentVersion)
	if err != nil {
		return nil, err
	}
	return s.masteryForConcepts(ctx, tx, userID, conceptIDsOf(concepts))
}

func (s *masteryService) masteryForConcepts(ctx context.Context, tx *gorm.DB, userID uint, conceptIDs []uint) (map[uint]float64, error) {
	rows, err := s.progressRepo.ListByUserConcepts(ctx, tx, userID, conceptIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[uint]float64, len(rows))
	for _, row := range rows {
		if row.MasteryScore > out[row.ConceptID] {
			out[row.ConceptID] = row.MasteryScore
		}
	}
	return out, nil
}
