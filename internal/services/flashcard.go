package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/ai"
	"github.com/revisify/backend/internal/apierr"
	"github.com/revisify/backend/internal/config"
	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/types"
)

const flashcardsPerStep = 8

// FlashcardService generates and serves review cards for a roadmap step.
type FlashcardService interface {
	GetOrCreateForStep(ctx context.Context, stepID uint) ([]*types.Flashcard, error)
}

type flashcardService struct {
	db            *gorm.DB
	log           *logger.Logger
	cfg           *config.Config
	stepRepo      repos.RoadmapStepRepo
	conceptRepo   repos.ConceptRepo
	chunkRepo     repos.ChunkRepo
	flashcardRepo repos.FlashcardRepo
	caps          *ai.Capabilities
}

func NewFlashcardService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg *config.Config,
	stepRepo repos.RoadmapStepRepo,
	conceptRepo repos.ConceptRepo,
	chunkRepo repos.ChunkRepo,
	flashcardRepo repos.FlashcardRepo,
	caps *ai.Capabilities,
) FlashcardService {
	return &flashcardService{
		db:            db,
		log:           baseLog.With("service", "FlashcardService"),
		cfg:           cfg,
		stepRepo:      stepRepo,
		conceptRepo:   conceptRepo,
		chunkRepo:     chunkRepo,
		flashcardRepo: flashcardRepo,
		caps:          caps,
	}
}

func (s *flashcardService) GetOrCreateForStep(ctx context.Context, stepID uint) ([]*types.Flashcard, error) {
	existing, err := s.flashcardRepo.ListByStep(ctx, nil, stepID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	step, err := s.stepRepo.GetByID(ctx, nil, stepID)
	if err != nil {
		return nil, err
	}
	if step == nil {
		return nil, apierr.NotFound("roadmap step %d not found", stepID)
	}
	concept, err := s.conceptRepo.GetByID(ctx, nil, step.ConceptID)
	if err != nil {
		return nil, err
	}
	if concept == nil {
		return nil, apierr.NotFound("concept %d not found", step.ConceptID)
	}

	contextText, err := stepContextText(ctx, s.chunkRepo, step, s.cfg.LLMContext)
	if err != nil {
		return nil, err
	}
	drafts, err := s.caps.GenerateFlashcards(ctx, concept.Name, contextText, flashcardsPerStep)
	if err != nil {
		return nil, apierr.Unavailable("flashcard generation failed: %v", err)
	}

	var cards []*types.Flashcard
	for _, d := range drafts {
		if strings.TrimSpace(d.Front) == "" || strings.TrimSpace(d.Back) == "" {
			continue
		}
		cards = append(cards, &types.Flashcard{
			RoadmapStepID: stepID,
			Front:         d.Front,
			Back:          d.Back,
			CardOrder:     len(cards) + 1,
		})
	}
	if len(cards) == 0 {
		return nil, apierr.Unavailable("flashcard generation returned no usable cards")
	}
	if _, err := s.flashcardRepo.CreateBatch(ctx, nil, cards); err != nil {
		return nil, err
	}

	s.log.Info("Generated flashcards", "roadmap_step_id", stepID, "cards", len(cards))
	return cards, nil
}
