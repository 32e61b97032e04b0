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
	"github.com/revisify/backend/internal/safety"
	"github.com/revisify/backend/internal/types"
)

// NotesService serves the full remediation explanation for a step. Unlike
// hints, notes may carry complete worked detail, so access is gated: a
// learner earns them by struggling (sub-threshold mastery or an exhausted
// hint budget), never as a shortcut past the questions.
type NotesService interface {
	GetOrCreateForStep(ctx context.Context, userID, stepID uint) (*types.Note, error)
}

type notesService struct {
	db          *gorm.DB
	log         *logger.Logger
	cfg         *config.Config
	stepRepo    repos.RoadmapStepRepo
	conceptRepo repos.ConceptRepo
	chunkRepo   repos.ChunkRepo
	noteRepo    repos.NoteRepo
	tutor       TutorService
	caps        *ai.Capabilities
}

func NewNotesService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg *config.Config,
	stepRepo repos.RoadmapStepRepo,
	conceptRepo repos.ConceptRepo,
	chunkRepo repos.ChunkRepo,
	noteRepo repos.NoteRepo,
	tutor TutorService,
	caps *ai.Capabilities,
) NotesService {
	return &notesService{
		db:          db,
		log:         baseLog.With("service", "NotesService"),
		cfg:         cfg,
		stepRepo:    stepRepo,
		conceptRepo: conceptRepo,
		chunkRepo:   chunkRepo,
		noteRepo:    noteRepo,
		tutor:       tutor,
		caps:        caps,
	}
}

func (s *notesService) GetOrCreateForStep(ctx context.Context, userID, stepID uint) (*types.Note, error) {
	unlocked, err := s.tutor.ShouldUnlockNotes(ctx, userID, stepID)
	if err != nil {
		return nil, err
	}
	if !unlocked {
		return nil, apierr.Validation("notes for step %d are locked; attempt the questions first", stepID)
	}

	existing, err := s.noteRepo.GetByStep(ctx, nil, stepID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
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
	raw, err := s.caps.GenerateNotes(ctx, concept.Name, concept.Description, contextText)
	if err != nil {
		return nil, apierr.Unavailable("notes generation failed: %v", err)
	}

	enforced := safety.EnforceExplanation(raw, safety.PolicyFromConfig(s.cfg))
	note := &types.Note{
		RoadmapStepID: stepID,
		Summary:       firstLine(enforced.Text),
		Explanation:   enforced.Text,
	}
	if _, err := s.noteRepo.Create(ctx, nil, note); err != nil {
		return nil, err
	}

	s.log.Info("Generated notes", "roadmap_step_id", stepID, "note_id", note.ID)
	return note, nil
}

func firstLine(text string) string {
	line := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		line = text[:idx]
	}
	line = strings.TrimSpace(strings.TrimLeft(line, "# "))
	const maxSummary = 200
	runes := []rune(line)
	if len(runes) > maxSummary {
		line = string(runes[:maxSummary])
	}
	return line
}
