package app

import (
	"context"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/ai"
	"github.com/revisify/backend/internal/config"
	"github.com/revisify/backend/internal/graph"
	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/services"
	"github.com/revisify/backend/internal/vecindex"
)

type Services struct {
	Progress  services.ProgressService
	Roadmap   services.RoadmapService
	Mastery   services.MasteryService
	Grading   services.GradingService
	Concept   services.ConceptService
	Chunker   services.ChunkerService
	Embed     services.EmbedService
	Prereq    services.PrereqService
	Quiz      services.QuizService
	Tutor     services.TutorService
	Notes     services.NotesService
	Flashcard services.FlashcardService
	Rag       services.RagService
	Dashboard services.DashboardService
	Pipeline  services.IngestPipeline
}

func wireServices(
	ctx context.Context,
	db *gorm.DB,
	log *logger.Logger,
	cfg *config.Config,
	r Repos,
	store *vecindex.Store,
	mirror *graph.Mirror,
) (Services, error) {
	textClient, err := ai.NewTextClient(ctx, cfg, log)
	if err != nil {
		return Services{}, err
	}
	embedder, err := ai.NewEmbedder(cfg, log)
	if err != nil {
		log.Warn("Embedder unavailable, chunks will carry degraded vectors", "error", err)
		embedder = nil
	}
	caps := ai.NewCapabilities(textClient, cfg.LLMContext, log)

	var s Services
	s.Progress = services.NewProgressService(db, log, r.Progress, r.RoadmapStep, r.PrereqEdge)
	s.Roadmap = services.NewRoadmapService(db, log, r.Document, r.Concept, r.PrereqEdge, r.RoadmapStep, s.Progress)
	s.Mastery = services.NewMasteryService(db, log, r.Document, r.Concept, r.Progress)
	s.Grading = services.NewGradingService(db, log, cfg, r.QuestionSet, r.Attempt, r.RoadmapStep, s.Progress)
	s.Concept = services.NewConceptService(db, log, r.Concept, caps)
	s.Chunker = services.NewChunkerService(db, log, cfg, r.Chunk)
	s.Embed = services.NewEmbedService(db, log, cfg, embedder, r.Chunk)
	s.Prereq = services.NewPrereqService(db, log, r.PrereqEdge, caps)
	s.Quiz = services.NewQuizService(db, log, cfg, r.RoadmapStep, r.Concept, r.Chunk, r.QuestionSet, s.Progress, caps)
	s.Tutor = services.NewTutorService(db, log, cfg, r.RoadmapStep, r.Concept, r.Hint, r.Progress, caps)
	s.Notes = services.NewNotesService(db, log, cfg, r.RoadmapStep, r.Concept, r.Chunk, r.Note, s.Tutor, caps)
	s.Flashcard = services.NewFlashcardService(db, log, cfg, r.RoadmapStep, r.Concept, r.Chunk, r.Flashcard, caps)
	s.Rag = services.NewRagService(db, log, cfg, r.Document, r.Chunk, store, s.Embed, caps)
	s.Dashboard = services.NewDashboardService(db, log, r.Document, r.RoadmapStep, s.Progress, s.Mastery)
	s.Pipeline = services.NewIngestPipeline(db, log, cfg, r.Document, r.PipelineRun, s.Chunker, s.Embed, s.Concept, s.Prereq, s.Roadmap, store, mirror)
	return s, nil
}
