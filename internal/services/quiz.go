package services

import (
	"context"
	"math/rand"
	"strings"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/ai"
	"github.com/revisify/backend/internal/apierr"
	"github.com/revisify/backend/internal/config"
	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/types"
)

// QuizView is a question set as shown to a learner: correct answers and
// explanations never appear here.
type QuizView struct {
	ID            uint              `json:"id"`
	RoadmapStepID uint              `json:"roadmap_step_id"`
	QuestionCount int               `json:"question_count"`
	Questions     []*types.Question `json:"questions"`
}

// QuizService generates and serves the assessment for a roadmap step.
type QuizService interface {
	// GetOrCreateForStep returns the step's question set, generating one on
	// first access. Locked steps are refused.
	GetOrCreateForStep(ctx context.Context, userID, stepID uint) (*QuizView, error)
}

type quizService struct {
	db          *gorm.DB
	log         *logger.Logger
	cfg         *config.Config
	stepRepo    repos.RoadmapStepRepo
	conceptRepo repos.ConceptRepo
	chunkRepo   repos.ChunkRepo
	questionSet repos.QuestionSetRepo
	progress    ProgressService
	caps        *ai.Capabilities
}

func NewQuizService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg *config.Config,
	stepRepo repos.RoadmapStepRepo,
	conceptRepo repos.ConceptRepo,
	chunkRepo repos.ChunkRepo,
	questionSet repos.QuestionSetRepo,
	progress ProgressService,
	caps *ai.Capabilities,
) QuizService {
	return &quizService{
		db:          db,
		log:         baseLog.With("service", "QuizService"),
		cfg:         cfg,
		stepRepo:    stepRepo,
		conceptRepo: conceptRepo,
		chunkRepo:   chunkRepo,
		questionSet: questionSet,
		progress:    progress,
		caps:        caps,
	}
}

func (s *quizService) GetOrCreateForStep(ctx context.Context, userID, stepID uint) (*QuizView, error) {
	step, err := s.stepRepo.GetByID(ctx, nil, stepID)
	if err != nil {
		return nil, err
	}
	if step == nil {
		return nil, apierr.NotFound("roadmap step %d not found", stepID)
	}

	status, err := s.progress.EffectiveStatus(ctx, nil, userID, step)
	if err != nil {
		return nil, err
	}
	if status.Status == types.ProgressLocked {
		return nil, apierr.Validation("step %d is locked; clear its prerequisites first", stepID)
	}

	existing, err := s.questionSet.GetByStep(ctx, nil, stepID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.view(ctx, existing)
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

	count := s.cfg.MCQCountMin
	if s.cfg.MCQCountMax > s.cfg.MCQCountMin {
		count += rand.Intn(s.cfg.MCQCountMax - s.cfg.MCQCountMin + 1)
	}
	drafts, err := s.caps.GenerateQuestions(ctx, concept.Name, concept.Description, contextText, count)
	if err != nil {
		return nil, apierr.Unavailable("question generation failed: %v", err)
	}

	questions := buildQuestions(drafts)
	if len(questions) == 0 {
		return nil, apierr.Unavailable("question generation returned no usable questions")
	}

	set := &types.QuestionSet{
		RoadmapStepID: stepID,
		QuestionCount: len(questions),
	}
	if _, err := s.questionSet.CreateWithQuestions(ctx, nil, set, questions); err != nil {
		return nil, err
	}

	s.log.Info("Generated question set",
		"roadmap_step_id", stepID,
		"question_set_id", set.ID,
		"questions", len(questions))
	return s.view(ctx, set)
}

func (s *quizService) view(ctx context.Context, set *types.QuestionSet) (*QuizView, error) {
	questions, err := s.questionSet.ListQuestions(ctx, nil, set.ID)
	if err != nil {
		return nil, err
	}
	return &QuizView{
		ID:            set.ID,
		RoadmapStepID: set.RoadmapStepID,
		QuestionCount: set.QuestionCount,
		Questions:     questions,
	}, nil
}

// stepContextText assembles source-material context for generation from the
// step's document chunks, capped at limit bytes.
func stepContextText(ctx context.Context, chunkRepo repos.ChunkRepo, step *types.RoadmapStep, limit int) (string, error) {
	chunks, err := chunkRepo.ListByDocumentVersion(ctx, nil, step.DocumentID, step.Version)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, chunk := range chunks {
		if sb.Len() >= limit {
			break
		}
		sb.WriteString(chunk.ChunkText)
		sb.WriteString("\n\n")
	}
	text := sb.String()
	if len(text) > limit {
		text = text[:limit]
	}
	return text, nil
}

// buildQuestions converts model drafts to rows, dropping drafts with too few
// options or an answer outside A-D. Question numbers restart at 1 over the
// survivors.
func buildQuestions(drafts []ai.QuestionDraft) []*types.Question {
	var out []*types.Question
	for _, d := range drafts {
		if strings.TrimSpace(d.Prompt) == "" || len(d.Options) < 3 {
			continue
		}
		answer := strings.ToUpper(strings.TrimSpace(d.CorrectAnswer))
		if len(answer) != 1 || answer[0] < 'A' || answer[0] > 'D' {
			continue
		}
		q := &types.Question{
			QuestionNumber: len(out) + 1,
			QuestionText:   d.Prompt,
			OptionA:        d.Options[0],
			OptionB:        d.Options[1],
			OptionC:        d.Options[2],
			CorrectAnswer:  answer,
			Explanation:    strings.TrimSpace(d.Explanation),
		}
		if len(d.Options) > 3 {
			q.OptionD = d.Options[3]
		}
		out = append(out, q)
	}
	return out
}
