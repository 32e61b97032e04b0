package services

import (
	"context"
	"errors"
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

// HintResult is what the learner gets back from a hint request. Blocked means
// the budget is exhausted and no model call was made.
type HintResult struct {
	HintNumber     int    `json:"hint_number"`
	Hint           string `json:"hint"`
	MicroQuestion  string `json:"micro_question,omitempty"`
	HintsRemaining int    `json:"hints_remaining"`
	Blocked        bool   `json:"blocked"`
	NotesUnlocked  bool   `json:"notes_unlocked"`
}

// TutorService issues graduated hints under the anti-spoonfeeding policy.
type TutorService interface {
	// RequestHint issues hint number hintNo for the step. Numbers below 1 are
	// a validation error; numbers past the budget return a blocked result
	// without touching the model. Concurrent requests for the same number are
	// serialized by the hint table's unique index: the loser retries with the
	// next free number.
	RequestHint(ctx context.Context, userID, stepID uint, hintNo int, userText string) (*HintResult, error)
	// ShouldUnlockNotes reports whether the learner has earned access to the
	// full explanation: an attempt exists and either mastery is still below
	// the pass threshold or the hint budget is spent.
	ShouldUnlockNotes(ctx context.Context, userID, stepID uint) (bool, error)
}

type tutorService struct {
	db           *gorm.DB
	log          *logger.Logger
	cfg          *config.Config
	stepRepo     repos.RoadmapStepRepo
	conceptRepo  repos.ConceptRepo
	hintRepo     repos.HintRepo
	progressRepo repos.StepProgressRepo
	caps         *ai.Capabilities
}

func NewTutorService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg *config.Config,
	stepRepo repos.RoadmapStepRepo,
	conceptRepo repos.ConceptRepo,
	hintRepo repos.HintRepo,
	progressRepo repos.StepProgressRepo,
	caps *ai.Capabilities,
) TutorService {
	return &tutorService{
		db:           db,
		log:          baseLog.With("service", "TutorService"),
		cfg:          cfg,
		stepRepo:     stepRepo,
		conceptRepo:  conceptRepo,
		hintRepo:     hintRepo,
		progressRepo: progressRepo,
		caps:         caps,
	}
}

func (s *tutorService) RequestHint(ctx context.Context, userID, stepID uint, hintNo int, userText string) (*HintResult, error) {
	if userID == 0 {
		return nil, apierr.Validation("user id is required")
	}
	if hintNo < 1 {
		return nil, apierr.Validation("hint number must be at least 1, got %d", hintNo)
	}

	policy := safety.PolicyFromConfig(s.cfg)

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
	topic := ""
	if concept != nil {
		topic = concept.Name
	}

	if !safety.CanIssue(hintNo, policy) {
		return s.blockedResult(ctx, userID, stepID, topic, policy)
	}
	used, err := s.hintRepo.CountByUserStep(ctx, nil, userID, stepID)
	if err != nil {
		return nil, err
	}
	if int(used) >= policy.HintLimit {
		return s.blockedResult(ctx, userID, stepID, topic, policy)
	}

	prior, err := s.hintRepo.ListByUserStep(ctx, nil, userID, stepID)
	if err != nil {
		return nil, err
	}
	priorTexts := make([]string, 0, len(prior))
	for _, h := range prior {
		priorTexts = append(priorTexts, h.HintText)
	}

	raw, err := s.caps.GenerateHint(ctx, ai.HintPrompt{
		Concept:     topic,
		UserMessage: userText,
		PriorHints:  priorTexts,
		HintNumber:  hintNo,
	})
	if err != nil {
		s.log.Warn("Hint generation failed, using fallback", "roadmap_step_id", stepID, "error", err)
		raw = safety.BuildFallbackHint(hintNo, policy.HintLimit, topic)
	}

	enforced := safety.EnforceHint(raw, policy, hintNo, topic)
	hintText, microQuestion := splitMicroQuestion(enforced.Text)

	hint := &types.Hint{
		UserID:        userID,
		RoadmapStepID: stepID,
		HintNumber:    hintNo,
		HintText:      hintText,
		MicroQuestion: microQuestion,
	}
	for {
		if _, err := s.hintRepo.Create(ctx, nil, hint); err == nil {
			break
		} else if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		// Slot taken by a concurrent request; claim the next free number.
		hint.HintNumber++
		if !safety.CanIssue(hint.HintNumber, policy) {
			return s.blockedResult(ctx, userID, stepID, topic, policy)
		}
	}

	unlocked, err := s.ShouldUnlockNotes(ctx, userID, stepID)
	if err != nil {
		return nil, err
	}

	s.log.Info("Issued hint",
		"user_id", userID,
		"roadmap_step_id", stepID,
		"hint_number", hint.HintNumber,
		"sanitize_reasons", strings.Join(enforced.Reasons, ","))
	return &HintResult{
		HintNumber:     hint.HintNumber,
		Hint:           hintText,
		MicroQuestion:  microQuestion,
		HintsRemaining: policy.HintLimit - hint.HintNumber,
		NotesUnlocked:  unlocked,
	}, nil
}

func (s *tutorService) ShouldUnlockNotes(ctx context.Context, userID, stepID uint) (bool, error) {
	progress, err := s.progressRepo.GetByUserStep(ctx, nil, userID, stepID)
	if err != nil {
		return false, err
	}
	if progress == nil {
		return false, nil
	}
	if progress.MasteryScore < s.cfg.PassThreshold {
		return true, nil
	}
	used, err := s.hintRepo.CountByUserStep(ctx, nil, userID, stepID)
	if err != nil {
		return false, err
	}
	return int(used) >= s.cfg.MaxHintsPerStep, nil
}

func (s *tutorService) blockedResult(ctx context.Context, userID, stepID uint, topic string, policy safety.PolicyConfig) (*HintResult, error) {
	unlocked, err := s.ShouldUnlockNotes(ctx, userID, stepID)
	if err != nil {
		return nil, err
	}
	return &HintResult{
		Hint:          safety.BuildFallbackHint(policy.HintLimit, policy.HintLimit, topic),
		Blocked:       true,
		NotesUnlocked: unlocked,
	}, nil
}

// splitMicroQuestion peels the trailing "Micro-question:" line off an
// enforced hint so the two parts can be stored and rendered separately.
func splitMicroQuestion(text string) (hint, micro string) {
	marker := "Micro-question:"
	idx := strings.LastIndex(text, marker)
	if idx < 0 {
		return text, ""
	}
	hint = strings.TrimSpace(text[:idx])
	micro = strings.TrimSpace(text[idx+len(marker):])
	if hint == "" {
		return text, ""
	}
	return hint, micro
}
