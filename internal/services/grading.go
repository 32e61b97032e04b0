package services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/revisify/backend/internal/apierr"
	"github.com/revisify/backend/internal/config"
	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/types"
)

// GradeResult is the outcome of one submission. PerQuestion is keyed by
// question number; unanswered questions appear as false.
type GradeResult struct {
	AttemptID    uuid.UUID    `json:"attempt_id"`
	Score        float64      `json:"score"`
	CorrectCount int          `json:"correct_count"`
	TotalCount   int          `json:"total_count"`
	Passed       bool         `json:"passed"`
	PerQuestion  map[int]bool `json:"per_question"`
	Status       string       `json:"status"`
	Mastery      float64      `json:"mastery"`
}

// GradingService scores submissions and drives the progress and mastery
// updates they trigger. Scoring, the appended attempt row and the progress
// transition commit as one unit: callers never observe a cleared status
// without its mastery value, or the reverse.
type GradingService interface {
	Grade(ctx context.Context, userID, questionSetID uint, answers map[int]string) (*GradeResult, error)
}

type gradingService struct {
	db          *gorm.DB
	log         *logger.Logger
	cfg         *config.Config
	questionSet repos.QuestionSetRepo
	attemptRepo repos.AttemptRepo
	stepRepo    repos.RoadmapStepRepo
	progress    ProgressService
}

func NewGradingService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg *config.Config,
	questionSet repos.QuestionSetRepo,
	attemptRepo repos.AttemptRepo,
	stepRepo repos.RoadmapStepRepo,
	progress ProgressService,
) GradingService {
	return &gradingService{
		db:          db,
		log:         baseLog.With("service", "GradingService"),
		cfg:         cfg,
		questionSet: questionSet,
		attemptRepo: attemptRepo,
		stepRepo:    stepRepo,
		progress:    progress,
	}
}

func (s *gradingService) Grade(ctx context.Context, userID, questionSetID uint, answers map[int]string) (*GradeResult, error) {
	if userID == 0 {
		return nil, apierr.Validation("grading requires a user")
	}
	set, err := s.questionSet.GetByID(ctx, nil, questionSetID)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, apierr.NotFound("question set %d not found", questionSetID)
	}
	correct, err := s.questionSet.CorrectAnswers(ctx, nil, questionSetID)
	if err != nil {
		return nil, err
	}

	result := scoreAnswers(correct, answers)
	result.Passed = result.Score >= s.cfg.PassThreshold

	step, err := s.stepRepo.GetByID(ctx, nil, set.RoadmapStepID)
	if err != nil {
		return nil, err
	}
	if step == nil {
		return nil, apierr.NotFound("roadmap step %d not found", set.RoadmapStepID)
	}

	answersJSON, err := encodeAnswers(answers)
	if err != nil {
		return nil, apierr.Validation("malformed answer map: %v", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempt := &types.Attempt{
			ExternalID:    uuid.New(),
			UserID:        userID,
			QuestionSetID: questionSetID,
			Score:         result.Score,
			CorrectCount:  result.CorrectCount,
			TotalCount:    result.TotalCount,
			Answers:       answersJSON,
		}
		if _, err := s.attemptRepo.Create(ctx, tx, attempt); err != nil {
			return err
		}
		result.AttemptID = attempt.ExternalID

		row, err := s.progress.ApplyGrade(ctx, tx, userID, step, result.Score, result.Passed)
		if err != nil {
			return err
		}
		result.Status = row.Status
		result.Mastery = row.MasteryScore
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Graded attempt",
		"user_id", userID,
		"question_set_id", questionSetID,
		"score", result.Score,
		"passed", result.Passed)
	return result, nil
}

// scoreAnswers compares each submitted answer case-insensitively against the
// stored correct option. Unanswered and unknown question numbers count as
// incorrect; an empty question set scores zero.
func scoreAnswers(correct map[int]string, answers map[int]string) *GradeResult {
	result := &GradeResult{
		TotalCount:  len(correct),
		PerQuestion: make(map[int]bool, len(correct)),
	}
	for number, want := range correct {
		got, ok := answers[number]
		isCorrect := ok && strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(want))
		result.PerQuestion[number] = isCorrect
		if isCorrect {
			result.CorrectCount++
		}
	}
	if result.TotalCount > 0 {
		result.Score = float64(result.CorrectCount) / float64(result.TotalCount)
	}
	return result
}

func encodeAnswers(answers map[int]string) (datatypes.JSON, error) {
	keyed := make(map[string]string, len(answers))
	for number, answer := range answers {
		keyed[strconv.Itoa(number)] = answer
	}
	raw, err := json.Marshal(keyed)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
