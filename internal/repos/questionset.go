package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/types"
)

type QuestionSetRepo interface {
	CreateWithQuestions(ctx context.Context, tx *gorm.DB, set *types.QuestionSet, questions []*types.Question) (*types.QuestionSet, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*types.QuestionSet, error)
	GetByStep(ctx context.Context, tx *gorm.DB, roadmapStepID uint) (*types.QuestionSet, error)
	ListQuestions(ctx context.Context, tx *gorm.DB, questionSetID uint) ([]*types.Question, error)
	// CorrectAnswers is grading-path only; it never feeds learner responses.
	CorrectAnswers(ctx context.Context, tx *gorm.DB, questionSetID uint) (map[int]string, error)
}

type questionSetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionSetRepo(db *gorm.DB, baseLog *logger.Logger) QuestionSetRepo {
	return &questionSetRepo{
		db:  db,
		log: baseLog.With("repo", "QuestionSetRepo"),
	}
}

func (r *questionSetRepo) CreateWithQuestions(ctx context.Context, tx *gorm.DB, set *types.QuestionSet, questions []*types.Question) (*types.QuestionSet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if set == nil {
		return nil, nil
	}
	err := transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		if err := inner.Create(set).Error; err != nil {
			return err
		}
		for _, q := range questions {
			q.QuestionSetID = set.ID
		}
		if len(questions) > 0 {
			if err := inner.Create(&questions).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

func (r *questionSetRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*types.QuestionSet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == 0 {
		return nil, nil
	}
	var set types.QuestionSet
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&set).Error
	if err != nil {
		return nil, err
	}
	if set.ID == 0 {
		return nil, nil
	}
	return &set, nil
}

func (r *questionSetRepo) GetByStep(ctx context.Context, tx *gorm.DB, roadmapStepID uint) (*types.QuestionSet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if roadmapStepID == 0 {
		return nil, nil
	}
	var set types.QuestionSet
	err := transaction.WithContext(ctx).
		Where("roadmap_step_id = ?", roadmapStepID).
		Limit(1).
		Find(&set).Error
	if err != nil {
		return nil, err
	}
	if set.ID == 0 {
		return nil, nil
	}
	return &set, nil
}

func (r *questionSetRepo) ListQuestions(ctx context.Context, tx *gorm.DB, questionSetID uint) ([]*types.Question, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Question
	if questionSetID == 0 {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("question_set_id = ?", questionSetID).
		Order("question_number ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *questionSetRepo) CorrectAnswers(ctx context.Context, tx *gorm.DB, questionSetID uint) (map[int]string, error) {
	questions, err := r.ListQuestions(ctx, tx, questionSetID)
	if err != nil {
		return nil, err
	}
	answers := make(map[int]string, len(questions))
	for _, q := range questions {
		answers[q.QuestionNumber] = q.CorrectAnswer
	}
	return answers, nil
}
