package services

import (
	"context"
	"testing"

	"github.com/revisify/backend/internal/apierr"
	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/types"
)

func newGradingFixture(t *testing.T) (GradingService, *chainFixture, *types.QuestionSet, repos.StepProgressRepo) {
	t.Helper()
	gdb := newTestDB(t)
	log := logger.NewNop()
	fx := seedChain(t, gdb)
	set := seedQuestionSet(t, gdb, fx.steps[0].ID, 10)

	progressRepo := repos.NewStepProgressRepo(gdb, log)
	progressSvc := NewProgressService(gdb, log,
		progressRepo,
		repos.NewRoadmapStepRepo(gdb, log),
		repos.NewPrereqEdgeRepo(gdb, log))
	svc := NewGradingService(gdb, log, testConfig(),
		repos.NewQuestionSetRepo(gdb, log),
		repos.NewAttemptRepo(gdb, log),
		repos.NewRoadmapStepRepo(gdb, log),
		progressSvc)
	return svc, fx, set, progressRepo
}

func answersWithCorrect(n, total int) map[int]string {
	answers := make(map[int]string, total)
	for i := 1; i <= total; i++ {
		if i <= n {
			answers[i] = "a"
		} else {
			answers[i] = "B"
		}
	}
	return answers
}

func TestGradeFailingScoreUnlocks(t *testing.T) {
	svc, _, set, _ := newGradingFixture(t)

	result, err := svc.Grade(context.Background(), 1, set.ID, answersWithCorrect(3, 10))
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if result.CorrectCount != 3 || result.TotalCount != 10 {
		t.Fatalf("counts: want=3/10 got=%d/%d", result.CorrectCount, result.TotalCount)
	}
	if result.Score != 0.3 {
		t.Fatalf("score: want=0.3 got=%v", result.Score)
	}
	if result.Passed {
		t.Fatalf("0.3 should not pass at threshold 0.5")
	}
	if result.Status != types.ProgressUnlocked {
		t.Fatalf("status: want=%s got=%s", types.ProgressUnlocked, result.Status)
	}
	if result.Mastery != 0.3 {
		t.Fatalf("mastery: want=0.3 got=%v", result.Mastery)
	}
}

func TestGradeExactThresholdPasses(t *testing.T) {
	svc, _, set, _ := newGradingFixture(t)

	result, err := svc.Grade(context.Background(), 1, set.ID, answersWithCorrect(5, 10))
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if !result.Passed {
		t.Fatalf("score equal to threshold must pass")
	}
	if result.Status != types.ProgressCleared {
		t.Fatalf("status: want=%s got=%s", types.ProgressCleared, result.Status)
	}
}

func TestGradePassUnlocksDependent(t *testing.T) {
	svc, fx, set, progressRepo := newGradingFixture(t)

	if _, err := svc.Grade(context.Background(), 1, set.ID, answersWithCorrect(8, 10)); err != nil {
		t.Fatalf("Grade: %v", err)
	}

	row, err := progressRepo.GetByUserStep(context.Background(), nil, 1, fx.steps[1].ID)
	if err != nil {
		t.Fatalf("GetByUserStep: %v", err)
	}
	if row == nil {
		t.Fatalf("clearing the first step should write an unlocked row for its dependent")
	}
	if row.Status != types.ProgressUnlocked {
		t.Fatalf("dependent status: want=%s got=%s", types.ProgressUnlocked, row.Status)
	}

	// The concept two hops down still has an uncleared prerequisite.
	far, err := progressRepo.GetByUserStep(context.Background(), nil, 1, fx.steps[2].ID)
	if err != nil {
		t.Fatalf("GetByUserStep: %v", err)
	}
	if far != nil {
		t.Fatalf("step with uncleared prerequisites must stay without a row, got %+v", far)
	}
}

func TestGradeClearedNeverReverts(t *testing.T) {
	svc, _, set, _ := newGradingFixture(t)

	first, err := svc.Grade(context.Background(), 1, set.ID, answersWithCorrect(9, 10))
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if first.Status != types.ProgressCleared {
		t.Fatalf("setup: expected cleared, got %s", first.Status)
	}

	second, err := svc.Grade(context.Background(), 1, set.ID, answersWithCorrect(2, 10))
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if second.Status != types.ProgressCleared {
		t.Fatalf("cleared must not revert: got %s", second.Status)
	}
	if second.Mastery != 0.9 {
		t.Fatalf("mastery must keep its maximum: want=0.9 got=%v", second.Mastery)
	}
	if second.Score != 0.2 {
		t.Fatalf("attempt score is still the raw score: want=0.2 got=%v", second.Score)
	}
}

func TestGradeUnknownSet(t *testing.T) {
	svc, _, _, _ := newGradingFixture(t)

	_, err := svc.Grade(context.Background(), 1, 9999, map[int]string{1: "A"})
	if !apierr.IsNotFound(err) {
		t.Fatalf("want not-found error, got %v", err)
	}
}

func TestGradeRequiresUser(t *testing.T) {
	svc, _, set, _ := newGradingFixture(t)

	_, err := svc.Grade(context.Background(), 0, set.ID, map[int]string{1: "A"})
	if !apierr.IsValidation(err) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestScoreAnswersEdgeCases(t *testing.T) {
	empty := scoreAnswers(map[int]string{}, map[int]string{1: "A"})
	if empty.Score != 0 || empty.TotalCount != 0 {
		t.Fatalf("empty set: want score=0 total=0, got score=%v total=%d", empty.Score, empty.TotalCount)
	}

	partial := scoreAnswers(map[int]string{1: "A", 2: "B"}, map[int]string{1: " a ", 3: "B"})
	if partial.CorrectCount != 1 {
		t.Fatalf("correct count: want=1 got=%d", partial.CorrectCount)
	}
	if partial.PerQuestion[2] {
		t.Fatalf("unanswered question must grade false")
	}
}
