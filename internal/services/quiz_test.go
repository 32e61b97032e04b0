package services

import (
	"context"
	"testing"

	"github.com/revisify/backend/internal/ai"
	"github.com/revisify/backend/internal/apierr"
	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
)

func newQuizFixture(t *testing.T, reply string) (QuizService, *chainFixture, *stubTextClient) {
	t.Helper()
	gdb := newTestDB(t)
	log := logger.NewNop()
	fx := seedChain(t, gdb)
	caps, client := newTestCaps(reply)
	progressSvc := NewProgressService(gdb, log,
		repos.NewStepProgressRepo(gdb, log),
		repos.NewRoadmapStepRepo(gdb, log),
		repos.NewPrereqEdgeRepo(gdb, log))
	svc := NewQuizService(gdb, log, testConfig(),
		repos.NewRoadmapStepRepo(gdb, log),
		repos.NewConceptRepo(gdb, log),
		repos.NewChunkRepo(gdb, log),
		repos.NewQuestionSetRepo(gdb, log),
		progressSvc,
		caps)
	return svc, fx, client
}

const quizReply = `[
  {"question": "What is 2+2?", "options": ["4", "5", "6", "7"], "correct_answer": "a"},
  {"question": "What is 3*3?", "options": ["6", "9", "12", "15"], "correct_answer": "B"},
  {"question": "", "options": ["x", "y", "z", "w"], "correct_answer": "A"},
  {"question": "Bad answer", "options": ["x", "y", "z", "w"], "correct_answer": "E"}
]`

func TestGetOrCreateForStepGenerates(t *testing.T) {
	svc, fx, client := newQuizFixture(t, quizReply)

	view, err := svc.GetOrCreateForStep(context.Background(), 1, fx.steps[0].ID)
	if err != nil {
		t.Fatalf("GetOrCreateForStep: %v", err)
	}
	if view.QuestionCount != 2 {
		t.Fatalf("usable questions: want=2 got=%d", view.QuestionCount)
	}
	if len(view.Questions) != 2 {
		t.Fatalf("questions: want=2 got=%d", len(view.Questions))
	}
	if view.Questions[0].QuestionNumber != 1 || view.Questions[1].QuestionNumber != 2 {
		t.Fatalf("numbers must restart over survivors: %d, %d",
			view.Questions[0].QuestionNumber, view.Questions[1].QuestionNumber)
	}

	// A second call serves the stored set without another model round-trip.
	callsBefore := client.calls
	again, err := svc.GetOrCreateForStep(context.Background(), 1, fx.steps[0].ID)
	if err != nil {
		t.Fatalf("GetOrCreateForStep again: %v", err)
	}
	if again.ID != view.ID {
		t.Fatalf("set recreated instead of reused: %d vs %d", again.ID, view.ID)
	}
	if client.calls != callsBefore {
		t.Fatalf("reuse must not call the model")
	}
}

func TestGetOrCreateForStepRefusesLocked(t *testing.T) {
	svc, fx, client := newQuizFixture(t, quizReply)

	_, err := svc.GetOrCreateForStep(context.Background(), 1, fx.steps[1].ID)
	if !apierr.IsValidation(err) {
		t.Fatalf("locked step: want validation error, got %v", err)
	}
	if client.calls != 0 {
		t.Fatalf("locked step must not reach the model")
	}
}

func TestBuildQuestionsNormalizesAnswers(t *testing.T) {
	drafts := []ai.QuestionDraft{
		{Prompt: "Pick one", Options: []string{"w", "x", "y", "z"}, CorrectAnswer: " c "},
		{Prompt: "Three options", Options: []string{"a", "b", "c"}, CorrectAnswer: "B"},
	}
	got := buildQuestions(drafts)
	if len(got) != 2 {
		t.Fatalf("questions: want=2 got=%d", len(got))
	}
	if got[0].CorrectAnswer != "C" {
		t.Fatalf("answer normalization: want=C got=%q", got[0].CorrectAnswer)
	}
	if got[1].OptionD != "" {
		t.Fatalf("three-option draft leaves option D empty, got %q", got[1].OptionD)
	}
}
