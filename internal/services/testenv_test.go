package services

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/ai"
	"github.com/revisify/backend/internal/config"
	"github.com/revisify/backend/internal/db"
	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	svc, err := db.NewSQLite(":memory:", logger.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := svc.AutoMigrateAll(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return svc.DB()
}

func testConfig() *config.Config {
	return &config.Config{
		PassThreshold:   0.5,
		MaxHintsPerStep: 3,
		MCQCountMin:     5,
		MCQCountMax:     10,
		MaxHintChars:    900,
		MaxCodeChars:    350,
		ChunkSize:       1000,
		ChunkOverlap:    200,
		EmbeddingDim:    8,
		RAGTopK:         5,
		LLMContext:      8000,
	}
}

// stubTextClient satisfies ai.TextClient with a canned reply.
type stubTextClient struct {
	reply string
	err   error
	calls int
}

func (s *stubTextClient) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubTextClient) Model() string { return "stub" }

func newTestCaps(reply string) (*ai.Capabilities, *stubTextClient) {
	client := &stubTextClient{reply: reply}
	return ai.NewCapabilities(client, 8000, logger.NewNop()), client
}

// chainFixture is a document with three concepts in a prerequisite chain:
// Algebra -> Calculus -> Differential Equations.
type chainFixture struct {
	doc      *types.Document
	concepts []*types.Concept
	steps    []*types.RoadmapStep
}

func seedChain(t *testing.T, gdb *gorm.DB) *chainFixture {
	t.Helper()

	doc := &types.Document{
		UserID:         1,
		Filename:       "analysis.pdf",
		Status:         types.DocumentStatusReady,
		ExtractedText:  "some extracted text",
		CurrentVersion: 1,
	}
	if err := gdb.Create(doc).Error; err != nil {
		t.Fatalf("create document: %v", err)
	}

	names := []string{"Algebra", "Calculus", "Differential Equations"}
	concepts := make([]*types.Concept, len(names))
	for i, name := range names {
		concepts[i] = &types.Concept{
			DocumentID:    doc.ID,
			Version:       1,
			Name:          name,
			CanonicalName: name,
		}
		if err := gdb.Create(concepts[i]).Error; err != nil {
			t.Fatalf("create concept %q: %v", name, err)
		}
	}

	for i := 1; i < len(concepts); i++ {
		edge := &types.PrereqEdge{
			DocumentID:     doc.ID,
			ConceptID:      concepts[i].ID,
			PrerequisiteID: concepts[i-1].ID,
		}
		if err := gdb.Create(edge).Error; err != nil {
			t.Fatalf("create edge: %v", err)
		}
	}

	steps := make([]*types.RoadmapStep, len(concepts))
	for i, c := range concepts {
		steps[i] = &types.RoadmapStep{
			DocumentID: doc.ID,
			ConceptID:  c.ID,
			Version:    1,
			StepOrder:  i + 1,
			StepType:   types.StepTypeConcept,
		}
		if err := gdb.Create(steps[i]).Error; err != nil {
			t.Fatalf("create step: %v", err)
		}
	}

	return &chainFixture{doc: doc, concepts: concepts, steps: steps}
}

// seedQuestionSet attaches total questions to a step, all with correct
// answer "A".
func seedQuestionSet(t *testing.T, gdb *gorm.DB, stepID uint, total int) *types.QuestionSet {
	t.Helper()
	set := &types.QuestionSet{RoadmapStepID: stepID, QuestionCount: total}
	if err := gdb.Create(set).Error; err != nil {
		t.Fatalf("create question set: %v", err)
	}
	for i := 1; i <= total; i++ {
		q := &types.Question{
			QuestionSetID:  set.ID,
			QuestionNumber: i,
			QuestionText:   fmt.Sprintf("Question %d", i),
			OptionA:        "right",
			OptionB:        "wrong",
			OptionC:        "wrong",
			OptionD:        "wrong",
			CorrectAnswer:  "A",
		}
		if err := gdb.Create(q).Error; err != nil {
			t.Fatalf("create question: %v", err)
		}
	}
	return set
}
