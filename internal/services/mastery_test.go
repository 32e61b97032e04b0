package services

import (
	"context"
	"math"
	"testing"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/types"
)

func TestMergeMastery(t *testing.T) {
	cases := []struct {
		existing, score, want float64
	}{
		{0, 0.3, 0.3},
		{0.5, 0.3, 0.5},
		{0.5, 0.9, 0.9},
		{0.7, 0.7, 0.7},
	}
	for _, c := range cases {
		if got := MergeMastery(c.existing, c.score); got != c.want {
			t.Fatalf("MergeMastery(%v, %v): want=%v got=%v", c.existing, c.score, c.want, got)
		}
	}
}

func TestAggregateCountsUnattemptedAsZero(t *testing.T) {
	gdb := newTestDB(t)
	log := logger.NewNop()
	fx := seedChain(t, gdb)

	progress := &types.StepProgress{
		UserID:        1,
		RoadmapStepID: fx.steps[0].ID,
		ConceptID:     fx.concepts[0].ID,
		Status:        types.ProgressCleared,
		MasteryScore:  0.9,
	}
	if err := gdb.Create(progress).Error; err != nil {
		t.Fatalf("create progress: %v", err)
	}

	svc := NewMasteryService(gdb, log,
		repos.NewDocumentRepo(gdb, log),
		repos.NewConceptRepo(gdb, log),
		repos.NewStepProgressRepo(gdb, log))

	got, err := svc.Aggregate(context.Background(), 1, fx.doc.ID)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	want := 0.9 / 3
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("aggregate: want=%v got=%v", want, got)
	}
}

func TestAggregateNoRecordsIsZero(t *testing.T) {
	gdb := newTestDB(t)
	log := logger.NewNop()
	fx := seedChain(t, gdb)

	svc := NewMasteryService(gdb, log,
		repos.NewDocumentRepo(gdb, log),
		repos.NewConceptRepo(gdb, log),
		repos.NewStepProgressRepo(gdb, log))

	got, err := svc.Aggregate(context.Background(), 42, fx.doc.ID)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if got != 0 {
		t.Fatalf("aggregate with no records: want=0 got=%v", got)
	}
}

func TestByConceptKeepsMaxPerConcept(t *testing.T) {
	gdb := newTestDB(t)
	log := logger.NewNop()
	fx := seedChain(t, gdb)

	rows := []*types.StepProgress{
		{UserID: 1, RoadmapStepID: fx.steps[0].ID, ConceptID: fx.concepts[0].ID, Status: types.ProgressCleared, MasteryScore: 0.6},
		{UserID: 1, RoadmapStepID: fx.steps[1].ID, ConceptID: fx.concepts[1].ID, Status: types.ProgressUnlocked, MasteryScore: 0.2},
	}
	for _, row := range rows {
		if err := gdb.Create(row).Error; err != nil {
			t.Fatalf("create progress: %v", err)
		}
	}

	svc := NewMasteryService(gdb, log,
		repos.NewDocumentRepo(gdb, log),
		repos.NewConceptRepo(gdb, log),
		repos.NewStepProgressRepo(gdb, log))

	byConcept, err := svc.ByConcept(context.Background(), nil, 1, fx.doc.ID)
	if err != nil {
		t.Fatalf("ByConcept: %v", err)
	}
	if byConcept[fx.concepts[0].ID] != 0.6 {
		t.Fatalf("concept mastery: want=0.6 got=%v", byConcept[fx.concepts[0].ID])
	}
	if byConcept[fx.concepts[1].ID] != 0.2 {
		t.Fatalf("concept mastery: want=0.2 got=%v", byConcept[fx.concepts[1].ID])
	}
	if _, ok := byConcept[fx.concepts[2].ID]; ok {
		t.Fatalf("unattempted concept must be absent from the map")
	}
}
