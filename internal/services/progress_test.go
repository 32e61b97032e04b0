package services

import (
	"context"
	"testing"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/types"
)

func newProgressFixture(t *testing.T) (ProgressService, *chainFixture, repos.StepProgressRepo) {
	t.Helper()
	gdb := newTestDB(t)
	log := logger.NewNop()
	fx := seedChain(t, gdb)
	progressRepo := repos.NewStepProgressRepo(gdb, log)
	svc := NewProgressService(gdb, log,
		progressRepo,
		repos.NewRoadmapStepRepo(gdb, log),
		repos.NewPrereqEdgeRepo(gdb, log))
	return svc, fx, progressRepo
}

func TestEffectiveStatusWithoutRows(t *testing.T) {
	svc, fx, _ := newProgressFixture(t)
	ctx := context.Background()

	first, err := svc.EffectiveStatus(ctx, nil, 1, fx.steps[0])
	if err != nil {
		t.Fatalf("EffectiveStatus: %v", err)
	}
	if first.Status != types.ProgressUnlocked {
		t.Fatalf("step without prerequisites: want=%s got=%s", types.ProgressUnlocked, first.Status)
	}

	second, err := svc.EffectiveStatus(ctx, nil, 1, fx.steps[1])
	if err != nil {
		t.Fatalf("EffectiveStatus: %v", err)
	}
	if second.Status != types.ProgressLocked {
		t.Fatalf("step with uncleared prerequisite: want=%s got=%s", types.ProgressLocked, second.Status)
	}
}

func TestApplyGradeCascadesUnlock(t *testing.T) {
	svc, fx, progressRepo := newProgressFixture(t)
	ctx := context.Background()

	row, err := svc.ApplyGrade(ctx, nil, 1, fx.steps[0], 0.7, true)
	if err != nil {
		t.Fatalf("ApplyGrade: %v", err)
	}
	if row.Status != types.ProgressCleared || row.MasteryScore != 0.7 {
		t.Fatalf("cleared row: want=cleared/0.7 got=%s/%v", row.Status, row.MasteryScore)
	}

	next, err := progressRepo.GetByUserStep(ctx, nil, 1, fx.steps[1].ID)
	if err != nil {
		t.Fatalf("GetByUserStep: %v", err)
	}
	if next == nil || next.Status != types.ProgressUnlocked {
		t.Fatalf("dependent should be unlocked, got %+v", next)
	}
}

func TestApplyGradeIsMonotone(t *testing.T) {
	svc, fx, _ := newProgressFixture(t)
	ctx := context.Background()

	if _, err := svc.ApplyGrade(ctx, nil, 1, fx.steps[0], 0.8, true); err != nil {
		t.Fatalf("ApplyGrade: %v", err)
	}
	row, err := svc.ApplyGrade(ctx, nil, 1, fx.steps[0], 0.1, false)
	if err != nil {
		t.Fatalf("ApplyGrade: %v", err)
	}
	if row.Status != types.ProgressCleared {
		t.Fatalf("status reverted: got %s", row.Status)
	}
	if row.MasteryScore != 0.8 {
		t.Fatalf("mastery dropped: want=0.8 got=%v", row.MasteryScore)
	}
}

func TestUnlockEligibleDirectPrereqsOnly(t *testing.T) {
	svc, fx, progressRepo := newProgressFixture(t)
	ctx := context.Background()

	// Eligibility looks at direct prerequisites only: clearing the middle
	// concept unlocks the last one even though the first was never attempted.
	if _, err := svc.ApplyGrade(ctx, nil, 1, fx.steps[1], 0.9, true); err != nil {
		t.Fatalf("ApplyGrade: %v", err)
	}

	last, err := progressRepo.GetByUserStep(ctx, nil, 1, fx.steps[2].ID)
	if err != nil {
		t.Fatalf("GetByUserStep: %v", err)
	}
	if last == nil || last.Status != types.ProgressUnlocked {
		t.Fatalf("step whose direct prerequisite cleared should unlock, got %+v", last)
	}

	// The first step has no prerequisites and no row; no row is written for it.
	first, err := progressRepo.GetByUserStep(ctx, nil, 1, fx.steps[0].ID)
	if err != nil {
		t.Fatalf("GetByUserStep: %v", err)
	}
	if first != nil {
		t.Fatalf("zero-prerequisite step should stay rowless, got %+v", first)
	}
}

func TestStatusesForStepsMixesStoredAndComputed(t *testing.T) {
	svc, fx, _ := newProgressFixture(t)
	ctx := context.Background()

	if _, err := svc.ApplyGrade(ctx, nil, 1, fx.steps[0], 0.6, true); err != nil {
		t.Fatalf("ApplyGrade: %v", err)
	}

	statuses, err := svc.StatusesForSteps(ctx, nil, 1, fx.steps)
	if err != nil {
		t.Fatalf("StatusesForSteps: %v", err)
	}
	if got := statuses[fx.steps[0].ID]; got.Status != types.ProgressCleared || got.Mastery != 0.6 {
		t.Fatalf("stored row: want=cleared/0.6 got=%s/%v", got.Status, got.Mastery)
	}
	if got := statuses[fx.steps[1].ID]; got.Status != types.ProgressUnlocked {
		t.Fatalf("unlocked row: want=%s got=%s", types.ProgressUnlocked, got.Status)
	}
	if got := statuses[fx.steps[2].ID]; got.Status != types.ProgressLocked {
		t.Fatalf("computed locked: want=%s got=%s", types.ProgressLocked, got.Status)
	}
}
