package services

import (
	"context"
	"testing"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/types"
)

func edge(concept, prereq uint) *types.PrereqEdge {
	return &types.PrereqEdge{ConceptID: concept, PrerequisiteID: prereq}
}

func TestTopoOrderRespectsEdges(t *testing.T) {
	ids := []uint{3, 1, 2}
	edges := []*types.PrereqEdge{edge(2, 1), edge(3, 2)}

	got := TopoOrder(ids, edges)
	want := []uint{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("order length: want=%d got=%d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order[%d]: want=%d got=%d (full: %v)", i, want[i], got[i], got)
		}
	}
}

func TestTopoOrderNoEdgesIsAscending(t *testing.T) {
	got := TopoOrder([]uint{9, 4, 7, 1}, nil)
	want := []uint{1, 4, 7, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order[%d]: want=%d got=%d (full: %v)", i, want[i], got[i], got)
		}
	}
}

func TestTopoOrderDiamond(t *testing.T) {
	// 1 -> {2, 3} -> 4
	ids := []uint{4, 3, 2, 1}
	edges := []*types.PrereqEdge{edge(2, 1), edge(3, 1), edge(4, 2), edge(4, 3)}

	got := TopoOrder(ids, edges)
	pos := make(map[uint]int, len(got))
	for i, id := range got {
		pos[id] = i
	}
	for _, e := range edges {
		if pos[e.PrerequisiteID] >= pos[e.ConceptID] {
			t.Fatalf("prerequisite %d not before %d: %v", e.PrerequisiteID, e.ConceptID, got)
		}
	}
	if got[1] != 2 || got[2] != 3 {
		t.Fatalf("siblings not in ascending order: %v", got)
	}
}

func TestTopoOrderCycleAppendsRemainder(t *testing.T) {
	// 1 and 2 form a cycle; 3 is free.
	ids := []uint{1, 2, 3}
	edges := []*types.PrereqEdge{edge(1, 2), edge(2, 1)}

	got := TopoOrder(ids, edges)
	want := []uint{3, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order[%d]: want=%d got=%d (full: %v)", i, want[i], got[i], got)
		}
	}
}

func TestTopoOrderIgnoresSelfLoopsAndDuplicates(t *testing.T) {
	ids := []uint{1, 2}
	edges := []*types.PrereqEdge{edge(1, 1), edge(2, 1), edge(2, 1)}

	got := TopoOrder(ids, edges)
	want := []uint{1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order[%d]: want=%d got=%d (full: %v)", i, want[i], got[i], got)
		}
	}
}

func TestBuildRoadmapWritesOrderedSteps(t *testing.T) {
	gdb := newTestDB(t)
	log := logger.NewNop()
	fx := seedChain(t, gdb)

	// The chain fixture already seeded steps; delete them so the build writes
	// fresh rows.
	if err := gdb.Where("document_id = ?", fx.doc.ID).Delete(&types.RoadmapStep{}).Error; err != nil {
		t.Fatalf("clear steps: %v", err)
	}

	progressSvc := NewProgressService(gdb, log,
		repos.NewStepProgressRepo(gdb, log),
		repos.NewRoadmapStepRepo(gdb, log),
		repos.NewPrereqEdgeRepo(gdb, log))
	svc := NewRoadmapService(gdb, log,
		repos.NewDocumentRepo(gdb, log),
		repos.NewConceptRepo(gdb, log),
		repos.NewPrereqEdgeRepo(gdb, log),
		repos.NewRoadmapStepRepo(gdb, log),
		progressSvc)

	steps, err := svc.BuildRoadmap(context.Background(), fx.doc.ID)
	if err != nil {
		t.Fatalf("BuildRoadmap: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("steps: want=3 got=%d", len(steps))
	}
	for i, step := range steps {
		if step.StepOrder != i+1 {
			t.Fatalf("step %d order: want=%d got=%d", i, i+1, step.StepOrder)
		}
		if step.ConceptID != fx.concepts[i].ID {
			t.Fatalf("step %d concept: want=%d got=%d", i, fx.concepts[i].ID, step.ConceptID)
		}
	}

	// Rebuilding must reuse rows, not duplicate them.
	again, err := svc.BuildRoadmap(context.Background(), fx.doc.ID)
	if err != nil {
		t.Fatalf("BuildRoadmap again: %v", err)
	}
	for i := range steps {
		if steps[i].ID != again[i].ID {
			t.Fatalf("step %d id changed on rebuild: want=%d got=%d", i, steps[i].ID, again[i].ID)
		}
	}
}

func TestListForUserStatuses(t *testing.T) {
	gdb := newTestDB(t)
	log := logger.NewNop()
	fx := seedChain(t, gdb)

	progressSvc := NewProgressService(gdb, log,
		repos.NewStepProgressRepo(gdb, log),
		repos.NewRoadmapStepRepo(gdb, log),
		repos.NewPrereqEdgeRepo(gdb, log))
	svc := NewRoadmapService(gdb, log,
		repos.NewDocumentRepo(gdb, log),
		repos.NewConceptRepo(gdb, log),
		repos.NewPrereqEdgeRepo(gdb, log),
		repos.NewRoadmapStepRepo(gdb, log),
		progressSvc)

	views, err := svc.ListForUser(context.Background(), 1, fx.doc.ID)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("views: want=3 got=%d", len(views))
	}
	if views[0].Status != types.ProgressUnlocked {
		t.Fatalf("first step status: want=%s got=%s", types.ProgressUnlocked, views[0].Status)
	}
	if views[1].Status != types.ProgressLocked || views[2].Status != types.ProgressLocked {
		t.Fatalf("downstream steps should be locked: got %s, %s", views[1].Status, views[2].Status)
	}
	if views[0].Concept == nil || views[0].Concept.Name != "Algebra" {
		t.Fatalf("first step concept not joined: %+v", views[0].Concept)
	}
}
