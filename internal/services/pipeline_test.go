package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/types"
	"github.com/revisify/backend/internal/vecindex"
)

const conceptReply = `[
  {"name": "Algebra", "description": "Symbols and equations."},
  {"name": "Calculus", "description": "Limits and change."}
]`

func newPipelineFixture(t *testing.T, reply string) (IngestPipeline, *gorm.DB, *stubTextClient) {
	t.Helper()
	gdb := newTestDB(t)
	log := logger.NewNop()
	cfg := testConfig()
	cfg.IndexDir = t.TempDir()

	caps, client := newTestCaps(reply)
	docRepo := repos.NewDocumentRepo(gdb, log)
	chunkRepo := repos.NewChunkRepo(gdb, log)
	conceptRepo := repos.NewConceptRepo(gdb, log)
	edgeRepo := repos.NewPrereqEdgeRepo(gdb, log)
	stepRepo := repos.NewRoadmapStepRepo(gdb, log)
	runRepo := repos.NewPipelineRunRepo(gdb, log)
	store := vecindex.NewStore(cfg.IndexDir, log)

	progressSvc := NewProgressService(gdb, log,
		repos.NewStepProgressRepo(gdb, log), stepRepo, edgeRepo)
	roadmapSvc := NewRoadmapService(gdb, log, docRepo, conceptRepo, edgeRepo, stepRepo, progressSvc)
	pipeline := NewIngestPipeline(gdb, log, cfg,
		docRepo, runRepo,
		NewChunkerService(gdb, log, cfg, chunkRepo),
		NewEmbedService(gdb, log, cfg, nil, chunkRepo),
		NewConceptService(gdb, log, conceptRepo, caps),
		NewPrereqService(gdb, log, edgeRepo, caps),
		roadmapSvc,
		store,
		nil)
	return pipeline, gdb, client
}

func seedRawDocument(t *testing.T, gdb *gorm.DB) *types.Document {
	t.Helper()
	doc := &types.Document{
		UserID:        1,
		Filename:      "algebra-notes.pdf",
		Status:        types.DocumentStatusProcessing,
		ExtractedText: "Algebra manipulates symbols. Calculus studies change.",
	}
	if err := gdb.Create(doc).Error; err != nil {
		t.Fatalf("create document: %v", err)
	}
	return doc
}

func TestEnqueueAssignsNextVersion(t *testing.T) {
	pipeline, gdb, _ := newPipelineFixture(t, conceptReply)
	doc := seedRawDocument(t, gdb)
	ctx := context.Background()

	first, err := pipeline.Enqueue(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if first.Version != 1 {
		t.Fatalf("first version: want=1 got=%d", first.Version)
	}
	second, err := pipeline.Enqueue(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if second.Version != 2 {
		t.Fatalf("second version: want=2 got=%d", second.Version)
	}
}

func TestPipelineRunEndToEnd(t *testing.T) {
	pipeline, gdb, _ := newPipelineFixture(t, conceptReply)
	doc := seedRawDocument(t, gdb)
	ctx := context.Background()

	run, err := pipeline.Enqueue(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := pipeline.Run(ctx, run); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var reloaded types.Document
	if err := gdb.First(&reloaded, doc.ID).Error; err != nil {
		t.Fatalf("reload document: %v", err)
	}
	if reloaded.CurrentVersion != run.Version {
		t.Fatalf("current version: want=%d got=%d", run.Version, reloaded.CurrentVersion)
	}
	if reloaded.Status != types.DocumentStatusReady {
		t.Fatalf("document status: want=%s got=%s", types.DocumentStatusReady, reloaded.Status)
	}

	var storedRun types.PipelineRun
	if err := gdb.First(&storedRun, run.ID).Error; err != nil {
		t.Fatalf("reload run: %v", err)
	}
	if storedRun.Status != types.RunStatusSucceeded || storedRun.Stage != StageDone {
		t.Fatalf("run state: want=%s/%s got=%s/%s",
			types.RunStatusSucceeded, StageDone, storedRun.Status, storedRun.Stage)
	}

	var concepts []*types.Concept
	if err := gdb.Where("document_id = ? AND version = ?", doc.ID, run.Version).
		Order("id").Find(&concepts).Error; err != nil {
		t.Fatalf("load concepts: %v", err)
	}
	if len(concepts) != 2 {
		t.Fatalf("concepts: want=2 got=%d", len(concepts))
	}

	var steps []*types.RoadmapStep
	if err := gdb.Where("document_id = ? AND version = ?", doc.ID, run.Version).
		Order("step_order").Find(&steps).Error; err != nil {
		t.Fatalf("load steps: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("steps: want=2 got=%d", len(steps))
	}
	// The prior map supplies Calculus -> Algebra, so Algebra comes first.
	if steps[0].ConceptID != concepts[0].ID {
		t.Fatalf("step order: Algebra should lead, got concept %d", steps[0].ConceptID)
	}

	var chunks []*types.Chunk
	if err := gdb.Where("document_id = ? AND version = ?", doc.ID, run.Version).
		Find(&chunks).Error; err != nil {
		t.Fatalf("load chunks: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatalf("chunks should exist")
	}
	for _, chunk := range chunks {
		if !chunk.EmbeddingDegraded {
			t.Fatalf("nil embedder must mark chunks degraded")
		}
	}
}

func TestPipelineRunMarksFailure(t *testing.T) {
	pipeline, gdb, client := newPipelineFixture(t, conceptReply)
	doc := seedRawDocument(t, gdb)
	ctx := context.Background()

	run, err := pipeline.Enqueue(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	client.err = errors.New("model offline")

	if err := pipeline.Run(ctx, run); err == nil {
		t.Fatalf("Run should surface the stage error")
	}

	var storedRun types.PipelineRun
	if err := gdb.First(&storedRun, run.ID).Error; err != nil {
		t.Fatalf("reload run: %v", err)
	}
	if storedRun.Status != types.RunStatusFailed {
		t.Fatalf("run status: want=%s got=%s", types.RunStatusFailed, storedRun.Status)
	}
	if storedRun.Error == "" {
		t.Fatalf("run should record the failure cause")
	}

	var reloaded types.Document
	if err := gdb.First(&reloaded, doc.ID).Error; err != nil {
		t.Fatalf("reload document: %v", err)
	}
	if reloaded.Status != types.DocumentStatusError {
		t.Fatalf("document status: want=%s got=%s", types.DocumentStatusError, reloaded.Status)
	}
	if reloaded.CurrentVersion != 0 {
		t.Fatalf("failed run must not flip the version, got %d", reloaded.CurrentVersion)
	}
}
