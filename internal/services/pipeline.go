package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/revisify/backend/internal/apierr"
	"github.com/revisify/backend/internal/config"
	"github.com/revisify/backend/internal/graph"
	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/types"
	"github.com/revisify/backend/internal/vecindex"
)

const (
	StageChunk    = "chunk"
	StageEmbed    = "embed"
	StageIndex    = "index"
	StageConcepts = "concepts"
	StagePrereqs  = "prereqs"
	StageRoadmap  = "roadmap"
	StageDone     = "done"
)

// IngestPipeline turns an extracted document into chunks, embeddings, a
// vector index, concepts, prerequisite edges, and a roadmap, all under a
// fresh version number. Stages run outside a wrapping transaction: every row
// a run writes carries the run's version, and nothing reads that version
// until the document's CurrentVersion flips on success, so a half-finished
// run leaves only inert rows behind.
type IngestPipeline interface {
	// Enqueue records a queued run for the document at the next version.
	Enqueue(ctx context.Context, documentID uint) (*types.PipelineRun, error)
	// Run executes a claimed run to completion, updating its stage and status
	// as it goes. On failure the run and document are marked failed and the
	// error comes back to the worker for retry accounting.
	Run(ctx context.Context, run *types.PipelineRun) error
}

type ingestPipeline struct {
	db       *gorm.DB
	log      *logger.Logger
	cfg      *config.Config
	tracer   trace.Tracer
	docRepo  repos.DocumentRepo
	runRepo  repos.PipelineRunRepo
	chunker  ChunkerService
	embed    EmbedService
	concepts ConceptService
	prereqs  PrereqService
	roadmap  RoadmapService
	store    *vecindex.Store
	mirror   *graph.Mirror
}

// NewIngestPipeline accepts a nil mirror; graph sync then becomes a no-op.
func NewIngestPipeline(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg *config.Config,
	docRepo repos.DocumentRepo,
	runRepo repos.PipelineRunRepo,
	chunker ChunkerService,
	embed EmbedService,
	concepts ConceptService,
	prereqs PrereqService,
	roadmap RoadmapService,
	store *vecindex.Store,
	mirror *graph.Mirror,
) IngestPipeline {
	return &ingestPipeline{
		db:       db,
		log:      baseLog.With("service", "IngestPipeline"),
		cfg:      cfg,
		tracer:   otel.Tracer("revisify/pipeline"),
		docRepo:  docRepo,
		runRepo:  runRepo,
		chunker:  chunker,
		embed:    embed,
		concepts: concepts,
		prereqs:  prereqs,
		roadmap:  roadmap,
		store:    store,
		mirror:   mirror,
	}
}

func (p *ingestPipeline) Enqueue(ctx context.Context, documentID uint) (*types.PipelineRun, error) {
	doc, err := p.docRepo.GetByID(ctx, nil, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apierr.NotFound("document %d not found", documentID)
	}
	if doc.ExtractedText == "" {
		return nil, apierr.Validation("document %d has no extracted text", documentID)
	}

	var run *types.PipelineRun
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		maxVersion, err := p.runRepo.MaxVersionForDocument(ctx, tx, documentID)
		if err != nil {
			return err
		}
		run = &types.PipelineRun{
			ExternalID: uuid.New(),
			DocumentID: documentID,
			JobType:    types.JobTypeDocumentIngest,
			Version:    maxVersion + 1,
			Status:     types.RunStatusQueued,
		}
		if _, err := p.runRepo.Enqueue(ctx, tx, run); err != nil {
			return err
		}
		return p.docRepo.SetStatus(ctx, tx, documentID, types.DocumentStatusProcessing, "")
	})
	if err != nil {
		return nil, err
	}

	p.log.Info("Enqueued ingest run",
		"document_id", documentID,
		"run_id", run.ID,
		"version", run.Version)
	return run, nil
}

func (p *ingestPipeline) Run(ctx context.Context, run *types.PipelineRun) error {
	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.Int64("document.id", int64(run.DocumentID)),
		attribute.Int("pipeline.version", run.Version),
	))
	defer span.End()

	err := p.execute(ctx, run)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.markFailed(ctx, run, err)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (p *ingestPipeline) execute(ctx context.Context, run *types.PipelineRun) error {
	doc, err := p.docRepo.GetByID(ctx, nil, run.DocumentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return apierr.NotFound("document %d not found", run.DocumentID)
	}
	version := run.Version

	var chunks []*types.Chunk
	if err := p.stage(ctx, run, StageChunk, func(ctx context.Context) error {
		var err error
		chunks, err = p.chunker.CreateChunks(ctx, nil, doc, version)
		return err
	}); err != nil {
		return err
	}

	if err := p.stage(ctx, run, StageEmbed, func(ctx context.Context) error {
		return p.embed.EmbedChunks(ctx, nil, chunks)
	}); err != nil {
		return err
	}

	if err := p.stage(ctx, run, StageIndex, func(ctx context.Context) error {
		return p.buildIndex(run.DocumentID, version, chunks)
	}); err != nil {
		return err
	}

	var concepts []*types.Concept
	if err := p.stage(ctx, run, StageConcepts, func(ctx context.Context) error {
		var err error
		concepts, err = p.concepts.ExtractAndStore(ctx, nil, run.DocumentID, version, doc.ExtractedText)
		return err
	}); err != nil {
		return err
	}

	var edges []*types.PrereqEdge
	if err := p.stage(ctx, run, StagePrereqs, func(ctx context.Context) error {
		var err error
		edges, err = p.prereqs.InferEdges(ctx, nil, run.DocumentID, concepts)
		return err
	}); err != nil {
		return err
	}

	if err := p.stage(ctx, run, StageRoadmap, func(ctx context.Context) error {
		_, err := p.roadmap.BuildForVersion(ctx, nil, run.DocumentID, version)
		return err
	}); err != nil {
		return err
	}

	// Success flip: document and run change together or not at all.
	now := time.Now().UTC()
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := p.docRepo.UpdateFields(ctx, tx, run.DocumentID, map[string]interface{}{
			"current_version": version,
			"status":          types.DocumentStatusReady,
			"error_message":   "",
		}); err != nil {
			return err
		}
		return p.runRepo.UpdateFields(ctx, tx, run.ID, map[string]interface{}{
			"status":      types.RunStatusSucceeded,
			"stage":       StageDone,
			"error":       "",
			"finished_at": now,
		})
	})
	if err != nil {
		return err
	}

	if err := p.mirror.SyncRoadmap(ctx, run.DocumentID, version, concepts, edges); err != nil {
		// The relational store is authoritative; a mirror sync failure does
		// not fail the run.
		p.log.Warn("Graph mirror sync failed",
			"document_id", run.DocumentID,
			"version", version,
			"error", err)
	}

	p.log.Info("Ingest run succeeded",
		"document_id", run.DocumentID,
		"run_id", run.ID,
		"version", version,
		"chunks", len(chunks),
		"concepts", len(concepts),
		"edges", len(edges))
	return nil
}

func (p *ingestPipeline) stage(ctx context.Context, run *types.PipelineRun, name string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "pipeline."+name)
	defer span.End()

	if err := p.runRepo.UpdateFields(ctx, nil, run.ID, map[string]interface{}{"stage": name}); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s stage: %w", name, err)
	}
	return nil
}

// buildIndex snapshots the version's chunk embeddings. Chunks with missing
// or malformed embeddings are skipped; an all-skipped document simply gets
// no index, which retrieval treats as empty.
func (p *ingestPipeline) buildIndex(documentID uint, version int, chunks []*types.Chunk) error {
	var vectors [][]float32
	var ids []uint
	for _, chunk := range chunks {
		vec := DecodeEmbedding(chunk.Embedding)
		if len(vec) != p.cfg.EmbeddingDim {
			continue
		}
		vectors = append(vectors, vec)
		ids = append(ids, chunk.ID)
	}
	if len(vectors) == 0 {
		p.log.Warn("No usable embeddings, skipping index",
			"document_id", documentID,
			"version", version)
		return nil
	}
	ix, err := vecindex.New(p.cfg.EmbeddingDim, vectors, ids)
	if err != nil {
		return err
	}
	return p.store.Save(documentID, version, ix)
}

func (p *ingestPipeline) markFailed(ctx context.Context, run *types.PipelineRun, cause error) {
	now := time.Now().UTC()
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := p.runRepo.UpdateFields(ctx, tx, run.ID, map[string]interface{}{
			"status":      types.RunStatusFailed,
			"error":       cause.Error(),
			"finished_at": now,
		}); err != nil {
			return err
		}
		return p.docRepo.SetStatus(ctx, tx, run.DocumentID, types.DocumentStatusError, cause.Error())
	})
	if err != nil {
		p.log.Error("Failed to record run failure", "run_id", run.ID, "error", err)
	}
}
