package services

import (
	"context"
	"encoding/json"
	"hash/fnv"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/ai"
	"github.com/revisify/backend/internal/apierr"
	"github.com/revisify/backend/internal/config"
	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/types"
)

// EmbedService attaches embeddings to chunks. When the embedding capability
// is unreachable it stores a deterministic non-semantic fallback vector and
// marks the chunk degraded so retrieval can rank those rows last instead of
// silently returning poor matches.
type EmbedService interface {
	EmbedChunks(ctx context.Context, tx *gorm.DB, chunks []*types.Chunk) error
	// EmbedQuery embeds one retrieval query. Unlike chunk embedding it does
	// not degrade: a query without a real embedding cannot rank passages.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type embedService struct {
	db        *gorm.DB
	log       *logger.Logger
	cfg       *config.Config
	embedder  ai.Embedder
	chunkRepo repos.ChunkRepo
}

// NewEmbedService accepts a nil embedder; every chunk then takes the
// degraded path.
func NewEmbedService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg *config.Config,
	embedder ai.Embedder,
	chunkRepo repos.ChunkRepo,
) EmbedService {
	return &embedService{
		db:        db,
		log:       baseLog.With("service", "EmbedService"),
		cfg:       cfg,
		embedder:  embedder,
		chunkRepo: chunkRepo,
	}
}

func (s *embedService) EmbedChunks(ctx context.Context, tx *gorm.DB, chunks []*types.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	var vectors [][]float32
	degraded := false
	if s.embedder == nil {
		degraded = true
	} else {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.ChunkText
		}
		var err error
		vectors, err = s.embedder.Embed(ctx, texts)
		if err != nil {
			s.log.Warn("Embedding capability unavailable, storing degraded vectors", "error", err)
			degraded = true
		} else if len(vectors) != len(chunks) {
			s.log.Warn("Embedder returned wrong vector count, storing degraded vectors",
				"want", len(chunks), "got", len(vectors))
			degraded = true
		}
	}

	for i, chunk := range chunks {
		var vec []float32
		if degraded {
			vec = FallbackVector(chunk.ChunkText, s.cfg.EmbeddingDim)
		} else {
			vec = vectors[i]
		}
		raw, err := json.Marshal(vec)
		if err != nil {
			return err
		}
		if err := s.chunkRepo.UpdateEmbedding(ctx, tx, chunk.ID, raw, degraded); err != nil {
			return err
		}
		chunk.Embedding = raw
		chunk.EmbeddingDegraded = degraded
	}

	s.log.Info("Embedded chunks", "chunks", len(chunks), "degraded", degraded)
	return nil
}

func (s *embedService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, apierr.Unavailable("embedding capability not configured")
	}
	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, apierr.Unavailable("embedding capability unreachable: %v", err)
	}
	if len(vectors) != 1 {
		return nil, apierr.Unavailable("embedding capability returned %d vectors for one input", len(vectors))
	}
	return vectors[0], nil
}

// FallbackVector derives a stable pseudo-embedding from the text itself.
// It carries no semantics; its only job is to keep the index shape intact
// while the degraded flag tells retrieval not to trust it.
func FallbackVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(seed>>40) / float32(1<<24)
	}
	return vec
}

// DecodeEmbedding parses the JSON vector stored on a chunk row. Missing or
// malformed payloads come back nil.
func DecodeEmbedding(raw []byte) []float32 {
	if len(raw) == 0 {
		return nil
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil
	}
	return vec
}
