package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/ai"
	"github.com/revisify/backend/internal/apierr"
	"github.com/revisify/backend/internal/config"
	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/vecindex"
)

const noContextAnswer = "No relevant context found in this document for that question."

// Citation points an answer sentence back at the source passage.
type Citation struct {
	ChunkID    uint    `json:"chunk_id"`
	PageNumber *int    `json:"page_number,omitempty"`
	Similarity float64 `json:"similarity"`
	Snippet    string  `json:"snippet"`
}

// RagAnswer is a grounded answer over a document, with citations. Degraded
// means retrieval ran without real embeddings and the answer should be
// treated as low confidence.
type RagAnswer struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Degraded  bool       `json:"degraded"`
}

// SearchResult is one nearest-neighbor hit from a document's index.
type SearchResult struct {
	ChunkID    uint    `json:"chunk_id"`
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
}

// RagService answers questions against a document's indexed chunks.
type RagService interface {
	// Answer embeds the question, retrieves the nearest passages from the
	// document's current version, and asks the text capability to answer from
	// them alone. Chunks carrying degraded embeddings are excluded from
	// grounding; if nothing trustworthy remains the canned no-context answer
	// comes back instead of a guess.
	Answer(ctx context.Context, documentID uint, question string) (*RagAnswer, error)
	// Search runs a raw nearest-neighbor query. A missing index or empty
	// document yields an empty result, never an error.
	Search(ctx context.Context, documentID uint, queryEmbedding []float32, topK int) ([]SearchResult, error)
}

type ragService struct {
	db        *gorm.DB
	log       *logger.Logger
	cfg       *config.Config
	docRepo   repos.DocumentRepo
	chunkRepo repos.ChunkRepo
	store     *vecindex.Store
	embed     EmbedService
	caps      *ai.Capabilities
}

func NewRagService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg *config.Config,
	docRepo repos.DocumentRepo,
	chunkRepo repos.ChunkRepo,
	store *vecindex.Store,
	embed EmbedService,
	caps *ai.Capabilities,
) RagService {
	return &ragService{
		db:        db,
		log:       baseLog.With("service", "RagService"),
		cfg:       cfg,
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		store:     store,
		embed:     embed,
		caps:      caps,
	}
}

func (s *ragService) Answer(ctx context.Context, documentID uint, question string) (*RagAnswer, error) {
	doc, err := s.docRepo.GetByID(ctx, nil, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apierr.NotFound("document %d not found", documentID)
	}
	if doc.CurrentVersion == 0 {
		return nil, apierr.Validation("document %d has not finished processing", documentID)
	}

	query, err := s.embed.EmbedQuery(ctx, question)
	if err != nil {
		if apierr.IsUnavailable(err) {
			s.log.Warn("Query embedding unavailable, returning no-context answer",
				"document_id", documentID, "error", err)
			return &RagAnswer{Answer: noContextAnswer, Citations: []Citation{}, Degraded: true}, nil
		}
		return nil, err
	}

	matches, err := s.Search(ctx, documentID, query, s.cfg.RAGTopK)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return &RagAnswer{Answer: noContextAnswer, Citations: []Citation{}}, nil
	}

	ids := make([]uint, len(matches))
	simByID := make(map[uint]float64, len(matches))
	for i, m := range matches {
		ids[i] = m.ChunkID
		simByID[m.ChunkID] = m.Similarity
	}
	chunks, err := s.chunkRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}

	var passages []string
	var citations []Citation
	degradedHits := 0
	for _, m := range matches {
		for _, chunk := range chunks {
			if chunk.ID != m.ChunkID {
				continue
			}
			if chunk.EmbeddingDegraded {
				degradedHits++
				break
			}
			passages = append(passages, fmt.Sprintf("[source %d] %s", len(passages)+1, chunk.ChunkText))
			citations = append(citations, Citation{
				ChunkID:    chunk.ID,
				PageNumber: chunk.PageNumber,
				Similarity: simByID[chunk.ID],
				Snippet:    snippet(chunk.ChunkText),
			})
			break
		}
	}
	if len(passages) == 0 {
		return &RagAnswer{Answer: noContextAnswer, Citations: []Citation{}, Degraded: degradedHits > 0}, nil
	}

	answer, err := s.caps.AnswerWithContext(ctx, question, passages)
	if err != nil {
		return nil, apierr.Unavailable("answer generation failed: %v", err)
	}

	s.log.Info("Answered question",
		"document_id", documentID,
		"passages", len(passages),
		"degraded_hits", degradedHits)
	return &RagAnswer{Answer: answer, Citations: citations}, nil
}

func (s *ragService) Search(ctx context.Context, documentID uint, queryEmbedding []float32, topK int) ([]SearchResult, error) {
	doc, err := s.docRepo.GetByID(ctx, nil, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.CurrentVersion == 0 {
		return []SearchResult{}, nil
	}

	ix, err := s.store.Load(documentID, doc.CurrentVersion)
	if err != nil {
		return nil, err
	}
	matches := ix.Search(queryEmbedding, topK)
	out := make([]SearchResult, len(matches))
	for i, m := range matches {
		out[i] = SearchResult{
			ChunkID:    m.ChunkID,
			Distance:   m.Distance,
			Similarity: m.Similarity,
		}
	}
	return out, nil
}

func snippet(text string) string {
	const max = 160
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}
