package services

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/config"
	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/types"
)

// ChunkerService splits extracted document text into overlapping passages.
// Page-aware when the upstream extractor provided per-page text, whole-text
// otherwise.
type ChunkerService interface {
	CreateChunks(ctx context.Context, tx *gorm.DB, doc *types.Document, version int) ([]*types.Chunk, error)
}

type chunkerService struct {
	db        *gorm.DB
	log       *logger.Logger
	cfg       *config.Config
	chunkRepo repos.ChunkRepo
}

func NewChunkerService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg *config.Config,
	chunkRepo repos.ChunkRepo,
) ChunkerService {
	return &chunkerService{
		db:        db,
		log:       baseLog.With("service", "ChunkerService"),
		cfg:       cfg,
		chunkRepo: chunkRepo,
	}
}

func (s *chunkerService) CreateChunks(ctx context.Context, tx *gorm.DB, doc *types.Document, version int) ([]*types.Chunk, error) {
	var chunks []*types.Chunk
	chunkIndex := 0

	var pages []types.Page
	if len(doc.Pages) > 0 {
		if err := json.Unmarshal(doc.Pages, &pages); err != nil {
			s.log.Warn("Ignoring unparseable page payload", "document_id", doc.ID, "error", err)
			pages = nil
		}
	}

	if len(pages) > 0 {
		for _, page := range pages {
			pageNumber := page.PageNumber
			for _, text := range SplitText(page.Text, s.cfg.ChunkSize, s.cfg.ChunkOverlap) {
				pn := pageNumber
				chunks = append(chunks, &types.Chunk{
					DocumentID: doc.ID,
					Version:    version,
					ChunkText:  text,
					PageNumber: &pn,
					ChunkIndex: chunkIndex,
				})
				chunkIndex++
			}
		}
	} else {
		for _, text := range SplitText(doc.ExtractedText, s.cfg.ChunkSize, s.cfg.ChunkOverlap) {
			chunks = append(chunks, &types.Chunk{
				DocumentID: doc.ID,
				Version:    version,
				ChunkText:  text,
				ChunkIndex: chunkIndex,
			})
			chunkIndex++
		}
	}

	if _, err := s.chunkRepo.CreateBatch(ctx, tx, chunks); err != nil {
		return nil, err
	}
	s.log.Info("Created chunks",
		"document_id", doc.ID,
		"version", version,
		"chunks", len(chunks),
		"paged", len(pages) > 0)
	return chunks, nil
}

// SplitText windows text into chunks of at most size runes, each window
// starting size-overlap runes after the previous one. Text at or under the
// size comes back as a single chunk; empty text yields none.
func SplitText(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{text}
	}
	step := size - overlap
	if step < 1 {
		step = 1
	}
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
