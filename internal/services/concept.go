package services

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/revisify/backend/internal/ai"
	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/types"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// ConceptService extracts concepts from document text and canonicalizes them
// before they are stored. Concepts are immutable once written; the merge of
// near-duplicate names happens here, not afterward.
type ConceptService interface {
	ExtractAndStore(ctx context.Context, tx *gorm.DB, documentID uint, version int, text string) ([]*types.Concept, error)
	ListCurrent(ctx context.Context, documentID uint, version int) ([]*types.Concept, error)
}

type conceptService struct {
	db          *gorm.DB
	log         *logger.Logger
	conceptRepo repos.ConceptRepo
	caps        *ai.Capabilities
}

func NewConceptService(
	db *gorm.DB,
	baseLog *logger.Logger,
	conceptRepo repos.ConceptRepo,
	caps *ai.Capabilities,
) ConceptService {
	return &conceptService{
		db:          db,
		log:         baseLog.With("service", "ConceptService"),
		conceptRepo: conceptRepo,
		caps:        caps,
	}
}

func (s *conceptService) ExtractAndStore(ctx context.Context, tx *gorm.DB, documentID uint, version int, text string) ([]*types.Concept, error) {
	drafts, err := s.caps.ExtractConcepts(ctx, text)
	if err != nil {
		return nil, err
	}
	canonical := CanonicalizeConcepts(drafts)

	concepts := make([]*types.Concept, 0, len(canonical))
	for _, c := range canonical {
		concepts = append(concepts, &types.Concept{
			DocumentID:    documentID,
			Version:       version,
			Name:          c.Name,
			Description:   c.Description,
			CanonicalName: c.CanonicalName,
		})
	}
	if _, err := s.conceptRepo.CreateBatch(ctx, tx, concepts); err != nil {
		return nil, err
	}

	s.log.Info("Extracted concepts",
		"document_id", documentID,
		"version", version,
		"raw", len(drafts),
		"canonical", len(concepts))
	return concepts, nil
}

func (s *conceptService) ListCurrent(ctx context.Context, documentID uint, version int) ([]*types.Concept, error) {
	return s.conceptRepo.ListByDocumentVersion(ctx, nil, documentID, version)
}

// ConceptCandidate is a concept after canonicalization, before storage.
type ConceptCandidate struct {
	Name          string
	CanonicalName string
	Description   string
}

// CanonicalizeConcepts deduplicates extracted concepts by normalized name.
// Names whose normalized forms contain one another merge into the earlier
// concept, concatenating descriptions. The canonical name is the title-cased
// original.
func CanonicalizeConcepts(drafts []ai.ConceptDraft) []ConceptCandidate {
	titler := cases.Title(language.English)
	out := make([]ConceptCandidate, 0, len(drafts))
	normalized := make([]string, 0, len(drafts))

	for _, d := range drafts {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			continue
		}
		norm := whitespaceRe.ReplaceAllString(strings.ToLower(name), " ")

		merged := false
		for i, existing := range normalized {
			if strings.Contains(existing, norm) || strings.Contains(norm, existing) {
				desc := strings.TrimSpace(out[i].Description + " " + d.Description)
				out[i].Description = desc
				merged = true
				break
			}
		}
		if merged {
			continue
		}
		out = append(out, ConceptCandidate{
			Name:          name,
			CanonicalName: titler.String(norm),
			Description:   strings.TrimSpace(d.Description),
		})
		normalized = append(normalized, norm)
	}
	return out
}
