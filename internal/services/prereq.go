package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/ai"
	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/types"
)

const maxPrereqsPerConcept = 4

// fallbackPriorMap supplies prerequisites for well-known topics when the
// generative capability returns too few. Keys and values are normalized
// lowercase names matched by substring containment.
var fallbackPriorMap = map[string][]string{
	"calculus":                    {"algebra", "trigonometry"},
	"linear algebra":              {"algebra"},
	"differential equations":      {"calculus"},
	"object-oriented programming": {"programming basics", "data structures"},
	"design patterns":             {"object-oriented programming"},
	"algorithms":                  {"data structures", "programming basics"},
	"advanced topics":             {"basics", "fundamentals"},
}

// PrereqService infers prerequisite edges between a document's concepts.
type PrereqService interface {
	// InferEdges asks the generative capability for each concept's
	// prerequisites, augments thin answers from the built-in prior map, and
	// inserts the surviving edges. Self-references, names outside the
	// document's concept set, and existing edges are dropped.
	InferEdges(ctx context.Context, tx *gorm.DB, documentID uint, concepts []*types.Concept) ([]*types.PrereqEdge, error)
}

type prereqService struct {
	db       *gorm.DB
	log      *logger.Logger
	edgeRepo repos.PrereqEdgeRepo
	caps     *ai.Capabilities
}

func NewPrereqService(
	db *gorm.DB,
	baseLog *logger.Logger,
	edgeRepo repos.PrereqEdgeRepo,
	caps *ai.Capabilities,
) PrereqService {
	return &prereqService{
		db:       db,
		log:      baseLog.With("service", "PrereqService"),
		edgeRepo: edgeRepo,
		caps:     caps,
	}
}

func (s *prereqService) InferEdges(ctx context.Context, tx *gorm.DB, documentID uint, concepts []*types.Concept) ([]*types.PrereqEdge, error) {
	names := make([]string, 0, len(concepts))
	idByName := make(map[string]uint, len(concepts))
	for _, c := range concepts {
		names = append(names, c.Name)
		idByName[strings.ToLower(strings.TrimSpace(c.Name))] = c.ID
	}

	var edges []*types.PrereqEdge
	for _, concept := range concepts {
		generated, err := s.caps.InferPrerequisites(ctx, concept.Name, concept.Description, names)
		if err != nil {
			// Inference degrades to the prior map; one flaky call should not
			// fail the whole pipeline stage.
			s.log.Warn("Prerequisite inference failed, using prior map only",
				"concept_id", concept.ID,
				"error", err)
			generated = nil
		}

		merged := MergePrereqNames(generated, PriorPrereqs(concept.Name))
		for _, prereqName := range merged {
			prereqID, ok := idByName[strings.ToLower(strings.TrimSpace(prereqName))]
			if !ok || prereqID == concept.ID {
				continue
			}
			edge := &types.PrereqEdge{
				DocumentID:     documentID,
				ConceptID:      concept.ID,
				PrerequisiteID: prereqID,
			}
			if err := s.edgeRepo.Insert(ctx, tx, edge); err != nil {
				return nil, err
			}
			edges = append(edges, edge)
		}
	}

	s.log.Info("Inferred prerequisite edges",
		"document_id", documentID,
		"concepts", len(concepts),
		"edges", len(edges))
	return edges, nil
}

// PriorPrereqs looks a concept name up in the prior map, first exactly, then
// by substring containment either way.
func PriorPrereqs(conceptName string) []string {
	normalized := strings.ToLower(strings.TrimSpace(conceptName))
	if prereqs, ok := fallbackPriorMap[normalized]; ok {
		return prereqs
	}
	for key, prereqs := range fallbackPriorMap {
		if strings.Contains(normalized, key) || strings.Contains(key, normalized) {
			return prereqs
		}
	}
	return nil
}

// MergePrereqNames combines generated prerequisites with prior-map ones.
// Generated names come first and the prior map only fills in when fewer than
// two were generated; the merged list is deduplicated case-insensitively and
// capped.
func MergePrereqNames(generated, prior []string) []string {
	candidates := generated
	if len(generated) < 2 {
		candidates = append(append([]string{}, generated...), prior...)
	}

	seen := make(map[string]bool, len(candidates))
	var out []string
	for _, name := range candidates {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
		if len(out) == maxPrereqsPerConcept {
			break
		}
	}
	return out
}
