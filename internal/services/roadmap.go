package services

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/apierr"
	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/types"
)

// StepView is a roadmap step joined with its concept and the requesting
// user's status on it.
type StepView struct {
	Step    *types.RoadmapStep `json:"step"`
	Concept *types.Concept     `json:"concept"`
	Status  string             `json:"status"`
	Mastery float64            `json:"mastery"`
}

// RoadmapService linearizes a document's concepts into ordered steps and
// serves the per-user view of them.
type RoadmapService interface {
	// BuildRoadmap orders the current version's concepts and writes the
	// step rows, reusing existing (document, concept) rows.
	BuildRoadmap(ctx context.Context, documentID uint) ([]*types.RoadmapStep, error)
	// BuildForVersion is BuildRoadmap pinned to an explicit version, for use
	// inside the ingest pipeline before the version flips live.
	BuildForVersion(ctx context.Context, tx *gorm.DB, documentID uint, version int) ([]*types.RoadmapStep, error)
	// ListForUser returns the current roadmap with each step's effective
	// status for the user.
	ListForUser(ctx context.Context, userID, documentID uint) ([]*StepView, error)
}

type roadmapService struct {
	db           *gorm.DB
	log          *logger.Logger
	documentRepo repos.DocumentRepo
	conceptRepo  repos.ConceptRepo
	edgeRepo     repos.PrereqEdgeRepo
	stepRepo     repos.RoadmapStepRepo
	progress     ProgressService
}

func NewRoadmapService(
	db *gorm.DB,
	baseLog *logger.Logger,
	documentRepo repos.DocumentRepo,
	conceptRepo repos.ConceptRepo,
	edgeRepo repos.PrereqEdgeRepo,
	stepRepo repos.RoadmapStepRepo,
	progress ProgressService,
) RoadmapService {
	return &roadmapService{
		db:           db,
		log:          baseLog.With("service", "RoadmapService"),
		documentRepo: documentRepo,
		conceptRepo:  conceptRepo,
		edgeRepo:     edgeRepo,
		stepRepo:     stepRepo,
		progress:     progress,
	}
}

// TopoOrder runs Kahn's algorithm over the concept dependency graph and
// returns every concept id exactly once. Zero in-degree concepts seed the
// queue in ascending id order and dependents are visited in ascending id
// order, so the output is deterministic for a given graph. Concepts caught
// in a cycle are appended at the end in ascending id order instead of
// failing the build.
func TopoOrder(conceptIDs []uint, edges []*types.PrereqEdge) []uint {
	inGraph := make(map[uint]bool, len(conceptIDs))
	for _, id := range conceptIDs {
		inGraph[id] = true
	}

	indegree := make(map[uint]int, len(conceptIDs))
	dependents := make(map[uint][]uint)
	seen := make(map[[2]uint]bool)
	for _, e := range edges {
		if e.ConceptID == e.PrerequisiteID {
			continue
		}
		if !inGraph[e.ConceptID] || !inGraph[e.PrerequisiteID] {
			continue
		}
		pair := [2]uint{e.ConceptID, e.PrerequisiteID}
		if seen[pair] {
			continue
		}
		seen[pair] = true
		indegree[e.ConceptID]++
		dependents[e.PrerequisiteID] = append(dependents[e.PrerequisiteID], e.ConceptID)
	}
	for _, deps := range dependents {
		sort.Slice(deps, func(i, j int) bool { return deps[i] < deps[j] })
	}

	queue := make([]uint, 0, len(conceptIDs))
	for _, id := range conceptIDs {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i] < queue[j] })

	out := make([]uint, 0, len(conceptIDs))
	placed := make(map[uint]bool, len(conceptIDs))
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		placed[cur] = true
		for _, dep := range dependents[cur] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(out) < len(conceptIDs) {
		remaining := make([]uint, 0, len(conceptIDs)-len(out))
		for _, id := range conceptIDs {
			if !placed[id] {
				remaining = append(remaining, id)
			}
		}
		sort.Slice(remaining, func(i, j int) bool { return remaining[i] < remaining[j] })
		out = append(out, remaining...)
	}
	return out
}

func (s *roadmapService) BuildRoadmap(ctx context.Context, documentID uint) ([]*types.RoadmapStep, error) {
	doc, err := s.documentRepo.GetByID(ctx, nil, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apierr.NotFound("document %d not found", documentID)
	}
	if doc.CurrentVersion == 0 {
		return nil, apierr.Validation("document %d has not finished processing", documentID)
	}

	var steps []*types.RoadmapStep
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var buildErr error
		steps, buildErr = s.BuildForVersion(ctx, tx, documentID, doc.CurrentVersion)
		return buildErr
	})
	if err != nil {
		return nil, err
	}
	return steps, nil
}

func (s *roadmapService) BuildForVersion(ctx context.Context, tx *gorm.DB, documentID uint, version int) ([]*types.RoadmapStep, error) {
	concepts, err := s.conceptRepo.ListByDocumentVersion(ctx, tx, documentID, version)
	if err != nil {
		return nil, err
	}
	conceptIDs := make([]uint, 0, len(concepts))
	for _, c := range concepts {
		conceptIDs = append(conceptIDs, c.ID)
	}
	edges, err := s.edgeRepo.ListByConceptIDs(ctx, tx, conceptIDs)
	if err != nil {
		return nil, err
	}

	order := TopoOrder(conceptIDs, edges)
	steps := make([]*types.RoadmapStep, 0, len(order))
	for i, conceptID := range order {
		step, err := s.stepRepo.UpsertForConcept(ctx, tx, documentID, conceptID, i+1, version)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}

	s.log.Info("Built roadmap",
		"document_id", documentID,
		"version", version,
		"steps", len(steps),
		"edges", len(edges))
	return steps, nil
}

func (s *roadmapService) ListForUser(ctx context.Context, userID, documentID uint) ([]*StepView, error) {
	doc, err := s.documentRepo.GetByID(ctx, nil, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apierr.NotFound("document %d not found", documentID)
	}
	if doc.CurrentVersion == 0 {
		return []*StepView{}, nil
	}

	steps, err := s.stepRepo.ListByDocumentVersion(ctx, nil, documentID, doc.CurrentVersion)
	if err != nil {
		return nil, err
	}
	concepts, err := s.conceptRepo.ListByDocumentVersion(ctx, nil, documentID, doc.CurrentVersion)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*types.Concept, len(concepts))
	for _, c := range concepts {
		byID[c.ID] = c
	}

	statuses, err := s.progress.StatusesForSteps(ctx, nil, userID, steps)
	if err != nil {
		return nil, err
	}

	views := make([]*StepView, 0, len(steps))
	for _, st := range steps {
		status := statuses[st.ID]
		views = append(views, &StepView{
			Step:    st,
			Concept: byID[st.ConceptID],
			Status:  status.Status,
			Mastery: status.Mastery,
		})
	}
	return views, nil
}
