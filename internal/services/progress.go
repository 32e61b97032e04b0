package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/types"
)

// StepStatus is a step's status as seen by one user, whether stored or
// computed on the fly.
type StepStatus struct {
	Status  string
	Mastery float64
}

// ProgressService is the per-user gating state machine. Status moves
// locked -> unlocked -> cleared and never backward; rows are created lazily
// on the first event that concerns a step, not eagerly for every step.
type ProgressService interface {
	// ApplyGrade records the outcome of one graded attempt: cleared on a
	// pass, unlocked on a fail, mastery merged as a running maximum. A pass
	// also unlocks every step whose prerequisites are now fully cleared.
	ApplyGrade(ctx context.Context, tx *gorm.DB, userID uint, step *types.RoadmapStep, score float64, passed bool) (*types.StepProgress, error)
	// EffectiveStatus resolves the status of a single step for a user. With
	// no stored row the step is unlocked when every prerequisite concept is
	// cleared (vacuously true without prerequisites), locked otherwise.
	EffectiveStatus(ctx context.Context, tx *gorm.DB, userID uint, step *types.RoadmapStep) (StepStatus, error)
	// StatusesForSteps is the bulk form of EffectiveStatus for one document
	// version's steps.
	StatusesForSteps(ctx context.Context, tx *gorm.DB, userID uint, steps []*types.RoadmapStep) (map[uint]StepStatus, error)
	// UnlockEligible promotes to unlocked every step whose prerequisites are
	// all cleared, skipping steps already cleared.
	UnlockEligible(ctx context.Context, tx *gorm.DB, userID, documentID uint, version int) error
}

type progressService struct {
	db           *gorm.DB
	log          *logger.Logger
	progressRepo repos.StepProgressRepo
	stepRepo     repos.RoadmapStepRepo
	edgeRepo     repos.PrereqEdgeRepo
}

func NewProgressService(
	db *gorm.DB,
	baseLog *logger.Logger,
	progressRepo repos.StepProgressRepo,
	stepRepo repos.RoadmapStepRepo,
	edgeRepo repos.PrereqEdgeRepo,
) ProgressService {
	return &progressService{
		db:           db,
		log:          baseLog.With("service", "ProgressService"),
		progressRepo: progressRepo,
		stepRepo:     stepRepo,
		edgeRepo:     edgeRepo,
	}
}

func (s *progressService) ApplyGrade(ctx context.Context, tx *gorm.DB, userID uint, step *types.RoadmapStep, score float64, passed bool) (*types.StepProgress, error) {
	existing, err := s.progressRepo.GetByUserStep(ctx, tx, userID, step.ID)
	if err != nil {
		return nil, err
	}

	status := types.ProgressUnlocked
	if passed {
		status = types.ProgressCleared
	}
	mastery := score
	if existing != nil {
		if existing.MasteryScore > mastery {
			mastery = existing.MasteryScore
		}
		if types.StatusRank(existing.Status) > types.StatusRank(status) {
			status = existing.Status
		}
	}

	row := &types.StepProgress{
		UserID:        userID,
		RoadmapStepID: step.ID,
		ConceptID:     step.ConceptID,
		Status:        status,
		MasteryScore:  mastery,
	}
	if err := s.progressRepo.Upsert(ctx, tx, row); err != nil {
		return nil, err
	}

	s.log.Info("Applied grade to progress",
		"user_id", userID,
		"roadmap_step_id", step.ID,
		"status", status,
		"mastery", mastery)

	if status == types.ProgressCleared {
		if err := s.UnlockEligible(ctx, tx, userID, step.DocumentID, step.Version); err != nil {
			return nil, err
		}
	}
	return row, nil
}

func (s *progressService) EffectiveStatus(ctx context.Context, tx *gorm.DB, userID uint, step *types.RoadmapStep) (StepStatus, error) {
	statuses, err := s.StatusesForSteps(ctx, tx, userID, []*types.RoadmapStep{step})
	if err != nil {
		return StepStatus{}, err
	}
	return statuses[step.ID], nil
}

func (s *progressService) StatusesForSteps(ctx context.Context, tx *gorm.DB, userID uint, steps []*types.RoadmapStep) (map[uint]StepStatus, error) {
	out := make(map[uint]StepStatus, len(steps))
	if len(steps) == 0 {
		return out, nil
	}

	stepIDs := make([]uint, 0, len(steps))
	conceptIDs := make([]uint, 0, len(steps))
	for _, st := range steps {
		stepIDs = append(stepIDs, st.ID)
		conceptIDs = append(conceptIDs, st.ConceptID)
	}

	stored, err := s.progressRepo.ListByUserSteps(ctx, tx, userID, stepIDs)
	if err != nil {
		return nil, err
	}
	byStep := make(map[uint]*types.StepProgress, len(stored))
	for _, row := range stored {
		byStep[row.RoadmapStepID] = row
	}

	cleared, prereqs, err := s.clearedAndPrereqs(ctx, tx, userID, conceptIDs)
	if err != nil {
		return nil, err
	}

	for _, st := range steps {
		if row, ok := byStep[st.ID]; ok {
			out[st.ID] = StepStatus{Status: row.Status, Mastery: row.MasteryScore}
			continue
		}
		status := types.ProgressLocked
		if allCleared(prereqs[st.ConceptID], cleared) {
			status = types.ProgressUnlocked
		}
		out[st.ID] = StepStatus{Status: status}
	}
	return out, nil
}

func (s *progressService) UnlockEligible(ctx context.Context, tx *gorm.DB, userID, documentID uint, version int) error {
	steps, err := s.stepRepo.ListByDocumentVersion(ctx, tx, documentID, version)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return nil
	}
	conceptIDs := make([]uint, 0, len(steps))
	for _, st := range steps {
		conceptIDs = append(conceptIDs, st.ConceptID)
	}

	cleared, prereqs, err := s.clearedAndPrereqs(ctx, tx, userID, conceptIDs)
	if err != nil {
		return err
	}
	stored, err := s.progressRepo.ListByUserConcepts(ctx, tx, userID, conceptIDs)
	if err != nil {
		return err
	}
	byConcept := make(map[uint]*types.StepProgress, len(stored))
	for _, row := range stored {
		byConcept[row.ConceptID] = row
	}

	for _, st := range steps {
		required := prereqs[st.ConceptID]
		// Steps without prerequisites are eligible by definition; their
		// computed status already says unlocked, so no row is written.
		if len(required) == 0 || !allCleared(required, cleared) {
			continue
		}
		if row, ok := byConcept[st.ConceptID]; ok && types.StatusRank(row.Status) >= types.StatusRank(types.ProgressUnlocked) {
			continue
		}
		update := &types.StepProgress{
			UserID:        userID,
			RoadmapStepID: st.ID,
			ConceptID:     st.ConceptID,
			Status:        types.ProgressUnlocked,
		}
		if row, ok := byConcept[st.ConceptID]; ok {
			update.MasteryScore = row.MasteryScore
		}
		if err := s.progressRepo.Upsert(ctx, tx, update); err != nil {
			return err
		}
		s.log.Info("Unlocked step",
			"user_id", userID,
			"roadmap_step_id", st.ID,
			"concept_id", st.ConceptID)
	}
	return nil
}

// clearedAndPrereqs loads, for a set of concepts, which of them the user has
// cleared and the prerequisite lists keyed by concept.
func (s *progressService) clearedAndPrereqs(ctx context.Context, tx *gorm.DB, userID uint, conceptIDs []uint) (map[uint]bool, map[uint][]uint, error) {
	edges, err := s.edgeRepo.ListByConceptIDs(ctx, tx, conceptIDs)
	if err != nil {
		return nil, nil, err
	}
	prereqs := make(map[uint][]uint)
	for _, e := range edges {
		prereqs[e.ConceptID] = append(prereqs[e.ConceptID], e.PrerequisiteID)
	}

	rows, err := s.progressRepo.ListByUserConcepts(ctx, tx, userID, conceptIDs)
	if err != nil {
		return nil, nil, err
	}
	cleared := make(map[uint]bool)
	for _, row := range rows {
		if row.Status == types.ProgressCleared {
			cleared[row.ConceptID] = true
		}
	}
	return cleared, prereqs, nil
}

func allCleared(required []uint, cleared map[uint]bool) bool {
	for _, id := range required {
		if !cleared[id] {
			return false
		}
	}
	return true
}
