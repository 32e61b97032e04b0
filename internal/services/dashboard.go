package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/apierr"
	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
	"github.com/revisify/backend/internal/types"
)

// DashboardOverview summarizes one user's standing on one document.
type DashboardOverview struct {
	DocumentID     uint           `json:"document_id"`
	Status         string         `json:"status"`
	ConceptCount   int            `json:"concept_count"`
	StepCount      int            `json:"step_count"`
	StatusCounts   map[string]int `json:"status_counts"`
	PercentCleared float64        `json:"percent_cleared"`
	OverallMastery float64        `json:"overall_mastery"`
}

type DashboardService interface {
	Overview(ctx context.Context, userID, documentID uint) (*DashboardOverview, error)
}

type dashboardService struct {
	db       *gorm.DB
	log      *logger.Logger
	docRepo  repos.DocumentRepo
	stepRepo repos.RoadmapStepRepo
	progress ProgressService
	mastery  MasteryService
}

func NewDashboardService(
	db *gorm.DB,
	baseLog *logger.Logger,
	docRepo repos.DocumentRepo,
	stepRepo repos.RoadmapStepRepo,
	progress ProgressService,
	mastery MasteryService,
) DashboardService {
	return &dashboardService{
		db:       db,
		log:      baseLog.With("service", "DashboardService"),
		docRepo:  docRepo,
		stepRepo: stepRepo,
		progress: progress,
		mastery:  mastery,
	}
}

func (s *dashboardService) Overview(ctx context.Context, userID, documentID uint) (*DashboardOverview, error) {
	doc, err := s.docRepo.GetByID(ctx, nil, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.UserID != userID {
		return nil, apierr.NotFound("document %d not found", documentID)
	}

	overview := &DashboardOverview{
		DocumentID: documentID,
		Status:     doc.Status,
		StatusCounts: map[string]int{
			types.ProgressLocked:   0,
			types.ProgressUnlocked: 0,
			types.ProgressCleared:  0,
		},
	}
	if doc.CurrentVersion == 0 {
		return overview, nil
	}

	steps, err := s.stepRepo.ListByDocumentVersion(ctx, nil, documentID, doc.CurrentVersion)
	if err != nil {
		return nil, err
	}
	statuses, err := s.progress.StatusesForSteps(ctx, nil, userID, steps)
	if err != nil {
		return nil, err
	}
	for _, step := range steps {
		status := types.ProgressLocked
		if st, ok := statuses[step.ID]; ok {
			status = st.Status
		}
		overview.StatusCounts[status]++
	}

	overview.ConceptCount = len(steps)
	overview.StepCount = len(steps)
	if len(steps) > 0 {
		overview.PercentCleared = float64(overview.StatusCounts[types.ProgressCleared]) / float64(len(steps)) * 100
	}
	overview.OverallMastery, err = s.mastery.Aggregate(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	return overview, nil
}
