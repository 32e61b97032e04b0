package app

import (
	"gorm.io/gorm"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/repos"
)

type Repos struct {
	Document    repos.DocumentRepo
	Chunk       repos.ChunkRepo
	Concept     repos.ConceptRepo
	PrereqEdge  repos.PrereqEdgeRepo
	RoadmapStep repos.RoadmapStepRepo
	QuestionSet repos.QuestionSetRepo
	Attempt     repos.AttemptRepo
	Progress    repos.StepProgressRepo
	Hint        repos.HintRepo
	Note        repos.NoteRepo
	Flashcard   repos.FlashcardRepo
	PipelineRun repos.PipelineRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Document:    repos.NewDocumentRepo(db, log),
		Chunk:       repos.NewChunkRepo(db, log),
		Concept:     repos.NewConceptRepo(db, log),
		PrereqEdge:  repos.NewPrereqEdgeRepo(db, log),
		RoadmapStep: repos.NewRoadmapStepRepo(db, log),
		QuestionSet: repos.NewQuestionSetRepo(db, log),
		Attempt:     repos.NewAttemptRepo(db, log),
		Progress:    repos.NewStepProgressRepo(db, log),
		Hint:        repos.NewHintRepo(db, log),
		Note:        repos.NewNoteRepo(db, log),
		Flashcard:   repos.NewFlashcardRepo(db, log),
		PipelineRun: repos.NewPipelineRunRepo(db, log),
	}
}
