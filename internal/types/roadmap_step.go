package types

import "time"

const StepTypeConcept = "concept"

// RoadmapStep places a concept at a position in the document's ordered path.
// StepOrder is a total order consistent with every non-cyclic prerequisite
// edge.
type RoadmapStep struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;index:idx_step_doc_concept,unique,priority:1" json:"document_id"`
	ConceptID  uint      `gorm:"not null;index:idx_step_doc_concept,unique,priority:2" json:"concept_id"`
	Version    int       `gorm:"not null;default:1;index" json:"version"`
	StepOrder  int       `gorm:"column:step_order;not null" json:"step_order"`
	StepType   string    `gorm:"size:50;not null;default:concept" json:"step_type"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (RoadmapStep) TableName() string { return "roadmap_steps" }
