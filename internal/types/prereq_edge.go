package types

import "time"

// PrereqEdge says PrerequisiteID must be cleared before ConceptID becomes
// eligible. No self-loops; one row per (concept, prerequisite). Cycles are
// tolerated here and degraded gracefully at roadmap build time.
type PrereqEdge struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	DocumentID     uint      `gorm:"not null;index" json:"document_id"`
	ConceptID      uint      `gorm:"not null;index:idx_prereq_edge,unique,priority:1" json:"concept_id"`
	PrerequisiteID uint      `gorm:"not null;index:idx_prereq_edge,unique,priority:2" json:"prerequisite_id"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

func (PrereqEdge) TableName() string { return "prereq_edges" }
