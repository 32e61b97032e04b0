package types

import "time"

// Concept is an atomic learning unit extracted from a document. Immutable
// after extraction except for the canonicalization merge that happens before
// rows are written.
type Concept struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	DocumentID    uint      `gorm:"not null;index:idx_concept_doc_version" json:"document_id"`
	Version       int       `gorm:"not null;default:1;index:idx_concept_doc_version" json:"version"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	CanonicalName string    `gorm:"size:255" json:"canonical_name"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (Concept) TableName() string { return "concepts" }
