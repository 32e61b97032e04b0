package types

import (
	"time"

	"gorm.io/datatypes"
)

const (
	DocumentStatusProcessing = "processing"
	DocumentStatusReady      = "ready"
	DocumentStatusError      = "error"
)

// Document is the root entity. Text extraction happens upstream; by the time
// the engine sees a document, ExtractedText (and optionally Pages) is already
// populated. Related rows are resolved through id lookups, never through
// embedded back-references.
type Document struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UserID         uint           `gorm:"not null;index" json:"user_id"`
	Filename       string         `gorm:"size:255;not null" json:"filename"`
	FileType       string         `gorm:"size:50" json:"file_type"`
	Status         string         `gorm:"size:50;not null;default:processing" json:"status"`
	ErrorMessage   string         `gorm:"type:text" json:"error_message,omitempty"`
	ExtractedText  string         `gorm:"type:text" json:"-"`
	Pages          datatypes.JSON `gorm:"column:pages" json:"-"`
	CurrentVersion int            `gorm:"not null;default:0" json:"current_version"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

func (Document) TableName() string { return "documents" }

// Page mirrors the upstream extractor's page payload stored in Document.Pages.
type Page struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}
