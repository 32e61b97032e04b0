package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Attempt is append-only: every submission creates a new row, repeats
// included. Rows are never mutated or deleted.
type Attempt struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ExternalID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"external_id"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	QuestionSetID uint           `gorm:"not null;index" json:"question_set_id"`
	Score         float64        `gorm:"not null" json:"score"`
	CorrectCount  int            `gorm:"not null" json:"correct_count"`
	TotalCount    int            `gorm:"not null" json:"total_count"`
	Answers       datatypes.JSON `gorm:"column:answers" json:"answers"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
}

func (Attempt) TableName() string { return "attempts" }
