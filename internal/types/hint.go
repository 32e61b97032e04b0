package types

import "time"

// Hint records one issued hint. HintNumber starts at 1 and strictly increases
// per (user, step); the unique index is what serializes concurrent issuance.
type Hint struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index:idx_user_step_hint,unique,priority:1" json:"user_id"`
	RoadmapStepID uint      `gorm:"not null;index:idx_user_step_hint,unique,priority:2" json:"roadmap_step_id"`
	HintNumber    int       `gorm:"not null;index:idx_user_step_hint,unique,priority:3" json:"hint_number"`
	HintText      string    `gorm:"type:text;not null" json:"hint_text"`
	MicroQuestion string    `gorm:"type:text" json:"micro_question"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (Hint) TableName() string { return "hints" }
