package types

import "time"

// Note holds the full remediation explanation for a step, unlocked when the
// learner scores below threshold or exhausts the hint budget.
type Note struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RoadmapStepID uint      `gorm:"not null;index" json:"roadmap_step_id"`
	Summary       string    `gorm:"type:text" json:"summary"`
	Explanation   string    `gorm:"type:text;not null" json:"explanation"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (Note) TableName() string { return "notes" }
