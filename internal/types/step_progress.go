package types

import "time"

const (
	ProgressLocked   = "locked"
	ProgressUnlocked = "unlocked"
	ProgressCleared  = "cleared"
)

// StepProgress is created lazily on the first relevant event for a
// (user, step) pair. Status only ever moves forward; cleared is terminal.
type StepProgress struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index:idx_user_step,unique,priority:1;index:idx_user_concept" json:"user_id"`
	RoadmapStepID uint      `gorm:"not null;index:idx_user_step,unique,priority:2" json:"roadmap_step_id"`
	ConceptID     uint      `gorm:"index:idx_user_concept" json:"concept_id"`
	Status        string    `gorm:"size:50;not null;default:locked" json:"status"`
	MasteryScore  float64   `gorm:"not null;default:0" json:"mastery_score"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (StepProgress) TableName() string { return "step_progress" }

// StatusRank orders progress states so transitions can be checked as
// monotonic. Unknown states rank below locked.
func StatusRank(status string) int {
	switch status {
	case ProgressLocked:
		return 1
	case ProgressUnlocked:
		return 2
	case ProgressCleared:
		return 3
	default:
		return 0
	}
}
