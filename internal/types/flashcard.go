package types

import "time"

type Flashcard struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RoadmapStepID uint      `gorm:"not null;index" json:"roadmap_step_id"`
	Front         string    `gorm:"type:text;not null" json:"front"`
	Back          string    `gorm:"type:text;not null" json:"back"`
	CardOrder     int       `gorm:"not null;default:0" json:"card_order"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (Flashcard) TableName() string { return "flashcards" }
