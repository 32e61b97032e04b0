package types

import "time"

// QuestionSet is the assessment attached to a roadmap step.
type QuestionSet struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RoadmapStepID uint      `gorm:"not null;index" json:"roadmap_step_id"`
	QuestionCount int       `gorm:"not null" json:"question_count"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (QuestionSet) TableName() string { return "question_sets" }

// Question is a single multiple-choice question. CorrectAnswer is one of
// A, B, C or D and never leaves the grading path.
type Question struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	QuestionSetID  uint      `gorm:"not null;index:idx_question_set_number,unique,priority:1" json:"question_set_id"`
	QuestionNumber int       `gorm:"not null;index:idx_question_set_number,unique,priority:2" json:"question_number"`
	QuestionText   string    `gorm:"type:text;not null" json:"question_text"`
	OptionA        string    `gorm:"type:text;not null" json:"option_a"`
	OptionB        string    `gorm:"type:text;not null" json:"option_b"`
	OptionC        string    `gorm:"type:text;not null" json:"option_c"`
	OptionD        string    `gorm:"type:text" json:"option_d"`
	CorrectAnswer  string    `gorm:"size:1;not null" json:"-"`
	Explanation    string    `gorm:"type:text" json:"-"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

func (Question) TableName() string { return "questions" }
