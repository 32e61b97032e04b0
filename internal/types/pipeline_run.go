package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

const JobTypeDocumentIngest = "document_ingest"

// PipelineRun doubles as the job row the worker claims and the versioned
// record of one ingestion pass. Version is the supersession marker: rows a
// run writes carry its version, and the document's CurrentVersion flips to it
// only when the run succeeds.
type PipelineRun struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ExternalID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"external_id"`
	DocumentID  uint           `gorm:"not null;index" json:"document_id"`
	JobType     string         `gorm:"size:50;not null;index" json:"job_type"`
	Version     int            `gorm:"not null" json:"version"`
	Status      string         `gorm:"size:50;not null;default:queued;index" json:"status"`
	Stage       string         `gorm:"size:50" json:"stage"`
	Error       string         `gorm:"type:text" json:"error,omitempty"`
	Attempts    int            `gorm:"not null;default:0" json:"attempts"`
	Payload     datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	HeartbeatAt *time.Time     `gorm:"column:heartbeat_at" json:"heartbeat_at,omitempty"`
	StartedAt   *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt  *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (PipelineRun) TableName() string { return "pipeline_runs" }
