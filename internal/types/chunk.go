package types

import (
	"time"

	"gorm.io/datatypes"
)

// Chunk is one passage of a document plus its embedding. EmbeddingDegraded is
// set when the embedding capability was unreachable and a non-semantic
// fallback vector was stored instead; retrieval ranks those last.
type Chunk struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	DocumentID        uint           `gorm:"not null;index:idx_chunk_doc_version" json:"document_id"`
	Version           int            `gorm:"not null;default:1;index:idx_chunk_doc_version" json:"version"`
	ChunkText         string         `gorm:"type:text;not null" json:"chunk_text"`
	PageNumber        *int           `gorm:"column:page_number" json:"page_number,omitempty"`
	SlideNumber       *int           `gorm:"column:slide_number" json:"slide_number,omitempty"`
	ChunkIndex        int            `gorm:"not null" json:"chunk_index"`
	Embedding         datatypes.JSON `gorm:"column:embedding" json:"-"`
	EmbeddingDegraded bool           `gorm:"not null;default:false" json:"embedding_degraded"`
	CreatedAt         time.Time      `gorm:"not null" json:"created_at"`
}

func (Chunk) TableName() string { return "chunks" }
