package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/types"
)

type ChunkRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, chunks []*types.Chunk) ([]*types.Chunk, error)
	ListByDocumentVersion(ctx context.Context, tx *gorm.DB, documentID uint, version int) ([]*types.Chunk, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*types.Chunk, error)
	UpdateEmbedding(ctx context.Context, tx *gorm.DB, id uint, embedding []byte, degraded bool) error
}

type chunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChunkRepo(db *gorm.DB, baseLog *logger.Logger) ChunkRepo {
	return &chunkRepo{
		db:  db,
		log: baseLog.With("repo", "ChunkRepo"),
	}
}

func (r *chunkRepo) CreateBatch(ctx context.Context, tx *gorm.DB, chunks []*types.Chunk) ([]*types.Chunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(chunks) == 0 {
		return []*types.Chunk{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&chunks).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

func (r *chunkRepo) ListByDocumentVersion(ctx context.Context, tx *gorm.DB, documentID uint, version int) ([]*types.Chunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Chunk
	if documentID == 0 {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Where("document_id = ? AND version = ?", documentID, version).
		Order("chunk_index ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chunkRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*types.Chunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Chunk
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chunkRepo) UpdateEmbedding(ctx context.Context, tx *gorm.DB, id uint, embedding []byte, degraded bool) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Chunk{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"embedding":          embedding,
			"embedding_degraded": degraded,
		}).Error
}
