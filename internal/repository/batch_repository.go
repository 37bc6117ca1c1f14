package repository

import (
	"context"

	"gorm.io/gorm"

	"go-hedgevault/internal/models"
)

// BatchRepository defines the interface for BatchRecord data access
type BatchRepository interface {
	Create(ctx context.Context, batch *models.BatchRecord) error
	GetByID(ctx context.Context, id string) (*models.BatchRecord, error)
	GetByBatchNumber(ctx context.Context, batchNumber uint64) (*models.BatchRecord, error)
	MarkAggregated(ctx context.Context, id string) error
	List(ctx context.Context, page, pageSize int) ([]*models.BatchRecord, int64, error)
}

type batchRepository struct {
	db *gorm.DB
}

// NewBatchRepository creates a new BatchRepository instance
func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) Create(ctx context.Context, batch *models.BatchRecord) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *batchRepository) GetByID(ctx context.Context, id string) (*models.BatchRecord, error) {
	var batch models.BatchRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *batchRepository) GetByBatchNumber(ctx context.Context, batchNumber uint64) (*models.BatchRecord, error) {
	var batch models.BatchRecord
	err := r.db.WithContext(ctx).Where("batch_number = ?", batchNumber).First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *batchRepository) MarkAggregated(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&models.BatchRecord{}).
		Where("id = ?", id).
		Update("aggregated", true).Error
}

func (r *batchRepository) List(ctx context.Context, page, pageSize int) ([]*models.BatchRecord, int64, error) {
	var batches []*models.BatchRecord
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.BatchRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Offset(offset).
		Limit(pageSize).
		Order("batch_number DESC").
		Find(&batches).Error

	return batches, total, err
}
