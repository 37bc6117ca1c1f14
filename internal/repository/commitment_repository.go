package repository

import (
	"context"

	"gorm.io/gorm"

	"go-hedgevault/internal/models"
)

// CommitmentRepository defines the interface for CommitmentRecord data access
type CommitmentRepository interface {
	Create(ctx context.Context, commitment *models.CommitmentRecord) error
	GetByID(ctx context.Context, id string) (*models.CommitmentRecord, error)
	GetByCommitmentHash(ctx context.Context, commitmentHash string) (*models.CommitmentRecord, error)
	FindByStealthAddress(ctx context.Context, stealthAddress string) ([]*models.CommitmentRecord, error)
	FindUnbatched(ctx context.Context) ([]*models.CommitmentRecord, error)
	MarkSettled(ctx context.Context, id string) error
	AssignBatch(ctx context.Context, ids []string, batchNumber uint64) error
	List(ctx context.Context, page, pageSize int) ([]*models.CommitmentRecord, int64, error)
}

type commitmentRepository struct {
	db *gorm.DB
}

// NewCommitmentRepository creates a new CommitmentRepository instance
func NewCommitmentRepository(db *gorm.DB) CommitmentRepository {
	return &commitmentRepository{db: db}
}

func (r *commitmentRepository) Create(ctx context.Context, commitment *models.CommitmentRecord) error {
	return r.db.WithContext(ctx).Create(commitment).Error
}

func (r *commitmentRepository) GetByID(ctx context.Context, id string) (*models.CommitmentRecord, error) {
	var commitment models.CommitmentRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&commitment).Error
	if err != nil {
		return nil, err
	}
	return &commitment, nil
}

func (r *commitmentRepository) GetByCommitmentHash(ctx context.Context, commitmentHash string) (*models.CommitmentRecord, error) {
	var commitment models.CommitmentRecord
	err := r.db.WithContext(ctx).Where("commitment_hash = ?", commitmentHash).First(&commitment).Error
	if err != nil {
		return nil, err
	}
	return &commitment, nil
}

func (r *commitmentRepository) FindByStealthAddress(ctx context.Context, stealthAddress string) ([]*models.CommitmentRecord, error) {
	var commitments []*models.CommitmentRecord
	err := r.db.WithContext(ctx).
		Where("stealth_address = ?", stealthAddress).
		Order("timestamp_ms ASC").
		Find(&commitments).Error
	return commitments, err
}

func (r *commitmentRepository) FindUnbatched(ctx context.Context) ([]*models.CommitmentRecord, error) {
	var commitments []*models.CommitmentRecord
	err := r.db.WithContext(ctx).
		Where("batch_id IS NULL").
		Order("timestamp_ms ASC").
		Find(&commitments).Error
	return commitments, err
}

func (r *commitmentRepository) MarkSettled(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&models.CommitmentRecord{}).
		Where("id = ?", id).
		Update("settled", true).Error
}

// AssignBatch stamps the batch number onto every member in one statement.
func (r *commitmentRepository) AssignBatch(ctx context.Context, ids []string, batchNumber uint64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.CommitmentRecord{}).
		Where("id IN ?", ids).
		Update("batch_id", batchNumber).Error
}

func (r *commitmentRepository) List(ctx context.Context, page, pageSize int) ([]*models.CommitmentRecord, int64, error) {
	var commitments []*models.CommitmentRecord
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.CommitmentRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&commitments).Error

	return commitments, total, err
}
