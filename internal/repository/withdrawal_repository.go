package repository

import (
	"context"

	"gorm.io/gorm"

	"go-hedgevault/internal/models"
)

// WithdrawalRepository defines the interface for WithdrawalRecord data access
type WithdrawalRepository interface {
	Create(ctx context.Context, withdrawal *models.WithdrawalRecord) error
	GetByID(ctx context.Context, id string) (*models.WithdrawalRecord, error)
	GetByWithdrawalID(ctx context.Context, withdrawalID string) (*models.WithdrawalRecord, error)
	FindByOwner(ctx context.Context, owner string) ([]*models.WithdrawalRecord, error)
	FindByStatus(ctx context.Context, status models.WithdrawalStatus) ([]*models.WithdrawalRecord, error)
	UpdateStatus(ctx context.Context, id string, status models.WithdrawalStatus) error
}

type withdrawalRepository struct {
	db *gorm.DB
}

// NewWithdrawalRepository creates a new WithdrawalRepository instance
func NewWithdrawalRepository(db *gorm.DB) WithdrawalRepository {
	return &withdrawalRepository{db: db}
}

func (r *withdrawalRepository) Create(ctx context.Context, withdrawal *models.WithdrawalRecord) error {
	return r.db.WithContext(ctx).Create(withdrawal).Error
}

func (r *withdrawalRepository) GetByID(ctx context.Context, id string) (*models.WithdrawalRecord, error) {
	var withdrawal models.WithdrawalRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&withdrawal).Error
	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

func (r *withdrawalRepository) GetByWithdrawalID(ctx context.Context, withdrawalID string) (*models.WithdrawalRecord, error) {
	var withdrawal models.WithdrawalRecord
	err := r.db.WithContext(ctx).Where("withdrawal_id = ?", withdrawalID).First(&withdrawal).Error
	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

func (r *withdrawalRepository) FindByOwner(ctx context.Context, owner string) ([]*models.WithdrawalRecord, error) {
	var withdrawals []*models.WithdrawalRecord
	err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at DESC").
		Find(&withdrawals).Error
	return withdrawals, err
}

func (r *withdrawalRepository) FindByStatus(ctx context.Context, status models.WithdrawalStatus) ([]*models.WithdrawalRecord, error) {
	var withdrawals []*models.WithdrawalRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("unlock_time ASC").
		Find(&withdrawals).Error
	return withdrawals, err
}

func (r *withdrawalRepository) UpdateStatus(ctx context.Context, id string, status models.WithdrawalStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.WithdrawalRecord{}).
		Where("id = ?", id).
		Update("status", status).Error
}
