package repository

import (
	"context"

	"gorm.io/gorm"

	"go-hedgevault/internal/models"
)

// ProxyRepository defines the interface for ProxyRecord data access
type ProxyRepository interface {
	Create(ctx context.Context, proxy *models.ProxyRecord) error
	GetByID(ctx context.Context, id string) (*models.ProxyRecord, error)
	GetByAddress(ctx context.Context, proxyAddress string) (*models.ProxyRecord, error)
	FindByOwner(ctx context.Context, owner string) ([]*models.ProxyRecord, error)
	Update(ctx context.Context, proxy *models.ProxyRecord) error
	UpdateBalances(ctx context.Context, id string, depositedAmount, balance uint64) error
	List(ctx context.Context, page, pageSize int) ([]*models.ProxyRecord, int64, error)
}

type proxyRepository struct {
	db *gorm.DB
}

// NewProxyRepository creates a new ProxyRepository instance
func NewProxyRepository(db *gorm.DB) ProxyRepository {
	return &proxyRepository{db: db}
}

func (r *proxyRepository) Create(ctx context.Context, proxy *models.ProxyRecord) error {
	return r.db.WithContext(ctx).Create(proxy).Error
}

func (r *proxyRepository) GetByID(ctx context.Context, id string) (*models.ProxyRecord, error) {
	var proxy models.ProxyRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&proxy).Error
	if err != nil {
		return nil, err
	}
	return &proxy, nil
}

func (r *proxyRepository) GetByAddress(ctx context.Context, proxyAddress string) (*models.ProxyRecord, error) {
	var proxy models.ProxyRecord
	err := r.db.WithContext(ctx).Where("proxy_address = ?", proxyAddress).First(&proxy).Error
	if err != nil {
		return nil, err
	}
	return &proxy, nil
}

func (r *proxyRepository) FindByOwner(ctx context.Context, owner string) ([]*models.ProxyRecord, error) {
	var proxies []*models.ProxyRecord
	err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("nonce ASC").
		Find(&proxies).Error
	return proxies, err
}

func (r *proxyRepository) Update(ctx context.Context, proxy *models.ProxyRecord) error {
	return r.db.WithContext(ctx).Save(proxy).Error
}

// UpdateBalances updates only the two balance columns after an accounting
// transition.
func (r *proxyRepository) UpdateBalances(ctx context.Context, id string, depositedAmount, balance uint64) error {
	return r.db.WithContext(ctx).
		Model(&models.ProxyRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"deposited_amount": depositedAmount,
			"balance":          balance,
		}).Error
}

func (r *proxyRepository) List(ctx context.Context, page, pageSize int) ([]*models.ProxyRecord, int64, error) {
	var proxies []*models.ProxyRecord
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.ProxyRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&proxies).Error

	return proxies, total, err
}
