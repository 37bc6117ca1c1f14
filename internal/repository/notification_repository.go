package repository

import (
	"context"

	"gorm.io/gorm"

	"go-hedgevault/internal/models"
)

// NotificationRepository defines the interface for the notification log
type NotificationRepository interface {
	Append(ctx context.Context, record *models.NotificationRecord) error
	FindByKind(ctx context.Context, kind string, limit int) ([]*models.NotificationRecord, error)
	List(ctx context.Context, page, pageSize int) ([]*models.NotificationRecord, int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository instance
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Append(ctx context.Context, record *models.NotificationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *notificationRepository) FindByKind(ctx context.Context, kind string, limit int) ([]*models.NotificationRecord, error) {
	var records []*models.NotificationRecord
	err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("emitted_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *notificationRepository) List(ctx context.Context, page, pageSize int) ([]*models.NotificationRecord, int64, error) {
	var records []*models.NotificationRecord
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.NotificationRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Offset(offset).
		Limit(pageSize).
		Order("emitted_at DESC").
		Find(&records).Error

	return records, total, err
}
