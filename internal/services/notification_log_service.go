package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go-hedgevault/internal/models"
	"go-hedgevault/internal/notify"
	"go-hedgevault/internal/repository"
)

// NotificationLogService persists every emitted notification into the
// append-only log table. It implements notify.Publisher.
type NotificationLogService struct {
	repo repository.NotificationRepository
}

// NewNotificationLogService creates a new NotificationLogService instance.
func NewNotificationLogService(repo repository.NotificationRepository) *NotificationLogService {
	return &NotificationLogService{repo: repo}
}

// Publish appends the notification to the log table.
func (s *NotificationLogService) Publish(n notify.Notification) error {
	payload, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("failed to serialize %s payload: %w", n.Kind, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), indexWriteTimeout)
	defer cancel()

	record := &models.NotificationRecord{
		Kind:      string(n.Kind),
		EmittedAt: n.EmittedAt,
		Payload:   string(payload),
	}
	return s.repo.Append(ctx, record)
}
