package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/dropout-watch-api/internal/models"
)

// NotificationRepository stores the delivery log of derived alerts.
type NotificationRepository interface {
	Record(ctx context.Context, delivery *models.NotificationDelivery) error
	LatestStatuses(ctx context.Context) (map[string]string, error)
	ListByStudent(ctx context.Context, studentID string, limit int) ([]models.NotificationDelivery, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository constructs a repository backed by GORM.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Record(ctx context.Context, delivery *models.NotificationDelivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

// LatestStatuses maps each alert id to the status of its most recent delivery row.
func (r *notificationRepository) LatestStatuses(ctx context.Context) (map[string]string, error) {
	var rows []models.NotificationDelivery
	if err := r.db.WithContext(ctx).
		Select("alert_id", "status", "id").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	statuses := make(map[string]string, len(rows))
	for _, row := range rows {
		statuses[row.AlertID] = row.Status
	}
	return statuses, nil
}

func (r *notificationRepository) ListByStudent(ctx context.Context, studentID string, limit int) ([]models.NotificationDelivery, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var rows []models.NotificationDelivery
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
