// Package mysql 通知记录仓储的 GORM 实现
package mysql

import (
	"context"

	"github.com/risevoices/risevoices/internal/notification/domain"
	"gorm.io/gorm"
)

type notificationRepository struct{ db *gorm.DB }

// NewNotificationRepository 构造通知仓储
func NewNotificationRepository(db *gorm.DB) domain.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) Save(ctx context.Context, n *domain.Notification) error {
	return r.db.WithContext(ctx).Save(n).Error
}

func (r *notificationRepository) ListBySubmissionID(ctx context.Context, submissionID string) ([]*domain.Notification, error) {
	var out []*domain.Notification
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}
