// Package mysql 提交仓储的 GORM 实现
package mysql

import (
	"context"
	"errors"

	"github.com/risevoices/risevoices/internal/intake/domain"
	"gorm.io/gorm"
)

type submissionRepository struct{ db *gorm.DB }

// NewSubmissionRepository 构造提交仓储
func NewSubmissionRepository(db *gorm.DB) domain.SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, sub *domain.Submission) error {
	err := r.db.WithContext(ctx).Create(sub).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicateReferralCode
	}
	return err
}

func (r *submissionRepository) Save(ctx context.Context, sub *domain.Submission) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

func (r *submissionRepository) GetBySubmissionID(ctx context.Context, submissionID string) (*domain.Submission, error) {
	var sub domain.Submission
	err := r.db.WithContext(ctx).Where("submission_id = ?", submissionID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepository) GetByReferralCode(ctx context.Context, typ domain.SubmissionType, code string) (*domain.Submission, error) {
	var sub domain.Submission
	err := r.db.WithContext(ctx).
		Where("type = ? AND referral_code = ?", typ, code).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepository) ListByType(ctx context.Context, typ domain.SubmissionType) ([]*domain.Submission, error) {
	var subs []*domain.Submission
	err := r.db.WithContext(ctx).
		Where("type = ?", typ).
		Order("created_at ASC").
		Find(&subs).Error
	return subs, err
}

func (r *submissionRepository) ListForMap(ctx context.Context) ([]*domain.Submission, error) {
	var subs []*domain.Submission
	err := r.db.WithContext(ctx).
		Where("geocoded = ? AND status IN ?", true,
			[]domain.ModerationStatus{domain.StatusApproved, domain.StatusPublished}).
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}

func (r *submissionRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Submission, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Submission{})
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Flagged {
		q = q.Where("flagged = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subs []*domain.Submission
	err := q.Order("created_at DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&subs).Error
	return subs, total, err
}

func (r *submissionRepository) CountByType(ctx context.Context, typ domain.SubmissionType) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&domain.Submission{}).
		Where("type = ?", typ).
		Count(&total).Error
	return total, err
}

func (r *submissionRepository) CountReferredByType(ctx context.Context, typ domain.SubmissionType) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&domain.Submission{}).
		Where("type = ? AND referred_by IS NOT NULL AND referred_by <> ''", typ).
		Count(&total).Error
	return total, err
}
