package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"kmevents-payments/internal/model"
)

type EventRequestRepository interface {
	Create(ctx context.Context, req *model.EventRequest) error
	// CountNonRejectedThisMonth counts an organizer's requests created in
	// the current calendar month that were not rejected.
	CountNonRejectedThisMonth(ctx context.Context, organizerID string, now time.Time) (int, error)
}

type eventRequestRepoImpl struct {
	db *gorm.DB
}

func NewEventRequestRepository(db *gorm.DB) EventRequestRepository {
	return &eventRequestRepoImpl{
		db: db,
	}
}

func (r *eventRequestRepoImpl) Create(ctx context.Context, req *model.EventRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *eventRequestRepoImpl) CountNonRejectedThisMonth(ctx context.Context, organizerID string, now time.Time) (int, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var count int64
	err := r.db.WithContext(ctx).Model(&model.EventRequest{}).
		Where("organizer_id = ?", organizerID).
		Where("status <> ?", "REJECTED").
		Where("created_at >= ?", monthStart).
		Count(&count).Error

	return int(count), err
}
