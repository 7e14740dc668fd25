package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"kmevents-payments/internal/model"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, sub *model.UserSubscription) error
	FindActiveByUser(ctx context.Context, userID string) (*model.UserSubscription, error)
	CancelActiveByUser(ctx context.Context, tx *gorm.DB, userID string) error
}

type subscriptionRepoImpl struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepoImpl{
		db: db,
	}
}

func (r *subscriptionRepoImpl) Create(ctx context.Context, tx *gorm.DB, sub *model.UserSubscription) error {
	return tx.WithContext(ctx).Create(sub).Error
}

func (r *subscriptionRepoImpl) FindActiveByUser(ctx context.Context, userID string) (*model.UserSubscription, error) {
	var sub model.UserSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, "ACTIVE").
		Order("created_at desc").
		First(&sub).Error

	if err != nil {
		return nil, err
	}

	return &sub, nil
}

func (r *subscriptionRepoImpl) CancelActiveByUser(ctx context.Context, tx *gorm.DB, userID string) error {
	now := time.Now()
	return tx.WithContext(ctx).Model(&model.UserSubscription{}).
		Where("user_id = ? AND status = ?", userID, "ACTIVE").
		Updates(map[string]interface{}{
			"status":     "CANCELLED",
			"ended_at":   &now,
			"updated_at": now,
		}).Error
}
