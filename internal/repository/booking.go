package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"kmevents-payments/internal/model"
)

type BookingRepository interface {
	FindByBookingID(ctx context.Context, bookingID string) (*model.Booking, error)
	MarkConfirmed(ctx context.Context, tx *gorm.DB, bookingID string) error
}

type bookingRepoImpl struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepoImpl{
		db: db,
	}
}

func (r *bookingRepoImpl) FindByBookingID(ctx context.Context, bookingID string) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		First(&booking).Error

	if err != nil {
		return nil, err
	}

	return &booking, nil
}

func (r *bookingRepoImpl) MarkConfirmed(ctx context.Context, tx *gorm.DB, bookingID string) error {
	return tx.WithContext(ctx).Model(&model.Booking{}).
		Where("booking_id = ? AND status = ?", bookingID, "PENDING").
		Updates(map[string]interface{}{
			"status":     "CONFIRMED",
			"updated_at": time.Now(),
		}).Error
}
