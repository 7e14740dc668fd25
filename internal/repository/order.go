package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"kmevents-payments/internal/model"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.PaymentOrder) error
	FindByOrderID(ctx context.Context, orderID string) (*model.PaymentOrder, error)
	// MarkPaid flips a CREATED or FAILED order to PAID. The bool reports
	// whether this call made the transition; a redelivered capture lands
	// on an already paid order and gets false.
	MarkPaid(ctx context.Context, tx *gorm.DB, orderID string) (*model.PaymentOrder, bool, error)
	MarkFailed(ctx context.Context, orderID string) error
	IsPaid(ctx context.Context, orderID string) (bool, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.PaymentOrder) error {
	return tx.WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) FindByOrderID(ctx context.Context, orderID string) (*model.PaymentOrder, error) {
	var order model.PaymentOrder
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) MarkPaid(ctx context.Context, tx *gorm.DB, orderID string) (*model.PaymentOrder, bool, error) {
	var order model.PaymentOrder

	result := tx.WithContext(ctx).Model(&model.PaymentOrder{}).
		Where("order_id = ? AND status IN ?", orderID, []string{"CREATED", "FAILED"}).
		Updates(map[string]interface{}{
			"status":     "PAID",
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		// Already paid orders are not an error; redelivered webhooks land here.
		err := tx.WithContext(ctx).Where("order_id = ?", orderID).First(&order).Error
		if err != nil {
			return nil, false, gorm.ErrRecordNotFound
		}
		return &order, false, nil
	}

	if err := tx.WithContext(ctx).Where("order_id = ?", orderID).First(&order).Error; err != nil {
		return nil, false, err
	}

	return &order, true, nil
}

func (r *orderRepoImpl) MarkFailed(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).Model(&model.PaymentOrder{}).
		Where("order_id = ? AND status = ?", orderID, "CREATED").
		Updates(map[string]interface{}{
			"status":     "FAILED",
			"updated_at": time.Now(),
		}).Error
}

func (r *orderRepoImpl) IsPaid(ctx context.Context, orderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PaymentOrder{}).
		Where("order_id = ?", orderID).
		Where("status = ?", "PAID").
		Count(&count).Error

	return count > 0, err
}
