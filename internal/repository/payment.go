package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kmevents-payments/internal/model"
)

type PaymentRepository interface {
	CreateRecord(ctx context.Context, tx *gorm.DB, record *model.PaymentRecord) error
	FindByPaymentID(ctx context.Context, paymentID string) (*model.PaymentRecord, error)
	CreateFailure(ctx context.Context, failure *model.PaymentFailure) error
}

type paymentRepoImpl struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepoImpl{
		db: db,
	}
}

func (r *paymentRepoImpl) CreateRecord(ctx context.Context, tx *gorm.DB, record *model.PaymentRecord) error {
	// The verify path and the webhook path can both land the same payment.
	return tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(record).Error
}

func (r *paymentRepoImpl) FindByPaymentID(ctx context.Context, paymentID string) (*model.PaymentRecord, error) {
	var record model.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		First(&record).Error

	if err != nil {
		return nil, err
	}

	return &record, nil
}

func (r *paymentRepoImpl) CreateFailure(ctx context.Context, failure *model.PaymentFailure) error {
	return r.db.WithContext(ctx).Create(failure).Error
}
