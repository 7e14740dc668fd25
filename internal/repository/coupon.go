package repository

import (
	"context"

	"gorm.io/gorm"

	"kmevents-payments/internal/model"
)

type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*model.Coupon, error)
	// IncrementUsage runs in the fulfillment transaction so a coupon use
	// is counted if and only if its payment lands.
	IncrementUsage(ctx context.Context, tx *gorm.DB, couponID string) error
	Seed(ctx context.Context) error
}

type couponRepoImpl struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepoImpl{
		db: db,
	}
}

func (r *couponRepoImpl) FindByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&coupon).Error

	if err != nil {
		return nil, err
	}

	return &coupon, nil
}

func (r *couponRepoImpl) IncrementUsage(ctx context.Context, tx *gorm.DB, couponID string) error {
	return tx.WithContext(ctx).Model(&model.Coupon{}).
		Where("coupon_id = ?", couponID).
		Update("used_count", gorm.Expr("used_count + 1")).
		Error
}

func (r *couponRepoImpl) Seed(ctx context.Context) error {
	coupons := []model.Coupon{
		{CouponID: "cpn_save20", Code: "SAVE20", Description: "20% off your booking", DiscountType: "percentage", DiscountValue: 20, Active: true},
		{CouponID: "cpn_flat50", Code: "FLAT50", Description: "Flat ₹50 off", DiscountType: "fixed", DiscountValue: 50, MinSubtotal: 200, Active: true},
	}

	return r.db.WithContext(ctx).
		Clauses(onConflictDoNothing()).
		Create(&coupons).Error
}
