package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"kmevents-payments/internal/dto"
	"kmevents-payments/internal/model"
	"kmevents-payments/internal/repository"
)

var (
	ErrCouponNotFound      = errors.New("invalid coupon code")
	ErrCouponInactive      = errors.New("this coupon is no longer active")
	ErrCouponExpired       = errors.New("this coupon has expired")
	ErrCouponExhausted     = errors.New("this coupon has reached its usage limit")
	ErrCouponWrongEvent    = errors.New("this coupon is not valid for this event")
	ErrCouponEmptySubtotal = errors.New("subtotal must be greater than zero")
)

type CouponService interface {
	Validate(ctx context.Context, req *dto.CouponValidateRequest) (*dto.CouponData, error)
}

type couponServiceImpl struct {
	couponRepo repository.CouponRepository
}

func NewCouponService(couponRepo repository.CouponRepository) CouponService {
	return &couponServiceImpl{
		couponRepo: couponRepo,
	}
}

func (s *couponServiceImpl) Validate(ctx context.Context, req *dto.CouponValidateRequest) (*dto.CouponData, error) {
	if req.Subtotal <= 0 {
		return nil, ErrCouponEmptySubtotal
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, ErrCouponNotFound
	}

	coupon, err := s.couponRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("load coupon %s: %w", code, err)
	}

	if !coupon.Active {
		return nil, ErrCouponInactive
	}
	if coupon.ExpiresAt != nil && coupon.ExpiresAt.Before(time.Now()) {
		return nil, ErrCouponExpired
	}
	if coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit {
		return nil, ErrCouponExhausted
	}
	if coupon.EventID != "" && coupon.EventID != req.EventID {
		return nil, ErrCouponWrongEvent
	}
	if coupon.MinSubtotal > 0 && req.Subtotal < coupon.MinSubtotal {
		return nil, fmt.Errorf("minimum order of %s required for this coupon", FormatINR(coupon.MinSubtotal))
	}

	return &dto.CouponData{
		CouponID:       coupon.CouponID,
		Code:           coupon.Code,
		Description:    coupon.Description,
		DiscountAmount: discountFor(coupon, req.Subtotal),
		DiscountType:   coupon.DiscountType,
		DiscountValue:  coupon.DiscountValue,
	}, nil
}

// discountFor computes the rupee discount a coupon grants on a subtotal.
// Percentage discounts round down to the nearest rupee and respect the
// coupon's cap; fixed discounts never exceed the subtotal.
func discountFor(coupon *model.Coupon, subtotal int64) int64 {
	switch coupon.DiscountType {
	case "percentage":
		amount := decimal.NewFromInt(subtotal).
			Mul(decimal.NewFromInt(coupon.DiscountValue)).
			Div(decimal.NewFromInt(100)).
			Floor().
			IntPart()
		if coupon.MaxDiscount > 0 && amount > coupon.MaxDiscount {
			amount = coupon.MaxDiscount
		}
		return amount
	case "fixed":
		if coupon.DiscountValue > subtotal {
			return subtotal
		}
		return coupon.DiscountValue
	default:
		return 0
	}
}

// FormatINR renders a major-unit rupee amount the way the dashboards
// display it, e.g. ₹100.00.
func FormatINR(amount int64) string {
	return "₹" + decimal.NewFromInt(amount).StringFixed(2)
}
