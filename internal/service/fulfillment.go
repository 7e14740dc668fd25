package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"kmevents-payments/internal/model"
	"kmevents-payments/internal/repository"
)

// fulfiller applies the business effect of a verified payment: the order is
// marked paid, the capture is recorded, and the referenced booking or
// subscription is fulfilled. Both the browser verify path and the gateway
// webhook converge here; it is never reachable from an unverified widget
// response.
type fulfiller struct {
	db               *gorm.DB
	orderRepo        repository.OrderRepository
	paymentRepo      repository.PaymentRepository
	bookingRepo      repository.BookingRepository
	subscriptionRepo repository.SubscriptionRepository
	couponRepo       repository.CouponRepository
	log              *zap.Logger
}

func (f *fulfiller) fulfill(ctx context.Context, orderID string, record *model.PaymentRecord) (*model.PaymentOrder, error) {
	var order *model.PaymentOrder

	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var transitioned bool
		var err error
		order, transitioned, err = f.orderRepo.MarkPaid(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}

		record.OrderID = orderID
		if record.Amount == 0 {
			record.Amount = order.Amount
		}
		if record.Currency == "" {
			record.Currency = order.Currency
		}
		if err := f.paymentRepo.CreateRecord(ctx, tx, record); err != nil {
			return fmt.Errorf("store payment record: %w", err)
		}

		// The order was already paid through the other path (verify vs
		// webhook); its effects are applied, don't apply them again.
		if !transitioned {
			return nil
		}

		switch order.Kind {
		case "event":
			if err := f.bookingRepo.MarkConfirmed(ctx, tx, order.ReferenceID); err != nil {
				return fmt.Errorf("confirm booking %s: %w", order.ReferenceID, err)
			}
		case "subscription":
			if err := f.activateSubscription(ctx, tx, order); err != nil {
				return err
			}
		}

		if order.CouponID != "" {
			if err := f.couponRepo.IncrementUsage(ctx, tx, order.CouponID); err != nil {
				return fmt.Errorf("count coupon use: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	f.log.Info("payment fulfilled",
		zap.String("order_id", orderID),
		zap.String("payment_id", record.PaymentID),
		zap.String("kind", order.Kind))

	return order, nil
}

func (f *fulfiller) activateSubscription(ctx context.Context, tx *gorm.DB, order *model.PaymentOrder) error {
	if order.UserID == "" {
		return fmt.Errorf("subscription order %s has no user", order.OrderID)
	}

	if err := f.subscriptionRepo.CancelActiveByUser(ctx, tx, order.UserID); err != nil {
		return fmt.Errorf("cancel previous subscription: %w", err)
	}

	now := time.Now()
	if err := f.subscriptionRepo.Create(ctx, tx, &model.UserSubscription{
		SubscriptionID: "sub_" + uuid.NewString(),
		UserID:         order.UserID,
		PlanName:       order.ReferenceID,
		Status:         "ACTIVE",
		StartedAt:      &now,
	}); err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}

	return nil
}
