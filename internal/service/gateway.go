package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"kmevents-payments/internal/checkout"
	"kmevents-payments/internal/client"
	"kmevents-payments/internal/model"
	"kmevents-payments/internal/repository"
)

// razorpayGateway adapts the Razorpay client and our persistence to the
// checkout.Gateway contract the session state machine runs against.
type razorpayGateway struct {
	db          *gorm.DB
	rz          client.RazorpayClient
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	fulfill     *fulfiller
	currency    string
	log         *zap.Logger
}

func (g *razorpayGateway) CreateOrder(ctx context.Context, req checkout.Request) (*checkout.Order, error) {
	receipt := "rcpt_" + uuid.NewString()[:8]

	notes := map[string]interface{}{
		"paymentType": string(req.Kind),
		"referenceId": req.ReferenceID,
	}
	for k, v := range req.Metadata {
		notes[k] = v
	}
	if req.Coupon != nil {
		notes["couponCode"] = req.Coupon.Code
	}

	orderID, err := g.rz.CreateOrder(ctx, req.AmountMinorUnits, g.currency, receipt, notes)
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	record := &model.PaymentOrder{
		OrderID:     orderID,
		Kind:        string(req.Kind),
		ReferenceID: req.ReferenceID,
		Amount:      req.AmountMinorUnits,
		Currency:    g.currency,
		Status:      "CREATED",
		Receipt:     receipt,
		PaymentRef:  "pay_" + uuid.NewString()[:12],
		UserID:      req.Metadata["userId"],
	}
	if req.Coupon != nil {
		record.CouponID = req.Coupon.CouponID
	}
	if err := g.orderRepo.Create(ctx, g.db, record); err != nil {
		return nil, fmt.Errorf("store payment order: %w", err)
	}

	return &checkout.Order{
		OrderID:  orderID,
		Key:      g.rz.Key(),
		Amount:   req.AmountMinorUnits,
		Currency: g.currency,
		Prefill:  req.Prefill,
	}, nil
}

// Verify is the only place a widget response is trusted. An invalid
// signature is a verification failure, not an error.
func (g *razorpayGateway) Verify(ctx context.Context, resp checkout.WidgetResponse, referenceID string) (*checkout.VerifiedOutcome, error) {
	if !g.rz.VerifyPaymentSignature(resp.OrderID, resp.PaymentID, resp.Signature) {
		g.log.Warn("payment signature mismatch",
			zap.String("order_id", resp.OrderID),
			zap.String("payment_id", resp.PaymentID))
		return &checkout.VerifiedOutcome{
			Success: false,
			Message: "payment signature verification failed",
		}, nil
	}

	record := &model.PaymentRecord{
		PaymentID: resp.PaymentID,
		Signature: resp.Signature,
	}
	// Enrichment is best-effort; the capture stands without it.
	if body, ferr := g.rz.FetchPayment(ctx, resp.PaymentID); ferr == nil {
		if v, ok := body["method"].(string); ok {
			record.Method = v
		}
		if v, ok := body["email"].(string); ok {
			record.Email = v
		}
		if v, ok := body["contact"].(string); ok {
			record.Contact = v
		}
	} else {
		g.log.Debug("payment fetch failed",
			zap.String("payment_id", resp.PaymentID),
			zap.Error(ferr))
	}

	order, err := g.fulfill.fulfill(ctx, resp.OrderID, record)
	if err != nil {
		return nil, err
	}

	return &checkout.VerifiedOutcome{
		Success:   true,
		PaymentID: resp.PaymentID,
		Details: map[string]interface{}{
			"orderId":     order.OrderID,
			"amount":      order.Amount,
			"referenceId": referenceID,
		},
	}, nil
}

func (g *razorpayGateway) ReportFailure(ctx context.Context, orderID string, werr checkout.WidgetError) error {
	if err := g.paymentRepo.CreateFailure(ctx, &model.PaymentFailure{
		OrderID:     orderID,
		Code:        werr.Code,
		Description: werr.Description,
	}); err != nil {
		return fmt.Errorf("store payment failure: %w", err)
	}

	if err := g.orderRepo.MarkFailed(ctx, orderID); err != nil {
		return fmt.Errorf("mark order failed: %w", err)
	}

	return nil
}
