package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"kmevents-payments/internal/client"
	"kmevents-payments/internal/model"
	"kmevents-payments/internal/repository"
)

var ErrWebhookSignature = errors.New("webhook signature verification failed")

// WebhookService handles Razorpay server-to-server events. The browser
// verify path and this path converge on the same fulfillment, so an
// abandoned tab still gets its booking confirmed once the gateway reports
// the capture.
type WebhookService interface {
	Handle(ctx context.Context, eventID, signature string, body []byte) error
}

type webhookServiceImpl struct {
	rz               client.RazorpayClient
	webhookEventRepo repository.WebhookEventRepository
	orderRepo        repository.OrderRepository
	paymentRepo      repository.PaymentRepository
	fulfill          *fulfiller
	log              *zap.Logger
}

func NewWebhookService(
	db *gorm.DB,
	rz client.RazorpayClient,
	webhookEventRepo repository.WebhookEventRepository,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	bookingRepo repository.BookingRepository,
	subscriptionRepo repository.SubscriptionRepository,
	couponRepo repository.CouponRepository,
	log *zap.Logger,
) WebhookService {
	return &webhookServiceImpl{
		rz:               rz,
		webhookEventRepo: webhookEventRepo,
		orderRepo:        orderRepo,
		paymentRepo:      paymentRepo,
		fulfill: &fulfiller{
			db:               db,
			orderRepo:        orderRepo,
			paymentRepo:      paymentRepo,
			bookingRepo:      bookingRepo,
			subscriptionRepo: subscriptionRepo,
			couponRepo:       couponRepo,
			log:              log,
		},
		log: log,
	}
}

func (s *webhookServiceImpl) Handle(ctx context.Context, eventID, signature string, body []byte) error {
	if !s.rz.VerifyWebhookSignature(body, signature) {
		return ErrWebhookSignature
	}

	if eventID != "" {
		seen, err := s.webhookEventRepo.Exists(ctx, eventID)
		if err != nil {
			return fmt.Errorf("check webhook event: %w", err)
		}
		if seen {
			return nil
		}
	}

	var event model.RazorpayWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode webhook payload: %w", err)
	}
	event.EventID = eventID

	switch event.Event {
	case "payment.captured":
		if err := s.handleCaptured(ctx, &event); err != nil {
			return err
		}
	case "payment.failed":
		if err := s.handleFailed(ctx, &event); err != nil {
			return err
		}
	default:
		s.log.Debug("ignoring webhook event", zap.String("event", event.Event))
	}

	if eventID != "" {
		if err := s.webhookEventRepo.MarkProcessed(ctx, eventID, event.Event); err != nil {
			return fmt.Errorf("mark webhook processed: %w", err)
		}
	}

	return nil
}

func (s *webhookServiceImpl) handleCaptured(ctx context.Context, event *model.RazorpayWebhookEvent) error {
	payment := event.Payload.Payment.Entity
	if payment.OrderID == "" {
		return fmt.Errorf("payment.captured event %s has no order id", event.EventID)
	}

	_, err := s.fulfill.fulfill(ctx, payment.OrderID, &model.PaymentRecord{
		PaymentID: payment.ID,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		Method:    payment.Method,
		Email:     payment.Email,
		Contact:   payment.Contact,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Order created against another environment; acknowledge so
			// the gateway stops redelivering.
			s.log.Warn("webhook for unknown order", zap.String("order_id", payment.OrderID))
			return nil
		}
		return err
	}

	return nil
}

func (s *webhookServiceImpl) handleFailed(ctx context.Context, event *model.RazorpayWebhookEvent) error {
	payment := event.Payload.Payment.Entity
	if payment.OrderID == "" {
		return fmt.Errorf("payment.failed event %s has no order id", event.EventID)
	}

	if err := s.paymentRepo.CreateFailure(ctx, &model.PaymentFailure{
		OrderID:     payment.OrderID,
		Code:        payment.ErrorCode,
		Description: payment.ErrorDescription,
	}); err != nil {
		return fmt.Errorf("store payment failure: %w", err)
	}

	if err := s.orderRepo.MarkFailed(ctx, payment.OrderID); err != nil {
		return fmt.Errorf("mark order failed: %w", err)
	}

	return nil
}
