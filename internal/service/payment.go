package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"kmevents-payments/internal/checkout"
	"kmevents-payments/internal/client"
	"kmevents-payments/internal/dto"
	"kmevents-payments/internal/repository"
)

var ErrBookingNotFound = errors.New("booking not found")

type PaymentService interface {
	// CreateBookingOrder is the modal-flow entry point: the booking's
	// rupee amount is converted to paise here, at the boundary.
	CreateBookingOrder(ctx context.Context, bookingID string, user dto.OrderUser) (*dto.BookingOrderResponse, error)
	// CreateOrder is the button-flow entry point: amounts arrive already
	// in minor units and pass through untouched.
	CreateOrder(ctx context.Context, req *dto.CreateOrderRequest, user dto.OrderUser) (*dto.CreateOrderResponse, error)
	Verify(ctx context.Context, req *dto.VerifyRequest) (*dto.VerifyResponse, error)
	ReportFailure(ctx context.Context, report *dto.FailureReport)
	Status(ctx context.Context, orderID string) (*dto.PaymentStatusResponse, error)
	// Checkout starts a session for another service (the plan-upgrade
	// gate) and returns the created order.
	Checkout(ctx context.Context, req checkout.Request) (*checkout.Order, string, error)
}

// sessionEntry tracks when a session entered the registry so abandoned
// checkouts can be evicted.
type sessionEntry struct {
	session *checkout.Session
	created time.Time
}

type paymentServiceImpl struct {
	db          *gorm.DB
	gateway     checkout.Gateway
	loader      *checkout.Loader
	opts        checkout.Options
	orderRepo   repository.OrderRepository
	bookingRepo repository.BookingRepository
	log         *zap.Logger

	mu       sync.Mutex
	sessions map[string]sessionEntry // by gateway order id
}

func NewPaymentService(
	db *gorm.DB,
	rz client.RazorpayClient,
	loader *checkout.Loader,
	opts checkout.Options,
	currency string,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	bookingRepo repository.BookingRepository,
	subscriptionRepo repository.SubscriptionRepository,
	couponRepo repository.CouponRepository,
	log *zap.Logger,
) PaymentService {
	gateway := &razorpayGateway{
		db:          db,
		rz:          rz,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		fulfill: &fulfiller{
			db:               db,
			orderRepo:        orderRepo,
			paymentRepo:      paymentRepo,
			bookingRepo:      bookingRepo,
			subscriptionRepo: subscriptionRepo,
			couponRepo:       couponRepo,
			log:              log,
		},
		currency: currency,
		log:      log,
	}

	return &paymentServiceImpl{
		db:          db,
		gateway:     gateway,
		loader:      loader,
		opts:        opts.WithDefaults(),
		orderRepo:   orderRepo,
		bookingRepo: bookingRepo,
		log:         log,
		sessions:    make(map[string]sessionEntry),
	}
}

func (s *paymentServiceImpl) newSession() *checkout.Session {
	log := s.log
	return checkout.NewSession(s.gateway, s.loader, s.opts, checkout.Callbacks{
		OnSuccess: func(out checkout.VerifiedOutcome) {
			log.Info("checkout verified", zap.String("payment_id", out.PaymentID))
		},
		OnFailure: func(message string) {
			log.Warn("checkout failed", zap.String("message", message))
		},
		OnCancel: func() {
			log.Info("checkout dismissed by user")
		},
	}, log)
}

func (s *paymentServiceImpl) CreateBookingOrder(ctx context.Context, bookingID string, user dto.OrderUser) (*dto.BookingOrderResponse, error) {
	if bookingID == "" {
		return nil, checkout.ErrMissingReference
	}

	booking, err := s.bookingRepo.FindByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("load booking %s: %w", bookingID, err)
	}

	// Legacy bookings store rupees; the gateway charges paise.
	amountMinor := decimal.NewFromInt(booking.Amount).
		Mul(decimal.NewFromInt(100)).
		IntPart()

	order, err := s.startSession(ctx, checkout.Request{
		AmountMinorUnits: amountMinor,
		Kind:             checkout.KindEvent,
		ReferenceID:      booking.BookingID,
		Metadata:         map[string]string{"userId": booking.UserID},
		Prefill: checkout.Prefill{
			Name:    user.Name,
			Email:   user.Email,
			Contact: user.Contact,
		},
	})
	if err != nil {
		return nil, err
	}

	return &dto.BookingOrderResponse{
		OrderID:  order.OrderID,
		Key:      order.Key,
		Amount:   order.Amount,
		Currency: order.Currency,
		User:     user,
	}, nil
}

func (s *paymentServiceImpl) CreateOrder(ctx context.Context, req *dto.CreateOrderRequest, user dto.OrderUser) (*dto.CreateOrderResponse, error) {
	creq := checkout.Request{
		AmountMinorUnits: req.Amount,
		Kind:             checkout.Kind(req.PaymentType),
		ReferenceID:      req.ReferenceID,
		Metadata:         req.Metadata,
		Prefill: checkout.Prefill{
			Name:    user.Name,
			Email:   user.Email,
			Contact: user.Contact,
		},
	}
	if req.Coupon != nil {
		creq.Coupon = &checkout.AppliedCoupon{
			CouponID:       req.Coupon.CouponID,
			Code:           req.Coupon.Code,
			DiscountAmount: req.Coupon.DiscountAmount,
			DiscountType:   req.Coupon.DiscountType,
			DiscountValue:  req.Coupon.DiscountValue,
		}
	}

	order, paymentRef, err := s.Checkout(ctx, creq)
	if err != nil {
		return nil, err
	}

	return &dto.CreateOrderResponse{
		Success: true,
		Data: dto.CreateOrderData{
			OrderID:   order.OrderID,
			Key:       order.Key,
			PaymentID: paymentRef,
		},
	}, nil
}

func (s *paymentServiceImpl) Checkout(ctx context.Context, req checkout.Request) (*checkout.Order, string, error) {
	order, err := s.startSession(ctx, req)
	if err != nil {
		return nil, "", err
	}

	stored, err := s.orderRepo.FindByOrderID(ctx, order.OrderID)
	if err != nil {
		return nil, "", fmt.Errorf("load stored order: %w", err)
	}

	return order, stored.PaymentRef, nil
}

func (s *paymentServiceImpl) startSession(ctx context.Context, req checkout.Request) (*checkout.Order, error) {
	session := s.newSession()

	order, err := session.Start(ctx, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.pruneLocked(time.Now())
	s.sessions[order.OrderID] = sessionEntry{session: session, created: time.Now()}
	s.mu.Unlock()

	return order, nil
}

// pruneLocked evicts sessions that can no longer receive a widget response:
// terminal ones, and ones older than the widget timeout (the browser walked
// away without any signal). A late verify still works; it resumes from the
// stored order.
func (s *paymentServiceImpl) pruneLocked(now time.Time) {
	for id, entry := range s.sessions {
		if entry.session.Status().IsTerminal() || now.Sub(entry.created) > s.opts.WidgetTimeout {
			delete(s.sessions, id)
		}
	}
}

func (s *paymentServiceImpl) sessionFor(ctx context.Context, orderID string) (*checkout.Session, error) {
	s.mu.Lock()
	entry, ok := s.sessions[orderID]
	s.mu.Unlock()
	if ok {
		return entry.session, nil
	}

	// No in-memory session (restart, another instance): resume from the
	// stored order.
	stored, err := s.orderRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}

	session := checkout.Resume(s.gateway,
		&checkout.Order{
			OrderID:  stored.OrderID,
			Amount:   stored.Amount,
			Currency: stored.Currency,
		},
		checkout.Request{
			AmountMinorUnits: stored.Amount,
			Kind:             checkout.Kind(stored.Kind),
			ReferenceID:      stored.ReferenceID,
		},
		s.opts, checkout.Callbacks{}, s.log)

	s.mu.Lock()
	s.sessions[orderID] = sessionEntry{session: session, created: time.Now()}
	s.mu.Unlock()

	return session, nil
}

func (s *paymentServiceImpl) dropSession(orderID string) {
	s.mu.Lock()
	delete(s.sessions, orderID)
	s.mu.Unlock()
}

func (s *paymentServiceImpl) Verify(ctx context.Context, req *dto.VerifyRequest) (*dto.VerifyResponse, error) {
	req.Normalize()
	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		return &dto.VerifyResponse{Success: false, Message: "missing verification fields"}, nil
	}

	// An order that is already paid is answered from the record; it is
	// never verified a second time.
	if paid, err := s.orderRepo.IsPaid(ctx, req.RazorpayOrderID); err == nil && paid {
		s.dropSession(req.RazorpayOrderID)
		return &dto.VerifyResponse{
			Success: true,
			Payment: &dto.VerifyPayment{
				PaymentID: req.RazorpayPaymentID,
				OrderID:   req.RazorpayOrderID,
				Status:    "PAID",
			},
		}, nil
	}

	session, err := s.sessionFor(ctx, req.RazorpayOrderID)
	if err != nil {
		return nil, err
	}

	outcome, err := session.HandleSuccess(ctx, checkout.WidgetResponse{
		OrderID:   req.RazorpayOrderID,
		PaymentID: req.RazorpayPaymentID,
		Signature: req.RazorpaySignature,
	})
	if err != nil {
		if errors.Is(err, checkout.ErrAlreadyVerified) || errors.Is(err, checkout.ErrNotAwaitingPayment) {
			// A repeated verify for a paid order is answered from the
			// record rather than re-verified.
			paid, perr := s.orderRepo.IsPaid(ctx, req.RazorpayOrderID)
			if perr == nil && paid {
				return &dto.VerifyResponse{
					Success: true,
					Payment: &dto.VerifyPayment{
						PaymentID: req.RazorpayPaymentID,
						OrderID:   req.RazorpayOrderID,
						Status:    "PAID",
					},
				}, nil
			}
			return &dto.VerifyResponse{Success: false, Message: "payment is not awaiting verification"}, nil
		}
		return nil, err
	}

	s.dropSession(req.RazorpayOrderID)

	if !outcome.Success {
		return &dto.VerifyResponse{Success: false, Message: outcome.Message}, nil
	}

	payment := &dto.VerifyPayment{
		PaymentID: outcome.PaymentID,
		OrderID:   req.RazorpayOrderID,
		Status:    "PAID",
	}
	if amount, ok := outcome.Details["amount"].(int64); ok {
		payment.Amount = amount
	}

	return &dto.VerifyResponse{Success: true, Payment: payment}, nil
}

// ReportFailure is best-effort end to end; nothing here may fail the
// request that carried the user's payment failure.
func (s *paymentServiceImpl) ReportFailure(ctx context.Context, report *dto.FailureReport) {
	werr := checkout.WidgetError{Code: report.ErrorCode, Description: report.ErrorDescription}

	session, err := s.sessionFor(ctx, report.OrderID)
	if err == nil {
		if herr := session.HandleFailure(ctx, werr); herr == nil {
			s.dropSession(report.OrderID)
			return
		}
	}

	// Session is gone or not awaiting payment; record the failure anyway.
	if err := s.gateway.ReportFailure(ctx, report.OrderID, werr); err != nil {
		s.log.Warn("failure report not stored",
			zap.String("order_id", report.OrderID),
			zap.Error(err))
	}
}

func (s *paymentServiceImpl) Status(ctx context.Context, orderID string) (*dto.PaymentStatusResponse, error) {
	s.mu.Lock()
	entry, ok := s.sessions[orderID]
	s.mu.Unlock()
	if ok {
		return &dto.PaymentStatusResponse{
			OrderID: orderID,
			Status:  string(entry.session.Status()),
		}, nil
	}

	stored, err := s.orderRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}

	status := checkout.StatusPending
	switch stored.Status {
	case "PAID":
		status = checkout.StatusSuccess
	case "FAILED":
		status = checkout.StatusFailed
	}

	return &dto.PaymentStatusResponse{OrderID: orderID, Status: string(status)}, nil
}
