package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"kmevents-payments/internal/checkout"
	"kmevents-payments/internal/dto"
	"kmevents-payments/internal/model"
	"kmevents-payments/internal/repository"
)

func newPaymentService(t *testing.T, db *gorm.DB, rz *fakeRazorpay) PaymentService {
	t.Helper()

	loader := checkout.NewLoader(func(ctx context.Context) error { return nil })

	return NewPaymentService(
		db,
		rz,
		loader,
		checkout.Options{},
		"INR",
		repository.NewOrderRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewBookingRepository(db),
		repository.NewSubscriptionRepository(db),
		repository.NewCouponRepository(db),
		zap.NewNop(),
	)
}

func testUser() dto.OrderUser {
	return dto.OrderUser{Name: "Asha", Email: "asha@example.com", Contact: "9999999999"}
}

func TestBookingCheckoutAmountMinorUnits(t *testing.T) {
	db := newTestDB(t)
	rz := &fakeRazorpay{sigValid: true}
	svc := newPaymentService(t, db, rz)

	// Legacy bookings store rupees.
	seedBooking(t, db, "BK-1", 500)

	resp, err := svc.CreateBookingOrder(context.Background(), "BK-1", testUser())
	require.NoError(t, err)

	assert.Equal(t, int64(50000), rz.lastAmount, "the gateway is charged in paise")
	assert.Equal(t, int64(50000), resp.Amount)
	assert.Equal(t, "INR", resp.Currency)
	assert.Equal(t, "rzp_test_key", resp.Key)
	assert.Equal(t, "order_rz_1", resp.OrderID)
	assert.Equal(t, testUser(), resp.User)

	var stored model.PaymentOrder
	require.NoError(t, db.Where("order_id = ?", resp.OrderID).First(&stored).Error)
	assert.Equal(t, int64(50000), stored.Amount)
	assert.Equal(t, "event", stored.Kind)
	assert.Equal(t, "BK-1", stored.ReferenceID)
	assert.Equal(t, "CREATED", stored.Status)
}

func TestOrderCheckoutAmountPassthrough(t *testing.T) {
	db := newTestDB(t)
	rz := &fakeRazorpay{sigValid: true}
	svc := newPaymentService(t, db, rz)

	// Button-flow callers already send paise; no conversion happens here.
	resp, err := svc.CreateOrder(context.Background(), &dto.CreateOrderRequest{
		Amount:      500,
		PaymentType: "event",
		ReferenceID: "BK-2",
	}, testUser())
	require.NoError(t, err)

	assert.Equal(t, int64(500), rz.lastAmount)
	assert.True(t, resp.Success)
	assert.Equal(t, "order_rz_1", resp.Data.OrderID)
	assert.Equal(t, "rzp_test_key", resp.Data.Key)
	assert.NotEmpty(t, resp.Data.PaymentID)
}

func TestCreateOrderValidationShortCircuits(t *testing.T) {
	tests := []struct {
		name string
		req  dto.CreateOrderRequest
		want error
	}{
		{
			name: "zero amount",
			req:  dto.CreateOrderRequest{Amount: 0, PaymentType: "event", ReferenceID: "BK-1"},
			want: checkout.ErrInvalidAmount,
		},
		{
			name: "unknown payment type",
			req:  dto.CreateOrderRequest{Amount: 500, PaymentType: "donation", ReferenceID: "BK-1"},
			want: checkout.ErrInvalidKind,
		},
		{
			name: "missing reference",
			req:  dto.CreateOrderRequest{Amount: 500, PaymentType: "subscription"},
			want: checkout.ErrMissingReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			rz := &fakeRazorpay{sigValid: true}
			svc := newPaymentService(t, db, rz)

			_, err := svc.CreateOrder(context.Background(), &tt.req, testUser())

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, rz.orderCount(), "validation failures must not reach the gateway")
		})
	}
}

func TestCreateBookingOrderUnknownBooking(t *testing.T) {
	db := newTestDB(t)
	svc := newPaymentService(t, db, &fakeRazorpay{})

	_, err := svc.CreateBookingOrder(context.Background(), "BK-missing", testUser())
	assert.ErrorIs(t, err, ErrBookingNotFound)

	_, err = svc.CreateBookingOrder(context.Background(), "", testUser())
	assert.ErrorIs(t, err, checkout.ErrMissingReference)
}

func TestVerifyConfirmsBooking(t *testing.T) {
	db := newTestDB(t)
	rz := &fakeRazorpay{sigValid: true}
	svc := newPaymentService(t, db, rz)

	seedBooking(t, db, "BK-1", 500)
	order, err := svc.CreateBookingOrder(context.Background(), "BK-1", testUser())
	require.NoError(t, err)

	resp, err := svc.Verify(context.Background(), &dto.VerifyRequest{
		RazorpayOrderID:   order.OrderID,
		RazorpayPaymentID: "pay_rz_1",
		RazorpaySignature: "sig",
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, "PAID", resp.Payment.Status)
	assert.Equal(t, "pay_rz_1", resp.Payment.PaymentID)
	assert.Equal(t, int64(50000), resp.Payment.Amount)

	var booking model.Booking
	require.NoError(t, db.Where("booking_id = ?", "BK-1").First(&booking).Error)
	assert.Equal(t, "CONFIRMED", booking.Status)

	var stored model.PaymentOrder
	require.NoError(t, db.Where("order_id = ?", order.OrderID).First(&stored).Error)
	assert.Equal(t, "PAID", stored.Status)

	var record model.PaymentRecord
	require.NoError(t, db.Where("payment_id = ?", "pay_rz_1").First(&record).Error)
	assert.Equal(t, order.OrderID, record.OrderID)

	// A repeated verify is answered from the record, not re-verified.
	again, err := svc.Verify(context.Background(), &dto.VerifyRequest{
		RazorpayOrderID:   order.OrderID,
		RazorpayPaymentID: "pay_rz_1",
		RazorpaySignature: "sig",
	})
	require.NoError(t, err)
	assert.True(t, again.Success)
	assert.Equal(t, 1, rz.sigCalls, "signature is checked exactly once")
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	db := newTestDB(t)
	rz := &fakeRazorpay{sigValid: false}
	svc := newPaymentService(t, db, rz)

	seedBooking(t, db, "BK-1", 500)
	order, err := svc.CreateBookingOrder(context.Background(), "BK-1", testUser())
	require.NoError(t, err)

	resp, err := svc.Verify(context.Background(), &dto.VerifyRequest{
		RazorpayOrderID:   order.OrderID,
		RazorpayPaymentID: "pay_rz_1",
		RazorpaySignature: "forged",
	})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "payment signature verification failed", resp.Message)

	// Nothing is fulfilled on a forged response.
	var booking model.Booking
	require.NoError(t, db.Where("booking_id = ?", "BK-1").First(&booking).Error)
	assert.Equal(t, "PENDING", booking.Status)
}

func TestVerifyAcceptsSnakeCaseFields(t *testing.T) {
	db := newTestDB(t)
	rz := &fakeRazorpay{sigValid: true}
	svc := newPaymentService(t, db, rz)

	seedBooking(t, db, "BK-1", 500)
	order, err := svc.CreateBookingOrder(context.Background(), "BK-1", testUser())
	require.NoError(t, err)

	resp, err := svc.Verify(context.Background(), &dto.VerifyRequest{
		RazorpayOrderIDSnake:   order.OrderID,
		RazorpayPaymentIDSnake: "pay_rz_1",
		RazorpaySignatureSnake: "sig",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestVerifyMissingFields(t *testing.T) {
	db := newTestDB(t)
	svc := newPaymentService(t, db, &fakeRazorpay{sigValid: true})

	resp, err := svc.Verify(context.Background(), &dto.VerifyRequest{
		RazorpayOrderID: "order_rz_1",
	})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "missing verification fields", resp.Message)
}

func TestVerifyResumesAfterRestart(t *testing.T) {
	db := newTestDB(t)
	rz := &fakeRazorpay{sigValid: true}

	seedBooking(t, db, "BK-1", 500)
	first := newPaymentService(t, db, rz)
	order, err := first.CreateBookingOrder(context.Background(), "BK-1", testUser())
	require.NoError(t, err)

	// A fresh instance has no in-memory session and resumes from the
	// stored order.
	second := newPaymentService(t, db, rz)
	resp, err := second.Verify(context.Background(), &dto.VerifyRequest{
		RazorpayOrderID:   order.OrderID,
		RazorpayPaymentID: "pay_rz_1",
		RazorpaySignature: "sig",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	var booking model.Booking
	require.NoError(t, db.Where("booking_id = ?", "BK-1").First(&booking).Error)
	assert.Equal(t, "CONFIRMED", booking.Status)
}

func TestReportFailureRecordsAndMarksOrder(t *testing.T) {
	db := newTestDB(t)
	rz := &fakeRazorpay{sigValid: true}
	svc := newPaymentService(t, db, rz)

	seedBooking(t, db, "BK-1", 500)
	order, err := svc.CreateBookingOrder(context.Background(), "BK-1", testUser())
	require.NoError(t, err)

	svc.ReportFailure(context.Background(), &dto.FailureReport{
		OrderID:          order.OrderID,
		ErrorCode:        "BAD_REQUEST_ERROR",
		ErrorDescription: "Payment failed",
	})

	var failure model.PaymentFailure
	require.NoError(t, db.Where("order_id = ?", order.OrderID).First(&failure).Error)
	assert.Equal(t, "BAD_REQUEST_ERROR", failure.Code)
	assert.Equal(t, "Payment failed", failure.Description)

	var stored model.PaymentOrder
	require.NoError(t, db.Where("order_id = ?", order.OrderID).First(&stored).Error)
	assert.Equal(t, "FAILED", stored.Status)

	status, err := svc.Status(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "failed", status.Status)
}

func TestVerifySubscriptionActivates(t *testing.T) {
	db := newTestDB(t)
	rz := &fakeRazorpay{sigValid: true}
	svc := newPaymentService(t, db, rz)

	order, _, err := svc.Checkout(context.Background(), checkout.Request{
		AmountMinorUnits: 99900,
		Kind:             checkout.KindSubscription,
		ReferenceID:      "Basic",
		Metadata:         map[string]string{"userId": "org_1"},
	})
	require.NoError(t, err)

	resp, err := svc.Verify(context.Background(), &dto.VerifyRequest{
		RazorpayOrderID:   order.OrderID,
		RazorpayPaymentID: "pay_rz_1",
		RazorpaySignature: "sig",
	})
	require.NoError(t, err)
	require.True(t, resp.Success)

	var sub model.UserSubscription
	require.NoError(t, db.Where("user_id = ?", "org_1").First(&sub).Error)
	assert.Equal(t, "ACTIVE", sub.Status)
	assert.Equal(t, "Basic", sub.PlanName)
}

func TestVerifyCountsCouponUse(t *testing.T) {
	db := newTestDB(t)
	rz := &fakeRazorpay{sigValid: true}
	svc := newPaymentService(t, db, rz)

	require.NoError(t, repository.NewCouponRepository(db).Seed(context.Background()))

	resp, err := svc.CreateOrder(context.Background(), &dto.CreateOrderRequest{
		Amount:      40000,
		PaymentType: "event",
		ReferenceID: "BK-1",
		Coupon: &dto.AppliedCoupon{
			CouponID:       "cpn_save20",
			Code:           "SAVE20",
			DiscountAmount: 100,
			DiscountType:   "percentage",
			DiscountValue:  20,
		},
	}, testUser())
	require.NoError(t, err)

	seedBooking(t, db, "BK-1", 500)
	verify := &dto.VerifyRequest{
		RazorpayOrderID:   resp.Data.OrderID,
		RazorpayPaymentID: "pay_rz_1",
		RazorpaySignature: "sig",
	}
	vresp, err := svc.Verify(context.Background(), verify)
	require.NoError(t, err)
	require.True(t, vresp.Success)

	var coupon model.Coupon
	require.NoError(t, db.Where("coupon_id = ?", "cpn_save20").First(&coupon).Error)
	assert.Equal(t, 1, coupon.UsedCount, "a verified couponed payment counts one use")

	// A repeated verify is answered from the record and counts nothing.
	_, err = svc.Verify(context.Background(), verify)
	require.NoError(t, err)
	require.NoError(t, db.Where("coupon_id = ?", "cpn_save20").First(&coupon).Error)
	assert.Equal(t, 1, coupon.UsedCount)
}

func TestVerifyEnrichesRecordFromGateway(t *testing.T) {
	db := newTestDB(t)
	rz := &fakeRazorpay{sigValid: true, fetchBody: map[string]interface{}{
		"id":      "pay_rz_1",
		"method":  "upi",
		"email":   "asha@example.com",
		"contact": "9999999999",
	}}
	svc := newPaymentService(t, db, rz)

	seedBooking(t, db, "BK-1", 500)
	order, err := svc.CreateBookingOrder(context.Background(), "BK-1", testUser())
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), &dto.VerifyRequest{
		RazorpayOrderID:   order.OrderID,
		RazorpayPaymentID: "pay_rz_1",
		RazorpaySignature: "sig",
	})
	require.NoError(t, err)

	var record model.PaymentRecord
	require.NoError(t, db.Where("payment_id = ?", "pay_rz_1").First(&record).Error)
	assert.Equal(t, "upi", record.Method)
	assert.Equal(t, "asha@example.com", record.Email)
	assert.Equal(t, "9999999999", record.Contact)
}

func TestSessionRegistryEviction(t *testing.T) {
	db := newTestDB(t)
	rz := &fakeRazorpay{sigValid: true}
	svc := newPaymentService(t, db, rz)
	impl := svc.(*paymentServiceImpl)

	seedBooking(t, db, "BK-1", 500)
	order, err := svc.CreateBookingOrder(context.Background(), "BK-1", testUser())
	require.NoError(t, err)

	// The order gets paid through the webhook path; the in-memory session
	// never hears about it.
	require.NoError(t, db.Model(&model.PaymentOrder{}).
		Where("order_id = ?", order.OrderID).
		Update("status", "PAID").Error)

	resp, err := svc.Verify(context.Background(), &dto.VerifyRequest{
		RazorpayOrderID:   order.OrderID,
		RazorpayPaymentID: "pay_rz_1",
		RazorpaySignature: "sig",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	impl.mu.Lock()
	_, held := impl.sessions[order.OrderID]
	impl.mu.Unlock()
	assert.False(t, held, "a record-answered verify releases the session")

	// An abandoned checkout is evicted once it outlives the widget.
	seedBooking(t, db, "BK-2", 500)
	stale, err := svc.CreateBookingOrder(context.Background(), "BK-2", testUser())
	require.NoError(t, err)

	impl.mu.Lock()
	entry := impl.sessions[stale.OrderID]
	entry.created = time.Now().Add(-time.Hour)
	impl.sessions[stale.OrderID] = entry
	impl.mu.Unlock()

	seedBooking(t, db, "BK-3", 500)
	fresh, err := svc.CreateBookingOrder(context.Background(), "BK-3", testUser())
	require.NoError(t, err)

	impl.mu.Lock()
	_, staleHeld := impl.sessions[stale.OrderID]
	_, freshHeld := impl.sessions[fresh.OrderID]
	impl.mu.Unlock()
	assert.False(t, staleHeld)
	assert.True(t, freshHeld)
}

func TestStatusFromStoredOrder(t *testing.T) {
	db := newTestDB(t)
	rz := &fakeRazorpay{sigValid: true}

	seedBooking(t, db, "BK-1", 500)
	first := newPaymentService(t, db, rz)
	order, err := first.CreateBookingOrder(context.Background(), "BK-1", testUser())
	require.NoError(t, err)

	second := newPaymentService(t, db, rz)
	status, err := second.Status(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "pending", status.Status)

	_, err = second.Status(context.Background(), "order_missing")
	assert.Error(t, err)
}
