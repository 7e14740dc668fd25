package dto

// The dashboards have two generations of checkout callers with different
// field casing per endpoint. The casing here is part of the contract with
// the deployed frontend and must not be normalized.

type AppliedCoupon struct {
	CouponID       string `json:"couponId"`
	Code           string `json:"code"`
	DiscountAmount int64  `json:"discountAmount"`
	DiscountType   string `json:"discountType"`
	DiscountValue  int64  `json:"discountValue"`
}

// CreateOrderRequest is the button-flow order creation body. Amount is in
// minor units (paise).
type CreateOrderRequest struct {
	Amount      int64             `json:"amount"`
	PaymentType string            `json:"paymentType"`
	ReferenceID string            `json:"referenceId"`
	Metadata    map[string]string `json:"metadata"`
	Coupon      *AppliedCoupon    `json:"coupon,omitempty"`
}

type CreateOrderData struct {
	OrderID   string `json:"orderId"`
	Key       string `json:"key"`
	PaymentID string `json:"paymentId,omitempty"`
}

type CreateOrderResponse struct {
	Success bool            `json:"success"`
	Data    CreateOrderData `json:"data"`
}

// BookingOrderRequest is the modal-flow order creation body.
type BookingOrderRequest struct {
	BookingID string `json:"bookingId"`
}

type OrderUser struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

type BookingOrderResponse struct {
	OrderID  string    `json:"orderId"`
	Key      string    `json:"key"`
	Amount   int64     `json:"amount"` // minor units, converted from the booking's rupee amount
	Currency string    `json:"currency"`
	User     OrderUser `json:"user"`
}

// VerifyRequest accepts both the legacy snake_case spelling and the newer
// camelCase one; the two frontend call sites never agreed. Normalize()
// coalesces before use.
type VerifyRequest struct {
	RazorpayOrderID        string `json:"razorpayOrderId"`
	RazorpayOrderIDSnake   string `json:"razorpay_order_id"`
	RazorpayPaymentID      string `json:"razorpayPaymentId"`
	RazorpayPaymentIDSnake string `json:"razorpay_payment_id"`
	RazorpaySignature      string `json:"razorpaySignature"`
	RazorpaySignatureSnake string `json:"razorpay_signature"`

	BookingID string `json:"bookingId"`
	PaymentID string `json:"paymentId"`
}

func (r *VerifyRequest) Normalize() {
	if r.RazorpayOrderID == "" {
		r.RazorpayOrderID = r.RazorpayOrderIDSnake
	}
	if r.RazorpayPaymentID == "" {
		r.RazorpayPaymentID = r.RazorpayPaymentIDSnake
	}
	if r.RazorpaySignature == "" {
		r.RazorpaySignature = r.RazorpaySignatureSnake
	}
}

// ReferenceID returns whichever reference the caller supplied.
func (r *VerifyRequest) ReferenceID() string {
	if r.BookingID != "" {
		return r.BookingID
	}
	return r.PaymentID
}

type VerifyPayment struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

type VerifyResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Payment *VerifyPayment `json:"payment,omitempty"`
}

type FailureReport struct {
	OrderID          string `json:"orderId"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
}

type PaymentStatusResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"` // pending, success, failed, cancelled
}

type CouponValidateRequest struct {
	Code     string `json:"code"`
	EventID  string `json:"eventId"`
	Subtotal int64  `json:"subtotal"` // major units (rupees)
}

type CouponData struct {
	CouponID       string `json:"couponId"`
	Code           string `json:"code"`
	Description    string `json:"description"`
	DiscountAmount int64  `json:"discountAmount"`
	DiscountType   string `json:"discountType"`
	DiscountValue  int64  `json:"discountValue"`
}

type CouponValidateResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    *CouponData `json:"data,omitempty"`
}

type Plan struct {
	PlanID         string `json:"planId"`
	Name           string `json:"name"`
	MonthlyFee     int64  `json:"monthlyFee"` // minor units
	EventsPerMonth int    `json:"eventsPerMonth"`
	Description    string `json:"description"`
}

type EventRequestCreate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PlanName    string `json:"planName"`
	// PaidPlanName is set by the frontend right after a verified plan
	// payment. The claim is honored only when the organizer's active
	// subscription backs it.
	PaidPlanName string `json:"paidPlanName,omitempty"`
}

type EventRequestResponse struct {
	Success         bool   `json:"success"`
	RequestID       string `json:"requestId,omitempty"`
	Message         string `json:"message,omitempty"`
	PaymentRequired bool   `json:"paymentRequired,omitempty"`
	// Set when PaymentRequired: the order for the plan upgrade checkout.
	Order *CreateOrderData `json:"order,omitempty"`
	// Minor units of the upgrade fee, echoed for the widget.
	Amount int64 `json:"amount,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
