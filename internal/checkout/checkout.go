// Package checkout encodes the hosted-payment flow the K&M dashboards drive:
// create a gateway order, hand it to the hosted widget, and treat the
// widget's callbacks as untrusted until server-side verification confirms
// them. Fulfillment is only reachable from a VerifiedOutcome.
package checkout

import (
	"context"
	"errors"
	"time"
)

type Kind string

const (
	KindEvent        Kind = "event"
	KindSubscription Kind = "subscription"
)

func (k Kind) Valid() bool {
	return k == KindEvent || k == KindSubscription
}

// Status is the presentation-level projection of a session.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCancelled
}

// Request describes one checkout attempt. Amount is always in minor units
// (paise); callers convert at the boundary. Immutable once handed to a
// session.
type Request struct {
	AmountMinorUnits int64
	Kind             Kind
	ReferenceID      string // booking id or plan id
	Metadata         map[string]string
	Coupon           *AppliedCoupon
	// Prefill carries the authenticated user's contact details for the
	// widget; all fields are optional.
	Prefill Prefill
}

type AppliedCoupon struct {
	CouponID       string
	Code           string
	DiscountAmount int64
	DiscountType   string
	DiscountValue  int64
}

// Order is a server-issued, gateway-scoped record authorizing one charge.
type Order struct {
	OrderID  string
	Key      string // gateway public key for the widget
	Amount   int64  // minor units
	Currency string
	Prefill  Prefill
}

type Prefill struct {
	Name    string
	Email   string
	Contact string
}

// WidgetResponse is the signed payload the widget hands back on success.
// It proves nothing until Verify confirms it.
type WidgetResponse struct {
	OrderID   string
	PaymentID string
	Signature string
}

// WidgetError is the widget's payment.failed payload.
type WidgetError struct {
	Code        string
	Description string
}

// VerifiedOutcome is the only trusted success signal in the flow.
type VerifiedOutcome struct {
	Success   bool
	PaymentID string
	Message   string
	Details   map[string]interface{}
}

// Gateway is the server half of the flow as the session sees it.
type Gateway interface {
	CreateOrder(ctx context.Context, req Request) (*Order, error)
	Verify(ctx context.Context, resp WidgetResponse, referenceID string) (*VerifiedOutcome, error)
	// ReportFailure is best-effort; the session logs its error and moves on.
	ReportFailure(ctx context.Context, orderID string, werr WidgetError) error
}

// Options configure the widget. Zero values fall back to the historical
// defaults rather than disabling the feature.
type Options struct {
	WidgetTimeout time.Duration
	RetryCount    int
	ThemeColor    string
}

const (
	defaultWidgetTimeout = 900 * time.Second
	defaultRetryCount    = 1
)

// WithDefaults fills unset fields with the historical defaults.
func (o Options) WithDefaults() Options {
	if o.WidgetTimeout <= 0 {
		o.WidgetTimeout = defaultWidgetTimeout
	}
	if o.RetryCount <= 0 {
		o.RetryCount = defaultRetryCount
	}
	return o
}

// WidgetOptions is what gets handed to the hosted widget constructor.
type WidgetOptions struct {
	Key            string
	OrderID        string
	Amount         int64 // minor units, exactly as charged
	Currency       string
	Prefill        Prefill
	TimeoutSeconds int
	RetryCount     int
	ThemeColor     string
}

// Callbacks are invoked on terminal transitions. OnSuccess fires only after
// verification resolved success; OnCancel is distinct from OnFailure.
type Callbacks struct {
	OnSuccess func(VerifiedOutcome)
	OnFailure func(message string)
	OnCancel  func()
}

var (
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrInvalidKind        = errors.New("payment type must be event or subscription")
	ErrMissingReference   = errors.New("reference id is required")
	ErrInFlight           = errors.New("a checkout call is already in flight")
	ErrNotAwaitingPayment = errors.New("no payment is awaited for this session")
	ErrAlreadyVerified    = errors.New("widget response already verified")
	ErrGatewayUnavailable = errors.New("payment gateway failed to load")
	ErrNoOrder            = errors.New("no order has been created for this session")
)

// Validate applies the pre-network checks; each failure short-circuits
// without any gateway call.
func (r Request) Validate() error {
	if r.AmountMinorUnits <= 0 {
		return ErrInvalidAmount
	}
	if !r.Kind.Valid() {
		return ErrInvalidKind
	}
	if r.ReferenceID == "" {
		return ErrMissingReference
	}
	return nil
}
