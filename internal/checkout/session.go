package checkout

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type sessionState int

const (
	stateIdle sessionState = iota
	stateCreatingOrder
	stateAwaitingPayment
	stateVerifying
	stateSucceeded
	stateFailed
	stateCancelled
)

// Session drives one checkout attempt through its states:
//
//	idle → creating_order → awaiting_payment → verifying → succeeded
//	                                         ↘ failed / cancelled
//
// At most one order-creation or verification call is in flight per session,
// a widget response is verified at most once, and a dismissed or failed
// session never reuses its order — Start mints a fresh one.
type Session struct {
	mu       sync.Mutex
	state    sessionState
	order    *Order
	req      Request
	verified bool
	release  func()

	gw     Gateway
	loader *Loader
	opts   Options
	cb     Callbacks
	log    *zap.Logger
}

func NewSession(gw Gateway, loader *Loader, opts Options, cb Callbacks, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		gw:     gw,
		loader: loader,
		opts:   opts.WithDefaults(),
		cb:     cb,
		log:    log,
	}
}

// Resume rebuilds a session around an order created earlier (for example by
// another process), ready to accept the widget response.
func Resume(gw Gateway, order *Order, req Request, opts Options, cb Callbacks, log *zap.Logger) *Session {
	s := NewSession(gw, nil, opts, cb, log)
	s.order = order
	s.req = req
	s.state = stateAwaitingPayment
	return s
}

// Start validates the request, ensures the gateway is loaded, and creates
// the order. Validation failures are local and make no network call.
// Calling Start on a finished (or dismissed) session begins a fresh attempt
// with a fresh order.
func (s *Session) Start(ctx context.Context, req Request) (*Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state == stateCreatingOrder || s.state == stateVerifying {
		s.mu.Unlock()
		return nil, ErrInFlight
	}
	s.resetLocked()

	if s.loader != nil {
		release, err := s.loader.Acquire(ctx)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.release = release
	}

	s.state = stateCreatingOrder
	s.req = req
	s.mu.Unlock()

	order, err := s.gw.CreateOrder(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.releaseLocked()
		s.state = stateIdle
		return nil, err
	}

	s.order = order
	s.state = stateAwaitingPayment
	return order, nil
}

// WidgetOptions returns the options the hosted widget is constructed with.
// The amount is the order's amount, untouched.
func (s *Session) WidgetOptions() (*WidgetOptions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.order == nil {
		return nil, ErrNoOrder
	}

	return &WidgetOptions{
		Key:            s.order.Key,
		OrderID:        s.order.OrderID,
		Amount:         s.order.Amount,
		Currency:       s.order.Currency,
		Prefill:        s.order.Prefill,
		TimeoutSeconds: int(s.opts.WidgetTimeout.Seconds()),
		RetryCount:     s.opts.RetryCount,
		ThemeColor:     s.opts.ThemeColor,
	}, nil
}

// HandleSuccess takes the widget's signed response and verifies it with the
// gateway, exactly once. OnSuccess fires only if verification resolves
// success; anything else transitions to failed.
func (s *Session) HandleSuccess(ctx context.Context, resp WidgetResponse) (*VerifiedOutcome, error) {
	s.mu.Lock()
	if s.state != stateAwaitingPayment {
		verified := s.verified
		s.mu.Unlock()
		if verified {
			return nil, ErrAlreadyVerified
		}
		return nil, ErrNotAwaitingPayment
	}
	s.verified = true
	s.state = stateVerifying
	referenceID := s.req.ReferenceID
	s.mu.Unlock()

	outcome, err := s.gw.Verify(ctx, resp, referenceID)

	s.mu.Lock()
	s.releaseLocked()
	if err != nil {
		s.state = stateFailed
		s.mu.Unlock()
		s.fail("payment verification failed")
		return nil, err
	}
	if !outcome.Success {
		s.state = stateFailed
		s.mu.Unlock()
		msg := outcome.Message
		if msg == "" {
			msg = "payment verification failed"
		}
		s.fail(msg)
		return outcome, nil
	}
	s.state = stateSucceeded
	s.mu.Unlock()

	if s.cb.OnSuccess != nil {
		s.cb.OnSuccess(*outcome)
	}
	return outcome, nil
}

// HandleFailure records the widget's payment.failed event. The report to
// the gateway is best-effort: its own failure is logged and never masks the
// payment failure being surfaced.
func (s *Session) HandleFailure(ctx context.Context, werr WidgetError) error {
	s.mu.Lock()
	if s.state != stateAwaitingPayment {
		s.mu.Unlock()
		return ErrNotAwaitingPayment
	}
	s.state = stateFailed
	orderID := ""
	if s.order != nil {
		orderID = s.order.OrderID
	}
	s.releaseLocked()
	s.mu.Unlock()

	if err := s.gw.ReportFailure(ctx, orderID, werr); err != nil {
		s.log.Warn("failure report not delivered",
			zap.String("order_id", orderID),
			zap.Error(err))
	}

	s.fail(werr.Description)
	return nil
}

// HandleDismiss records that the user closed the widget without paying.
// This is a cancellation, not a failure: no verification, no failure
// report, and the order is dropped so a retry mints a fresh one.
func (s *Session) HandleDismiss() error {
	s.mu.Lock()
	if s.state != stateAwaitingPayment {
		s.mu.Unlock()
		return ErrNotAwaitingPayment
	}
	s.state = stateCancelled
	s.order = nil
	s.releaseLocked()
	s.mu.Unlock()

	if s.cb.OnCancel != nil {
		s.cb.OnCancel()
	}
	return nil
}

// Order returns the current order, if one exists.
func (s *Session) Order() *Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order
}

// Status projects the session state for display.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateSucceeded:
		return StatusSuccess
	case stateFailed:
		return StatusFailed
	case stateCancelled:
		return StatusCancelled
	default:
		return StatusPending
	}
}

func (s *Session) fail(message string) {
	if s.cb.OnFailure != nil {
		s.cb.OnFailure(message)
	}
}

func (s *Session) resetLocked() {
	s.releaseLocked()
	s.order = nil
	s.verified = false
	s.state = stateIdle
}

func (s *Session) releaseLocked() {
	if s.release != nil {
		s.release()
		s.release = nil
	}
}
