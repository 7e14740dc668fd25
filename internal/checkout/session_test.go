package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu          sync.Mutex
	createCalls int
	verifyCalls int
	reportCalls int

	createErr     error
	createBlocked chan struct{} // when set, CreateOrder waits for it to close
	verifyOutcome *VerifiedOutcome
	verifyErr     error
	reportErr     error

	lastRequest  Request
	lastResponse WidgetResponse
	lastOrderID  string
	lastWerr     WidgetError
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req Request) (*Order, error) {
	g.mu.Lock()
	g.createCalls++
	n := g.createCalls
	g.lastRequest = req
	blocked := g.createBlocked
	g.mu.Unlock()

	if blocked != nil {
		<-blocked
	}
	if g.createErr != nil {
		return nil, g.createErr
	}

	return &Order{
		OrderID:  fmt.Sprintf("order_%d", n),
		Key:      "rzp_test_x",
		Amount:   req.AmountMinorUnits,
		Currency: "INR",
		Prefill:  req.Prefill,
	}, nil
}

func (g *fakeGateway) Verify(ctx context.Context, resp WidgetResponse, referenceID string) (*VerifiedOutcome, error) {
	g.mu.Lock()
	g.verifyCalls++
	g.lastResponse = resp
	g.mu.Unlock()

	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	if g.verifyOutcome != nil {
		return g.verifyOutcome, nil
	}
	return &VerifiedOutcome{Success: true, PaymentID: resp.PaymentID}, nil
}

func (g *fakeGateway) ReportFailure(ctx context.Context, orderID string, werr WidgetError) error {
	g.mu.Lock()
	g.reportCalls++
	g.lastOrderID = orderID
	g.lastWerr = werr
	g.mu.Unlock()
	return g.reportErr
}

func validRequest() Request {
	return Request{
		AmountMinorUnits: 50000,
		Kind:             KindEvent,
		ReferenceID:      "BK-1",
	}
}

func TestRequestValidation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{
			name: "zero amount",
			req:  Request{AmountMinorUnits: 0, Kind: KindEvent, ReferenceID: "BK-1"},
			want: ErrInvalidAmount,
		},
		{
			name: "negative amount",
			req:  Request{AmountMinorUnits: -500, Kind: KindEvent, ReferenceID: "BK-1"},
			want: ErrInvalidAmount,
		},
		{
			name: "unknown payment type",
			req:  Request{AmountMinorUnits: 500, Kind: Kind("donation"), ReferenceID: "BK-1"},
			want: ErrInvalidKind,
		},
		{
			name: "missing reference",
			req:  Request{AmountMinorUnits: 500, Kind: KindSubscription},
			want: ErrMissingReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{}
			s := NewSession(gw, nil, Options{}, Callbacks{}, nil)

			_, err := s.Start(context.Background(), tt.req)

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, gw.createCalls, "validation failures must not reach the gateway")
		})
	}
}

func TestSuccessFlowVerifiesExactlyOnce(t *testing.T) {
	gw := &fakeGateway{}
	var succeeded []VerifiedOutcome
	s := NewSession(gw, nil, Options{}, Callbacks{
		OnSuccess: func(out VerifiedOutcome) { succeeded = append(succeeded, out) },
	}, nil)

	order, err := s.Start(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, StatusPending, s.Status())
	assert.Empty(t, succeeded, "success must not fire before verification")

	resp := WidgetResponse{OrderID: order.OrderID, PaymentID: "pay_1", Signature: "sig"}
	outcome, err := s.HandleSuccess(context.Background(), resp)
	require.NoError(t, err)
	require.True(t, outcome.Success)

	assert.Equal(t, 1, gw.verifyCalls)
	assert.Equal(t, resp, gw.lastResponse, "all three signed fields reach verification")
	assert.Equal(t, StatusSuccess, s.Status())
	require.Len(t, succeeded, 1)
	assert.Equal(t, "pay_1", succeeded[0].PaymentID)

	// A second widget response for the same session is rejected without a
	// second verification call.
	_, err = s.HandleSuccess(context.Background(), resp)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
	assert.Equal(t, 1, gw.verifyCalls)
}

func TestVerificationFailureSurfacesBackendMessage(t *testing.T) {
	gw := &fakeGateway{verifyOutcome: &VerifiedOutcome{Success: false, Message: "payment signature verification failed"}}
	var failures []string
	s := NewSession(gw, nil, Options{}, Callbacks{
		OnFailure: func(msg string) { failures = append(failures, msg) },
	}, nil)

	order, err := s.Start(context.Background(), validRequest())
	require.NoError(t, err)

	outcome, err := s.HandleSuccess(context.Background(), WidgetResponse{OrderID: order.OrderID, PaymentID: "pay_1", Signature: "bad"})
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, StatusFailed, s.Status())
	assert.Equal(t, []string{"payment signature verification failed"}, failures)
}

func TestWidgetFailureReportIsBestEffort(t *testing.T) {
	tests := []struct {
		name      string
		reportErr error
	}{
		{name: "report delivered"},
		{name: "report rejected", reportErr: errors.New("backend down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{reportErr: tt.reportErr}
			var failures []string
			s := NewSession(gw, nil, Options{}, Callbacks{
				OnFailure: func(msg string) { failures = append(failures, msg) },
			}, nil)

			order, err := s.Start(context.Background(), validRequest())
			require.NoError(t, err)

			werr := WidgetError{Code: "BAD_REQUEST_ERROR", Description: "Payment failed"}
			require.NoError(t, s.HandleFailure(context.Background(), werr))

			assert.Equal(t, 1, gw.reportCalls)
			assert.Equal(t, order.OrderID, gw.lastOrderID)
			assert.Equal(t, werr, gw.lastWerr)
			// The report outcome never masks the user's payment failure.
			assert.Equal(t, []string{"Payment failed"}, failures)
			assert.Equal(t, StatusFailed, s.Status())
			assert.Equal(t, 0, gw.verifyCalls)
		})
	}
}

func TestDismissIsCancellationNotFailure(t *testing.T) {
	gw := &fakeGateway{}
	var cancelled, failed int
	s := NewSession(gw, nil, Options{}, Callbacks{
		OnCancel:  func() { cancelled++ },
		OnFailure: func(string) { failed++ },
	}, nil)

	_, err := s.Start(context.Background(), validRequest())
	require.NoError(t, err)

	require.NoError(t, s.HandleDismiss())

	assert.Equal(t, StatusCancelled, s.Status())
	assert.Equal(t, 1, cancelled)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 0, gw.verifyCalls, "dismiss must never verify")
	assert.Equal(t, 0, gw.reportCalls)
	assert.Nil(t, s.Order())

	// Retrying after dismissal mints a fresh order.
	order, err := s.Start(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, gw.createCalls)
	assert.Equal(t, "order_2", order.OrderID)
}

func TestStartWhileCreateInFlight(t *testing.T) {
	blocked := make(chan struct{})
	gw := &fakeGateway{createBlocked: blocked}
	s := NewSession(gw, nil, Options{}, Callbacks{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.Start(context.Background(), validRequest())
		done <- err
	}()

	// Wait until the first Start reached the gateway.
	require.Eventually(t, func() bool {
		gw.mu.Lock()
		defer gw.mu.Unlock()
		return gw.createCalls == 1
	}, time.Second, time.Millisecond)

	_, err := s.Start(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrInFlight)

	close(blocked)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gw.createCalls)
}

func TestLoaderFailureRefusesCheckout(t *testing.T) {
	loader := NewLoader(func(ctx context.Context) error {
		return errors.New("script unreachable")
	})
	gw := &fakeGateway{}
	s := NewSession(gw, loader, Options{}, Callbacks{}, nil)

	_, err := s.Start(context.Background(), validRequest())

	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Equal(t, 0, gw.createCalls, "no order without a loaded gateway")
}

func TestWidgetOptions(t *testing.T) {
	gw := &fakeGateway{}
	s := NewSession(gw, nil, Options{}, Callbacks{}, nil)

	_, err := s.WidgetOptions()
	assert.ErrorIs(t, err, ErrNoOrder)

	req := validRequest()
	req.Prefill = Prefill{Name: "Asha", Email: "asha@example.com", Contact: "9999999999"}
	order, err := s.Start(context.Background(), req)
	require.NoError(t, err)

	opts, err := s.WidgetOptions()
	require.NoError(t, err)
	assert.Equal(t, order.OrderID, opts.OrderID)
	assert.Equal(t, "rzp_test_x", opts.Key)
	assert.Equal(t, int64(50000), opts.Amount, "widget amount is the order amount, untouched")
	assert.Equal(t, req.Prefill, opts.Prefill)
	// Historical defaults unless configured otherwise.
	assert.Equal(t, 900, opts.TimeoutSeconds)
	assert.Equal(t, 1, opts.RetryCount)
}

func TestWidgetOptionsConfigurable(t *testing.T) {
	gw := &fakeGateway{}
	s := NewSession(gw, nil, Options{WidgetTimeout: 5 * time.Minute, RetryCount: 2, ThemeColor: "#000"}, Callbacks{}, nil)

	_, err := s.Start(context.Background(), validRequest())
	require.NoError(t, err)

	opts, err := s.WidgetOptions()
	require.NoError(t, err)
	assert.Equal(t, 300, opts.TimeoutSeconds)
	assert.Equal(t, 2, opts.RetryCount)
	assert.Equal(t, "#000", opts.ThemeColor)
}

func TestVerifyTransportErrorFailsSession(t *testing.T) {
	gw := &fakeGateway{verifyErr: errors.New("gateway timeout")}
	var failures []string
	s := NewSession(gw, nil, Options{}, Callbacks{
		OnFailure: func(msg string) { failures = append(failures, msg) },
	}, nil)

	order, err := s.Start(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = s.HandleSuccess(context.Background(), WidgetResponse{OrderID: order.OrderID, PaymentID: "pay_1", Signature: "sig"})
	assert.Error(t, err)
	assert.Equal(t, StatusFailed, s.Status())
	assert.Equal(t, []string{"payment verification failed"}, failures)
}
