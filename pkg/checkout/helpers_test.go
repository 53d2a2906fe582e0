package checkout_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"jojoprompts/pkg/checkout"
)

type navEvent struct {
	sessionID string
	outcome   checkout.Outcome
}

// captureNav records navigations so tests can wait on terminal outcomes.
type captureNav struct {
	succeeded chan navEvent
	failed    chan navEvent
}

func newCaptureNav() *captureNav {
	return &captureNav{
		succeeded: make(chan navEvent, 8),
		failed:    make(chan navEvent, 8),
	}
}

func (n *captureNav) PaymentSucceeded(sessionID string, outcome checkout.Outcome) {
	n.succeeded <- navEvent{sessionID: sessionID, outcome: outcome}
}

func (n *captureNav) PaymentFailed(sessionID string, outcome checkout.Outcome) {
	n.failed <- navEvent{sessionID: sessionID, outcome: outcome}
}

func waitEvent(t *testing.T, ch chan navEvent) navEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for navigation")
		return navEvent{}
	}
}

func requireNoEvent(t *testing.T, ch chan navEvent) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected navigation: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

// fakeGateway is a scriptable checkout.Gateway.
type fakeGateway struct {
	name      checkout.ProviderID
	initDelay time.Duration

	mu          sync.Mutex
	initErr     error
	initCalls   int
	createCalls int
	verifyCalls int
	createFn    func(ctx context.Context, req checkout.IntentRequest) (*checkout.PaymentIntent, error)
	verifyFn    func(ctx context.Context, params checkout.VerifyParams) (*checkout.VerifyResult, error)
}

func (g *fakeGateway) Name() checkout.ProviderID { return g.name }

func (g *fakeGateway) Init(ctx context.Context) error {
	g.mu.Lock()
	g.initCalls++
	err := g.initErr
	g.mu.Unlock()
	if g.initDelay > 0 {
		select {
		case <-time.After(g.initDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (g *fakeGateway) CreatePayment(ctx context.Context, req checkout.IntentRequest) (*checkout.PaymentIntent, error) {
	g.mu.Lock()
	g.createCalls++
	fn := g.createFn
	g.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return &checkout.PaymentIntent{
		Provider:    g.name,
		OrderID:     "order-1",
		ApprovalURL: "https://provider.test/approve/order-1",
	}, nil
}

func (g *fakeGateway) VerifyPayment(ctx context.Context, params checkout.VerifyParams) (*checkout.VerifyResult, error) {
	g.mu.Lock()
	g.verifyCalls++
	fn := g.verifyFn
	g.mu.Unlock()
	if fn != nil {
		return fn(ctx, params)
	}
	return &checkout.VerifyResult{Status: "pending"}, nil
}

func (g *fakeGateway) counts() (inits, creates, verifies int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.initCalls, g.createCalls, g.verifyCalls
}

// fakeValidator scripts discount validation and records redemptions.
type fakeValidator struct {
	mu       sync.Mutex
	received []string
	redeemed []string
	result   *checkout.AppliedDiscount
	err      error
}

func (v *fakeValidator) ValidateDiscountCode(ctx context.Context, code, planID, userID string) (*checkout.AppliedDiscount, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.received = append(v.received, code)
	if v.err != nil {
		return nil, v.err
	}
	if v.result != nil {
		return v.result, nil
	}
	return &checkout.AppliedDiscount{ID: "d-" + code, Code: code, Type: "percentage", Value: 10}, nil
}

func (v *fakeValidator) IncrementUsage(ctx context.Context, discountID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.redeemed = append(v.redeemed, discountID)
	return nil
}

func (v *fakeValidator) redeemedIDs() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.redeemed...)
}

// fakeActivator records subscription activations.
type fakeActivator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (a *fakeActivator) Activate(ctx context.Context, userID, planID, transactionID string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	return fmt.Sprintf("sub-%d", a.calls), nil
}

func (a *fakeActivator) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// fakePayments records payment store calls.
type fakePayments struct {
	mu        sync.Mutex
	pending   []string
	completed []string
	failed    []string
}

func (p *fakePayments) CreatePending(sessionID, userID, planID string, provider checkout.ProviderID, providerRef string, amountCents int64, currency string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, providerRef)
	return nil
}

func (p *fakePayments) MarkCompleted(providerRef, transactionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, providerRef)
	return nil
}

func (p *fakePayments) MarkFailed(providerRef, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, providerRef)
	return nil
}
