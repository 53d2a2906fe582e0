package checkout

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoPaymentMethod is surfaced when every provider has been disabled for
// the session; it is one high-severity state, not two small errors.
var ErrNoPaymentMethod = fmt.Errorf("no payment method is currently available")

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = fmt.Errorf("checkout session not found")

// PaymentStore persists payment records around the orchestration flow.
type PaymentStore interface {
	CreatePending(sessionID, userID, planID string, provider ProviderID, providerRef string, amountCents int64, currency string) error
	MarkCompleted(providerRef, transactionID string) error
	MarkFailed(providerRef, reason string) error
}

// SubscriptionActivator turns a settled payment into an active subscription
// and returns the subscription id.
type SubscriptionActivator interface {
	Activate(ctx context.Context, userID, planID, transactionID string) (string, error)
}

// Session is one live checkout: created at plan selection, disposed at a
// terminal outcome or when the storefront abandons it. Its context is the
// cancellation token threaded through every asynchronous continuation.
type Session struct {
	ID      string
	tracker *Tracker
	guard   *DiscountGuard

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   CheckoutContext
	poller  *Poller
	outcome *Outcome
}

// Snapshot returns a copy of the session's checkout context.
func (s *Session) Snapshot() CheckoutContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Outcome returns the terminal outcome, or nil while the session is live.
func (s *Session) Outcome() *Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return nil
	}
	o := *s.outcome
	return &o
}

// Tracker exposes the session's attempt state machine.
func (s *Session) Tracker() *Tracker { return s.tracker }

// StartResult is what starting a payment hands back to the storefront:
// either a provider intent to act on (approval URL or dialog payload) or,
// for the zero-amount path, the already-terminal outcome.
type StartResult struct {
	Intent  *PaymentIntent `json:"intent,omitempty"`
	Outcome *Outcome       `json:"outcome,omitempty"`
}

// Config holds the orchestrator knobs and destinations.
type Config struct {
	MaxRetryAttempts int
	MaxPolls         int
	PollInterval     time.Duration
	// PublicBaseURL is where the redirect provider sends the user back.
	PublicBaseURL string
}

// Orchestrator wires the loader, attempt trackers, continuity store,
// discount guards and verification pollers into the two provider flows.
type Orchestrator struct {
	loader     *Loader
	continuity *ContinuityStore
	validator  DiscountValidator
	redeemer   DiscountRedeemer
	payments   PaymentStore
	activator  SubscriptionActivator
	nav        Navigator
	cfg        Config

	// OnTick, when set, observes every verification poll (for status
	// streaming); assigned once at wiring time.
	OnTick func(sessionID string, pollCount int, status string)

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewOrchestrator(loader *Loader, continuity *ContinuityStore, validator DiscountValidator,
	redeemer DiscountRedeemer, payments PaymentStore, activator SubscriptionActivator, nav Navigator, cfg Config) *Orchestrator {
	if cfg.MaxRetryAttempts <= 0 {
		cfg.MaxRetryAttempts = DefaultMaxRetryAttempts
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = DefaultMaxPolls
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Orchestrator{
		loader:     loader,
		continuity: continuity,
		validator:  validator,
		redeemer:   redeemer,
		payments:   payments,
		activator:  activator,
		nav:        nav,
		cfg:        cfg,
		sessions:   make(map[string]*Session),
	}
}

// Begin opens a checkout session for a plan. The generated session id is
// the continuity key, so checkouts in other tabs cannot trample each other.
func (o *Orchestrator) Begin(userID, planID string, amountCents int64, currency string) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:      uuid.NewString(),
		tracker: NewTracker(o.cfg.MaxRetryAttempts),
		guard:   NewDiscountGuard(o.validator),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.state = CheckoutContext{
		SessionID:   s.ID,
		PlanID:      planID,
		UserID:      userID,
		AmountCents: amountCents,
		Currency:    currency,
		Timestamp:   time.Now(),
	}
	o.mu.Lock()
	o.sessions[s.ID] = s
	o.mu.Unlock()
	return s
}

// Session returns the live session, or nil.
func (o *Orchestrator) Session(id string) *Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessions[id]
}

// ApplyDiscount runs the code through the session's one-shot gate and
// returns the accepted discount with the resulting final amount.
func (o *Orchestrator) ApplyDiscount(ctx context.Context, sessionID, code string) (*AppliedDiscount, int64, error) {
	s := o.Session(sessionID)
	if s == nil {
		return nil, 0, ErrSessionNotFound
	}
	snap := s.Snapshot()
	discount, err := s.guard.Apply(ctx, code, snap.PlanID, snap.UserID)
	if err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	s.state.AppliedDiscount = discount
	final := discount.FinalAmountCents(s.state.AmountCents)
	s.mu.Unlock()
	return discount, final, nil
}

// RemoveDiscount reopens the session's discount gate.
func (o *Orchestrator) RemoveDiscount(sessionID string) error {
	s := o.Session(sessionID)
	if s == nil {
		return ErrSessionNotFound
	}
	s.guard.Remove()
	s.mu.Lock()
	s.state.AppliedDiscount = nil
	s.mu.Unlock()
	return nil
}

// StartPayment runs the provider flow for the session. The redirect
// provider yields an approval URL; the dialog provider yields the dialog
// payload; a discounted-to-zero amount settles immediately through direct
// activation without touching any provider.
func (o *Orchestrator) StartPayment(ctx context.Context, sessionID string, provider ProviderID) (*StartResult, error) {
	s := o.Session(sessionID)
	if s == nil {
		return nil, ErrSessionNotFound
	}
	if s.tracker.AllUnavailable() {
		return nil, ErrNoPaymentMethod
	}
	if !provider.Valid() {
		return nil, fmt.Errorf("unknown payment provider %q", provider)
	}

	snap := s.Snapshot()
	final := snap.AppliedDiscount.FinalAmountCents(snap.AmountCents)
	if final == 0 {
		return o.activateDirectly(ctx, s, snap)
	}

	if err := s.tracker.Start(provider); err != nil {
		return nil, err
	}

	// Persist before anything that can navigate the user away: once the
	// redirect provider owns the tab, this backup is all that is left.
	s.mu.Lock()
	s.state.Timestamp = time.Now()
	backup := s.state
	s.mu.Unlock()
	if !o.continuity.Backup(&backup) {
		log.Printf("[Checkout] session %s continuity backup failed; proceeding degraded", s.ID)
	}

	gw, err := o.loader.Load(ctx, provider)
	if err != nil {
		perr := Classify(err, provider)
		s.tracker.Fail(provider, perr)
		return nil, perr
	}

	intent, err := gw.CreatePayment(ctx, IntentRequest{
		SessionID:   s.ID,
		PlanID:      snap.PlanID,
		UserID:      snap.UserID,
		AmountCents: final,
		Currency:    snap.Currency,
		Description: "JojoPrompts subscription " + snap.PlanID,
		ReturnURL:   o.returnURL(s.ID, true),
		CancelURL:   o.returnURL(s.ID, false),
	})
	if err != nil {
		perr := Classify(err, provider)
		s.tracker.Fail(provider, perr)
		return nil, perr
	}

	s.mu.Lock()
	s.state.OrderID = intent.OrderID
	if provider == ProviderTap {
		s.state.PaymentID = intent.OrderID
	}
	backup = s.state
	s.mu.Unlock()
	// Re-backup so the return trip carries the provider correlation id.
	o.continuity.Backup(&backup)

	if o.payments != nil {
		if err := o.payments.CreatePending(s.ID, snap.UserID, snap.PlanID, provider, intent.OrderID, final, snap.Currency); err != nil {
			log.Printf("[Checkout] session %s payment record failed: %v", s.ID, err)
		}
	}
	return &StartResult{Intent: intent}, nil
}

// activateDirectly is the 100%-discount path: nothing to collect, so the
// subscription is activated immediately and the session ends in success.
func (o *Orchestrator) activateDirectly(ctx context.Context, s *Session, snap CheckoutContext) (*StartResult, error) {
	subID, err := o.activator.Activate(ctx, snap.UserID, snap.PlanID, "discount-"+s.ID)
	if err != nil {
		return nil, fmt.Errorf("direct activation failed: %w", err)
	}
	o.redeemDiscount(ctx, s.ID, snap.AppliedDiscount)
	outcome := Outcome{Status: StatusCompleted, SubscriptionID: subID}
	o.finish(s, ProviderPayPal, outcome)
	log.Printf("[Checkout] session %s settled by full discount, subscription %s", s.ID, subID)
	return &StartResult{Outcome: &outcome}, nil
}

// HandleReturn is the redirect provider's re-entry point. The in-memory
// session may be gone (the round trip can land on a fresh process); the
// poller recovers what it needs from the continuity store.
func (o *Orchestrator) HandleReturn(sessionID, orderID string, success bool) {
	s := o.Session(sessionID)
	params := PollParams{Success: success}
	params.SessionID = sessionID
	params.OrderID = orderID
	ctx := context.Background()
	if s != nil {
		snap := s.Snapshot()
		params.PlanID = snap.PlanID
		params.UserID = snap.UserID
		if params.OrderID == "" {
			params.OrderID = snap.OrderID
		}
		ctx = s.ctx
	}
	o.startPoll(ctx, s, ProviderPayPal, params)
}

// ConfirmDialog completes the dialog flow: the storefront closed the
// provider dialog and reports the charge to verify.
func (o *Orchestrator) ConfirmDialog(sessionID, chargeID string) error {
	s := o.Session(sessionID)
	if s == nil {
		return ErrSessionNotFound
	}
	snap := s.Snapshot()
	params := PollParams{Success: true}
	params.SessionID = sessionID
	params.PaymentID = chargeID
	if params.PaymentID == "" {
		params.PaymentID = snap.PaymentID
	}
	params.PlanID = snap.PlanID
	params.UserID = snap.UserID
	if params.PaymentID == "" {
		return fmt.Errorf("charge id is required")
	}
	s.mu.Lock()
	s.state.PaymentID = params.PaymentID
	s.mu.Unlock()
	o.startPoll(s.ctx, s, ProviderTap, params)
	return nil
}

// RetryProvider re-enables a failed provider within the retry budget.
func (o *Orchestrator) RetryProvider(sessionID string, provider ProviderID) (bool, error) {
	s := o.Session(sessionID)
	if s == nil {
		return false, ErrSessionNotFound
	}
	ok := s.tracker.Retry(provider)
	if ok {
		s.mu.Lock()
		s.outcome = nil
		s.mu.Unlock()
	}
	return ok, nil
}

// Dispose tears the session down: the context is cancelled so every
// pending continuation (handshake wait, poll tick, verify call) stops, and
// any active poller timer is cleared.
func (o *Orchestrator) Dispose(sessionID string) {
	o.mu.Lock()
	s := o.sessions[sessionID]
	delete(o.sessions, sessionID)
	o.mu.Unlock()
	if s == nil {
		return
	}
	s.mu.Lock()
	poller := s.poller
	s.mu.Unlock()
	if poller != nil {
		poller.Stop()
	}
	s.cancel()
}

func (o *Orchestrator) startPoll(ctx context.Context, s *Session, provider ProviderID, params PollParams) {
	verify := o.verifyAndActivate(provider)
	poller := NewPoller(verify, o.continuity, &sessionNavigator{orch: o, provider: provider}, o.cfg.MaxPolls, o.cfg.PollInterval)
	poller.OnTick = o.OnTick
	if s != nil {
		s.mu.Lock()
		if s.poller != nil {
			s.poller.Stop()
		}
		s.poller = poller
		s.mu.Unlock()
	}
	poller.Start(ctx, params)
}

// verifyAndActivate wraps the gateway verification so a terminal success
// also activates the subscription and settles the payment record before the
// poller navigates. Activation is idempotent on the provider reference.
func (o *Orchestrator) verifyAndActivate(provider ProviderID) VerifyFunc {
	return func(ctx context.Context, params VerifyParams) (*VerifyResult, error) {
		gw, err := o.loader.Load(ctx, provider)
		if err != nil {
			return nil, err
		}
		res, err := gw.VerifyPayment(ctx, params)
		if err != nil {
			return nil, err
		}
		ref := params.OrderID
		if ref == "" {
			ref = params.PaymentID
		}
		if IsTerminalSuccess(res.Status) && res.SubscriptionID == "" {
			subID, aerr := o.activator.Activate(ctx, params.UserID, params.PlanID, res.TransactionID)
			if aerr != nil {
				// The money settled but activation lagged; report an
				// intermediate status so the next tick retries activation.
				log.Printf("[Checkout] session %s activation failed: %v", params.SessionID, aerr)
				return &VerifyResult{Status: "approved"}, nil
			}
			res.SubscriptionID = subID
			// The session's discount rides in the continuity backup, which
			// is still present here: the poller clears it only after this
			// verification returns terminal.
			if restored := o.continuity.Restore(params.SessionID); restored != nil {
				o.redeemDiscount(ctx, params.SessionID, restored.AppliedDiscount)
			}
			if o.payments != nil && ref != "" {
				if perr := o.payments.MarkCompleted(ref, res.TransactionID); perr != nil {
					log.Printf("[Checkout] session %s payment settle record failed: %v", params.SessionID, perr)
				}
			}
		}
		if IsTerminalFailure(res.Status) && o.payments != nil && ref != "" {
			if perr := o.payments.MarkFailed(ref, res.Error); perr != nil {
				log.Printf("[Checkout] session %s payment fail record failed: %v", params.SessionID, perr)
			}
		}
		return res, nil
	}
}

// redeemDiscount counts one redemption against the applied code. Failures
// are logged, not surfaced: the payment already settled.
func (o *Orchestrator) redeemDiscount(ctx context.Context, sessionID string, d *AppliedDiscount) {
	if o.redeemer == nil || d == nil {
		return
	}
	if err := o.redeemer.IncrementUsage(ctx, d.ID); err != nil {
		log.Printf("[Checkout] session %s discount %s usage record failed: %v", sessionID, d.ID, err)
	}
}

// finish records the terminal outcome on the session and notifies the
// navigator exactly once.
func (o *Orchestrator) finish(s *Session, provider ProviderID, outcome Outcome) {
	sessionID := ""
	if s != nil {
		sessionID = s.ID
		s.mu.Lock()
		already := s.outcome != nil
		if !already {
			s.outcome = &outcome
		}
		s.mu.Unlock()
		if already {
			return
		}
		if outcome.Status == StatusCompleted {
			s.tracker.Succeed(provider)
		}
	}
	o.continuity.Clear(sessionID)
	if outcome.Status == StatusCompleted {
		o.nav.PaymentSucceeded(sessionID, outcome)
	} else {
		o.nav.PaymentFailed(sessionID, outcome)
	}
}

// sessionNavigator sits between the poller and the external navigator so
// terminal outcomes also update the session's state machine.
type sessionNavigator struct {
	orch     *Orchestrator
	provider ProviderID
}

func (n *sessionNavigator) PaymentSucceeded(sessionID string, outcome Outcome) {
	s := n.orch.Session(sessionID)
	if s != nil {
		s.mu.Lock()
		already := s.outcome != nil
		if !already {
			s.outcome = &outcome
		}
		s.mu.Unlock()
		if already {
			return
		}
		s.tracker.Succeed(n.provider)
	}
	n.orch.nav.PaymentSucceeded(sessionID, outcome)
}

func (n *sessionNavigator) PaymentFailed(sessionID string, outcome Outcome) {
	s := n.orch.Session(sessionID)
	if s != nil {
		s.mu.Lock()
		s.outcome = &outcome
		s.mu.Unlock()
		code := ErrCodeDeclined
		retryable := false
		if outcome.Status == StatusTimeout {
			code = ErrCodeTimeout
			retryable = true
		}
		// The attempt is spent either way; Fail also clears the
		// processing flag so a manual retry is possible.
		s.tracker.Fail(n.provider, &PaymentError{
			Code:      code,
			Provider:  n.provider,
			Message:   outcome.Reason,
			Retryable: retryable,
		})
	}
	n.orch.nav.PaymentFailed(sessionID, outcome)
}

func (o *Orchestrator) returnURL(sessionID string, success bool) string {
	path := "/payment/return"
	if !success {
		path = "/payment/cancel"
	}
	return o.cfg.PublicBaseURL + path + "?session_id=" + url.QueryEscape(sessionID)
}
