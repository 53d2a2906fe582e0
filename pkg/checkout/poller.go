package checkout

import (
	"context"
	"log"
	"sync"
	"time"
)

// Poll loop defaults; overridable through NewPoller.
const (
	DefaultMaxPolls     = 30
	DefaultPollInterval = 2 * time.Second
)

// VerifyFunc asks a provider for the current settlement status.
type VerifyFunc func(ctx context.Context, params VerifyParams) (*VerifyResult, error)

// Outcome is the terminal result of a verification run.
type Outcome struct {
	Status         string `json:"status"` // COMPLETED, FAILED, CANCELLED, TIMEOUT
	TransactionID  string `json:"transaction_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// Navigator receives terminal outcomes and routes the user to the success
// or failure destination. The HTTP layer implements it with storefront
// redirects and WebSocket pushes.
type Navigator interface {
	PaymentSucceeded(sessionID string, outcome Outcome)
	PaymentFailed(sessionID string, outcome Outcome)
}

// PollParams start one verification run. Success=false is the provider's
// cancellation flag from the return URL and short-circuits the run.
type PollParams struct {
	VerifyParams
	Success bool
}

// Poller drives one bounded verification run: ask the provider for
// settlement status every interval until a terminal state or the poll
// budget runs out. It owns a single timer and is cancellable both through
// the session context and Stop, so a torn-down session never leaks a tick.
type Poller struct {
	verify     VerifyFunc
	continuity *ContinuityStore
	nav        Navigator
	maxPolls   int
	interval   time.Duration

	// OnTick, when set, observes every completed poll (count, status).
	OnTick func(sessionID string, pollCount int, status string)

	mu      sync.Mutex
	timer   *time.Timer
	stopCh  chan struct{}
	stopped bool
}

func NewPoller(verify VerifyFunc, continuity *ContinuityStore, nav Navigator, maxPolls int, interval time.Duration) *Poller {
	if maxPolls <= 0 {
		maxPolls = DefaultMaxPolls
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		verify:     verify,
		continuity: continuity,
		nav:        nav,
		maxPolls:   maxPolls,
		interval:   interval,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the verification run. It returns immediately; the loop runs
// on its own goroutine until a terminal outcome, the poll budget, Stop, or
// context cancellation ends it.
func (p *Poller) Start(ctx context.Context, params PollParams) {
	if !params.Success {
		// The provider flagged an explicit cancellation; do not call
		// verification at all.
		p.continuity.Clear(params.SessionID)
		p.nav.PaymentFailed(params.SessionID, Outcome{
			Status: StatusCancelled,
			Reason: "Payment was cancelled",
		})
		return
	}

	// The redirect round trip destroys in-memory state; one continuity read
	// fills whatever the return URL could not carry.
	if params.PlanID == "" || params.UserID == "" {
		if restored := p.continuity.Restore(params.SessionID); restored != nil {
			if params.PlanID == "" {
				params.PlanID = restored.PlanID
			}
			if params.UserID == "" {
				params.UserID = restored.UserID
			}
			if params.OrderID == "" {
				params.OrderID = restored.OrderID
			}
			if params.PaymentID == "" {
				params.PaymentID = restored.PaymentID
			}
		}
	}
	if params.PlanID == "" || params.UserID == "" {
		p.nav.PaymentFailed(params.SessionID, Outcome{
			Status: StatusFailed,
			Reason: "Missing payment information",
		})
		return
	}

	go p.run(ctx, params)
}

func (p *Poller) run(ctx context.Context, params PollParams) {
	pollCount := 0
	for {
		if ctx.Err() != nil || p.isStopped() {
			return
		}
		res, err := p.verify(ctx, params.VerifyParams)
		if err != nil {
			// A single failed verification call is a recoverable tick, not
			// a terminal failure; the next tick may succeed.
			log.Printf("[Poller] session %s verify error (poll %d): %v", params.SessionID, pollCount+1, err)
		} else {
			switch {
			case IsTerminalSuccess(res.Status):
				p.continuity.Clear(params.SessionID)
				p.nav.PaymentSucceeded(params.SessionID, Outcome{
					Status:         StatusCompleted,
					TransactionID:  res.TransactionID,
					SubscriptionID: res.SubscriptionID,
				})
				return
			case IsTerminalFailure(res.Status):
				p.continuity.Clear(params.SessionID)
				reason := res.Error
				if reason == "" {
					reason = "Payment was not completed"
				}
				p.nav.PaymentFailed(params.SessionID, Outcome{
					Status: res.Status,
					Reason: reason,
				})
				return
			}
		}

		pollCount++
		if p.OnTick != nil {
			status := ""
			if res != nil {
				status = res.Status
			}
			p.OnTick(params.SessionID, pollCount, status)
		}
		if pollCount >= p.maxPolls {
			// Budget spent without a terminal answer. The backup is kept so
			// a later manual verification can still reconcile the session.
			p.nav.PaymentFailed(params.SessionID, Outcome{
				Status: StatusTimeout,
				Reason: "Payment verification timed out",
			})
			return
		}
		if !p.sleep(ctx) {
			return
		}
	}
}

// sleep waits one interval on the poller's single timer. It returns false
// when the run should end instead of ticking again.
func (p *Poller) sleep(ctx context.Context) bool {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return false
	}
	p.timer = time.NewTimer(p.interval)
	timer := p.timer
	p.mu.Unlock()

	select {
	case <-timer.C:
		return ctx.Err() == nil
	case <-p.stopCh:
		timer.Stop()
		return false
	case <-ctx.Done():
		timer.Stop()
		return false
	}
}

func (p *Poller) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// Stop cancels the run: the pending timer is cleared and no new tick
// begins. A verification call already in flight is allowed to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	close(p.stopCh)
	if p.timer != nil {
		p.timer.Stop()
	}
}
