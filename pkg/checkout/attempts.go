package checkout

import (
	"fmt"
	"sync"
)

// DefaultMaxRetryAttempts is how many failed attempts a provider gets
// before it is disabled for the rest of the session.
const DefaultMaxRetryAttempts = 3

// AttemptState is the per-provider view of the current checkout session.
type AttemptState struct {
	Processing bool   `json:"processing"`
	Error      string `json:"error,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
	RetryCount int    `json:"retry_count"`
	Available  bool   `json:"available"`

	// terminal marks a disable no retry can lift: configuration-class
	// failures and administrative disables hold for the whole session.
	terminal bool
}

// Tracker holds per-provider attempt state for one checkout session and is
// the only place those fields are mutated. It never performs network calls;
// callers classify failures and feed them in through Fail.
type Tracker struct {
	mu         sync.Mutex
	maxRetries int
	states     map[ProviderID]*AttemptState
}

func NewTracker(maxRetries int) *Tracker {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetryAttempts
	}
	t := &Tracker{
		maxRetries: maxRetries,
		states:     make(map[ProviderID]*AttemptState, len(Providers)),
	}
	for _, p := range Providers {
		t.states[p] = &AttemptState{Available: true}
	}
	return t
}

func (t *Tracker) state(p ProviderID) *AttemptState {
	if s, ok := t.states[p]; ok {
		return s
	}
	s := &AttemptState{Available: true}
	t.states[p] = s
	return s
}

// Start marks the provider as processing and clears its previous error.
// It fails if the provider is already processing or has been disabled.
func (t *Tracker) Start(p ProviderID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state(p)
	if s.Processing {
		return fmt.Errorf("%s payment already in progress", p.Label())
	}
	if !s.Available {
		return fmt.Errorf("%s is not available", p.Label())
	}
	s.Processing = true
	s.Error = ""
	s.ErrorCode = ""
	return nil
}

// Succeed records a successful payment on provider. A success ends the
// session's error history: every provider's error is cleared and every
// retry count resets to zero.
func (t *Tracker) Succeed(p ProviderID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.states {
		s.Error = ""
		s.ErrorCode = ""
		s.RetryCount = 0
	}
	t.state(p).Processing = false
}

// Fail records a classified failure on provider. The retry count goes up,
// and the provider is disabled when the error is critical or the retry
// budget is spent. Other providers are untouched.
func (t *Tracker) Fail(p ProviderID, perr *PaymentError) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state(p)
	s.Processing = false
	s.RetryCount++
	s.Error = perr.Message
	s.ErrorCode = perr.Code
	if perr.Critical {
		s.Available = false
		s.terminal = true
	}
	if s.RetryCount >= t.maxRetries {
		s.Available = false
	}
}

// MarkUnavailable disables a provider administratively, independent of the
// retry budget (e.g. the backend reports it misconfigured).
func (t *Tracker) MarkUnavailable(p ProviderID, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state(p)
	s.Processing = false
	s.Available = false
	s.terminal = true
	if reason != "" {
		s.Error = reason
	}
}

// Retry re-enables a failed provider for another attempt. It is a no-op
// once the retry budget is exhausted or the provider was disabled by a
// critical failure.
func (t *Tracker) Retry(p ProviderID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state(p)
	if s.terminal || s.RetryCount >= t.maxRetries {
		return false
	}
	s.Error = ""
	s.ErrorCode = ""
	s.Available = true
	return true
}

// State returns a copy of the provider's attempt state.
func (t *Tracker) State(p ProviderID) AttemptState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.state(p)
}

// States returns a copy of every provider's attempt state.
func (t *Tracker) States() map[ProviderID]AttemptState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[ProviderID]AttemptState, len(t.states))
	for p, s := range t.states {
		out[p] = *s
	}
	return out
}

// AllUnavailable reports whether every provider has been disabled. This is
// the "no payment method currently available" condition, surfaced as one
// high-severity state instead of two small errors.
func (t *Tracker) AllUnavailable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.states {
		if s.Available {
			return false
		}
	}
	return len(t.states) > 0
}

// HasAnyError reports whether any provider currently shows an error.
func (t *Tracker) HasAnyError() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.states {
		if s.Error != "" {
			return true
		}
	}
	return false
}
