package checkout

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// DefaultInitTimeout bounds a provider handshake.
const DefaultInitTimeout = 30 * time.Second

type loadState struct {
	done   chan struct{} // closed when the handshake finishes, never reopened
	err    error         // written once before done is closed
	loaded bool          // guarded by Loader.mu
}

// Loader owns the lifecycle of every provider gateway. A gateway must
// complete its credential handshake exactly once before use; Loader
// deduplicates concurrent Load calls so the handshake runs at most once at
// a time, caches success, and clears failures so the next call starts fresh.
type Loader struct {
	mu       sync.Mutex
	timeout  time.Duration
	gateways map[ProviderID]Gateway
	states   map[ProviderID]*loadState
}

func NewLoader(timeout time.Duration, gateways ...Gateway) *Loader {
	if timeout <= 0 {
		timeout = DefaultInitTimeout
	}
	l := &Loader{
		timeout:  timeout,
		gateways: make(map[ProviderID]Gateway, len(gateways)),
		states:   make(map[ProviderID]*loadState, len(gateways)),
	}
	for _, gw := range gateways {
		l.gateways[gw.Name()] = gw
	}
	return l
}

// Load returns the ready gateway for provider, performing the handshake if
// needed. Concurrent callers share one in-flight handshake and all observe
// the same outcome. A caller whose own context dies stops waiting, but the
// handshake keeps running for everyone else.
func (l *Loader) Load(ctx context.Context, provider ProviderID) (Gateway, error) {
	l.mu.Lock()
	gw, ok := l.gateways[provider]
	if !ok {
		l.mu.Unlock()
		return nil, configurationError(provider, fmt.Sprintf("no gateway registered for %q", provider))
	}
	st := l.states[provider]
	if st != nil && st.loaded {
		l.mu.Unlock()
		return gw, nil
	}
	if st == nil {
		st = &loadState{done: make(chan struct{})}
		l.states[provider] = st
		go l.runInit(provider, gw, st)
	}
	l.mu.Unlock()

	select {
	case <-st.done:
		if st.err != nil {
			return nil, st.err
		}
		return gw, nil
	case <-ctx.Done():
		return nil, Classify(ctx.Err(), provider)
	}
}

// runInit performs the handshake detached from any caller's context, bounded
// only by the loader timeout, so one impatient caller cannot fail the load
// for everyone sharing it.
func (l *Loader) runInit(provider ProviderID, gw Gateway, st *loadState) {
	ictx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	err := gw.Init(ictx)
	if err != nil {
		st.err = Classify(err, provider)
	}

	l.mu.Lock()
	if cur := l.states[provider]; cur == st {
		if err == nil {
			st.loaded = true
		} else {
			// Failure is not cached: the next Load starts a fresh handshake.
			delete(l.states, provider)
		}
	}
	l.mu.Unlock()
	close(st.done)

	if err != nil {
		log.Printf("[Loader] %s handshake failed: %v", provider.Label(), err)
	} else {
		log.Printf("[Loader] %s ready", provider.Label())
	}
}

// Loaded reports whether the provider finished its handshake successfully.
func (l *Loader) Loaded(provider ProviderID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.states[provider]
	return st != nil && st.loaded
}

// Reset drops any cached or in-flight state for provider so the next Load
// starts over. A handshake already running is abandoned: when it completes
// it will see it no longer owns the slot and leave the fresh state alone.
func (l *Loader) Reset(provider ProviderID) {
	l.mu.Lock()
	delete(l.states, provider)
	l.mu.Unlock()
}
