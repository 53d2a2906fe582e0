package checkout

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// ContextStorage is the durable key/value layer behind the continuity
// store. The database-backed implementation lives in internal/repository;
// MemoryStorage serves tests and single-process deployments.
type ContextStorage interface {
	Put(sessionID string, payload []byte) error
	Get(sessionID string) ([]byte, error) // (nil, nil) when absent
	Delete(sessionID string) error
}

// ContinuityStore persists the in-flight CheckoutContext across the
// redirect provider's round trip. The browser leaves the storefront
// entirely, so when the user lands back on /payment/return the only state
// left is what was backed up here. Keyed by session id: concurrent tabs
// get independent sessions, last write wins within one session.
type ContinuityStore struct {
	storage ContextStorage
}

func NewContinuityStore(storage ContextStorage) *ContinuityStore {
	return &ContinuityStore{storage: storage}
}

// Backup persists the context, overwriting any previous backup for the same
// session. It returns false instead of an error on failure: the checkout
// proceeds degraded (the return trip will not be able to recover state),
// which beats blocking the payment outright.
func (s *ContinuityStore) Backup(ctx *CheckoutContext) bool {
	if ctx == nil || ctx.SessionID == "" {
		return false
	}
	if ctx.Timestamp.IsZero() {
		ctx.Timestamp = time.Now()
	}
	payload, err := json.Marshal(ctx)
	if err != nil {
		log.Printf("[Continuity] backup marshal failed: %v", err)
		return false
	}
	if err := s.storage.Put(ctx.SessionID, payload); err != nil {
		log.Printf("[Continuity] backup write failed: %v", err)
		return false
	}
	return true
}

// Restore returns the backed-up context for the session, or nil when there
// is none or the stored payload is corrupt. It never returns an error: a
// missing context and an unreadable one lead the caller down the same
// degraded path.
func (s *ContinuityStore) Restore(sessionID string) *CheckoutContext {
	if sessionID == "" {
		return nil
	}
	payload, err := s.storage.Get(sessionID)
	if err != nil {
		log.Printf("[Continuity] restore read failed: %v", err)
		return nil
	}
	if payload == nil {
		return nil
	}
	var ctx CheckoutContext
	if err := json.Unmarshal(payload, &ctx); err != nil {
		log.Printf("[Continuity] restore unmarshal failed: %v", err)
		return nil
	}
	// Structural sanity: a context without its identifying fields is as
	// useless as no context at all.
	if ctx.SessionID == "" || ctx.PlanID == "" || ctx.UserID == "" {
		return nil
	}
	return &ctx
}

// Clear removes the session's backup unconditionally. Called after any
// terminal outcome so a stale context cannot leak into a later checkout.
func (s *ContinuityStore) Clear(sessionID string) {
	if sessionID == "" {
		return
	}
	if err := s.storage.Delete(sessionID); err != nil {
		log.Printf("[Continuity] clear failed: %v", err)
	}
}

// MemoryStorage is an in-memory ContextStorage.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (m *MemoryStorage) Put(sessionID string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(payload))
	copy(buf, payload)
	m.data[sessionID] = buf
	return nil
}

func (m *MemoryStorage) Get(sessionID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.data[sessionID]
	if !ok {
		return nil, nil
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	return buf, nil
}

func (m *MemoryStorage) Delete(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}
