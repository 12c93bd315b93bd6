package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eldercare-platform/eldercare/pkg/metrics"
)

type entry struct {
	s       Session
	expires time.Time
}

// MemoryStore is a process-local Store used when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry

	// nextSweep bounds expiry scans to one per ttl.
	nextSweep time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store. A non-positive ttl falls back to one hour.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]entry)}
}

// Issue stores s under a fresh uuid token.
func (m *MemoryStore) Issue(_ context.Context, s Session) (string, error) {
	token := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweepLocked(now)
	m.entries[token] = entry{s: s, expires: now.Add(m.ttl)}
	return token, nil
}

// sweepLocked drops expired tokens that were never looked up again.
func (m *MemoryStore) sweepLocked(now time.Time) {
	if now.Before(m.nextSweep) {
		return
	}
	for token, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, token)
		}
	}
	m.nextSweep = now.Add(m.ttl)
}

// Len returns the number of tokens held, expired ones included until the next sweep.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Lookup resolves token, dropping it if expired.
func (m *MemoryStore) Lookup(_ context.Context, token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[token]
	if !ok || !m.now().Before(e.expires) {
		delete(m.entries, token)
		metrics.RecordSessionLookup("miss")
		return Session{}, ErrUnknownToken
	}
	metrics.RecordSessionLookup("hit")
	return e.s, nil
}

// Revoke deletes token.
func (m *MemoryStore) Revoke(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, token)
	return nil
}
