// Package store provides SessionStore backends: in-memory (default), file
// backed, and Redis backed. All backends serialize mutation per session and
// expire idle sessions after a sliding TTL.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/guc1/domain-agent/internal/core"
)

// DefaultTTL is the sliding idle expiry applied when none is configured.
const DefaultTTL = time.Hour

const sweepInterval = time.Minute

// Memory is the in-memory session store. Each session has its own mutex, so
// mutations of different sessions run fully in parallel; the map-level lock
// only guards entry lookup and insertion.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	mu      sync.Mutex
	sess    *core.Session
	expires time.Time
}

// NewMemory creates a memory store with the given sliding TTL; ttl <= 0 uses
// DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// StartSweeper runs a background goroutine that drops expired sessions until
// ctx is cancelled.
func (m *Memory) StartSweeper(ctx context.Context, log core.Logger) {
	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := m.sweep(); n > 0 {
					log.Info("expired sessions removed", "count", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// sweep removes expired entries. The expiry check takes each entry's lock, so
// a mutation in flight blocks the sweep; when it commits it slides expires and
// the entry survives.
func (m *Memory) sweep() int {
	now := m.now()
	m.mu.RLock()
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	removed := 0
	for _, id := range ids {
		m.mu.RLock()
		e, ok := m.entries[id]
		m.mu.RUnlock()
		if !ok {
			continue
		}
		e.mu.Lock()
		if now.After(e.expires) {
			m.mu.Lock()
			delete(m.entries, id)
			m.mu.Unlock()
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// Put inserts a freshly created session.
func (m *Memory) Put(_ context.Context, sess *core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[sess.ID] = &memoryEntry{
		sess:    sess.Clone(),
		expires: m.now().Add(m.ttl),
	}
	return nil
}

func (m *Memory) lookup(id string) (*memoryEntry, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return nil, core.NewNotFound(id)
	}
	return e, nil
}

// Get returns a deep-copy snapshot of the session.
func (m *Memory) Get(_ context.Context, id string) (*core.Session, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if m.now().After(e.expires) {
		return nil, core.NewNotFound(id)
	}
	return e.sess.Clone(), nil
}

// Mutate applies fn under the session's lock. fn runs against a working copy;
// nothing is committed when fn fails, so a generate that errors mid-flight
// never partially appends history. The TTL slides on successful mutation.
func (m *Memory) Mutate(_ context.Context, id string, fn func(*core.Session) error) (*core.Session, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if m.now().After(e.expires) {
		return nil, core.NewNotFound(id)
	}

	working := e.sess.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = m.now().UTC()
	e.sess = working
	e.expires = m.now().Add(m.ttl)
	return working.Clone(), nil
}
