package store

import "sync"

// keyedMutex serializes work per key. A key's lock entry is reference counted
// and dropped when the last holder releases it, so the map is bounded by
// current concurrency rather than by every session ID ever seen.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// acquire blocks until the key's lock is held.
func (k *keyedMutex) acquire(id string) *keyedLock {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[id]
	if !ok {
		l = &keyedLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return l
}

// release unlocks and evicts the entry once nobody holds or awaits it.
func (k *keyedMutex) release(id string, l *keyedLock) {
	l.mu.Unlock()

	k.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, id)
	}
	k.mu.Unlock()
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
