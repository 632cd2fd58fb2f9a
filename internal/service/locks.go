package service

import "sync"

// DealLocks is the per-deal critical section shared by the coordinator and
// the registry. Every mutation of a deal's aggregate or lifecycle state runs
// under the lock for that deal id; operations on different deals never block
// each other.
type DealLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewDealLocks creates an empty lock map.
func NewDealLocks() *DealLocks {
	return &DealLocks{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the mutex for the given deal id, creating it on first use.
// Lock entries are never removed; the map grows with the number of distinct
// deals touched by this process, which is bounded by the deal table.
func (l *DealLocks) Lock(dealID int64) {
	l.mu.Lock()
	m, ok := l.locks[dealID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[dealID] = m
	}
	l.mu.Unlock()

	m.Lock()
}

// Unlock releases the mutex for the given deal id.
func (l *DealLocks) Unlock(dealID int64) {
	l.mu.Lock()
	m := l.locks[dealID]
	l.mu.Unlock()

	if m != nil {
		m.Unlock()
	}
}
