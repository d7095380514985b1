// Package quota implements a fixed-window request counter keyed by caller.
//
// Bursts straddling a window boundary are admitted; the counter resets
// entirely once the window has passed.
package quota

import (
	"sync"
	"time"
)

// Bucket is the counter state for a single key.
type Bucket struct {
	Count   int
	ResetAt time.Time
}

// Result reports the outcome of a single Check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Store holds buckets. Apply must run fn while holding key exclusively and
// persist whatever fn returns. exists is false when the key has no bucket yet.
type Store interface {
	Apply(key string, fn func(cur Bucket, exists bool) Bucket) error
}

// Tracker enforces a limit per key over a fixed window.
type Tracker struct {
	store Store
	now   func() time.Time
}

// NewTracker creates a Tracker backed by store. A nil store gets a fresh
// MemoryStore.
func NewTracker(store Store) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Tracker{store: store, now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Check counts one call against key and reports whether it is admitted.
func (t *Tracker) Check(key string, limit int, window time.Duration) (Result, error) {
	now := t.now()
	var res Result
	err := t.store.Apply(key, func(cur Bucket, exists bool) Bucket {
		if !exists || now.After(cur.ResetAt) {
			next := Bucket{Count: 1, ResetAt: now.Add(window)}
			res = Result{Allowed: true, Remaining: max(0, limit-1), ResetAt: next.ResetAt}
			return next
		}
		if cur.Count >= limit {
			res = Result{Allowed: false, Remaining: 0, ResetAt: cur.ResetAt}
			return cur
		}
		cur.Count++
		res = Result{Allowed: true, Remaining: max(0, limit-cur.Count), ResetAt: cur.ResetAt}
		return cur
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// MemoryStore keeps buckets in process memory. Each key has its own lock so
// callers on different keys never wait on each other's updates.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	mu     sync.Mutex
	bucket Bucket
	exists bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]*slot)}
}

// Apply implements Store.
func (s *MemoryStore) Apply(key string, fn func(cur Bucket, exists bool) Bucket) error {
	s.mu.Lock()
	sl, ok := s.slots[key]
	if !ok {
		sl = &slot{}
		s.slots[key] = sl
	}
	s.mu.Unlock()

	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.bucket = fn(sl.bucket, sl.exists)
	sl.exists = true
	return nil
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}
