package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Result describes the outcome of one Allow call
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Store decides whether the client identified by key may make another request
type Store interface {
	Allow(ctx context.Context, key string) (Result, error)
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryStore is a per-process Store. Each key gets a token bucket holding
// limit tokens that refills completely over window.
type MemoryStore struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	entries   map[string]*entry
	lastSweep time.Time
}

type MemoryOption func(*MemoryStore)

// WithClock overrides the time source, mainly for tests
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates a store allowing limit requests per window per key
func NewMemoryStore(limit int, window time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limit < 1 {
		s.limit = 1
	}
	if s.window <= 0 {
		s.window = time.Minute
	}
	s.lastSweep = s.now()
	return s
}

func (s *MemoryStore) Allow(ctx context.Context, key string) (Result, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(now)
	e, ok := s.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Every(s.window/time.Duration(s.limit)), s.limit)}
		s.entries[key] = e
	}
	e.lastSeen = now

	res := Result{Limit: s.limit}
	if e.limiter.AllowN(now, 1) {
		res.Allowed = true
		res.Remaining = int(math.Floor(e.limiter.TokensAt(now)))
		return res, nil
	}
	res.RetryAfter = time.Duration((1 - e.limiter.TokensAt(now)) / float64(e.limiter.Limit()) * float64(time.Second))
	return res, nil
}

// Len returns the number of tracked keys
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweep drops keys idle for a full window; their buckets are full again anyway.
// Must be called with the lock held.
func (s *MemoryStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.window {
		return
	}
	for key, e := range s.entries {
		if now.Sub(e.lastSeen) >= s.window {
			delete(s.entries, key)
		}
	}
	s.lastSweep = now
}
