package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter admits or rejects requests per client key. Implementations backed
// by a shared store can be substituted for multi-instance deployments.
type Limiter interface {
	Allow(key string) Decision
}

// SlidingWindow keeps the timestamps of admitted requests per key and admits
// a request while fewer than max fall inside the trailing window.
type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	now    func() time.Time
	hits   map[string][]time.Time
}

func NewSlidingWindow(window time.Duration, max int) *SlidingWindow {
	if window <= 0 {
		window = 15 * time.Minute
	}
	if max <= 0 {
		max = 100
	}
	return &SlidingWindow{
		window: window,
		max:    max,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *SlidingWindow) WithClock(now func() time.Time) *SlidingWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *SlidingWindow) Allow(key string) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	recent := prune(s.hits[key], now, s.window)

	d := Decision{Limit: s.max}
	if len(recent) >= s.max {
		s.hits[key] = recent
		d.ResetAt = recent[0].Add(s.window)
		return d
	}

	recent = append(recent, now)
	s.hits[key] = recent

	d.Allowed = true
	d.Remaining = s.max - len(recent)
	d.ResetAt = recent[0].Add(s.window)
	return d
}

// Sweep drops expired timestamps and forgets keys with none left. It
// returns the number of keys removed.
func (s *SlidingWindow) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, ts := range s.hits {
		recent := prune(ts, now, s.window)
		if len(recent) == 0 {
			delete(s.hits, key)
			removed++
			continue
		}
		s.hits[key] = recent
	}
	return removed
}

// Len returns the number of tracked keys.
func (s *SlidingWindow) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hits)
}

// prune returns the suffix of ts newer than now-window. Timestamps are
// appended in order, so the first in-window entry bounds the slice.
func prune(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	out := make([]time.Time, len(ts)-i)
	copy(out, ts[i:])
	return out
}
