package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FlightCache memoizes expensive computations per key with a TTL and a
// single-flight guarantee: at most one in-flight recomputation per key at any
// time. Concurrent callers arriving during an active refresh share that
// flight's result instead of triggering duplicate upstream fetch storms.
//
// Expired entries are retained until invalidated so callers can fall back to
// a stale payload when a recomputation fails outright.
type FlightCache[T any] struct {
	mu      sync.RWMutex
	entries map[string]*flightEntry[T]
	group   singleflight.Group
	now     func() time.Time
}

type flightEntry[T any] struct {
	payload    T
	computedAt time.Time
	ttl        time.Duration
}

func (e *flightEntry[T]) fresh(now time.Time) bool {
	return now.Sub(e.computedAt) < e.ttl
}

// NewFlightCache creates an empty flight cache.
func NewFlightCache[T any]() *FlightCache[T] {
	return &FlightCache[T]{
		entries: make(map[string]*flightEntry[T]),
		now:     time.Now,
	}
}

// Do returns a fresh cached payload for key, or computes one. force skips
// the freshness check but still joins an active flight. hit reports whether
// the payload came from cache without recomputation.
func (c *FlightCache[T]) Do(ctx context.Context, key string, ttl time.Duration, force bool, compute func(ctx context.Context) (T, error)) (payload T, hit bool, err error) {
	if !force {
		if v, ok := c.freshEntry(key); ok {
			return v, true, nil
		}
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A caller that queued behind an active flight may find the entry the
		// flight just wrote; don't recompute it again.
		if !force {
			if v, ok := c.freshEntry(key); ok {
				return v, nil
			}
		}
		out, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, out, ttl)
		return out, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v.(T), false, nil
}

// Stale returns the most recent payload for key regardless of freshness,
// with its computation time. Used as the availability fallback when every
// upstream source fails.
func (c *FlightCache[T]) Stale(key string) (T, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[key]; ok {
		return e.payload, e.computedAt, true
	}
	var zero T
	return zero, time.Time{}, false
}

// Invalidate drops the entry so the next Do recomputes.
func (c *FlightCache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *FlightCache[T]) freshEntry(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[key]; ok && e.fresh(c.now()) {
		return e.payload, true
	}
	var zero T
	return zero, false
}

func (c *FlightCache[T]) store(key string, payload T, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = &flightEntry[T]{payload: payload, computedAt: c.now(), ttl: ttl}
	c.mu.Unlock()
}
