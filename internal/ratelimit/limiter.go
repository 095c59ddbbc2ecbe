// Package ratelimit implements a sliding-window request and cost limiter for
// the LLM reranker tier and query-expansion calls.
package ratelimit

import (
	"sync"
	"time"

	"github.com/convomem/retrieval-engine/internal/pkg/errors"
)

// entry is one recorded call in the sliding window.
type entry struct {
	timestamp time.Time
	costCents float64
}

// Config configures a Limiter.
type Config struct {
	// MaxRequests is the maximum number of calls allowed within Window.
	MaxRequests int

	// MaxCostCents is the maximum total cost (in cents) allowed within Window.
	MaxCostCents float64

	// Window is the sliding window duration. Defaults to 1 hour.
	Window time.Duration
}

// DefaultConfig returns a 1-hour sliding window with no requests allowed;
// callers must set MaxRequests/MaxCostCents explicitly.
func DefaultConfig() Config {
	return Config{Window: time.Hour}
}

// Limiter is a thread-safe sliding-window request and cost accountant.
// It holds an append-only, age-garbage-collected log of (timestamp, cost)
// entries, per §4.D: an OK check_and_record implies both the request-count
// and cost invariants hold with the new entry counted.
type Limiter struct {
	mu      sync.Mutex
	cfg     Config
	entries []entry
	now     func() time.Time
}

// New creates a Limiter. A zero Window defaults to 1 hour.
func New(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	return &Limiter{cfg: cfg, now: time.Now}
}

// CheckAndRecord attempts to record a call costing costCents. Request count
// is checked before budget (matching the reference rate limiter's ordering).
// On success the call is appended to the window. On failure it returns a
// RateLimited error carrying the kind and a monotone non-negative retry-after.
func (l *Limiter) CheckAndRecord(costCents float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.gc(now)

	if len(l.entries)+1 > l.cfg.MaxRequests {
		retryAfter := l.cfg.Window
		if len(l.entries) > 0 {
			retryAfter = l.cfg.Window - now.Sub(l.entries[0].timestamp)
			if retryAfter < 0 {
				retryAfter = 0
			}
		}
		return errors.RateLimitedError(errors.RateLimitKindRequests, retryAfter.Seconds())
	}

	if costCents > l.cfg.MaxCostCents {
		return errors.RateLimitedError(errors.RateLimitKindBudget, 0)
	}

	totalCost := l.totalCost()
	if totalCost+costCents > l.cfg.MaxCostCents {
		retryAfter := l.retryAfterForBudget(now, costCents, totalCost)
		return errors.RateLimitedError(errors.RateLimitKindBudget, retryAfter.Seconds())
	}

	l.entries = append(l.entries, entry{timestamp: now, costCents: costCents})
	return nil
}

// retryAfterForBudget finds the earliest time at which expiring the oldest
// entries would free enough budget for costCents to fit, matching the
// reference implementation's prefix-sum approximation (§9 Design Notes: this
// is approximate, using the last-included expiring entry's timestamp).
func (l *Limiter) retryAfterForBudget(now time.Time, costCents, totalCost float64) time.Duration {
	needToFree := totalCost + costCents - l.cfg.MaxCostCents
	freed := 0.0
	for _, e := range l.entries {
		freed += e.costCents
		if freed >= needToFree {
			retryAfter := l.cfg.Window - now.Sub(e.timestamp)
			if retryAfter < 0 {
				return 0
			}
			return retryAfter
		}
	}
	return l.cfg.Window
}

func (l *Limiter) totalCost() float64 {
	var total float64
	for _, e := range l.entries {
		total += e.costCents
	}
	return total
}

// gc drops entries older than the window. Caller must hold l.mu.
func (l *Limiter) gc(now time.Time) {
	cutoff := now.Add(-l.cfg.Window)
	i := 0
	for i < len(l.entries) && l.entries[i].timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		l.entries = l.entries[i:]
	}
}

// Usage reports current window occupancy.
type Usage struct {
	RequestCount       int
	TotalCostCents     float64
	MaxRequests        int
	MaxCostCents       float64
	RequestUtilization float64
	BudgetUtilization  float64
}

// Usage returns the current usage snapshot, garbage-collecting expired
// entries first.
func (l *Limiter) Usage() Usage {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.gc(l.now())
	total := l.totalCost()

	u := Usage{
		RequestCount:   len(l.entries),
		TotalCostCents: total,
		MaxRequests:    l.cfg.MaxRequests,
		MaxCostCents:   l.cfg.MaxCostCents,
	}
	if l.cfg.MaxRequests > 0 {
		u.RequestUtilization = float64(u.RequestCount) / float64(l.cfg.MaxRequests) * 100
	}
	if l.cfg.MaxCostCents > 0 {
		u.BudgetUtilization = total / l.cfg.MaxCostCents * 100
	}
	return u
}

// Reset clears all recorded entries. Intended for tests.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

