package llmclient

import (
	"context"
	"sync"
	"time"
)

// RateLimiter throttles outbound provider calls to a ceiling per sliding
// 60-second window. Wait blocks for exactly as long as it takes the oldest
// retained timestamp to exit the window rather than napping a fixed delay.
type RateLimiter struct {
	mu      sync.Mutex
	stamps  []time.Time
	ceiling int
	window  time.Duration
	now     func() time.Time
}

func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		ceiling: perMinute,
		window:  time.Minute,
		now:     time.Now,
	}
}

// Wait blocks until a request slot is free, then records the request. It
// returns early only when ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := rl.now()
		rl.prune(now)
		if len(rl.stamps) < rl.ceiling {
			rl.stamps = append(rl.stamps, now)
			rl.mu.Unlock()
			return nil
		}
		wait := rl.stamps[0].Add(rl.window).Sub(now)
		rl.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Allow records a request if a slot is free, without blocking.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.prune(now)
	if len(rl.stamps) >= rl.ceiling {
		return false
	}
	rl.stamps = append(rl.stamps, now)
	return true
}

// Usage returns the count of requests in the current window and the ceiling.
func (rl *RateLimiter) Usage() (used int, ceiling int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.prune(rl.now())
	return len(rl.stamps), rl.ceiling
}

// prune drops timestamps that have left the window. Caller holds the lock.
func (rl *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-rl.window)
	idx := 0
	for idx < len(rl.stamps) && !rl.stamps[idx].After(cutoff) {
		idx++
	}
	rl.stamps = rl.stamps[idx:]
}
