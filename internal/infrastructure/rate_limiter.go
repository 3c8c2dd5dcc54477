package infrastructure

import (
	"sync"
	"time"
)

// RateLimiter is a per-key sliding-window limiter used for login and
// password-reset attempts.
type RateLimiter struct {
	requests map[string][]time.Time
	window   time.Duration
	limit    int
	mutex    sync.RWMutex
	stop     chan struct{}
	once     sync.Once
}

func NewRateLimiter(window time.Duration, limit int) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		window:   window,
		limit:    limit,
		stop:     make(chan struct{}),
	}

	// Start cleanup goroutine
	go rl.cleanupLoop(time.Hour)
	return rl
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	validRequests := rl.pruned(rl.requests[key], now.Add(-rl.window))

	if len(validRequests) < rl.limit {
		rl.requests[key] = append(validRequests, now)
		return true
	}

	// Update requests list even if we're over limit
	rl.requests[key] = validRequests
	return false
}

// Remaining returns how many more attempts key may make in the current window.
func (rl *RateLimiter) Remaining(key string) int {
	rl.mutex.RLock()
	defer rl.mutex.RUnlock()

	valid := 0
	windowStart := time.Now().Add(-rl.window)
	for _, t := range rl.requests[key] {
		if t.After(windowStart) {
			valid++
		}
	}
	if remaining := rl.limit - valid; remaining > 0 {
		return remaining
	}
	return 0
}

// Reset forgets every attempt recorded for key.
func (rl *RateLimiter) Reset(key string) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	delete(rl.requests, key)
}

func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) pruned(requests []time.Time, windowStart time.Time) []time.Time {
	var valid []time.Time
	for _, reqTime := range requests {
		if reqTime.After(windowStart) {
			valid = append(valid, reqTime)
		}
	}
	return valid
}

func (rl *RateLimiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.cleanupStaleEntries()
		}
	}
}

func (rl *RateLimiter) cleanupStaleEntries() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	cutoff := time.Now().Add(-rl.window)
	for key, requests := range rl.requests {
		if valid := rl.pruned(requests, cutoff); len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}
