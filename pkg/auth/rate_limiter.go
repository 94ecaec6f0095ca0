package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter bounds how often a keyed caller may perform an operation.
type RateLimiter interface {
	// Allow reports whether the caller identified by key may proceed.
	Allow(ctx context.Context, key string) (bool, error)
	// Reset clears the recorded history for a key.
	Reset(ctx context.Context, key string) error
}

// SlidingWindowLimiter admits at most limit requests per key within a
// rolling window. Expansion requests fan out into generation calls, so
// the window is deliberately strict.
type SlidingWindowLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSlidingWindowLimiter creates a limiter admitting limit requests per
// window. A cleanup goroutine drops idle keys until Stop is called.
func NewSlidingWindowLimiter(limit int, window time.Duration) *SlidingWindowLimiter {
	l := &SlidingWindowLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		stopCh:   make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow records the request and reports whether it fits in the window.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	recent := l.requests[key][:0]
	for _, t := range l.requests[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.limit {
		l.requests[key] = recent
		return false, nil
	}

	l.requests[key] = append(recent, now)
	return true, nil
}

// Reset clears the recorded history for a key.
func (l *SlidingWindowLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.requests, key)
	return nil
}

// Stop terminates the cleanup goroutine.
func (l *SlidingWindowLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *SlidingWindowLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

func (l *SlidingWindowLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.window)
	for key, times := range l.requests {
		recent := times[:0]
		for _, t := range times {
			if t.After(cutoff) {
				recent = append(recent, t)
			}
		}
		if len(recent) == 0 {
			delete(l.requests, key)
		} else {
			l.requests[key] = recent
		}
	}
}

// IPRateLimiter limits anonymous callers by remote address.
type IPRateLimiter struct {
	limiter *SlidingWindowLimiter
}

// NewIPRateLimiter creates a per-IP limiter with a one minute window.
func NewIPRateLimiter(requestsPerMinute int) *IPRateLimiter {
	return &IPRateLimiter{
		limiter: NewSlidingWindowLimiter(requestsPerMinute, time.Minute),
	}
}

// AllowIP reports whether the given address may proceed.
func (l *IPRateLimiter) AllowIP(ctx context.Context, ip string) (bool, error) {
	return l.limiter.Allow(ctx, "ip:"+ip)
}

// Stop terminates the underlying cleanup goroutine.
func (l *IPRateLimiter) Stop() {
	l.limiter.Stop()
}

// UserRateLimiter limits authenticated callers by user ID, so one user
// behind a NAT cannot starve the others sharing the address.
type UserRateLimiter struct {
	limiter *SlidingWindowLimiter
}

// NewUserRateLimiter creates a per-user limiter with a one minute window.
func NewUserRateLimiter(requestsPerMinute int) *UserRateLimiter {
	return &UserRateLimiter{
		limiter: NewSlidingWindowLimiter(requestsPerMinute, time.Minute),
	}
}

// AllowUser reports whether the given user may proceed.
func (l *UserRateLimiter) AllowUser(ctx context.Context, userID string) (bool, error) {
	return l.limiter.Allow(ctx, "user:"+userID)
}

// Stop terminates the underlying cleanup goroutine.
func (l *UserRateLimiter) Stop() {
	l.limiter.Stop()
}
