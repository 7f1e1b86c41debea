package folio

import (
	"sync"
	"time"
)

// AttemptLimiter rate-limits failed attempts per client IP.
type AttemptLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

// NewAttemptLimiter creates an AttemptLimiter that allows max attempts per
// window. Call Stop to end its cleanup goroutine.
func NewAttemptLimiter(max int, window time.Duration) *AttemptLimiter {
	l := &AttemptLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *AttemptLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}
		cutoff := l.now().Add(-l.window)
		l.mu.Lock()
		for ip, hits := range l.attempts {
			kept := prune(hits, cutoff)
			if len(kept) == 0 {
				delete(l.attempts, ip)
			} else {
				l.attempts[ip] = kept
			}
		}
		l.mu.Unlock()
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *AttemptLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Check returns true if the IP has not exceeded the rate limit.
// It does not record an attempt; call Record separately on failure.
func (l *AttemptLimiter) Check(ip string) bool {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := prune(l.attempts[ip], cutoff)
	if len(kept) == 0 {
		delete(l.attempts, ip)
	} else {
		l.attempts[ip] = kept
	}
	return len(kept) < l.max
}

// Record registers a failed attempt for the given IP.
func (l *AttemptLimiter) Record(ip string) {
	l.mu.Lock()
	l.attempts[ip] = append(l.attempts[ip], l.now())
	l.mu.Unlock()
}

func prune(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
