package notion

import (
	"net/http"
	"strconv"
	"time"
)

// BackoffMode selects how the delay grows between retries.
type BackoffMode string

const (
	BackoffFixed       BackoffMode = "fixed"
	BackoffLinear      BackoffMode = "linear"
	BackoffExponential BackoffMode = "exponential"
)

// RetryPolicy holds retry/backoff settings for transient upstream failures.
type RetryPolicy struct {
	Mode       BackoffMode
	Initial    time.Duration
	Max        time.Duration
	MaxRetries int // retries after the first failure
}

// DefaultRetryPolicy is linear, 500ms initial, 5s cap, 2 retries.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Mode: BackoffLinear, Initial: 500 * time.Millisecond, Max: 5 * time.Second, MaxRetries: 2}
}

// NewRetryPolicy builds a policy from raw settings; zero or invalid values
// fall back to defaults. A negative maxRetries keeps the default count.
func NewRetryPolicy(mode BackoffMode, initial, maxDelay time.Duration, maxRetries int) RetryPolicy {
	p := DefaultRetryPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDelay > 0 {
		p.Max = maxDelay
	}
	switch mode {
	case BackoffFixed, BackoffLinear, BackoffExponential:
		p.Mode = mode
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the wait before retry n (1-based).
func (p RetryPolicy) Delay(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Mode {
	case BackoffFixed:
		d = p.Initial
	case BackoffExponential:
		d = p.Initial * (1 << (n - 1))
	default:
		d = time.Duration(n) * p.Initial
	}
	if d > p.Max {
		return p.Max
	}
	return d
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP
// date. The result is capped at max.
func retryAfter(h http.Header, now time.Time, max time.Duration) (time.Duration, bool) {
	v := h.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(v); err == nil {
		d = t.Sub(now)
	} else {
		return 0, false
	}
	if d < 0 {
		d = 0
	}
	if d > max {
		d = max
	}
	return d, true
}
