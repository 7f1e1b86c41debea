// Package metrics defines observability hooks for upstream calls, cache
// lookups and media proxying, with a Prometheus implementation.
package metrics

import "time"

// Cache outcomes recorded by IncCache.
const (
	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheBypass = "bypass" // forced-fresh read
	CacheSkip   = "skip"   // result not stored (signed media too close to expiry)
)

// Recorder receives adapter measurements. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveUpstream(operation string, d time.Duration, result string)
	IncUpstreamRetry(operation string)
	IncCache(view, outcome string)
	IncInvalidation(kind string, removed int)
	IncProxy(endpoint, result string)
}

// NoopRecorder discards everything (default when metrics are disabled).
type NoopRecorder struct{}

func (NoopRecorder) ObserveUpstream(string, time.Duration, string) {}
func (NoopRecorder) IncUpstreamRetry(string)                       {}
func (NoopRecorder) IncCache(string, string)                       {}
func (NoopRecorder) IncInvalidation(string, int)                   {}
func (NoopRecorder) IncProxy(string, string)                       {}
