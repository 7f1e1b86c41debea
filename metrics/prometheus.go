package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "folio"

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	upstreamDuration *prom.HistogramVec
	upstreamRetries  *prom.CounterVec
	cacheLookups     *prom.CounterVec
	invalidations    *prom.CounterVec
	invalidated      *prom.CounterVec
	proxyResults     *prom.CounterVec
}

// NewPrometheusRecorder creates the collectors and registers them on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		upstreamDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of workspace API calls, including pagination and retries",
			Buckets:   prom.DefBuckets,
		}, []string{"operation", "result"}),
		upstreamRetries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_retries_total",
			Help:      "Workspace API attempts retried after a transient failure",
		}, []string{"operation"}),
		cacheLookups: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Content reads by view and cache outcome",
		}, []string{"view", "outcome"}),
		invalidations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Invalidation requests by selector kind",
		}, []string{"kind"}),
		invalidated: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cache_entries_invalidated_total",
			Help:      "Cache entries removed by invalidation",
		}, []string{"kind"}),
		proxyResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "media_fetch_results_total",
			Help:      "Image proxy and download outcomes",
		}, []string{"endpoint", "result"}),
	}
	reg.MustRegister(pr.upstreamDuration, pr.upstreamRetries, pr.cacheLookups, pr.invalidations, pr.invalidated, pr.proxyResults)
	return pr
}

func (p *PrometheusRecorder) ObserveUpstream(operation string, d time.Duration, result string) {
	if p == nil {
		return
	}
	p.upstreamDuration.WithLabelValues(operation, result).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncUpstreamRetry(operation string) {
	if p == nil {
		return
	}
	p.upstreamRetries.WithLabelValues(operation).Inc()
}

func (p *PrometheusRecorder) IncCache(view, outcome string) {
	if p == nil {
		return
	}
	p.cacheLookups.WithLabelValues(view, outcome).Inc()
}

func (p *PrometheusRecorder) IncInvalidation(kind string, removed int) {
	if p == nil {
		return
	}
	p.invalidations.WithLabelValues(kind).Inc()
	if removed > 0 {
		p.invalidated.WithLabelValues(kind).Add(float64(removed))
	}
}

func (p *PrometheusRecorder) IncProxy(endpoint, result string) {
	if p == nil {
		return
	}
	p.proxyResults.WithLabelValues(endpoint, result).Inc()
}
