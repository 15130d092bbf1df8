package providers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"spd/internal/structures"
	"time"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncCacheRejects()
	IncNotModified()
	IncPersistFailures()
	ObservePersistenceDuration(duration time.Duration)
	SetPostsTotal(count int)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	cacheRejects        prometheus.Counter
	notModified         prometheus.Counter
	persistFailures     prometheus.Counter
	persistenceDuration prometheus.Histogram
	postsTotal          prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncCacheRejects() {
	m.cacheRejects.Inc()
}

func (m *MetricsProvider) IncNotModified() {
	m.notModified.Inc()
}

func (m *MetricsProvider) IncPersistFailures() {
	m.persistFailures.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) SetPostsTotal(count int) {
	m.postsTotal.Set(float64(count))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "spd_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spd_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spd_cache_hits_total",
			Help: "Total number of compressed body cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spd_cache_misses_total",
			Help: "Total number of compressed body cache misses",
		}),

		cacheRejects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spd_cache_rejected_total",
			Help: "Total number of compressed bodies the cache refused to store",
		}),

		notModified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spd_not_modified_total",
			Help: "Total number of reads answered as not modified",
		}),

		persistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spd_persist_failures_total",
			Help: "Total number of failed collection file rewrites",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "spd_persistence_duration_seconds",
			Help:    "Duration of collection file rewrites in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		postsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "spd_posts_total",
			Help: "Number of posts in the collection",
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) IncCacheRejects()                                 {}
func (n *noopMetrics) IncNotModified()                                  {}
func (n *noopMetrics) IncPersistFailures()                              {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) SetPostsTotal(_ int)                              {}
