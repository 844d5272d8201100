// Package metrics exposes Prometheus collectors for the analysis pipeline
// and the HTTP shell.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "viralscope"

// Collector owns its own registry so several can coexist in tests.
// All recording methods are nil-safe.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	providerAttempts *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
	parseResults     *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	gateRejects      prometheus.Counter
	sourceFallbacks  prometheus.Counter
	serviceInfo      *prometheus.GaugeVec
}

// New creates a collector with process and Go runtime metrics registered.
func New(version string) *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	c.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
	c.providerAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_attempts_total",
			Help:      "Provider calls by outcome",
		},
		[]string{"provider", "outcome"},
	)
	c.fallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fallbacks_total",
			Help:      "Fallbacks away from a failed provider",
		},
		[]string{"provider"},
	)
	c.parseResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_results_total",
			Help:      "Parsed results by parser mode",
		},
		[]string{"mode"},
	)
	c.analysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end analysis request duration",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		},
		[]string{"mode", "status"},
	)
	c.gateRejects = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_rejections_total",
		Help:      "Requests rejected by the rate limit gate",
	})
	c.sourceFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_fallbacks_total",
		Help:      "Requests served demo posts because the live source was unavailable",
	})
	c.serviceInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_info",
			Help:      "Service information",
		},
		[]string{"version"},
	)

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.providerAttempts,
		c.fallbacks,
		c.parseResults,
		c.analysisDuration,
		c.gateRejects,
		c.sourceFallbacks,
		c.serviceInfo,
	)
	c.serviceInfo.WithLabelValues(version).Set(1)

	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Middleware records request counts and latency per route.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		if c == nil {
			return
		}
		endpoint := ctx.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		method := ctx.Request.Method
		c.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() gin.HandlerFunc {
	handler := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
	return func(ctx *gin.Context) {
		handler.ServeHTTP(ctx.Writer, ctx.Request)
	}
}

// ProviderAttempt counts one provider call. outcome is "success" or a
// failure class such as "http", "auth", "timeout".
func (c *Collector) ProviderAttempt(provider, outcome string) {
	if c == nil {
		return
	}
	c.providerAttempts.WithLabelValues(provider, outcome).Inc()
}

// Fallback counts a move away from a failed provider.
func (c *Collector) Fallback(provider string) {
	if c == nil {
		return
	}
	c.fallbacks.WithLabelValues(provider).Inc()
}

// ParseResult counts a result produced by the given parser mode.
func (c *Collector) ParseResult(mode string) {
	if c == nil {
		return
	}
	c.parseResults.WithLabelValues(mode).Inc()
}

// AnalysisDone observes one analysis request.
func (c *Collector) AnalysisDone(mode, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.analysisDuration.WithLabelValues(mode, status).Observe(d.Seconds())
}

// GateReject counts a rate-limited request.
func (c *Collector) GateReject() {
	if c == nil {
		return
	}
	c.gateRejects.Inc()
}

// SourceFallback counts a demo substitution.
func (c *Collector) SourceFallback() {
	if c == nil {
		return
	}
	c.sourceFallbacks.Inc()
}
