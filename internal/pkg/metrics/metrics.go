package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "maproute",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "maproute",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "maproute",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Directions metrics
	DirectionsRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "maproute",
		Subsystem: "directions",
		Name:      "requests_total",
		Help:      "Directions lookups by outcome (ok, zero_results, provider_error, timeout, cache_hit)",
	}, []string{"outcome"})

	DirectionsDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "maproute",
		Subsystem: "directions",
		Name:      "request_duration_seconds",
		Help:      "Latency of directions provider calls",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	StaleFetchesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "maproute",
		Subsystem: "directions",
		Name:      "stale_results_discarded_total",
		Help:      "Fetch results dropped because the waypoints changed while in flight",
	})

	// Session metrics
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "maproute",
		Subsystem: "session",
		Name:      "active",
		Help:      "Current number of map sessions held in memory",
	})

	ToastsShown = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "maproute",
		Subsystem: "session",
		Name:      "toasts_shown_total",
		Help:      "Toast notifications shown by kind",
	}, []string{"kind"})

	GeolocationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "maproute",
		Subsystem: "session",
		Name:      "geolocation_requests_total",
		Help:      "User geolocation lookups by outcome",
	}, []string{"outcome"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "maproute",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "maproute",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "maproute",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path // route pattern keeps session ids out of labels
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
