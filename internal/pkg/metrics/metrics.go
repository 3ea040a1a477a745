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
		Namespace: "memorylane",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "memorylane",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "memorylane",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Realtime metrics
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "memorylane",
		Subsystem: "realtime",
		Name:      "active_connections",
		Help:      "Current number of live realtime sessions",
	})

	OccupiedRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "memorylane",
		Subsystem: "realtime",
		Name:      "occupied_rooms",
		Help:      "Grid rooms with at least one member",
	})

	RealtimeEventsIn = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "memorylane",
		Subsystem: "realtime",
		Name:      "events_in_total",
		Help:      "Inbound realtime events by name",
	}, []string{"event"})

	FanoutDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "memorylane",
		Subsystem: "realtime",
		Name:      "fanout_delivered_total",
		Help:      "Events delivered to sessions by fanout",
	}, []string{"event"})

	FanoutFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "memorylane",
		Subsystem: "realtime",
		Name:      "fanout_failures_total",
		Help:      "Per-recipient fanout delivery failures",
	}, []string{"event"})

	// Geospatial query metrics
	NearbyQueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "memorylane",
		Subsystem: "geo",
		Name:      "nearby_query_duration_seconds",
		Help:      "Latency of nearby-memory queries against the spatial index",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	MemoriesDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "memorylane",
		Subsystem: "geo",
		Name:      "memories_discovered_total",
		Help:      "Memories returned by discovery queries",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "memorylane",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "memorylane",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "memorylane",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "memorylane",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "memorylane",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
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

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates pool gauges from pgx pool stats.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
