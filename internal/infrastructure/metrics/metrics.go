package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	Path = "/metrics"

	// UnmatchedEndpoint labels requests that hit no registered route, so
	// arbitrary URLs cannot grow label cardinality.
	UnmatchedEndpoint = "unmatched"
)

// Metrics owns a private registry with the request counter and latency
// histogram, labelled by lower-case method and route template.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "request_count",
			Help: "Total number of requests",
		}, []string{"method", "endpoint"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "request_latency_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}

	m.registry.MustRegister(
		m.requests,
		m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Middleware records every routed request except scrapes of Path itself.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.FullPath() == Path {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		method := strings.ToLower(c.Request.Method)
		endpoint := EndpointLabel(c.FullPath())

		m.requests.WithLabelValues(method, endpoint).Inc()
		m.latency.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// EndpointLabel turns a gin route template into the label form, e.g.
// "/stocks/:symbol" becomes "/stocks/{symbol}".
func EndpointLabel(fullPath string) string {
	if fullPath == "" {
		return UnmatchedEndpoint
	}

	segments := strings.Split(fullPath, "/")
	for i, seg := range segments {
		if len(seg) > 1 && (seg[0] == ':' || seg[0] == '*') {
			segments[i] = "{" + seg[1:] + "}"
		}
	}
	return strings.Join(segments, "/")
}
