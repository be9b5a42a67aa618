package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type httpMetrics struct {
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

var (
	httpMetricsOnce sync.Once
	httpMetricsInst *httpMetrics
)

func globalHTTPMetrics() *httpMetrics {
	httpMetricsOnce.Do(func() {
		httpMetricsInst = &httpMetrics{
			requests: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "queue_gateway",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests, labeled by route, method and status",
			}, []string{"route", "method", "status"}),
			durations: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "queue_gateway",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route", "method"}),
		}
	})
	return httpMetricsInst
}

func Metrics() gin.HandlerFunc {
	m := globalHTTPMetrics()

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.durations.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
