package queue

import (
	"sync"

	"esca/queue-gateway/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type queueMetrics struct {
	actions     *prometheus.CounterVec
	callNext    *prometheus.CounterVec
	waiting     prometheus.Gauge
	serving     prometheus.Gauge
	waitMinutes prometheus.Observer
	accrualRuns prometheus.Counter
}

var (
	queueMetricsOnce sync.Once
	queueMetricsInst *queueMetrics
)

func globalQueueMetrics() *queueMetrics {
	queueMetricsOnce.Do(func() {
		queueMetricsInst = newQueueMetrics()
	})
	return queueMetricsInst
}

func newQueueMetrics() *queueMetrics {
	return &queueMetrics{
		actions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "queue_gateway",
			Subsystem: "queue",
			Name:      "actions_total",
			Help:      "Committed queue actions, labeled by action",
		}, []string{"action"}),
		callNext: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "queue_gateway",
			Subsystem: "queue",
			Name:      "call_next_total",
			Help:      "Call-next attempts, labeled by result",
		}, []string{"result"}),
		waiting: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "queue_gateway",
			Subsystem: "queue",
			Name:      "waiting_tickets",
			Help:      "Tickets currently waiting",
		}),
		serving: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "queue_gateway",
			Subsystem: "queue",
			Name:      "serving_tickets",
			Help:      "Tickets currently being served",
		}),
		waitMinutes: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "queue_gateway",
			Subsystem: "queue",
			Name:      "wait_minutes",
			Help:      "Accrued wait time of tickets when they are called",
			Buckets:   []float64{1, 2, 5, 10, 15, 30, 60, 120},
		}),
		accrualRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "queue_gateway",
			Subsystem: "queue",
			Name:      "accrual_runs_total",
			Help:      "Wait-time accrual ticks executed",
		}),
	}
}

func (m *queueMetrics) recordAction(action domain.AuditAction) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(string(action)).Inc()
}

func (m *queueMetrics) recordCall(t *domain.Ticket) {
	if m == nil {
		return
	}
	if t == nil {
		m.callNext.WithLabelValues("empty").Inc()
		return
	}
	m.callNext.WithLabelValues("claimed").Inc()
	m.waitMinutes.Observe(float64(t.WaitTimeMinutes))
}

func (m *queueMetrics) recordAccrual() {
	if m == nil {
		return
	}
	m.accrualRuns.Inc()
}

func (m *queueMetrics) observe(stats domain.QueueStats) {
	if m == nil {
		return
	}
	m.waiting.Set(float64(stats.Waiting))
	m.serving.Set(float64(stats.Serving))
}
