package metrics

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cwrk-planet/voice-testbench/pkg/errs"
)

// Metrics: счётчики testbench. Методы безопасны для nil.
type Metrics struct {
	upstreamCalls    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	logLines         *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	liveClients      prometheus.Gauge
	activityAdded    *prometheus.CounterVec
}

var (
	once sync.Once
	inst *Metrics
)

// New регистрирует метрики в default registry один раз на процесс.
func New() *Metrics {
	once.Do(func() {
		inst = &Metrics{
			upstreamCalls: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "testbench_upstream_calls_total",
					Help: "Calls to external collaborators by outcome",
				},
				[]string{"upstream", "operation", "outcome"},
			),
			upstreamDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "testbench_upstream_call_duration_seconds",
					Help:    "Latency of calls to external collaborators",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"upstream", "operation"},
			),
			logLines: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "testbench_log_lines_returned_total",
					Help: "Log lines returned to the dashboard by source",
				},
				[]string{"source", "service"},
			),
			httpRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "testbench_http_requests_total",
					Help: "HTTP requests by route pattern and status",
				},
				[]string{"method", "route", "status"},
			),
			liveClients: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "testbench_live_clients",
					Help: "Connected /ws/rooms clients",
				},
			),
			activityAdded: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "testbench_activity_entries_total",
					Help: "Activity entries recorded by scope and status",
				},
				[]string{"scope", "status"},
			),
		}
	})
	return inst
}

// ObserveUpstream записывает результат одного вызова внешнего сервиса.
func (m *Metrics) ObserveUpstream(upstream, op string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.upstreamCalls.WithLabelValues(upstream, op, outcome(err)).Inc()
	m.upstreamDuration.WithLabelValues(upstream, op).Observe(time.Since(started).Seconds())
}

func (m *Metrics) AddLogLines(source, service string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.logLines.WithLabelValues(source, service).Add(float64(n))
}

func (m *Metrics) ObserveHTTP(method, route string, status int) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) LiveClientConnected() {
	if m != nil {
		m.liveClients.Inc()
	}
}

func (m *Metrics) LiveClientGone() {
	if m != nil {
		m.liveClients.Dec()
	}
}

func (m *Metrics) ActivityAdded(scope, status string) {
	if m == nil {
		return
	}
	m.activityAdded.WithLabelValues(scope, status).Inc()
}

func outcome(err error) string {
	var ue *errs.UpstreamError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ue):
		return "status_" + strconv.Itoa(ue.Status)
	case errors.Is(err, errs.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
