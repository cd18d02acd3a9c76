package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "siteaudit"

// Metrics owns a private registry and the collectors the service reports to.
type Metrics struct {
	registry      *prometheus.Registry
	audits        *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec
	notifications *prometheus.CounterVec
	outboxPending prometheus.Gauge
}

// New builds a registry with Go runtime and process collectors plus the
// service's own metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	m := &Metrics{
		registry: reg,
		audits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audits_total",
			Help:      "Completed audits by letter grade.",
		}, []string{"grade"}),
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Wall-clock duration of each probe by check and resulting status.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		}, []string{"check", "status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by kind and outcome.",
		}, []string{"kind", "outcome"}),
		outboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_pending",
			Help:      "Notification jobs waiting for or undergoing delivery.",
		}),
	}
	reg.MustRegister(m.audits, m.probeDuration, m.notifications, m.outboxPending)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveAudit(grade string) {
	m.audits.WithLabelValues(grade).Inc()
}

func (m *Metrics) ObserveProbe(check, status string, d time.Duration) {
	m.probeDuration.WithLabelValues(check, status).Observe(d.Seconds())
}

func (m *Metrics) ObserveNotification(kind, outcome string) {
	m.notifications.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) SetOutboxPending(n int) {
	m.outboxPending.Set(float64(n))
}
