package acquire

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "cutline"

// Metrics exposes scheduler activity as Prometheus collectors. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	queued    *prometheus.GaugeVec
	running   *prometheus.GaugeVec
	completed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewMetrics creates the scheduler collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		queued: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "acquisition",
				Name:      "tasks_queued",
				Help:      "Tasks waiting for an admission slot",
			},
			[]string{"provider"},
		),
		running: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "acquisition",
				Name:      "tasks_running",
				Help:      "Tasks currently executing",
			},
			[]string{"provider"},
		),
		completed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "acquisition",
				Name:      "tasks_completed_total",
				Help:      "Tasks finished, by terminal media status",
			},
			[]string{"provider", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "acquisition",
				Name:      "task_duration_seconds",
				Help:      "Time from admission to terminal status",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.queued, m.running, m.completed, m.duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) taskQueued(provider string) {
	if m == nil {
		return
	}
	m.queued.WithLabelValues(provider).Inc()
}

func (m *Metrics) taskStarted(provider string) {
	if m == nil {
		return
	}
	m.queued.WithLabelValues(provider).Dec()
	m.running.WithLabelValues(provider).Inc()
}

// taskFinished records a terminal outcome. wasRunning is false when the
// task left the queue without being admitted.
func (m *Metrics) taskFinished(provider, status string, wasRunning bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	if wasRunning {
		m.running.WithLabelValues(provider).Dec()
		m.duration.WithLabelValues(provider).Observe(elapsed.Seconds())
	} else {
		m.queued.WithLabelValues(provider).Dec()
	}
	m.completed.WithLabelValues(provider, status).Inc()
}
