package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// healthStatuses are the values the status gauge cycles through.
var healthStatuses = []string{"operational", "limited", "unknown", "error"}

// HealthMetrics tracks model health check results.
type HealthMetrics struct {
	checks   *prometheus.CounterVec
	status   *prometheus.GaugeVec
	latency  *prometheus.HistogramVec
	attempts *prometheus.HistogramVec
}

// NewHealthMetrics creates and registers health check metrics.
func NewHealthMetrics(cfg Config, registry *prometheus.Registry) *HealthMetrics {
	hm := &HealthMetrics{
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "health_checks_total",
				Help:      "Total number of model health checks by resulting status",
			},
			[]string{"model", "status"},
		),
		status: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "model_status",
				Help:      "Current model status (1 for the active status label)",
			},
			[]string{"model", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "health_check_latency_seconds",
				Help:      "Latency of successful health probes in seconds",
				Buckets:   cfg.LatencyBuckets,
			},
			[]string{"model"},
		),
		attempts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "health_check_attempts",
				Help:      "Attempts needed per health check",
				Buckets:   []float64{1, 2, 3, 4, 5},
			},
			[]string{"model"},
		),
	}

	registry.MustRegister(hm.checks, hm.status, hm.latency, hm.attempts)
	return hm
}

// Record stores one check result. Latency is only observed when non-zero.
func (hm *HealthMetrics) Record(model, status string, latency time.Duration, attempts int) {
	hm.checks.WithLabelValues(model, status).Inc()
	for _, s := range healthStatuses {
		value := 0.0
		if s == status {
			value = 1.0
		}
		hm.status.WithLabelValues(model, s).Set(value)
	}
	if latency > 0 {
		hm.latency.WithLabelValues(model).Observe(latency.Seconds())
	}
	if attempts > 0 {
		hm.attempts.WithLabelValues(model).Observe(float64(attempts))
	}
}
