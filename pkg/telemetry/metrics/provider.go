package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics tracks attempts the manager makes against each adapter.
//
// Metrics:
//   - kone_gateway_provider_requests_total: attempts by provider, model and outcome
//   - kone_gateway_provider_latency_seconds: attempt latency
//   - kone_gateway_provider_errors_total: classified failures by kind
//   - kone_gateway_provider_disabled: 1 while a provider is on cooldown
type ProviderMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	disabled *prometheus.GaugeVec
}

// NewProviderMetrics creates and registers provider metrics with the provided registry.
func NewProviderMetrics(cfg Config, registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_requests_total",
				Help:      "Total number of attempts made against each provider",
			},
			[]string{"provider", "model", "outcome"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_latency_seconds",
				Help:      "Provider attempt latency in seconds",
				Buckets:   cfg.LatencyBuckets,
			},
			[]string{"provider", "model"},
		),

		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_errors_total",
				Help:      "Total number of provider errors by kind",
			},
			[]string{"provider", "kind"},
		),

		disabled: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_disabled",
				Help:      "Whether a provider is on cooldown (1=disabled, 0=available)",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(
		pm.requests,
		pm.latency,
		pm.errors,
		pm.disabled,
	)

	return pm
}

// RecordRequest counts one attempt. Outcome is "success" or "error".
func (pm *ProviderMetrics) RecordRequest(provider, model, outcome string) {
	pm.requests.WithLabelValues(provider, model, outcome).Inc()
}

// RecordLatency records the latency of one attempt.
func (pm *ProviderMetrics) RecordLatency(provider, model string, latencySeconds float64) {
	pm.latency.WithLabelValues(provider, model).Observe(latencySeconds)
}

// RecordError records a failure of the given kind ("rate_limited",
// "timeout", "unauthorized", "quota", ...).
func (pm *ProviderMetrics) RecordError(provider, kind string) {
	pm.errors.WithLabelValues(provider, kind).Inc()
}

// SetDisabled updates the cooldown gauge of a provider.
func (pm *ProviderMetrics) SetDisabled(provider string, disabled bool) {
	value := 0.0
	if disabled {
		value = 1.0
	}
	pm.disabled.WithLabelValues(provider).Set(value)
}
