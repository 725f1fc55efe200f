package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CatalogMetrics tracks model catalog refreshes and cache effectiveness.
type CatalogMetrics struct {
	refreshes *prometheus.CounterVec
	size      *prometheus.GaugeVec
	lookups   *prometheus.CounterVec
}

// NewCatalogMetrics creates and registers catalog metrics.
func NewCatalogMetrics(cfg Config, registry *prometheus.Registry) *CatalogMetrics {
	cm := &CatalogMetrics{
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "catalog_refreshes_total",
				Help:      "Total number of upstream catalog fetches by result",
			},
			[]string{"provider", "result"},
		),
		size: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "catalog_models",
				Help:      "Number of models in the cached catalog",
			},
			[]string{"provider"},
		),
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "catalog_lookups_total",
				Help:      "Total number of catalog reads by cache result",
			},
			[]string{"provider", "result"},
		),
	}

	registry.MustRegister(cm.refreshes, cm.size, cm.lookups)
	return cm
}

// RecordRefresh counts a fetch and, on success, updates the catalog size.
func (cm *CatalogMetrics) RecordRefresh(provider string, success bool, size int) {
	if !success {
		cm.refreshes.WithLabelValues(provider, "error").Inc()
		return
	}
	cm.refreshes.WithLabelValues(provider, "success").Inc()
	cm.size.WithLabelValues(provider).Set(float64(size))
}

// RecordLookup counts a catalog read as a hit or miss.
func (cm *CatalogMetrics) RecordLookup(provider string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cm.lookups.WithLabelValues(provider, result).Inc()
}
