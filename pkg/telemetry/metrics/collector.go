package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Kone-AI/Kone-sub000/pkg/providers"
)

// Config contains configuration for the collector.
type Config struct {
	// Enabled turns recording on; a disabled collector drops every event
	Enabled bool

	// Namespace and Subsystem prefix every metric name
	Namespace string
	Subsystem string

	// LatencyBuckets are the histogram buckets in seconds
	LatencyBuckets []float64

	// MaxCardinality bounds distinct model label sets
	MaxCardinality int
}

// otherModel replaces model labels beyond the cardinality limit.
const otherModel = "other"

// Collector records provider, catalog and health metrics.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	providerMetrics *ProviderMetrics
	catalogMetrics  *CatalogMetrics
	healthMetrics   *HealthMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector registering into registry. A nil
// registry gets a fresh one.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "kone"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "gateway"
	}
	if len(cfg.LatencyBuckets) == 0 {
		// LLM latencies (100ms - 60s)
		cfg.LatencyBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0}
	}
	if cfg.MaxCardinality <= 0 {
		cfg.MaxCardinality = 10000
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		providerMetrics:    NewProviderMetrics(cfg, registry),
		catalogMetrics:     NewCatalogMetrics(cfg, registry),
		healthMetrics:      NewHealthMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(cfg.MaxCardinality),
	}
}

// model returns the model label to use, folding new models into "other"
// once the cardinality limit is reached.
func (c *Collector) model(scope, model string) string {
	if !c.cardinalityLimiter.Allow(scope + ":" + model) {
		return otherModel
	}
	return model
}

// RecordProviderRequest records one adapter attempt made by the manager.
func (c *Collector) RecordProviderRequest(provider, model, outcome string, d time.Duration) {
	if !c.config.Enabled {
		return
	}
	model = c.model("provider:"+provider, model)
	c.providerMetrics.RecordRequest(provider, model, outcome)
	c.providerMetrics.RecordLatency(provider, model, d.Seconds())
}

// RecordProviderError records a classified adapter failure.
func (c *Collector) RecordProviderError(provider string, kind providers.ErrorKind) {
	if !c.config.Enabled {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	c.providerMetrics.RecordError(provider, string(kind))
}

// SetProviderDisabled tracks whether a provider is on cooldown.
func (c *Collector) SetProviderDisabled(provider string, disabled bool) {
	if !c.config.Enabled {
		return
	}
	c.providerMetrics.SetDisabled(provider, disabled)
}

// RecordCatalogRefresh records a catalog fetch.
func (c *Collector) RecordCatalogRefresh(provider string, success bool, size int) {
	if !c.config.Enabled {
		return
	}
	c.catalogMetrics.RecordRefresh(provider, success, size)
}

// RecordCatalogLookup records whether a catalog read was served from cache.
func (c *Collector) RecordCatalogLookup(provider string, hit bool) {
	if !c.config.Enabled {
		return
	}
	c.catalogMetrics.RecordLookup(provider, hit)
}

// RecordHealthCheck records the result of one model health check.
func (c *Collector) RecordHealthCheck(model, status string, latency time.Duration, attempts int) {
	if !c.config.Enabled {
		return
	}
	c.healthMetrics.Record(c.model("health", model), status, latency, attempts)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
