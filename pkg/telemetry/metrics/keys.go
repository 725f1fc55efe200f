package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Kone-AI/Kone-sub000/pkg/providers"
)

// AdapterSource is satisfied by *providerfactory.Manager.
type AdapterSource interface {
	Adapters() []providers.Adapter
}

// keyHolder is implemented by adapters built on providers.HTTPProvider.
type keyHolder interface {
	Keys() *providers.KeyRotator
}

// keyCollector reports API key pool sizes at scrape time.
type keyCollector struct {
	source    AdapterSource
	available *prometheus.Desc
	total     *prometheus.Desc
}

// WatchKeys registers gauges reporting, per provider, how many API keys are
// configured and how many are currently eligible for selection. Keyless
// providers are not reported.
func (c *Collector) WatchKeys(source AdapterSource) error {
	kc := &keyCollector{
		source: source,
		available: prometheus.NewDesc(
			prometheus.BuildFQName(c.config.Namespace, c.config.Subsystem, "keys_available"),
			"Number of API keys currently eligible for selection",
			[]string{"provider"}, nil,
		),
		total: prometheus.NewDesc(
			prometheus.BuildFQName(c.config.Namespace, c.config.Subsystem, "keys_total"),
			"Number of configured API keys",
			[]string{"provider"}, nil,
		),
	}
	return c.registry.Register(kc)
}

func (kc *keyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- kc.available
	ch <- kc.total
}

func (kc *keyCollector) Collect(ch chan<- prometheus.Metric) {
	for _, a := range kc.source.Adapters() {
		kh, ok := a.(keyHolder)
		if !ok {
			continue
		}
		keys := kh.Keys()
		if keys == nil {
			continue
		}
		ch <- prometheus.MustNewConstMetric(kc.available, prometheus.GaugeValue, float64(keys.Available()), a.Name())
		ch <- prometheus.MustNewConstMetric(kc.total, prometheus.GaugeValue, float64(keys.Len()), a.Name())
	}
}
