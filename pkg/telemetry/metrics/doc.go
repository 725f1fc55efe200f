// Package metrics provides Prometheus metrics for the gateway.
//
// # Metrics Categories
//
//   - Provider metrics: attempts by outcome, latency, errors by kind and
//     whether a provider is on cooldown
//   - Catalog metrics: refreshes, cached catalog size and lookup hits
//   - Health metrics: check results, latency and attempts per model
//
// A Collector satisfies the recorder interfaces of providers.Catalog,
// providerfactory.Manager and modelhealth.Checker, so one instance is passed
// to all three.
//
// # Usage
//
//	collector := metrics.NewCollector(metrics.Config{Enabled: true}, nil)
//	manager := providerfactory.NewManager(adapters, providerfactory.ManagerConfig{},
//	    providerfactory.WithRecorder(collector))
//	mux.Handle("/metrics", collector.Handler())
//
// # Cardinality
//
// Model labels come from upstream catalogs. Once MaxCardinality distinct
// label sets have been seen, new models are folded into "other".
package metrics
