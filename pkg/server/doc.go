// Package server provides the HTTP ops server of the gateway.
//
// The ops server exposes probes, metrics and the live state of the health
// checker and the provider manager. It does not serve chat traffic.
//
// # Routes
//
//   - GET /health - Liveness probe (always 200 while the process runs)
//   - GET /ready - Readiness probe (503 when a critical check fails)
//   - GET /version - Build information
//   - GET /metrics - Prometheus metrics (path configurable)
//   - GET /status/models - Latest health record of every model (?status= filters)
//   - GET /status/models/{provider}/{model} - Latest record of one model
//   - GET /status/providers - Provider cooldowns, catalog sizes and key states
//   - POST /status/providers/{name}/reset - Clear a provider cooldown
//   - GET /status/history - Persisted check results (?model=, ?limit=)
//
// Status routes are mounted only for the components passed in Dependencies.
//
// # Middleware Chain
//
// Requests pass through, outermost first:
//  1. Recovery: turns panics into a 500 JSON error
//  2. RequestID: reads or generates X-Request-ID and stores it for logging
//  3. Tracing: extracts W3C trace context and echoes X-Trace-ID
//  4. Logging: logs method, path, status and latency
//
// # Basic Usage
//
//	srv := server.NewServer(cfg.Gateway, server.Dependencies{
//	    Health:    checks,
//	    Metrics:   collector.Handler(),
//	    Models:    checker,
//	    Providers: manager,
//	    History:   store,
//	}, logger)
//
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Start blocks until ctx is cancelled and then shuts down gracefully within
// the configured shutdown timeout.
package server
