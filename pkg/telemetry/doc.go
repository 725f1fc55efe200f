// Package telemetry groups the observability packages of the gateway.
//
// # Components
//
//   - logging: slog handlers with request context fields and key redaction
//   - metrics: Prometheus collector for provider, catalog and health events
//   - tracing: OpenTelemetry spans around provider attempts
//   - health: liveness and readiness endpoints for the ops server
//
// # Usage
//
//	logger, _ := logging.New(logging.Config{Level: "info", RedactSecrets: true})
//	collector := metrics.NewCollector(metrics.Config{Enabled: true}, nil)
//	tracer, _ := tracing.New(tracing.Config{Enabled: false})
//
//	manager := providerfactory.NewManager(adapters, providerfactory.ManagerConfig{},
//	    providerfactory.WithLogger(logger),
//	    providerfactory.WithRecorder(collector),
//	    providerfactory.WithTracer(tracer.Tracer()),
//	)
//
// # Key Protection
//
// With RedactSecrets on, provider API keys never reach the log output:
//
//   - Bearer tokens: "Bearer sk-abc..." → "Bearer ***"
//   - API keys: gsk_abc123... → sk-***
//   - Query parameters: ?key=AIza... → ?key=***
//   - Attributes named api_key, authorization or token keep only a short prefix
package telemetry
