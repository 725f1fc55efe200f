// Package tracing provides OpenTelemetry tracing for the gateway.
//
// # Overview
//
// New installs an SDK tracer provider exporting over OTLP gRPC, or a noop
// provider when tracing is disabled. The provider manager opens one
// "provider.chat" span per adapter attempt, tagged with the provider,
// model, request id, pass number and the classified error kind.
//
// # Sampling Strategies
//
//   - always: sample all traces (default)
//   - never: sample no traces
//   - ratio: sample a share of traces by trace id
//
// All samplers are parent-based, so a sampled caller keeps the whole trace.
//
// # Trace Context Propagation
//
// Outgoing upstream requests carry W3C traceparent/tracestate headers via
// Inject; the ops server extracts incoming context with HTTPMiddleware.
//
// # Usage
//
//	tracer, err := tracing.New(tracing.Config{
//	    Enabled:     true,
//	    Endpoint:    "localhost:4317",
//	    Insecure:    true,
//	    Sampler:     "ratio",
//	    SampleRatio: 0.1,
//	})
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
package tracing
