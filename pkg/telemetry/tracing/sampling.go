package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Sampler strategies accepted in Config.Sampler.
const (
	// SamplerAlways records every trace
	SamplerAlways = "always"

	// SamplerNever records nothing; spans are still created and propagated
	SamplerNever = "never"

	// SamplerRatio records a fraction of traces chosen by trace id
	SamplerRatio = "ratio"
)

// ValidateSampler reports whether strategy and ratio form a usable sampler.
// The ratio is only checked for SamplerRatio.
func ValidateSampler(strategy string, ratio float64) error {
	switch strategy {
	case SamplerAlways, SamplerNever:
		return nil
	case SamplerRatio:
		if ratio < 0 || ratio > 1 {
			return fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %g", ratio)
		}
		return nil
	default:
		return fmt.Errorf("unknown sampler %q (valid: always, never, ratio)", strategy)
	}
}

// createSampler builds the sampler for strategy. Root spans use the
// strategy; child spans follow their parent so a request routed across
// several providers is kept or dropped as a whole.
func createSampler(strategy string, ratio float64) (sdktrace.Sampler, error) {
	if err := ValidateSampler(strategy, ratio); err != nil {
		return nil, err
	}

	var root sdktrace.Sampler
	switch strategy {
	case SamplerAlways:
		root = sdktrace.AlwaysSample()
	case SamplerNever:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(ratio)
	}
	return sdktrace.ParentBased(root), nil
}
