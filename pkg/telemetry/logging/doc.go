// Package logging builds the structured logger used across the gateway.
//
// New returns a plain *slog.Logger whose handler adds the request fields
// stored in the context (request_id, provider, model) and, when
// RedactSecrets is set, scrubs provider credentials before anything is
// written:
//
//   - sk-abc123..., gsk_..., sk-ant-...  → sk-***
//   - Authorization: Bearer xyz         → Bearer ***
//   - ?key=abc                          → ?key=***
//   - fields named api_key, token, ...  → first four characters kept
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:         "info",
//	    Format:        "json",
//	    RedactSecrets: true,
//	})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "request routed", "provider", "groq")
package logging
