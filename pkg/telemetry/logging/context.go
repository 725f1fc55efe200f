package logging

import "context"

type contextKey int

const (
	requestIDKey contextKey = iota
	modelKey
)

// WithRequestID tags ctx with the id of the request being served. Records
// logged through a *Context method carry it as "request_id".
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request id of ctx, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithModel tags ctx with the prefixed model id being routed.
func WithModel(ctx context.Context, modelID string) context.Context {
	return context.WithValue(ctx, modelKey, modelID)
}

// GetModel returns the model id of ctx, or "".
func GetModel(ctx context.Context) string {
	model, _ := ctx.Value(modelKey).(string)
	return model
}

// contextFields returns the key/value pairs the handler adds to records
// logged with ctx.
func contextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}

	var fields []any
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, "request_id", id)
	}
	if model := GetModel(ctx); model != "" {
		fields = append(fields, "model", model)
	}
	return fields
}
