package providerfactory

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Kone-AI/Kone-sub000/pkg/providers"
	"github.com/Kone-AI/Kone-sub000/pkg/telemetry/logging"
	"github.com/Kone-AI/Kone-sub000/pkg/telemetry/tracing"
)

// Manager defaults.
const (
	DefaultProviderCooldown = time.Hour
	DefaultRetryDelay       = time.Second
	DefaultMaxPasses        = 3
)

// Outcomes reported to Recorder.RecordProviderRequest.
const (
	OutcomeSuccess     = "success"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// Recorder receives routing events. It is satisfied by metrics.Collector.
type Recorder interface {
	RecordProviderRequest(provider, model, outcome string, duration time.Duration)
	RecordProviderError(provider string, kind providers.ErrorKind)
	SetProviderDisabled(provider string, disabled bool)
}

// ManagerConfig holds the routing knobs of a Manager.
type ManagerConfig struct {
	// ProviderCooldown is how long a rate-limited provider is skipped
	ProviderCooldown time.Duration

	// RetryDelay is the pause between full passes over the adapters
	RetryDelay time.Duration

	// MaxPasses is the number of full passes before giving up
	MaxPasses int
}

// ApplyDefaults fills zero-valued fields.
func (c *ManagerConfig) ApplyDefaults() {
	if c.ProviderCooldown <= 0 {
		c.ProviderCooldown = DefaultProviderCooldown
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.MaxPasses <= 0 {
		c.MaxPasses = DefaultMaxPasses
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithClock sets the time source.
func WithClock(clock providers.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithTracer sets the tracer used for per-attempt spans.
func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) { m.tracer = t }
}

// ProviderStatus is the availability of one provider as seen by the manager.
type ProviderStatus struct {
	Name          string               `json:"name"`
	DisabledUntil time.Time            `json:"disabled_until,omitzero"`
	LastError     string               `json:"last_error,omitempty"`
	LastRequestAt time.Time            `json:"last_request_at,omitzero"`
	Models        int                  `json:"models"`
	Keys          []providers.KeyState `json:"keys,omitempty"`
}

// availability is the mutable routing state of one provider.
type availability struct {
	disabledUntil time.Time
	cooldownCause error
	lastError     string
	lastRequestAt time.Time
}

// Manager routes chat requests across adapters.
//
// Adapters are tried in registration order. A provider that fails with a
// rate-limit-like error is skipped for ProviderCooldown; any other failure
// moves on to the next adapter. When a full pass fails, the manager waits
// RetryDelay and starts over, up to MaxPasses passes.
//
// Manager is safe for concurrent use. Availability state is shared, so a
// rate limit observed by one call is honored by every other call at once.
type Manager struct {
	adapters []providers.Adapter
	cfg      ManagerConfig

	logger   *slog.Logger
	clock    providers.Clock
	recorder Recorder
	tracer   trace.Tracer

	mu    sync.Mutex
	state map[string]*availability
}

// NewManager creates a manager over adapters. The slice order is the
// routing preference order.
func NewManager(adapters []providers.Adapter, cfg ManagerConfig, opts ...Option) *Manager {
	cfg.ApplyDefaults()

	m := &Manager{
		adapters: append([]providers.Adapter(nil), adapters...),
		cfg:      cfg,
		state:    make(map[string]*availability, len(adapters)),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default().With("component", "providerfactory.manager")
	}
	if m.clock == nil {
		m.clock = providers.SystemClock()
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer("github.com/Kone-AI/Kone-sub000/pkg/providerfactory")
	}

	for _, a := range m.adapters {
		m.state[a.Name()] = &availability{}
	}

	m.logger.Info("provider manager initialized",
		"providers", len(m.adapters),
		"provider_cooldown", cfg.ProviderCooldown,
		"max_passes", cfg.MaxPasses,
	)
	return m
}

// Adapters returns the registered adapters in routing order.
func (m *Manager) Adapters() []providers.Adapter {
	return append([]providers.Adapter(nil), m.adapters...)
}

// Adapter returns the adapter registered under name.
func (m *Manager) Adapter(name string) (providers.Adapter, bool) {
	for _, a := range m.adapters {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// ProviderCount returns the number of registered adapters.
func (m *Manager) ProviderCount() int {
	return len(m.adapters)
}

// ListAvailableModels merges the catalogs of every adapter. Catalogs are
// fetched concurrently; duplicates are resolved in registration order, first
// seen wins. An adapter that panics contributes no models.
func (m *Manager) ListAvailableModels(ctx context.Context) []providers.ModelDescriptor {
	results := make([][]providers.ModelDescriptor, len(m.adapters))

	var g errgroup.Group
	for i, a := range m.adapters {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("model listing panicked",
						"provider", a.Name(),
						"panic", r,
						"stack", string(debug.Stack()),
					)
				}
			}()
			results[i] = a.GetModels(ctx)
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]struct{})
	var merged []providers.ModelDescriptor
	for _, models := range results {
		for _, model := range models {
			if _, dup := seen[model.ID]; dup {
				continue
			}
			seen[model.ID] = struct{}{}
			merged = append(merged, model)
		}
	}
	if merged == nil {
		merged = []providers.ModelDescriptor{}
	}
	return merged
}

// Chat routes a non-streaming completion for opts.Model.
func (m *Manager) Chat(ctx context.Context, messages []providers.Message, opts providers.ChatOptions) (*providers.ChatResponse, error) {
	return route(ctx, m, opts.Model, false, func(ctx context.Context, a providers.Adapter) (*providers.ChatResponse, error) {
		return a.Chat(ctx, messages, opts)
	})
}

// ChatStream routes a streaming completion for opts.Model. Only opening the
// stream is routed; errors reported mid-stream reach the caller as-is.
func (m *Manager) ChatStream(ctx context.Context, messages []providers.Message, opts providers.ChatOptions) (providers.Stream, error) {
	return route(ctx, m, opts.Model, true, func(ctx context.Context, a providers.Adapter) (providers.Stream, error) {
		return a.ChatStream(ctx, messages, opts)
	})
}

// route runs the pass loop shared by Chat and ChatStream.
func route[T any](ctx context.Context, m *Manager, model string, stream bool, call func(context.Context, providers.Adapter) (T, error)) (T, error) {
	var zero T

	if model == "" {
		return zero, &providers.ValidationError{Field: "model", Message: "model is required"}
	}
	if logging.GetRequestID(ctx) == "" {
		ctx = logging.WithRequestID(ctx, uuid.NewString())
	}
	ctx = logging.WithModel(ctx, model)
	logger := m.logger.With("request_id", logging.GetRequestID(ctx), "model", model)

	var (
		lastErr  error
		cooling  error
		excluded = make(map[string]bool)
		handled  bool
		passes   int
	)

	for pass := 1; pass <= m.cfg.MaxPasses; pass++ {
		passes = pass
		if pass > 1 {
			logger.Debug("all providers failed, retrying", "pass", pass, "delay", m.cfg.RetryDelay)
			if err := providers.Sleep(ctx, m.clock, m.cfg.RetryDelay); err != nil {
				return zero, err
			}
		}

		// live counts candidates worth another pass.
		live := 0
		for _, a := range m.adapters {
			name := a.Name()
			if excluded[name] || !a.CanHandle(ctx, model) {
				continue
			}
			handled = true

			if until, cause := m.cooldown(name); !until.IsZero() {
				logger.Debug("provider cooling down, skipping", "provider", name, "until", until)
				if cooling == nil {
					cooling = cause
				}
				continue
			}
			if err := m.waitForSpacing(ctx, a); err != nil {
				return zero, err
			}

			result, err := attempt(ctx, m, a, model, pass, stream, call)
			if err == nil {
				m.markSuccess(name)
				return result, nil
			}
			if ctx.Err() != nil {
				return zero, ctx.Err()
			}
			lastErr = err

			switch kind := providers.KindOf(err); {
			case kind == providers.KindInvalidRequest:
				return zero, err

			case providers.IsRateLimitLike(err):
				until := m.disable(name, err)
				logger.Warn("provider rate limited, cooling down",
					"provider", name,
					"until", until,
					"error", err,
				)

			case kind == providers.KindUnauthorized || kind == providers.KindQuotaExceeded:
				excluded[name] = true
				m.setLastError(name, err)
				logger.Warn("provider failed permanently for this model",
					"provider", name,
					"kind", kind,
					"error", err,
				)

			default:
				live++
				m.setLastError(name, err)
				logger.Debug("provider failed, trying next", "provider", name, "error", err)
			}
		}

		if !handled {
			return zero, &providers.NoProviderError{Model: model}
		}
		if live == 0 {
			break
		}
	}

	// Only cooling providers were left: surface why they are cooling.
	if lastErr == nil {
		lastErr = &providers.NoProviderError{Model: model, Cause: cooling}
	}
	logger.Error("all providers exhausted", "passes", passes, "error", lastErr)
	return zero, lastErr
}

// attempt performs one adapter call inside a span and records metrics.
func attempt[T any](ctx context.Context, m *Manager, a providers.Adapter, model string, pass int, stream bool, call func(context.Context, providers.Adapter) (T, error)) (T, error) {
	name := a.Name()

	ctx, span := m.tracer.Start(ctx, "provider.chat")
	defer span.End()
	tracing.SetProviderAttributes(span, name, model)
	tracing.SetRequestAttributes(span, logging.GetRequestID(ctx), stream)
	tracing.SetRetryAttribute(span, pass-1)

	start := m.clock.Now()
	result, err := call(ctx, a)
	elapsed := m.clock.Now().Sub(start)

	tracing.SetError(span, err)
	tracing.SetErrorKind(span, string(providers.KindOf(err)))
	tracing.SetStatus(span, err)

	if m.recorder != nil {
		outcome := OutcomeSuccess
		switch {
		case err == nil:
		case providers.IsRateLimitLike(err):
			outcome = OutcomeRateLimited
		default:
			outcome = OutcomeError
		}
		m.recorder.RecordProviderRequest(name, model, outcome, elapsed)
		if err != nil {
			m.recorder.RecordProviderError(name, providers.KindOf(err))
		}
	}
	return result, err
}

// cooldown returns the end of name's cooldown and the error that started it,
// or the zero time when name is available. An elapsed cooldown is cleared on
// observation.
func (m *Manager) cooldown(name string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.state[name]
	if st.disabledUntil.IsZero() {
		return time.Time{}, nil
	}
	if !m.clock.Now().Before(st.disabledUntil) {
		st.disabledUntil = time.Time{}
		st.cooldownCause = nil
		if m.recorder != nil {
			m.recorder.SetProviderDisabled(name, false)
		}
		m.logger.Info("provider cooldown expired", "provider", name)
		return time.Time{}, nil
	}
	return st.disabledUntil, st.cooldownCause
}

func (m *Manager) disable(name string, err error) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.state[name]
	st.disabledUntil = m.clock.Now().Add(m.cfg.ProviderCooldown)
	st.cooldownCause = err
	st.lastError = err.Error()
	if m.recorder != nil {
		m.recorder.SetProviderDisabled(name, true)
	}
	return st.disabledUntil
}

func (m *Manager) setLastError(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[name].lastError = err.Error()
}

func (m *Manager) markSuccess(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[name].lastRequestAt = m.clock.Now()
}

// waitForSpacing sleeps until the adapter's minimum request interval has
// passed since its last successful request.
func (m *Manager) waitForSpacing(ctx context.Context, a providers.Adapter) error {
	spacer, ok := a.(providers.RequestSpacer)
	if !ok {
		return nil
	}
	interval := spacer.MinRequestInterval()
	if interval <= 0 {
		return nil
	}

	m.mu.Lock()
	last := m.state[a.Name()].lastRequestAt
	m.mu.Unlock()
	if last.IsZero() {
		return nil
	}

	wait := interval - m.clock.Now().Sub(last)
	if wait <= 0 {
		return nil
	}
	m.logger.Debug("spacing request", "provider", a.Name(), "wait", wait)
	return providers.Sleep(ctx, m.clock, wait)
}

// ResetProvider clears the cooldown and last error of name and makes its
// benched API keys eligible again.
func (m *Manager) ResetProvider(name string) error {
	m.mu.Lock()
	st, ok := m.state[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("provider %q not found", name)
	}
	st.disabledUntil = time.Time{}
	st.cooldownCause = nil
	st.lastError = ""
	m.mu.Unlock()

	if m.recorder != nil {
		m.recorder.SetProviderDisabled(name, false)
	}
	if a, ok := m.Adapter(name); ok {
		if kr, ok := a.(providers.KeyResetter); ok {
			kr.ResetKeys()
		}
	}
	m.logger.Info("provider reset", "provider", name)
	return nil
}

// Status returns the availability of every provider in routing order.
// Model counts come from the cached catalogs and may trigger a refresh.
func (m *Manager) Status(ctx context.Context) []ProviderStatus {
	out := make([]ProviderStatus, 0, len(m.adapters))
	now := m.clock.Now()

	for _, a := range m.adapters {
		m.mu.Lock()
		st := *m.state[a.Name()]
		m.mu.Unlock()

		status := ProviderStatus{
			Name:          a.Name(),
			LastError:     st.lastError,
			LastRequestAt: st.lastRequestAt,
			Models:        len(a.GetModels(ctx)),
		}
		if now.Before(st.disabledUntil) {
			status.DisabledUntil = st.disabledUntil
		}
		if kr, ok := a.(providers.KeyReporter); ok {
			status.Keys = kr.KeyStates()
		}
		out = append(out, status)
	}
	return out
}

// ApplyDisabledModels replaces the disabled-model set of each named adapter.
// Adapters absent from disabled get an empty set.
func (m *Manager) ApplyDisabledModels(disabled map[string][]string) {
	for _, a := range m.adapters {
		md, ok := a.(providers.ModelDisabler)
		if !ok {
			continue
		}
		md.SetDisabledModels(disabled[a.Name()])
		m.logger.Debug("disabled models applied", "provider", a.Name(), "count", len(disabled[a.Name()]))
	}
}

// Close closes every adapter.
func (m *Manager) Close() error {
	var errs []error
	for _, a := range m.adapters {
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close provider %q: %w", a.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing providers: %v", errs)
	}

	m.logger.Info("provider manager closed")
	return nil
}
