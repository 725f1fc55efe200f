package modelhealth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Kone-AI/Kone-sub000/pkg/providers"
)

// Checker defaults.
const (
	DefaultInterval    = 7200 * time.Second
	DefaultModelDelay  = 26 * time.Second
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 5 * time.Second
	DefaultMinWords    = 2
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 50
	DefaultTimeout     = 60 * time.Second
)

// Router is the routing surface the checker probes through. It is
// satisfied by *providerfactory.Manager.
type Router interface {
	ListAvailableModels(ctx context.Context) []providers.ModelDescriptor
	Chat(ctx context.Context, messages []providers.Message, opts providers.ChatOptions) (*providers.ChatResponse, error)
	ChatStream(ctx context.Context, messages []providers.Message, opts providers.ChatOptions) (providers.Stream, error)
}

// Recorder receives check results. It is satisfied by metrics.Collector.
type Recorder interface {
	RecordHealthCheck(model, status string, latency time.Duration, attempts int)
}

// Callback is invoked after every model test.
type Callback func(modelID string, rec Record)

// Config holds the checker knobs.
type Config struct {
	// Interval is the time between cycles
	Interval time.Duration

	// ModelDelay is the pause between two model tests
	ModelDelay time.Duration

	// MaxRetries is the number of retries after the first attempt
	MaxRetries int

	// RetryDelay is the pause between attempts
	RetryDelay time.Duration

	// MinWords is the minimum word count of a valid reply
	MinWords int

	// Temperature and MaxTokens are sent with every probe
	Temperature float64
	MaxTokens   int

	// Timeout bounds a single attempt
	Timeout time.Duration

	// Stream probes through ChatStream instead of Chat
	Stream bool

	// Prompts overrides DefaultPrompts
	Prompts []string
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.ModelDelay < 0 {
		c.ModelDelay = 0
	} else if c.ModelDelay == 0 {
		c.ModelDelay = DefaultModelDelay
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.MinWords <= 0 {
		c.MinWords = DefaultMinWords
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if len(c.Prompts) == 0 {
		c.Prompts = DefaultPrompts
	}
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) { c.logger = logger }
}

// WithClock sets the time source.
func WithClock(clock providers.Clock) Option {
	return func(c *Checker) { c.clock = clock }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Checker) { c.recorder = r }
}

// WithSeed makes prompt selection deterministic.
func WithSeed(seed uint64) Option {
	return func(c *Checker) { c.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// Checker periodically tests every known model.
//
// At most one cycle runs at a time; CheckAllModels returns false without
// doing anything while another cycle is in progress.
type Checker struct {
	router   Router
	cfg      Config
	logger   *slog.Logger
	clock    providers.Clock
	recorder Recorder

	rngMu sync.Mutex
	rng   *rand.Rand

	running atomic.Bool

	mu      sync.RWMutex
	records map[string]Record

	lifeMu    sync.Mutex
	scheduler *cron.Cron
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewChecker creates a checker probing through router.
func NewChecker(router Router, cfg Config, opts ...Option) *Checker {
	cfg.ApplyDefaults()

	c := &Checker{
		router:  router,
		cfg:     cfg,
		records: make(map[string]Record),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default().With("component", "modelhealth")
	}
	if c.clock == nil {
		c.clock = providers.SystemClock()
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return c
}

// Config returns the effective configuration.
func (c *Checker) Config() Config {
	return c.cfg
}

// Running reports whether a cycle is in progress.
func (c *Checker) Running() bool {
	return c.running.Load()
}

// CheckAllModels runs one full cycle. It returns false when another cycle
// was already running and this call was skipped.
func (c *Checker) CheckAllModels(ctx context.Context, cb Callback) bool {
	if !c.running.CompareAndSwap(false, true) {
		c.logger.Debug("health check cycle already running, skipping")
		return false
	}
	defer c.running.Store(false)

	models := c.router.ListAvailableModels(ctx)
	start := c.clock.Now()
	c.logger.Info("health check cycle started", "models", len(models))

	counts := make(map[Status]int)
	for i, model := range models {
		if i > 0 {
			if err := providers.Sleep(ctx, c.clock, c.cfg.ModelDelay); err != nil {
				c.logger.Info("health check cycle cancelled", "checked", i, "models", len(models))
				return true
			}
		}

		rec := c.TestModel(ctx, model.ID)
		counts[rec.Status]++
		if cb != nil {
			cb(model.ID, rec)
		}
		if ctx.Err() != nil {
			c.logger.Info("health check cycle cancelled", "checked", i+1, "models", len(models))
			return true
		}
	}

	c.logger.Info("health check cycle finished",
		"models", len(models),
		"operational", counts[StatusOperational],
		"limited", counts[StatusLimited],
		"unknown", counts[StatusUnknown],
		"error", counts[StatusError],
		"duration", c.clock.Now().Sub(start),
	)
	return true
}

// TestModel probes one model, retrying short replies and transient errors,
// and stores the resulting record.
func (c *Checker) TestModel(ctx context.Context, modelID string) Record {
	return c.testModel(ctx, modelID, 1)
}

func (c *Checker) testModel(ctx context.Context, modelID string, attempt int) Record {
	latency, err := c.probe(ctx, modelID)
	if err == nil {
		ms := latency.Milliseconds()
		return c.store(Record{
			ModelID:       modelID,
			Status:        StatusOperational,
			LatencyMs:     &ms,
			LastCheckedAt: c.clock.Now(),
			Attempts:      attempt,
		})
	}

	if attempt <= c.cfg.MaxRetries && retryable(err) && ctx.Err() == nil {
		c.logger.Debug("model check failed, retrying",
			"model", modelID,
			"attempt", attempt,
			"error", err,
		)
		if providers.Sleep(ctx, c.clock, c.cfg.RetryDelay) == nil {
			return c.testModel(ctx, modelID, attempt+1)
		}
	}

	rec := c.store(Record{
		ModelID:       modelID,
		Status:        classify(err),
		LastCheckedAt: c.clock.Now(),
		LastError:     err.Error(),
		Attempts:      attempt,
	})
	c.logger.Warn("model check failed",
		"model", modelID,
		"status", rec.Status,
		"attempts", attempt,
		"error", err,
	)
	return rec
}

// probe sends one synthetic prompt and validates the reply.
func (c *Checker) probe(ctx context.Context, modelID string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	messages := []providers.Message{{Role: providers.RoleUser, Content: c.prompt()}}
	opts := providers.ChatOptions{
		Model:       modelID,
		Temperature: providers.Float64(c.cfg.Temperature),
		MaxTokens:   c.cfg.MaxTokens,
	}

	start := c.clock.Now()
	var (
		reply any
		err   error
	)
	if c.cfg.Stream {
		var stream providers.Stream
		stream, err = c.router.ChatStream(ctx, messages, opts)
		if err == nil {
			reply, err = providers.CollectStream(ctx, stream)
		}
	} else {
		reply, err = c.router.Chat(ctx, messages, opts)
	}
	latency := c.clock.Now().Sub(start)
	if err != nil {
		return 0, err
	}

	text := strings.TrimSpace(extractText(reply))
	if words := len(strings.Fields(text)); words < c.cfg.MinWords {
		return 0, &invalidResponseError{words: words, min: c.cfg.MinWords}
	}
	return latency, nil
}

func (c *Checker) prompt() string {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return c.cfg.Prompts[c.rng.IntN(len(c.cfg.Prompts))]
}

func (c *Checker) store(rec Record) Record {
	c.mu.Lock()
	c.records[rec.ModelID] = rec
	c.mu.Unlock()

	if c.recorder != nil {
		c.recorder.RecordHealthCheck(rec.ModelID, string(rec.Status), rec.Latency(), rec.Attempts)
	}
	return rec
}

// GetStatus returns a snapshot of every record, sorted by model id.
func (c *Checker) GetStatus() []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Record, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelID < out[j].ModelID })
	return out
}

// Get returns the record of one model.
func (c *Checker) Get(modelID string) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[modelID]
	return rec, ok
}

// Restore seeds the status map with previously persisted records. Records
// already present are kept.
func (c *Checker) Restore(records []Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, rec := range records {
		if _, ok := c.records[rec.ModelID]; ok {
			continue
		}
		c.records[rec.ModelID] = rec
	}
	c.logger.Info("health records restored", "records", len(records))
}

// StartHealthChecks runs one cycle immediately in the background and then
// one every Interval until StopHealthChecks is called or ctx is done.
func (c *Checker) StartHealthChecks(ctx context.Context, cb Callback) error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if c.scheduler != nil {
		return errors.New("health checks already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	scheduler := cron.New()
	_, err := scheduler.AddFunc(fmt.Sprintf("@every %s", c.cfg.Interval), func() {
		c.CheckAllModels(ctx, cb)
	})
	if err != nil {
		cancel()
		return fmt.Errorf("failed to schedule health checks: %w", err)
	}

	c.scheduler = scheduler
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.CheckAllModels(ctx, cb)
	}()
	scheduler.Start()

	c.logger.Info("health checks started", "interval", c.cfg.Interval, "model_delay", c.cfg.ModelDelay)
	return nil
}

// StopHealthChecks cancels the schedule and any running cycle, then waits
// for it to return. It is safe to call more than once.
func (c *Checker) StopHealthChecks() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if c.scheduler == nil {
		return
	}

	c.cancel()
	<-c.scheduler.Stop().Done()
	c.wg.Wait()

	c.scheduler = nil
	c.cancel = nil
	c.logger.Info("health checks stopped")
}

// NextRun returns the next scheduled cycle, or the zero time when stopped.
func (c *Checker) NextRun() time.Time {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if c.scheduler == nil {
		return time.Time{}
	}
	entries := c.scheduler.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// extractText pulls reply text out of the shapes a probe can produce.
func extractText(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case string:
		return r
	case *providers.ChatResponse:
		return r.Content()
	case *providers.ChatChunk:
		if r == nil {
			return ""
		}
		return r.Delta.Content
	case []*providers.ChatChunk:
		var sb strings.Builder
		for _, chunk := range r {
			if chunk != nil {
				sb.WriteString(chunk.Delta.Content)
			}
		}
		return sb.String()
	case fmt.Stringer:
		return r.String()
	default:
		return ""
	}
}

// invalidResponseError reports a reply below the word minimum.
type invalidResponseError struct {
	words int
	min   int
}

func (e *invalidResponseError) Error() string {
	return fmt.Sprintf("response too short: %d words, want at least %d", e.words, e.min)
}

var transientStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// retryable reports whether a failed probe is worth another attempt.
func retryable(err error) bool {
	var invalid *invalidResponseError
	if errors.As(err, &invalid) {
		return true
	}
	switch providers.KindOf(err) {
	case providers.KindTimeout, providers.KindRateLimited:
		return true
	}
	return transientStatuses[providers.StatusCode(err)]
}

// classify maps a final failure to a status.
func classify(err error) Status {
	switch {
	case providers.KindOf(err) == providers.KindTimeout:
		return StatusUnknown
	case providers.IsRateLimitLike(err):
		return StatusLimited
	default:
		return StatusError
	}
}
