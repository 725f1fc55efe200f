package providers

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// FetchFunc loads the full model list from an upstream.
// Returned descriptors must already carry prefixed ids.
type FetchFunc func(ctx context.Context) ([]ModelDescriptor, error)

// CatalogRecorder receives catalog refresh and lookup events.
// It is satisfied by metrics.Collector.
type CatalogRecorder interface {
	RecordCatalogRefresh(provider string, success bool, size int)
	RecordCatalogLookup(provider string, hit bool)
}

// CatalogOptions configures a Catalog.
type CatalogOptions struct {
	// TTL bounds refresh frequency (default DefaultCatalogTTL)
	TTL time.Duration

	// Clock is the time source (default wall clock)
	Clock Clock

	// Logger receives recoverable refresh failures
	Logger *slog.Logger

	// Recorder receives refresh and lookup events (optional)
	Recorder CatalogRecorder

	// Disabled is the initial set of disabled prefixed model ids
	Disabled []string
}

// catalogSnapshot is immutable once published.
type catalogSnapshot struct {
	models    []ModelDescriptor
	ids       map[string]struct{}
	fetchedAt time.Time
}

// Catalog caches the model list of one adapter.
//
// Each refresh publishes a new immutable snapshot through an atomic pointer,
// so concurrent readers never observe a half-updated catalog. A failed
// refresh keeps serving the last known good snapshot and is not retried
// until the TTL elapses again.
type Catalog struct {
	provider string
	fetch    FetchFunc
	ttl      time.Duration
	clock    Clock
	logger   *slog.Logger
	recorder CatalogRecorder

	current   atomic.Pointer[catalogSnapshot]
	refreshMu sync.Mutex

	disabled   atomic.Pointer[map[string]struct{}]
	disabledMu sync.Mutex
}

// NewCatalog creates an empty catalog that loads lazily through fetch.
func NewCatalog(provider string, fetch FetchFunc, opts CatalogOptions) *Catalog {
	if opts.TTL <= 0 {
		opts.TTL = DefaultCatalogTTL
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "providers.catalog")
	}

	c := &Catalog{
		provider: provider,
		fetch:    fetch,
		ttl:      opts.TTL,
		clock:    opts.Clock,
		logger:   opts.Logger.With("provider", provider),
		recorder: opts.Recorder,
	}
	c.SetDisabled(opts.Disabled)
	return c
}

// Models returns the current catalog minus disabled models, refreshing it
// first when stale.
func (c *Catalog) Models(ctx context.Context) []ModelDescriptor {
	snap := c.ensureFresh(ctx)
	if snap == nil {
		return []ModelDescriptor{}
	}

	disabled := *c.disabled.Load()
	out := make([]ModelDescriptor, 0, len(snap.models))
	for _, m := range snap.models {
		if _, off := disabled[m.ID]; off {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Contains reports whether id is in the current catalog and not disabled.
func (c *Catalog) Contains(ctx context.Context, id string) bool {
	snap := c.ensureFresh(ctx)

	hit := false
	if snap != nil {
		_, hit = snap.ids[id]
	}
	if hit && c.IsDisabled(id) {
		hit = false
	}

	if c.recorder != nil {
		c.recorder.RecordCatalogLookup(c.provider, hit)
	}
	return hit
}

// Refresh forces a reload regardless of the TTL.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	return c.refreshLocked(ctx)
}

// Invalidate marks the current snapshot stale without discarding it.
func (c *Catalog) Invalidate() {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if snap := c.current.Load(); snap != nil {
		c.current.Store(&catalogSnapshot{models: snap.models, ids: snap.ids})
	}
}

// FetchedAt returns when the catalog was last refreshed (zero if never).
func (c *Catalog) FetchedAt() time.Time {
	if snap := c.current.Load(); snap != nil {
		return snap.fetchedAt
	}
	return time.Time{}
}

// Disable adds id to the disabled set.
func (c *Catalog) Disable(id string) {
	c.disabledMu.Lock()
	defer c.disabledMu.Unlock()

	prev := *c.disabled.Load()
	next := make(map[string]struct{}, len(prev)+1)
	for k := range prev {
		next[k] = struct{}{}
	}
	next[id] = struct{}{}
	c.disabled.Store(&next)
}

// SetDisabled replaces the disabled set.
func (c *Catalog) SetDisabled(ids []string) {
	c.disabledMu.Lock()
	defer c.disabledMu.Unlock()

	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}
	c.disabled.Store(&next)
}

// IsDisabled reports whether id is in the disabled set.
func (c *Catalog) IsDisabled(id string) bool {
	_, off := (*c.disabled.Load())[id]
	return off
}

// Disabled returns the disabled ids.
func (c *Catalog) Disabled() []string {
	set := *c.disabled.Load()
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

func (c *Catalog) fresh(snap *catalogSnapshot) bool {
	return snap != nil && !snap.fetchedAt.IsZero() && c.clock.Now().Sub(snap.fetchedAt) < c.ttl
}

func (c *Catalog) ensureFresh(ctx context.Context) *catalogSnapshot {
	if snap := c.current.Load(); c.fresh(snap) {
		return snap
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	if snap := c.current.Load(); c.fresh(snap) {
		return snap
	}
	_ = c.refreshLocked(ctx)
	return c.current.Load()
}

// refreshLocked must be called with refreshMu held.
func (c *Catalog) refreshLocked(ctx context.Context) error {
	prev := c.current.Load()

	models, err := c.fetch(ctx)
	if err != nil {
		if c.recorder != nil {
			c.recorder.RecordCatalogRefresh(c.provider, false, 0)
		}
		// A cancelled caller says nothing about the upstream.
		if ctx.Err() != nil {
			return err
		}

		known := 0
		next := &catalogSnapshot{fetchedAt: c.clock.Now()}
		if prev != nil {
			next.models, next.ids = prev.models, prev.ids
			known = len(prev.models)
		}
		c.current.Store(next)

		c.logger.Warn("model catalog refresh failed, serving last known catalog",
			"error", err,
			"known_models", known,
		)
		return err
	}

	ids := make(map[string]struct{}, len(models))
	deduped := make([]ModelDescriptor, 0, len(models))
	for _, m := range models {
		if _, dup := ids[m.ID]; dup {
			continue
		}
		ids[m.ID] = struct{}{}
		deduped = append(deduped, m)
	}

	c.current.Store(&catalogSnapshot{
		models:    deduped,
		ids:       ids,
		fetchedAt: c.clock.Now(),
	})

	if c.recorder != nil {
		c.recorder.RecordCatalogRefresh(c.provider, true, len(deduped))
	}
	c.logger.Debug("model catalog refreshed", "models", len(deduped))
	return nil
}
