package healthstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Kone-AI/Kone-sub000/pkg/providers"
)

// RetentionConfig contains configuration for the history pruner.
type RetentionConfig struct {
	// RetentionDays is the number of days of history to keep.
	// 0 means keep history forever.
	RetentionDays int

	// MaxRecords is the maximum number of history entries to keep.
	// 0 means unlimited.
	MaxRecords int64

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string
}

// DefaultRetentionConfig returns the default retention configuration.
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		RetentionDays: 30,
		PruneSchedule: "0 3 * * *",
	}
}

// Pruner enforces retention on health history. The latest record of each
// model is never pruned.
type Pruner struct {
	store  Store
	config RetentionConfig
	clock  providers.Clock
	logger *slog.Logger
}

// NewPruner creates a new history pruner.
func NewPruner(store Store, config RetentionConfig, clock providers.Clock) *Pruner {
	if clock == nil {
		clock = providers.SystemClock()
	}
	return &Pruner{
		store:  store,
		config: config,
		clock:  clock,
		logger: slog.Default().With("component", "healthstore.retention"),
	}
}

// Config returns the retention configuration.
func (p *Pruner) Config() RetentionConfig {
	return p.config
}

// Prune deletes history entries older than the retention period, then the
// oldest entries beyond MaxRecords. It returns the total deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		cutoff := p.clock.Now().AddDate(0, 0, -p.config.RetentionDays)
		deleted, err := p.store.DeleteBefore(ctx, cutoff)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
		p.logger.Debug("pruned history by age",
			"deleted_count", deleted,
			"cutoff_time", cutoff,
		)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.store.DeleteExcess(ctx, p.config.MaxRecords)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
		p.logger.Debug("pruned history by count",
			"deleted_count", deleted,
			"max_records", p.config.MaxRecords,
		)
	}

	if totalDeleted > 0 {
		p.logger.Info("health history pruning completed",
			"total_deleted", totalDeleted,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}

	return totalDeleted, nil
}
