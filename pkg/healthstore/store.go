package healthstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/Kone-AI/Kone-sub000/pkg/modelhealth"
)

// HistoryEntry is one appended check result.
type HistoryEntry struct {
	ID     string             `json:"id"`
	Record modelhealth.Record `json:"record"`
}

// Store persists health records.
type Store interface {
	// Save upserts the latest record of the model and appends it to history.
	Save(ctx context.Context, rec modelhealth.Record) error

	// LoadLatest returns the latest record of every model, sorted by model id.
	LoadLatest(ctx context.Context) ([]modelhealth.Record, error)

	// History returns up to limit entries of one model, newest first. An
	// empty modelID returns entries of every model; limit <= 0 means 100.
	History(ctx context.Context, modelID string, limit int) ([]HistoryEntry, error)

	// CountHistory returns the number of history entries.
	CountHistory(ctx context.Context) (int64, error)

	// DeleteBefore removes history entries checked before cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteExcess removes the oldest history entries beyond keep.
	DeleteExcess(ctx context.Context, keep int64) (int64, error)

	// Ping verifies the store is usable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// defaultHistoryLimit applies when History is called without a limit.
const defaultHistoryLimit = 100

// Persist returns a checker callback that saves every record to store.
// Save failures are logged and do not interrupt the cycle.
func Persist(store Store, logger *slog.Logger) modelhealth.Callback {
	if logger == nil {
		logger = slog.Default()
	}
	return func(modelID string, rec modelhealth.Record) {
		if err := store.Save(context.Background(), rec); err != nil {
			logger.Error("failed to persist health record",
				"model", modelID,
				"error", err,
			)
		}
	}
}

// WarmStart loads the latest records from store into checker.
func WarmStart(ctx context.Context, store Store, checker *modelhealth.Checker) error {
	records, err := store.LoadLatest(ctx)
	if err != nil {
		return err
	}
	checker.Restore(records)
	return nil
}
