package healthstore

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kone-AI/Kone-sub000/pkg/modelhealth"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	latest  map[string]modelhealth.Record
	history []HistoryEntry // oldest first
	closed  bool
	logger  *slog.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		latest: make(map[string]modelhealth.Record),
		logger: slog.Default().With("component", "healthstore.memory"),
	}
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, rec modelhealth.Record) error {
	if err := ctx.Err(); err != nil {
		return NewStorageError("memory", "save", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageError("memory", "save", errClosed)
	}
	s.latest[rec.ModelID] = rec
	s.history = append(s.history, HistoryEntry{ID: uuid.NewString(), Record: rec})
	return nil
}

// LoadLatest implements Store.
func (s *MemoryStore) LoadLatest(ctx context.Context) ([]modelhealth.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]modelhealth.Record, 0, len(s.latest))
	for _, rec := range s.latest {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelID < out[j].ModelID })
	return out, nil
}

// History implements Store.
func (s *MemoryStore) History(ctx context.Context, modelID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []HistoryEntry
	for i := len(s.history) - 1; i >= 0 && len(out) < limit; i-- {
		entry := s.history[i]
		if modelID != "" && entry.Record.ModelID != modelID {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// CountHistory implements Store.
func (s *MemoryStore) CountHistory(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.history)), nil
}

// DeleteBefore implements Store.
func (s *MemoryStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.history[:0]
	var deleted int64
	for _, entry := range s.history {
		if entry.Record.LastCheckedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, entry)
	}
	s.history = kept
	return deleted, nil
}

// DeleteExcess implements Store.
func (s *MemoryStore) DeleteExcess(ctx context.Context, keep int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// entries are appended in check order so the oldest come first
	excess := int64(len(s.history)) - keep
	if keep < 0 || excess <= 0 {
		return 0, nil
	}
	s.history = append([]HistoryEntry(nil), s.history[excess:]...)
	return excess, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return NewStorageError("memory", "ping", errClosed)
	}
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.logger.Debug("memory store closed")
	return nil
}
