package healthstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	_ "modernc.org/sqlite"          // registers "sqlite"

	"github.com/Kone-AI/Kone-sub000/pkg/modelhealth"
)

// SQLite driver names.
const (
	DriverModernc = "sqlite"
	DriverCgo     = "sqlite3"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver selects the database/sql driver.
	// Default: "sqlite"
	Driver string

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Path:        "data/health.db",
		Driver:      DriverModernc,
		WALMode:     true,
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens the database, creating the file and schema when
// missing.
func NewSQLiteStore(config SQLiteConfig) (*SQLiteStore, error) {
	if config.Path == "" {
		return nil, NewStorageError("sqlite", "open", fmt.Errorf("db path cannot be empty"))
	}
	if config.Driver == "" {
		config.Driver = DriverModernc
	}
	if config.Driver != DriverModernc && config.Driver != DriverCgo {
		return nil, NewStorageError("sqlite", "open", fmt.Errorf("unknown driver %q", config.Driver))
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "healthstore.sqlite")

	if dir := filepath.Dir(config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, NewStorageError("sqlite", "mkdir", err)
		}
	}

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite health store initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return NewStorageError("sqlite", "enable_wal", err)
		}
	}

	_, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds()))
	if err != nil {
		return NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err = s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, rec modelhealth.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NewStorageError("sqlite", "save", err)
	}
	defer tx.Rollback()

	latency := nullLatency(rec.LatencyMs)
	lastError := nullString(rec.LastError)
	checkedAt := rec.LastCheckedAt.UnixMilli()

	if _, err := tx.ExecContext(ctx, upsertLatest,
		rec.ModelID, string(rec.Status), latency, checkedAt, lastError, rec.Attempts,
	); err != nil {
		return NewStorageError("sqlite", "save", err)
	}

	if _, err := tx.ExecContext(ctx, insertHistory,
		uuid.NewString(), rec.ModelID, string(rec.Status), latency, checkedAt, lastError, rec.Attempts,
	); err != nil {
		return NewStorageError("sqlite", "save", err)
	}

	if err := tx.Commit(); err != nil {
		return NewStorageError("sqlite", "save", err)
	}
	return nil
}

// LoadLatest implements Store.
func (s *SQLiteStore) LoadLatest(ctx context.Context) ([]modelhealth.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectLatest)
	if err != nil {
		return nil, NewStorageError("sqlite", "load", err)
	}
	defer rows.Close()

	records := []modelhealth.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, NewStorageError("sqlite", "scan", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "load", err)
	}
	return records, nil
}

// History implements Store.
func (s *SQLiteStore) History(ctx context.Context, modelID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := "SELECT id, model_id, status, latency_ms, checked_at, last_error, attempts FROM health_history"
	var args []interface{}
	if modelID != "" {
		query += " WHERE model_id = ?"
		args = append(args, modelID)
	}
	query += fmt.Sprintf(" ORDER BY checked_at DESC, rowid DESC LIMIT %d", limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "history", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var id string
		rec, err := scanRecord(rows, &id)
		if err != nil {
			return nil, NewStorageError("sqlite", "scan", err)
		}
		entries = append(entries, HistoryEntry{ID: id, Record: rec})
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "history", err)
	}
	return entries, nil
}

// CountHistory implements Store.
func (s *SQLiteStore) CountHistory(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM health_history").Scan(&count); err != nil {
		return 0, NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// DeleteBefore implements Store.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM health_history WHERE checked_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, NewStorageError("sqlite", "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// DeleteExcess implements Store.
func (s *SQLiteStore) DeleteExcess(ctx context.Context, keep int64) (int64, error) {
	if keep < 0 {
		return 0, nil
	}
	result, err := s.db.ExecContext(ctx, deleteExcess, keep)
	if err != nil {
		return 0, NewStorageError("sqlite", "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite health store closed")
	return nil
}

// scanRecord scans one row. When prefix destinations are given they receive
// the leading columns.
func scanRecord(rows *sql.Rows, prefix ...interface{}) (modelhealth.Record, error) {
	var (
		rec       modelhealth.Record
		status    string
		latency   sql.NullInt64
		checkedAt int64
		lastError sql.NullString
	)

	dest := append(prefix, &rec.ModelID, &status, &latency, &checkedAt, &lastError, &rec.Attempts)
	if err := rows.Scan(dest...); err != nil {
		return rec, err
	}

	rec.Status = modelhealth.Status(status)
	if latency.Valid {
		ms := latency.Int64
		rec.LatencyMs = &ms
	}
	rec.LastCheckedAt = time.UnixMilli(checkedAt).UTC()
	if lastError.Valid {
		rec.LastError = lastError.String
	}
	return rec, nil
}

func nullLatency(ms *int64) interface{} {
	if ms == nil {
		return nil
	}
	return *ms
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
