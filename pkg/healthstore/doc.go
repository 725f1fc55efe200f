// Package healthstore persists model health records.
//
// Every check result is written twice: the latest record per model is
// upserted into a small table that is loaded on boot to warm-start the
// checker, and the same result is appended to a history table that the
// retention pruner trims on a cron schedule.
//
// # Backends
//
// SQLiteStore works with either SQLite driver:
//   - "sqlite": modernc.org/sqlite, pure Go (default)
//   - "sqlite3": github.com/mattn/go-sqlite3, requires cgo
//
// MemoryStore keeps everything in process and is used when persistence is
// disabled and in tests.
//
// # Usage
//
//	store, err := healthstore.NewSQLiteStore(healthstore.SQLiteConfig{Path: "data/health.db"})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	if err := healthstore.WarmStart(ctx, store, checker); err != nil {
//	    logger.Warn("warm start failed", "error", err)
//	}
//	checker.StartHealthChecks(ctx, healthstore.Persist(store, logger))
package healthstore
