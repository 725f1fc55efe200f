package healthstore

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the health database schema.
// Timestamps are stored as unix milliseconds so both drivers read them back
// identically.
const Schema = `
-- Latest result per model
CREATE TABLE IF NOT EXISTS health_latest (
    model_id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    latency_ms INTEGER,
    last_checked_at INTEGER NOT NULL,
    last_error TEXT,
    attempts INTEGER NOT NULL DEFAULT 0
);

-- Every check result
CREATE TABLE IF NOT EXISTS health_history (
    id TEXT PRIMARY KEY,
    model_id TEXT NOT NULL,
    status TEXT NOT NULL,
    latency_ms INTEGER,
    checked_at INTEGER NOT NULL,
    last_error TEXT,
    attempts INTEGER NOT NULL DEFAULT 0
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_health_history_checked_at ON health_history(checked_at);
CREATE INDEX IF NOT EXISTS idx_health_history_model_id ON health_history(model_id, checked_at);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const upsertLatest = `
INSERT INTO health_latest (model_id, status, latency_ms, last_checked_at, last_error, attempts)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(model_id) DO UPDATE SET
    status = excluded.status,
    latency_ms = excluded.latency_ms,
    last_checked_at = excluded.last_checked_at,
    last_error = excluded.last_error,
    attempts = excluded.attempts;
`

const insertHistory = `
INSERT INTO health_history (id, model_id, status, latency_ms, checked_at, last_error, attempts)
VALUES (?, ?, ?, ?, ?, ?, ?);
`

const selectLatest = `
SELECT model_id, status, latency_ms, last_checked_at, last_error, attempts
FROM health_latest ORDER BY model_id;
`

const deleteExcess = `
DELETE FROM health_history WHERE id IN (
    SELECT id FROM health_history ORDER BY checked_at DESC, rowid DESC LIMIT -1 OFFSET ?
);
`
