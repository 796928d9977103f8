package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the executions table. Summary columns are indexed for
// queries; the full execution is kept as a JSON payload.
const Schema = `
CREATE TABLE IF NOT EXISTS executions (
    id TEXT PRIMARY KEY,
    case_id TEXT NOT NULL,
    rule_pack_id TEXT,
    status TEXT NOT NULL,

    -- Timestamps (unix nanoseconds)
    started_at INTEGER NOT NULL,
    ended_at INTEGER,

    -- Counts
    total_declarations INTEGER NOT NULL,
    processed_declarations INTEGER NOT NULL,
    failed_declarations INTEGER NOT NULL,

    -- Ghana metrics summary
    total_violations INTEGER NOT NULL,
    total_recovery REAL NOT NULL,
    compliance_rate REAL NOT NULL,

    payload TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_executions_case_id ON executions(case_id);
CREATE INDEX IF NOT EXISTS idx_executions_status ON executions(status);
CREATE INDEX IF NOT EXISTS idx_executions_started_at ON executions(started_at);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const upsertExecution = `
INSERT INTO executions (
    id, case_id, rule_pack_id, status,
    started_at, ended_at,
    total_declarations, processed_declarations, failed_declarations,
    total_violations, total_recovery, compliance_rate,
    payload
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    case_id = excluded.case_id,
    rule_pack_id = excluded.rule_pack_id,
    status = excluded.status,
    started_at = excluded.started_at,
    ended_at = excluded.ended_at,
    total_declarations = excluded.total_declarations,
    processed_declarations = excluded.processed_declarations,
    failed_declarations = excluded.failed_declarations,
    total_violations = excluded.total_violations,
    total_recovery = excluded.total_recovery,
    compliance_rate = excluded.compliance_rate,
    payload = excluded.payload;
`
