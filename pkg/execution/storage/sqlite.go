package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"gra-pca/sentinel/pkg/execution"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// Logger receives backend diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/executions.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements execution.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, applies the schema and verifies its
// version.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "execution.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, execution.NewStorageError("sqlite", "open", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite execution storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return execution.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return execution.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return execution.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return execution.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return execution.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return execution.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Save inserts or replaces an execution.
func (s *SQLiteStorage) Save(ctx context.Context, e *execution.Execution) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return execution.NewStorageError("sqlite", "marshal", err)
	}

	var endedAt interface{}
	if e.EndedAt != nil {
		endedAt = e.EndedAt.UnixNano()
	}

	_, err = s.db.ExecContext(ctx, upsertExecution,
		e.ID, e.CaseID, e.RulePackID, string(e.Status),
		e.StartedAt.UnixNano(), endedAt,
		e.TotalDeclarations, e.ProcessedDeclarations, e.FailedDeclarations,
		e.GhanaMetrics.TotalViolations, e.GhanaMetrics.TotalRecovery, e.GhanaMetrics.ComplianceRate,
		string(payload),
	)
	if err != nil {
		return execution.NewStorageError("sqlite", "save", err)
	}
	return nil
}

// Get returns the execution with the given ID.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*execution.Execution, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM executions WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, execution.NewStorageError("sqlite", "get", execution.ErrNotFound)
	}
	if err != nil {
		return nil, execution.NewStorageError("sqlite", "get", err)
	}
	return decodePayload(payload)
}

// Query returns matching executions, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, q *execution.Query) ([]*execution.Execution, error) {
	whereClause, args := buildWhereClause(q)

	sqlQuery := "SELECT payload FROM executions"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}
	sqlQuery += " ORDER BY started_at DESC, id ASC"

	if q != nil && (q.Limit > 0 || q.Offset > 0) {
		limit := -1
		if q.Limit > 0 {
			limit = q.Limit
		}
		sqlQuery += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, execution.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	results := []*execution.Execution{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, execution.NewStorageError("sqlite", "scan", err)
		}
		e, err := decodePayload(payload)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, execution.NewStorageError("sqlite", "query", err)
	}
	return results, nil
}

// Count returns the number of matching executions.
func (s *SQLiteStorage) Count(ctx context.Context, q *execution.Query) (int64, error) {
	whereClause, args := buildWhereClause(q)

	sqlQuery := "SELECT COUNT(*) FROM executions"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, execution.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes matching executions.
func (s *SQLiteStorage) Delete(ctx context.Context, q *execution.Query) (int64, error) {
	whereClause, args := buildWhereClause(q)

	sqlQuery := "DELETE FROM executions"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, execution.NewStorageError("sqlite", "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, execution.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Close releases the database connection.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return execution.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite execution storage closed")
	return nil
}

// buildWhereClause builds a WHERE clause (without the keyword) and its args.
func buildWhereClause(q *execution.Query) (string, []interface{}) {
	if q == nil {
		return "", nil
	}

	var conditions []string
	var args []interface{}

	if len(q.IDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(q.IDs)), ",")
		conditions = append(conditions, "id IN ("+placeholders+")")
		for _, id := range q.IDs {
			args = append(args, id)
		}
	}
	if q.CaseID != "" {
		conditions = append(conditions, "case_id = ?")
		args = append(args, q.CaseID)
	}
	if q.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(q.Status))
	}
	if q.StartTime != nil {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, q.StartTime.UnixNano())
	}
	if q.EndTime != nil {
		conditions = append(conditions, "started_at <= ?")
		args = append(args, q.EndTime.UnixNano())
	}

	return strings.Join(conditions, " AND "), args
}

func decodePayload(payload string) (*execution.Execution, error) {
	var e execution.Execution
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return nil, execution.NewStorageError("sqlite", "unmarshal", err)
	}
	return &e, nil
}
