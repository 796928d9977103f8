package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"gra-pca/sentinel/pkg/rulepack"
)

const schema = `
CREATE TABLE IF NOT EXISTS rule_packs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	version TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 0,
	payload TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rule_packs_active ON rule_packs(is_active);
`

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// Logger receives backend diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// SQLiteStore implements rulepack.Store on SQLite. Each pack is stored as a
// JSON payload next to indexed identity and activation columns; the columns
// win over the payload on read.
type SQLiteStore struct {
	db        *sql.DB
	logger    *slog.Logger
	closeOnce sync.Once

	putStmt    *sql.Stmt
	getStmt    *sql.Stmt
	listStmt   *sql.Stmt
	deleteStmt *sql.Stmt
}

// NewSQLiteStore opens the database at cfg.Path and prepares the schema.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, rulepack.NewStoreError("sqlite", "open", "", errors.New("db path cannot be empty"))
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "rulepack.store.sqlite")

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, rulepack.NewStoreError("sqlite", "open", "", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db, logger: logger}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, rulepack.NewStoreError("sqlite", "create_schema", "", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, rulepack.NewStoreError("sqlite", "prepare", "", err)
	}

	logger.Info("SQLite rule pack store initialized", "path", cfg.Path)
	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.putStmt, err = s.db.Prepare(`
		INSERT INTO rule_packs (id, name, version, is_active, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			version = excluded.version,
			is_active = excluded.is_active,
			payload = excluded.payload,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare put statement: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`
		SELECT is_active, payload, created_at, updated_at FROM rule_packs WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT is_active, payload, created_at, updated_at FROM rule_packs ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM rule_packs WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	return nil
}

// Put inserts or replaces p.
func (s *SQLiteStore) Put(ctx context.Context, p *rulepack.RulePack) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return rulepack.NewStoreError("sqlite", "put", p.ID, fmt.Errorf("failed to marshal pack: %w", err))
	}

	_, err = s.putStmt.ExecContext(ctx,
		p.ID, p.Name, p.Version, p.IsActive, string(payload),
		unixNanos(p.CreatedAt), unixNanos(p.UpdatedAt),
	)
	if err != nil {
		return rulepack.NewStoreError("sqlite", "put", p.ID, err)
	}
	return nil
}

// Get returns the pack with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*rulepack.RulePack, error) {
	p, err := scanPack(s.getStmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rulepack.NewStoreError("sqlite", "get", id, rulepack.ErrNotFound)
	}
	if err != nil {
		return nil, rulepack.NewStoreError("sqlite", "get", id, err)
	}
	return p, nil
}

// List returns every pack ordered by ID.
func (s *SQLiteStore) List(ctx context.Context) ([]*rulepack.RulePack, error) {
	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, rulepack.NewStoreError("sqlite", "list", "", err)
	}
	defer rows.Close()

	packs := []*rulepack.RulePack{}
	for rows.Next() {
		p, err := scanPack(rows)
		if err != nil {
			return nil, rulepack.NewStoreError("sqlite", "list", "", err)
		}
		packs = append(packs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, rulepack.NewStoreError("sqlite", "list", "", err)
	}
	return packs, nil
}

// Delete removes the pack with the given ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.deleteStmt.ExecContext(ctx, id)
	if err != nil {
		return rulepack.NewStoreError("sqlite", "delete", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return rulepack.NewStoreError("sqlite", "delete", id, err)
	}
	if n == 0 {
		return rulepack.NewStoreError("sqlite", "delete", id, rulepack.ErrNotFound)
	}
	return nil
}

// Activate switches the active pack inside one transaction.
func (s *SQLiteStore) Activate(ctx context.Context, id string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rulepack.NewStoreError("sqlite", "activate", id, err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM rule_packs WHERE id = ?`, id).Scan(&count); err != nil {
		return rulepack.NewStoreError("sqlite", "activate", id, err)
	}
	if count == 0 {
		return rulepack.NewStoreError("sqlite", "activate", id, rulepack.ErrNotFound)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE rule_packs SET is_active = (id = ?), updated_at = ?
		WHERE is_active != (id = ?)
	`, id, unixNanos(at), id)
	if err != nil {
		return rulepack.NewStoreError("sqlite", "activate", id, err)
	}
	if err := tx.Commit(); err != nil {
		return rulepack.NewStoreError("sqlite", "activate", id, err)
	}

	changed, _ := res.RowsAffected()
	s.logger.Info("rule pack activated", "pack_id", id, "changed", changed)
	return nil
}

// Close closes the prepared statements and the database.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.putStmt, s.getStmt, s.listStmt, s.deleteStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = s.db.Close()
	})
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPack(row scanner) (*rulepack.RulePack, error) {
	var (
		active           bool
		payload          string
		created, updated int64
	)
	if err := row.Scan(&active, &payload, &created, &updated); err != nil {
		return nil, err
	}

	var p rulepack.RulePack
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pack: %w", err)
	}
	p.IsActive = active
	p.CreatedAt = fromUnixNanos(created)
	p.UpdatedAt = fromUnixNanos(updated)
	return &p, nil
}

func unixNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
