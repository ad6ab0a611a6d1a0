// Package history records mutating storage operations in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapdb/pkg/core"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DefaultLimit caps List when the filter has no limit.
const DefaultLimit = 50

// MemoryPath opens a private in-memory store.
const MemoryPath = ":memory:"

var errNotOpen = errors.New("history store not opened")

// ErrNotFound is returned by Get for an unknown ID.
var ErrNotFound = errors.New("history entry not found")

// SQLiteStore implements core.HistoryStore on SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ core.HistoryStore = (*SQLiteStore)(nil)

// Open opens (creating if needed) the history database at path and applies
// pending migrations. Use MemoryPath for an in-memory store.
func Open(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dsn := MemoryPath
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// Every pooled connection to :memory: would see its own database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	if err := migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("history store opened", slog.String("path", path))
	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

// Path returns the path the store was opened with.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Begin records a running operation.
func (s *SQLiteStore) Begin(ctx context.Context, database, table string, op core.Operation) (*core.HistoryEntry, error) {
	if s.db == nil {
		return nil, errNotOpen
	}

	entry := &core.HistoryEntry{
		ID:        uuid.New().String(),
		Database:  database,
		Table:     table,
		Operation: op,
		Status:    core.OperationRunning,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("recording operation",
		slog.String("id", entry.ID),
		slog.String("operation", string(op)),
		slog.String("table", table))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (id, db_name, table_name, operation, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Database, entry.Table, string(entry.Operation), string(entry.Status), entry.StartedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record operation: %w", err)
	}
	return entry, nil
}

// Finish marks an entry completed or failed.
func (s *SQLiteStore) Finish(ctx context.Context, id string, status core.OperationStatus, rows int64, errMsg string) error {
	if s.db == nil {
		return errNotOpen
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE history SET status = ?, row_count = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(status), rows, errMsg, time.Now().UTC().UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish operation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Get returns one entry by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*core.HistoryEntry, error) {
	if s.db == nil {
		return nil, errNotOpen
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM history WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get history entry: %w", err)
	}
	return entry, nil
}

// List returns entries newest first.
func (s *SQLiteStore) List(ctx context.Context, filter core.HistoryFilter) ([]*core.HistoryEntry, error) {
	if s.db == nil {
		return nil, errNotOpen
	}

	var (
		where []string
		args  []any
	)
	if filter.Database != "" {
		where = append(where, "db_name = ?")
		args = append(args, filter.Database)
	}
	if filter.Table != "" {
		where = append(where, "table_name = ?")
		args = append(args, filter.Table)
	}

	query := `SELECT ` + columns + ` FROM history`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	query += ` ORDER BY started_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*core.HistoryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Prune deletes all but the newest keep entries and returns how many were
// removed.
func (s *SQLiteStore) Prune(ctx context.Context, keep int) (int64, error) {
	if s.db == nil {
		return 0, errNotOpen
	}
	if keep < 0 {
		keep = 0
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM history WHERE id NOT IN (
			SELECT id FROM history ORDER BY started_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}

const columns = `id, db_name, table_name, operation, status, row_count, error, started_at, completed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (*core.HistoryEntry, error) {
	var (
		entry       core.HistoryEntry
		op, status  string
		startedAt   int64
		completedAt sql.NullInt64
	)
	err := sc.Scan(&entry.ID, &entry.Database, &entry.Table, &op, &status,
		&entry.Rows, &entry.Error, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	entry.Operation = core.Operation(op)
	entry.Status = core.OperationStatus(status)
	entry.StartedAt = time.Unix(0, startedAt).UTC()
	if completedAt.Valid {
		t := time.Unix(0, completedAt.Int64).UTC()
		entry.CompletedAt = &t
	}
	return &entry, nil
}
