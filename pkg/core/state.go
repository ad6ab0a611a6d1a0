package core

import (
	"context"
	"time"
)

// HistoryStore records mutating operations for later inspection.
type HistoryStore interface {
	Close() error

	// Begin records a running operation and returns its entry.
	Begin(ctx context.Context, database, table string, op Operation) (*HistoryEntry, error)

	// Finish marks an entry completed or failed.
	Finish(ctx context.Context, id string, status OperationStatus, rows int64, errMsg string) error

	// Get returns a single entry by ID.
	Get(ctx context.Context, id string) (*HistoryEntry, error)

	// List returns the most recent entries first. A zero HistoryFilter
	// returns everything up to the store's default limit.
	List(ctx context.Context, filter HistoryFilter) ([]*HistoryEntry, error)

	// Prune deletes all but the newest keep entries.
	Prune(ctx context.Context, keep int) (int64, error)
}

// Operation names a mutating storage operation.
type Operation string

// Operations recorded in history.
const (
	OpCreateDatabase Operation = "create_database"
	OpDropDatabase   Operation = "drop_database"
	OpCreateTable    Operation = "create_table"
	OpDropTable      Operation = "drop_table"
	OpInsert         Operation = "insert"
	OpUpdate         Operation = "update"
	OpDeleteRecord   Operation = "delete_record"
	OpDeleteColumn   Operation = "delete_column"
)

// OperationStatus represents the outcome of a recorded operation.
type OperationStatus string

// Operation status constants.
const (
	OperationRunning   OperationStatus = "running"
	OperationCompleted OperationStatus = "completed"
	OperationFailed    OperationStatus = "failed"
)

// HistoryEntry is one recorded operation.
type HistoryEntry struct {
	ID          string          `json:"id"`
	Database    string          `json:"database"`
	Table       string          `json:"table,omitempty"`
	Operation   Operation       `json:"operation"`
	Status      OperationStatus `json:"status"`
	Rows        int64           `json:"rows"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// HistoryFilter narrows a history listing.
type HistoryFilter struct {
	Database string
	Table    string
	Limit    int
}
