package history

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/leapdb/pkg/core"
)

// Recorder wraps an optional store so callers can record operations without
// checking whether history is enabled. Recording failures are logged and
// never fail the operation itself.
type Recorder struct {
	store  core.HistoryStore
	logger *slog.Logger
}

// NewRecorder returns a Recorder. A nil store disables recording.
func NewRecorder(store core.HistoryStore, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{store: store, logger: logger}
}

// Record runs fn and stores its outcome. fn returns the number of rows it
// affected.
func (r *Recorder) Record(ctx context.Context, database, table string, op core.Operation, fn func() (int64, error)) error {
	if r == nil || r.store == nil {
		_, err := fn()
		return err
	}

	entry, beginErr := r.store.Begin(ctx, database, table, op)
	if beginErr != nil {
		r.logger.Warn("failed to record operation", slog.String("operation", string(op)), slog.Any("error", beginErr))
	}

	rows, err := fn()

	if entry != nil {
		status, msg := core.OperationCompleted, ""
		if err != nil {
			status, msg = core.OperationFailed, err.Error()
		}
		if finishErr := r.store.Finish(ctx, entry.ID, status, rows, msg); finishErr != nil {
			r.logger.Warn("failed to finish operation record", slog.String("id", entry.ID), slog.Any("error", finishErr))
		}
	}
	return err
}
