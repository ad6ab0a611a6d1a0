// Package relations maintains a database's foreign-key ledger.
//
// The ledger is relations.csv in the database directory: a header row
// "from_table,to_table,field" followed by one row per accepted foreign key.
// Appends hold the ledger's exclusive lock; removals rewrite the file
// atomically under the same lock.
package relations

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapdb/internal/storage/csvfile"
	"github.com/leapstack-labs/leapdb/internal/storage/lock"
	"github.com/leapstack-labs/leapdb/pkg/core"
)

// FileName is the ledger's file name inside a database directory.
const FileName = "relations.csv"

const lockName = "relations"

// Header is the ledger's header row.
var Header = []string{"from_table", "to_table", "field"}

// Log is the relations ledger of one database directory.
type Log struct {
	dir    string
	logger *slog.Logger
}

// Open returns the ledger stored in dir. The file itself is created lazily.
func Open(dir string, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Log{dir: dir, logger: logger}
}

// Path returns the ledger file path.
func (l *Log) Path() string {
	return filepath.Join(l.dir, FileName)
}

// Init writes an empty ledger holding only the header row. An existing
// ledger is left alone.
func (l *Log) Init() error {
	release, err := lock.Exclusive(l.dir, lockName)
	if err != nil {
		return core.IOError("lock relations", err)
	}
	defer release()

	err = csvfile.Create(l.Path(), Header)
	if core.IsKind(err, core.KindExists) {
		return nil
	}
	return err
}

// List returns every relation in ledger order. A missing ledger is empty.
func (l *Log) List() ([]core.Relation, error) {
	release, err := lock.Shared(l.dir, lockName)
	if err != nil {
		return nil, core.IOError("lock relations", err)
	}
	defer release()

	return l.read()
}

// Append records relations at the end of the ledger.
func (l *Log) Append(recs ...core.Relation) error {
	if len(recs) == 0 {
		return nil
	}

	release, err := lock.Exclusive(l.dir, lockName)
	if err != nil {
		return core.IOError("lock relations", err)
	}
	defer release()

	if err := l.ensure(); err != nil {
		return err
	}
	rows := make([]core.Row, len(recs))
	for i, rec := range recs {
		rows[i] = core.Row{rec.FromTable, rec.ToTable, rec.Field}
	}
	if err := csvfile.Append(l.Path(), rows...); err != nil {
		return err
	}
	l.logger.Debug("relations recorded", "count", len(recs))
	return nil
}

// RemoveField drops every relation that references field on table, on
// either side of the link. It returns the number of rows removed.
func (l *Log) RemoveField(table, field string) (int, error) {
	return l.remove(func(r core.Relation) bool {
		return r.Field == field && (r.FromTable == table || r.ToTable == table)
	})
}

// RemoveTable drops every relation that names table on either side.
func (l *Log) RemoveTable(table string) (int, error) {
	return l.remove(func(r core.Relation) bool {
		return r.FromTable == table || r.ToTable == table
	})
}

func (l *Log) remove(drop func(core.Relation) bool) (int, error) {
	release, err := lock.Exclusive(l.dir, lockName)
	if err != nil {
		return 0, core.IOError("lock relations", err)
	}
	defer release()

	recs, err := l.read()
	if err != nil {
		return 0, err
	}

	kept := make([]core.Row, 0, len(recs))
	for _, r := range recs {
		if drop(r) {
			continue
		}
		kept = append(kept, core.Row{r.FromTable, r.ToTable, r.Field})
	}

	removed := len(recs) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := csvfile.Rewrite(l.Path(), Header, kept); err != nil {
		return 0, err
	}
	l.logger.Debug("relations removed", "count", removed)
	return removed, nil
}

// read loads the ledger; the caller holds the lock.
func (l *Log) read() ([]core.Relation, error) {
	if _, err := os.Stat(l.Path()); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	_, rows, err := csvfile.ReadAll(l.Path())
	if err != nil {
		return nil, err
	}

	recs := make([]core.Relation, 0, len(rows))
	for i, row := range rows {
		if len(row) != len(Header) {
			return nil, core.IOError("read relations", fmt.Errorf("row %d has %d fields, want %d", i+1, len(row), len(Header)))
		}
		recs = append(recs, core.Relation{FromTable: row[0], ToTable: row[1], Field: row[2]})
	}
	return recs, nil
}

// ensure creates the ledger if it is missing; the caller holds the lock.
func (l *Log) ensure() error {
	err := csvfile.Create(l.Path(), Header)
	if err == nil || core.IsKind(err, core.KindExists) {
		return nil
	}
	return err
}
