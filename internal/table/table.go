// Package table implements CRUD operations over a CSV-backed table.
//
// A Table is a stateless handle naming a table inside a database directory.
// Every operation loads the table's schema side-car, reads or rewrites the
// whole data file, and returns. Mutations hold the table's exclusive lock
// for their full duration and validate everything before the first byte is
// written; rewrites replace the data file atomically.
package table

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/leapstack-labs/leapdb/internal/relations"
	"github.com/leapstack-labs/leapdb/internal/storage/csvfile"
	"github.com/leapstack-labs/leapdb/internal/storage/lock"
	"github.com/leapstack-labs/leapdb/internal/storage/schemafile"
	"github.com/leapstack-labs/leapdb/pkg/core"
)

const (
	// DataSuffix is appended to the table name to form the data file name.
	DataSuffix = ".csv"
	// SchemaSuffix is appended to the table name to form the side-car name.
	SchemaSuffix = "_info"
)

// Table identifies a table's on-disk artifacts. It caches nothing.
type Table struct {
	DatabaseName string
	TableName    string
	DatabasePath string

	relations *relations.Log
	logger    *slog.Logger
	strict    bool
}

// Option configures a Table.
type Option func(*Table)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Table) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithStrictMatch makes Update and DeleteRecord fail with
// core.KindRowNotFound when the where clause matches no rows.
func WithStrictMatch(strict bool) Option {
	return func(t *Table) { t.strict = strict }
}

// WithRelations sets the relations ledger used for cascades. By default
// the ledger of the table's database directory is used.
func WithRelations(log *relations.Log) Option {
	return func(t *Table) {
		if log != nil {
			t.relations = log
		}
	}
}

// New returns a handle for table name in database databaseName under the
// root directory databasePath.
func New(databasePath, databaseName, name string, opts ...Option) *Table {
	t := &Table{
		DatabaseName: databaseName,
		TableName:    name,
		DatabasePath: databasePath,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.relations == nil {
		t.relations = relations.Open(t.Dir(), t.logger)
	}
	t.logger = t.logger.With("database", databaseName, "table", name)
	return t
}

// Dir returns the database directory holding the table.
func (t *Table) Dir() string {
	return filepath.Join(t.DatabasePath, t.DatabaseName)
}

// DataPath returns the path of the table's CSV data file.
func (t *Table) DataPath() string {
	return DataPath(t.Dir(), t.TableName)
}

// SchemaPath returns the path of the table's schema side-car.
func (t *Table) SchemaPath() string {
	return SchemaPath(t.Dir(), t.TableName)
}

// DataPath returns the data file path of table inside dir.
func DataPath(dir, table string) string {
	return filepath.Join(dir, table+DataSuffix)
}

// SchemaPath returns the schema side-car path of table inside dir.
func SchemaPath(dir, table string) string {
	return filepath.Join(dir, table+SchemaSuffix)
}

// Schema loads the table's stored schema.
func (t *Table) Schema() (core.Schema, error) {
	schema, err := schemafile.Read(t.SchemaPath())
	if err != nil {
		return nil, t.annotate(err)
	}
	return schema, nil
}

// Exists reports whether the table's schema side-car is present.
func (t *Table) Exists() (bool, error) {
	_, err := schemafile.Read(t.SchemaPath())
	if err == nil {
		return true, nil
	}
	if schemafile.IsNotFound(err) {
		return false, nil
	}
	return false, t.annotate(err)
}

// Create writes the data file with a header row in schema order and the
// schema side-car, then records the requested foreign keys. Foreign keys
// are validated before anything is written; if any check fails nothing is
// created and no relation is recorded.
func (t *Table) Create(schema core.Schema, fks []core.ForeignKey) error {
	if err := schema.Validate(); err != nil {
		return t.annotate(err)
	}

	release, err := t.lockExclusive()
	if err != nil {
		return err
	}
	defer release()

	exists, err := t.Exists()
	if err != nil {
		return err
	}
	if exists {
		return &core.Error{Kind: core.KindExists, Op: "create table", Table: t.TableName}
	}

	recs, err := relations.Validate(t.TableName, schema, fks, t.siblingSchema(schema))
	if err != nil {
		return t.annotate(err)
	}

	if err := csvfile.Create(t.DataPath(), schema.Names()); err != nil {
		return t.annotate(err)
	}
	if err := schemafile.Write(t.SchemaPath(), schema); err != nil {
		t.discard()
		return t.annotate(err)
	}
	if err := t.relations.Append(recs...); err != nil {
		t.discard()
		return t.annotate(err)
	}

	t.logger.Debug("table created", "columns", len(schema), "foreign_keys", len(recs))
	return nil
}

// siblingSchema loads schemas of other tables in the same database. A
// self-referencing key resolves against the schema being created.
func (t *Table) siblingSchema(self core.Schema) relations.SchemaLoader {
	return func(name string) (core.Schema, error) {
		if name == t.TableName {
			return self, nil
		}
		return New(t.DatabasePath, t.DatabaseName, name).Schema()
	}
}

// discard removes a partially created table.
func (t *Table) discard() {
	_ = removeFile(t.DataPath())
	_ = removeFile(t.SchemaPath())
}

// Drop removes the table's data file and side-car, and every relation
// naming the table. The lock file stays behind so that callers already
// waiting on it keep excluding one another.
func (t *Table) Drop() error {
	release, err := t.lockExclusive()
	if err != nil {
		return err
	}

	exists, err := t.Exists()
	if err != nil {
		release()
		return err
	}
	if !exists {
		release()
		return &core.Error{Kind: core.KindSchema, Op: "drop table", Table: t.TableName, Err: errNoTable}
	}

	if err := removeFile(t.SchemaPath()); err != nil {
		release()
		return &core.Error{Kind: core.KindIO, Op: "drop table", Table: t.TableName, Err: err}
	}
	if err := removeFile(t.DataPath()); err != nil {
		release()
		return &core.Error{Kind: core.KindIO, Op: "drop table", Table: t.TableName, Err: err}
	}
	release()

	removed, err := t.relations.RemoveTable(t.TableName)
	if err != nil {
		return t.annotate(err)
	}
	t.logger.Debug("table dropped", "relations_removed", removed)
	return nil
}

var errNoTable = errors.New("table does not exist")

func (t *Table) lockExclusive() (lock.Release, error) {
	release, err := lock.Exclusive(t.Dir(), t.TableName)
	if err != nil {
		return nil, &core.Error{Kind: core.KindIO, Op: "lock table", Table: t.TableName, Err: err}
	}
	return release, nil
}

// load reads the schema and the complete data file and checks that the
// header and every row agree with the schema.
func (t *Table) load() (core.Schema, []string, []core.Row, error) {
	schema, err := t.Schema()
	if err != nil {
		return nil, nil, nil, err
	}
	header, rows, err := csvfile.ReadAll(t.DataPath())
	if err != nil {
		return nil, nil, nil, t.annotate(err)
	}
	if err := t.checkHeader("load table", schema, header); err != nil {
		return nil, nil, nil, err
	}
	for i, row := range rows {
		if len(row) != len(schema) {
			return nil, nil, nil, &core.Error{
				Kind:  core.KindSchema,
				Op:    "load table",
				Table: t.TableName,
				Err:   fmt.Errorf("row %d has %d fields, want %d", i+1, len(row), len(schema)),
			}
		}
	}
	return schema, header, rows, nil
}

// checkHeader fails when the data file's header has drifted from the schema.
func (t *Table) checkHeader(op string, schema core.Schema, header []string) error {
	if slices.Equal(header, schema.Names()) {
		return nil
	}
	return &core.Error{
		Kind:  core.KindSchema,
		Op:    op,
		Table: t.TableName,
		Err:   fmt.Errorf("header %v does not match schema %v", header, schema.Names()),
	}
}

// annotate fills in the table name of a core.Error that lacks one.
func (t *Table) annotate(err error) error {
	var e *core.Error
	if errors.As(err, &e) && e.Table == "" {
		c := *e
		c.Table = t.TableName
		return &c
	}
	return err
}
