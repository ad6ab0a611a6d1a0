// Package database manages database directories and the tables in them.
//
// A database is a directory under a root path. It holds one data file and
// one schema side-car per table plus the shared relations ledger.
package database

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapdb/internal/relations"
	"github.com/leapstack-labs/leapdb/internal/table"
	"github.com/leapstack-labs/leapdb/pkg/core"
)

// Database is a handle for one database directory.
type Database struct {
	Name string
	Path string

	logger    *slog.Logger
	strict    bool
	relations *relations.Log
}

// Option configures a Database.
type Option func(*Database)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Database) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithStrictMatch is passed on to every table handle; see
// table.WithStrictMatch.
func WithStrictMatch(strict bool) Option {
	return func(d *Database) { d.strict = strict }
}

func newDatabase(root, name string, opts []Option) *Database {
	d := &Database{
		Name:   name,
		Path:   root,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("database", name)
	d.relations = relations.Open(d.Dir(), d.logger)
	return d
}

// Create makes a new database directory under root holding an empty
// relations ledger.
func Create(root, name string, opts ...Option) (*Database, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	d := newDatabase(root, name, opts)

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, core.IOError("create database root", err)
	}
	if err := os.Mkdir(d.Dir(), 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, &core.Error{Kind: core.KindExists, Op: "create database", Value: name}
		}
		return nil, core.IOError("create database", err)
	}
	if err := d.relations.Init(); err != nil {
		_ = os.RemoveAll(d.Dir())
		return nil, err
	}

	d.logger.Debug("database created", "path", d.Dir())
	return d, nil
}

// Open returns a handle for an existing database directory.
func Open(root, name string, opts ...Option) (*Database, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	d := newDatabase(root, name, opts)

	info, err := os.Stat(d.Dir())
	if err != nil {
		return nil, core.IOError("open database", err)
	}
	if !info.IsDir() {
		return nil, core.IOError("open database", fmt.Errorf("%s is not a directory", d.Dir()))
	}
	return d, nil
}

// Drop deletes a database directory and everything in it.
func Drop(root, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	dir := filepath.Join(root, name)
	if _, err := os.Stat(dir); err != nil {
		return core.IOError("drop database", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return core.IOError("drop database", err)
	}
	return nil
}

// List returns the names of the database directories under root.
func List(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, core.IOError("list databases", err)
	}

	var names []string
	for _, ent := range entries {
		if ent.IsDir() && !strings.HasPrefix(ent.Name(), ".") {
			names = append(names, ent.Name())
		}
	}
	return names, nil
}

// Dir returns the database directory.
func (d *Database) Dir() string {
	return filepath.Join(d.Path, d.Name)
}

// Relations returns the database's relations ledger.
func (d *Database) Relations() *relations.Log {
	return d.relations
}

// Table returns a handle for the named table. The table need not exist.
func (d *Database) Table(name string) *table.Table {
	return table.New(d.Path, d.Name, name,
		table.WithLogger(d.logger),
		table.WithStrictMatch(d.strict),
		table.WithRelations(d.relations),
	)
}

// CreateTable creates a table and records its foreign keys. See
// table.Table.Create.
func (d *Database) CreateTable(name string, schema core.Schema, fks []core.ForeignKey) (*table.Table, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if name == strings.TrimSuffix(relations.FileName, table.DataSuffix) {
		return nil, &core.Error{Kind: core.KindValidation, Op: "create table", Table: name, Err: fmt.Errorf("name is reserved")}
	}

	t := d.Table(name)
	if err := t.Create(schema, fks); err != nil {
		return nil, err
	}
	return t, nil
}

// DropTable removes a table and every relation naming it.
func (d *Database) DropTable(name string) error {
	return d.Table(name).Drop()
}

// Tables returns the names of the tables in the database, sorted.
func (d *Database) Tables() ([]string, error) {
	entries, err := os.ReadDir(d.Dir())
	if err != nil {
		return nil, core.IOError("list tables", err)
	}

	var names []string
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(ent.Name(), table.SchemaSuffix); ok && name != "" && !strings.HasPrefix(name, ".") {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// ValidateName checks that name can be used as a database or table name:
// non-empty, not starting with a dot, and free of path separators.
func ValidateName(name string) error {
	switch {
	case name == "":
		return &core.Error{Kind: core.KindValidation, Op: "validate name", Err: fmt.Errorf("name is empty")}
	case strings.HasPrefix(name, "."):
		return &core.Error{Kind: core.KindValidation, Op: "validate name", Value: name, Err: fmt.Errorf("name starts with a dot")}
	case strings.ContainsAny(name, `/\`) || name != filepath.Base(name):
		return &core.Error{Kind: core.KindValidation, Op: "validate name", Value: name, Err: fmt.Errorf("name contains a path separator")}
	}
	return nil
}
