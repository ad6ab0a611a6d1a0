package table

import (
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/leapstack-labs/leapdb/internal/storage/csvfile"
	"github.com/leapstack-labs/leapdb/internal/storage/lock"
	"github.com/leapstack-labs/leapdb/internal/storage/schemafile"
	"github.com/leapstack-labs/leapdb/pkg/core"
)

// Insert appends one record. The record must hold a value for every schema
// column and no others. Each value must be accepted by its column's type;
// an empty value is accepted only by a nullable column. The first invalid
// value aborts the insert before anything is written.
func (t *Table) Insert(record map[string]string) error {
	release, err := t.lockExclusive()
	if err != nil {
		return err
	}
	defer release()

	schema, err := t.Schema()
	if err != nil {
		return err
	}
	header, err := csvfile.Header(t.DataPath())
	if err != nil {
		return t.annotate(err)
	}
	if err := t.checkHeader("insert", schema, header); err != nil {
		return err
	}
	if err := t.checkColumns("insert", schema, record); err != nil {
		return err
	}

	row := make(core.Row, len(schema))
	for i, f := range schema {
		value, ok := record[f.Name]
		if !ok {
			return &core.Error{
				Kind:   core.KindValidation,
				Op:     "insert",
				Table:  t.TableName,
				Column: f.Name,
				Err:    fmt.Errorf("required column missing"),
			}
		}
		if err := t.checkValue("insert", f, value); err != nil {
			return err
		}
		row[i] = value
	}

	if err := csvfile.Append(t.DataPath(), row); err != nil {
		return t.annotate(err)
	}
	t.logger.Debug("row inserted")
	return nil
}

// Update sets the columns in changes on every row matching where and
// returns the number of rows changed. A row matches when every where
// column holds exactly the given value; an empty where matches nothing.
// New values are checked against the column types before the table is
// rewritten. Matching no rows is not an error unless strict matching is
// enabled.
func (t *Table) Update(where, changes map[string]string) (int, error) {
	release, err := t.lockExclusive()
	if err != nil {
		return 0, err
	}
	defer release()

	schema, header, rows, err := t.load()
	if err != nil {
		return 0, err
	}
	if len(changes) > len(schema) {
		return 0, &core.Error{
			Kind:  core.KindTooManyArgs,
			Op:    "update",
			Table: t.TableName,
			Err:   fmt.Errorf("%d changes for %d columns", len(changes), len(schema)),
		}
	}
	if err := t.checkColumns("update", schema, where); err != nil {
		return 0, err
	}
	if err := t.checkColumns("update", schema, changes); err != nil {
		return 0, err
	}

	match := matcher(schema, where)
	out := make([]core.Row, len(rows))
	matched := 0
	for i, row := range rows {
		if !match(row) {
			out[i] = row
			continue
		}
		if matched == 0 {
			if err := t.checkChanges(schema, changes); err != nil {
				return 0, err
			}
		}
		matched++

		updated := slices.Clone(row)
		for col, value := range changes {
			updated[schema.Index(col)] = value
		}
		out[i] = updated
	}

	if matched == 0 {
		return 0, t.noMatch("update", where)
	}
	if err := csvfile.Rewrite(t.DataPath(), header, out); err != nil {
		return 0, t.annotate(err)
	}
	t.logger.Debug("rows updated", "rows", matched)
	return matched, nil
}

// DeleteRecord removes every row matching where, using the same matching
// rule as Update, and returns the number of rows removed.
func (t *Table) DeleteRecord(where map[string]string) (int, error) {
	release, err := t.lockExclusive()
	if err != nil {
		return 0, err
	}
	defer release()

	schema, header, rows, err := t.load()
	if err != nil {
		return 0, err
	}
	if err := t.checkColumns("delete", schema, where); err != nil {
		return 0, err
	}

	match := matcher(schema, where)
	kept := make([]core.Row, 0, len(rows))
	for _, row := range rows {
		if !match(row) {
			kept = append(kept, row)
		}
	}

	removed := len(rows) - len(kept)
	if removed == 0 {
		return 0, t.noMatch("delete", where)
	}
	if err := csvfile.Rewrite(t.DataPath(), header, kept); err != nil {
		return 0, t.annotate(err)
	}
	t.logger.Debug("rows deleted", "rows", removed)
	return removed, nil
}

// DeleteColumn removes a column from the schema and from every row, then
// drops every relation that references the column on this table.
func (t *Table) DeleteColumn(name string) error {
	release, err := t.lockExclusive()
	if err != nil {
		return err
	}
	defer release()

	schema, header, rows, err := t.load()
	if err != nil {
		return err
	}
	idx := schema.Index(name)
	if idx < 0 {
		return &core.Error{Kind: core.KindColumnNotFound, Op: "delete column", Table: t.TableName, Column: name}
	}
	if len(schema) == 1 {
		return &core.Error{
			Kind:   core.KindValidation,
			Op:     "delete column",
			Table:  t.TableName,
			Column: name,
			Err:    fmt.Errorf("cannot delete the only column"),
		}
	}

	// Refuse to start while the relations ledger is unreadable.
	if _, err := t.relations.List(); err != nil {
		return t.annotate(err)
	}

	trimmed := make([]core.Row, len(rows))
	for i, row := range rows {
		trimmed[i] = slices.Delete(slices.Clone(row), idx, idx+1)
	}
	newHeader := slices.Delete(slices.Clone(header), idx, idx+1)

	if err := csvfile.Rewrite(t.DataPath(), newHeader, trimmed); err != nil {
		return t.annotate(err)
	}
	if err := schemafile.Write(t.SchemaPath(), schema.Without(name)); err != nil {
		// restore the data file so it keeps matching the old schema
		_ = csvfile.Rewrite(t.DataPath(), header, rows)
		return t.annotate(err)
	}

	removed, err := t.relations.RemoveField(t.TableName, name)
	if err != nil {
		_ = schemafile.Write(t.SchemaPath(), schema)
		_ = csvfile.Rewrite(t.DataPath(), header, rows)
		return t.annotate(err)
	}
	t.logger.Debug("column deleted", "column", name, "relations_removed", removed)
	return nil
}

// Scan lazily yields the stored rows in on-disk order. Each iteration
// reopens the data file and holds the table's shared lock until it ends.
func (t *Table) Scan() iter.Seq2[core.Row, error] {
	return func(yield func(core.Row, error) bool) {
		release, err := lock.Shared(t.Dir(), t.TableName)
		if err != nil {
			yield(nil, &core.Error{Kind: core.KindIO, Op: "lock table", Table: t.TableName, Err: err})
			return
		}
		defer release()

		for row, err := range csvfile.Scan(t.DataPath()) {
			if err != nil {
				yield(nil, t.annotate(err))
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// FindByValue returns the first row holding value in any column.
func (t *Table) FindByValue(value string) (core.Row, bool, error) {
	for row, err := range t.Scan() {
		if err != nil {
			return nil, false, err
		}
		if slices.Contains(row, value) {
			return row, true, nil
		}
	}
	return nil, false, nil
}

// Header returns the column names stored in the data file's first row.
func (t *Table) Header() ([]string, error) {
	release, err := lock.Shared(t.Dir(), t.TableName)
	if err != nil {
		return nil, &core.Error{Kind: core.KindIO, Op: "lock table", Table: t.TableName, Err: err}
	}
	defer release()

	header, err := csvfile.Header(t.DataPath())
	if err != nil {
		return nil, t.annotate(err)
	}
	return header, nil
}

// Count returns the number of stored rows.
func (t *Table) Count() (int, error) {
	n := 0
	for _, err := range t.Scan() {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// checkColumns rejects values naming columns the schema lacks. Names are
// checked in sorted order so the reported column is deterministic.
func (t *Table) checkColumns(op string, schema core.Schema, values map[string]string) error {
	for _, col := range slices.Sorted(maps.Keys(values)) {
		if schema.Index(col) < 0 {
			return &core.Error{Kind: core.KindColumnNotFound, Op: op, Table: t.TableName, Column: col}
		}
	}
	return nil
}

func (t *Table) checkValue(op string, f core.FieldInfo, value string) error {
	if value == "" && f.Field.Nullable {
		return nil
	}
	if f.Field.Type.Accepts(value) {
		return nil
	}
	return &core.Error{
		Kind:     core.KindValidation,
		Op:       op,
		Table:    t.TableName,
		Column:   f.Name,
		Value:    value,
		Expected: f.Field.Type.String(),
	}
}

// checkChanges validates new values in schema order.
func (t *Table) checkChanges(schema core.Schema, changes map[string]string) error {
	for _, f := range schema {
		value, ok := changes[f.Name]
		if !ok {
			continue
		}
		if err := t.checkValue("update", f, value); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) noMatch(op string, where map[string]string) error {
	if !t.strict {
		t.logger.Debug("no rows matched", "op", op)
		return nil
	}
	return &core.Error{
		Kind:  core.KindRowNotFound,
		Op:    op,
		Table: t.TableName,
		Err:   fmt.Errorf("no row matches %v", where),
	}
}

// matcher returns a predicate reporting whether a row satisfies every
// column=value pair of where. Columns must exist in schema.
func matcher(schema core.Schema, where map[string]string) func(core.Row) bool {
	type cond struct {
		idx   int
		value string
	}
	conds := make([]cond, 0, len(where))
	for col, value := range where {
		conds = append(conds, cond{idx: schema.Index(col), value: value})
	}

	return func(row core.Row) bool {
		if len(conds) == 0 {
			return false
		}
		for _, c := range conds {
			if row[c.idx] != c.value {
				return false
			}
		}
		return true
	}
}
