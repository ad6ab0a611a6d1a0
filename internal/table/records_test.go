package table

import (
	"os"
	"testing"

	"github.com/leapstack-labs/leapdb/internal/relations"
	"github.com/leapstack-labs/leapdb/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Insert(t *testing.T) {
	root := setupDatabase(t)
	tbl := createUsers(t, root)

	require.NoError(t, tbl.Insert(map[string]string{"id": "1", "name": "Alice"}))
	assert.Equal(t, "id,name\n1,Alice\n", readFile(t, tbl.DataPath()))

	require.NoError(t, tbl.Insert(map[string]string{"name": "Bob", "id": "2"}))
	assert.Equal(t, []core.Row{{"1", "Alice"}, {"2", "Bob"}}, collect(t, tbl))
}

func TestTable_Insert_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		record     map[string]string
		wantKind   core.ErrorKind
		wantColumn string
	}{
		{
			name:       "wrong type",
			record:     map[string]string{"id": "abc", "name": "Bob"},
			wantKind:   core.KindValidation,
			wantColumn: "id",
		},
		{
			name:       "too long for varchar",
			record:     map[string]string{"id": "2", "name": "this name is far longer than fifty characters in total"},
			wantKind:   core.KindValidation,
			wantColumn: "name",
		},
		{
			name:       "missing column",
			record:     map[string]string{"id": "2"},
			wantKind:   core.KindValidation,
			wantColumn: "name",
		},
		{
			name:       "unknown column",
			record:     map[string]string{"id": "2", "name": "Bob", "age": "30"},
			wantKind:   core.KindColumnNotFound,
			wantColumn: "age",
		},
		{
			name:       "empty value in non-nullable column",
			record:     map[string]string{"id": "", "name": "Bob"},
			wantKind:   core.KindValidation,
			wantColumn: "id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := setupDatabase(t)
			tbl := createUsers(t, root)
			require.NoError(t, tbl.Insert(map[string]string{"id": "1", "name": "Alice"}))
			before := readFile(t, tbl.DataPath())

			err := tbl.Insert(tt.record)
			require.Error(t, err)

			var e *core.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.Equal(t, tt.wantColumn, e.Column)
			assert.Equal(t, "users", e.Table)

			assert.Equal(t, before, readFile(t, tbl.DataPath()), "data file must be unchanged")
		})
	}
}

func TestTable_Insert_ReportsValue(t *testing.T) {
	root := setupDatabase(t)
	tbl := createUsers(t, root)

	err := tbl.Insert(map[string]string{"id": "abc", "name": "Bob"})

	var e *core.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "abc", e.Value)
	assert.Equal(t, "int", e.Expected)
}

func TestTable_Insert_Nullable(t *testing.T) {
	root := setupDatabase(t)
	tbl := newTable(t, root, "notes")
	require.NoError(t, tbl.Create(core.Schema{
		{Name: "id", Field: core.Field{Type: core.Int}},
		{Name: "body", Field: core.Field{Type: core.Text, Nullable: true}},
	}, nil))

	require.NoError(t, tbl.Insert(map[string]string{"id": "1", "body": ""}))
	require.NoError(t, tbl.Insert(map[string]string{"id": "2", "body": "hello"}))
	assert.Equal(t, []core.Row{{"1", ""}, {"2", "hello"}}, collect(t, tbl))
}

func seedUsers(t *testing.T, tbl *Table) {
	t.Helper()
	for _, r := range []map[string]string{
		{"id": "1", "name": "Alice"},
		{"id": "2", "name": "Bob"},
		{"id": "3", "name": "Alice"},
	} {
		require.NoError(t, tbl.Insert(r))
	}
}

func TestTable_Update(t *testing.T) {
	tests := []struct {
		name     string
		where    map[string]string
		changes  map[string]string
		wantRows int
		want     []core.Row
	}{
		{
			name:     "single row",
			where:    map[string]string{"id": "1"},
			changes:  map[string]string{"name": "Alicia"},
			wantRows: 1,
			want:     []core.Row{{"1", "Alicia"}, {"2", "Bob"}, {"3", "Alice"}},
		},
		{
			name:     "several rows",
			where:    map[string]string{"name": "Alice"},
			changes:  map[string]string{"name": "Ann"},
			wantRows: 2,
			want:     []core.Row{{"1", "Ann"}, {"2", "Bob"}, {"3", "Ann"}},
		},
		{
			name:     "conjunction",
			where:    map[string]string{"name": "Alice", "id": "3"},
			changes:  map[string]string{"id": "30"},
			wantRows: 1,
			want:     []core.Row{{"1", "Alice"}, {"2", "Bob"}, {"30", "Alice"}},
		},
		{
			name:     "conjunction without match",
			where:    map[string]string{"name": "Bob", "id": "1"},
			changes:  map[string]string{"name": "Zed"},
			wantRows: 0,
			want:     []core.Row{{"1", "Alice"}, {"2", "Bob"}, {"3", "Alice"}},
		},
		{
			name:     "empty where matches nothing",
			where:    map[string]string{},
			changes:  map[string]string{"name": "Zed"},
			wantRows: 0,
			want:     []core.Row{{"1", "Alice"}, {"2", "Bob"}, {"3", "Alice"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := setupDatabase(t)
			tbl := createUsers(t, root)
			seedUsers(t, tbl)

			n, err := tbl.Update(tt.where, tt.changes)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRows, n)
			assert.Equal(t, tt.want, collect(t, tbl))
		})
	}
}

func TestTable_Update_ZeroMatchLeavesFile(t *testing.T) {
	root := setupDatabase(t)
	tbl := createUsers(t, root)
	seedUsers(t, tbl)

	info, err := os.Stat(tbl.DataPath())
	require.NoError(t, err)

	n, err := tbl.Update(map[string]string{"id": "99"}, map[string]string{"name": "Nobody"})
	require.NoError(t, err)
	assert.Zero(t, n)

	after, err := os.Stat(tbl.DataPath())
	require.NoError(t, err)
	assert.True(t, os.SameFile(info, after), "no rewrite when nothing matched")
}

func TestTable_Update_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		where    map[string]string
		changes  map[string]string
		wantKind core.ErrorKind
	}{
		{
			name:     "type mismatch",
			where:    map[string]string{"id": "1"},
			changes:  map[string]string{"id": "one"},
			wantKind: core.KindValidation,
		},
		{
			name:     "unknown change column",
			where:    map[string]string{"id": "1"},
			changes:  map[string]string{"age": "3"},
			wantKind: core.KindColumnNotFound,
		},
		{
			name:     "unknown where column",
			where:    map[string]string{"age": "3"},
			changes:  map[string]string{"name": "X"},
			wantKind: core.KindColumnNotFound,
		},
		{
			name:     "too many changes",
			where:    map[string]string{"id": "1"},
			changes:  map[string]string{"id": "5", "name": "X", "extra": "y"},
			wantKind: core.KindTooManyArgs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := setupDatabase(t)
			tbl := createUsers(t, root)
			seedUsers(t, tbl)
			before := readFile(t, tbl.DataPath())

			_, err := tbl.Update(tt.where, tt.changes)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, core.KindOf(err))
			assert.Equal(t, before, readFile(t, tbl.DataPath()))
		})
	}
}

func TestTable_StrictMatch(t *testing.T) {
	root := setupDatabase(t)
	tbl := createUsers(t, root, WithStrictMatch(true))
	seedUsers(t, tbl)

	_, err := tbl.Update(map[string]string{"id": "99"}, map[string]string{"name": "X"})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindRowNotFound))

	_, err = tbl.DeleteRecord(map[string]string{"id": "99"})
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindRowNotFound))

	n, err := tbl.DeleteRecord(map[string]string{"id": "2"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTable_DeleteRecord(t *testing.T) {
	root := setupDatabase(t)
	tbl := createUsers(t, root)
	seedUsers(t, tbl)

	n, err := tbl.DeleteRecord(map[string]string{"name": "Alice"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "id,name\n2,Bob\n", readFile(t, tbl.DataPath()))

	n, err = tbl.DeleteRecord(map[string]string{"name": "Alice"})
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = tbl.DeleteRecord(map[string]string{"nope": "x"})
	assert.True(t, core.IsKind(err, core.KindColumnNotFound))
}

func TestTable_DeleteColumn(t *testing.T) {
	root := setupDatabase(t)
	users := createUsers(t, root)
	seedUsers(t, users)

	orders := newTable(t, root, "orders")
	require.NoError(t, orders.Create(core.Schema{
		{Name: "id", Field: core.Field{Type: core.Int}},
		{Name: "name", Field: core.Field{Type: core.Varchar(50)}},
	}, []core.ForeignKey{
		{TargetTable: "users", TargetField: "id"},
		{TargetTable: "users", TargetField: "name"},
	}))

	require.NoError(t, users.DeleteColumn("name"))

	schema, err := users.Schema()
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, schema.Names())
	assert.Equal(t, "id\n1\n2\n3\n", readFile(t, users.DataPath()))

	recs, err := relations.Open(users.Dir(), nil).List()
	require.NoError(t, err)
	assert.Equal(t, []core.Relation{{FromTable: "orders", ToTable: "users", Field: "id"}}, recs)
}

func TestTable_DeleteColumn_Rejected(t *testing.T) {
	root := setupDatabase(t)
	tbl := createUsers(t, root)
	seedUsers(t, tbl)
	before := readFile(t, tbl.DataPath())

	err := tbl.DeleteColumn("age")
	assert.True(t, core.IsKind(err, core.KindColumnNotFound))

	require.NoError(t, tbl.DeleteColumn("name"))
	err = tbl.DeleteColumn("id")
	assert.True(t, core.IsKind(err, core.KindValidation))

	assert.NotEqual(t, before, readFile(t, tbl.DataPath()))
	assert.Equal(t, "id\n1\n2\n3\n", readFile(t, tbl.DataPath()))
}

func TestTable_FindByValue(t *testing.T) {
	root := setupDatabase(t)
	tbl := createUsers(t, root)
	seedUsers(t, tbl)

	row, ok, err := tbl.FindByValue("Alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.Row{"1", "Alice"}, row)

	row, ok, err = tbl.FindByValue("2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.Row{"2", "Bob"}, row)

	_, ok, err = tbl.FindByValue("Carol")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTable_ScanAndCount(t *testing.T) {
	root := setupDatabase(t)
	tbl := createUsers(t, root)

	n, err := tbl.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	seedUsers(t, tbl)
	n, err = tbl.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, collect(t, tbl), collect(t, tbl), "scan is restartable")
}

func TestTable_DriftedDataFile(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "header reordered", data: "name,id\nAlice,1\n"},
		{name: "row arity", data: "id,name\n1,Alice,extra\n"},
	}
	ops := map[string]func(*Table) error{
		"insert": func(tbl *Table) error {
			return tbl.Insert(map[string]string{"id": "2", "name": "Bob"})
		},
		"update": func(tbl *Table) error {
			_, err := tbl.Update(map[string]string{"id": "1"}, map[string]string{"name": "X"})
			return err
		},
		"delete": func(tbl *Table) error {
			_, err := tbl.DeleteRecord(map[string]string{"id": "1"})
			return err
		},
		"drop column": func(tbl *Table) error {
			return tbl.DeleteColumn("name")
		},
	}

	for _, tt := range tests {
		for opName, op := range ops {
			t.Run(tt.name+"/"+opName, func(t *testing.T) {
				root := setupDatabase(t)
				tbl := createUsers(t, root)
				require.NoError(t, os.WriteFile(tbl.DataPath(), []byte(tt.data), 0o644))

				err := op(tbl)
				if tt.name == "row arity" && opName == "insert" {
					// only the header is consulted before an append
					require.NoError(t, err)
					return
				}
				require.Error(t, err)
				assert.True(t, core.IsKind(err, core.KindSchema), "got %v", err)
				assert.Equal(t, tt.data, readFile(t, tbl.DataPath()))
			})
		}
	}
}

func TestTable_DeleteColumn_UnreadableRelations(t *testing.T) {
	root := setupDatabase(t)
	users := createUsers(t, root)
	seedUsers(t, users)

	dataBefore := readFile(t, users.DataPath())
	schemaBefore := readFile(t, users.SchemaPath())

	ledger := relations.Open(users.Dir(), nil).Path()
	f, err := os.OpenFile(ledger, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("orders,users\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	err = users.DeleteColumn("name")
	require.Error(t, err)

	assert.Equal(t, dataBefore, readFile(t, users.DataPath()))
	assert.Equal(t, schemaBefore, readFile(t, users.SchemaPath()))
	schema, err := users.Schema()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, schema.Names())
}

// New values are checked against the declared column type, not against the
// type inferred from the value being replaced.
func TestTable_Update_ChecksDeclaredType(t *testing.T) {
	root := setupDatabase(t)
	tbl := newTable(t, root, "codes")
	require.NoError(t, tbl.Create(core.Schema{
		{Name: "code", Field: core.Field{Type: core.Varchar(3)}},
		{Name: "qty", Field: core.Field{Type: core.Int, Nullable: true}},
	}, nil))
	require.NoError(t, tbl.Insert(map[string]string{"code": "abc", "qty": ""}))

	_, err := tbl.Update(map[string]string{"code": "abc"}, map[string]string{"code": "abcdef"})
	require.Error(t, err)
	var e *core.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, core.KindValidation, e.Kind)
	assert.Equal(t, "code", e.Column)
	assert.Equal(t, "varchar(3)", e.Expected)
	assert.Equal(t, "code,qty\nabc,\n", readFile(t, tbl.DataPath()))

	n, err := tbl.Update(map[string]string{"code": "abc"}, map[string]string{"qty": "5"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "code,qty\nabc,5\n", readFile(t, tbl.DataPath()))

	_, err = tbl.Update(map[string]string{"code": "abc"}, map[string]string{"qty": "many"})
	assert.True(t, core.IsKind(err, core.KindValidation))
}

// Walks through the users scenario end to end.
func TestTable_UsersScenario(t *testing.T) {
	root := setupDatabase(t)
	tbl := createUsers(t, root)

	require.NoError(t, tbl.Insert(map[string]string{"id": "1", "name": "Alice"}))
	assert.Equal(t, "id,name\n1,Alice\n", readFile(t, tbl.DataPath()))

	err := tbl.Insert(map[string]string{"id": "abc", "name": "Bob"})
	var e *core.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, core.KindValidation, e.Kind)
	assert.Equal(t, "id", e.Column)

	n, err := tbl.Update(map[string]string{"id": "1"}, map[string]string{"name": "Alicia"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "id,name\n1,Alicia\n", readFile(t, tbl.DataPath()))

	require.NoError(t, tbl.DeleteColumn("name"))
	schema, err := tbl.Schema()
	require.NoError(t, err)
	assert.Equal(t, core.Schema{{Name: "id", Field: core.Field{Type: core.Int, PrimaryKey: true}}}, schema)
	assert.Equal(t, "id\n1\n", readFile(t, tbl.DataPath()))
}
