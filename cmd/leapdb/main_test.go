// Package main provides tests for the LeapDB CLI.
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapdb/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// project is a temporary working directory with its own data dir and
// history database.
type project struct {
	t    *testing.T
	root string
}

func newProject(t *testing.T) *project {
	t.Helper()
	root := t.TempDir()
	t.Chdir(root)
	p := &project{t: t, root: root}
	p.mustRun("create-db")
	return p
}

func (p *project) run(args ...string) (string, error) {
	p.t.Helper()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{
		"--data-dir", filepath.Join(p.root, "data"),
		"--history-path", filepath.Join(p.root, "history.db"),
		"--database", "shop",
	}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func (p *project) mustRun(args ...string) string {
	p.t.Helper()
	out, err := p.run(args...)
	require.NoError(p.t, err, "leapdb %s\n%s", strings.Join(args, " "), out)
	return out
}

func (p *project) file(rel string) string {
	p.t.Helper()
	data, err := os.ReadFile(filepath.Join(p.root, "data", "shop", rel))
	require.NoError(p.t, err)
	return string(data)
}

func TestVersionCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	t.Chdir(t.TempDir())
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "LeapDB")
}

func TestHelpCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, expected := range []string{"create-table", "insert", "update", "delete", "drop-column", "relations", "doctor", "shell"} {
		assert.Contains(t, output, expected)
	}
}

func TestUsersScenario(t *testing.T) {
	p := newProject(t)

	p.mustRun("create-table", "users", "id:int:pk", "name:varchar(50)", "email:text:null")
	assert.Equal(t, "id,name,email\n", p.file("users.csv"))

	p.mustRun("insert", "users", "id=1", "name=ann", "email=")
	p.mustRun("insert", "users", "id=2", "name=bob", "email=bob@example.com")
	assert.Equal(t, "id,name,email\n1,ann,\n2,bob,bob@example.com\n", p.file("users.csv"))

	out, err := p.run("insert", "users", "id=x", "name=cy", "email=")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
	assert.NotContains(t, p.file("users.csv"), "cy", out)

	out = p.mustRun("update", "users", "--where", "name=ann", "--set", "email=ann@example.com")
	assert.Contains(t, out, "Updated 1 row(s)")
	assert.Contains(t, p.file("users.csv"), "1,ann,ann@example.com\n")

	out = p.mustRun("delete", "users", "--where", "id=2")
	assert.Contains(t, out, "Deleted 1 row(s)")
	assert.Equal(t, "id,name,email\n1,ann,ann@example.com\n", p.file("users.csv"))

	out = p.mustRun("find", "users", "ann")
	assert.Contains(t, out, "| 1 | ann | ann@example.com |")

	p.mustRun("drop-column", "users", "email")
	assert.Equal(t, "id,name\n1,ann\n", p.file("users.csv"))

	out = p.mustRun("-o", "json", "scan", "users")
	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Equal(t, []map[string]string{{"id": "1", "name": "ann"}}, rows)
}

func TestForeignKeyScenario(t *testing.T) {
	p := newProject(t)

	p.mustRun("create-table", "users", "id:int", "name:varchar(50)")

	_, err := p.run("create-table", "bad_orders", "id:varchar(20)", "--fk", "users.id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "referential error")
	assert.Equal(t, "from_table,to_table,field\n", p.file("relations.csv"))

	p.mustRun("create-table", "orders", "id:int", "total:float", "--fk", "users.id")
	assert.Equal(t, "from_table,to_table,field\norders,users,id\n", p.file("relations.csv"))

	out := p.mustRun("-o", "json", "describe", "orders")
	assert.Contains(t, out, `"foreign_key": true`)
	assert.Contains(t, out, `"to_table": "users"`)

	p.mustRun("drop-table", "orders")
	assert.Equal(t, "from_table,to_table,field\n", p.file("relations.csv"))

	out = p.mustRun("tables")
	assert.Contains(t, out, "| users | 2 | 0 |")
	assert.NotContains(t, out, "orders")
}

func TestStrictMatch(t *testing.T) {
	p := newProject(t)
	p.mustRun("create-table", "users", "id:int", "name:text")

	out := p.mustRun("update", "users", "--where", "id=9", "--set", "name=x")
	assert.Contains(t, out, "Updated 0 row(s)")

	_, err := p.run("--strict", "update", "users", "--where", "id=9", "--set", "name=x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row not found")
}

func TestHistoryCommand(t *testing.T) {
	p := newProject(t)
	p.mustRun("create-table", "users", "id:int")
	p.mustRun("insert", "users", "id=1")
	_, _ = p.run("insert", "users", "id=oops")

	out := p.mustRun("-o", "json", "history")
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 4)
	assert.Equal(t, "insert", entries[0]["operation"])
	assert.Equal(t, "failed", entries[0]["status"])
	assert.Equal(t, "insert", entries[1]["operation"])
	assert.Equal(t, "completed", entries[1]["status"])
	assert.Equal(t, "create_database", entries[3]["operation"])

	out = p.mustRun("history", "--prune", "1")
	assert.Contains(t, out, "Pruned 3 history entries")
}

func TestHistoryDisabled(t *testing.T) {
	p := newProject(t)
	require.NoError(t, os.Remove(filepath.Join(p.root, "history.db")))

	p.mustRun("--history=false", "create-table", "users", "id:int")
	_, err := os.Stat(filepath.Join(p.root, "history.db"))
	assert.True(t, os.IsNotExist(err))
}

func TestDoctorCommand(t *testing.T) {
	p := newProject(t)
	p.mustRun("create-table", "users", "id:int")

	out := p.mustRun("doctor")
	assert.Contains(t, out, "No problems found")

	// A data file without a schema is only a warning.
	require.NoError(t, os.WriteFile(filepath.Join(p.root, "data", "shop", "stray.csv"), []byte("a\n"), 0o644))
	p.mustRun("doctor")
	_, err := p.run("doctor", "--fail-on", "warning")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 warning-level finding(s)")

	_, err = p.run("doctor", "--fail-on", "fatal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --fail-on")

	f, err := os.OpenFile(filepath.Join(p.root, "data", "shop", "users.csv"), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("nope\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err = p.run("doctor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 error-level finding(s)")
	assert.Contains(t, out, "does not fit int")
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--history=false", "--database", "blog", "init", "proj"})
	require.NoError(t, cmd.Execute(), buf.String())

	data, err := os.ReadFile(filepath.Join(dir, "proj", "leapdb.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "database: blog")
	assert.DirExists(t, filepath.Join(dir, "proj", "data", "blog"))
	assert.FileExists(t, filepath.Join(dir, "proj", "data", "blog", "relations.csv"))

	cmd = cli.NewRootCmd()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--history=false", "init", "proj"})
	err = cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			cmd := cli.NewRootCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs([]string{"completion", shell})

			require.NoError(t, cmd.Execute())
			assert.NotEmpty(t, buf.String())
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"unknown-command"})

	assert.Error(t, cmd.Execute())
}
