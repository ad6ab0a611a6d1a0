// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/leapstack-labs/leapdb/internal/cli/output"
	"github.com/leapstack-labs/leapdb/internal/database"
	"github.com/leapstack-labs/leapdb/pkg/core"
	"github.com/stretchr/testify/require"
)

// SetupTestDatabase creates a database "shop" in a temporary directory
// holding a users table (id int, name varchar(20), email nullable text)
// with two rows.
func SetupTestDatabase(t *testing.T) *database.Database {
	t.Helper()

	db, err := database.Create(t.TempDir(), "shop")
	require.NoError(t, err)

	users, err := db.CreateTable("users", core.Schema{
		{Name: "id", Field: core.Field{Type: core.Int, PrimaryKey: true}},
		{Name: "name", Field: core.Field{Type: core.Varchar(20)}},
		{Name: "email", Field: core.Field{Type: core.Text, Nullable: true}},
	}, nil)
	require.NoError(t, err)

	require.NoError(t, users.Insert(map[string]string{"id": "1", "name": "ann", "email": ""}))
	require.NoError(t, users.Insert(map[string]string{"id": "2", "name": "bob", "email": "bob@example.com"}))
	return db
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRenderer(out, errOut, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
