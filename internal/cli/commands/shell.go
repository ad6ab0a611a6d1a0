package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
	"github.com/leapstack-labs/leapdb/internal/database"
	"github.com/leapstack-labs/leapdb/pkg/core"
	"github.com/spf13/cobra"
)

const shellPrompt = "leapdb> "

// NewShellCommand creates the shell command.
func NewShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive shell on the database",
		Long: `Start an interactive shell on the configured database.

Statements:
  insert <table> col=value...
  update <table> set col=value... where col=value...
  delete <table> where col=value...
  scan <table> [limit]
  find <table> <value>
  drop-column <table> <column>

Type .help for meta commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup := NewCommandContext(cmd)
			defer cleanup()

			db, err := cc.OpenDatabase()
			if err != nil {
				return err
			}
			return runShell(cmd, cc, db)
		},
	}
}

func runShell(cmd *cobra.Command, cc *CommandContext, db *database.Database) error {
	ctx := cmd.Context()
	sh := &shell{cc: cc, db: db, out: cmd.OutOrStdout()}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          shellPrompt,
		HistoryFile:     filepath.Join(filepath.Dir(cc.Cfg.HistoryPath), "shell_history"),
		AutoComplete:    sh.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(sh.out, "LeapDB shell (database: %s)\n", db.Name)
	_, _ = fmt.Fprintln(sh.out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(sh.out)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if sh.handle(ctx, line) {
			return nil
		}
	}
}

// shell executes one line at a time against a database.
type shell struct {
	cc  *CommandContext
	db  *database.Database
	out io.Writer
}

var errQuit = errors.New("quit")

// handle runs one line and reports its error on the renderer. It returns
// true when the shell should exit.
func (s *shell) handle(ctx context.Context, line string) bool {
	quit, err := s.exec(ctx, line)
	if err != nil {
		s.cc.Renderer.Error(err)
	}
	return quit
}

// exec runs one line. It reports whether the shell should exit.
func (s *shell) exec(ctx context.Context, line string) (bool, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return false, fmt.Errorf("parse line: %w", err)
	}
	if len(words) == 0 {
		return false, nil
	}

	if strings.HasPrefix(words[0], ".") {
		err := s.dot(words)
		if errors.Is(err, errQuit) {
			return true, nil
		}
		return false, err
	}
	return false, s.statement(ctx, words)
}

func (s *shell) dot(words []string) error {
	switch strings.ToLower(words[0]) {
	case ".quit", ".exit":
		return errQuit
	case ".help":
		printShellHelp(s.out)
		return nil
	case ".tables":
		names, err := s.db.Tables()
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(names))
		for _, n := range names {
			rows = append(rows, []string{n})
		}
		return s.cc.Renderer.Table([]string{"table"}, rows)
	case ".describe", ".schema":
		if len(words) != 2 {
			return fmt.Errorf("usage: %s <table>", words[0])
		}
		out, err := describeTable(s.db.Table(words[1]).Schema, s.db.Relations().List, words[1])
		if err != nil {
			return err
		}
		return renderDescribe(s.cc, out)
	case ".relations":
		recs, err := s.db.Relations().List()
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(recs))
		for _, rec := range recs {
			rows = append(rows, []string{rec.FromTable, rec.ToTable, rec.Field})
		}
		return s.cc.Renderer.Table([]string{"from_table", "to_table", "field"}, rows)
	case ".clear":
		_, _ = fmt.Fprint(s.out, "\033[H\033[2J")
		return nil
	default:
		return fmt.Errorf("unknown command: %s (type .help for commands)", words[0])
	}
}

func (s *shell) statement(ctx context.Context, words []string) error {
	verb := strings.ToLower(words[0])
	if len(words) < 2 {
		return fmt.Errorf("usage: %s <table> ...", verb)
	}
	t := s.db.Table(words[1])
	rest := words[2:]
	r := s.cc.Renderer

	switch verb {
	case "insert":
		record, err := parseAssignments(rest)
		if err != nil {
			return err
		}
		return s.cc.Recorder.Record(ctx, s.db.Name, t.TableName, core.OpInsert, func() (int64, error) {
			if err := t.Insert(record); err != nil {
				return 0, err
			}
			r.Success("Inserted 1 row")
			return 1, nil
		})

	case "update":
		set, where, err := splitClauses(rest, "set", "where")
		if err != nil {
			return err
		}
		changes, err := parseAssignments(set)
		if err != nil {
			return err
		}
		whereVals, err := parseAssignments(where)
		if err != nil {
			return err
		}
		return s.cc.Recorder.Record(ctx, s.db.Name, t.TableName, core.OpUpdate, func() (int64, error) {
			n, err := t.Update(whereVals, changes)
			if err != nil {
				return 0, err
			}
			r.Success("Updated %d row(s)", n)
			return int64(n), nil
		})

	case "delete":
		_, where, err := splitClauses(rest, "", "where")
		if err != nil {
			return err
		}
		whereVals, err := parseAssignments(where)
		if err != nil {
			return err
		}
		return s.cc.Recorder.Record(ctx, s.db.Name, t.TableName, core.OpDeleteRecord, func() (int64, error) {
			n, err := t.DeleteRecord(whereVals)
			if err != nil {
				return 0, err
			}
			r.Success("Deleted %d row(s)", n)
			return int64(n), nil
		})

	case "drop-column":
		if len(rest) != 1 {
			return fmt.Errorf("usage: drop-column <table> <column>")
		}
		return s.cc.Recorder.Record(ctx, s.db.Name, t.TableName, core.OpDeleteColumn, func() (int64, error) {
			if err := t.DeleteColumn(rest[0]); err != nil {
				return 0, err
			}
			r.Success("Dropped column %s", rest[0])
			return 0, nil
		})

	case "scan":
		limit := 0
		if len(rest) > 0 {
			n, err := strconv.Atoi(rest[0])
			if err != nil || n < 0 {
				return fmt.Errorf("invalid limit %q", rest[0])
			}
			limit = n
		}
		schema, err := t.Schema()
		if err != nil {
			return err
		}
		var rows [][]string
		for row, err := range t.Scan() {
			if err != nil {
				return err
			}
			rows = append(rows, row)
			if limit > 0 && len(rows) == limit {
				break
			}
		}
		return r.Table(schema.Names(), rows)

	case "find":
		if len(rest) != 1 {
			return fmt.Errorf("usage: find <table> <value>")
		}
		schema, err := t.Schema()
		if err != nil {
			return err
		}
		row, ok, err := t.FindByValue(rest[0])
		if err != nil {
			return err
		}
		if !ok {
			return r.Table(schema.Names(), nil)
		}
		return r.Table(schema.Names(), [][]string{row})

	default:
		return fmt.Errorf("unknown statement %q (type .help for commands)", verb)
	}
}

// splitClauses splits words of the form [first ...] [second ...]. An empty
// first keyword means words must start with second.
func splitClauses(words []string, first, second string) ([]string, []string, error) {
	var a, b []string
	cur := &a
	seenFirst, seenSecond := first == "", false
	for _, w := range words {
		switch {
		case first != "" && strings.EqualFold(w, first) && !seenFirst:
			seenFirst = true
			cur = &a
		case strings.EqualFold(w, second) && !seenSecond:
			seenSecond = true
			cur = &b
		default:
			if (first != "" && !seenFirst) || (first == "" && !seenSecond) {
				return nil, nil, fmt.Errorf("unexpected %q", w)
			}
			*cur = append(*cur, w)
		}
	}
	if first != "" && !seenFirst {
		return nil, nil, fmt.Errorf("missing %s clause", first)
	}
	return a, b, nil
}

func printShellHelp(w io.Writer) {
	help := `
Statements:
  insert <table> col=value...                       Append a row
  update <table> set col=value... where col=value...  Update matching rows
  delete <table> where col=value...                 Delete matching rows
  scan <table> [limit]                              Print rows
  find <table> <value>                              First row holding value
  drop-column <table> <column>                      Remove a column

Commands:
  .help              Show this help message
  .tables            List tables
  .describe <table>  Show a table's columns and relations
  .relations         List foreign-key relations
  .clear             Clear the screen
  .quit / .exit      Exit the shell

Tips:
  - Quote values containing spaces: insert users name="Ann Lee"
  - Tab completion works for statements and table names
`
	_, _ = fmt.Fprintln(w, help)
}

// completer creates a readline completer for statements and table names.
func (s *shell) completer() *readline.PrefixCompleter {
	names, err := s.db.Tables()
	if err != nil {
		names = nil
	}

	tableItems := func() []readline.PrefixCompleterInterface {
		items := make([]readline.PrefixCompleterInterface, 0, len(names))
		for _, n := range names {
			items = append(items, readline.PcItem(n))
		}
		return items
	}

	var items []readline.PrefixCompleterInterface
	for _, verb := range []string{"insert", "update", "delete", "scan", "find", "drop-column", ".describe"} {
		items = append(items, readline.PcItem(verb, tableItems()...))
	}
	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".relations"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
	)
	return readline.NewPrefixCompleter(items...)
}
