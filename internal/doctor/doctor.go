// Package doctor checks a database directory for inconsistencies between
// data files, schema side-cars and the relations ledger.
//
// Checks only read. Each table is checked under its shared lock, and tables
// are checked concurrently.
package doctor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapdb/internal/database"
	"github.com/leapstack-labs/leapdb/internal/relations"
	"github.com/leapstack-labs/leapdb/internal/storage/csvfile"
	"github.com/leapstack-labs/leapdb/internal/storage/lock"
	"github.com/leapstack-labs/leapdb/internal/storage/schemafile"
	"github.com/leapstack-labs/leapdb/internal/table"
	"github.com/leapstack-labs/leapdb/pkg/core"
)

// Check names.
const (
	CheckSchema    = "schema"
	CheckData      = "data"
	CheckHeader    = "header"
	CheckRow       = "row"
	CheckValue     = "value"
	CheckOrphan    = "orphan"
	CheckRelations = "relations"
)

// Finding is one problem found by a check.
type Finding struct {
	Severity core.Severity `json:"severity"`
	Check    string        `json:"check"`
	Table    string        `json:"table,omitempty"`
	Column   string        `json:"column,omitempty"`
	Row      int           `json:"row,omitempty"`
	Message  string        `json:"message"`
}

// TableSummary describes one table that was checked.
type TableSummary struct {
	Name    string `json:"name"`
	Columns int    `json:"columns"`
	Rows    int    `json:"rows"`
}

// Report is the result of Run.
type Report struct {
	Database  string         `json:"database"`
	Tables    []TableSummary `json:"tables"`
	Relations int            `json:"relations"`
	Findings  []Finding      `json:"findings"`
}

// Healthy reports whether the report has no error findings.
func (r *Report) Healthy() bool {
	return r.Count(core.SeverityError) == 0
}

// Count returns the number of findings with the given severity.
func (r *Report) Count(sev core.Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

// CountAtLeast returns the number of findings at least as severe as sev.
func (r *Report) CountAtLeast(sev core.Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity.AtLeast(sev) {
			n++
		}
	}
	return n
}

// Options configures Run.
type Options struct {
	// Concurrency bounds the number of tables checked at once.
	// Zero means runtime.NumCPU().
	Concurrency int
	// MaxFindings caps row and value findings per table. Zero means 100.
	MaxFindings int
	Logger      *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = runtime.NumCPU()
	}
	if o.MaxFindings <= 0 {
		o.MaxFindings = 100
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Run checks every table of db and its relations ledger. The returned error
// is only non-nil when the database directory cannot be read or ctx is
// cancelled; problems in the data are reported as findings.
func Run(ctx context.Context, db *database.Database, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	logger := opts.Logger.With("database", db.Name)

	names, err := db.Tables()
	if err != nil {
		return nil, err
	}

	results := make([]tableResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, name := range names {
		g.Go(func() error {
			res, err := checkTable(gctx, db.Dir(), name, opts.MaxFindings)
			if err != nil {
				return err
			}
			logger.Debug("table checked", "table", name, "rows", res.summary.Rows, "findings", len(res.findings))
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Database: db.Name, Tables: []TableSummary{}, Findings: []Finding{}}
	schemas := make(map[string]core.Schema, len(names))
	for i, res := range results {
		report.Tables = append(report.Tables, res.summary)
		report.Findings = append(report.Findings, res.findings...)
		if res.schema != nil {
			schemas[names[i]] = res.schema
		}
	}

	orphans, err := orphanFiles(db.Dir(), names)
	if err != nil {
		return nil, err
	}
	report.Findings = append(report.Findings, orphans...)

	recs, err := db.Relations().List()
	if err != nil {
		report.Findings = append(report.Findings, Finding{
			Severity: core.SeverityError,
			Check:    CheckRelations,
			Message:  err.Error(),
		})
	} else {
		report.Relations = len(recs)
		report.Findings = append(report.Findings, checkRelations(recs, names, schemas)...)
	}

	return report, nil
}

type tableResult struct {
	summary  TableSummary
	schema   core.Schema
	findings []Finding
}

func checkTable(ctx context.Context, dir, name string, maxFindings int) (tableResult, error) {
	res := tableResult{summary: TableSummary{Name: name}}
	add := func(sev core.Severity, check, column string, row int, format string, args ...any) {
		res.findings = append(res.findings, Finding{
			Severity: sev,
			Check:    check,
			Table:    name,
			Column:   column,
			Row:      row,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	release, err := lock.Shared(dir, name)
	if err != nil {
		return res, core.IOError("lock table", err)
	}
	defer release()

	schema, err := schemafile.Read(table.SchemaPath(dir, name))
	if err != nil {
		add(core.SeverityError, CheckSchema, "", 0, "%v", err)
		return res, nil
	}
	res.schema = schema
	res.summary.Columns = len(schema)

	header, err := csvfile.Header(table.DataPath(dir, name))
	if err != nil {
		add(core.SeverityError, CheckData, "", 0, "%v", err)
		return res, nil
	}
	if !slices.Equal(header, schema.Names()) {
		add(core.SeverityError, CheckHeader, "", 0, "header %v does not match schema %v", header, schema.Names())
		return res, nil
	}

	rowFindings := 0
	row := 0
	for rec, err := range csvfile.Scan(table.DataPath(dir, name)) {
		if err != nil {
			add(core.SeverityError, CheckData, "", row+1, "%v", err)
			break
		}
		row++
		if row%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		if rowFindings >= maxFindings {
			continue
		}
		if len(rec) != len(schema) {
			add(core.SeverityError, CheckRow, "", row, "row has %d fields, want %d", len(rec), len(schema))
			rowFindings++
			continue
		}
		for i, f := range schema {
			v := rec[i]
			if v == "" && f.Field.Nullable {
				continue
			}
			if !f.Field.Type.Accepts(v) {
				add(core.SeverityError, CheckValue, f.Name, row, "value %q does not fit %s", v, f.Field.Type)
				rowFindings++
			}
		}
	}
	res.summary.Rows = row
	if rowFindings >= maxFindings {
		add(core.SeverityInfo, CheckValue, "", 0, "stopped reporting after %d findings", maxFindings)
	}
	return res, nil
}

// orphanFiles reports data files without a schema side-car.
func orphanFiles(dir string, tables []string) ([]Finding, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, core.IOError("read database", err)
	}

	var findings []Finding
	for _, ent := range entries {
		name, ok := strings.CutSuffix(ent.Name(), table.DataSuffix)
		if ent.IsDir() || !ok || ent.Name() == relations.FileName || strings.HasPrefix(name, ".") {
			continue
		}
		if _, found := slices.BinarySearch(tables, name); !found {
			findings = append(findings, Finding{
				Severity: core.SeverityWarning,
				Check:    CheckOrphan,
				Table:    name,
				Message:  fmt.Sprintf("data file %s has no schema", ent.Name()),
			})
		}
	}
	return findings, nil
}

// checkRelations reports ledger rows naming tables or columns that no
// longer exist.
func checkRelations(recs []core.Relation, tables []string, schemas map[string]core.Schema) []Finding {
	var findings []Finding
	dangling := func(rec core.Relation, column, format string, args ...any) {
		findings = append(findings, Finding{
			Severity: core.SeverityWarning,
			Check:    CheckRelations,
			Table:    rec.FromTable,
			Column:   column,
			Message:  fmt.Sprintf("%s -> %s (%s): ", rec.FromTable, rec.ToTable, rec.Field) + fmt.Sprintf(format, args...),
		})
	}

	for _, rec := range recs {
		var missing []string
		for _, t := range []string{rec.FromTable, rec.ToTable} {
			if _, ok := slices.BinarySearch(tables, t); !ok && !slices.Contains(missing, t) {
				missing = append(missing, t)
			}
		}
		if len(missing) > 0 {
			dangling(rec, "", "table %s does not exist", strings.Join(missing, ", "))
			continue
		}
		for _, t := range []string{rec.FromTable, rec.ToTable} {
			schema, ok := schemas[t]
			if !ok {
				continue
			}
			if schema.Index(rec.Field) < 0 {
				dangling(rec, rec.Field, "column missing from %s", t)
			}
		}
	}
	return findings
}
