package commands

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapdb/internal/cli/output"
	"github.com/leapstack-labs/leapdb/internal/doctor"
	"github.com/leapstack-labs/leapdb/pkg/core"
	"github.com/spf13/cobra"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Concurrency int
	MaxFindings int
	FailOn      string
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the database for inconsistencies",
		Long: `Check every table of the database without modifying anything.

The report covers:
- Schema side-cars that cannot be decoded
- Data files whose header does not match the schema
- Rows with the wrong number of fields or values that do not fit their column
- Data files without a schema
- Relations naming tables or columns that no longer exist

The command fails when a finding at or above the --fail-on severity
(error by default) is reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "Tables checked in parallel (default: number of CPUs)")
	cmd.Flags().IntVar(&opts.MaxFindings, "max-findings", 100, "Row findings reported per table")
	cmd.Flags().StringVar(&opts.FailOn, "fail-on", "error", "Lowest severity that fails the command (error, warning, info)")

	return cmd
}

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	failOn, ok := core.ParseSeverity(opts.FailOn)
	if !ok {
		return fmt.Errorf("invalid --fail-on %q (must be error, warning or info)", opts.FailOn)
	}

	cc, cleanup := NewCommandContext(cmd)
	defer cleanup()

	db, err := cc.OpenDatabase()
	if err != nil {
		return err
	}
	report, err := doctor.Run(cmd.Context(), db, doctor.Options{
		Concurrency: opts.Concurrency,
		MaxFindings: opts.MaxFindings,
		Logger:      cc.Logger,
	})
	if err != nil {
		return err
	}

	if err := renderDoctor(cc.Renderer, report); err != nil {
		return err
	}
	if n := report.CountAtLeast(failOn); n > 0 {
		return fmt.Errorf("%d %s-level finding(s) in database %s", n, failOn, report.Database)
	}
	return nil
}

func renderDoctor(r *output.Renderer, report *doctor.Report) error {
	if r.Mode() == output.ModeJSON {
		return r.JSON(report)
	}

	r.Header("Database: " + report.Database)
	tables := make([][]string, 0, len(report.Tables))
	for _, t := range report.Tables {
		tables = append(tables, []string{t.Name, strconv.Itoa(t.Columns), strconv.Itoa(t.Rows)})
	}
	if err := r.Table([]string{"table", "columns", "rows"}, tables); err != nil {
		return err
	}
	r.Muted("%d relation(s) recorded", report.Relations)

	if len(report.Findings) == 0 {
		r.Success("No problems found")
		return nil
	}

	r.Header("Findings")
	rows := make([][]string, 0, len(report.Findings))
	for _, f := range report.Findings {
		row := ""
		if f.Row > 0 {
			row = strconv.Itoa(f.Row)
		}
		rows = append(rows, []string{f.Severity.String(), f.Check, f.Table, f.Column, row, f.Message})
	}
	return r.Table([]string{"severity", "check", "table", "column", "row", "message"}, rows)
}
