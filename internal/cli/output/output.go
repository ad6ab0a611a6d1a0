// Package output renders command results as styled text, markdown or JSON.
//
// ModeAuto picks styled text when stdout is a terminal and markdown when it
// is piped, so scripted use gets stable, unstyled output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// Mode selects how results are rendered.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Renderer writes command output.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	styled bool
	styles styles
}

type styles struct {
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	header  lipgloss.Style
	muted   lipgloss.Style
}

func newStyles() styles {
	return styles{
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		header:  lipgloss.NewStyle().Bold(true),
		muted:   lipgloss.NewStyle().Faint(true),
	}
}

// NewRenderer returns a Renderer. An empty mode means ModeAuto.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	if mode == ModeAuto {
		if isTerminal(out) {
			mode = ModeText
		} else {
			mode = ModeMarkdown
		}
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		styled: mode == ModeText && isTerminal(out),
		styles: newStyles(),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Mode returns the resolved output mode. It is never ModeAuto.
func (r *Renderer) Mode() Mode {
	return r.mode
}

// Out returns the primary output writer.
func (r *Renderer) Out() io.Writer {
	return r.out
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

// Success prints a confirmation line. JSON mode prints nothing; commands
// emit their JSON result separately.
func (r *Renderer) Success(format string, args ...any) {
	if r.mode == ModeJSON {
		return
	}
	_, _ = fmt.Fprintln(r.out, r.style(r.styles.success, fmt.Sprintf(format, args...)))
}

// Warning prints a warning to the error writer.
func (r *Renderer) Warning(format string, args ...any) {
	_, _ = fmt.Fprintln(r.errOut, r.style(r.styles.warning, "Warning: "+fmt.Sprintf(format, args...)))
}

// Error prints an error to the error writer.
func (r *Renderer) Error(err error) {
	_, _ = fmt.Fprintln(r.errOut, r.style(r.styles.failure, "Error: "+err.Error()))
}

// Header prints a section title.
func (r *Renderer) Header(title string) {
	switch r.mode {
	case ModeJSON:
		return
	case ModeMarkdown:
		_, _ = fmt.Fprintf(r.out, "## %s\n\n", title)
	default:
		_, _ = fmt.Fprintln(r.out, r.style(r.styles.header, title))
	}
}

// Muted prints secondary information.
func (r *Renderer) Muted(format string, args ...any) {
	if r.mode == ModeJSON {
		return
	}
	_, _ = fmt.Fprintln(r.out, r.style(r.styles.muted, fmt.Sprintf(format, args...)))
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders rows under headers. In JSON mode each row becomes an object
// keyed by header.
func (r *Renderer) Table(headers []string, rows [][]string) error {
	if r.mode == ModeJSON {
		objs := make([]map[string]string, 0, len(rows))
		for _, row := range rows {
			obj := make(map[string]string, len(headers))
			for i, h := range headers {
				if i < len(row) {
					obj[h] = row[i]
				}
			}
			objs = append(objs, obj)
		}
		return r.JSON(objs)
	}

	if len(rows) == 0 {
		_, _ = fmt.Fprintln(r.out, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, v := range row {
			tr[i] = v
		}
		t.AppendRow(tr)
	}

	if r.mode == ModeMarkdown {
		t.RenderMarkdown()
		_, _ = fmt.Fprintln(r.out)
	} else {
		t.Render()
	}
	_, _ = fmt.Fprintf(r.out, "(%d rows)\n", len(rows))
	return nil
}
