package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ErrUnknownFormat is returned by NewFormatter for an unsupported format name.
var ErrUnknownFormat = errors.New("report: unknown format")

// Formatter renders plans and exports.
type Formatter interface {
	FormatPlan(p *Plan) error
	FormatExport(e *Export) error
}

// Format names.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// NewFormatter creates a formatter by name. Color only affects the text format.
func NewFormatter(name string, w io.Writer, color bool) (Formatter, error) {
	switch name {
	case FormatText, "":
		return NewTextFormatter(w, color), nil
	case FormatJSON:
		return NewJSONFormatter(w), nil
	case FormatCSV:
		return NewCSVFormatter(w), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
}

// -----------------------------------------------------------------------------
// Text Formatter
// -----------------------------------------------------------------------------

// TextFormatter prints one block per table with each field's state.
type TextFormatter struct {
	w io.Writer

	title     lipgloss.Style
	dim       lipgloss.Style
	wanted    lipgloss.Style
	needed    lipgloss.Style
	available lipgloss.Style
}

// NewTextFormatter creates a text formatter. Without color the output is plain text.
func NewTextFormatter(w io.Writer, color bool) *TextFormatter {
	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	return &TextFormatter{
		w:         w,
		title:     r.NewStyle().Bold(true).Underline(true),
		dim:       r.NewStyle().Faint(true),
		wanted:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		needed:    r.NewStyle().Foreground(lipgloss.Color("11")),
		available: r.NewStyle().Foreground(lipgloss.Color("10")),
	}
}

func (t *TextFormatter) state(s State) string {
	label := s.Label()

	switch {
	case s.Wanted:
		return t.wanted.Render(label)
	case s.Needed:
		return t.needed.Render(label)
	case s.Available:
		return t.available.Render(label)
	default:
		return t.dim.Render(label)
	}
}

// FormatPlan prints every table with its state and the state of each column.
// Keys are marked with "*" and computed columns with "ƒ".
func (t *TextFormatter) FormatPlan(p *Plan) error {
	width := 0

	for _, tb := range p.Tables {
		for _, f := range tb.Fields {
			width = max(width, len(f.Column))
		}
	}

	for _, n := range p.Detached {
		width = max(width, len(n.Name))
	}

	for _, tb := range p.Tables {
		_, _ = fmt.Fprintf(t.w, "%s %s\n", t.title.Render(tb.Name), t.state(tb.State))

		for _, f := range tb.Fields {
			_, _ = fmt.Fprintf(t.w, "  %s %-*s  %s\n", marker(f), width, f.Column, t.state(f.State))
		}

		_, _ = fmt.Fprintln(t.w)
	}

	if len(p.Detached) > 0 {
		_, _ = fmt.Fprintln(t.w, t.title.Render("computed"))

		for _, n := range p.Detached {
			_, _ = fmt.Fprintf(t.w, "  ƒ %-*s  %s\n", width, n.Name, t.state(n.State))
		}

		_, _ = fmt.Fprintln(t.w)
	}

	_, err := fmt.Fprintf(t.w, "%d nodes, %d wanted, %d needed, %d available\n",
		p.Counts.Nodes, p.Counts.Wanted, p.Counts.Needed, p.Counts.Available)

	return err
}

func marker(f FieldRow) string {
	switch {
	case f.Key:
		return "*"
	case f.Computed:
		return "ƒ"
	default:
		return " "
	}
}

// FormatExport prints the flat export as an aligned table.
func (t *TextFormatter) FormatExport(e *Export) error {
	records := [][]string{ExportHeader}
	for _, r := range e.Rows {
		records = append(records, r.Record())
	}

	widths := make([]int, len(ExportHeader))

	for _, rec := range records {
		for i, cell := range rec {
			widths[i] = max(widths[i], len(cell))
		}
	}

	for i, rec := range records {
		cells := make([]string, len(rec))
		for j, cell := range rec {
			cells[j] = fmt.Sprintf("%-*s", widths[j], cell)
		}

		line := strings.TrimRight(strings.Join(cells, "  "), " ")
		if i == 0 {
			line = t.title.Render(line)
		}

		_, _ = fmt.Fprintln(t.w, line)
	}

	if len(e.Detached) > 0 {
		_, _ = fmt.Fprintln(t.w)
		_, _ = fmt.Fprintln(t.w, t.title.Render("computed"))

		for _, n := range e.Detached {
			_, _ = fmt.Fprintf(t.w, "  %s  %s\n", n.Name, t.dim.Render(n.Kind))
		}
	}

	return nil
}

// -----------------------------------------------------------------------------
// CSV Formatter
// -----------------------------------------------------------------------------

// CSVFormatter writes comma-separated records.
type CSVFormatter struct {
	w io.Writer

	// Detached, when set, receives the computed nodes no table lists.
	Detached io.Writer
}

// NewCSVFormatter creates a CSV formatter.
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{w: w}
}

// PlanHeader is the column header of a plan written as CSV.
var PlanHeader = []string{"tablename", "column", "global_name", "wanted", "needed", "available"}

// FormatPlan writes one record per table and per (table, field) pair. Table
// records leave column and global_name empty.
func (c *CSVFormatter) FormatPlan(p *Plan) error {
	cw := csv.NewWriter(c.w)

	if err := cw.Write(PlanHeader); err != nil {
		return err
	}

	for _, tb := range p.Tables {
		if err := cw.Write(append([]string{tb.Name, "", ""}, stateRecord(tb.State)...)); err != nil {
			return err
		}

		for _, f := range tb.Fields {
			if err := cw.Write(append([]string{tb.Name, f.Column, f.GlobalName}, stateRecord(f.State)...)); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	return c.writeDetached(p.Detached)
}

func stateRecord(s State) []string {
	return []string{
		strconv.FormatBool(s.Wanted),
		strconv.FormatBool(s.Needed),
		strconv.FormatBool(s.Available),
	}
}

// FormatExport writes the flat export.
func (c *CSVFormatter) FormatExport(e *Export) error {
	cw := csv.NewWriter(c.w)

	if err := cw.Write(ExportHeader); err != nil {
		return err
	}

	for _, r := range e.Rows {
		if err := cw.Write(r.Record()); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	return c.writeDetached(e.Detached)
}

// DetachedHeader is the column header of the detached computed node list.
var DetachedHeader = []string{"global_name", "kind", "fn", "params"}

func (c *CSVFormatter) writeDetached(rows []NodeRow) error {
	if c.Detached == nil {
		return nil
	}

	cw := csv.NewWriter(c.Detached)

	if err := cw.Write(DetachedHeader); err != nil {
		return err
	}

	for _, n := range rows {
		if err := cw.Write([]string{n.Name, n.Kind, n.Fn, strings.Join(n.Params, " ")}); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// -----------------------------------------------------------------------------
// JSON Formatter
// -----------------------------------------------------------------------------

// JSONFormatter writes plans and exports as indented JSON documents.
type JSONFormatter struct {
	enc *json.Encoder
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return &JSONFormatter{enc: enc}
}

// FormatPlan encodes the plan.
func (j *JSONFormatter) FormatPlan(p *Plan) error {
	return j.enc.Encode(p)
}

// FormatExport encodes the export.
func (j *JSONFormatter) FormatExport(e *Export) error {
	return j.enc.Encode(e)
}
