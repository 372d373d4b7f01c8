// Package report renders subject layouts, stats summaries and run manifests
// for the terminal.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"surfparcel/internal/models"
	"surfparcel/pkg/layout"
	"surfparcel/pkg/procedure"
	"surfparcel/pkg/stats"
)

// Viewer writes human readable reports to an output stream
type Viewer struct {
	// out receives the rendered reports
	out io.Writer

	// plain disables borders and colors, for pipes and tests
	plain bool

	// header styles the title line of every report
	header lipgloss.Style
}

// NewViewer creates a viewer writing to out
func NewViewer(out io.Writer, plain bool) *Viewer {
	header := lipgloss.NewStyle()
	if !plain {
		header = header.Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	}
	return &Viewer{out: out, plain: plain, header: header}
}

func (v *Viewer) table(headers []string, rows [][]string) string {
	t := table.New().Headers(headers...).Rows(rows...)
	if v.plain {
		return t.Border(lipgloss.HiddenBorder()).String()
	}
	return t.Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		String()
}

func (v *Viewer) title(s string) error {
	_, err := fmt.Fprintln(v.out, v.header.Render(s))
	return err
}

// ShowLayout lists the run metadata and every collected output. Absent
// outputs are listed with a dash.
func (v *Viewer) ShowLayout(l *layout.Layout) error {
	if err := v.title(fmt.Sprintf("Subject %s (FreeSurfer %s)", l.SubjectID(), l.Metadata().FreeSurferVersion)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(v.out, "recon-all %s\n", strings.TrimSpace(l.Metadata().CommandLine)); err != nil {
		return err
	}

	var rows [][]string
	for _, key := range l.Keys() {
		o, _ := l.Get(key)
		rows = append(rows, []string{key, outputCell(o, ""), outputCell(o, models.Left), outputCell(o, models.Right)})
	}
	_, err := fmt.Fprintln(v.out, v.table([]string{"OUTPUT", "PATH", "LH", "RH"}, rows))
	return err
}

func outputCell(o layout.Output, h models.Hemisphere) string {
	if h == "" {
		if o.Path == "" {
			return "-"
		}
		return o.Path
	}
	if p, ok := o.Hemi(h); ok {
		return p
	}
	return "-"
}

// ShowSummary prints Describe() of a stats table
func (v *Viewer) ShowSummary(name string, summaries []stats.Summary) error {
	if err := v.title(name); err != nil {
		return err
	}
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Column,
			strconv.Itoa(s.Count),
			formatFloat(s.Mean),
			formatFloat(s.Std),
			formatFloat(s.Min),
			formatFloat(s.Median),
			formatFloat(s.Max),
		})
	}
	_, err := fmt.Fprintln(v.out, v.table([]string{"COLUMN", "COUNT", "MEAN", "STD", "MIN", "MEDIAN", "MAX"}, rows))
	return err
}

// ShowManifests prints one line per processed subject followed by its outputs
func (v *Viewer) ShowManifests(results []procedure.Result) error {
	sorted := append([]procedure.Result(nil), results...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SubjectDir < sorted[j].SubjectDir })
	for _, res := range sorted {
		m := res.Manifest
		if m == nil {
			continue
		}
		elapsed := m.FinishedAt.Sub(m.StartedAt).Round(time.Millisecond)
		if err := v.title(fmt.Sprintf("%s: %s %s in %s (run %s)", m.Subject, m.Atlas, strings.Join(m.Procedures, "+"), elapsed, m.RunID)); err != nil {
			return err
		}
		var rows [][]string
		for _, key := range m.Keys() {
			rows = append(rows, []string{key, m.Outputs[key]})
		}
		if _, err := fmt.Fprintln(v.out, v.table([]string{"OUTPUT", "PATH"}, rows)); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', 3, 64)
}
