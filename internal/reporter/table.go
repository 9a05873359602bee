package reporter

import (
	"fmt"
	"io"

	"sql-crosscheck/internal/model"

	"github.com/jedib0t/go-pretty/v6/table"
)

// TableReporter renders the report as boxed tables.
type TableReporter struct {
	out io.Writer
}

func NewTableReporter(w io.Writer) *TableReporter {
	return &TableReporter{out: w}
}

func (r *TableReporter) Report(report *model.Report) error {
	_, _ = fmt.Fprintln(r.out, report.Title)
	if report.Root != "" {
		_, _ = fmt.Fprintf(r.out, "Root: %s (%d files)\n", report.Root, report.FilesScanned)
	}
	_, _ = fmt.Fprintf(r.out, "Summary: %s\n", SummaryLine(report.Issues))

	if len(report.Issues) > 0 {
		t := r.newWriter()
		t.AppendHeader(table.Row{"Severity", "Category", "File", "Line", "Description", "Suggestion"})
		groups := Partition(report.Issues)
		for _, sev := range model.Severities {
			for _, issue := range groups[sev] {
				t.AppendRow(table.Row{
					issue.Severity,
					issue.Category,
					displayPath(issue.Location.FilePath),
					issue.Location.Line,
					issue.Message,
					issue.Suggestion,
				})
			}
		}
		t.Render()
	}

	for _, sec := range report.Sections {
		t := r.newWriter()
		t.SetTitle(sec.Title)
		for _, row := range sec.Rows {
			t.AppendRow(table.Row{row.Key, row.Value})
		}
		t.Render()
	}

	if report.Verdict != "" {
		_, _ = fmt.Fprintln(r.out, report.Verdict)
	}
	return nil
}

func (r *TableReporter) newWriter() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	return t
}
