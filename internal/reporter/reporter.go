// Package reporter renders validation reports and derives exit codes.
package reporter

import (
	"fmt"
	"io"

	"sql-crosscheck/internal/model"
	"sql-crosscheck/internal/symbols"
)

// MaxExitCode is the highest exit code an issue count maps to. 255 is kept
// for runs that fail before producing a report.
const MaxExitCode = 254

// Partition groups issues by severity. Each group keeps input order.
func Partition(issues []model.Issue) map[model.Severity][]model.Issue {
	groups := make(map[model.Severity][]model.Issue, len(model.Severities))
	for _, issue := range issues {
		groups[issue.Severity] = append(groups[issue.Severity], issue)
	}
	return groups
}

// SummaryLine formats the per-severity counts.
func SummaryLine(issues []model.Issue) string {
	return fmt.Sprintf("%d Errors, %d Warnings, %d Info",
		model.CountSeverity(issues, model.SeverityError),
		model.CountSeverity(issues, model.SeverityWarning),
		model.CountSeverity(issues, model.SeverityInfo))
}

// ExitCode is the number of ERROR issues, clamped to MaxExitCode.
func ExitCode(issues []model.Issue) int {
	n := model.CountSeverity(issues, model.SeverityError)
	if n > MaxExitCode {
		return MaxExitCode
	}
	return n
}

// DefinitionSection lists current definitions with their parameter counts,
// in first-definition order.
func DefinitionSection(t *symbols.Tables) model.Section {
	sec := model.Section{Title: fmt.Sprintf("FUNCTION DEFINITIONS FOUND (%d)", len(t.DefinitionOrder))}
	for _, name := range t.DefinitionOrder {
		def := t.Definitions[name]
		sec.Rows = append(sec.Rows, model.SectionRow{
			Key:   name,
			Value: fmt.Sprintf("%d parameters", len(def.Parameters)),
		})
	}
	return sec
}

// CallSection lists call counts per function, in first-call order.
func CallSection(t *symbols.Tables) model.Section {
	sec := model.Section{Title: fmt.Sprintf("FUNCTION CALLS FOUND (%d)", len(t.Calls))}
	for _, nc := range t.CallCounts() {
		sec.Rows = append(sec.Rows, model.SectionRow{
			Key:   nc.Name,
			Value: fmt.Sprintf("%d calls", nc.Count),
		})
	}
	return sec
}

// Output formats.
const (
	FormatConsole = "console"
	FormatTable   = "table"
)

// New returns the reporter for a format.
func New(format string, w io.Writer) (model.Reporter, error) {
	switch format {
	case FormatConsole, "":
		return NewConsoleReporter(w), nil
	case FormatTable:
		return NewTableReporter(w), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}
