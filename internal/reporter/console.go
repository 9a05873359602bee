package reporter

import (
	"fmt"
	"io"
	"strings"

	"sql-crosscheck/internal/model"

	"github.com/fatih/color"
)

const ruleWidth = 80

type ConsoleReporter struct {
	out io.Writer
}

func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

func (r *ConsoleReporter) Report(report *model.Report) error {
	bold := color.New(color.Bold)
	banner := strings.Repeat("=", ruleWidth)

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, banner)
	fmt.Fprintln(r.out, bold.Sprint(report.Title))
	fmt.Fprintln(r.out, banner)
	if report.Root != "" {
		fmt.Fprintf(r.out, "Root: %s (%d files)\n", report.Root, report.FilesScanned)
	}

	if len(report.Issues) == 0 {
		fmt.Fprintln(r.out, color.GreenString("✔ All validations passed, no issues found!"))
	} else {
		fmt.Fprintf(r.out, "Summary: %s\n", SummaryLine(report.Issues))

		groups := Partition(report.Issues)
		for _, sev := range model.Severities {
			issues := groups[sev]
			if len(issues) == 0 {
				continue
			}

			levelColor := severityColor(sev)
			fmt.Fprintln(r.out)
			fmt.Fprintln(r.out, levelColor.Sprintf("%sS (%d):", sev, len(issues)))
			fmt.Fprintln(r.out, strings.Repeat("-", 50))
			for _, issue := range issues {
				r.printIssue(issue)
			}
		}
		fmt.Fprintln(r.out, banner)
	}

	for _, sec := range report.Sections {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, bold.Sprint(sec.Title+":"))
		for _, row := range sec.Rows {
			fmt.Fprintf(r.out, "  %s: %s\n", row.Key, row.Value)
		}
	}

	if report.Verdict != "" {
		fmt.Fprintln(r.out)
		if model.CountSeverity(report.Issues, model.SeverityError) > 0 {
			fmt.Fprintln(r.out, color.RedString("✘ %s", report.Verdict))
		} else {
			fmt.Fprintln(r.out, color.GreenString("✔ %s", report.Verdict))
		}
	}
	return nil
}

func (r *ConsoleReporter) printIssue(issue model.Issue) {
	fmt.Fprintf(r.out, "File: %s\n", displayPath(issue.Location.FilePath))
	fmt.Fprintf(r.out, "Line: %d\n", issue.Location.Line)
	fmt.Fprintf(r.out, "Category: %s\n", color.CyanString(issue.Category))
	fmt.Fprintf(r.out, "Description: %s\n", issue.Message)
	if issue.Suggestion != "" {
		fmt.Fprintf(r.out, "Suggestion: %s\n", issue.Suggestion)
	}
	fmt.Fprintln(r.out)
}

func severityColor(sev model.Severity) *color.Color {
	switch sev {
	case model.SeverityError:
		return color.New(color.FgRed, color.Bold)
	case model.SeverityWarning:
		return color.New(color.FgYellow, color.Bold)
	case model.SeverityInfo:
		return color.New(color.FgBlue, color.Bold)
	default:
		return color.New(color.FgWhite)
	}
}

// displayPath marks corpus-wide issues that have no file.
func displayPath(path string) string {
	if path == "" {
		return "(all files)"
	}
	return path
}
