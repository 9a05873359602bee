// Package integration runs a dry-run check of a deployment script set:
// required scripts, their execution order, required objects and the
// cross-file validation, without connecting to a warehouse.
package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"sql-crosscheck/internal/model"
	"sql-crosscheck/internal/parser"
	"sql-crosscheck/internal/symbols"
	"sql-crosscheck/internal/validator"

	"go.uber.org/zap"
)

// Options configures a dry run.
type Options struct {
	Build  symbols.Options
	Engine validator.Options

	// Scripts are the required scripts, relative to the root with forward
	// slashes, in execution order.
	Scripts []string
	// Tables and Views must each be the target of some CREATE statement.
	Tables []string
	Views  []string
	// ReferenceSchema optionally names a DDL file whose tables and views
	// are required as well.
	ReferenceSchema string

	// Stages defaults to DefaultStages when nil.
	Stages []Stage
}

// Result is the outcome of one dry run.
type Result struct {
	Tables *symbols.Tables
	Issues []model.Issue
	// ConsistencyIssues are the findings of the cross-file validation,
	// summarized in Issues by a single CONSISTENCY entry.
	ConsistencyIssues []model.Issue
	Scripts           []ScriptStatus
	Stages            []StageResult
}

type ScriptStatus struct {
	Path  string
	Found bool
}

// Success reports whether the run found no ERROR issues.
func (r *Result) Success() bool {
	return model.CountSeverity(r.Issues, model.SeverityError) == 0
}

func (r *Result) ExitCode() int {
	if r.Success() {
		return 0
	}
	return 1
}

// Sections renders script and stage status for the report.
func (r *Result) Sections() []model.Section {
	scripts := model.Section{Title: fmt.Sprintf("REQUIRED SCRIPTS (%d)", len(r.Scripts))}
	for _, s := range r.Scripts {
		status := "found"
		if !s.Found {
			status = "missing"
		}
		scripts.Rows = append(scripts.Rows, model.SectionRow{Key: s.Path, Value: status})
	}

	stages := model.Section{Title: fmt.Sprintf("WORKFLOW STAGES (%d)", len(r.Stages))}
	for i, s := range r.Stages {
		status := "ok"
		if !s.Passed {
			status = "attention"
		}
		stages.Rows = append(stages.Rows, model.SectionRow{Key: fmt.Sprintf("%d. %s", i+1, s.Name), Value: status})
	}

	return []model.Section{scripts, stages}
}

type Runner struct {
	opts   Options
	parser *parser.SQLParser
	log    *zap.SugaredLogger
}

func NewRunner(opts Options, log *zap.SugaredLogger) *Runner {
	if opts.Stages == nil {
		opts.Stages = DefaultStages()
	}
	return &Runner{
		opts:   opts,
		parser: parser.NewSQLParser(),
		log:    log,
	}
}

// Run scans the root once and applies every dry-run check to the result.
// Errors are returned only for an unreadable root or reference schema.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	tables, err := symbols.Build(ctx, r.opts.Build, r.log)
	if err != nil {
		return nil, err
	}

	res := &Result{Tables: tables}

	r.log.Info("Checking required scripts...")
	res.Issues = append(res.Issues, r.checkScripts(tables, res)...)

	r.log.Info("Checking cross-file consistency...")
	res.ConsistencyIssues = validator.NewDefaultEngine(r.opts.Engine, r.log).Run(tables)
	if n := model.CountSeverity(res.ConsistencyIssues, model.SeverityError); n > 0 {
		res.Issues = append(res.Issues, model.Issue{
			Category:   model.CategoryConsistency,
			Severity:   model.SeverityError,
			Message:    fmt.Sprintf("UDF consistency validation failed with %d errors", n),
			Suggestion: "Run the validate command for details",
		})
	}

	r.log.Info("Checking execution order...")
	res.Issues = append(res.Issues, r.checkExecutionOrder(tables)...)

	r.log.Info("Checking required objects...")
	objectIssues, err := r.checkObjects(tables)
	if err != nil {
		return nil, err
	}
	res.Issues = append(res.Issues, objectIssues...)

	r.log.Info("Checking unresolved variables...")
	res.Issues = append(res.Issues, checkVariables(tables)...)

	r.log.Info("Simulating workflow...")
	for _, stage := range r.opts.Stages {
		var issues []model.Issue
		if stage.Check != nil {
			issues = stage.Check(tables)
		}
		res.Stages = append(res.Stages, StageResult{Name: stage.Name, Passed: len(issues) == 0})
		res.Issues = append(res.Issues, issues...)
	}

	r.log.Infow("Dry run finished", "issues", len(res.Issues), "success", res.Success())
	return res, nil
}

func (r *Runner) scriptPath(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

func (r *Runner) checkScripts(t *symbols.Tables, res *Result) []model.Issue {
	var issues []model.Issue

	for _, rel := range r.opts.Scripts {
		path := r.scriptPath(t.Root, rel)
		info, err := os.Stat(path)
		found := err == nil && info.Mode().IsRegular()
		res.Scripts = append(res.Scripts, ScriptStatus{Path: rel, Found: found})

		if !found {
			issues = append(issues, model.Issue{
				Category:   model.CategoryMissingScript,
				Severity:   model.SeverityError,
				Message:    fmt.Sprintf("Missing required script: %s", rel),
				Suggestion: "Restore the script or remove it from the required list",
				Location:   model.Location{FilePath: path},
			})
			continue
		}

		marker := r.opts.Engine.UDFMarker
		if marker == "" || !strings.Contains(rel, marker) {
			continue
		}
		settings, scanned := t.Contexts[path]
		if !scanned {
			r.log.Debugw("Required script was not scanned", "script", rel)
			continue
		}
		for _, dim := range []model.Dimension{model.DimensionDatabase, model.DimensionSchema} {
			if _, ok := settings[dim]; ok {
				continue
			}
			issues = append(issues, model.Issue{
				Category:   model.CategoryRecommendedContext,
				Severity:   model.SeverityInfo,
				Message:    fmt.Sprintf("Missing USE %s (should be set)", dim),
				Suggestion: fmt.Sprintf("Add 'USE %s %s;'", dim, r.opts.Engine.Baseline[dim]),
				Location:   model.Location{FilePath: path},
			})
		}
	}

	return issues
}

// checkExecutionOrder flags calls that run before the required script
// defining the function. Functions defined outside the required scripts are
// left to the signature check.
func (r *Runner) checkExecutionOrder(t *symbols.Tables) []model.Issue {
	position := make(map[string]int, len(r.opts.Scripts))
	for i, rel := range r.opts.Scripts {
		position[r.scriptPath(t.Root, rel)] = i
	}

	definedIn := make(map[string]int)
	for _, def := range t.Declarations {
		i, ok := position[def.Location.FilePath]
		if !ok {
			continue
		}
		if j, seen := definedIn[def.Name]; !seen || i < j {
			definedIn[def.Name] = i
		}
	}

	var issues []model.Issue
	for _, call := range t.Calls {
		i, ok := position[call.Location.FilePath]
		if !ok {
			continue
		}
		j, ok := definedIn[call.Name]
		if !ok || j <= i {
			continue
		}
		issues = append(issues, model.Issue{
			Category:   model.CategoryExecutionOrder,
			Severity:   model.SeverityError,
			Message:    fmt.Sprintf("Function '%s' is called before %s defines it", call.Name, r.opts.Scripts[j]),
			Suggestion: fmt.Sprintf("Run %s before %s", r.opts.Scripts[j], r.opts.Scripts[i]),
			Location:   call.Location,
		})
	}
	return issues
}

func (r *Runner) checkObjects(t *symbols.Tables) ([]model.Issue, error) {
	tables := append([]string(nil), r.opts.Tables...)
	views := append([]string(nil), r.opts.Views...)

	if r.opts.ReferenceSchema != "" {
		catalog, err := r.parser.LoadCatalog(r.opts.ReferenceSchema)
		if err != nil {
			return nil, fmt.Errorf("load reference schema %s: %w", r.opts.ReferenceSchema, err)
		}
		r.log.Debugw("Reference schema loaded", "path", r.opts.ReferenceSchema, "tables", len(catalog.Tables), "views", len(catalog.Views))
		tables = append(tables, catalog.RequiredTables()...)
		views = append(views, catalog.Views...)
	}

	var issues []model.Issue
	issues = append(issues, missingObjects(model.ObjectTable, tables, t.ObjectNames(model.ObjectTable))...)
	issues = append(issues, missingObjects(model.ObjectView, views, t.ObjectNames(model.ObjectView))...)
	return issues, nil
}

func missingObjects(kind model.ObjectKind, required []string, created map[string]bool) []model.Issue {
	var issues []model.Issue
	seen := make(map[string]bool)
	for _, name := range required {
		name = strings.ToUpper(name)
		if seen[name] || created[name] {
			continue
		}
		seen[name] = true
		issues = append(issues, model.Issue{
			Category:   model.CategoryMissingObject,
			Severity:   model.SeverityWarning,
			Message:    fmt.Sprintf("Required %s %s not found in scripts", kind, name),
			Suggestion: fmt.Sprintf("Add a CREATE %s %s statement", kind, name),
		})
	}
	return issues
}

// Positional references such as $1 are column accessors, not variables.
var variableRef = regexp.MustCompile(`\$[A-Za-z_]\w*`)

func checkVariables(t *symbols.Tables) []model.Issue {
	var issues []model.Issue

	for _, file := range t.Files {
		matches := variableRef.FindAllStringIndex(file.Masked, -1)
		if len(matches) == 0 {
			continue
		}

		names := make(map[string]bool)
		for _, m := range matches {
			names[file.Masked[m[0]:m[1]]] = true
		}
		sorted := make([]string, 0, len(names))
		for name := range names {
			sorted = append(sorted, name)
		}
		sort.Strings(sorted)

		issues = append(issues, model.Issue{
			Category:   model.CategoryUnresolvedVariable,
			Severity:   model.SeverityWarning,
			Message:    fmt.Sprintf("Unresolved variables: %s", strings.Join(sorted, ", ")),
			Suggestion: "Define the variables with SET or substitute them before running the script",
			Location:   model.Location{FilePath: file.Path, Line: strings.Count(file.Content[:matches[0][0]], "\n") + 1},
		})
	}
	return issues
}
