// Package symbols holds the per-run symbol tables that validators read.
package symbols

import (
	"context"
	"fmt"
	"path/filepath"

	"sql-crosscheck/internal/extractor"
	"sql-crosscheck/internal/model"
	"sql-crosscheck/internal/scanner"

	"go.uber.org/zap"
)

// Tables is everything extracted from one scan. A Tables value is built once
// per run and only read afterwards.
type Tables struct {
	Root  string
	Files []*model.SourceFile

	// Definitions holds the current definition per name. A later file
	// replaces an earlier definition of the same name, as CREATE OR REPLACE
	// does when the scripts run in path order.
	Definitions map[string]model.FunctionDefinition
	// DefinitionOrder lists definition names by first appearance.
	DefinitionOrder []string
	// Declarations keeps every definition seen, overridden ones included.
	Declarations []model.FunctionDefinition

	Calls    []model.FunctionCall
	Contexts map[string]model.ContextSettings
	Objects  []model.CreatedObject

	// ParseIssues are FILE_PARSING errors for files that yielded no facts.
	ParseIssues []model.Issue
}

func NewTables(root string) *Tables {
	return &Tables{
		Root:        root,
		Definitions: make(map[string]model.FunctionDefinition),
		Contexts:    make(map[string]model.ContextSettings),
	}
}

// Add merges the facts of one file. Files must be added in path order.
// It returns the definitions that replaced an earlier one.
func (t *Tables) Add(facts *model.Facts) []model.FunctionDefinition {
	var overrides []model.FunctionDefinition

	t.Files = append(t.Files, facts.File)
	for _, def := range facts.Definitions {
		if _, ok := t.Definitions[def.Name]; ok {
			overrides = append(overrides, def)
		} else {
			t.DefinitionOrder = append(t.DefinitionOrder, def.Name)
		}
		t.Definitions[def.Name] = def
		t.Declarations = append(t.Declarations, def)
	}
	t.Calls = append(t.Calls, facts.Calls...)
	t.Objects = append(t.Objects, facts.Objects...)

	ctx := facts.Context
	if ctx == nil {
		ctx = model.ContextSettings{}
	}
	t.Contexts[facts.File.Path] = ctx
	return overrides
}

// AddParseFailure records a file that could not be read or decoded.
func (t *Tables) AddParseFailure(path string, err error) {
	t.ParseIssues = append(t.ParseIssues, model.Issue{
		Category: model.CategoryFileParsing,
		Severity: model.SeverityError,
		Message:  fmt.Sprintf("Failed to parse file: %v", err),
		Location: model.Location{FilePath: path},
	})
}

// Definition returns the current definition of name.
func (t *Tables) Definition(name string) (model.FunctionDefinition, bool) {
	def, ok := t.Definitions[name]
	return def, ok
}

// NameCount is a name with a count, used for report summaries.
type NameCount struct {
	Name  string
	Count int
}

// CallCounts counts call sites per function, ordered by first call.
func (t *Tables) CallCounts() []NameCount {
	index := make(map[string]int)
	var counts []NameCount
	for _, call := range t.Calls {
		i, ok := index[call.Name]
		if !ok {
			i = len(counts)
			index[call.Name] = i
			counts = append(counts, NameCount{Name: call.Name})
		}
		counts[i].Count++
	}
	return counts
}

// ObjectNames returns the set of created object names of a kind.
func (t *Tables) ObjectNames(kind model.ObjectKind) map[string]bool {
	names := make(map[string]bool)
	for _, obj := range t.Objects {
		if obj.Kind == kind {
			names[obj.Name] = true
		}
	}
	return names
}

// File returns the scanned file with the given absolute path.
func (t *Tables) File(path string) (*model.SourceFile, bool) {
	for _, f := range t.Files {
		if f.Path == path {
			return f, true
		}
	}
	return nil, false
}

// Options controls how Build scans.
type Options struct {
	Root      string
	Suffix    string
	Excludes  []string
	Workers   int
	Functions []string
}

// Build scans root and extracts every matching file into fresh tables.
// The only error is a root that cannot be enumerated; unreadable files
// become FILE_PARSING issues.
func Build(ctx context.Context, opts Options, log *zap.SugaredLogger) (*Tables, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", opts.Root, err)
	}

	type skip struct {
		path string
		err  error
	}
	var skipped []skip
	walker := scanner.NewFileWalker(opts.Suffix, opts.Excludes)
	walker.OnSkip = func(path string, err error) {
		skipped = append(skipped, skip{path: path, err: err})
	}
	paths, err := walker.Walk(ctx, root)
	if err != nil {
		return nil, err
	}
	log.Infow("Found files to validate", "root", root, "files", len(paths))

	mgr := extractor.NewManager(root)
	mgr.Register(opts.Suffix, extractor.NewSQLExtractor(opts.Functions))

	pool := scanner.NewWorkerPool(opts.Workers, mgr.Extract)
	results, err := pool.Run(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("extraction interrupted: %w", err)
	}

	tables := NewTables(root)
	for _, sk := range skipped {
		log.Warnw("Skipped unreadable entry", "path", sk.path, "error", sk.err)
		tables.AddParseFailure(sk.path, sk.err)
	}
	for _, res := range results {
		if res.Error != nil {
			log.Warnw("Failed to parse file", "file", res.File, "error", res.Error)
			tables.AddParseFailure(res.File, res.Error)
			continue
		}
		for _, def := range tables.Add(res.Facts) {
			log.Debugw("Function definition replaced", "function", def.Name, "file", def.Location.FilePath, "line", def.Location.Line)
		}
	}

	log.Debugw("Symbol tables built",
		"definitions", len(tables.Definitions),
		"calls", len(tables.Calls),
		"objects", len(tables.Objects),
		"parse_failures", len(tables.ParseIssues))
	return tables, nil
}
