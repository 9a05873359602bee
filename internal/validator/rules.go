package validator

import (
	"fmt"
	"regexp"
	"strings"

	"sql-crosscheck/internal/extractor"
	"sql-crosscheck/internal/model"
	"sql-crosscheck/internal/symbols"
)

// SignatureRule checks every call against the current definition of its
// function
type SignatureRule struct{}

func (r *SignatureRule) Name() string { return "function_signatures" }

func (r *SignatureRule) Check(t *symbols.Tables) []model.Issue {
	var issues []model.Issue

	for _, call := range t.Calls {
		def, ok := t.Definition(call.Name)
		if !ok {
			issues = append(issues, model.Issue{
				Category:   model.CategoryUndefinedFunction,
				Severity:   model.SeverityError,
				Message:    fmt.Sprintf("Function '%s' is called but not defined", call.Name),
				Suggestion: "Ensure the function is created before calling it",
				Location:   call.Location,
			})
			continue
		}

		if len(call.Arguments) != len(def.Parameters) {
			issues = append(issues, model.Issue{
				Category:   model.CategoryParameterMismatch,
				Severity:   model.SeverityError,
				Message:    fmt.Sprintf("Function '%s' expects %d parameters but got %d", call.Name, len(def.Parameters), len(call.Arguments)),
				Suggestion: fmt.Sprintf("Expected parameters: %s", strings.Join(def.Parameters, ", ")),
				Location:   call.Location,
			})
		}
	}

	return issues
}

// ContextRule compares each file's USE directives with the expected baseline
type ContextRule struct {
	Baseline          map[model.Dimension]string
	SensitiveMarker   string
	MustDeclareMarker string
}

func (r *ContextRule) Name() string { return "context_consistency" }

func (r *ContextRule) Check(t *symbols.Tables) []model.Issue {
	var issues []model.Issue

	for _, file := range t.Files {
		// Parameterized scripts set their context through variables
		if matchesMarker(file.RelPath, r.SensitiveMarker) {
			continue
		}
		settings := t.Contexts[file.Path]

		for _, dim := range model.Dimensions {
			expected := r.Baseline[dim]
			if expected == "" {
				continue
			}

			setting, declared := settings[dim]
			switch {
			case declared && !sameName(setting.Value, expected):
				issues = append(issues, model.Issue{
					Category:   model.CategoryContextInconsistency,
					Severity:   model.SeverityWarning,
					Message:    fmt.Sprintf("Inconsistent %s: expected '%s', found '%s'", dim, expected, setting.Value),
					Suggestion: fmt.Sprintf("Use 'USE %s %s;'", dim, expected),
					Location:   model.Location{FilePath: file.Path, Line: setting.Line},
				})
			case !declared && matchesMarker(file.RelPath, r.MustDeclareMarker):
				issues = append(issues, model.Issue{
					Category:   model.CategoryMissingContext,
					Severity:   model.SeverityError,
					Message:    fmt.Sprintf("Missing %s context setting", dim),
					Suggestion: fmt.Sprintf("Add 'USE %s %s;'", dim, expected),
					Location:   model.Location{FilePath: file.Path},
				})
			}
		}
	}

	return issues
}

// sameName compares identifiers the way an unquoted identifier resolves:
// case-insensitively and by their last qualified part.
func sameName(value, expected string) bool {
	return extractor.BaseName(value) == extractor.BaseName(expected)
}

// DependencyOrderRule requires UDF scripts to set a warehouse before they
// create functions
type DependencyOrderRule struct {
	UDFMarker string
}

func (r *DependencyOrderRule) Name() string { return "dependency_order" }

func (r *DependencyOrderRule) Check(t *symbols.Tables) []model.Issue {
	var issues []model.Issue

	for _, file := range t.Files {
		if !matchesMarker(file.RelPath, r.UDFMarker) {
			continue
		}
		if _, ok := t.Contexts[file.Path][model.DimensionWarehouse]; ok {
			continue
		}
		issues = append(issues, model.Issue{
			Category:   model.CategoryDependencyOrder,
			Severity:   model.SeverityError,
			Message:    "UDF script doesn't set warehouse context",
			Suggestion: "Ensure setup script runs first or add warehouse context",
			Location:   model.Location{FilePath: file.Path},
		})
	}

	return issues
}

// SyntaxPattern is a textual anti-pattern with its fix.
type SyntaxPattern struct {
	ID         string
	Pattern    *regexp.Regexp
	Message    string
	Suggestion string
}

// DefaultSyntaxPatterns returns the built-in patterns.
func DefaultSyntaxPatterns() []SyntaxPattern {
	return []SyntaxPattern{
		{
			ID:         "comment_syntax",
			Pattern:    regexp.MustCompile(`(?i)\b(?:CREATE|ALTER)\b.*\bCOMMENT\s+["'][^=]`),
			Message:    "Incorrect COMMENT syntax",
			Suggestion: `Use 'COMMENT = "text"' instead of 'COMMENT "text"'`,
		},
		{
			ID:         "uuid_in_values",
			Pattern:    regexp.MustCompile(`(?i)\bVALUES\s*\([^)]*\bUUID_STRING\(\)`),
			Message:    "UUID_STRING() function call in VALUES clause",
			Suggestion: "Use SELECT statement instead of VALUES for function calls",
		},
	}
}

// SyntaxPatternRule matches anti-patterns against each file's text, with
// comments blanked. It does not use the extracted facts.
type SyntaxPatternRule struct {
	Patterns []SyntaxPattern
}

func (r *SyntaxPatternRule) Name() string { return "syntax_patterns" }

func (r *SyntaxPatternRule) Check(t *symbols.Tables) []model.Issue {
	var issues []model.Issue

	for _, file := range t.Files {
		for _, p := range r.Patterns {
			for _, loc := range p.Pattern.FindAllStringIndex(file.Masked, -1) {
				issues = append(issues, model.Issue{
					Category:   model.CategorySyntaxError,
					Severity:   model.SeverityError,
					Message:    p.Message,
					Suggestion: p.Suggestion,
					Location:   model.Location{FilePath: file.Path, Line: lineAt(file.Content, loc[0])},
				})
			}
		}
	}

	return issues
}

var (
	useWarehouse    = regexp.MustCompile(`(?i)\bUSE\s+WAREHOUSE\b`)
	createWarehouse = regexp.MustCompile(`(?i)\bCREATE\s+(?:OR\s+REPLACE\s+)?WAREHOUSE\b`)
)

// WarehouseLifecycleRule flags a corpus that switches to a warehouse it
// never creates. The finding is corpus-wide, not tied to a file.
type WarehouseLifecycleRule struct{}

func (r *WarehouseLifecycleRule) Name() string { return "warehouse_usage" }

func (r *WarehouseLifecycleRule) Check(t *symbols.Tables) []model.Issue {
	created, used := false, false
	for _, file := range t.Files {
		created = created || createWarehouse.MatchString(file.Masked)
		used = used || useWarehouse.MatchString(file.Masked)
	}

	if !used || created {
		return nil
	}
	return []model.Issue{{
		Category:   model.CategoryWarehouseDependency,
		Severity:   model.SeverityWarning,
		Message:    "Warehouse is used but creation not found in scripts",
		Suggestion: "Ensure warehouse is created in setup script",
	}}
}

func lineAt(content string, offset int) int {
	return strings.Count(content[:offset], "\n") + 1
}
