package validator

import (
	"strings"

	"sql-crosscheck/internal/model"
	"sql-crosscheck/internal/symbols"

	"go.uber.org/zap"
)

// Rule represents a single validation unit
type Rule interface {
	// Name returns the unique identifier of the rule
	Name() string
	// Check reads the finished symbol tables and returns the issues found.
	// Rules do not see each other's output.
	Check(t *symbols.Tables) []model.Issue
}

type Engine struct {
	rules []Rule
	log   *zap.SugaredLogger
}

func NewEngine(log *zap.SugaredLogger) *Engine {
	return &Engine{
		rules: make([]Rule, 0),
		log:   log,
	}
}

func (e *Engine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Run returns the parse failures recorded while building the tables followed
// by the issues of every rule, in registration order.
func (e *Engine) Run(t *symbols.Tables) []model.Issue {
	allIssues := append([]model.Issue(nil), t.ParseIssues...)

	for _, rule := range e.rules {
		e.log.Infof("Validating %s...", rule.Name())
		issues := rule.Check(t)
		if len(issues) > 0 {
			e.log.Debugw("Rule reported issues", "rule", rule.Name(), "issues", len(issues))
			allIssues = append(allIssues, issues...)
		}
	}

	return allIssues
}

// Options configures the default rule set.
type Options struct {
	// Baseline is the expected value per context dimension. A dimension
	// without a baseline value is not compared.
	Baseline map[model.Dimension]string
	// SensitiveMarker exempts matching files from the context check.
	SensitiveMarker string
	// MustDeclareMarker makes every context dimension mandatory.
	MustDeclareMarker string
	// UDFMarker selects files that must set a warehouse.
	UDFMarker string
}

// NewDefaultEngine returns an engine with the five standard rules.
func NewDefaultEngine(opts Options, log *zap.SugaredLogger) *Engine {
	e := NewEngine(log)
	e.Register(&SignatureRule{})
	e.Register(&ContextRule{
		Baseline:          opts.Baseline,
		SensitiveMarker:   opts.SensitiveMarker,
		MustDeclareMarker: opts.MustDeclareMarker,
	})
	e.Register(&DependencyOrderRule{UDFMarker: opts.UDFMarker})
	e.Register(&SyntaxPatternRule{Patterns: DefaultSyntaxPatterns()})
	e.Register(&WarehouseLifecycleRule{})
	return e
}

// matchesMarker reports whether a slash-separated relative path contains
// the marker. An empty marker matches nothing.
func matchesMarker(relPath, marker string) bool {
	return marker != "" && strings.Contains(relPath, marker)
}
