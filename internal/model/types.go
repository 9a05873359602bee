package model

import "fmt"

// Location represents the physical location of a finding
type Location struct {
	FilePath string
	Line     int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.FilePath, l.Line)
}

// Severity defines how urgent an issue is
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Severities lists severities in report order.
var Severities = []Severity{SeverityError, SeverityWarning, SeverityInfo}

// Issue categories.
const (
	CategoryFileParsing          = "FILE_PARSING"
	CategoryUndefinedFunction    = "UNDEFINED_FUNCTION"
	CategoryParameterMismatch    = "PARAMETER_MISMATCH"
	CategoryContextInconsistency = "CONTEXT_INCONSISTENCY"
	CategoryMissingContext       = "MISSING_CONTEXT"
	CategoryDependencyOrder      = "DEPENDENCY_ORDER"
	CategorySyntaxError          = "SYNTAX_ERROR"
	CategoryWarehouseDependency  = "WAREHOUSE_DEPENDENCY"

	CategoryMissingScript      = "MISSING_SCRIPT"
	CategoryRecommendedContext = "RECOMMENDED_CONTEXT"
	CategoryConsistency        = "CONSISTENCY"
	CategoryExecutionOrder     = "EXECUTION_ORDER"
	CategoryMissingObject      = "MISSING_OBJECT"
	CategoryUnresolvedVariable = "UNRESOLVED_VARIABLE"
	CategoryWorkflowStage      = "WORKFLOW_STAGE"
)

// Issue represents a problem found by a validator
type Issue struct {
	Category   string // e.g., "UNDEFINED_FUNCTION", "SYNTAX_ERROR"
	Severity   Severity
	Message    string
	Suggestion string
	Location   Location
}

// CountSeverity returns how many issues carry the given severity.
func CountSeverity(issues []Issue, sev Severity) int {
	n := 0
	for _, issue := range issues {
		if issue.Severity == sev {
			n++
		}
	}
	return n
}

// SourceFile is one scanned script, held in memory for a single run.
type SourceFile struct {
	Path    string // absolute
	RelPath string // slash separated, relative to the scan root
	Content string
	// Masked is Content with comments, string literals and dollar-quoted
	// bodies blanked. Offsets and newlines line up with Content.
	Masked string
}

// FunctionDefinition is a CREATE FUNCTION header.
type FunctionDefinition struct {
	Name       string // upper-cased
	Parameters []string
	Location   Location
	Signature  string
}

// FunctionCall is one call site of an allowlisted function.
type FunctionCall struct {
	Name      string
	Arguments []string
	Location  Location
	Text      string
}

// Dimension is a session context dimension set by a USE directive.
type Dimension string

const (
	DimensionRole      Dimension = "ROLE"
	DimensionWarehouse Dimension = "WAREHOUSE"
	DimensionDatabase  Dimension = "DATABASE"
	DimensionSchema    Dimension = "SCHEMA"
)

// Dimensions lists context dimensions in check order.
var Dimensions = []Dimension{DimensionRole, DimensionWarehouse, DimensionDatabase, DimensionSchema}

// ContextSetting is the last value declared for a dimension in a file.
type ContextSetting struct {
	Value string
	Line  int
}

// ContextSettings maps each declared dimension of a file to its last value.
// Dimensions a file never mentions are absent.
type ContextSettings map[Dimension]ContextSetting

// ObjectKind is the kind of object a CREATE statement targets.
type ObjectKind string

const (
	ObjectTable     ObjectKind = "TABLE"
	ObjectView      ObjectKind = "VIEW"
	ObjectWarehouse ObjectKind = "WAREHOUSE"
	ObjectDatabase  ObjectKind = "DATABASE"
	ObjectSchema    ObjectKind = "SCHEMA"
)

// CreatedObject is the target of a CREATE statement.
type CreatedObject struct {
	Kind     ObjectKind
	Name     string // upper-cased
	Location Location
}

// Facts holds everything extracted from one file.
type Facts struct {
	File        *SourceFile
	Definitions []FunctionDefinition
	Calls       []FunctionCall
	Context     ContextSettings
	Objects     []CreatedObject
}
