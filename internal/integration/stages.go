package integration

import (
	"fmt"

	"sql-crosscheck/internal/model"
	"sql-crosscheck/internal/symbols"
)

// Stage is one step of the deployment workflow. A nil Check always passes.
type Stage struct {
	Name  string
	Check func(t *symbols.Tables) []model.Issue
}

type StageResult struct {
	Name   string
	Passed bool
}

// DefaultStages returns the demo deployment workflow.
func DefaultStages() []Stage {
	return []Stage{
		{Name: "Environment Setup (Database, Schema, Warehouse)", Check: checkEnvironment},
		{Name: "UDF Creation (Parse, Generate, Load functions)", Check: checkUDFs},
		{Name: "Schema Loading (RDF content insertion)"},
		{Name: "Schema Parsing (RDF to structured data)"},
		{Name: "DDL Generation (Structured data to SQL)"},
		{Name: "Table Creation (Physical data model)"},
		{Name: "Data Loading (Sample data insertion)"},
		{Name: "Semantic View Creation (Business intelligence layer)"},
		{Name: "Analytics Views (Metrics and aggregations)"},
	}
}

func checkEnvironment(t *symbols.Tables) []model.Issue {
	var issues []model.Issue
	for _, kind := range []model.ObjectKind{model.ObjectDatabase, model.ObjectSchema, model.ObjectWarehouse} {
		if len(t.ObjectNames(kind)) > 0 {
			continue
		}
		issues = append(issues, model.Issue{
			Category:   model.CategoryWorkflowStage,
			Severity:   model.SeverityInfo,
			Message:    fmt.Sprintf("Environment setup: no CREATE %s found", kind),
			Suggestion: fmt.Sprintf("Create the %s in the setup script", kind),
		})
	}
	return issues
}

func checkUDFs(t *symbols.Tables) []model.Issue {
	if len(t.Definitions) > 0 {
		return nil
	}
	return []model.Issue{{
		Category:   model.CategoryWorkflowStage,
		Severity:   model.SeverityInfo,
		Message:    "UDF creation: no function definitions found",
		Suggestion: "Add the UDF scripts to the required script list",
	}}
}
