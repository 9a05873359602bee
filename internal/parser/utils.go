package parser

import (
	"github.com/pingcap/tidb/parser/ast"
)

// ExtractTableNames extracts all table names a statement reads or writes,
// including tables inside derived tables and set operations. Duplicates
// are dropped; order is first appearance.
func ExtractTableNames(node ast.Node) []string {
	var tables []string
	seen := make(map[string]bool)
	collect(node, func(name string) {
		if !seen[name] {
			seen[name] = true
			tables = append(tables, name)
		}
	})
	return tables
}

func collect(node ast.Node, add func(string)) {
	switch stmt := node.(type) {
	case *ast.SelectStmt:
		if stmt.From != nil {
			extractTableRefs(stmt.From.TableRefs, add)
		}
	case *ast.SetOprStmt:
		if stmt.SelectList != nil {
			for _, sel := range stmt.SelectList.Selects {
				collect(sel, add)
			}
		}
	case *ast.UpdateStmt:
		if stmt.TableRefs != nil {
			extractTableRefs(stmt.TableRefs.TableRefs, add)
		}
	case *ast.DeleteStmt:
		if stmt.TableRefs != nil {
			extractTableRefs(stmt.TableRefs.TableRefs, add)
		}
	case *ast.InsertStmt:
		if stmt.Table != nil {
			extractTableRefs(stmt.Table.TableRefs, add)
		}
		if stmt.Select != nil {
			collect(stmt.Select, add)
		}
	}
}

func extractTableRefs(join *ast.Join, add func(string)) {
	if join == nil {
		return
	}

	if join.Left != nil {
		extractTableSource(join.Left, add)
	}
	if join.Right != nil {
		extractTableSource(join.Right, add)
	}
}

func extractTableSource(r ast.ResultSetNode, add func(string)) {
	switch src := r.(type) {
	case *ast.TableSource:
		if tn, ok := src.Source.(*ast.TableName); ok {
			add(tn.Name.O)
		} else {
			collect(src.Source, add)
		}
	case *ast.Join:
		extractTableRefs(src, add)
	}
}
