// Package parser loads reference schemas with the TiDB SQL parser.
package parser

import (
	"fmt"
	"os"
	"strings"

	"github.com/pingcap/tidb/parser"
	"github.com/pingcap/tidb/parser/ast"
	_ "github.com/pingcap/tidb/parser/test_driver"
)

// SQLParser wraps the TiDB parser
type SQLParser struct {
	p *parser.Parser
}

func NewSQLParser() *SQLParser {
	return &SQLParser{
		p: parser.New(),
	}
}

// Parse converts a SQL string into statements
func (sp *SQLParser) Parse(sql string) ([]ast.StmtNode, error) {
	stmtNodes, _, err := sp.p.Parse(sql, "", "")
	if err != nil {
		return nil, err
	}
	if len(stmtNodes) == 0 {
		return nil, fmt.Errorf("no valid SQL found")
	}
	return stmtNodes, nil
}

// Catalog lists the objects a reference schema declares. Names are
// upper-cased and unqualified, in declaration order.
type Catalog struct {
	Tables []string
	Views  []string
	// ViewSources maps a view to the tables its query reads.
	ViewSources map[string][]string
}

// RequiredTables returns the declared tables followed by any table a view
// reads that the schema does not declare itself.
func (c *Catalog) RequiredTables() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, name := range c.Tables {
		add(name)
	}
	for _, view := range c.Views {
		for _, name := range c.ViewSources[view] {
			add(name)
		}
	}
	return out
}

// LoadCatalog reads a DDL file and collects its CREATE TABLE and CREATE VIEW
// statements. Other statements are ignored.
func (sp *SQLParser) LoadCatalog(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	stmts, err := sp.Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("schema parse error: %w", err)
	}

	catalog := &Catalog{ViewSources: make(map[string][]string)}
	for _, stmt := range stmts {
		switch node := stmt.(type) {
		case *ast.CreateTableStmt:
			catalog.Tables = append(catalog.Tables, objectName(node.Table))
		case *ast.CreateViewStmt:
			name := objectName(node.ViewName)
			catalog.Views = append(catalog.Views, name)
			catalog.ViewSources[name] = upperAll(ExtractTableNames(node.Select))
		}
	}

	return catalog, nil
}

func objectName(tn *ast.TableName) string {
	return strings.ToUpper(tn.Name.O)
}

func upperAll(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = strings.ToUpper(name)
	}
	return out
}
