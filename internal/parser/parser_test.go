package parser

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSQLParser_Parse(t *testing.T) {
	parser := NewSQLParser()

	tests := []struct {
		name    string
		sql     string
		want    int
		wantErr bool
	}{
		{
			name: "Valid SELECT",
			sql:  "SELECT * FROM users",
			want: 1,
		},
		{
			name: "Two statements",
			sql:  "CREATE TABLE a (id INT); CREATE VIEW v AS SELECT id FROM a;",
			want: 2,
		},
		{
			name:    "Invalid SQL",
			sql:     "SELECT * FROM",
			wantErr: true,
		},
		{
			name:    "Empty SQL",
			sql:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts, err := parser.Parse(tt.sql)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && len(stmts) != tt.want {
				t.Errorf("Parse() returned %d statements, want %d", len(stmts), tt.want)
			}
		})
	}
}

func TestExtractTableNames(t *testing.T) {
	parser := NewSQLParser()

	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "Join",
			sql:  "SELECT * FROM product p JOIN category c ON p.cat = c.id",
			want: []string{"product", "category"},
		},
		{
			name: "Derived table",
			sql:  "SELECT * FROM (SELECT * FROM orders) o",
			want: []string{"orders"},
		},
		{
			name: "Union",
			sql:  "SELECT id FROM a UNION SELECT id FROM b UNION SELECT id FROM a",
			want: []string{"a", "b"},
		},
		{
			name: "Insert select",
			sql:  "INSERT INTO archive SELECT * FROM orders",
			want: []string{"archive", "orders"},
		},
		{
			name: "No tables",
			sql:  "SELECT 1",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts, err := parser.Parse(tt.sql)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := ExtractTableNames(stmts[0]); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractTableNames() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSQLParser_LoadCatalog(t *testing.T) {
	content := `
		CREATE TABLE product (
			id INT PRIMARY KEY,
			name VARCHAR(255),
			category_id INT
		);
		CREATE TABLE category (id INT PRIMARY KEY, name VARCHAR(64));
		CREATE VIEW sv_product AS
			SELECT p.id, c.name FROM product p JOIN category c ON p.category_id = c.id;
		CREATE VIEW sv_customer AS SELECT * FROM customer;
		INSERT INTO category VALUES (1, 'x');
	`
	path := filepath.Join(t.TempDir(), "schema.sql")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	catalog, err := NewSQLParser().LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	if want := []string{"PRODUCT", "CATEGORY"}; !reflect.DeepEqual(catalog.Tables, want) {
		t.Errorf("Tables = %v, want %v", catalog.Tables, want)
	}
	if want := []string{"SV_PRODUCT", "SV_CUSTOMER"}; !reflect.DeepEqual(catalog.Views, want) {
		t.Errorf("Views = %v, want %v", catalog.Views, want)
	}
	if want := []string{"PRODUCT", "CATEGORY"}; !reflect.DeepEqual(catalog.ViewSources["SV_PRODUCT"], want) {
		t.Errorf("ViewSources[SV_PRODUCT] = %v, want %v", catalog.ViewSources["SV_PRODUCT"], want)
	}
	if want := []string{"PRODUCT", "CATEGORY", "CUSTOMER"}; !reflect.DeepEqual(catalog.RequiredTables(), want) {
		t.Errorf("RequiredTables() = %v, want %v", catalog.RequiredTables(), want)
	}
}

func TestSQLParser_LoadCatalogErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.sql")
	if err := os.WriteFile(bad, []byte("CREATE TABLE ("), 0644); err != nil {
		t.Fatal(err)
	}

	parser := NewSQLParser()
	if _, err := parser.LoadCatalog(bad); err == nil {
		t.Error("LoadCatalog() expected parse error")
	}
	if _, err := parser.LoadCatalog(filepath.Join(dir, "missing.sql")); err == nil {
		t.Error("LoadCatalog() expected read error")
	}
}
