package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitArguments(t *testing.T) {
	tests := []struct {
		name string
		list string
		want []string
	}{
		{
			name: "Nested call and quoted comma",
			list: `"a,b", H(1,2)`,
			want: []string{`"a,b"`, "H(1,2)"},
		},
		{
			name: "Single quotes",
			list: `'x, y', 'z'`,
			want: []string{`'x, y'`, `'z'`},
		},
		{
			name: "Parenthesis inside quotes",
			list: `'(', ')'`,
			want: []string{`'('`, `')'`},
		},
		{
			name: "Deep nesting",
			list: "F(G(1, 2), H(3)), 4",
			want: []string{"F(G(1, 2), H(3))", "4"},
		},
		{
			name: "Empty",
			list: "   ",
			want: nil,
		},
		{
			name: "Empty segments dropped",
			list: "1, , 2",
			want: []string{"1", "2"},
		},
		{
			name: "Comma in line comment",
			list: "1, -- first, really\n  2",
			want: []string{"1", "-- first, really\n  2"},
		},
		{
			name: "Comma in block comment",
			list: "1, /* a, b */ 2",
			want: []string{"1", "/* a, b */ 2"},
		},
		{
			name: "Backslash escaped quote",
			list: `'it\'s, ok', 2`,
			want: []string{`'it\'s, ok'`, "2"},
		},
		{
			name: "Comment-only segment",
			list: "1, /* none */",
			want: []string{"1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitArguments(tt.list))
		})
	}
}

func TestSplitParameters(t *testing.T) {
	tests := []struct {
		name string
		list string
		want []string
	}{
		{
			name: "Names only",
			list: "x INT, y STRING",
			want: []string{"x", "y"},
		},
		{
			name: "Default value",
			list: "x INT DEFAULT 0",
			want: []string{"x"},
		},
		{
			name: "Default containing a call",
			list: "a STRING DEFAULT CONCAT('p', 'q'), b NUMBER(10, 2)",
			want: []string{"a", "b"},
		},
		{
			name: "Multi-line list",
			list: "\n    rdf_content STRING,\n    format STRING\n",
			want: []string{"rdf_content", "format"},
		},
		{
			name: "Comments between parameters",
			list: "-- input, raw\n x STRING, /* y, z */ y INT",
			want: []string{"x", "y"},
		},
		{
			name: "Empty list",
			list: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitParameters(tt.list))
		})
	}
}

func TestMask(t *testing.T) {
	src := strings.Join([]string{
		"-- USE ROLE ACCOUNTADMIN;",
		"USE ROLE SYSADMIN; /* USE ROLE",
		"PUBLIC */ SELECT 'it''s USE ROLE X' AS s;",
		"CREATE FUNCTION f() AS $$",
		"GENERATE_ID()",
		"$$;",
	}, "\n")

	masked := Mask(src)

	assert.Equal(t, len(src), len(masked))
	assert.Equal(t, strings.Count(src, "\n"), strings.Count(masked, "\n"))
	assert.Equal(t, 1, strings.Count(masked, "USE ROLE"))
	assert.NotContains(t, masked, "GENERATE_ID")
	assert.Contains(t, masked, "$$")
	assert.Contains(t, masked, "AS s;")
}
