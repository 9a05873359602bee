package config

import (
	"os"
	"path/filepath"
	"testing"

	"sql-crosscheck/internal/model"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	flags.String("suffix", ".sql", "")
	flags.StringSlice("exclude", nil, "")
	flags.Int("workers", 1, "")
	flags.String("format", "console", "")
	flags.Bool("verbose", false, "")
	flags.Bool("no-color", false, "")
	require.NoError(t, flags.Parse(args))
	return flags
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, used, err := Load("", t.TempDir(), nil)
	require.NoError(t, err)

	assert.Empty(t, used)
	assert.Equal(t, ".sql", cfg.Suffix)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, "console", cfg.Format)
	assert.Contains(t, cfg.Functions, "PARSE_RDF_SCHEMA")
	assert.Len(t, cfg.Integration.Scripts, 6)
	assert.Len(t, cfg.Integration.Tables, 8)
	assert.Len(t, cfg.Integration.Views, 9)
	assert.Equal(t, map[model.Dimension]string{
		model.DimensionRole:      "SYSADMIN",
		model.DimensionWarehouse: "RDF_DEMO_WH",
		model.DimensionDatabase:  "RDF_SEMANTIC_DB",
		model.DimensionSchema:    "SEMANTIC_VIEWS",
	}, cfg.Baseline())
	assert.Equal(t, "python_udfs", cfg.EngineOptions().UDFMarker)
}

func TestLoad_Precedence(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
workers: 2
format: table
context:
  warehouse: FILE_WH
  schema: FILE_SCHEMA
integration:
  reference_schema: schema/ref.ddl
`)

	t.Setenv("SQLXC_WORKERS", "3")
	t.Setenv("SQLXC_CONTEXT__WAREHOUSE", "ENV_WH")
	t.Setenv("SQLXC_FUNCTIONS", "F, G")

	cfg, used, err := Load("", root, newFlags(t, "--workers", "4", "--no-color"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, FileName), used)
	assert.Equal(t, 4, cfg.Workers, "flag beats env")
	assert.True(t, cfg.NoColor)
	assert.Equal(t, "table", cfg.Format, "file beats default")
	assert.Equal(t, "ENV_WH", cfg.Context.Warehouse, "env beats file")
	assert.Equal(t, "FILE_SCHEMA", cfg.Context.Schema)
	assert.Equal(t, "SYSADMIN", cfg.Context.Role)
	assert.Equal(t, []string{"F", "G"}, cfg.Functions)
	assert.Equal(t, filepath.Join(root, "schema", "ref.ddl"), cfg.Integration.ReferenceSchema)
}

func TestLoad_UnsetFlagsKeepLowerLayers(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "suffix: .ddl\nexclude: [archive]\n")

	cfg, _, err := Load("", root, newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, ".ddl", cfg.Suffix)
	assert.Equal(t, []string{"archive"}, cfg.Exclude)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "context:\n  role: ''\n")

	cfg, used, err := Load(path, t.TempDir(), nil)
	require.NoError(t, err)

	assert.Equal(t, path, used)
	_, ok := cfg.Baseline()[model.DimensionRole]
	assert.False(t, ok)

	_, _, err = Load(filepath.Join(dir, "missing.yaml"), dir, nil)
	assert.ErrorContains(t, err, "error reading config file")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{Suffix: ".sql", Workers: 1, Format: "console"}
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "empty suffix", mutate: func(c *Config) { c.Suffix = "." }, errSubstr: "suffix"},
		{name: "zero workers", mutate: func(c *Config) { c.Workers = 0 }, errSubstr: "workers"},
		{name: "unknown format", mutate: func(c *Config) { c.Format = "html" }, errSubstr: "unknown format"},
		{name: "baseline with spaces", mutate: func(c *Config) { c.Context.Warehouse = "MY WH" }, errSubstr: "context.warehouse"},
		{name: "empty script", mutate: func(c *Config) { c.Integration.Scripts = []string{" "} }, errSubstr: "integration.scripts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errSubstr)
		})
	}
}

func TestLoad_InvalidFromEnv(t *testing.T) {
	t.Setenv("SQLXC_FORMAT", "xml")

	_, _, err := Load("", t.TempDir(), nil)
	assert.ErrorContains(t, err, "invalid configuration")
}
