// Package config loads sql-crosscheck settings from defaults, a YAML file,
// SQLXC_ environment variables and command-line flags.
package config

import (
	"fmt"
	"strings"

	"sql-crosscheck/internal/integration"
	"sql-crosscheck/internal/model"
	"sql-crosscheck/internal/reporter"
	"sql-crosscheck/internal/symbols"
	"sql-crosscheck/internal/validator"
)

// Config holds all settings for one run.
type Config struct {
	Suffix  string   `koanf:"suffix"`
	Exclude []string `koanf:"exclude"`
	Workers int      `koanf:"workers"`
	Format  string   `koanf:"format"`
	Verbose bool     `koanf:"verbose"`
	NoColor bool     `koanf:"no_color"`

	// Functions are the UDF names whose call sites are tracked.
	Functions []string `koanf:"functions"`

	Context     ContextConfig     `koanf:"context"`
	Markers     MarkerConfig      `koanf:"markers"`
	Integration IntegrationConfig `koanf:"integration"`
}

// ContextConfig is the expected value per context dimension. An empty value
// disables the check for that dimension.
type ContextConfig struct {
	Role      string `koanf:"role"`
	Warehouse string `koanf:"warehouse"`
	Database  string `koanf:"database"`
	Schema    string `koanf:"schema"`
}

// MarkerConfig holds path substrings that select special files.
type MarkerConfig struct {
	// Sensitive files are exempt from the context check.
	Sensitive string `koanf:"sensitive"`
	// MustDeclare files must set every context dimension.
	MustDeclare string `koanf:"must_declare"`
	// UDF files must set a warehouse.
	UDF string `koanf:"udf"`
}

type IntegrationConfig struct {
	Scripts         []string `koanf:"scripts"`
	Tables          []string `koanf:"tables"`
	Views           []string `koanf:"views"`
	ReferenceSchema string   `koanf:"reference_schema"`
}

// Validate checks the settings that cannot be corrected silently.
func (c *Config) Validate() error {
	if strings.Trim(c.Suffix, ". ") == "" {
		return fmt.Errorf("suffix must not be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	switch c.Format {
	case reporter.FormatConsole, reporter.FormatTable:
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", c.Format, reporter.FormatConsole, reporter.FormatTable)
	}
	for dim, value := range c.Baseline() {
		if strings.ContainsAny(value, " \t\n;") {
			return fmt.Errorf("context.%s: %q is not an identifier", strings.ToLower(string(dim)), value)
		}
	}
	for _, rel := range c.Integration.Scripts {
		if strings.TrimSpace(rel) == "" {
			return fmt.Errorf("integration.scripts contains an empty path")
		}
	}
	return nil
}

// Baseline returns the configured context values keyed by dimension,
// leaving out empty ones.
func (c *Config) Baseline() map[model.Dimension]string {
	baseline := make(map[model.Dimension]string, len(model.Dimensions))
	for dim, value := range map[model.Dimension]string{
		model.DimensionRole:      c.Context.Role,
		model.DimensionWarehouse: c.Context.Warehouse,
		model.DimensionDatabase:  c.Context.Database,
		model.DimensionSchema:    c.Context.Schema,
	} {
		if value != "" {
			baseline[dim] = value
		}
	}
	return baseline
}

func (c *Config) BuildOptions(root string) symbols.Options {
	return symbols.Options{
		Root:      root,
		Suffix:    c.Suffix,
		Excludes:  c.Exclude,
		Workers:   c.Workers,
		Functions: c.Functions,
	}
}

func (c *Config) EngineOptions() validator.Options {
	return validator.Options{
		Baseline:          c.Baseline(),
		SensitiveMarker:   c.Markers.Sensitive,
		MustDeclareMarker: c.Markers.MustDeclare,
		UDFMarker:         c.Markers.UDF,
	}
}

func (c *Config) IntegrationOptions(root string) integration.Options {
	return integration.Options{
		Build:           c.BuildOptions(root),
		Engine:          c.EngineOptions(),
		Scripts:         c.Integration.Scripts,
		Tables:          c.Integration.Tables,
		Views:           c.Integration.Views,
		ReferenceSchema: c.Integration.ReferenceSchema,
	}
}
