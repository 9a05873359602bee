package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	// FileName is looked up in the scanned root, then the working directory.
	FileName  = "sql-crosscheck.yaml"
	EnvPrefix = "SQLXC_"
)

// listKeys are split on commas when they come from the environment.
var listKeys = map[string]bool{
	"exclude":             true,
	"functions":           true,
	"integration.scripts": true,
	"integration.tables":  true,
	"integration.views":   true,
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"suffix":  ".sql",
		"exclude": []string{},
		"workers": 1,
		"format":  "console",
		"verbose": false,
		"functions": []string{
			"PARSE_RDF_SCHEMA",
			"GENERATE_SEMANTIC_VIEW_DDL",
			"LOAD_RDF_DATA",
			"GENERATE_SNOWFLAKE_SEMANTIC_VIEW",
			"GENERATE_ID",
		},
		"context.role":         "SYSADMIN",
		"context.warehouse":    "RDF_DEMO_WH",
		"context.database":     "RDF_SEMANTIC_DB",
		"context.schema":       "SEMANTIC_VIEWS",
		"markers.sensitive":    "deploy_via_snowsight.sql",
		"markers.must_declare": "python_udfs",
		"markers.udf":          "python_udfs",
		"integration.scripts": []string{
			"sql/01_setup_environment.sql",
			"python_udfs/rdf_parser_udf.sql",
			"python_udfs/semantic_view_generator_udf.sql",
			"python_udfs/rdf_data_loader_udf.sql",
			"sql/02_run_conversion_demo.sql",
			"sql/03_create_semantic_views_demo.sql",
		},
		"integration.tables": []string{
			"RDF_SCHEMAS", "CONVERSION_RESULTS", "PRODUCT", "CATEGORY",
			"CUSTOMER", "ORDER_", "SUPPLIER", "ORDERITEM",
		},
		"integration.views": []string{
			"SV_PRODUCT", "SV_CATEGORY", "SV_CUSTOMER", "SV_ORDER",
			"SV_SUPPLIER", "SV_ORDERITEM", "SV_PRODUCT_METRICS",
			"SV_ORDER_METRICS", "SV_CUSTOMER_METRICS",
		},
		"integration.reference_schema": "",
	}
}

// findConfigFile returns the file to load: explicit path > root > cwd.
func findConfigFile(explicit, root string) string {
	if explicit != "" {
		return explicit
	}
	for _, candidate := range []string{filepath.Join(root, FileName), FileName} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Load builds the configuration for a run over root.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile, root string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile, root)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// SQLXC_CONTEXT__WAREHOUSE -> context.warehouse
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		key = strings.ReplaceAll(key, "__", ".")
		if listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}

	if ref := cfg.Integration.ReferenceSchema; ref != "" && !filepath.IsAbs(ref) {
		cfg.Integration.ReferenceSchema = filepath.Join(root, ref)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, used, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
