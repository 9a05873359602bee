package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"sql-crosscheck/internal/config"
	"sql-crosscheck/internal/integration"
	"sql-crosscheck/internal/logging"
	"sql-crosscheck/internal/model"
	"sql-crosscheck/internal/reporter"
	"sql-crosscheck/internal/symbols"
	"sql-crosscheck/internal/validator"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// exitFatal is returned when no report could be produced.
const exitFatal = 255

// app carries state shared by the commands of one invocation.
type app struct {
	cfgFile  string
	exitCode int
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sql-crosscheck",
		Short: "Cross-file static validation for SQL deployment scripts",
		Long: `sql-crosscheck scans a directory of SQL scripts without executing them and
checks that user-defined functions are called with the arity they were
created with, that scripts agree on their session context, and that UDF
scripts, warehouses and required objects are set up before they are used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "Path to config file (default: <root>/"+config.FileName+")")
	flags.String("suffix", ".sql", "File suffix to scan")
	flags.StringSliceP("exclude", "e", nil, "Glob patterns or path fragments to exclude from scan")
	flags.IntP("workers", "w", 1, "Number of files extracted in parallel")
	flags.StringP("format", "f", reporter.FormatConsole, "Report format (console, table)")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.Bool("no-color", false, "Disable colored output")

	rootCmd.AddCommand(newValidateCmd(a), newIntegrationCmd(a))
	return rootCmd
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [root]",
		Short: "Validate function signatures, context and dependencies across scripts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := rootArg(args)
			cfg, log, err := setup(cmd, a, root)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			tables, err := symbols.Build(cmd.Context(), cfg.BuildOptions(root), logging.For(log, "scan"))
			if err != nil {
				return err
			}
			issues := validator.NewDefaultEngine(cfg.EngineOptions(), logging.For(log, "validate")).Run(tables)

			verdict := "Validation passed"
			if n := model.CountSeverity(issues, model.SeverityError); n > 0 {
				verdict = fmt.Sprintf("Validation failed with %d errors", n)
			}
			report := &model.Report{
				Title:        "SQL CROSS-FILE VALIDATION REPORT",
				Root:         tables.Root,
				FilesScanned: len(tables.Files) + len(tables.ParseIssues),
				Issues:       issues,
				Sections:     []model.Section{reporter.DefinitionSection(tables), reporter.CallSection(tables)},
				Verdict:      verdict,
			}
			if err := render(cmd, cfg, report); err != nil {
				return err
			}

			a.exitCode = reporter.ExitCode(issues)
			return nil
		},
	}
}

func newIntegrationCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "integration [root]",
		Short: "Dry-run the deployment workflow: scripts, order, objects and stages",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := rootArg(args)
			cfg, log, err := setup(cmd, a, root)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			res, err := integration.NewRunner(cfg.IntegrationOptions(root), logging.For(log, "integration")).Run(cmd.Context())
			if err != nil {
				return err
			}
			for _, issue := range res.ConsistencyIssues {
				log.Debugw("Consistency finding", "category", issue.Category, "severity", issue.Severity, "location", issue.Location.String(), "message", issue.Message)
			}

			verdict := "All checks passed, scripts are ready for deployment"
			if !res.Success() {
				verdict = "Dry run failed"
			}
			report := &model.Report{
				Title:        "DRY RUN INTEGRATION REPORT",
				Root:         res.Tables.Root,
				FilesScanned: len(res.Tables.Files) + len(res.Tables.ParseIssues),
				Issues:       res.Issues,
				Sections:     res.Sections(),
				Verdict:      verdict,
			}
			if err := render(cmd, cfg, report); err != nil {
				return err
			}

			a.exitCode = res.ExitCode()
			return nil
		},
	}
}

func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func setup(cmd *cobra.Command, a *app, root string) (*config.Config, *zap.SugaredLogger, error) {
	cfg, used, err := config.Load(a.cfgFile, root, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	if cfg.NoColor {
		color.NoColor = true
	}

	log := logging.New(cmd.ErrOrStderr(), cfg.Verbose, !color.NoColor)
	if used != "" {
		log.Debugw("Using config file", "path", used)
	}
	return cfg, log, nil
}

func render(cmd *cobra.Command, cfg *config.Config, report *model.Report) error {
	rpt, err := reporter.New(cfg.Format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := rpt.Report(report); err != nil {
		return fmt.Errorf("reporting failed: %w", err)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitFatal)
	}
	os.Exit(a.exitCode)
}
