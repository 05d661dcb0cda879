// Package main provides the genefacet command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/genefacet/internal/dataset"
	"github.com/inodb/genefacet/internal/schema"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Config keys. Each may also be set through a GENEFACET_ environment
// variable, e.g. GENEFACET_DATA_PATH.
const (
	keyDataPath      = "data.path"
	keyDataSheet     = "data.sheet"
	keyDataTable     = "data.table"
	keyDataFormat    = "data.format"
	keySchemaVersion = "schema.version"
	keySchemaFile    = "schema.file"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// usageError marks errors caused by bad invocation rather than bad data.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// usageArgs wraps a positional argument validator so that its failures
// exit with ExitUsage.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var ue *usageError
		if errors.As(err, &ue) || strings.HasPrefix(err.Error(), "unknown command") {
			fmt.Fprintf(stderr, "Run 'genefacet --help' for usage.\n")
			return ExitUsage
		}
		var le *dataset.DataLoadError
		if errors.As(err, &le) && errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(stderr, "Hint: Check that the file path is correct\n")
		}
		return ExitError
	}
	return ExitSuccess
}

// app carries state shared by all subcommands of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger

	cfgFile string
	verbose bool
	output  string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "genefacet",
		Short: "Filter newborn-screening gene lists by facet",
		Long: `genefacet filters a curated newborn-screening gene table by
categorical facets (RUSP status, inheritance, penetrance, age of onset,
severity, treatment efficacy, orthogonal test) and by screening program
membership.

Values chosen within one facet are combined with OR; facets are combined
with AND. A facet with nothing chosen does not restrict. Genes must be
flagged in at least --min-programs screening programs (never less than 1).`,
		Example: `  genefacet genes -d genelist.csv --rusp Core,Secondary --inheritance AR
  genefacet table -d genelist.xlsx --where severity=Severe --min-programs 5
  genefacet counts inheritance -d genelist.csv --program Guardian
  genefacet config set data.path ~/data/genelist_all_version15Feb.csv`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(a.cfgFile); err != nil {
				return err
			}

			config := zap.NewProductionConfig()
			config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if a.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("genefacet version {{.Version}}\n")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "Config file (default: ~/.genefacet.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVarP(&a.output, "output", "o", "", "Output file (default: stdout)")
	pf.StringP("data", "d", "", "Gene table: csv, tsv, xlsx, duckdb or parquet ('-' for stdin)")
	pf.String("sheet", "", "Worksheet to read from an xlsx workbook (default: first sheet)")
	pf.String("table", dataset.DefaultTable, "Table to read from a DuckDB database")
	pf.String("format", "", "Input format (detected from the file extension if not specified)")
	pf.String("schema", schema.DefaultVersion, "Built-in schema version: "+strings.Join(schema.Versions(), ", "))
	pf.String("schema-file", "", "YAML schema definition (overrides --schema)")

	for key, flag := range map[string]string{
		keyDataPath:      "data",
		keyDataSheet:     "sheet",
		keyDataTable:     "table",
		keyDataFormat:    "format",
		keySchemaVersion: "schema",
		keySchemaFile:    "schema-file",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newGenesCmd(a),
		newTableCmd(a),
		newCountsCmd(a),
		newMembersCmd(a),
		newProgramsCmd(a),
		newHeatmapCmd(a),
		newSummaryCmd(a),
		newFacetsCmd(a),
		newSchemaCmd(a),
		newImportCmd(a),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

// initConfig reads the config file and environment. A missing default
// config file is not an error.
func initConfig(cfgFile string) error {
	viper.SetEnvPrefix("GENEFACET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".genefacet")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// loadSchema resolves the active schema from flags and config.
func (a *app) loadSchema() (*schema.Schema, error) {
	file := viper.GetString(keySchemaFile)
	sch, err := schema.Resolve(viper.GetString(keySchemaVersion), file)
	if err != nil {
		// Built-in schemas only fail on an unknown version name.
		if file == "" {
			return nil, &usageError{err: err}
		}
		return nil, err
	}
	return sch, nil
}

// dataPath returns the configured gene table path with a leading ~/
// expanded to the home directory.
func dataPath() (string, error) {
	path := viper.GetString(keyDataPath)
	if path == "" {
		return "", usageErrorf("no gene table given; use --data or 'genefacet config set %s <file>'", keyDataPath)
	}
	return expandHome(path), nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// loadDataset loads the configured gene table.
func (a *app) loadDataset() (*dataset.Dataset, error) {
	path, err := dataPath()
	if err != nil {
		return nil, err
	}

	sch, err := a.loadSchema()
	if err != nil {
		return nil, err
	}

	opts := []dataset.Option{dataset.WithLogger(a.logger)}
	if sheet := viper.GetString(keyDataSheet); sheet != "" {
		opts = append(opts, dataset.WithSheet(sheet))
	}
	if table := viper.GetString(keyDataTable); table != "" {
		opts = append(opts, dataset.WithTable(table))
	}
	if format := viper.GetString(keyDataFormat); format != "" {
		opts = append(opts, dataset.WithFormat(strings.ToLower(format)))
	}

	return dataset.Load(path, sch, opts...)
}

// openOutput returns the output destination and a function to close it.
func (a *app) openOutput() (io.Writer, func() error, error) {
	if a.output == "" || a.output == "-" {
		return a.stdout, func() error { return nil }, nil
	}
	f, err := os.Create(a.output)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// writeOutput runs fn against the output destination.
func (a *app) writeOutput(fn func(w io.Writer) error) error {
	w, closeFn, err := a.openOutput()
	if err != nil {
		return err
	}
	if err := fn(w); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "genefacet version %s (%s) built %s\n", version, commit, date)
		},
	}
}
