package dataset

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/inodb/genefacet/internal/schema"
)

// Source formats.
const (
	FormatCSV     = "csv"
	FormatTSV     = "tsv"
	FormatXLSX    = "xlsx"
	FormatDuckDB  = "duckdb"
	FormatParquet = "parquet"
)

// DefaultTable is the DuckDB table read when none is configured.
const DefaultTable = "genes"

// Load reads a gene table from path. The format is detected from the file
// extension unless WithFormat is given. A failed load never returns a
// partial dataset.
func Load(path string, sch *schema.Schema, opts ...Option) (*Dataset, error) {
	cfg := newConfig(opts)

	if path != "-" {
		if _, err := os.Stat(path); err != nil {
			return nil, &DataLoadError{Source: path, Message: "cannot access gene table", Err: err}
		}
	}

	format := cfg.format
	if format == "" {
		format = DetectFormat(path)
	}

	switch format {
	case "", FormatCSV, FormatTSV:
		return loadDelimited(path, format, sch, cfg)
	case FormatXLSX:
		return loadXLSX(path, sch, cfg)
	case FormatDuckDB:
		return loadDuckDB(path, sch, cfg)
	case FormatParquet:
		return loadParquet(path, sch, cfg)
	default:
		return nil, &DataLoadError{Source: path, Message: "unknown input format " + format}
	}
}

// DetectFormat guesses the source format from a file name. Gzipped delimited
// files keep their inner extension ("genes.tsv.gz" is tsv). Anything
// unrecognised is treated as delimited text and sniffed when read.
func DetectFormat(path string) string {
	lower := strings.ToLower(path)
	lower = strings.TrimSuffix(lower, ".gz")

	switch filepath.Ext(lower) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".duckdb", ".db":
		return FormatDuckDB
	case ".parquet":
		return FormatParquet
	case ".tsv", ".tab":
		return FormatTSV
	case ".csv":
		return FormatCSV
	}
	return ""
}
