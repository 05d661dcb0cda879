package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/inodb/genefacet/internal/schema"
)

// loadDuckDB reads the gene table from a table of a DuckDB database file.
func loadDuckDB(path string, sch *schema.Schema, cfg *config) (*Dataset, error) {
	db, err := sql.Open("duckdb", path+"?access_mode=READ_ONLY")
	if err != nil {
		return nil, &DataLoadError{Source: path, Message: "open duckdb", Err: err}
	}
	defer db.Close()

	return fromQuery(context.Background(), path, db, "SELECT * FROM "+quoteIdent(cfg.table), sch, cfg)
}

// loadParquet reads a Parquet gene table through an in-memory DuckDB.
func loadParquet(path string, sch *schema.Schema, cfg *config) (*Dataset, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, &DataLoadError{Source: path, Message: "open duckdb", Err: err}
	}
	defer db.Close()

	return fromQuery(context.Background(), path, db, "SELECT * FROM read_parquet("+quoteLiteral(path)+")", sch, cfg)
}

// FromDB builds a Dataset from a table of an open database.
func FromDB(ctx context.Context, db *sql.DB, table string, sch *schema.Schema, opts ...Option) (*Dataset, error) {
	cfg := newConfig(opts)
	if table == "" {
		table = cfg.table
	}
	return fromQuery(ctx, table, db, "SELECT * FROM "+quoteIdent(table), sch, cfg)
}

func fromQuery(ctx context.Context, source string, db *sql.DB, query string, sch *schema.Schema, cfg *config) (*Dataset, error) {
	cfg.logger.Debug("querying gene table", zap.String("source", source), zap.String("query", query))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, &DataLoadError{Source: source, Message: "query gene table", Err: err}
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, &DataLoadError{Source: source, Message: "read columns", Err: err}
	}

	var data []row
	vals := make([]any, len(header))
	ptrs := make([]any, len(header))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &DataLoadError{Source: source, Line: len(data) + 2, Message: "scan row", Err: err}
		}
		cells := make([]string, len(vals))
		for i, v := range vals {
			cells[i] = cellString(v)
		}
		data = append(data, row{line: len(data) + 2, cells: cells})
	}
	if err := rows.Err(); err != nil {
		return nil, &DataLoadError{Source: source, Message: "iterate rows", Err: err}
	}

	return build(source, header, data, sch, cfg)
}

// cellString renders a scanned database value as source text. NULL becomes
// the empty string, which loads as missing.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
