package store

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/genefacet/internal/dataset"
	"github.com/inodb/genefacet/internal/schema"
)

// column is one column of a written gene table.
type column struct {
	name    string
	sqlType string
}

// geneColumns lays out a gene table in the shape the schema reads back:
// gene identifier, one VARCHAR per facet, one BOOLEAN per program and the
// program count column when the schema declares one.
func geneColumns(sch *schema.Schema, programs []string) []column {
	cols := []column{{sch.GeneColumn, "VARCHAR"}}
	for _, f := range sch.Facets {
		cols = append(cols, column{f.Column, "VARCHAR"})
	}
	for _, p := range programs {
		cols = append(cols, column{sch.Programs.Prefix + strings.ToLower(p), "BOOLEAN"})
	}
	if sch.Programs.CountColumn != "" {
		cols = append(cols, column{sch.Programs.CountColumn, "BIGINT"})
	}
	return cols
}

// WriteGenes replaces table with records, batch-inserted through the
// Appender API. Missing facet values are written as NULL.
func (s *Store) WriteGenes(ctx context.Context, table string, sch *schema.Schema, programs []string, records []*dataset.GeneRecord) error {
	cols := geneColumns(sch, programs)
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = quoteIdent(c.name) + " " + c.sqlType
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	ddl := fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if _, err := conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	row := make([]driver.Value, 0, len(cols))
	for _, r := range records {
		row = row[:0]
		row = append(row, r.Gene)
		for _, f := range sch.Facets {
			if v, ok := r.Value(f.Key); ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		for _, p := range programs {
			row = append(row, r.InProgram(p))
		}
		if sch.Programs.CountColumn != "" {
			row = append(row, int64(r.ProgramCount))
		}
		if err := appender.AppendRow(row...); err != nil {
			return fmt.Errorf("append gene %s: %w", r.Gene, err)
		}
	}

	return appender.Flush()
}

// Tables returns the gene tables recorded in the store, sorted by name.
func (s *Store) Tables() ([]string, error) {
	rows, err := s.db.Query("SELECT table_name FROM " + importsTable + " ORDER BY table_name")
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate imports: %w", err)
	}
	return tables, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
