package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/genefacet/internal/facet"
	"github.com/inodb/genefacet/internal/store"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		to      string
		toTable string
		force   bool
		sf      *selectionFlags
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Write the matching genes into a DuckDB database",
		Long: `Write the gene table, optionally narrowed by a selection, into a DuckDB
database. The result can be loaded again with --data <file>.duckdb.

An import is skipped when the target table was already written from the
same source file, schema and selection, unless --force is given.`,
		Example: `  genefacet import -d genelist_all_version15Feb.xlsx --to genes.duckdb
  genefacet import -d genelist.csv --rusp Core --to genes.duckdb --to-table core`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" {
				return usageErrorf("--to is required")
			}
			sel, err := sf.selection()
			if err != nil {
				return err
			}
			return a.runImport(cmd.Context(), to, toTable, sel, force)
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "DuckDB database to write (created if missing)")
	cmd.Flags().StringVar(&toTable, "to-table", "genes", "Table to write")
	cmd.Flags().BoolVar(&force, "force", false, "Write even if the table is up to date")
	sf = addSelectionFlags(cmd)
	return cmd
}

func (a *app) runImport(ctx context.Context, to, table string, sel facet.Selection, force bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	source, err := dataPath()
	if err != nil {
		return err
	}

	s, err := store.Open(to)
	if err != nil {
		return err
	}
	defer s.Close()

	sch, err := a.loadSchema()
	if err != nil {
		return err
	}

	fp, statErr := store.StatFile(source)
	if statErr == nil && !force {
		prev, ok, err := s.LookupImport(table)
		if err != nil {
			return err
		}
		if ok && prev.Current(fp, sch.Version, sel.String()) {
			fmt.Fprintf(a.stderr, "%s.%s is up to date (%d genes); use --force to rewrite\n", to, table, prev.Genes)
			return nil
		}
	}

	ds, err := a.loadDataset()
	if err != nil {
		return err
	}
	records := a.apply(ds, sel)

	if err := s.WriteGenes(ctx, table, ds.Schema(), ds.ProgramNames(), records); err != nil {
		return err
	}
	if statErr == nil {
		if err := s.RecordImport(store.Import{
			Table:         table,
			Source:        fp,
			SchemaVersion: sch.Version,
			Selection:     sel.String(),
			Genes:         len(records),
			ImportedAt:    time.Now(),
		}); err != nil {
			return err
		}
	}

	a.logger.Info("imported gene table",
		zap.String("source", source),
		zap.String("store", to),
		zap.String("table", table),
		zap.Int("genes", len(records)))
	fmt.Fprintf(a.stderr, "Wrote %d genes to %s.%s\n", len(records), to, table)
	return nil
}
