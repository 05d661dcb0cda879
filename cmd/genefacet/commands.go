package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/inodb/genefacet/internal/dataset"
	"github.com/inodb/genefacet/internal/facet"
	"github.com/inodb/genefacet/internal/output"
	"github.com/inodb/genefacet/internal/schema"
)

const noMatches = "no genes match the selection"

func newGenesCmd(a *app) *cobra.Command {
	var sf *selectionFlags
	cmd := &cobra.Command{
		Use:   "genes",
		Short: "List the genes matching a selection",
		Example: `  genefacet genes -d genelist.csv --rusp Core --inheritance AR,XL
  genefacet genes -d genelist.csv --where "age_onset=Neonatal,Infant" --min-programs 10`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, records, err := a.filtered(sf)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(a.stderr, noMatches)
				return nil
			}
			return a.writeOutput(func(w io.Writer) error {
				return output.WriteGeneList(w, records)
			})
		},
	}
	sf = addSelectionFlags(cmd)
	return cmd
}

func newTableCmd(a *app) *cobra.Command {
	var raw bool
	var sf *selectionFlags
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Print the matching genes with all facet values",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, records, err := a.filtered(sf)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(a.stderr, noMatches)
				return nil
			}
			return a.writeOutput(func(w io.Writer) error {
				tw := output.NewTabWriter(w, ds.Schema(), ds.ProgramNames())
				tw.SetRawValues(raw)
				if err := tw.WriteHeader(); err != nil {
					return err
				}
				for _, r := range records {
					if err := tw.Write(r); err != nil {
						return err
					}
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Write stored values and facet keys instead of display labels")
	sf = addSelectionFlags(cmd)
	return cmd
}

func newCountsCmd(a *app) *cobra.Command {
	var all, genes bool
	var sf *selectionFlags
	cmd := &cobra.Command{
		Use:   "counts <facet>",
		Short: "Count the matching genes per value of a facet",
		Example: `  genefacet counts inheritance -d genelist.csv --rusp Core
  genefacet counts severity -d genelist.csv --all`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, records, err := a.filtered(sf)
			if err != nil {
				return err
			}
			f, err := lookupFacet(ds.Schema(), args[0])
			if err != nil {
				return err
			}
			var opts []facet.GroupOption
			if all {
				opts = append(opts, facet.IncludeEmpty())
			}
			buckets := facet.GroupCounts(records, f, opts...)
			return a.writeOutput(func(w io.Writer) error {
				return output.WriteCounts(w, buckets, genes)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include values with no matching genes")
	cmd.Flags().BoolVar(&genes, "genes", false, "Include the gene list of each value")
	sf = addSelectionFlags(cmd)
	return cmd
}

func newMembersCmd(a *app) *cobra.Command {
	var sf *selectionFlags
	cmd := &cobra.Command{
		Use:   "members <facet>",
		Short: "List the matching genes grouped by value of a facet",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, records, err := a.filtered(sf)
			if err != nil {
				return err
			}
			f, err := lookupFacet(ds.Schema(), args[0])
			if err != nil {
				return err
			}
			buckets := facet.GroupCounts(records, f)
			return a.writeOutput(func(w io.Writer) error {
				return output.WriteMembers(w, buckets)
			})
		},
	}
	sf = addSelectionFlags(cmd)
	return cmd
}

func newProgramsCmd(a *app) *cobra.Command {
	var genes bool
	var sf *selectionFlags
	cmd := &cobra.Command{
		Use:   "programs",
		Short: "Count the matching genes per screening program",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, records, err := a.filtered(sf)
			if err != nil {
				return err
			}
			totals := facet.ProgramTotals(records, ds.ProgramNames())
			return a.writeOutput(func(w io.Writer) error {
				return output.WriteCounts(w, totals, genes)
			})
		},
	}
	cmd.Flags().BoolVar(&genes, "genes", false, "Include the gene list of each program")
	sf = addSelectionFlags(cmd)
	return cmd
}

func newHeatmapCmd(a *app) *cobra.Command {
	var sf *selectionFlags
	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Print the gene by program membership matrix of the matching genes",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, records, err := a.filtered(sf)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(a.stderr, noMatches)
				return nil
			}
			m := facet.ProgramMatrix(records, ds.ProgramNames())
			return a.writeOutput(func(w io.Writer) error {
				return output.WriteMatrix(w, m)
			})
		},
	}
	sf = addSelectionFlags(cmd)
	return cmd
}

func newSummaryCmd(a *app) *cobra.Command {
	var sf *selectionFlags
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize program counts of the matching genes",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, records, err := a.filtered(sf)
			if err != nil {
				return err
			}
			s, err := facet.Summarize(records)
			if err != nil {
				return fmt.Errorf("summarizing program counts: %w", err)
			}
			return a.writeOutput(func(w io.Writer) error {
				return output.WriteSummary(w, s)
			})
		},
	}
	sf = addSelectionFlags(cmd)
	return cmd
}

func newFacetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "facets",
		Short: "List the facets of the gene table and their selectable values",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.loadDataset()
			if err != nil {
				return err
			}
			return a.writeOutput(func(w io.Writer) error {
				return writeFacets(w, ds)
			})
		},
	}
}

// writeFacets lists every facet value with its label and number of genes,
// followed by the screening programs.
func writeFacets(w io.Writer, ds *dataset.Dataset) error {
	if _, err := fmt.Fprintln(w, "Facet\tTitle\tValue\tLabel\tGenes"); err != nil {
		return err
	}
	records := ds.Records()
	for _, f := range ds.Schema().Facets {
		counts := make(map[string]int)
		for _, b := range facet.GroupCounts(records, f) {
			counts[b.Value] = b.Count
		}
		for _, v := range ds.Domain(f.Key) {
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", f.Key, f.DisplayTitle(), v, f.Label(v), counts[v]); err != nil {
				return err
			}
		}
	}
	for _, b := range facet.ProgramTotals(records, ds.ProgramNames()) {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", facet.ProgramsFacet, "Screening programs", b.Value, b.Label, b.Count); err != nil {
			return err
		}
	}
	return nil
}

func newSchemaCmd(a *app) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the active schema as YAML",
		Long: `Print the active schema as YAML. The output can be edited and passed back
with --schema-file to describe a gene table with different columns.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				for _, v := range schema.Versions() {
					fmt.Fprintln(a.stdout, v)
				}
				return nil
			}
			sch, err := a.loadSchema()
			if err != nil {
				return err
			}
			out, err := schema.Marshal(sch)
			if err != nil {
				return err
			}
			return a.writeOutput(func(w io.Writer) error {
				_, err := w.Write(out)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "List the built-in schema versions")
	return cmd
}
