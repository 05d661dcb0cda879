package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inodb/genefacet/internal/dataset"
	"github.com/inodb/genefacet/internal/facet"
	"github.com/inodb/genefacet/internal/schema"
)

// shorthandFacets get their own flag, named after the facet key with
// underscores replaced by dashes. Other facets are reachable through --where.
var shorthandFacets = []string{
	schema.FacetRUSP,
	schema.FacetInheritance,
	schema.FacetPenetrance,
	schema.FacetOrthogonal,
	schema.FacetAgeOnset,
	schema.FacetSeverity,
	schema.FacetEfficacy,
}

// selectionFlags holds the facet choices given on the command line.
type selectionFlags struct {
	where       []string
	shorthand   map[string]*[]string
	programs    []string
	minPrograms int
}

func flagName(facetKey string) string {
	return strings.ReplaceAll(facetKey, "_", "-")
}

// addSelectionFlags registers the facet selection flags on cmd.
func addSelectionFlags(cmd *cobra.Command) *selectionFlags {
	sf := &selectionFlags{shorthand: make(map[string]*[]string)}
	fs := cmd.Flags()

	fs.StringArrayVarP(&sf.where, "where", "w", nil,
		"Facet selection as key=value[,value...] (repeatable; values of one facet are ORed)")
	for _, key := range shorthandFacets {
		var values []string
		fs.StringSliceVar(&values, flagName(key), nil, fmt.Sprintf("Select %s values (comma separated)", key))
		sf.shorthand[key] = &values
	}
	fs.StringSliceVarP(&sf.programs, "program", "p", nil,
		"Only genes flagged in any of these screening programs (repeatable)")
	fs.IntVar(&sf.minPrograms, "min-programs", facet.MinProgramsFloor,
		"Only genes flagged in at least this many programs (minimum 1)")

	return sf
}

// parseWhere splits a key=v1,v2 expression. Blank values are dropped.
func parseWhere(expr string) (string, []string, error) {
	key, raw, ok := strings.Cut(expr, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", nil, usageErrorf("invalid --where %q: want key=value[,value...]", expr)
	}
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return key, values, nil
}

// selection builds the facet selection from the parsed flags.
func (sf *selectionFlags) selection() (facet.Selection, error) {
	sel := facet.NewSelection()
	for _, key := range shorthandFacets {
		if values := *sf.shorthand[key]; len(values) > 0 {
			sel = sel.With(key, values...)
		}
	}
	for _, expr := range sf.where {
		key, values, err := parseWhere(expr)
		if err != nil {
			return facet.Selection{}, err
		}
		sel = sel.With(strings.ReplaceAll(key, "-", "_"), values...)
	}
	if len(sf.programs) > 0 {
		sel = sel.WithPrograms(sf.programs...)
	}
	return sel.WithMinPrograms(sf.minPrograms), nil
}

// filtered loads the dataset and applies the selection.
func (a *app) filtered(sf *selectionFlags) (*dataset.Dataset, []*dataset.GeneRecord, error) {
	sel, err := sf.selection()
	if err != nil {
		return nil, nil, err
	}
	ds, err := a.loadDataset()
	if err != nil {
		return nil, nil, err
	}
	return ds, a.apply(ds, sel), nil
}

// apply filters ds by sel, reporting ignored choices on stderr.
func (a *app) apply(ds *dataset.Dataset, sel facet.Selection) []*dataset.GeneRecord {
	engine := facet.NewEngine(ds)
	engine.SetLogger(a.logger)
	q := engine.Compile(sel)
	for _, ig := range q.Ignored() {
		fmt.Fprintf(a.stderr, "Warning: ignoring %s=%s (%s)\n", ig.Facet, ig.Value, ig.Reason)
	}
	return q.Filter(ds.Records())
}

// lookupFacet resolves a facet key argument, case-insensitively.
func lookupFacet(sch *schema.Schema, key string) (schema.Facet, error) {
	key = strings.ReplaceAll(strings.TrimSpace(key), "-", "_")
	for _, f := range sch.Facets {
		if strings.EqualFold(f.Key, key) {
			return f, nil
		}
	}
	return schema.Facet{}, usageErrorf("unknown facet %q (available: %s)", key, strings.Join(sch.FacetKeys(), ", "))
}
