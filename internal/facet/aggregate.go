package facet

import (
	"github.com/inodb/genefacet/internal/dataset"
	"github.com/inodb/genefacet/internal/schema"
)

// Bucket is one category of a grouped summary.
type Bucket struct {
	Value string   // stored value, schema.Missing or program name
	Label string   // display label
	Count int      // number of genes
	Genes []string // gene identifiers, in record order
}

type groupConfig struct {
	includeEmpty bool
}

// GroupOption configures GroupCounts.
type GroupOption func(*groupConfig)

// IncludeEmpty emits zero-count buckets for every declared option and for
// Missing, so a chart keeps a fixed category axis.
func IncludeEmpty() GroupOption {
	return func(c *groupConfig) { c.includeEmpty = true }
}

// GroupCounts groups records by the value of facet f. Buckets are ordered by
// the facet's declared options, then by other observed values in first-seen
// order, with Missing last.
func GroupCounts(records []*dataset.GeneRecord, f schema.Facet, opts ...GroupOption) []Bucket {
	cfg := &groupConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	grouped := make(map[string][]string)
	var observed []string
	for _, r := range records {
		v := r.ValueOrMissing(f.Key)
		if _, exists := grouped[v]; !exists {
			observed = append(observed, v)
		}
		grouped[v] = append(grouped[v], r.Gene)
	}

	var order []string
	placed := make(map[string]bool)
	place := func(v string) {
		if placed[v] {
			return
		}
		if _, ok := grouped[v]; !ok && !cfg.includeEmpty {
			return
		}
		placed[v] = true
		order = append(order, v)
	}
	for _, o := range f.Options {
		place(o.Value)
	}
	for _, v := range observed {
		if v != schema.Missing {
			place(v)
		}
	}
	place(schema.Missing)

	buckets := make([]Bucket, 0, len(order))
	for _, v := range order {
		g := grouped[v]
		buckets = append(buckets, Bucket{
			Value: v,
			Label: f.Label(v),
			Count: len(g),
			Genes: append([]string{}, g...),
		})
	}
	return buckets
}

// GroupMembers maps each value of facet f present in records to its gene
// identifiers, in record order.
func GroupMembers(records []*dataset.GeneRecord, f schema.Facet) map[string][]string {
	members := make(map[string][]string)
	for _, r := range records {
		v := r.ValueOrMissing(f.Key)
		members[v] = append(members[v], r.Gene)
	}
	return members
}

// ProgramTotals counts the records flagged in each program, in the order
// given. Programs with no members are included with a zero count.
func ProgramTotals(records []*dataset.GeneRecord, programs []string) []Bucket {
	buckets := make([]Bucket, len(programs))
	for i, name := range programs {
		buckets[i] = Bucket{Value: name, Label: name, Genes: []string{}}
	}
	for _, r := range records {
		for i, name := range programs {
			if r.InProgram(name) {
				buckets[i].Count++
				buckets[i].Genes = append(buckets[i].Genes, r.Gene)
			}
		}
	}
	return buckets
}

// Matrix is a gene by program membership grid for a heatmap.
type Matrix struct {
	Genes    []string
	Programs []string
	Cells    [][]bool // Cells[gene][program]
}

// ProgramMatrix builds the membership grid of records over programs.
func ProgramMatrix(records []*dataset.GeneRecord, programs []string) Matrix {
	m := Matrix{
		Genes:    make([]string, len(records)),
		Programs: append([]string{}, programs...),
		Cells:    make([][]bool, len(records)),
	}
	for i, r := range records {
		m.Genes[i] = r.Gene
		row := make([]bool, len(programs))
		for j, name := range programs {
			row[j] = r.InProgram(name)
		}
		m.Cells[i] = row
	}
	return m
}
