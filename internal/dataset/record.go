package dataset

import "github.com/inodb/genefacet/internal/schema"

// GeneRecord is one row of the gene table.
type GeneRecord struct {
	Gene string // Gene identifier (e.g., PAH)
	Line int    // Source line or row number, 1-based

	// ProgramCount is the number of programs the gene is flagged in.
	ProgramCount int
	// DeclaredCount is the source's aggregate count column, or -1 if the
	// column is absent or unparsable.
	DeclaredCount int

	values   map[string]string // facet key -> stored value; absent when missing
	programs map[string]bool   // program name -> member
}

// Value returns the stored value of a facet and whether it is present.
func (r *GeneRecord) Value(facetKey string) (string, bool) {
	v, ok := r.values[facetKey]
	return v, ok
}

// ValueOrMissing returns the stored value of a facet, or schema.Missing.
func (r *GeneRecord) ValueOrMissing(facetKey string) string {
	if v, ok := r.values[facetKey]; ok {
		return v
	}
	return schema.Missing
}

// InProgram reports whether the gene is flagged in the named program.
func (r *GeneRecord) InProgram(name string) bool {
	return r.programs[name]
}

// Programs returns the names of the programs the gene is flagged in, in the
// order given.
func (r *GeneRecord) Programs(order []string) []string {
	var names []string
	for _, name := range order {
		if r.programs[name] {
			names = append(names, name)
		}
	}
	return names
}
