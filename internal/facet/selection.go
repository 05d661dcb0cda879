// Package facet filters a gene Dataset by a set of facet selections and
// summarizes the result for display.
//
// Selections combine as OR within a facet and AND across facets. A facet
// with no chosen values imposes no restriction. The program-count threshold
// is always active with a floor of 1.
package facet

import (
	"fmt"
	"sort"
	"strings"
)

// MinProgramsFloor is the smallest effective program-count threshold.
const MinProgramsFloor = 1

// Selection is an immutable set of facet choices. The zero value selects
// every gene flagged in at least one program.
type Selection struct {
	values      map[string][]string
	programs    []string
	minPrograms int
}

// NewSelection returns an empty selection.
func NewSelection() Selection {
	return Selection{}
}

// With returns a copy of s with the given values added to a facet. Values
// may be stored values, option labels or schema.Missing.
func (s Selection) With(facetKey string, values ...string) Selection {
	out := s.clone()
	if out.values == nil {
		out.values = make(map[string][]string)
	}
	merged := append([]string(nil), out.values[facetKey]...)
	out.values[facetKey] = append(merged, values...)
	return out
}

// WithPrograms returns a copy of s with the given programs added to the
// program membership facet.
func (s Selection) WithPrograms(names ...string) Selection {
	out := s.clone()
	out.programs = append(append([]string(nil), s.programs...), names...)
	return out
}

// WithMinPrograms returns a copy of s with the program-count threshold set.
// Values below MinProgramsFloor are raised to it when the selection is applied.
func (s Selection) WithMinPrograms(n int) Selection {
	out := s.clone()
	out.minPrograms = n
	return out
}

// Values returns the chosen values of a facet.
func (s Selection) Values(facetKey string) []string {
	return append([]string(nil), s.values[facetKey]...)
}

// Facets returns the keys of facets with at least one chosen value, sorted.
func (s Selection) Facets() []string {
	keys := make([]string, 0, len(s.values))
	for k, v := range s.values {
		if len(v) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Programs returns the chosen programs.
func (s Selection) Programs() []string {
	return append([]string(nil), s.programs...)
}

// MinPrograms returns the effective program-count threshold.
func (s Selection) MinPrograms() int {
	if s.minPrograms < MinProgramsFloor {
		return MinProgramsFloor
	}
	return s.minPrograms
}

// String renders the selection in a canonical form, e.g.
// "inheritance=AR,XL;rusp=Core;programs=Guardian;min_programs=2".
func (s Selection) String() string {
	var parts []string
	for _, k := range s.Facets() {
		parts = append(parts, k+"="+strings.Join(s.values[k], ","))
	}
	if len(s.programs) > 0 {
		parts = append(parts, "programs="+strings.Join(s.programs, ","))
	}
	parts = append(parts, fmt.Sprintf("min_programs=%d", s.MinPrograms()))
	return strings.Join(parts, ";")
}

func (s Selection) clone() Selection {
	out := Selection{
		programs:    s.programs,
		minPrograms: s.minPrograms,
	}
	if s.values != nil {
		out.values = make(map[string][]string, len(s.values))
		for k, v := range s.values {
			out.values[k] = v
		}
	}
	return out
}
