package schema

import (
	"fmt"
	"sort"
)

// Built-in schema versions.
const (
	VersionV15Feb   = "v15feb"
	VersionBabySeq2 = "babyseq2"

	DefaultVersion = VersionV15Feb
)

// Facet keys shared by the built-in schemas.
const (
	FacetRUSP        = "rusp"
	FacetInheritance = "inheritance"
	FacetPenetrance  = "penetrance"
	FacetOrthogonal  = "orthogonal_test"
	FacetAgeOnset    = "age_onset"
	FacetSeverity    = "severity"
	FacetEfficacy    = "efficacy"
)

var builtins = map[string]func() *Schema{
	VersionV15Feb:   v15Feb,
	VersionBabySeq2: babySeq2,
}

// Builtin returns a fresh copy of a built-in schema version.
func Builtin(version string) (*Schema, error) {
	build, ok := builtins[version]
	if !ok {
		return nil, &Error{Version: version, Message: fmt.Sprintf("unknown schema version (available: %v)", Versions())}
	}
	s := build()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Versions returns the names of the built-in schemas, sorted.
func Versions() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ruspFacet() Facet {
	return Facet{
		Key:    FacetRUSP,
		Column: "rusp",
		Title:  "RUSP status",
		Options: []Option{
			{Value: "Core"},
			{Value: "Secondary"},
		},
		MissingLabel: "Not on RUSP",
		Required:     true,
	}
}

func penetranceFacet() Facet {
	return Facet{
		Key:    FacetPenetrance,
		Column: "penetrance",
		Title:  "Penetrance",
		Options: []Option{
			{Value: "HIGH (A)", Label: "High"},
			{Value: "MODERATE(A)", Label: "Moderate"},
		},
	}
}

func ageOnsetFacet() Facet {
	return Facet{
		Key:    FacetAgeOnset,
		Column: "age_onset_asqm_standard",
		Title:  "Age of onset",
		Options: []Option{
			{Value: "Birth"},
			{Value: "Neonatal"},
			{Value: "Infant"},
			{Value: "Childhood"},
			{Value: "Adolescent/Adult"},
			{Value: "Variable"},
		},
	}
}

func severityFacet() Facet {
	return Facet{
		Key:    FacetSeverity,
		Column: "severity",
		Title:  "Severity",
		Kind:   KindCoded,
		Options: []Option{
			{Value: "3", Label: "Severe"},
			{Value: "2", Label: "Moderate"},
			{Value: "1", Label: "Mild"},
			{Value: "0", Label: "No symptoms"},
		},
	}
}

func efficacyFacet() Facet {
	return Facet{
		Key:    FacetEfficacy,
		Column: "efficacy",
		Title:  "Efficacy of treatment",
		Kind:   KindCoded,
		Options: []Option{
			{Value: "3", Label: "High efficacy"},
			{Value: "2", Label: "Moderate efficacy"},
			{Value: "1", Label: "Minimal efficacy"},
			{Value: "0", Label: "No treatment"},
		},
	}
}

func orthogonalFacet() Facet {
	return Facet{
		Key:    FacetOrthogonal,
		Column: "orthogonal_test",
		Title:  "Orthogonal test",
		Options: []Option{
			{Value: "Y", Label: "Yes"},
			{Value: "N", Label: "No"},
		},
	}
}

func screeningPrograms() Programs {
	return Programs{
		Prefix:      "scr_",
		CountColumn: "scr_sum",
		Exclude:     []string{"scr_rusp"},
	}
}

// v15Feb matches the genelist_all_version15Feb export.
func v15Feb() *Schema {
	return &Schema{
		Version:    VersionV15Feb,
		GeneColumn: "gene_official",
		Facets: []Facet{
			ruspFacet(),
			{
				Key:    FacetInheritance,
				Column: "inheritance",
				Title:  "Inheritance",
				Options: []Option{
					{Value: "AR"},
					{Value: "AD"},
					{Value: "XLR", Label: "XL"},
				},
			},
			penetranceFacet(),
			orthogonalFacet(),
			ageOnsetFacet(),
			severityFacet(),
			efficacyFacet(),
		},
		Programs: screeningPrograms(),
	}
}

// babySeq2 uses the BabySeq2 inheritance curation.
func babySeq2() *Schema {
	s := v15Feb()
	s.Version = VersionBabySeq2
	for i := range s.Facets {
		if s.Facets[i].Key == FacetInheritance {
			s.Facets[i].Column = "inheritance_babyseq2"
			s.Facets[i].Options = []Option{
				{Value: "AR"},
				{Value: "AD"},
				{Value: "XLR", Label: "XL"},
				{Value: "XLD"},
				{Value: "MT", Label: "Mitochondrial"},
			}
		}
	}
	return s
}
