package facet

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/genefacet/internal/dataset"
	"github.com/inodb/genefacet/internal/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Builtin(schema.VersionV15Feb)
	require.NoError(t, err)
	return s
}

// panel is a small in-memory gene table. Every gene is in at least one
// program so the default threshold does not hide any of them.
func panel(t *testing.T) *dataset.Dataset {
	t.Helper()
	header := []string{"gene_official", "rusp", "inheritance", "severity", "scr_guardian", "scr_babyseq2", "scr_earlycheck"}
	rows := [][]string{
		{"PAH", "Core", "AR", "3", "1", "1", "1"},
		{"CFTR", "", "AR", "2", "1", "0", "0"},
		{"OTC", "Secondary", "XLR", "", "0", "1", "0"},
		{"GAA", "Core", "AR", "0", "1", "1", "0"},
		{"F8", "", "XLR", "3", "0", "0", "1"},
	}
	d, err := dataset.FromRows(header, rows, testSchema(t))
	require.NoError(t, err)
	return d
}

func TestApply_EmptySelectionIsNeutral(t *testing.T) {
	d := panel(t)
	got := Apply(d, NewSelection())
	assert.Equal(t, GeneIDs(d.Records()), GeneIDs(got))
}

func TestApply_EmptyFacetIsNeutral(t *testing.T) {
	d := panel(t)
	sel := NewSelection().With(schema.FacetRUSP, "Core")
	withEmpty := sel.With(schema.FacetInheritance)
	assert.Equal(t, GeneIDs(Apply(d, sel)), GeneIDs(Apply(d, withEmpty)))
}

func TestApply_SoundAndComplete(t *testing.T) {
	d := panel(t)
	sel := NewSelection().
		With(schema.FacetInheritance, "AR").
		With(schema.FacetSeverity, "3", "2")

	got := Apply(d, sel)
	assert.Equal(t, []string{"PAH", "CFTR"}, GeneIDs(got))

	q := NewEngine(d).Compile(sel)
	included := make(map[string]bool)
	for _, r := range got {
		included[r.Gene] = true
		assert.True(t, q.Match(r))
	}
	for _, r := range d.Records() {
		if !included[r.Gene] {
			assert.False(t, q.Match(r), r.Gene)
		}
	}
}

func TestApply_Idempotent(t *testing.T) {
	d := panel(t)
	sel := NewSelection().With(schema.FacetInheritance, "XLR", "AR").WithPrograms("Guardian")
	q := NewEngine(d).Compile(sel)

	once := q.Filter(d.Records())
	twice := q.Filter(once)
	assert.Equal(t, GeneIDs(once), GeneIDs(twice))

	first := Apply(d, sel)
	second := Apply(d, sel)
	assert.Equal(t, first, second)
	assert.Equal(t, GeneIDs(once), GeneIDs(first))
	assert.Equal(t, 5, d.Len(), "dataset is not modified")
}

func TestApply_AndAcrossFacets(t *testing.T) {
	d := panel(t)
	a := NewSelection().With(schema.FacetRUSP, "Core")
	b := NewSelection().With(schema.FacetInheritance, "AR")
	both := a.With(schema.FacetInheritance, "AR")

	inB := make(map[string]bool)
	for _, id := range GeneIDs(Apply(d, b)) {
		inB[id] = true
	}
	var intersection []string
	for _, id := range GeneIDs(Apply(d, a)) {
		if inB[id] {
			intersection = append(intersection, id)
		}
	}
	assert.Equal(t, intersection, GeneIDs(Apply(d, both)))
	assert.Equal(t, []string{"PAH", "GAA"}, GeneIDs(Apply(d, both)))
}

func TestApply_OrWithinFacet(t *testing.T) {
	d := panel(t)
	ar := GeneIDs(Apply(d, NewSelection().With(schema.FacetInheritance, "AR")))
	xl := GeneIDs(Apply(d, NewSelection().With(schema.FacetInheritance, "XLR")))
	union := GeneIDs(Apply(d, NewSelection().With(schema.FacetInheritance, "AR", "XLR", "AR")))

	assert.ElementsMatch(t, append(ar, xl...), union)
	assert.Equal(t, []string{"PAH", "CFTR", "OTC", "GAA", "F8"}, union, "dataset order, no duplicates")
}

func TestApply_MissingIsACategory(t *testing.T) {
	d := panel(t)

	onlyMissing := Apply(d, NewSelection().With(schema.FacetSeverity, schema.Missing))
	assert.Equal(t, []string{"OTC"}, GeneIDs(onlyMissing))

	notOnRUSP := Apply(d, NewSelection().With(schema.FacetRUSP, "Not on RUSP"))
	assert.Equal(t, []string{"CFTR", "F8"}, GeneIDs(notOnRUSP), "missing label resolves to Missing")

	coded := Apply(d, NewSelection().With(schema.FacetSeverity, "0"))
	assert.Equal(t, []string{"GAA"}, GeneIDs(coded), "code 0 is distinct from Missing")
}

func TestApply_RUSPWithMissing(t *testing.T) {
	header := []string{"gene_official", "rusp", "scr_a"}
	rows := [][]string{
		{"G1", "Core", "1"},
		{"G2", "Secondary", "1"},
		{"G3", "", "1"},
		{"G4", "Core", "1"},
		{"G5", "", "1"},
	}
	d, err := dataset.FromRows(header, rows, testSchema(t))
	require.NoError(t, err)

	sel := NewSelection().With(schema.FacetRUSP, "Core", schema.Missing)
	assert.Equal(t, []string{"G1", "G3", "G4", "G5"}, GeneIDs(Apply(d, sel)))

	sel = NewSelection().With(schema.FacetRUSP, "Secondary", "Not on RUSP")
	assert.Equal(t, []string{"G2", "G3", "G5"}, GeneIDs(Apply(d, sel)))

	q := NewEngine(d).Compile(NewSelection().With(schema.FacetRUSP, "Core", "Not-on-RUSP"))
	assert.Empty(t, q.Ignored())
	assert.Equal(t, []string{"G1", "G3", "G4", "G5"}, GeneIDs(q.Filter(d.Records())))
}

func TestApply_LiteralMissingCellIsAbsent(t *testing.T) {
	header := []string{"gene_official", "rusp", "inheritance", "scr_a"}
	rows := [][]string{
		{"G1", "Core", "Missing", "1"},
		{"G2", "Core", "", "1"},
		{"G3", "Core", "AR", "1"},
	}
	d, err := dataset.FromRows(header, rows, testSchema(t))
	require.NoError(t, err)

	g1, _ := d.Gene("G1")
	_, ok := g1.Value(schema.FacetInheritance)
	assert.False(t, ok)

	sel := NewSelection().With(schema.FacetInheritance, schema.Missing)
	assert.Equal(t, []string{"G1", "G2"}, GeneIDs(Apply(d, sel)))

	buckets := GroupCounts(d.Records(), facetOf(t, d, schema.FacetInheritance))
	require.Len(t, buckets, 2)
	assert.Equal(t, "AR", buckets[0].Value)
	assert.Equal(t, schema.Missing, buckets[1].Value)
	assert.Equal(t, 2, buckets[1].Count)
}

// thresholdPanel has genes flagged in 0, 1, 2, 5 and 26 programs.
func thresholdPanel(t *testing.T) *dataset.Dataset {
	t.Helper()
	counts := []int{0, 1, 2, 5, 26}
	header := []string{"gene_official", "rusp"}
	for i := 1; i <= 26; i++ {
		header = append(header, fmt.Sprintf("scr_p%02d", i))
	}
	var rows [][]string
	for i, n := range counts {
		row := []string{fmt.Sprintf("G%d", i), "Core"}
		for j := 1; j <= 26; j++ {
			if j <= n {
				row = append(row, "1")
			} else {
				row = append(row, "0")
			}
		}
		rows = append(rows, row)
	}
	d, err := dataset.FromRows(header, rows, testSchema(t))
	require.NoError(t, err)
	return d
}

func TestApply_MinPrograms(t *testing.T) {
	d := thresholdPanel(t)

	tests := []struct {
		name string
		min  int
		want []string
	}{
		{"default floor", 0, []string{"G1", "G2", "G3", "G4"}},
		{"negative raised to floor", -3, []string{"G1", "G2", "G3", "G4"}},
		{"one", 1, []string{"G1", "G2", "G3", "G4"}},
		{"two", 2, []string{"G2", "G3", "G4"}},
		{"all programs", 26, []string{"G4"}},
		{"above max", 27, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(d, NewSelection().WithMinPrograms(tt.min))
			assert.Equal(t, tt.want, GeneIDs(got))
		})
	}
}

func TestApply_ZeroProgramGenesNeverMatch(t *testing.T) {
	d, err := dataset.Load(filepath.Join("..", "dataset", "testdata", "genes.csv"), testSchema(t))
	require.NoError(t, err)

	got := GeneIDs(Apply(d, NewSelection().With(schema.FacetInheritance, "AD")))
	assert.Empty(t, got, "SCN1A is in no program")
}

func TestApply_Programs(t *testing.T) {
	header := []string{"gene_official", "rusp", "scr_guardian", "scr_babyseq2"}
	rows := [][]string{
		{"G1", "Core", "1", "0"},
		{"G2", "", "0", "1"},
		{"G3", "Secondary", "1", "1"},
	}
	d, err := dataset.FromRows(header, rows, testSchema(t))
	require.NoError(t, err)

	either := Apply(d, NewSelection().WithPrograms("Guardian", "BabySeq2"))
	assert.Equal(t, []string{"G1", "G2", "G3"}, GeneIDs(either))

	onlyB := Apply(d, NewSelection().WithPrograms("babyseq2"))
	assert.Equal(t, []string{"G2", "G3"}, GeneIDs(onlyB), "program names match case-insensitively")
}

func TestCompile_IgnoresUnknownSelections(t *testing.T) {
	d := panel(t)
	core, obs := observer.New(zapcore.DebugLevel)
	e := NewEngine(d)
	e.SetLogger(zap.New(core))

	sel := NewSelection().
		With(schema.FacetInheritance, "AR", "Digenic").
		With(schema.FacetSeverity, "Catastrophic").
		With("colour", "blue").
		WithPrograms("Guardian", "Nope")

	q := e.Compile(sel)
	assert.ElementsMatch(t, []Ignored{
		{Facet: schema.FacetInheritance, Value: "Digenic", Reason: ReasonUnknownValue},
		{Facet: schema.FacetSeverity, Value: "Catastrophic", Reason: ReasonUnknownValue},
		{Facet: "colour", Value: "blue", Reason: ReasonUnknownFacet},
		{Facet: ProgramsFacet, Value: "Nope", Reason: ReasonUnknownProgram},
	}, q.Ignored())
	assert.Equal(t, 4, obs.FilterMessage("ignoring selection").Len())

	// Severity had only unknown values so it does not restrict.
	assert.Equal(t, []string{"PAH", "CFTR", "GAA"}, GeneIDs(q.Filter(d.Records())))
}

func TestCompile_ResolvesLabels(t *testing.T) {
	d := panel(t)

	xl := Apply(d, NewSelection().With(schema.FacetInheritance, "xl"))
	assert.Equal(t, []string{"OTC", "F8"}, GeneIDs(xl))

	severe := Apply(d, NewSelection().With(schema.FacetSeverity, "Severe"))
	assert.Equal(t, []string{"PAH", "F8"}, GeneIDs(severe))

	decimal := Apply(d, NewSelection().With(schema.FacetSeverity, "3.0"))
	assert.Equal(t, []string{"PAH", "F8"}, GeneIDs(decimal))
}

func TestSelection_Immutable(t *testing.T) {
	base := NewSelection().With(schema.FacetRUSP, "Core")
	derived := base.With(schema.FacetRUSP, "Secondary").WithPrograms("Guardian").WithMinPrograms(3)

	assert.Equal(t, []string{"Core"}, base.Values(schema.FacetRUSP))
	assert.Empty(t, base.Programs())
	assert.Equal(t, MinProgramsFloor, base.MinPrograms())

	assert.Equal(t, []string{"Core", "Secondary"}, derived.Values(schema.FacetRUSP))
	assert.Equal(t, []string{"Guardian"}, derived.Programs())
	assert.Equal(t, 3, derived.MinPrograms())
}

func TestSelection_Facets(t *testing.T) {
	sel := NewSelection().
		With(schema.FacetSeverity, "3").
		With(schema.FacetInheritance).
		With(schema.FacetRUSP, "Core")
	assert.Equal(t, []string{schema.FacetRUSP, schema.FacetSeverity}, sel.Facets())
}

func TestQuery_MinPrograms(t *testing.T) {
	d := panel(t)
	q := NewEngine(d).Compile(NewSelection().WithMinPrograms(0))
	assert.Equal(t, 1, q.MinPrograms())
}

func TestSelection_String(t *testing.T) {
	assert.Equal(t, "min_programs=1", NewSelection().String())

	sel := NewSelection().
		With(schema.FacetRUSP, "Core").
		With(schema.FacetInheritance, "AR", "XL").
		WithPrograms("Guardian").
		WithMinPrograms(2)
	assert.Equal(t, "inheritance=AR,XL;rusp=Core;programs=Guardian;min_programs=2", sel.String())
}
