package dataset

import (
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/genefacet/internal/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Builtin(schema.VersionV15Feb)
	require.NoError(t, err)
	return s
}

func genes(records []*GeneRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Gene
	}
	return out
}

func TestLoad_CSV(t *testing.T) {
	d, err := Load(filepath.Join("testdata", "genes.csv"), testSchema(t))
	require.NoError(t, err)

	assert.Equal(t, 5, d.Len())
	assert.Equal(t, []string{"PAH", "CFTR", "OTC", "SCN1A", "F8"}, genes(d.Records()))
	assert.Equal(t, []string{"Guardian", "Babyseq2", "Earlycheck"}, d.ProgramNames())

	pah, ok := d.Gene("PAH")
	require.True(t, ok)
	assert.Equal(t, 2, pah.Line)
	assert.Equal(t, 3, pah.ProgramCount)
	assert.Equal(t, 3, pah.DeclaredCount)
	assert.True(t, pah.InProgram("Guardian"))
	assert.Equal(t, []string{"Guardian", "Babyseq2", "Earlycheck"}, pah.Programs(d.ProgramNames()))

	sev, ok := pah.Value(schema.FacetSeverity)
	require.True(t, ok)
	assert.Equal(t, "3", sev, "coded values are normalized")

	scn, ok := d.Gene("SCN1A")
	require.True(t, ok)
	_, ok = scn.Value(schema.FacetRUSP)
	assert.False(t, ok, "blank RUSP is absent")
	assert.Equal(t, schema.Missing, scn.ValueOrMissing(schema.FacetSeverity))
	assert.Equal(t, 0, scn.ProgramCount)

	f8, _ := d.Gene("F8")
	assert.Equal(t, "0", f8.ValueOrMissing(schema.FacetSeverity), "code 0 is a value, not missing")
	assert.Equal(t, 1, f8.ProgramCount, "program count is derived from flags")
	assert.Equal(t, 2, f8.DeclaredCount)
}

func TestLoad_Domain(t *testing.T) {
	d, err := Load(filepath.Join("testdata", "genes.csv"), testSchema(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"Core", "Secondary", schema.Missing}, d.Domain(schema.FacetRUSP))
	assert.Equal(t, []string{"3", "2", "1", "0", schema.Missing}, d.Domain(schema.FacetSeverity))
	assert.Nil(t, d.Domain("nope"))

	assert.True(t, d.Known(schema.FacetRUSP, "Core"))
	assert.True(t, d.Known(schema.FacetRUSP, schema.Missing))
	assert.False(t, d.Known(schema.FacetRUSP, "Tertiary"))
	assert.False(t, d.Known("nope", "Core"))
}

func TestDomain_ObservedExtrasAfterOptions(t *testing.T) {
	header := []string{"gene_official", "rusp", "inheritance", "scr_a"}
	rows := [][]string{
		{"G1", "Core", "AR/AD", "1"},
		{"G2", "Core", "AR", "1"},
		{"G3", "Core", "Mito", "1"},
	}
	d, err := FromRows(header, rows, testSchema(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"AR", "AD", "XLR", "AR/AD", "Mito", schema.Missing}, d.Domain(schema.FacetInheritance))
}

func TestLoad_TSVGzip(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("testdata", "genes.csv"))
	require.NoError(t, err)
	tsv := strings.ReplaceAll(string(src), ",", "\t")

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err = gz.Write([]byte(tsv))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	path := filepath.Join(t.TempDir(), "genes.tsv.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	d, err := Load(path, testSchema(t))
	require.NoError(t, err)
	assert.Equal(t, 5, d.Len())
	assert.Equal(t, []string{"Guardian", "Babyseq2", "Earlycheck"}, d.ProgramNames())
}

func TestReadDelimited_SniffsTabs(t *testing.T) {
	input := "gene_official\trusp\tscr_a\nG1\tCore\t1\n"
	d, err := ReadDelimited(strings.NewReader(input), "", testSchema(t))
	require.NoError(t, err)
	require.Equal(t, 1, d.Len())
	assert.Equal(t, "Core", d.Records()[0].ValueOrMissing(schema.FacetRUSP))
}

func TestReadDelimited_HeaderCaseAndBOM(t *testing.T) {
	input := "\ufeffGene_Official,RUSP,SCR_Guardian\nG1,Core,1\n"
	d, err := ReadDelimited(strings.NewReader(input), FormatCSV, testSchema(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"Guardian"}, d.ProgramNames())
	assert.True(t, d.Records()[0].InProgram("Guardian"))
}

func TestFromRows_ShortRowsAndSkips(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	header := []string{"gene_official", "rusp", "severity", "scr_a", "scr_b"}
	rows := [][]string{
		{"G1", "Core", "2", "1"},
		{"", "Core", "2", "1", "1"},
		{"G1", "Secondary", "1", "1", "1"},
		{"", "", "", "", ""},
		{"G2"},
	}
	d, err := FromRows(header, rows, testSchema(t), WithLogger(zap.New(core)))
	require.NoError(t, err)

	assert.Equal(t, []string{"G1", "G2"}, genes(d.Records()))
	g1, _ := d.Gene("G1")
	assert.Equal(t, "Core", g1.ValueOrMissing(schema.FacetRUSP), "first occurrence wins")
	assert.Equal(t, 1, g1.ProgramCount)
	assert.Equal(t, -1, g1.DeclaredCount, "no count column")

	g2, _ := d.Gene("G2")
	assert.Equal(t, schema.Missing, g2.ValueOrMissing(schema.FacetRUSP))
	assert.Equal(t, 0, g2.ProgramCount)

	assert.Equal(t, 1, logs.FilterMessage("skipping row without gene identifier").Len())
	assert.Equal(t, 1, logs.FilterMessage("skipping duplicate gene").Len())
}

func TestFromRows_WarnsOnMissingOptionalFacetColumn(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	header := []string{"gene_official", "rusp", "scr_a"}
	d, err := FromRows(header, [][]string{{"G1", "Core", "1"}}, testSchema(t), WithLogger(zap.New(core)))
	require.NoError(t, err)

	assert.Equal(t, schema.Missing, d.Records()[0].ValueOrMissing(schema.FacetInheritance))
	assert.GreaterOrEqual(t, logs.FilterMessage("facet column not found; all values treated as missing").Len(), 1)
}

func TestLoad_Errors(t *testing.T) {
	sch := testSchema(t)
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	tests := []struct {
		name string
		path string
		msg  string
	}{
		{"not found", filepath.Join(dir, "missing.csv"), "cannot access gene table"},
		{"empty", write("empty.csv", ""), "no header line found"},
		{"no gene column", write("nogene.csv", "symbol,rusp\nPAH,Core\n"), "required gene column not found"},
		{"no rusp column", write("norusp.csv", "gene_official,inheritance\nPAH,AR\n"), `required column for facet "rusp"`},
		{"duplicate column", write("dup.csv", "gene_official,rusp,RUSP\nPAH,Core,Core\n"), "duplicate column"},
		{"bad quote", write("quote.csv", "gene_official,rusp\nPAH,\"Core\n"), "malformed row"},
		{"unknown format", write("genes.bin", "x"), "unknown input format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []Option{}
			if tt.name == "unknown format" {
				opts = append(opts, WithFormat("bin"))
			}
			d, err := Load(tt.path, sch, opts...)
			assert.Nil(t, d)
			require.Error(t, err)

			var loadErr *DataLoadError
			require.True(t, errors.As(err, &loadErr), "want DataLoadError, got %T", err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoad_NotFoundUnwraps(t *testing.T) {
	_, err := Load("/nonexistent/genes.csv", testSchema(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]string{
		"genes.csv":     FormatCSV,
		"genes.CSV.gz":  FormatCSV,
		"genes.tsv":     FormatTSV,
		"genes.tsv.gz":  FormatTSV,
		"genes.xlsx":    FormatXLSX,
		"genes.duckdb":  FormatDuckDB,
		"genes.db":      FormatDuckDB,
		"genes.parquet": FormatParquet,
		"genelist.txt":  "",
		"-":             "",
	}
	for path, want := range tests {
		assert.Equal(t, want, DetectFormat(path), path)
	}
}

func TestDataLoadError_Format(t *testing.T) {
	err := &DataLoadError{Source: "genes.csv", Line: 3, Column: "rusp", Message: "bad", Err: os.ErrInvalid}
	assert.Equal(t, `load genes.csv: line 3: column "rusp": bad: invalid argument`, err.Error())
	assert.True(t, errors.Is(err, os.ErrInvalid))
}

func TestRecords_ReturnsCopy(t *testing.T) {
	d, err := Load(filepath.Join("testdata", "genes.csv"), testSchema(t))
	require.NoError(t, err)

	recs := d.Records()
	recs[0] = nil
	assert.NotNil(t, d.Records()[0])
}

func TestResolveProgram(t *testing.T) {
	d, err := Load(filepath.Join("testdata", "genes.csv"), testSchema(t))
	require.NoError(t, err)

	name, ok := d.ResolveProgram("BabySeq2")
	require.True(t, ok)
	assert.Equal(t, "Babyseq2", name)

	_, ok = d.ResolveProgram("Screen4Care")
	assert.False(t, ok)
}
