// Package dataset loads the gene table into an immutable, ordered in-memory
// Dataset. Column layout comes from a schema.Schema; program membership
// columns are discovered from the header.
package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/genefacet/internal/schema"
)

// Dataset is a read-only, ordered gene table.
type Dataset struct {
	source   string
	schema   *schema.Schema
	records  []*GeneRecord
	byGene   map[string]*GeneRecord
	programs []string
	domains  map[string][]string
	known    map[string]map[string]bool
}

// Source returns the path or name the dataset was loaded from.
func (d *Dataset) Source() string { return d.source }

// Schema returns the schema the dataset was loaded with.
func (d *Dataset) Schema() *schema.Schema { return d.schema }

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// Records returns the records in source order. The slice is a copy; the
// records themselves are shared and must not be modified.
func (d *Dataset) Records() []*GeneRecord {
	out := make([]*GeneRecord, len(d.records))
	copy(out, d.records)
	return out
}

// Gene looks up a record by gene identifier.
func (d *Dataset) Gene(id string) (*GeneRecord, bool) {
	r, ok := d.byGene[id]
	return r, ok
}

// ProgramNames returns the screening program names in header order.
func (d *Dataset) ProgramNames() []string {
	out := make([]string, len(d.programs))
	copy(out, d.programs)
	return out
}

// ResolveProgram maps a user-supplied program name to the dataset's program
// name, case-insensitively.
func (d *Dataset) ResolveProgram(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, p := range d.programs {
		if strings.EqualFold(p, name) {
			return p, true
		}
	}
	return "", false
}

// Domain returns the selectable values of a facet: declared options in schema
// order, then values observed in the data in first-seen order, then
// schema.Missing. It returns nil for an unknown facet.
func (d *Dataset) Domain(facetKey string) []string {
	dom, ok := d.domains[facetKey]
	if !ok {
		return nil
	}
	out := make([]string, len(dom))
	copy(out, dom)
	return out
}

// Known reports whether value belongs to the domain of a facet.
func (d *Dataset) Known(facetKey, value string) bool {
	return d.known[facetKey][value]
}

// config holds load options.
type config struct {
	logger *zap.Logger
	sheet  string
	table  string
	format string
}

// Option configures loading.
type Option func(*config)

// WithLogger sets the logger for load warnings.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithSheet selects the worksheet of an XLSX source (default: first sheet).
func WithSheet(name string) Option {
	return func(c *config) { c.sheet = name }
}

// WithTable selects the table of a DuckDB source (default: "genes").
func WithTable(name string) Option {
	return func(c *config) { c.table = name }
}

// WithFormat overrides file type detection ("csv", "tsv", "xlsx", "duckdb", "parquet").
func WithFormat(format string) Option {
	return func(c *config) { c.format = strings.ToLower(format) }
}

func newConfig(opts []Option) *config {
	c := &config{logger: zap.NewNop(), table: DefaultTable}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromRows builds a Dataset from a header and data rows. All sources funnel
// through here. Short rows are padded with blanks; extra cells are ignored.
func FromRows(header []string, rows [][]string, sch *schema.Schema, opts ...Option) (*Dataset, error) {
	return build("rows", header, rowsWithLines(rows, 2), sch, newConfig(opts))
}

// row is a data row with its source line number.
type row struct {
	line  int
	cells []string
}

func rowsWithLines(rows [][]string, first int) []row {
	out := make([]row, len(rows))
	for i, cells := range rows {
		out[i] = row{line: first + i, cells: cells}
	}
	return out
}

// columnIndices maps schema columns to header positions; -1 is absent.
type columnIndices struct {
	gene     int
	count    int
	facets   []int
	programs []programColumn
}

type programColumn struct {
	name  string
	index int
}

func indexColumns(source string, header []string, sch *schema.Schema, log *zap.Logger) (columnIndices, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		key := schema.ColumnKey(h)
		if key == "" {
			continue
		}
		if _, dup := pos[key]; dup {
			return columnIndices{}, &DataLoadError{
				Source:  source,
				Line:    1,
				Column:  h,
				Message: "duplicate column in header",
			}
		}
		pos[key] = i
	}
	lookup := func(col string) int {
		if i, ok := pos[schema.ColumnKey(col)]; ok {
			return i
		}
		return -1
	}

	idx := columnIndices{
		gene:   lookup(sch.GeneColumn),
		count:  -1,
		facets: make([]int, len(sch.Facets)),
	}
	if idx.gene < 0 {
		return idx, &DataLoadError{
			Source:  source,
			Line:    1,
			Column:  sch.GeneColumn,
			Message: "required gene column not found in header",
		}
	}
	if sch.Programs.CountColumn != "" {
		idx.count = lookup(sch.Programs.CountColumn)
	}

	for i, f := range sch.Facets {
		idx.facets[i] = lookup(f.Column)
		if idx.facets[i] >= 0 {
			continue
		}
		if f.Required {
			return idx, &DataLoadError{
				Source:  source,
				Line:    1,
				Column:  f.Column,
				Message: fmt.Sprintf("required column for facet %q not found in header", f.Key),
			}
		}
		log.Warn("facet column not found; all values treated as missing",
			zap.String("facet", f.Key), zap.String("column", f.Column))
	}

	seen := make(map[string]bool)
	for i, h := range header {
		if !sch.IsProgramColumn(h) {
			continue
		}
		name := sch.ProgramName(h)
		if seen[name] {
			return idx, &DataLoadError{
				Source:  source,
				Line:    1,
				Column:  h,
				Message: fmt.Sprintf("program %q appears in more than one column", name),
			}
		}
		seen[name] = true
		idx.programs = append(idx.programs, programColumn{name: name, index: i})
	}
	if len(idx.programs) == 0 {
		log.Warn("no program columns found", zap.String("prefix", sch.Programs.Prefix))
	}

	return idx, nil
}

func build(source string, header []string, rows []row, sch *schema.Schema, cfg *config) (*Dataset, error) {
	if sch == nil {
		return nil, &DataLoadError{Source: source, Message: "no schema"}
	}
	if len(header) == 0 {
		return nil, &DataLoadError{Source: source, Line: 1, Message: "no header line found"}
	}
	log := cfg.logger

	idx, err := indexColumns(source, header, sch, log)
	if err != nil {
		return nil, err
	}

	d := &Dataset{
		source:  source,
		schema:  sch,
		records: make([]*GeneRecord, 0, len(rows)),
		byGene:  make(map[string]*GeneRecord, len(rows)),
		domains: make(map[string][]string, len(sch.Facets)),
		known:   make(map[string]map[string]bool, len(sch.Facets)),
	}
	for _, p := range idx.programs {
		d.programs = append(d.programs, p.name)
	}

	cell := func(cells []string, i int) string {
		if i < 0 || i >= len(cells) {
			return ""
		}
		return cells[i]
	}

	var mismatched int
	for _, rw := range rows {
		if isEmptyRow(rw.cells) {
			continue
		}
		gene := strings.TrimSpace(cell(rw.cells, idx.gene))
		if schema.IsBlank(gene) {
			log.Warn("skipping row without gene identifier", zap.Int("line", rw.line))
			continue
		}
		if prev, dup := d.byGene[gene]; dup {
			log.Warn("skipping duplicate gene",
				zap.String("gene", gene),
				zap.Int("line", rw.line),
				zap.Int("first_line", prev.Line))
			continue
		}

		rec := &GeneRecord{
			Gene:          gene,
			Line:          rw.line,
			DeclaredCount: -1,
			values:        make(map[string]string, len(sch.Facets)),
			programs:      make(map[string]bool),
		}
		for i, f := range sch.Facets {
			if v, ok := f.Normalize(cell(rw.cells, idx.facets[i])); ok {
				rec.values[f.Key] = v
			}
		}
		for _, p := range idx.programs {
			if schema.ParseFlag(cell(rw.cells, p.index)) {
				rec.programs[p.name] = true
				rec.ProgramCount++
			}
		}
		if idx.count >= 0 {
			if c, ok := schema.NormalizeCode(cell(rw.cells, idx.count)); ok {
				rec.DeclaredCount, _ = strconv.Atoi(c)
				if rec.DeclaredCount != rec.ProgramCount {
					mismatched++
					log.Debug("declared program count differs from flags",
						zap.String("gene", gene),
						zap.Int("declared", rec.DeclaredCount),
						zap.Int("derived", rec.ProgramCount))
				}
			}
		}

		d.records = append(d.records, rec)
		d.byGene[gene] = rec
	}
	if mismatched > 0 {
		log.Warn("declared program counts differ from program flags; using flags",
			zap.String("column", sch.Programs.CountColumn),
			zap.Int("genes", mismatched))
	}

	d.buildDomains()

	log.Debug("loaded gene table",
		zap.String("source", source),
		zap.Int("genes", len(d.records)),
		zap.Int("programs", len(d.programs)))

	return d, nil
}

func (d *Dataset) buildDomains() {
	for _, f := range d.schema.Facets {
		known := make(map[string]bool, len(f.Options)+1)
		var dom []string
		add := func(v string) {
			if !known[v] {
				known[v] = true
				dom = append(dom, v)
			}
		}
		for _, o := range f.Options {
			add(o.Value)
		}
		for _, r := range d.records {
			if v, ok := r.values[f.Key]; ok {
				add(v)
			}
		}
		add(schema.Missing)
		d.domains[f.Key] = dom
		d.known[f.Key] = known
	}
}

func isEmptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// DataLoadError reports an unreadable or malformed gene table.
type DataLoadError struct {
	Source  string
	Line    int    // 0 when not tied to a line
	Column  string // empty when not tied to a column
	Message string
	Err     error
}

func (e *DataLoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "load %s", e.Source)
	if e.Line > 0 {
		fmt.Fprintf(&b, ": line %d", e.Line)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ": column %q", e.Column)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}
