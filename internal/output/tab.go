// Package output provides tab-delimited formatters for filtered gene sets.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/genefacet/internal/dataset"
	"github.com/inodb/genefacet/internal/schema"
)

// TabWriter writes gene records in tab-delimited format, one row per gene
// with a column per facet.
type TabWriter struct {
	w        *bufio.Writer
	facets   []schema.Facet
	programs []string
	labels   bool
}

// NewTabWriter creates a gene table writer for the given schema and program
// columns.
func NewTabWriter(w io.Writer, sch *schema.Schema, programs []string) *TabWriter {
	return &TabWriter{
		w:        bufio.NewWriter(w),
		facets:   sch.Facets,
		programs: programs,
		labels:   true,
	}
}

// SetRawValues writes stored values instead of display labels.
func (tw *TabWriter) SetRawValues(raw bool) {
	tw.labels = !raw
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	cols := make([]string, 0, len(tw.facets)+3)
	cols = append(cols, "Gene")
	for _, f := range tw.facets {
		if tw.labels {
			cols = append(cols, f.DisplayTitle())
		} else {
			cols = append(cols, f.Key)
		}
	}
	cols = append(cols, "Program_count", "Programs")
	return tw.writeRow(cols)
}

// Write writes a single gene record.
func (tw *TabWriter) Write(r *dataset.GeneRecord) error {
	values := make([]string, 0, len(tw.facets)+3)
	values = append(values, r.Gene)
	for _, f := range tw.facets {
		v := r.ValueOrMissing(f.Key)
		if tw.labels {
			v = f.Label(v)
		}
		values = append(values, v)
	}

	programs := "-"
	if in := r.Programs(tw.programs); len(in) > 0 {
		programs = strings.Join(in, ",")
	}
	values = append(values, strconv.Itoa(r.ProgramCount), programs)

	return tw.writeRow(values)
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

func (tw *TabWriter) writeRow(values []string) error {
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}
