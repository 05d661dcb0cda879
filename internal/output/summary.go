package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/genefacet/internal/dataset"
	"github.com/inodb/genefacet/internal/facet"
)

// WriteGeneList writes one gene identifier per line.
func WriteGeneList(w io.Writer, records []*dataset.GeneRecord) error {
	bw := bufio.NewWriter(w)
	for _, r := range records {
		if _, err := bw.WriteString(r.Gene + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteCounts writes grouped buckets as Value, Label, Count and Genes
// columns. Gene lists are comma separated.
func WriteCounts(w io.Writer, buckets []facet.Bucket, withGenes bool) error {
	bw := bufio.NewWriter(w)
	header := []string{"Value", "Label", "Count"}
	if withGenes {
		header = append(header, "Genes")
	}
	if _, err := bw.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return err
	}
	for _, b := range buckets {
		row := []string{b.Value, b.Label, strconv.Itoa(b.Count)}
		if withGenes {
			row = append(row, joinOrDash(b.Genes))
		}
		if _, err := bw.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteMembers writes one row per gene of each bucket, in bucket order.
func WriteMembers(w io.Writer, buckets []facet.Bucket) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("Value\tLabel\tGene\n"); err != nil {
		return err
	}
	for _, b := range buckets {
		for _, gene := range b.Genes {
			if _, err := fmt.Fprintf(bw, "%s\t%s\t%s\n", b.Value, b.Label, gene); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteMatrix writes a gene by program membership grid with 1 and 0 cells.
func WriteMatrix(w io.Writer, m facet.Matrix) error {
	bw := bufio.NewWriter(w)
	header := append([]string{"Gene"}, m.Programs...)
	if _, err := bw.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return err
	}
	for i, gene := range m.Genes {
		row := make([]string, 0, len(m.Programs)+1)
		row = append(row, gene)
		for _, in := range m.Cells[i] {
			if in {
				row = append(row, "1")
			} else {
				row = append(row, "0")
			}
		}
		if _, err := bw.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteSummary writes program-count statistics as key/value lines.
func WriteSummary(w io.Writer, s facet.Summary) error {
	bw := bufio.NewWriter(w)
	rows := []struct {
		name  string
		value string
	}{
		{"genes", strconv.Itoa(s.Genes)},
		{"mean_programs", formatFloat(s.Mean)},
		{"median_programs", formatFloat(s.Median)},
		{"min_programs", formatFloat(s.Min)},
		{"q25_programs", formatFloat(s.Q25)},
		{"q75_programs", formatFloat(s.Q75)},
		{"max_programs", formatFloat(s.Max)},
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", r.name, r.value); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ",")
}
