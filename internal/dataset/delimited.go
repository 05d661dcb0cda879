package dataset

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/inodb/genefacet/internal/schema"
)

// loadDelimited reads a CSV or TSV gene table, plain or gzipped. An empty
// format sniffs the delimiter from the header line.
func loadDelimited(path, format string, sch *schema.Schema, cfg *config) (*Dataset, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, &DataLoadError{Source: path, Message: "open gene table", Err: err}
		}
		defer file.Close()
		r = file
	}

	br := bufio.NewReader(r)

	// Check for gzip magic number (0x1f, 0x8b)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, &DataLoadError{Source: path, Message: "create gzip reader", Err: err}
		}
		defer gz.Close()
		br = bufio.NewReader(gz)
	}

	return readDelimited(path, br, format, sch, cfg)
}

// ReadDelimited builds a Dataset from CSV or TSV text. An empty format sniffs
// the delimiter from the header line.
func ReadDelimited(r io.Reader, format string, sch *schema.Schema, opts ...Option) (*Dataset, error) {
	return readDelimited("stream", bufio.NewReader(r), format, sch, newConfig(opts))
}

func readDelimited(source string, br *bufio.Reader, format string, sch *schema.Schema, cfg *config) (*Dataset, error) {
	comma := ','
	switch format {
	case FormatTSV:
		comma = '\t'
	case FormatCSV:
	default:
		comma = sniffDelimiter(br)
	}

	reader := csv.NewReader(br)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &DataLoadError{Source: source, Line: 1, Message: "no header line found"}
		}
		return nil, loadErrorFromCSV(source, err)
	}

	var rows []row
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, loadErrorFromCSV(source, err)
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, row{line: line, cells: cells})
	}

	return build(source, header, rows, sch, cfg)
}

// sniffDelimiter picks tab or comma by counting them in the first line.
func sniffDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(4096)
	first := string(peek)
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	if strings.Count(first, "\t") > strings.Count(first, ",") {
		return '\t'
	}
	return ','
}

func loadErrorFromCSV(source string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &DataLoadError{
			Source:  source,
			Line:    pe.Line,
			Message: fmt.Sprintf("malformed row at column %d", pe.Column),
			Err:     pe.Err,
		}
	}
	return &DataLoadError{Source: source, Message: "read gene table", Err: err}
}
