package dataset

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/inodb/genefacet/internal/schema"
)

// loadXLSX reads the gene table from a worksheet. The first non-empty row is
// the header.
func loadXLSX(path string, sch *schema.Schema, cfg *config) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &DataLoadError{Source: path, Message: "open workbook", Err: err}
	}
	defer f.Close()

	sheet := cfg.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &DataLoadError{Source: path, Message: "workbook has no sheets"}
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &DataLoadError{Source: path, Message: fmt.Sprintf("read sheet %q", sheet), Err: err}
	}
	cfg.logger.Debug("read worksheet", zap.String("sheet", sheet), zap.Int("rows", len(rows)))

	headerAt := -1
	for i, cells := range rows {
		if !isEmptyRow(cells) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, &DataLoadError{Source: path, Message: fmt.Sprintf("sheet %q has no header row", sheet)}
	}

	data := rowsWithLines(rows[headerAt+1:], headerAt+2)
	return build(path, rows[headerAt], data, sch, cfg)
}
