package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXStrategy flattens spreadsheets to one tab-separated line per row,
// with a heading line per sheet.
type XLSXStrategy struct{}

// NewXLSXStrategy creates the spreadsheet strategy.
func NewXLSXStrategy() *XLSXStrategy { return &XLSXStrategy{} }

func (s *XLSXStrategy) Name() string { return "xlsx" }

func (s *XLSXStrategy) Accepts(filename string) bool {
	return hasExtension(filename, ".xlsx", ".xlsm")
}

func (s *XLSXStrategy) Extract(ctx context.Context, path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("sheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		sb.WriteString(sheet)
		sb.WriteByte('\n')
		for _, row := range rows {
			line := strings.Join(row, "\t")
			if strings.TrimSpace(line) == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
