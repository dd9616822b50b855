package records

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

func readXLSX(path string, opts Options) (*File, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer wb.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%s: workbook has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read sheet %q: %w", path, sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty file: no header row found", path)
	}

	file := &File{Path: path}
	if err := file.setHeader(rows[0]); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	// Trailing empty cells are not returned by GetRows, so short rows are normal.
	for i, row := range rows[1:] {
		file.addRow(i+1, row, false)
	}
	return file, nil
}
