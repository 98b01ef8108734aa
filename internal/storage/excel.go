package storage

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SaveExcel mirrors the master table into an Excel workbook so the billing
// team can open it without import dialogs.
func (t *MasterTable) SaveExcel(path string) error {
	workbook := excelize.NewFile()
	defer workbook.Close()

	sheet := workbook.GetSheetName(0)
	for column, name := range MasterColumns {
		cell, err := excelize.CoordinatesToCellName(column+1, 1)
		if err != nil {
			return fmt.Errorf("addressing header cell: %w", err)
		}
		if err := workbook.SetCellValue(sheet, cell, name); err != nil {
			return fmt.Errorf("writing header cell: %w", err)
		}
	}
	for position, row := range t.rows {
		for column, name := range MasterColumns {
			cell, err := excelize.CoordinatesToCellName(column+1, position+2)
			if err != nil {
				return fmt.Errorf("addressing cell: %w", err)
			}
			if err := workbook.SetCellValue(sheet, cell, row[name]); err != nil {
				return fmt.Errorf("writing cell: %w", err)
			}
		}
	}

	if err := workbook.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}
