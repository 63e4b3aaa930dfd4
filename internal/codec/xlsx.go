package codec

import (
	"fmt"
	"io"

	"github.com/tealeg/xlsx"

	"github.com/maruel/recordbook/internal/models"
)

// SheetName is the name of the single worksheet written by ToXLSX.
const SheetName = "Records"

// ToXLSX writes records as a spreadsheet with one header row of column
// labels. Numeric values become numeric cells; everything else is text.
func ToXLSX(w io.Writer, records []models.Record, columns []models.Column) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	header := sheet.AddRow()
	for _, c := range columns {
		header.AddCell().SetString(c.Label)
	}
	for _, r := range records {
		row := sheet.AddRow()
		for _, c := range columns {
			cell := row.AddCell()
			switch v := r.Value(c.Key).(type) {
			case float64:
				cell.SetFloat(v)
			case int:
				cell.SetInt(v)
			default:
				cell.SetString(models.FormatValue(v))
			}
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return nil
}
