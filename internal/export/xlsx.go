package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"catrack/internal/models"
)

// Per-column widths for the Inventory sheet, tuned to the fixed column
// set rather than computed from content.
var colWidths = []float64{16, 16, 24, 14, 10, 10, 14, 12, 12, 18, 16, 14, 18, 12, 12, 12, 19}

// WriteXLSX renders the workbook: a "Summary" sheet with grouped counts
// and an "Inventory" sheet with the full projection.
func WriteXLSX(w io.Writer, items []models.Item) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#2F5496"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	randFmt := `"R" #,##0.00`
	costStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &randFmt})
	if err != nil {
		return fmt.Errorf("cost style: %w", err)
	}
	dateFmt := "yyyy-mm-dd"
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	if err != nil {
		return fmt.Errorf("date style: %w", err)
	}

	// Summary sheet
	const summary = "Summary"
	idx, err := f.NewSheet(summary)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	for i, h := range []string{"Item Name", "Status", "Count"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(summary, cell, h)
		f.SetCellStyle(summary, cell, cell, headerStyle)
	}
	for r, row := range Summarize(items) {
		f.SetCellValue(summary, fmt.Sprintf("A%d", r+2), row.Name)
		f.SetCellValue(summary, fmt.Sprintf("B%d", r+2), StatusLabel(row.Status))
		f.SetCellValue(summary, fmt.Sprintf("C%d", r+2), row.Count)
	}
	f.SetColWidth(summary, "A", "A", 28)
	f.SetColWidth(summary, "B", "B", 14)
	f.SetColWidth(summary, "C", "C", 10)
	freezeHeader(f, summary)

	// Inventory sheet
	const inv = "Inventory"
	if _, err := f.NewSheet(inv); err != nil {
		return err
	}
	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(inv, cell, h)
		f.SetCellStyle(inv, cell, cell, headerStyle)
	}
	for r, it := range items {
		for c, v := range detailCells(it) {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(inv, cell, v)
		}
	}
	for i, width := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(inv, col, col, width)
	}
	if len(items) > 0 {
		last := len(items) + 1
		f.SetCellStyle(inv, "H2", fmt.Sprintf("H%d", last), costStyle)
		f.SetCellStyle(inv, "O2", fmt.Sprintf("P%d", last), dateStyle)
	}
	freezeHeader(f, inv)

	f.DeleteSheet("Sheet1")
	return f.Write(w)
}

func freezeHeader(f *excelize.File, sheet string) {
	f.SetPanes(sheet, &excelize.Panes{
		Freeze: true, Split: false, XSplit: 0, YSplit: 1,
		TopLeftCell: "A2", ActivePane: "bottomLeft",
	})
}
