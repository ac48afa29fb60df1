package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"catrack/internal/models"
)

// Detail column widths in mm, fixed constants tuned to the column set
// (A3 landscape printable width is ~400mm with the default margins).
var pdfWidths = []float64{28, 28, 40, 22, 16, 16, 22, 18, 20, 28, 24, 22, 28, 18, 20, 20, 26}

// WritePDF renders the landscape report: a summary table of grouped
// counts followed by the paginated detail table.
func WritePDF(w io.Writer, items []models.Item, generatedBy string) error {
	pdf := fpdf.New("L", "mm", "A3", "")
	// Core fonts are cp1252; translate all user-supplied text.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 9, "Inventory Report")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Generated %s by %s — %d items",
		time.Now().Format("2006-01-02 15:04"), generatedBy, len(items))))
	pdf.Ln(10)

	// Summary table
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 7, "Summary")
	pdf.Ln(8)
	summaryWidths := []float64{80, 36, 24}
	writeHeaderRow(pdf, []string{"Item Name", "Status", "Count"}, summaryWidths)
	pdf.SetFont("Helvetica", "", 9)
	for _, row := range Summarize(items) {
		cells := []string{row.Name, StatusLabel(row.Status), fmt.Sprintf("%d", row.Count)}
		for i, c := range cells {
			pdf.CellFormat(summaryWidths[i], 6, tr(c), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(8)

	// Detail table
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 7, "Inventory Detail")
	pdf.Ln(8)
	writeHeaderRow(pdf, Headers, pdfWidths)
	pdf.SetFont("Helvetica", "", 7)
	for _, it := range items {
		if pdf.GetY() > 270 {
			pdf.AddPage()
			writeHeaderRow(pdf, Headers, pdfWidths)
			pdf.SetFont("Helvetica", "", 7)
		}
		for i, c := range pdfCells(it) {
			pdf.CellFormat(pdfWidths[i], 5.5, tr(c), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}

func writeHeaderRow(pdf *fpdf.Fpdf, headers []string, widths []float64) {
	pdf.SetFont("Helvetica", "B", 7.5)
	pdf.SetFillColor(47, 84, 150)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
}

func pdfCells(it models.Item) []string {
	cost := ""
	if it.Cost != nil {
		cost = fmt.Sprintf("R %.2f", *it.Cost)
	}
	captured := it.CapturedAt
	if len(captured) > 16 {
		captured = captured[:16]
	}
	return []string{
		it.AssetNumber, it.SerialNumber, trunc(it.Name, 34), it.Brand, it.Color, it.Capacity,
		it.Category, cost, StatusLabel(it.Status), trunc(it.CapturedBy, 24), trunc(it.RoomName, 20),
		trunc(it.CampusName, 18), trunc(it.RoomStaffName, 24), it.RoomStaffNumber,
		it.ProcuredDate, it.AllocatedDate, captured,
	}
}

// trunc shortens to n runes so multi-byte characters never get split.
func trunc(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
