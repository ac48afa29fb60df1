package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"catrack/internal/models"
)

func sampleItems() []models.Item {
	cost := 4999.99
	return []models.Item{
		{AssetNumber: "DUT0001", Name: "Projector", Status: "active", Cost: &cost,
			RoomName: "Lab 1", CampusName: "Ritson", CapturedAt: "2025-03-01 10:00:00"},
		{AssetNumber: "DUT0002", Name: "Projector", Status: "active",
			RoomName: "Lab 1", CampusName: "Ritson", CapturedAt: "2025-03-01 10:05:00"},
		{AssetNumber: "DUT0003", Name: "Projector", Status: "needs_repair",
			RoomName: "Lab 2", CampusName: "Ritson", CapturedAt: "2025-03-02 09:00:00"},
		{AssetNumber: "DUT0004", Name: "Desk", Status: "active",
			RoomName: "Office 9", CampusName: "City", CapturedAt: "2025-03-03 14:00:00"},
	}
}

func TestSummarize_GroupsAndSums(t *testing.T) {
	rows := Summarize(sampleItems())

	if len(rows) != 3 {
		t.Fatalf("Expected 3 summary groups, got %d", len(rows))
	}
	// Ordered by name, then status.
	if rows[0].Name != "Desk" || rows[1].Name != "Projector" || rows[2].Name != "Projector" {
		t.Errorf("Unexpected group order: %+v", rows)
	}
	if rows[1].Status != "active" || rows[1].Count != 2 {
		t.Errorf("Expected 2 active projectors, got %+v", rows[1])
	}

	total := 0
	for _, r := range rows {
		total += r.Count
	}
	if total != 4 {
		t.Errorf("Summary counts must sum to item count, got %d", total)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if rows := Summarize(nil); len(rows) != 0 {
		t.Errorf("Expected no groups, got %d", len(rows))
	}
}

func TestStatusLabel(t *testing.T) {
	cases := map[string]string{
		"active":       "Active",
		"needs_repair": "Needs Repair",
		"disposed":     "Disposed",
		"weird":        "weird",
	}
	for in, want := range cases {
		if got := StatusLabel(in); got != want {
			t.Errorf("StatusLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteXLSX_Layout(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleItems()); err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Output is not a valid workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Summary" || sheets[1] != "Inventory" {
		t.Errorf("Unexpected sheets %v", sheets)
	}

	rows, err := f.GetRows("Inventory")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("Expected header + 4 rows, got %d", len(rows))
	}
	if len(rows[0]) != len(Headers) {
		t.Errorf("Expected %d header cells, got %d", len(Headers), len(rows[0]))
	}
	if rows[1][0] != "DUT0001" || rows[1][8] != "Active" {
		t.Errorf("Unexpected first detail row: %v", rows[1])
	}

	// Cost stays numeric with the rand format applied.
	cell, err := f.GetCellValue("Inventory", "H2")
	if err != nil || cell == "" {
		t.Errorf("Expected a cost in H2, got %q (%v)", cell, err)
	}
}

func TestWriteXLSX_NoItems(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, nil); err != nil {
		t.Fatalf("WriteXLSX with no items failed: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Output is not a valid workbook: %v", err)
	}
	f.Close()
}

func TestWritePDF_ProducesDocument(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, sampleItems(), "Test Admin"); err != nil {
		t.Fatalf("WritePDF failed: %v", err)
	}
	out := buf.Bytes()
	if len(out) < 4 || string(out[:4]) != "%PDF" {
		t.Error("Expected PDF magic bytes")
	}
}

func TestWritePDF_ManyRowsPaginate(t *testing.T) {
	items := make([]models.Item, 0, 300)
	for i := 0; i < 300; i++ {
		items = append(items, models.Item{
			AssetNumber: "DUT" + string(rune('A'+i%26)), Name: "Bulk Item", Status: "active",
			RoomName: "Lab 1", CampusName: "Ritson",
		})
	}

	var buf bytes.Buffer
	if err := WritePDF(&buf, items, "Test Admin"); err != nil {
		t.Fatalf("WritePDF failed on a large set: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("Expected non-empty output")
	}
}

func TestTrunc_RuneSafe(t *testing.T) {
	if got := trunc("short", 10); got != "short" {
		t.Errorf("Expected %q unchanged, got %q", "short", got)
	}
	// Multi-byte characters must never be split mid-rune.
	got := trunc("Büromöbel für Hörsäle", 10)
	if len([]rune(got)) != 10 {
		t.Errorf("Expected 10 runes, got %d in %q", len([]rune(got)), got)
	}
	if got != "Büromöbel…" {
		t.Errorf("Unexpected truncation %q", got)
	}
}

func TestWritePDF_NonASCIIItems(t *testing.T) {
	items := sampleItems()
	items[0].Name = "Hörsaal-Projektor ÄÖÜ"
	items[0].CapturedBy = "José Müller"

	var buf bytes.Buffer
	if err := WritePDF(&buf, items, "José Müller"); err != nil {
		t.Fatalf("WritePDF failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Error("Output is not a PDF document")
	}
}
