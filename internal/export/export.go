// Package export renders a filtered inventory snapshot as a
// spreadsheet or a PDF document. Both formats share the same fixed,
// denormalized column projection and a summary aggregation of item
// counts grouped by name and status.
package export

import (
	"sort"

	"catrack/internal/models"
)

// Headers is the fixed detail column set, in output order.
var Headers = []string{
	"Asset Number", "Serial Number", "Name", "Brand", "Color", "Capacity",
	"Category", "Cost", "Status", "Captured By", "Room", "Campus",
	"Room Staff", "Staff Number", "Procured", "Allocated", "Captured",
}

// SummaryRow is one line of the grouped (name, status) count table.
type SummaryRow struct {
	Name   string
	Status string
	Count  int
}

// StatusLabel maps a stored status value to its display form.
func StatusLabel(status string) string {
	switch status {
	case "active":
		return "Active"
	case "inactive":
		return "Inactive"
	case "needs_repair":
		return "Needs Repair"
	case "stolen":
		return "Stolen"
	case "disposed":
		return "Disposed"
	}
	return status
}

// Summarize groups items by (name, status) and returns counts ordered
// by name, then status. The counts always sum to len(items).
func Summarize(items []models.Item) []SummaryRow {
	type key struct{ name, status string }
	counts := map[key]int{}
	for _, it := range items {
		counts[key{it.Name, it.Status}]++
	}

	rows := make([]SummaryRow, 0, len(counts))
	for k, n := range counts {
		rows = append(rows, SummaryRow{Name: k.name, Status: k.status, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].Status < rows[j].Status
	})
	return rows
}

// detailCells renders one item as its 17 string/typed cells. Cost is
// returned separately so the spreadsheet can keep it numeric.
func detailCells(it models.Item) []interface{} {
	cost := interface{}("")
	if it.Cost != nil {
		cost = *it.Cost
	}
	return []interface{}{
		it.AssetNumber, it.SerialNumber, it.Name, it.Brand, it.Color, it.Capacity,
		it.Category, cost, StatusLabel(it.Status), it.CapturedBy, it.RoomName, it.CampusName,
		it.RoomStaffName, it.RoomStaffNumber, it.ProcuredDate, it.AllocatedDate, it.CapturedAt,
	}
}
