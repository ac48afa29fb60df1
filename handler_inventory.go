package main

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"catrack/internal/audit"
	"catrack/internal/export"
	"catrack/internal/filters"
	"catrack/internal/scope"
	"catrack/internal/validation"
)

// handleListItems is the filtered inventory listing. Bad filter values
// degrade to warnings in the response envelope; the scope restriction
// is applied before any filter.
func handleListItems(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	if p == nil {
		unauthorized(w, r)
		return
	}

	ids, err := scope.CampusIDs(db, p)
	if err != nil {
		jsonErr(w, "Failed to list items", 500)
		return
	}

	f, warnings := filters.Parse(r.URL.Query())
	items, err := filters.Query(db, f, ids)
	if err != nil {
		jsonErr(w, "Failed to list items", 500)
		return
	}

	total := len(items)
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 500 {
		limit = 100
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	jsonRespWarn(w, items[start:end], warnings, total, page, limit)
}

// handleExportItems renders the current filtered view as a downloadable
// file. An empty result set returns a JSON message instead of a file.
func handleExportItems(w http.ResponseWriter, r *http.Request, format string) {
	p := requireAdmin(w, r)
	if p == nil {
		return
	}

	valid := false
	for _, f := range validation.ValidExportFormats {
		if f == format {
			valid = true
		}
	}
	if !valid {
		jsonErr(w, "Unsupported export format, use xlsx or pdf", 400)
		return
	}

	ids, err := scope.CampusIDs(db, p)
	if err != nil {
		jsonErr(w, "Failed to export items", 500)
		return
	}
	f, _ := filters.Parse(r.URL.Query())
	items, err := filters.Query(db, f, ids)
	if err != nil {
		jsonErr(w, "Failed to export items", 500)
		return
	}

	if len(items) == 0 {
		jsonResp(w, map[string]string{"message": "No items matched the selected filters; nothing to export"})
		return
	}

	filename := fmt.Sprintf("inventory_%s.%s", time.Now().Format("20060102_150405"), format)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	switch format {
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		err = export.WriteXLSX(w, items)
	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
		err = export.WritePDF(w, items, p.Name)
	}
	if err != nil {
		// Headers are already out; all we can do is log.
		log.Printf("export: render failed: %v", err)
		return
	}

	audit.LogExport(db, p.Tag(), format, len(items))
}

// handleListExports returns the export log, newest first.
func handleListExports(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	rows, err := db.Query(`SELECT id, format, principal, record_count, exported_at
		FROM inventory_exports ORDER BY exported_at DESC, id DESC LIMIT 200`)
	if err != nil {
		jsonErr(w, "Failed to list exports", 500)
		return
	}
	defer rows.Close()

	exports := []InventoryExport{}
	for rows.Next() {
		var e InventoryExport
		if err := rows.Scan(&e.ID, &e.Format, &e.Principal, &e.RecordCount, &e.ExportedAt); err != nil {
			jsonErr(w, "Failed to list exports", 500)
			return
		}
		exports = append(exports, e)
	}

	jsonResp(w, exports)
}
