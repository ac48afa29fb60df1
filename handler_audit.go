package main

import (
	"net/http"
	"strconv"
)

// handleListAudit returns the newest audit entries, optionally filtered
// by module.
func handleListAudit(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	query := `SELECT id, actor, action, module, record_id, summary, created_at FROM audit_log`
	args := []interface{}{}
	if m := r.URL.Query().Get("module"); m != "" {
		query += " WHERE module = ?"
		args = append(args, m)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 1000 {
		limit = 200
	}
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		jsonErr(w, "Failed to list audit entries", 500)
		return
	}
	defer rows.Close()

	entries := []AuditEntry{}
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Module, &e.RecordID, &e.Summary, &e.CreatedAt); err != nil {
			jsonErr(w, "Failed to list audit entries", 500)
			return
		}
		entries = append(entries, e)
	}

	jsonResp(w, entries)
}
