// Package audit records who did what: an audit_log row per mutating
// operation, plus the write-once inventory_exports log.
package audit

import (
	"database/sql"
	"log"
)

// Audit actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionMove   = "move"
	ActionExport = "export"
	ActionLogin  = "login"
	ActionLogout = "logout"
	ActionSetup  = "setup"
)

// Log writes an audit row. Failures are logged server-side and never
// surfaced to the caller; auditing must not break the operation itself.
func Log(db *sql.DB, actor, action, module, recordID, summary string) {
	_, err := db.Exec(`INSERT INTO audit_log (actor, action, module, record_id, summary)
		VALUES (?, ?, ?, ?, ?)`, actor, action, module, recordID, summary)
	if err != nil {
		log.Printf("audit: failed to log %s %s/%s: %v", action, module, recordID, err)
	}
}

// LogExport records an inventory export event in both the write-once
// inventory_exports table and the audit log.
func LogExport(db *sql.DB, principal, format string, recordCount int) {
	_, err := db.Exec(`INSERT INTO inventory_exports (format, principal, record_count)
		VALUES (?, ?, ?)`, format, principal, recordCount)
	if err != nil {
		log.Printf("audit: failed to log %s export: %v", format, err)
	}
	Log(db, principal, ActionExport, "inventory", format, "")
}
