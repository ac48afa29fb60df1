package main

import (
	"net/http"

	"catrack/internal/scope"
)

// handleDashboard returns role-scoped headline counts.
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	if p == nil {
		unauthorized(w, r)
		return
	}

	ids, err := scope.CampusIDs(db, p)
	if err != nil {
		jsonErr(w, "Failed to load dashboard", 500)
		return
	}
	campusFilter, campusArgs := scope.CampusFilterSQL(ids, "c.id")
	roomFilter, roomArgs := scope.CampusFilterSQL(ids, "r.campus_id")

	var d DashboardData
	db.QueryRow("SELECT COUNT(*) FROM campuses c WHERE 1=1"+campusFilter, campusArgs...).
		Scan(&d.TotalCampuses)
	db.QueryRow("SELECT COUNT(*) FROM rooms r WHERE r.is_active = 1"+roomFilter, roomArgs...).
		Scan(&d.TotalRooms)

	itemBase := `SELECT COUNT(*) FROM items i JOIN rooms r ON r.id = i.room_id WHERE 1=1` + roomFilter
	db.QueryRow(itemBase, roomArgs...).Scan(&d.TotalItems)
	db.QueryRow(itemBase+" AND i.status = 'needs_repair'", roomArgs...).Scan(&d.NeedsRepair)

	switch p.Role {
	case scope.RoleCapturer:
		db.QueryRow("SELECT COUNT(*) FROM items WHERE data_capturer_id = ?", p.ID).
			Scan(&d.CapturedByMe)
	case scope.RoleSuperAdmin:
		db.QueryRow("SELECT COUNT(*) FROM data_capturers").Scan(&d.TotalCapturers)
	case scope.RoleAdmin:
		db.QueryRow(`SELECT COUNT(DISTINCT dc.id) FROM data_capturers dc
			WHERE dc.admin_id = ? OR EXISTS (
				SELECT 1 FROM capturer_campuses cc
				JOIN admin_campuses ac ON ac.campus_id = cc.campus_id
				WHERE cc.capturer_id = dc.id AND ac.admin_id = ?)`, p.ID, p.ID).
			Scan(&d.TotalCapturers)
	}

	jsonResp(w, d)
}
