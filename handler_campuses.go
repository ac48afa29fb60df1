package main

import (
	"net/http"
	"strconv"

	"catrack/internal/audit"
	"catrack/internal/response"
	"catrack/internal/scope"
	"catrack/internal/validation"
)

type CampusRequest struct {
	Name                string `json:"name"`
	RoomCreationEnabled *bool  `json:"room_creation_enabled"`
}

// handleListCampuses returns the campuses visible to the caller, with
// active room counts.
func handleListCampuses(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	if p == nil {
		unauthorized(w, r)
		return
	}

	ids, err := scope.CampusIDs(db, p)
	if err != nil {
		jsonErr(w, "Failed to list campuses", 500)
		return
	}
	filter, args := scope.CampusFilterSQL(ids, "c.id")

	rows, err := db.Query(`SELECT c.id, c.name, c.room_creation_enabled,
		(SELECT COUNT(*) FROM rooms r WHERE r.campus_id = c.id AND r.is_active = 1)
		FROM campuses c WHERE 1=1`+filter+` ORDER BY c.name`, args...)
	if err != nil {
		jsonErr(w, "Failed to list campuses", 500)
		return
	}
	defer rows.Close()

	campuses := []Campus{}
	for rows.Next() {
		var c Campus
		var enabled int
		if err := rows.Scan(&c.ID, &c.Name, &enabled, &c.RoomCount); err != nil {
			jsonErr(w, "Failed to list campuses", 500)
			return
		}
		c.RoomCreationEnabled = enabled == 1
		campuses = append(campuses, c)
	}

	jsonResp(w, campuses)
}

func handleCreateCampus(w http.ResponseWriter, r *http.Request) {
	p := requireSuperAdmin(w, r)
	if p == nil {
		return
	}

	var req CampusRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", req.Name)
	validation.ValidateMaxLength(ve, "name", req.Name, 120)
	if ve.HasErrors() {
		response.FieldErrs(w, ve)
		return
	}

	res, err := db.Exec("INSERT INTO campuses (name) VALUES (?)", req.Name)
	if err != nil {
		jsonErr(w, "A campus with that name already exists", 409)
		return
	}
	id, _ := res.LastInsertId()

	audit.Log(db, p.Tag(), audit.ActionCreate, "campuses", strconv.FormatInt(id, 10), "created campus "+req.Name)
	broadcast("campus", "create", id)

	w.WriteHeader(201)
	jsonResp(w, map[string]interface{}{"id": id})
}

// handleUpdateCampus renames a campus and/or toggles its
// room_creation_enabled flag.
func handleUpdateCampus(w http.ResponseWriter, r *http.Request, idStr string) {
	p := requireSuperAdmin(w, r)
	if p == nil {
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		jsonErr(w, "Invalid campus id", 400)
		return
	}

	var req CampusRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}

	var name string
	var enabled int
	if err := db.QueryRow("SELECT name, room_creation_enabled FROM campuses WHERE id = ?", id).Scan(&name, &enabled); err != nil {
		jsonErr(w, "Campus not found", 404)
		return
	}
	if req.Name == "" {
		req.Name = name
	}
	if req.RoomCreationEnabled != nil {
		enabled = 0
		if *req.RoomCreationEnabled {
			enabled = 1
		}
	}

	_, err = db.Exec("UPDATE campuses SET name = ?, room_creation_enabled = ? WHERE id = ?",
		req.Name, enabled, id)
	if err != nil {
		jsonErr(w, "A campus with that name already exists", 409)
		return
	}

	audit.Log(db, p.Tag(), audit.ActionUpdate, "campuses", idStr, "updated campus "+req.Name)
	broadcast("campus", "update", id)
	jsonResp(w, map[string]string{"status": "ok"})
}

// handleToggleRoomCreation flips room_creation_enabled without touching
// anything else.
func handleToggleRoomCreation(w http.ResponseWriter, r *http.Request, idStr string) {
	p := requireSuperAdmin(w, r)
	if p == nil {
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		jsonErr(w, "Invalid campus id", 400)
		return
	}

	res, err := db.Exec("UPDATE campuses SET room_creation_enabled = 1 - room_creation_enabled WHERE id = ?", id)
	if err != nil {
		jsonErr(w, "Failed to update campus", 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		jsonErr(w, "Campus not found", 404)
		return
	}

	var enabled int
	db.QueryRow("SELECT room_creation_enabled FROM campuses WHERE id = ?", id).Scan(&enabled)

	audit.Log(db, p.Tag(), audit.ActionUpdate, "campuses", idStr, "toggled room creation")
	broadcast("campus", "update", id)
	jsonResp(w, map[string]bool{"room_creation_enabled": enabled == 1})
}

// handleDeleteCampus refuses while rooms still exist on the campus;
// inventory is never dropped implicitly.
func handleDeleteCampus(w http.ResponseWriter, r *http.Request, idStr string) {
	p := requireSuperAdmin(w, r)
	if p == nil {
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		jsonErr(w, "Invalid campus id", 400)
		return
	}

	var name string
	if err := db.QueryRow("SELECT name FROM campuses WHERE id = ?", id).Scan(&name); err != nil {
		jsonErr(w, "Campus not found", 404)
		return
	}

	var rooms int
	db.QueryRow("SELECT COUNT(*) FROM rooms WHERE campus_id = ?", id).Scan(&rooms)
	if rooms > 0 {
		jsonErr(w, "Cannot delete a campus that still has rooms", 409)
		return
	}

	if _, err := db.Exec("DELETE FROM campuses WHERE id = ?", id); err != nil {
		jsonErr(w, "Failed to delete campus", 500)
		return
	}

	audit.Log(db, p.Tag(), audit.ActionDelete, "campuses", idStr, "deleted campus "+name)
	broadcast("campus", "delete", id)
	jsonResp(w, map[string]string{"status": "ok"})
}
