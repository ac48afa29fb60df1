package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"catrack/internal/audit"
	"catrack/internal/imaging"
	"catrack/internal/response"
	"catrack/internal/scope"
	"catrack/internal/validation"
)

type RoomRequest struct {
	CampusID    int    `json:"campus_id"`
	Name        string `json:"name"`
	StaffName   string `json:"staff_name"`
	StaffNumber string `json:"staff_number"`
	Description string `json:"description"`
	Faculty     string `json:"faculty"`
}

func scanRoom(scanner interface {
	Scan(dest ...interface{}) error
}) (Room, error) {
	var rm Room
	var active int
	err := scanner.Scan(&rm.ID, &rm.CampusID, &rm.CampusName, &rm.Name, &rm.StaffName,
		&rm.StaffNumber, &rm.Description, &rm.Faculty, &rm.PhotoPath, &active, &rm.DeletionReason)
	rm.IsActive = active == 1
	return rm, err
}

const roomSelect = `SELECT r.id, r.campus_id, c.name, r.name, r.staff_name, r.staff_number,
	r.description, r.faculty, r.photo_path, r.is_active, r.deletion_reason
	FROM rooms r JOIN campuses c ON c.id = r.campus_id`

func handleListRooms(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	if p == nil {
		unauthorized(w, r)
		return
	}

	ids, err := scope.CampusIDs(db, p)
	if err != nil {
		jsonErr(w, "Failed to list rooms", 500)
		return
	}
	filter, args := scope.CampusFilterSQL(ids, "r.campus_id")

	query := roomSelect + " WHERE 1=1" + filter
	if cid := r.URL.Query().Get("campus_id"); cid != "" {
		n, err := strconv.Atoi(cid)
		if err != nil {
			jsonErr(w, "Invalid campus_id", 400)
			return
		}
		query += " AND r.campus_id = ?"
		args = append(args, n)
	}
	if r.URL.Query().Get("include_inactive") != "1" {
		query += " AND r.is_active = 1"
	}
	query += " ORDER BY c.name, r.name"

	rows, err := db.Query(query, args...)
	if err != nil {
		jsonErr(w, "Failed to list rooms", 500)
		return
	}
	defer rows.Close()

	roomsOut := []Room{}
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			jsonErr(w, "Failed to list rooms", 500)
			return
		}
		roomsOut = append(roomsOut, rm)
	}

	jsonResp(w, roomsOut)
}

func handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	if p == nil {
		unauthorized(w, r)
		return
	}

	var req RoomRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", req.Name)
	validation.ValidateMaxLength(ve, "name", req.Name, 120)
	if req.CampusID == 0 {
		ve.Add("campus_id", "campus_id is required")
	}
	if ve.HasErrors() {
		response.FieldErrs(w, ve)
		return
	}

	ok, err := scope.CanCreateRoomIn(db, p, req.CampusID)
	if err != nil {
		jsonErr(w, "Campus not found", 404)
		return
	}
	if !ok {
		jsonErr(w, "You are not allowed to create rooms on this campus", 403)
		return
	}

	res, err := db.Exec(`INSERT INTO rooms (campus_id, name, staff_name, staff_number, description, faculty)
		VALUES (?, ?, ?, ?, ?, ?)`,
		req.CampusID, req.Name, req.StaffName, req.StaffNumber, req.Description, req.Faculty)
	if err != nil {
		jsonErr(w, "A room with that name already exists on this campus", 409)
		return
	}
	id, _ := res.LastInsertId()

	audit.Log(db, p.Tag(), audit.ActionCreate, "rooms", strconv.FormatInt(id, 10), "created room "+req.Name)
	broadcast("room", "create", id)

	w.WriteHeader(201)
	jsonResp(w, map[string]interface{}{"id": id})
}

func handleGetRoom(w http.ResponseWriter, r *http.Request, idStr string) {
	p := principalFrom(r)
	if p == nil {
		unauthorized(w, r)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		jsonErr(w, "Invalid room id", 400)
		return
	}

	ok, err := scope.CanSeeRoom(db, p, id)
	if err != nil || !ok {
		jsonErr(w, "Room not found", 404)
		return
	}

	rm, err := scanRoom(db.QueryRow(roomSelect+" WHERE r.id = ?", id))
	if err != nil {
		jsonErr(w, "Room not found", 404)
		return
	}

	jsonResp(w, rm)
}

func handleUpdateRoom(w http.ResponseWriter, r *http.Request, idStr string) {
	p := requireAdmin(w, r)
	if p == nil {
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		jsonErr(w, "Invalid room id", 400)
		return
	}

	ok, err := scope.CanSeeRoom(db, p, id)
	if err != nil || !ok {
		jsonErr(w, "Room not found", 404)
		return
	}

	var req RoomRequest
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

	_, err = db.Exec(`UPDATE rooms SET name = ?, staff_name = ?, staff_number = ?, description = ?, faculty = ?
		WHERE id = ?`, req.Name, req.StaffName, req.StaffNumber, req.Description, req.Faculty, id)
	if err != nil {
		jsonErr(w, "A room with that name already exists on this campus", 409)
		return
	}

	audit.Log(db, p.Tag(), audit.ActionUpdate, "rooms", idStr, "updated room "+req.Name)
	broadcast("room", "update", id)
	jsonResp(w, map[string]string{"status": "ok"})
}

type DeactivateRequest struct {
	Reason string `json:"reason"`
}

// handleDeactivateRoom soft-deletes a room. Refused while active items
// are still registered in it; those must be moved or retired first.
func handleDeactivateRoom(w http.ResponseWriter, r *http.Request, idStr string) {
	p := requireAdmin(w, r)
	if p == nil {
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		jsonErr(w, "Invalid room id", 400)
		return
	}

	ok, err := scope.CanSeeRoom(db, p, id)
	if err != nil || !ok {
		jsonErr(w, "Room not found", 404)
		return
	}

	var req DeactivateRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}
	if req.Reason == "" {
		jsonErr(w, "A reason is required to deactivate a room", 400)
		return
	}

	var active int
	db.QueryRow("SELECT COUNT(*) FROM items WHERE room_id = ? AND status = 'active'", id).Scan(&active)
	if active > 0 {
		jsonErr(w, fmt.Sprintf("Cannot deactivate: %d active item(s) are still registered in this room", active), 409)
		return
	}

	res, err := db.Exec("UPDATE rooms SET is_active = 0, deletion_reason = ? WHERE id = ? AND is_active = 1",
		req.Reason, id)
	if err != nil {
		jsonErr(w, "Failed to deactivate room", 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		jsonErr(w, "Room is already inactive", 409)
		return
	}

	audit.Log(db, p.Tag(), audit.ActionDelete, "rooms", idStr, "deactivated room: "+req.Reason)
	broadcast("room", "deactivate", id)
	jsonResp(w, map[string]string{"status": "ok"})
}

// handleRoomPhoto accepts a multipart photo upload, sniffs and
// normalizes it, and stores it under the uploads directory.
func handleRoomPhoto(w http.ResponseWriter, r *http.Request, idStr string) {
	p := principalFrom(r)
	if p == nil {
		unauthorized(w, r)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		jsonErr(w, "Invalid room id", 400)
		return
	}

	ok, err := scope.CanSeeRoom(db, p, id)
	if err != nil || !ok {
		jsonErr(w, "Room not found", 404)
		return
	}

	if err := r.ParseMultipartForm(16 << 20); err != nil {
		jsonErr(w, "Invalid upload", 400)
		return
	}
	file, _, err := r.FormFile("photo")
	if err != nil {
		jsonErr(w, "Missing photo field", 400)
		return
	}
	defer file.Close()

	result, err := imaging.Process(file)
	if err != nil {
		jsonErr(w, err.Error(), 400)
		return
	}

	filename := fmt.Sprintf("room_%d_%s_%s.jpg", id,
		time.Now().Format("20060102150405"), uuid.NewString()[:8])
	if err := os.WriteFile(filepath.Join(cfg.UploadsDir, filename), result.Data, 0644); err != nil {
		jsonErr(w, "Failed to store photo", 500)
		return
	}

	// Replace any previous photo on disk.
	var old string
	db.QueryRow("SELECT photo_path FROM rooms WHERE id = ?", id).Scan(&old)
	if _, err := db.Exec("UPDATE rooms SET photo_path = ? WHERE id = ?", filename, id); err != nil {
		jsonErr(w, "Failed to store photo", 500)
		return
	}
	if old != "" {
		os.Remove(filepath.Join(cfg.UploadsDir, filepath.Base(old)))
	}

	audit.Log(db, p.Tag(), audit.ActionUpdate, "rooms", idStr, "uploaded room photo")
	broadcast("room", "update", id)
	jsonResp(w, map[string]string{"photo_path": filename})
}
