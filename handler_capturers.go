package main

import (
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"catrack/internal/audit"
	"catrack/internal/response"
	"catrack/internal/scope"
	"catrack/internal/validation"
)

type CapturerRequest struct {
	FullName      string `json:"full_name"`
	StudentNumber string `json:"student_number"`
	Password      string `json:"password"`
	CanCreateRoom bool   `json:"can_create_room"`
	CampusIDs     []int  `json:"campus_ids"`
}

func handleListCapturers(w http.ResponseWriter, r *http.Request) {
	p := requireAdmin(w, r)
	if p == nil {
		return
	}

	query := `SELECT dc.id, dc.full_name, dc.student_number, dc.can_create_room, dc.admin_id,
		(SELECT COUNT(*) FROM items i WHERE i.data_capturer_id = dc.id) AS item_count
		FROM data_capturers dc`
	args := []interface{}{}
	if p.Role == scope.RoleAdmin {
		query += ` WHERE dc.admin_id = ? OR EXISTS (
			SELECT 1 FROM capturer_campuses cc
			JOIN admin_campuses ac ON ac.campus_id = cc.campus_id
			WHERE cc.capturer_id = dc.id AND ac.admin_id = ?)`
		args = append(args, p.ID, p.ID)
	}
	query += " ORDER BY dc.full_name"

	rows, err := db.Query(query, args...)
	if err != nil {
		jsonErr(w, "Failed to list capturers", 500)
		return
	}
	defer rows.Close()

	capturers := []DataCapturer{}
	for rows.Next() {
		var dc DataCapturer
		var canCreate int
		if err := rows.Scan(&dc.ID, &dc.FullName, &dc.StudentNumber, &canCreate, &dc.AdminID, &dc.ItemCount); err != nil {
			jsonErr(w, "Failed to list capturers", 500)
			return
		}
		dc.CanCreateRoom = canCreate == 1
		dc.CampusIDs = capturerCampuses(dc.ID)
		capturers = append(capturers, dc)
	}

	jsonResp(w, capturers)
}

func capturerCampuses(capturerID int) []int {
	ids := []int{}
	rows, err := db.Query("SELECT campus_id FROM capturer_campuses WHERE capturer_id = ? ORDER BY campus_id", capturerID)
	if err != nil {
		return ids
	}
	defer rows.Close()
	for rows.Next() {
		var id int
		if rows.Scan(&id) == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// validateCapturerCampuses rejects assignments outside the acting
// admin's own campus scope.
func validateCapturerCampuses(p *scope.Principal, campusIDs []int) (string, bool) {
	for _, cid := range campusIDs {
		ok, err := scope.CanSeeCampus(db, p, cid)
		if err != nil {
			return "Invalid campus assignment", false
		}
		if !ok {
			return "You can only assign capturers to your own campuses", false
		}
	}
	return "", true
}

func handleCreateCapturer(w http.ResponseWriter, r *http.Request) {
	p := requireAdmin(w, r)
	if p == nil {
		return
	}

	var req CapturerRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "full_name", req.FullName)
	validation.RequireField(ve, "password", req.Password)
	validation.ValidateStudentNumber(ve, "student_number", req.StudentNumber)
	validation.ValidateMinLength(ve, "password", req.Password, 8)
	if ve.HasErrors() {
		response.FieldErrs(w, ve)
		return
	}

	if msg, ok := validateCapturerCampuses(p, req.CampusIDs); !ok {
		jsonErr(w, msg, 403)
		return
	}

	var exists int
	db.QueryRow("SELECT COUNT(*) FROM data_capturers WHERE student_number = ?", req.StudentNumber).Scan(&exists)
	if exists > 0 {
		jsonErr(w, "A capturer with that student number already exists", 409)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonErr(w, "Failed to secure password", 500)
		return
	}

	tx, err := db.Begin()
	if err != nil {
		jsonErr(w, "Failed to create capturer", 500)
		return
	}
	defer tx.Rollback()

	canCreate := 0
	if req.CanCreateRoom {
		canCreate = 1
	}
	res, err := tx.Exec(`INSERT INTO data_capturers (full_name, student_number, password_hash, can_create_room, admin_id)
		VALUES (?, ?, ?, ?, ?)`, req.FullName, req.StudentNumber, string(hash), canCreate, p.ID)
	if err != nil {
		jsonErr(w, "A capturer with that student number already exists", 409)
		return
	}
	id, _ := res.LastInsertId()

	for _, cid := range req.CampusIDs {
		if _, err := tx.Exec("INSERT INTO capturer_campuses (capturer_id, campus_id) VALUES (?, ?)", id, cid); err != nil {
			jsonErr(w, "Invalid campus assignment", 400)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		jsonErr(w, "Failed to create capturer", 500)
		return
	}

	audit.Log(db, p.Tag(), audit.ActionCreate, "capturers", strconv.FormatInt(id, 10),
		"created capturer "+req.StudentNumber)
	broadcast("capturer", "create", id)

	w.WriteHeader(201)
	jsonResp(w, map[string]interface{}{"id": id})
}

func handleGetCapturer(w http.ResponseWriter, r *http.Request, idStr string) {
	p := requireAdmin(w, r)
	if p == nil {
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		jsonErr(w, "Invalid capturer id", 400)
		return
	}

	ok, err := scope.CanManageCapturer(db, p, id)
	if err != nil || !ok {
		jsonErr(w, "Capturer not found", 404)
		return
	}

	var dc DataCapturer
	var canCreate int
	err = db.QueryRow(`SELECT dc.id, dc.full_name, dc.student_number, dc.can_create_room, dc.admin_id,
		(SELECT COUNT(*) FROM items i WHERE i.data_capturer_id = dc.id)
		FROM data_capturers dc WHERE dc.id = ?`, id).
		Scan(&dc.ID, &dc.FullName, &dc.StudentNumber, &canCreate, &dc.AdminID, &dc.ItemCount)
	if err != nil {
		jsonErr(w, "Capturer not found", 404)
		return
	}
	dc.CanCreateRoom = canCreate == 1
	dc.CampusIDs = capturerCampuses(dc.ID)

	jsonResp(w, dc)
}

func handleUpdateCapturer(w http.ResponseWriter, r *http.Request, idStr string) {
	p := requireAdmin(w, r)
	if p == nil {
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		jsonErr(w, "Invalid capturer id", 400)
		return
	}

	ok, err := scope.CanManageCapturer(db, p, id)
	if err != nil || !ok {
		jsonErr(w, "Capturer not found", 404)
		return
	}

	var req CapturerRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "full_name", req.FullName)
	validation.ValidateStudentNumber(ve, "student_number", req.StudentNumber)
	if req.Password != "" {
		validation.ValidateMinLength(ve, "password", req.Password, 8)
	}
	if ve.HasErrors() {
		response.FieldErrs(w, ve)
		return
	}

	if msg, ok := validateCapturerCampuses(p, req.CampusIDs); !ok {
		jsonErr(w, msg, 403)
		return
	}

	var exists int
	db.QueryRow("SELECT COUNT(*) FROM data_capturers WHERE student_number = ? AND id != ?",
		req.StudentNumber, id).Scan(&exists)
	if exists > 0 {
		jsonErr(w, "A capturer with that student number already exists", 409)
		return
	}

	tx, err := db.Begin()
	if err != nil {
		jsonErr(w, "Failed to update capturer", 500)
		return
	}
	defer tx.Rollback()

	canCreate := 0
	if req.CanCreateRoom {
		canCreate = 1
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			jsonErr(w, "Failed to secure password", 500)
			return
		}
		_, err = tx.Exec(`UPDATE data_capturers SET full_name = ?, student_number = ?, password_hash = ?, can_create_room = ?
			WHERE id = ?`, req.FullName, req.StudentNumber, string(hash), canCreate, id)
		if err != nil {
			jsonErr(w, "Failed to update capturer", 500)
			return
		}
	} else {
		_, err = tx.Exec(`UPDATE data_capturers SET full_name = ?, student_number = ?, can_create_room = ?
			WHERE id = ?`, req.FullName, req.StudentNumber, canCreate, id)
		if err != nil {
			jsonErr(w, "Failed to update capturer", 500)
			return
		}
	}

	if _, err := tx.Exec("DELETE FROM capturer_campuses WHERE capturer_id = ?", id); err != nil {
		jsonErr(w, "Failed to update capturer", 500)
		return
	}
	for _, cid := range req.CampusIDs {
		if _, err := tx.Exec("INSERT INTO capturer_campuses (capturer_id, campus_id) VALUES (?, ?)", id, cid); err != nil {
			jsonErr(w, "Invalid campus assignment", 400)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		jsonErr(w, "Failed to update capturer", 500)
		return
	}

	audit.Log(db, p.Tag(), audit.ActionUpdate, "capturers", idStr, "updated capturer "+req.StudentNumber)
	broadcast("capturer", "update", id)
	jsonResp(w, map[string]string{"status": "ok"})
}

// handleDeleteCapturer removes the account. Items the capturer
// registered survive with their capturer reference nulled out.
func handleDeleteCapturer(w http.ResponseWriter, r *http.Request, idStr string) {
	p := requireAdmin(w, r)
	if p == nil {
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		jsonErr(w, "Invalid capturer id", 400)
		return
	}

	ok, err := scope.CanManageCapturer(db, p, id)
	if err != nil || !ok {
		jsonErr(w, "Capturer not found", 404)
		return
	}

	var studentNumber string
	if err := db.QueryRow("SELECT student_number FROM data_capturers WHERE id = ?", id).Scan(&studentNumber); err != nil {
		jsonErr(w, "Capturer not found", 404)
		return
	}

	if _, err := db.Exec("DELETE FROM data_capturers WHERE id = ?", id); err != nil {
		jsonErr(w, "Failed to delete capturer", 500)
		return
	}
	db.Exec("DELETE FROM sessions WHERE principal = ?", "D-"+idStr)

	audit.Log(db, p.Tag(), audit.ActionDelete, "capturers", idStr, "deleted capturer "+studentNumber)
	broadcast("capturer", "delete", id)
	jsonResp(w, map[string]string{"status": "ok"})
}
