package main

import (
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"catrack/internal/audit"
	"catrack/internal/response"
	"catrack/internal/validation"
)

type AdminRequest struct {
	Username     string `json:"username"`
	Name         string `json:"name"`
	Surname      string `json:"surname"`
	Password     string `json:"password"`
	IsSuperAdmin bool   `json:"is_super_admin"`
	CampusIDs    []int  `json:"campus_ids"`
}

func handleListAdmins(w http.ResponseWriter, r *http.Request) {
	if requireSuperAdmin(w, r) == nil {
		return
	}

	rows, err := db.Query(`SELECT id, username, name, surname, is_super_admin
		FROM admins ORDER BY username`)
	if err != nil {
		jsonErr(w, "Failed to list admins", 500)
		return
	}
	defer rows.Close()

	admins := []Admin{}
	for rows.Next() {
		var a Admin
		var super int
		if err := rows.Scan(&a.ID, &a.Username, &a.Name, &a.Surname, &super); err != nil {
			jsonErr(w, "Failed to list admins", 500)
			return
		}
		a.IsSuperAdmin = super == 1
		a.CampusIDs, a.CampusNames = adminCampuses(a.ID)
		admins = append(admins, a)
	}

	jsonResp(w, admins)
}

func adminCampuses(adminID int) ([]int, []string) {
	ids := []int{}
	names := []string{}
	rows, err := db.Query(`SELECT c.id, c.name FROM admin_campuses ac
		JOIN campuses c ON c.id = ac.campus_id
		WHERE ac.admin_id = ? ORDER BY c.name`, adminID)
	if err != nil {
		return ids, names
	}
	defer rows.Close()
	for rows.Next() {
		var id int
		var name string
		if rows.Scan(&id, &name) == nil {
			ids = append(ids, id)
			names = append(names, name)
		}
	}
	return ids, names
}

func handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	p := requireSuperAdmin(w, r)
	if p == nil {
		return
	}

	var req AdminRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "username", req.Username)
	validation.RequireField(ve, "password", req.Password)
	validation.ValidateMinLength(ve, "password", req.Password, 8)
	validation.ValidateMaxLength(ve, "username", req.Username, 64)
	if ve.HasErrors() {
		response.FieldErrs(w, ve)
		return
	}

	var exists int
	db.QueryRow("SELECT COUNT(*) FROM admins WHERE username = ?", req.Username).Scan(&exists)
	if exists > 0 {
		jsonErr(w, "An admin with that username already exists", 409)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonErr(w, "Failed to secure password", 500)
		return
	}

	tx, err := db.Begin()
	if err != nil {
		jsonErr(w, "Failed to create admin", 500)
		return
	}
	defer tx.Rollback()

	super := 0
	if req.IsSuperAdmin {
		super = 1
	}
	res, err := tx.Exec(`INSERT INTO admins (username, name, surname, password_hash, is_super_admin)
		VALUES (?, ?, ?, ?, ?)`, req.Username, req.Name, req.Surname, string(hash), super)
	if err != nil {
		jsonErr(w, "An admin with that username already exists", 409)
		return
	}
	id, _ := res.LastInsertId()

	for _, cid := range req.CampusIDs {
		if _, err := tx.Exec("INSERT INTO admin_campuses (admin_id, campus_id) VALUES (?, ?)", id, cid); err != nil {
			jsonErr(w, "Invalid campus assignment", 400)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		jsonErr(w, "Failed to create admin", 500)
		return
	}

	audit.Log(db, p.Tag(), audit.ActionCreate, "admins", strconv.FormatInt(id, 10), "created admin "+req.Username)
	broadcast("admin", "create", id)

	w.WriteHeader(201)
	jsonResp(w, map[string]interface{}{"id": id})
}

func handleUpdateAdmin(w http.ResponseWriter, r *http.Request, idStr string) {
	p := requireSuperAdmin(w, r)
	if p == nil {
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		jsonErr(w, "Invalid admin id", 400)
		return
	}

	var req AdminRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}

	var curSuper int
	var curUsername string
	err = db.QueryRow("SELECT username, is_super_admin FROM admins WHERE id = ?", id).
		Scan(&curUsername, &curSuper)
	if err != nil {
		jsonErr(w, "Admin not found", 404)
		return
	}

	// Demoting the last super admin would lock everyone out of admin
	// management.
	if curSuper == 1 && !req.IsSuperAdmin {
		var supers int
		db.QueryRow("SELECT COUNT(*) FROM admins WHERE is_super_admin = 1").Scan(&supers)
		if supers <= 1 {
			jsonErr(w, "Cannot demote the last super admin", 409)
			return
		}
	}

	if req.Username != "" && req.Username != curUsername {
		var exists int
		db.QueryRow("SELECT COUNT(*) FROM admins WHERE username = ? AND id != ?", req.Username, id).Scan(&exists)
		if exists > 0 {
			jsonErr(w, "An admin with that username already exists", 409)
			return
		}
	} else {
		req.Username = curUsername
	}

	tx, err := db.Begin()
	if err != nil {
		jsonErr(w, "Failed to update admin", 500)
		return
	}
	defer tx.Rollback()

	super := 0
	if req.IsSuperAdmin {
		super = 1
	}
	if req.Password != "" {
		ve := &validation.ValidationErrors{}
		validation.ValidateMinLength(ve, "password", req.Password, 8)
		if ve.HasErrors() {
			response.FieldErrs(w, ve)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			jsonErr(w, "Failed to secure password", 500)
			return
		}
		_, err = tx.Exec(`UPDATE admins SET username = ?, name = ?, surname = ?, password_hash = ?, is_super_admin = ?
			WHERE id = ?`, req.Username, req.Name, req.Surname, string(hash), super, id)
		if err != nil {
			jsonErr(w, "Failed to update admin", 500)
			return
		}
	} else {
		_, err = tx.Exec(`UPDATE admins SET username = ?, name = ?, surname = ?, is_super_admin = ?
			WHERE id = ?`, req.Username, req.Name, req.Surname, super, id)
		if err != nil {
			jsonErr(w, "Failed to update admin", 500)
			return
		}
	}

	// Campus assignments are replaced wholesale.
	if _, err := tx.Exec("DELETE FROM admin_campuses WHERE admin_id = ?", id); err != nil {
		jsonErr(w, "Failed to update admin", 500)
		return
	}
	for _, cid := range req.CampusIDs {
		if _, err := tx.Exec("INSERT INTO admin_campuses (admin_id, campus_id) VALUES (?, ?)", id, cid); err != nil {
			jsonErr(w, "Invalid campus assignment", 400)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		jsonErr(w, "Failed to update admin", 500)
		return
	}

	audit.Log(db, p.Tag(), audit.ActionUpdate, "admins", idStr, "updated admin "+req.Username)
	broadcast("admin", "update", id)
	jsonResp(w, map[string]string{"status": "ok"})
}

func handleDeleteAdmin(w http.ResponseWriter, r *http.Request, idStr string) {
	p := requireSuperAdmin(w, r)
	if p == nil {
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		jsonErr(w, "Invalid admin id", 400)
		return
	}

	if id == p.ID {
		jsonErr(w, "You cannot delete your own account", 409)
		return
	}

	var username string
	var super int
	err = db.QueryRow("SELECT username, is_super_admin FROM admins WHERE id = ?", id).Scan(&username, &super)
	if err != nil {
		jsonErr(w, "Admin not found", 404)
		return
	}
	if super == 1 {
		var supers int
		db.QueryRow("SELECT COUNT(*) FROM admins WHERE is_super_admin = 1").Scan(&supers)
		if supers <= 1 {
			jsonErr(w, "Cannot delete the last super admin", 409)
			return
		}
	}

	if _, err := db.Exec("DELETE FROM admins WHERE id = ?", id); err != nil {
		jsonErr(w, "Failed to delete admin", 500)
		return
	}

	// Sessions for the deleted account stop resolving on next request,
	// but drop them eagerly anyway.
	db.Exec("DELETE FROM sessions WHERE principal = ?", "A-"+idStr)

	audit.Log(db, p.Tag(), audit.ActionDelete, "admins", idStr, "deleted admin "+username)
	broadcast("admin", "delete", id)
	jsonResp(w, map[string]string{"status": "ok"})
}
