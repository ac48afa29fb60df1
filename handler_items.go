package main

import (
	"net/http"
	"strconv"
	"strings"

	"catrack/internal/audit"
	"catrack/internal/filters"
	"catrack/internal/response"
	"catrack/internal/scope"
	"catrack/internal/validation"
)

type ItemRequest struct {
	AssetNumber   string   `json:"asset_number"`
	SerialNumber  string   `json:"serial_number"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Color         string   `json:"color"`
	Brand         string   `json:"brand"`
	Capacity      string   `json:"capacity"`
	Category      string   `json:"category"`
	Cost          *float64 `json:"cost"`
	Status        string   `json:"status"`
	ProcuredDate  string   `json:"procured_date"`
	AllocatedDate string   `json:"allocated_date"`
	RoomID        int      `json:"room_id"`
}

func validateItem(req *ItemRequest) *validation.ValidationErrors {
	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "asset_number", req.AssetNumber)
	validation.RequireField(ve, "name", req.Name)
	validation.ValidateMaxLength(ve, "asset_number", req.AssetNumber, 64)
	validation.ValidateMaxLength(ve, "name", req.Name, 200)
	if req.Category != "" {
		req.Category = strings.ToLower(req.Category)
		validation.ValidateEnum(ve, "category", req.Category, validation.ValidItemCategories)
	}
	if req.Status != "" {
		req.Status = strings.ToLower(req.Status)
		validation.ValidateEnum(ve, "status", req.Status, validation.ValidItemStatuses)
	}
	validation.ValidateNonNegative(ve, "cost", req.Cost)
	if req.ProcuredDate != "" {
		validation.ValidateDate(ve, "procured_date", req.ProcuredDate)
	}
	if req.AllocatedDate != "" {
		validation.ValidateDate(ve, "allocated_date", req.AllocatedDate)
	}
	if req.RoomID == 0 {
		ve.Add("room_id", "room_id is required")
	}
	return ve
}

// handleCreateItem registers an item into a room. Capturers may only
// capture into rooms on their campuses, and only with statuses they are
// allowed to set.
func handleCreateItem(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	if p == nil {
		unauthorized(w, r)
		return
	}

	var req ItemRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}
	if req.Status == "" {
		req.Status = "active"
	}

	ve := validateItem(&req)
	if ve.HasErrors() {
		response.FieldErrs(w, ve)
		return
	}

	ok, err := scope.CanSeeRoom(db, p, req.RoomID)
	if err != nil {
		jsonErr(w, "Room not found", 404)
		return
	}
	if !ok {
		jsonErr(w, "You cannot capture items into rooms outside your campuses", 403)
		return
	}

	var roomActive int
	db.QueryRow("SELECT is_active FROM rooms WHERE id = ?", req.RoomID).Scan(&roomActive)
	if roomActive != 1 {
		jsonErr(w, "Cannot capture items into an inactive room", 409)
		return
	}

	if !scope.AllowedStatus(p, req.Status) {
		jsonErr(w, "Data capturers cannot mark items as stolen or disposed", 403)
		return
	}

	var exists int
	db.QueryRow("SELECT COUNT(*) FROM items WHERE asset_number = ?", req.AssetNumber).Scan(&exists)
	if exists > 0 {
		jsonErr(w, "An item with that asset number already exists", 409)
		return
	}

	var capturerID interface{}
	if p.Role == scope.RoleCapturer {
		capturerID = p.ID
	}
	res, err := db.Exec(`INSERT INTO items (asset_number, serial_number, name, description, color,
		brand, capacity, category, cost, status, procured_date, allocated_date, room_id, data_capturer_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.AssetNumber, req.SerialNumber, req.Name, req.Description, req.Color,
		req.Brand, req.Capacity, req.Category, req.Cost, req.Status,
		nz(req.ProcuredDate), nz(req.AllocatedDate), req.RoomID, capturerID)
	if err != nil {
		jsonErr(w, "An item with that asset number already exists", 409)
		return
	}
	id, _ := res.LastInsertId()

	audit.Log(db, p.Tag(), audit.ActionCreate, "items", strconv.FormatInt(id, 10),
		"captured item "+req.AssetNumber)
	broadcast("item", "create", id)

	w.WriteHeader(201)
	jsonResp(w, map[string]interface{}{"id": id})
}

func handleGetItem(w http.ResponseWriter, r *http.Request, idStr string) {
	p := principalFrom(r)
	if p == nil {
		unauthorized(w, r)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		jsonErr(w, "Invalid item id", 400)
		return
	}

	it, err := filters.QueryByID(db, id)
	if err != nil {
		jsonErr(w, "Item not found", 404)
		return
	}
	ok, err := scope.CanSeeCampus(db, p, it.CampusID)
	if err != nil || !ok {
		jsonErr(w, "Item not found", 404)
		return
	}

	jsonResp(w, it)
}

// handleUpdateItem edits descriptive fields. Status changes go through
// handleItemStatus; the room changes through handleMoveItem.
func handleUpdateItem(w http.ResponseWriter, r *http.Request, idStr string) {
	p := principalFrom(r)
	if p == nil {
		unauthorized(w, r)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		jsonErr(w, "Invalid item id", 400)
		return
	}

	ok, err := scope.CanEditItem(db, p, id)
	if err != nil {
		jsonErr(w, "Item not found", 404)
		return
	}
	if !ok {
		jsonErr(w, "You can only edit items you captured yourself", 403)
		return
	}

	var cur Item
	cur, err = filters.QueryByID(db, id)
	if err != nil {
		jsonErr(w, "Item not found", 404)
		return
	}
	if cur.Status == "disposed" {
		jsonErr(w, "Disposed items can no longer be edited", 409)
		return
	}

	var req ItemRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}
	// Room and status are managed by their own endpoints, and cost may
	// only be changed by administrators.
	req.RoomID = cur.RoomID
	req.Status = cur.Status
	if p.Role == scope.RoleCapturer {
		req.Cost = cur.Cost
	}

	ve := validateItem(&req)
	if ve.HasErrors() {
		response.FieldErrs(w, ve)
		return
	}

	if req.AssetNumber != cur.AssetNumber {
		var exists int
		db.QueryRow("SELECT COUNT(*) FROM items WHERE asset_number = ? AND id != ?",
			req.AssetNumber, id).Scan(&exists)
		if exists > 0 {
			jsonErr(w, "An item with that asset number already exists", 409)
			return
		}
	}

	_, err = db.Exec(`UPDATE items SET asset_number = ?, serial_number = ?, name = ?, description = ?,
		color = ?, brand = ?, capacity = ?, category = ?, cost = ?, procured_date = ?, allocated_date = ?
		WHERE id = ?`,
		req.AssetNumber, req.SerialNumber, req.Name, req.Description,
		req.Color, req.Brand, req.Capacity, req.Category, req.Cost,
		nz(req.ProcuredDate), nz(req.AllocatedDate), id)
	if err != nil {
		jsonErr(w, "Failed to update item", 500)
		return
	}

	audit.Log(db, p.Tag(), audit.ActionUpdate, "items", idStr, "updated item "+req.AssetNumber)
	broadcast("item", "update", id)
	jsonResp(w, map[string]string{"status": "ok"})
}

type StatusRequest struct {
	Status         string `json:"status"`
	DisposalReason string `json:"disposal_reason"`
}

// handleItemStatus changes an item's status. Disposal needs a reason and
// records the disposing admin; a disposed item never leaves that state.
func handleItemStatus(w http.ResponseWriter, r *http.Request, idStr string) {
	p := principalFrom(r)
	if p == nil {
		unauthorized(w, r)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		jsonErr(w, "Invalid item id", 400)
		return
	}

	ok, err := scope.CanEditItem(db, p, id)
	if err != nil {
		jsonErr(w, "Item not found", 404)
		return
	}
	if !ok {
		jsonErr(w, "You can only edit items you captured yourself", 403)
		return
	}

	var req StatusRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}
	req.Status = strings.ToLower(req.Status)

	ve := &validation.ValidationErrors{}
	validation.ValidateEnum(ve, "status", req.Status, validation.ValidItemStatuses)
	if ve.HasErrors() {
		response.FieldErrs(w, ve)
		return
	}

	if !scope.AllowedStatus(p, req.Status) {
		jsonErr(w, "Data capturers cannot mark items as stolen or disposed", 403)
		return
	}

	var cur string
	var assetNumber string
	if err := db.QueryRow("SELECT status, asset_number FROM items WHERE id = ?", id).Scan(&cur, &assetNumber); err != nil {
		jsonErr(w, "Item not found", 404)
		return
	}
	if cur == "disposed" {
		jsonErr(w, "Disposed items cannot change status", 409)
		return
	}

	if req.Status == "disposed" {
		if req.DisposalReason == "" {
			jsonErr(w, "A disposal reason is required", 400)
			return
		}
		_, err = db.Exec(`UPDATE items SET status = 'disposed', disposal_reason = ?, disposed_by_admin_id = ?
			WHERE id = ?`, req.DisposalReason, p.ID, id)
	} else {
		_, err = db.Exec("UPDATE items SET status = ? WHERE id = ?", req.Status, id)
	}
	if err != nil {
		jsonErr(w, "Failed to update item status", 500)
		return
	}

	audit.Log(db, p.Tag(), audit.ActionUpdate, "items", idStr,
		"status "+cur+" -> "+req.Status+" for "+assetNumber)
	broadcast("item", "update", id)
	jsonResp(w, map[string]string{"status": req.Status})
}

type MoveRequest struct {
	ToRoomID    int    `json:"to_room_id"`
	StaffName   string `json:"staff_name"`
	StaffNumber string `json:"staff_number"`
}

// handleMoveItem relocates an item and appends exactly one movement row.
// Submitted staff details overwrite both rooms' staff fields, but only
// when they differ from what is already stored.
func handleMoveItem(w http.ResponseWriter, r *http.Request, idStr string) {
	p := principalFrom(r)
	if p == nil {
		unauthorized(w, r)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		jsonErr(w, "Invalid item id", 400)
		return
	}

	ok, err := scope.CanEditItem(db, p, id)
	if err != nil {
		jsonErr(w, "Item not found", 404)
		return
	}
	if !ok {
		jsonErr(w, "You can only move items you captured yourself", 403)
		return
	}

	var req MoveRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}
	if req.ToRoomID == 0 {
		jsonErr(w, "to_room_id is required", 400)
		return
	}

	var fromRoomID int
	var status, assetNumber string
	if err := db.QueryRow("SELECT room_id, status, asset_number FROM items WHERE id = ?", id).
		Scan(&fromRoomID, &status, &assetNumber); err != nil {
		jsonErr(w, "Item not found", 404)
		return
	}
	if status == "disposed" {
		jsonErr(w, "Disposed items cannot be moved", 409)
		return
	}
	if req.ToRoomID == fromRoomID {
		jsonErr(w, "Item is already in that room", 409)
		return
	}

	ok, err = scope.CanSeeRoom(db, p, req.ToRoomID)
	if err != nil {
		jsonErr(w, "Destination room not found", 404)
		return
	}
	if !ok {
		jsonErr(w, "You cannot move items into rooms outside your campuses", 403)
		return
	}
	var destActive int
	db.QueryRow("SELECT is_active FROM rooms WHERE id = ?", req.ToRoomID).Scan(&destActive)
	if destActive != 1 {
		jsonErr(w, "Cannot move items into an inactive room", 409)
		return
	}

	tx, err := db.Begin()
	if err != nil {
		jsonErr(w, "Failed to move item", 500)
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE items SET room_id = ? WHERE id = ?", req.ToRoomID, id); err != nil {
		jsonErr(w, "Failed to move item", 500)
		return
	}
	if _, err := tx.Exec(`INSERT INTO item_movements (item_id, from_room_id, to_room_id, moved_by)
		VALUES (?, ?, ?, ?)`, id, fromRoomID, req.ToRoomID, p.Tag()); err != nil {
		jsonErr(w, "Failed to move item", 500)
		return
	}

	// Staff details travel with the move form; only write rooms whose
	// stored values actually differ.
	if req.StaffName != "" || req.StaffNumber != "" {
		for _, roomID := range []int{fromRoomID, req.ToRoomID} {
			var curName, curNumber string
			if err := tx.QueryRow("SELECT staff_name, staff_number FROM rooms WHERE id = ?", roomID).
				Scan(&curName, &curNumber); err != nil {
				continue
			}
			if curName != req.StaffName || curNumber != req.StaffNumber {
				if _, err := tx.Exec("UPDATE rooms SET staff_name = ?, staff_number = ? WHERE id = ?",
					req.StaffName, req.StaffNumber, roomID); err != nil {
					jsonErr(w, "Failed to move item", 500)
					return
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		jsonErr(w, "Failed to move item", 500)
		return
	}

	audit.Log(db, p.Tag(), audit.ActionMove, "items", idStr,
		"moved "+assetNumber+" from room "+strconv.Itoa(fromRoomID)+" to room "+strconv.Itoa(req.ToRoomID))
	broadcast("item", "move", id)
	jsonResp(w, map[string]string{"status": "ok"})
}

func handleItemMovements(w http.ResponseWriter, r *http.Request, idStr string) {
	p := principalFrom(r)
	if p == nil {
		unauthorized(w, r)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		jsonErr(w, "Invalid item id", 400)
		return
	}

	it, err := filters.QueryByID(db, id)
	if err != nil {
		jsonErr(w, "Item not found", 404)
		return
	}
	ok, err := scope.CanSeeCampus(db, p, it.CampusID)
	if err != nil || !ok {
		jsonErr(w, "Item not found", 404)
		return
	}

	rows, err := db.Query(`SELECT m.id, m.item_id, m.from_room_id, COALESCE(fr.name, ''),
		m.to_room_id, tr.name, m.moved_by, m.moved_at
		FROM item_movements m
		LEFT JOIN rooms fr ON fr.id = m.from_room_id
		JOIN rooms tr ON tr.id = m.to_room_id
		WHERE m.item_id = ? ORDER BY m.moved_at DESC, m.id DESC`, id)
	if err != nil {
		jsonErr(w, "Failed to list movements", 500)
		return
	}
	defer rows.Close()

	moves := []ItemMovement{}
	for rows.Next() {
		var m ItemMovement
		if err := rows.Scan(&m.ID, &m.ItemID, &m.FromRoomID, &m.FromRoomName,
			&m.ToRoomID, &m.ToRoomName, &m.MovedBy, &m.MovedAt); err != nil {
			jsonErr(w, "Failed to list movements", 500)
			return
		}
		moves = append(moves, m)
	}

	jsonResp(w, moves)
}
