package main

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"strconv"
	"testing"
)

func TestHandleCreateItem_DuplicateAssetNumber(t *testing.T) {
	setupTestDB(t)
	ritson := campusIDByName(t, "Ritson")
	admin := createTestAdmin(t, "root", true)
	room := createTestRoom(t, ritson, "Lab 1")
	createTestItem(t, "DUT0001", room, "active", nil)

	body := `{"asset_number":"DUT0001","name":"Second Projector","room_id":` + strconv.Itoa(room) + `}`
	req := asPrincipal(httptest.NewRequest("POST", "/api/v1/items", bytes.NewBufferString(body)), admin)
	w := httptest.NewRecorder()

	handleCreateItem(w, req)

	if w.Code != 409 {
		t.Errorf("Expected status 409 for duplicate asset number, got %d", w.Code)
	}
	var n int
	db.QueryRow("SELECT COUNT(*) FROM items WHERE asset_number = 'DUT0001'").Scan(&n)
	if n != 1 {
		t.Errorf("Duplicate insert should leave exactly 1 row, got %d", n)
	}
}

func TestHandleCreateItem_CapturerCannotSetRestrictedStatus(t *testing.T) {
	setupTestDB(t)
	ritson := campusIDByName(t, "Ritson")
	admin := createTestAdmin(t, "root", true)
	capturer := createTestCapturer(t, "21234567", false, admin.ID, ritson)
	room := createTestRoom(t, ritson, "Lab 1")

	for _, status := range []string{"stolen", "disposed"} {
		body := fmt.Sprintf(`{"asset_number":"DUT-%s","name":"Item","room_id":%d,"status":"%s"}`,
			status, room, status)
		req := asPrincipal(httptest.NewRequest("POST", "/api/v1/items", bytes.NewBufferString(body)), capturer)
		w := httptest.NewRecorder()

		handleCreateItem(w, req)

		if w.Code != 403 {
			t.Errorf("Expected status 403 for capturer setting %s, got %d", status, w.Code)
		}
	}
}

func TestHandleCreateItem_CapturerOutsideCampus(t *testing.T) {
	setupTestDB(t)
	ritson := campusIDByName(t, "Ritson")
	city := campusIDByName(t, "City")
	admin := createTestAdmin(t, "root", true)
	capturer := createTestCapturer(t, "21234567", false, admin.ID, ritson)
	cityRoom := createTestRoom(t, city, "Office 9")

	body := `{"asset_number":"DUT0002","name":"Item","room_id":` + strconv.Itoa(cityRoom) + `}`
	req := asPrincipal(httptest.NewRequest("POST", "/api/v1/items", bytes.NewBufferString(body)), capturer)
	w := httptest.NewRecorder()

	handleCreateItem(w, req)

	if w.Code != 403 {
		t.Errorf("Expected status 403 capturing into an out-of-scope room, got %d", w.Code)
	}
}

func TestHandleItemStatus_DisposalRequiresReason(t *testing.T) {
	setupTestDB(t)
	ritson := campusIDByName(t, "Ritson")
	admin := createTestAdmin(t, "root", true)
	room := createTestRoom(t, ritson, "Lab 1")
	itemID := createTestItem(t, "DUT0001", room, "active", nil)

	body := `{"status":"disposed"}`
	req := asPrincipal(httptest.NewRequest("POST", "/api/v1/items/x/status", bytes.NewBufferString(body)), admin)
	w := httptest.NewRecorder()

	handleItemStatus(w, req, strconv.Itoa(itemID))

	if w.Code != 400 {
		t.Errorf("Expected status 400 without a disposal reason, got %d", w.Code)
	}

	body = `{"status":"disposed","disposal_reason":"water damage"}`
	req = asPrincipal(httptest.NewRequest("POST", "/api/v1/items/x/status", bytes.NewBufferString(body)), admin)
	w = httptest.NewRecorder()

	handleItemStatus(w, req, strconv.Itoa(itemID))

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var status, reason string
	var disposedBy int
	db.QueryRow("SELECT status, disposal_reason, disposed_by_admin_id FROM items WHERE id = ?", itemID).
		Scan(&status, &reason, &disposedBy)
	if status != "disposed" || reason != "water damage" || disposedBy != admin.ID {
		t.Errorf("Unexpected disposal record: %s / %s / %d", status, reason, disposedBy)
	}
}

func TestHandleItemStatus_DisposedIsTerminal(t *testing.T) {
	setupTestDB(t)
	ritson := campusIDByName(t, "Ritson")
	admin := createTestAdmin(t, "root", true)
	room := createTestRoom(t, ritson, "Lab 1")
	itemID := createTestItem(t, "DUT0001", room, "disposed", nil)

	body := `{"status":"active"}`
	req := asPrincipal(httptest.NewRequest("POST", "/api/v1/items/x/status", bytes.NewBufferString(body)), admin)
	w := httptest.NewRecorder()

	handleItemStatus(w, req, strconv.Itoa(itemID))

	if w.Code != 409 {
		t.Errorf("Expected status 409 reviving a disposed item, got %d", w.Code)
	}
}

func TestHandleMoveItem_SingleMovementRow(t *testing.T) {
	setupTestDB(t)
	ritson := campusIDByName(t, "Ritson")
	admin := createTestAdmin(t, "root", true)
	from := createTestRoom(t, ritson, "Lab 1")
	to := createTestRoom(t, ritson, "Lab 2")
	itemID := createTestItem(t, "DUT0001", from, "active", nil)

	body := `{"to_room_id":` + strconv.Itoa(to) + `}`
	req := asPrincipal(httptest.NewRequest("POST", "/api/v1/items/x/move", bytes.NewBufferString(body)), admin)
	w := httptest.NewRecorder()

	handleMoveItem(w, req, strconv.Itoa(itemID))

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var roomID int
	db.QueryRow("SELECT room_id FROM items WHERE id = ?", itemID).Scan(&roomID)
	if roomID != to {
		t.Errorf("Expected item in room %d, got %d", to, roomID)
	}

	var n int
	db.QueryRow("SELECT COUNT(*) FROM item_movements WHERE item_id = ?", itemID).Scan(&n)
	if n != 1 {
		t.Errorf("Expected exactly 1 movement row, got %d", n)
	}

	var fromID, toID int
	var movedBy string
	db.QueryRow("SELECT from_room_id, to_room_id, moved_by FROM item_movements WHERE item_id = ?", itemID).
		Scan(&fromID, &toID, &movedBy)
	if fromID != from || toID != to || movedBy != admin.Tag() {
		t.Errorf("Unexpected movement row: %d -> %d by %s", fromID, toID, movedBy)
	}
}

func TestHandleMoveItem_StaffOverwriteOnlyWhenChanged(t *testing.T) {
	setupTestDB(t)
	ritson := campusIDByName(t, "Ritson")
	admin := createTestAdmin(t, "root", true)
	from := createTestRoom(t, ritson, "Lab 1")
	to := createTestRoom(t, ritson, "Lab 2")
	db.Exec("UPDATE rooms SET staff_name = 'Ms Dube', staff_number = '0311234567' WHERE id = ?", from)
	db.Exec("UPDATE rooms SET staff_name = 'Mr Naidoo', staff_number = '0317654321' WHERE id = ?", to)
	itemID := createTestItem(t, "DUT0001", from, "active", nil)

	// Submitted staff matches the source room exactly: only the
	// destination differs, so only it is rewritten.
	body := `{"to_room_id":` + strconv.Itoa(to) + `,"staff_name":"Ms Dube","staff_number":"0311234567"}`
	req := asPrincipal(httptest.NewRequest("POST", "/api/v1/items/x/move", bytes.NewBufferString(body)), admin)
	w := httptest.NewRecorder()

	handleMoveItem(w, req, strconv.Itoa(itemID))

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var name, number string
	db.QueryRow("SELECT staff_name, staff_number FROM rooms WHERE id = ?", from).Scan(&name, &number)
	if name != "Ms Dube" || number != "0311234567" {
		t.Errorf("Source room staff should be untouched, got %s / %s", name, number)
	}
	db.QueryRow("SELECT staff_name, staff_number FROM rooms WHERE id = ?", to).Scan(&name, &number)
	if name != "Ms Dube" || number != "0311234567" {
		t.Errorf("Destination room staff should be overwritten, got %s / %s", name, number)
	}
}

func TestHandleMoveItem_DisposedCannotMove(t *testing.T) {
	setupTestDB(t)
	ritson := campusIDByName(t, "Ritson")
	admin := createTestAdmin(t, "root", true)
	from := createTestRoom(t, ritson, "Lab 1")
	to := createTestRoom(t, ritson, "Lab 2")
	itemID := createTestItem(t, "DUT0001", from, "disposed", nil)

	body := `{"to_room_id":` + strconv.Itoa(to) + `}`
	req := asPrincipal(httptest.NewRequest("POST", "/api/v1/items/x/move", bytes.NewBufferString(body)), admin)
	w := httptest.NewRecorder()

	handleMoveItem(w, req, strconv.Itoa(itemID))

	if w.Code != 409 {
		t.Errorf("Expected status 409 moving a disposed item, got %d", w.Code)
	}
	var n int
	db.QueryRow("SELECT COUNT(*) FROM item_movements").Scan(&n)
	if n != 0 {
		t.Errorf("Expected no movement rows, got %d", n)
	}
}

func TestHandleUpdateItem_CapturerOwnItemsOnly(t *testing.T) {
	setupTestDB(t)
	ritson := campusIDByName(t, "Ritson")
	admin := createTestAdmin(t, "root", true)
	owner := createTestCapturer(t, "21111111", false, admin.ID, ritson)
	other := createTestCapturer(t, "22222222", false, admin.ID, ritson)
	room := createTestRoom(t, ritson, "Lab 1")
	itemID := createTestItem(t, "DUT0001", room, "active", owner.ID)

	body := `{"asset_number":"DUT0001","name":"Renamed","room_id":` + strconv.Itoa(room) + `}`
	req := asPrincipal(httptest.NewRequest("PUT", "/api/v1/items/x", bytes.NewBufferString(body)), other)
	w := httptest.NewRecorder()

	handleUpdateItem(w, req, strconv.Itoa(itemID))

	if w.Code != 403 {
		t.Errorf("Expected status 403 for a different capturer, got %d", w.Code)
	}

	// The capturer who registered the item can edit it.
	req = asPrincipal(httptest.NewRequest("PUT", "/api/v1/items/x", bytes.NewBufferString(body)), owner)
	w = httptest.NewRecorder()

	handleUpdateItem(w, req, strconv.Itoa(itemID))

	if w.Code != 200 {
		t.Fatalf("Expected status 200 for the owner, got %d: %s", w.Code, w.Body.String())
	}
	var name string
	db.QueryRow("SELECT name FROM items WHERE id = ?", itemID).Scan(&name)
	if name != "Renamed" {
		t.Errorf("Expected item renamed, got %q", name)
	}
}

func TestHandleItemMovements_History(t *testing.T) {
	setupTestDB(t)
	ritson := campusIDByName(t, "Ritson")
	admin := createTestAdmin(t, "root", true)
	a := createTestRoom(t, ritson, "Lab 1")
	b := createTestRoom(t, ritson, "Lab 2")
	c := createTestRoom(t, ritson, "Lab 3")
	itemID := createTestItem(t, "DUT0001", a, "active", nil)

	for _, dest := range []int{b, c} {
		body := `{"to_room_id":` + strconv.Itoa(dest) + `}`
		req := asPrincipal(httptest.NewRequest("POST", "/api/v1/items/x/move", bytes.NewBufferString(body)), admin)
		w := httptest.NewRecorder()
		handleMoveItem(w, req, strconv.Itoa(itemID))
		if w.Code != 200 {
			t.Fatalf("Move failed: %d %s", w.Code, w.Body.String())
		}
	}

	req := asPrincipal(httptest.NewRequest("GET", "/api/v1/items/x/movements", nil), admin)
	w := httptest.NewRecorder()

	handleItemMovements(w, req, strconv.Itoa(itemID))

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	resp := decodeEnvelope(t, w)
	var moves []ItemMovement
	dataAs(t, resp, &moves)
	if len(moves) != 2 {
		t.Fatalf("Expected 2 movements, got %d", len(moves))
	}
	// Newest first.
	if moves[0].ToRoomName != "Lab 3" || moves[1].ToRoomName != "Lab 2" {
		t.Errorf("Unexpected movement order: %s then %s", moves[0].ToRoomName, moves[1].ToRoomName)
	}
}

func TestHandleUpdateItem_CapturerCannotChangeCost(t *testing.T) {
	setupTestDB(t)
	ritson := campusIDByName(t, "Ritson")
	admin := createTestAdmin(t, "root", true)
	owner := createTestCapturer(t, "21111111", false, admin.ID, ritson)
	room := createTestRoom(t, ritson, "Lab 1")
	itemID := createTestItem(t, "DUT0001", room, "active", owner.ID)
	db.Exec("UPDATE items SET cost = 999.99 WHERE id = ?", itemID)

	// A cost in the body is ignored for capturers.
	body := `{"asset_number":"DUT0001","name":"Laptop","cost":1.00}`
	req := asPrincipal(httptest.NewRequest("PUT", "/api/v1/items/x", bytes.NewBufferString(body)), owner)
	w := httptest.NewRecorder()

	handleUpdateItem(w, req, strconv.Itoa(itemID))

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var cost float64
	db.QueryRow("SELECT cost FROM items WHERE id = ?", itemID).Scan(&cost)
	if cost != 999.99 {
		t.Errorf("Expected cost unchanged at 999.99, got %v", cost)
	}

	// Omitting cost entirely must not null the stored value either.
	body = `{"asset_number":"DUT0001","name":"Laptop"}`
	req = asPrincipal(httptest.NewRequest("PUT", "/api/v1/items/x", bytes.NewBufferString(body)), owner)
	w = httptest.NewRecorder()

	handleUpdateItem(w, req, strconv.Itoa(itemID))

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	db.QueryRow("SELECT cost FROM items WHERE id = ?", itemID).Scan(&cost)
	if cost != 999.99 {
		t.Errorf("Expected cost still 999.99 after an update omitting it, got %v", cost)
	}

	// Admins can change it.
	body = `{"asset_number":"DUT0001","name":"Laptop","cost":450.00}`
	req = asPrincipal(httptest.NewRequest("PUT", "/api/v1/items/x", bytes.NewBufferString(body)), admin)
	w = httptest.NewRecorder()

	handleUpdateItem(w, req, strconv.Itoa(itemID))

	if w.Code != 200 {
		t.Fatalf("Expected status 200 for admin, got %d: %s", w.Code, w.Body.String())
	}
	db.QueryRow("SELECT cost FROM items WHERE id = ?", itemID).Scan(&cost)
	if cost != 450.00 {
		t.Errorf("Expected admin to change cost to 450.00, got %v", cost)
	}
}
