package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"catrack/internal/config"
	"catrack/internal/scope"
)

var testDBSeq int64

// setupTestDB swaps the global db for a fresh in-memory database with
// the real schema (seed campuses included) and restores it afterwards.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	oldDB := db
	name := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	if err := initDB(name); err != nil {
		db = oldDB
		t.Fatalf("Failed to init test DB: %v", err)
	}
	seedDB()

	cfg = config.Default()
	cfg.UploadsDir = t.TempDir()
	sessionTTL = 24 * time.Hour

	testDB := db
	t.Cleanup(func() {
		testDB.Close()
		db = oldDB
	})
	return testDB
}

func createTestAdmin(t *testing.T, username string, super bool, campusIDs ...int) *scope.Principal {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	superInt := 0
	role := scope.RoleAdmin
	if super {
		superInt = 1
		role = scope.RoleSuperAdmin
	}
	res, err := db.Exec(`INSERT INTO admins (username, name, surname, password_hash, is_super_admin)
		VALUES (?, ?, ?, ?, ?)`, username, "Test", "Admin", string(hash), superInt)
	if err != nil {
		t.Fatalf("Failed to create test admin: %v", err)
	}
	id, _ := res.LastInsertId()
	for _, cid := range campusIDs {
		if _, err := db.Exec("INSERT INTO admin_campuses (admin_id, campus_id) VALUES (?, ?)", id, cid); err != nil {
			t.Fatalf("Failed to assign campus: %v", err)
		}
	}
	return &scope.Principal{Role: role, ID: int(id), Login: username, Name: "Test Admin"}
}

func createTestCapturer(t *testing.T, studentNumber string, canCreateRoom bool, adminID int, campusIDs ...int) *scope.Principal {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	canCreate := 0
	if canCreateRoom {
		canCreate = 1
	}
	res, err := db.Exec(`INSERT INTO data_capturers (full_name, student_number, password_hash, can_create_room, admin_id)
		VALUES (?, ?, ?, ?, ?)`, "Capturer "+studentNumber, studentNumber, string(hash), canCreate, adminID)
	if err != nil {
		t.Fatalf("Failed to create test capturer: %v", err)
	}
	id, _ := res.LastInsertId()
	for _, cid := range campusIDs {
		if _, err := db.Exec("INSERT INTO capturer_campuses (capturer_id, campus_id) VALUES (?, ?)", id, cid); err != nil {
			t.Fatalf("Failed to assign campus: %v", err)
		}
	}
	return &scope.Principal{Role: scope.RoleCapturer, ID: int(id),
		Login: studentNumber, Name: "Capturer " + studentNumber, CanCreateRoom: canCreateRoom}
}

func createTestCampus(t *testing.T, name string) int {
	t.Helper()
	res, err := db.Exec("INSERT INTO campuses (name) VALUES (?)", name)
	if err != nil {
		t.Fatalf("Failed to create test campus: %v", err)
	}
	id, _ := res.LastInsertId()
	return int(id)
}

// campusIDByName resolves one of the seeded campuses.
func campusIDByName(t *testing.T, name string) int {
	t.Helper()
	var id int
	if err := db.QueryRow("SELECT id FROM campuses WHERE name = ?", name).Scan(&id); err != nil {
		t.Fatalf("Campus %q not found: %v", name, err)
	}
	return id
}

func createTestRoom(t *testing.T, campusID int, name string) int {
	t.Helper()
	res, err := db.Exec("INSERT INTO rooms (campus_id, name) VALUES (?, ?)", campusID, name)
	if err != nil {
		t.Fatalf("Failed to create test room: %v", err)
	}
	id, _ := res.LastInsertId()
	return int(id)
}

func createTestItem(t *testing.T, assetNumber string, roomID int, status string, capturerID interface{}) int {
	t.Helper()
	res, err := db.Exec(`INSERT INTO items (asset_number, name, status, room_id, data_capturer_id)
		VALUES (?, ?, ?, ?, ?)`, assetNumber, "Item "+assetNumber, status, roomID, capturerID)
	if err != nil {
		t.Fatalf("Failed to create test item: %v", err)
	}
	id, _ := res.LastInsertId()
	return int(id)
}

// asPrincipal attaches a principal to the request the same way the auth
// middleware does.
func asPrincipal(req *http.Request, p *scope.Principal) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), ctxPrincipal, p))
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

// dataAs re-marshals the envelope data into a typed value.
func dataAs(t *testing.T, resp APIResponse, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("Failed to marshal data: %v", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("Failed to unmarshal data: %v", err)
	}
}
