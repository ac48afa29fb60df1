package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHandleSetup_CreatesSuperAdmin(t *testing.T) {
	setupTestDB(t)

	if setupComplete() {
		t.Fatal("Fresh database should not report setup complete")
	}

	body := `{"username":"root","name":"Root","surname":"Admin","password":"supersecret"}`
	req := httptest.NewRequest("POST", "/auth/setup", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handleSetup(w, req)

	if w.Code != 201 {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if !setupComplete() {
		t.Error("Setup should be complete after creating the super admin")
	}

	var super int
	db.QueryRow("SELECT is_super_admin FROM admins WHERE username = 'root'").Scan(&super)
	if super != 1 {
		t.Error("Setup account should be a super admin")
	}

	// A session cookie is issued immediately.
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("Expected a session cookie after setup")
	}
}

func TestHandleSetup_RefusedOnceComplete(t *testing.T) {
	setupTestDB(t)
	createTestAdmin(t, "existing", true)

	body := `{"username":"second","name":"Second","password":"supersecret"}`
	req := httptest.NewRequest("POST", "/auth/setup", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handleSetup(w, req)

	if w.Code != 403 {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
}

func TestHandleSetup_ShortPassword(t *testing.T) {
	setupTestDB(t)

	body := `{"username":"root","name":"Root","password":"short"}`
	req := httptest.NewRequest("POST", "/auth/setup", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handleSetup(w, req)

	if w.Code != 400 {
		t.Errorf("Expected status 400 for short password, got %d", w.Code)
	}
}

func TestHandleLogin_AdminByUsername(t *testing.T) {
	setupTestDB(t)
	admin := createTestAdmin(t, "jane", false)

	body := `{"identifier":"jane","password":"password123"}`
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handleLogin(w, req)

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decodeEnvelope(t, w)
	var user UserResponse
	dataAs(t, resp, &user)
	if user.Role != "admin" {
		t.Errorf("Expected role admin, got %q", user.Role)
	}

	var n int
	db.QueryRow("SELECT COUNT(*) FROM sessions WHERE principal = ?", admin.Tag()).Scan(&n)
	if n != 1 {
		t.Errorf("Expected 1 session row, got %d", n)
	}
}

func TestHandleLogin_CapturerByStudentNumber(t *testing.T) {
	setupTestDB(t)
	admin := createTestAdmin(t, "owner", false)
	createTestCapturer(t, "21234567", true, admin.ID)

	body := `{"identifier":"21234567","password":"password123"}`
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handleLogin(w, req)

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decodeEnvelope(t, w)
	var user UserResponse
	dataAs(t, resp, &user)
	if user.Role != "capturer" {
		t.Errorf("Expected role capturer, got %q", user.Role)
	}
	if !user.CanCreateRoom {
		t.Error("Expected can_create_room to be set")
	}
}

func TestHandleLogin_WrongPassword(t *testing.T) {
	setupTestDB(t)
	createTestAdmin(t, "jane", false)

	body := `{"identifier":"jane","password":"not-the-password"}`
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handleLogin(w, req)

	if w.Code != 401 {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestHandleLogin_UnknownIdentifier(t *testing.T) {
	setupTestDB(t)

	body := `{"identifier":"nobody","password":"password123"}`
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handleLogin(w, req)

	if w.Code != 401 {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestHandleLogout_DeletesSession(t *testing.T) {
	setupTestDB(t)
	admin := createTestAdmin(t, "jane", false)

	token, _, err := createSession(admin.Tag())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	req := httptest.NewRequest("POST", "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	w := httptest.NewRecorder()

	handleLogout(w, req)

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var n int
	db.QueryRow("SELECT COUNT(*) FROM sessions WHERE token = ?", token).Scan(&n)
	if n != 0 {
		t.Error("Session row should be deleted on logout")
	}
}

func TestHandleMe(t *testing.T) {
	setupTestDB(t)
	admin := createTestAdmin(t, "jane", true)

	req := asPrincipal(httptest.NewRequest("GET", "/auth/me", nil), admin)
	w := httptest.NewRecorder()

	handleMe(w, req)

	if w.Code != 200 {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	resp := decodeEnvelope(t, w)
	var user UserResponse
	dataAs(t, resp, &user)
	if user.Login != "jane" || user.Role != "super_admin" {
		t.Errorf("Unexpected identity: %+v", user)
	}
}

func TestRequireAuth_SetupGate(t *testing.T) {
	setupTestDB(t)

	handler := requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))

	// No admins yet: API requests are refused with the setup code.
	req := httptest.NewRequest("GET", "/api/v1/dashboard", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != 403 {
		t.Errorf("Expected 403 while setup incomplete, got %d", w.Code)
	}

	// The setup route itself stays reachable.
	req = httptest.NewRequest("POST", "/auth/setup", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Errorf("Expected setup route to pass through, got %d", w.Code)
	}

	// Once an admin exists, a valid session reaches the handler.
	admin := createTestAdmin(t, "root", true)
	token, _, err := createSession(admin.Tag())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	req = httptest.NewRequest("GET", "/api/v1/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Errorf("Expected 200 with a valid session, got %d", w.Code)
	}

	// And without a session it is a 401.
	req = httptest.NewRequest("GET", "/api/v1/dashboard", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Errorf("Expected 401 without a session, got %d", w.Code)
	}
}

func TestCreateSession_ExpiryComparableToSqliteClock(t *testing.T) {
	setupTestDB(t)
	admin := createTestAdmin(t, "root", true)

	token, _, err := createSession(admin.Tag())
	if err != nil {
		t.Fatalf("createSession failed: %v", err)
	}

	// The stored timestamp must be UTC, since every lookup compares it
	// against sqlite's CURRENT_TIMESTAMP.
	var stored string
	// CAST avoids the driver decoding the DATETIME column into time.Time,
	// which a string scan would render as RFC3339 instead of the raw text.
	db.QueryRow("SELECT CAST(expires_at AS TEXT) FROM sessions WHERE token = ?", token).Scan(&stored)
	parsed, err := time.Parse("2006-01-02 15:04:05", stored)
	if err != nil {
		t.Fatalf("Unparseable expires_at %q: %v", stored, err)
	}
	want := time.Now().UTC().Add(sessionTTL)
	if d := want.Sub(parsed); d < -time.Minute || d > time.Minute {
		t.Errorf("Stored expiry %q is %v away from now+TTL in UTC", stored, d)
	}

	var live int
	db.QueryRow("SELECT COUNT(*) FROM sessions WHERE token = ? AND expires_at > CURRENT_TIMESTAMP", token).Scan(&live)
	if live != 1 {
		t.Error("Fresh session should be live by sqlite's clock")
	}
}
