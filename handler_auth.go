package main

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"catrack/internal/audit"
	"catrack/internal/response"
	"catrack/internal/scope"
	"catrack/internal/validation"
)

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type UserResponse struct {
	ID            int    `json:"id"`
	Login         string `json:"login"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	CanCreateRoom bool   `json:"can_create_room,omitempty"`
}

var studentNumberRe = regexp.MustCompile(`^[0-9]{8}$`)

func handleSetupStatus(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, map[string]bool{"setup_complete": setupComplete()})
}

type SetupRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Password string `json:"password"`
}

// handleSetup creates the first super admin. Only available while the
// admins table is empty; afterwards the route always refuses.
func handleSetup(w http.ResponseWriter, r *http.Request) {
	if setupComplete() {
		jsonErr(w, "Setup has already been completed", 403)
		return
	}

	var req SetupRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "username", req.Username)
	validation.RequireField(ve, "name", req.Name)
	validation.RequireField(ve, "password", req.Password)
	validation.ValidateMinLength(ve, "password", req.Password, 8)
	validation.ValidateMaxLength(ve, "username", req.Username, 64)
	if ve.HasErrors() {
		response.FieldErrs(w, ve)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonErr(w, "Failed to secure password", 500)
		return
	}

	res, err := db.Exec(`INSERT INTO admins (username, name, surname, password_hash, is_super_admin)
		VALUES (?, ?, ?, ?, 1)`, req.Username, req.Name, req.Surname, string(hash))
	if err != nil {
		jsonErr(w, "Failed to create super admin", 500)
		return
	}
	id, _ := res.LastInsertId()

	p := &scope.Principal{Role: scope.RoleSuperAdmin, ID: int(id), Login: req.Username}
	audit.Log(db, p.Tag(), audit.ActionSetup, "auth", p.Tag(), "initial super admin created")

	// Log the new super admin straight in.
	token, expires, err := createSession(p.Tag())
	if err != nil {
		jsonErr(w, "Account created but login failed, please sign in", 500)
		return
	}
	setSessionCookie(w, token, expires)

	w.WriteHeader(201)
	jsonResp(w, UserResponse{ID: int(id), Login: req.Username,
		Name: req.Name + " " + req.Surname, Role: scope.RoleSuperAdmin.String()})
}

// handleLogin accepts an admin username or an 8-digit capturer student
// number as the identifier.
func handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "Invalid request body", 400)
		return
	}
	if req.Identifier == "" || req.Password == "" {
		jsonErr(w, "Identifier and password are required", 400)
		return
	}

	var p *scope.Principal
	var hash string

	var id int
	var name, surname string
	var super int
	err := db.QueryRow(`SELECT id, name, surname, password_hash, is_super_admin
		FROM admins WHERE username = ?`, req.Identifier).
		Scan(&id, &name, &surname, &hash, &super)
	if err == nil {
		role := scope.RoleAdmin
		if super == 1 {
			role = scope.RoleSuperAdmin
		}
		p = &scope.Principal{Role: role, ID: id, Login: req.Identifier, Name: name + " " + surname}
	} else if studentNumberRe.MatchString(req.Identifier) {
		var canCreate int
		var fullName string
		err = db.QueryRow(`SELECT id, full_name, password_hash, can_create_room
			FROM data_capturers WHERE student_number = ?`, req.Identifier).
			Scan(&id, &fullName, &hash, &canCreate)
		if err == nil {
			p = &scope.Principal{Role: scope.RoleCapturer, ID: id, Login: req.Identifier,
				Name: fullName, CanCreateRoom: canCreate == 1}
		}
	}

	if p == nil {
		jsonErr(w, "Invalid credentials", 401)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		jsonErr(w, "Invalid credentials", 401)
		return
	}

	// Clean expired sessions
	db.Exec("DELETE FROM sessions WHERE expires_at < CURRENT_TIMESTAMP")

	token, expires, err := createSession(p.Tag())
	if err != nil {
		jsonErr(w, "Failed to create session", 500)
		return
	}
	setSessionCookie(w, token, expires)

	audit.Log(db, p.Tag(), audit.ActionLogin, "auth", p.Tag(), p.Login+" signed in")

	jsonResp(w, UserResponse{ID: p.ID, Login: p.Login, Name: p.Name,
		Role: p.Role.String(), CanCreateRoom: p.CanCreateRoom})
}

func handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookie)
	if err == nil {
		var tag string
		if db.QueryRow("SELECT principal FROM sessions WHERE token = ?", cookie.Value).Scan(&tag) == nil {
			audit.Log(db, tag, audit.ActionLogout, "auth", tag, "signed out")
		}
		db.Exec("DELETE FROM sessions WHERE token = ?", cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	jsonResp(w, map[string]string{"status": "ok"})
}

func handleMe(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	if p == nil {
		unauthorized(w, r)
		return
	}
	jsonResp(w, UserResponse{ID: p.ID, Login: p.Login, Name: p.Name,
		Role: p.Role.String(), CanCreateRoom: p.CanCreateRoom})
}

func createSession(tag string) (string, time.Time, error) {
	var token string
	var err error
	// Stored in UTC to compare cleanly against sqlite's CURRENT_TIMESTAMP.
	expires := time.Now().UTC().Add(sessionTTL)
	for i := 0; i < 3; i++ {
		token = generateToken()
		_, err = db.Exec("INSERT INTO sessions (token, principal, expires_at) VALUES (?, ?, ?)",
			token, tag, expires.Format("2006-01-02 15:04:05"))
		if err == nil {
			return token, expires, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return "", time.Time{}, err
}

func setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

func generateToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}
