package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"catrack/internal/scope"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

const sessionCookie = "catrack_session"

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// requireAuth resolves the session cookie into a Principal and stores
// it in the request context. While no admin account exists yet, every
// route is steered to the one-time setup flow.
func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if !setupComplete() {
			if path == "/auth/setup" || path == "/" || strings.HasPrefix(path, "/static/") {
				next.ServeHTTP(w, r)
				return
			}
			if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/auth/") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(403)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "System setup incomplete. Create the super admin account first.",
					"code":  "SETUP_REQUIRED",
				})
				return
			}
			http.Redirect(w, r, "/auth/setup", http.StatusSeeOther)
			return
		}

		// Exempt paths
		if path == "/" ||
			strings.HasPrefix(path, "/static/") ||
			path == "/auth/setup" ||
			path == "/auth/login" ||
			path == "/auth/logout" {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			unauthorized(w, r)
			return
		}

		var tag string
		err = db.QueryRow(`SELECT principal FROM sessions
			WHERE token = ? AND expires_at > CURRENT_TIMESTAMP`, cookie.Value).Scan(&tag)
		if err != nil {
			unauthorized(w, r)
			return
		}

		p, err := scope.Load(db, tag)
		if err != nil {
			// Session points at a deleted account.
			db.Exec("DELETE FROM sessions WHERE token = ?", cookie.Value)
			unauthorized(w, r)
			return
		}

		// Sliding window: extend session expiry on each authenticated request
		newExpiry := time.Now().UTC().Add(sessionTTL)
		db.Exec("UPDATE sessions SET expires_at = ? WHERE token = ?",
			newExpiry.Format("2006-01-02 15:04:05"), cookie.Value)
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    cookie.Value,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Expires:  newExpiry,
		})

		ctx := context.WithValue(r.Context(), ctxPrincipal, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/api/") && !strings.HasPrefix(r.URL.Path, "/auth/") {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(401)
	json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized", "code": "UNAUTHORIZED"})
}

// principalFrom extracts the authenticated principal from the request.
func principalFrom(r *http.Request) *scope.Principal {
	p, _ := r.Context().Value(ctxPrincipal).(*scope.Principal)
	return p
}

// requireAdmin returns the principal if it is a regular or super admin,
// writing a 403 otherwise.
func requireAdmin(w http.ResponseWriter, r *http.Request) *scope.Principal {
	p := principalFrom(r)
	if p == nil {
		unauthorized(w, r)
		return nil
	}
	if !p.IsAdmin() {
		jsonErr(w, "Access denied. This action requires administrative privileges.", 403)
		return nil
	}
	return p
}

// requireSuperAdmin returns the principal only for super admins.
func requireSuperAdmin(w http.ResponseWriter, r *http.Request) *scope.Principal {
	p := principalFrom(r)
	if p == nil {
		unauthorized(w, r)
		return nil
	}
	if p.Role != scope.RoleSuperAdmin {
		jsonErr(w, "Access denied. This feature is restricted to super administrators.", 403)
		return nil
	}
	return p
}
