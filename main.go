package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"catrack/internal/config"
	"catrack/internal/response"
)

var cfg config.Config
var sessionTTL time.Duration

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	uploadsDir := flag.String("uploads", "", "Room photo upload directory (overrides config)")
	flag.Parse()

	var err error
	cfg, err = config.Load(*cfgPath)
	if err != nil {
		log.Fatal("config load failed:", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *uploadsDir != "" {
		cfg.UploadsDir = *uploadsDir
	}
	sessionTTL = time.Duration(cfg.SessionHours) * time.Hour

	if err := os.MkdirAll(cfg.UploadsDir, 0755); err != nil {
		log.Fatal("uploads dir:", err)
	}
	if err := initDB(cfg.DBPath); err != nil {
		log.Fatal("DB init failed:", err)
	}
	seedDB()

	// Expired sessions are swept in the background rather than on each
	// request, the lookup already ignores them.
	go func() {
		for {
			time.Sleep(time.Hour)
			db.Exec("DELETE FROM sessions WHERE expires_at <= CURRENT_TIMESTAMP")
		}
	}()

	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "static/index.html")
	})

	// Room photos
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		filename := strings.TrimPrefix(r.URL.Path, "/files/")
		if filename == "" || strings.Contains(filename, "..") {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(cfg.UploadsDir, filepath.Base(filename)))
	})

	// Auth routes
	mux.HandleFunc("/auth/setup", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case "GET":
			handleSetupStatus(w, r)
		case "POST":
			handleSetup(w, r)
		default:
			http.Error(w, "Method not allowed", 405)
		}
	})
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			w.Header().Set("Content-Type", "application/json")
			handleLogin(w, r)
		} else {
			http.Error(w, "Method not allowed", 405)
		}
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			w.Header().Set("Content-Type", "application/json")
			handleLogout(w, r)
		} else {
			http.Error(w, "Method not allowed", 405)
		}
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		handleMe(w, r)
	})

	// Live updates
	mux.HandleFunc("/ws", handleWS)

	// API routes - using a simple router
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/")
		path = strings.TrimSuffix(path, "/")
		parts := strings.Split(path, "/")

		switch {
		// Dashboard
		case path == "dashboard" && r.Method == "GET":
			handleDashboard(w, r)

		// Admin accounts (super admin only)
		case path == "admins" && r.Method == "GET":
			handleListAdmins(w, r)
		case path == "admins" && r.Method == "POST":
			handleCreateAdmin(w, r)
		case parts[0] == "admins" && len(parts) == 2 && r.Method == "PUT":
			handleUpdateAdmin(w, r, parts[1])
		case parts[0] == "admins" && len(parts) == 2 && r.Method == "DELETE":
			handleDeleteAdmin(w, r, parts[1])

		// Data capturer accounts
		case path == "capturers" && r.Method == "GET":
			handleListCapturers(w, r)
		case path == "capturers" && r.Method == "POST":
			handleCreateCapturer(w, r)
		case parts[0] == "capturers" && len(parts) == 2 && r.Method == "GET":
			handleGetCapturer(w, r, parts[1])
		case parts[0] == "capturers" && len(parts) == 2 && r.Method == "PUT":
			handleUpdateCapturer(w, r, parts[1])
		case parts[0] == "capturers" && len(parts) == 2 && r.Method == "DELETE":
			handleDeleteCapturer(w, r, parts[1])

		// Campuses
		case path == "campuses" && r.Method == "GET":
			handleListCampuses(w, r)
		case path == "campuses" && r.Method == "POST":
			handleCreateCampus(w, r)
		case parts[0] == "campuses" && len(parts) == 2 && r.Method == "PUT":
			handleUpdateCampus(w, r, parts[1])
		case parts[0] == "campuses" && len(parts) == 2 && r.Method == "DELETE":
			handleDeleteCampus(w, r, parts[1])
		case parts[0] == "campuses" && len(parts) == 3 && parts[2] == "room-creation" && r.Method == "POST":
			handleToggleRoomCreation(w, r, parts[1])

		// Rooms
		case path == "rooms" && r.Method == "GET":
			handleListRooms(w, r)
		case path == "rooms" && r.Method == "POST":
			handleCreateRoom(w, r)
		case parts[0] == "rooms" && len(parts) == 2 && r.Method == "GET":
			handleGetRoom(w, r, parts[1])
		case parts[0] == "rooms" && len(parts) == 2 && r.Method == "PUT":
			handleUpdateRoom(w, r, parts[1])
		case parts[0] == "rooms" && len(parts) == 3 && parts[2] == "deactivate" && r.Method == "POST":
			handleDeactivateRoom(w, r, parts[1])
		case parts[0] == "rooms" && len(parts) == 3 && parts[2] == "photo" && r.Method == "POST":
			handleRoomPhoto(w, r, parts[1])

		// Inventory
		case path == "items" && r.Method == "GET":
			handleListItems(w, r)
		case path == "items" && r.Method == "POST":
			handleCreateItem(w, r)
		case parts[0] == "items" && len(parts) == 3 && parts[1] == "export" && r.Method == "GET":
			handleExportItems(w, r, parts[2])
		case parts[0] == "items" && len(parts) == 2 && r.Method == "GET":
			handleGetItem(w, r, parts[1])
		case parts[0] == "items" && len(parts) == 2 && r.Method == "PUT":
			handleUpdateItem(w, r, parts[1])
		case parts[0] == "items" && len(parts) == 3 && parts[2] == "status" && r.Method == "POST":
			handleItemStatus(w, r, parts[1])
		case parts[0] == "items" && len(parts) == 3 && parts[2] == "move" && r.Method == "POST":
			handleMoveItem(w, r, parts[1])
		case parts[0] == "items" && len(parts) == 3 && parts[2] == "movements" && r.Method == "GET":
			handleItemMovements(w, r, parts[1])

		// Export log
		case path == "exports" && r.Method == "GET":
			handleListExports(w, r)

		// Audit trail
		case path == "audit" && r.Method == "GET":
			handleListAudit(w, r)

		default:
			jsonErr(w, "not found", 404)
		}
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("catrack server starting on http://localhost%s", addr)
	log.Fatal(http.ListenAndServe(addr, logging(requireAuth(mux))))
}

func jsonResp(w http.ResponseWriter, data interface{}) {
	response.JSON(w, data)
}

func jsonRespMeta(w http.ResponseWriter, data interface{}, total, page, limit int) {
	response.JSONMeta(w, data, total, page, limit)
}

func jsonRespWarn(w http.ResponseWriter, data interface{}, warnings []string, total, page, limit int) {
	response.JSONWarn(w, data, warnings, total, page, limit)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	response.Err(w, msg, code)
}

func decodeBody(r *http.Request, v interface{}) error {
	return response.DecodeBody(r, v)
}
