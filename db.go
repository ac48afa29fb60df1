package main

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "modernc.org/sqlite"
)

var db *sql.DB

func initDB(path string) error {
	// Close previous connection if any (prevents goroutine leaks in tests)
	if db != nil {
		db.Close()
	}
	var err error
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err = sql.Open("sqlite", path+sep+"_journal_mode=WAL&_busy_timeout=10000&_foreign_keys=1")
	if err != nil {
		return err
	}

	// SQLite handles 1 writer + multiple readers with WAL mode
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	// Explicitly set pragmas (some drivers don't parse connection string params)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		return fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	return runMigrations()
}

func runMigrations() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS admins (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			name TEXT DEFAULT '',
			surname TEXT DEFAULT '',
			password_hash TEXT NOT NULL,
			is_super_admin INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS data_capturers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			full_name TEXT NOT NULL,
			student_number TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			can_create_room INTEGER NOT NULL DEFAULT 0,
			admin_id INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (admin_id) REFERENCES admins(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS campuses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			room_creation_enabled INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS admin_campuses (
			admin_id INTEGER NOT NULL,
			campus_id INTEGER NOT NULL,
			PRIMARY KEY (admin_id, campus_id),
			FOREIGN KEY (admin_id) REFERENCES admins(id) ON DELETE CASCADE,
			FOREIGN KEY (campus_id) REFERENCES campuses(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS capturer_campuses (
			capturer_id INTEGER NOT NULL,
			campus_id INTEGER NOT NULL,
			PRIMARY KEY (capturer_id, campus_id),
			FOREIGN KEY (capturer_id) REFERENCES data_capturers(id) ON DELETE CASCADE,
			FOREIGN KEY (campus_id) REFERENCES campuses(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS rooms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			campus_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			staff_name TEXT DEFAULT '',
			staff_number TEXT DEFAULT '',
			description TEXT DEFAULT '',
			faculty TEXT DEFAULT '',
			photo_path TEXT DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1,
			deletion_reason TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (campus_id, name),
			FOREIGN KEY (campus_id) REFERENCES campuses(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			asset_number TEXT UNIQUE NOT NULL,
			serial_number TEXT DEFAULT '',
			name TEXT NOT NULL,
			description TEXT DEFAULT '',
			color TEXT DEFAULT '',
			brand TEXT DEFAULT '',
			capacity TEXT DEFAULT '',
			category TEXT DEFAULT '',
			cost REAL,
			status TEXT NOT NULL DEFAULT 'active'
				CHECK(status IN ('active','inactive','needs_repair','stolen','disposed')),
			procured_date DATE,
			allocated_date DATE,
			captured_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			room_id INTEGER NOT NULL,
			data_capturer_id INTEGER,
			disposed_by_admin_id INTEGER,
			disposal_reason TEXT DEFAULT '',
			FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE,
			FOREIGN KEY (data_capturer_id) REFERENCES data_capturers(id) ON DELETE SET NULL,
			FOREIGN KEY (disposed_by_admin_id) REFERENCES admins(id) ON DELETE SET NULL
		)`,
		`CREATE TABLE IF NOT EXISTS item_movements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id INTEGER NOT NULL,
			from_room_id INTEGER,
			to_room_id INTEGER NOT NULL,
			moved_by TEXT NOT NULL,
			moved_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE,
			FOREIGN KEY (from_room_id) REFERENCES rooms(id),
			FOREIGN KEY (to_room_id) REFERENCES rooms(id)
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_exports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			format TEXT NOT NULL CHECK(format IN ('xlsx','pdf')),
			principal TEXT NOT NULL,
			record_count INTEGER NOT NULL DEFAULT 0,
			exported_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			principal TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			expires_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			actor TEXT NOT NULL DEFAULT 'system',
			action TEXT NOT NULL,
			module TEXT NOT NULL,
			record_id TEXT NOT NULL DEFAULT '',
			summary TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, t := range tables {
		if _, err := db.Exec(t); err != nil {
			return fmt.Errorf("migration error: %w\nSQL: %s", err, t)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_rooms_campus_id ON rooms(campus_id)",
		"CREATE INDEX IF NOT EXISTS idx_items_room_id ON items(room_id)",
		"CREATE INDEX IF NOT EXISTS idx_items_status ON items(status)",
		"CREATE INDEX IF NOT EXISTS idx_items_category ON items(category)",
		"CREATE INDEX IF NOT EXISTS idx_items_capturer ON items(data_capturer_id)",
		"CREATE INDEX IF NOT EXISTS idx_items_captured_at ON items(captured_at)",
		"CREATE INDEX IF NOT EXISTS idx_movements_item_id ON item_movements(item_id)",
		"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)",
		"CREATE INDEX IF NOT EXISTS idx_audit_log_module ON audit_log(module)",
		"CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_exports_exported_at ON inventory_exports(exported_at)",
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("index creation: %w\nSQL: %s", err, idx)
		}
	}

	return nil
}

// Campuses every fresh install starts with. Admins can add more.
var defaultCampuses = []string{"Ritson", "Steve Biko", "ML Sultan", "City"}

func seedDB() {
	var count int
	db.QueryRow("SELECT COUNT(*) FROM campuses").Scan(&count)
	if count > 0 {
		return
	}
	for _, name := range defaultCampuses {
		if _, err := db.Exec("INSERT INTO campuses (name) VALUES (?)", name); err != nil {
			log.Printf("seed: campus %q: %v", name, err)
		}
	}
}

// setupComplete reports whether at least one admin account exists.
// Until then every route redirects to the one-time setup flow.
func setupComplete() bool {
	var n int
	db.QueryRow("SELECT COUNT(*) FROM admins").Scan(&n)
	return n > 0
}

// nz maps an empty string to SQL NULL.
func nz(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
