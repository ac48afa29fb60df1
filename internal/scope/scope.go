// Package scope resolves what an authenticated principal is allowed to
// see and touch: campuses from its assignment tables, rooms and items
// within those campuses, and capturers it manages.
package scope

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"catrack/internal/validation"
)

// Role identifies the kind of authenticated principal.
type Role int

const (
	RoleSuperAdmin Role = iota
	RoleAdmin
	RoleCapturer
)

func (r Role) String() string {
	switch r {
	case RoleSuperAdmin:
		return "super_admin"
	case RoleAdmin:
		return "admin"
	case RoleCapturer:
		return "capturer"
	}
	return "unknown"
}

// Principal is the authenticated caller, passed explicitly into every
// operation instead of living in request-global state.
type Principal struct {
	Role Role
	ID   int

	// Display identity: admin username or capturer student number.
	Login string
	Name  string

	// CanCreateRoom mirrors the capturer flag; meaningless for admins.
	CanCreateRoom bool
}

// Tag returns the role-tagged id stored in session rows and audit
// entries: A-<id> for admins (super or regular), D-<id> for capturers.
func (p *Principal) Tag() string {
	if p.Role == RoleCapturer {
		return fmt.Sprintf("D-%d", p.ID)
	}
	return fmt.Sprintf("A-%d", p.ID)
}

// IsAdmin reports whether the principal is a regular or super admin.
func (p *Principal) IsAdmin() bool {
	return p.Role == RoleSuperAdmin || p.Role == RoleAdmin
}

// Load resolves a role-tagged principal id ("A-3", "D-7") against the
// admins / data_capturers tables.
func Load(db *sql.DB, tag string) (*Principal, error) {
	parts := strings.SplitN(tag, "-", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed principal tag %q", tag)
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("malformed principal tag %q", tag)
	}

	switch parts[0] {
	case "A":
		var p Principal
		var super int
		var name, surname string
		err := db.QueryRow("SELECT id, username, name, surname, is_super_admin FROM admins WHERE id = ?", id).
			Scan(&p.ID, &p.Login, &name, &surname, &super)
		if err != nil {
			return nil, err
		}
		p.Name = strings.TrimSpace(name + " " + surname)
		p.Role = RoleAdmin
		if super == 1 {
			p.Role = RoleSuperAdmin
		}
		return &p, nil
	case "D":
		var p Principal
		var canCreate int
		err := db.QueryRow("SELECT id, student_number, full_name, can_create_room FROM data_capturers WHERE id = ?", id).
			Scan(&p.ID, &p.Login, &p.Name, &canCreate)
		if err != nil {
			return nil, err
		}
		p.Role = RoleCapturer
		p.CanCreateRoom = canCreate == 1
		return &p, nil
	}
	return nil, fmt.Errorf("unknown principal role tag %q", parts[0])
}

// CampusIDs returns the campuses visible to the principal. A nil slice
// means unrestricted (super admin).
func CampusIDs(db *sql.DB, p *Principal) ([]int, error) {
	var q string
	switch p.Role {
	case RoleSuperAdmin:
		return nil, nil
	case RoleAdmin:
		q = "SELECT campus_id FROM admin_campuses WHERE admin_id = ? ORDER BY campus_id"
	case RoleCapturer:
		q = "SELECT campus_id FROM capturer_campuses WHERE capturer_id = ? ORDER BY campus_id"
	default:
		return []int{}, nil
	}

	rows, err := db.Query(q, p.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CanSeeCampus reports whether the campus is inside the principal's scope.
func CanSeeCampus(db *sql.DB, p *Principal, campusID int) (bool, error) {
	ids, err := CampusIDs(db, p)
	if err != nil {
		return false, err
	}
	if ids == nil {
		return true, nil
	}
	for _, id := range ids {
		if id == campusID {
			return true, nil
		}
	}
	return false, nil
}

// CanSeeRoom reports whether the room's campus is inside the scope.
func CanSeeRoom(db *sql.DB, p *Principal, roomID int) (bool, error) {
	var campusID int
	if err := db.QueryRow("SELECT campus_id FROM rooms WHERE id = ?", roomID).Scan(&campusID); err != nil {
		return false, err
	}
	return CanSeeCampus(db, p, campusID)
}

// CanCreateRoomIn reports whether the principal may create a room on the
// given campus. Admins always can (inside their scope); capturers need
// both their own can_create_room flag and the campus room_creation_enabled
// flag.
func CanCreateRoomIn(db *sql.DB, p *Principal, campusID int) (bool, error) {
	ok, err := CanSeeCampus(db, p, campusID)
	if err != nil || !ok {
		return false, err
	}
	if p.IsAdmin() {
		return true, nil
	}
	if !p.CanCreateRoom {
		return false, nil
	}
	var enabled int
	if err := db.QueryRow("SELECT room_creation_enabled FROM campuses WHERE id = ?", campusID).Scan(&enabled); err != nil {
		return false, err
	}
	return enabled == 1, nil
}

// CanManageCapturer reports whether the principal may edit or delete the
// capturer: super admins always, regular admins when they own the
// capturer or share a campus with it.
func CanManageCapturer(db *sql.DB, p *Principal, capturerID int) (bool, error) {
	switch p.Role {
	case RoleSuperAdmin:
		return true, nil
	case RoleAdmin:
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM data_capturers dc
			WHERE dc.id = ? AND (dc.admin_id = ? OR EXISTS (
				SELECT 1 FROM capturer_campuses cc
				JOIN admin_campuses ac ON ac.campus_id = cc.campus_id
				WHERE cc.capturer_id = dc.id AND ac.admin_id = ?))`,
			capturerID, p.ID, p.ID).Scan(&n)
		return n > 0, err
	}
	return false, nil
}

// CanEditItem reports whether the principal may modify the item. Admins
// are limited by campus scope; capturers only touch items they captured
// themselves.
func CanEditItem(db *sql.DB, p *Principal, itemID int) (bool, error) {
	var roomID int
	var capturerID sql.NullInt64
	err := db.QueryRow("SELECT room_id, data_capturer_id FROM items WHERE id = ?", itemID).
		Scan(&roomID, &capturerID)
	if err != nil {
		return false, err
	}
	if p.Role == RoleCapturer {
		return capturerID.Valid && int(capturerID.Int64) == p.ID, nil
	}
	return CanSeeRoom(db, p, roomID)
}

// AllowedStatus reports whether the principal may set the given item
// status. Stolen and disposed are admin-only.
func AllowedStatus(p *Principal, status string) bool {
	if p.IsAdmin() {
		return true
	}
	for _, s := range validation.CapturerItemStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// CampusFilterSQL renders the scope restriction as a SQL fragment over
// the campuses table alias, with its bind args. Unrestricted principals
// get an empty fragment. Principals with no assignments get a fragment
// matching nothing, so an unassigned admin sees an empty inventory
// rather than everything.
func CampusFilterSQL(ids []int, col string) (string, []interface{}) {
	if ids == nil {
		return "", nil
	}
	if len(ids) == 0 {
		return " AND 1=0", nil
	}
	ph := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		ph[i] = "?"
		args[i] = id
	}
	return " AND " + col + " IN (" + strings.Join(ph, ",") + ")", args
}
