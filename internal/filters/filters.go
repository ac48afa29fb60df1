// Package filters turns the inventory listing's optional query
// parameters into a scoped SQL query over items joined with rooms,
// campuses and data capturers.
package filters

import (
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"catrack/internal/models"
	"catrack/internal/scope"
	"catrack/internal/validation"
)

// Filter is the parsed bag of optional inventory filters. Zero values
// mean "not set".
type Filter struct {
	CampusID  int
	RoomID    int
	Status    string
	Category  string
	Capturer  string // substring match on full name or student number
	Staff     string // substring match on room staff name or number
	MinCost   *float64
	MaxCost   *float64
	DateFrom  string // procured_date lower bound
	DateTo    string
	AllocFrom string // allocated_date lower bound
	AllocTo   string
}

// Parse reads filters from the query string. Unparsable or unknown
// values are dropped and reported as user-facing warnings; they never
// fail the request.
func Parse(q url.Values) (Filter, []string) {
	var f Filter
	var warnings []string

	warn := func(format string, args ...interface{}) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	if v := q.Get("campus_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil && id > 0 {
			f.CampusID = id
		} else {
			warn("ignoring invalid campus_id %q", v)
		}
	}
	if v := q.Get("room_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil && id > 0 {
			f.RoomID = id
		} else {
			warn("ignoring invalid room_id %q", v)
		}
	}
	if v := q.Get("status"); v != "" {
		s := strings.ToLower(v)
		if contains(validation.ValidItemStatuses, s) {
			f.Status = s
		} else {
			warn("ignoring unknown status %q", v)
		}
	}
	if v := q.Get("category"); v != "" {
		c := strings.ToLower(v)
		if contains(validation.ValidItemCategories, c) {
			f.Category = c
		} else {
			warn("ignoring unknown category %q", v)
		}
	}
	f.Capturer = strings.TrimSpace(q.Get("capturer"))
	f.Staff = strings.TrimSpace(q.Get("staff"))

	if v := q.Get("min_cost"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n >= 0 {
			f.MinCost = &n
		} else {
			warn("ignoring invalid min_cost %q", v)
		}
	}
	if v := q.Get("max_cost"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n >= 0 {
			f.MaxCost = &n
		} else {
			warn("ignoring invalid max_cost %q", v)
		}
	}

	parseDate := func(key string, dst *string) {
		v := q.Get(key)
		if v == "" {
			return
		}
		if _, err := time.Parse("2006-01-02", v); err == nil {
			*dst = v
		} else {
			warn("ignoring invalid %s %q", key, v)
		}
	}
	parseDate("date_from", &f.DateFrom)
	parseDate("date_to", &f.DateTo)
	parseDate("alloc_from", &f.AllocFrom)
	parseDate("alloc_to", &f.AllocTo)

	return f, warnings
}

// baseSelect is the joined projection every inventory read uses.
const baseSelect = `SELECT i.id, i.asset_number, COALESCE(i.serial_number,''), i.name,
	COALESCE(i.description,''), COALESCE(i.color,''), COALESCE(i.brand,''),
	COALESCE(i.capacity,''), COALESCE(i.category,''), i.cost, i.status,
	COALESCE(i.procured_date,''), COALESCE(i.allocated_date,''), i.captured_at,
	i.room_id, r.name, c.id, c.name,
	i.data_capturer_id, COALESCE(dc.full_name,''),
	COALESCE(r.staff_name,''), COALESCE(r.staff_number,'')
	FROM items i
	JOIN rooms r ON r.id = i.room_id
	JOIN campuses c ON c.id = r.campus_id
	LEFT JOIN data_capturers dc ON dc.id = i.data_capturer_id
	WHERE 1=1`

// Build composes the scoped, filtered inventory query. The campus scope
// restriction is applied before any user filter, so out-of-scope rows
// can never be selected regardless of the filter values.
func Build(f Filter, campusIDs []int) (string, []interface{}) {
	query := baseSelect
	var args []interface{}

	scopeSQL, scopeArgs := scope.CampusFilterSQL(campusIDs, "c.id")
	query += scopeSQL
	args = append(args, scopeArgs...)

	if f.CampusID != 0 {
		query += " AND c.id = ?"
		args = append(args, f.CampusID)
	}
	if f.RoomID != 0 {
		query += " AND i.room_id = ?"
		args = append(args, f.RoomID)
	}
	if f.Status != "" {
		query += " AND i.status = ?"
		args = append(args, f.Status)
	}
	if f.Category != "" {
		query += " AND i.category = ?"
		args = append(args, f.Category)
	}
	if f.Capturer != "" {
		query += " AND (dc.full_name LIKE ? COLLATE NOCASE OR dc.student_number LIKE ? COLLATE NOCASE)"
		term := "%" + f.Capturer + "%"
		args = append(args, term, term)
	}
	if f.Staff != "" {
		query += " AND (r.staff_name LIKE ? COLLATE NOCASE OR r.staff_number LIKE ? COLLATE NOCASE)"
		term := "%" + f.Staff + "%"
		args = append(args, term, term)
	}
	if f.MinCost != nil {
		query += " AND i.cost >= ?"
		args = append(args, *f.MinCost)
	}
	if f.MaxCost != nil {
		query += " AND i.cost <= ?"
		args = append(args, *f.MaxCost)
	}
	if f.DateFrom != "" {
		query += " AND i.procured_date >= ?"
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		query += " AND i.procured_date <= ?"
		args = append(args, f.DateTo)
	}
	if f.AllocFrom != "" {
		query += " AND i.allocated_date >= ?"
		args = append(args, f.AllocFrom)
	}
	if f.AllocTo != "" {
		query += " AND i.allocated_date <= ?"
		args = append(args, f.AllocTo)
	}

	query += " ORDER BY c.name, r.name, i.captured_at DESC"
	return query, args
}

// Query runs the scoped, filtered inventory query and scans the joined
// projection.
func Query(db *sql.DB, f Filter, campusIDs []int) ([]models.Item, error) {
	query, args := Build(f, campusIDs)
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// QueryByID fetches one item in the same joined projection. Scope is
// the caller's responsibility.
func QueryByID(db *sql.DB, id int) (models.Item, error) {
	return scanItem(db.QueryRow(baseSelect+" AND i.id = ?", id))
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (models.Item, error) {
	var it models.Item
	var cost sql.NullFloat64
	var capturerID sql.NullInt64
	err := row.Scan(&it.ID, &it.AssetNumber, &it.SerialNumber, &it.Name,
		&it.Description, &it.Color, &it.Brand,
		&it.Capacity, &it.Category, &cost, &it.Status,
		&it.ProcuredDate, &it.AllocatedDate, &it.CapturedAt,
		&it.RoomID, &it.RoomName, &it.CampusID, &it.CampusName,
		&capturerID, &it.CapturedBy,
		&it.RoomStaffName, &it.RoomStaffNumber)
	if err != nil {
		return it, err
	}
	if cost.Valid {
		it.Cost = &cost.Float64
	}
	if capturerID.Valid {
		n := int(capturerID.Int64)
		it.CapturerID = &n
	}
	return it, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
