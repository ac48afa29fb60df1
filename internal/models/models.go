package models

// APIResponse is the standard JSON envelope for all API responses.
type APIResponse struct {
	Data     interface{} `json:"data"`
	Meta     *Meta       `json:"meta,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total int `json:"total,omitempty"`
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

type Admin struct {
	ID           int      `json:"id"`
	Username     string   `json:"username"`
	Name         string   `json:"name"`
	Surname      string   `json:"surname"`
	IsSuperAdmin bool     `json:"is_super_admin"`
	CampusIDs    []int    `json:"campus_ids"`
	CampusNames  []string `json:"campus_names,omitempty"`
}

type DataCapturer struct {
	ID            int    `json:"id"`
	FullName      string `json:"full_name"`
	StudentNumber string `json:"student_number"`
	CanCreateRoom bool   `json:"can_create_room"`
	AdminID       *int   `json:"admin_id"`
	CampusIDs     []int  `json:"campus_ids"`
	ItemCount     int    `json:"item_count,omitempty"`
}

type Campus struct {
	ID                  int    `json:"id"`
	Name                string `json:"name"`
	RoomCreationEnabled bool   `json:"room_creation_enabled"`
	RoomCount           int    `json:"room_count,omitempty"`
}

type Room struct {
	ID             int    `json:"id"`
	CampusID       int    `json:"campus_id"`
	CampusName     string `json:"campus_name,omitempty"`
	Name           string `json:"name"`
	StaffName      string `json:"staff_name"`
	StaffNumber    string `json:"staff_number"`
	Description    string `json:"description"`
	Faculty        string `json:"faculty"`
	PhotoPath      string `json:"photo_path,omitempty"`
	IsActive       bool   `json:"is_active"`
	DeletionReason string `json:"deletion_reason,omitempty"`
}

type Item struct {
	ID              int      `json:"id"`
	AssetNumber     string   `json:"asset_number"`
	SerialNumber    string   `json:"serial_number"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Color           string   `json:"color"`
	Brand           string   `json:"brand"`
	Capacity        string   `json:"capacity"`
	Category        string   `json:"category"`
	Cost            *float64 `json:"cost"`
	Status          string   `json:"status"`
	ProcuredDate    string   `json:"procured_date"`
	AllocatedDate   string   `json:"allocated_date"`
	CapturedAt      string   `json:"captured_at"`
	RoomID          int      `json:"room_id"`
	RoomName        string   `json:"room_name,omitempty"`
	CampusID        int      `json:"campus_id,omitempty"`
	CampusName      string   `json:"campus_name,omitempty"`
	CapturerID      *int     `json:"capturer_id"`
	CapturedBy      string   `json:"captured_by,omitempty"`
	RoomStaffName   string   `json:"room_staff_name,omitempty"`
	RoomStaffNumber string   `json:"room_staff_number,omitempty"`
	DisposedByID    *int     `json:"disposed_by_id,omitempty"`
	DisposalReason  string   `json:"disposal_reason,omitempty"`
}

type ItemMovement struct {
	ID           int    `json:"id"`
	ItemID       int    `json:"item_id"`
	FromRoomID   *int   `json:"from_room_id"`
	FromRoomName string `json:"from_room_name,omitempty"`
	ToRoomID     int    `json:"to_room_id"`
	ToRoomName   string `json:"to_room_name,omitempty"`
	MovedBy      string `json:"moved_by"`
	MovedAt      string `json:"moved_at"`
}

type InventoryExport struct {
	ID          int    `json:"id"`
	Format      string `json:"format"`
	Principal   string `json:"principal"`
	RecordCount int    `json:"record_count"`
	ExportedAt  string `json:"exported_at"`
}

type AuditEntry struct {
	ID        int    `json:"id"`
	Actor     string `json:"actor"`
	Action    string `json:"action"`
	Module    string `json:"module"`
	RecordID  string `json:"record_id"`
	Summary   string `json:"summary"`
	CreatedAt string `json:"created_at"`
}

type DashboardData struct {
	TotalCampuses  int `json:"total_campuses"`
	TotalRooms     int `json:"total_rooms"`
	TotalCapturers int `json:"total_capturers"`
	TotalItems     int `json:"total_items"`
	NeedsRepair    int `json:"needs_repair"`
	CapturedByMe   int `json:"captured_by_me,omitempty"`
}
