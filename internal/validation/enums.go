package validation

// Enum values - these MUST match the DB CHECK constraints in db.go.
var (
	ValidItemStatuses = []string{"active", "inactive", "needs_repair", "stolen", "disposed"}

	// Statuses a data capturer may set. Stolen and disposed are
	// reserved for administrators.
	CapturerItemStatuses = []string{"active", "inactive", "needs_repair"}

	ValidExportFormats = []string{"xlsx", "pdf"}

	ValidItemCategories = []string{
		"computer", "monitor", "printer", "furniture", "lab_equipment",
		"av_equipment", "networking", "appliance", "other",
	}
)
