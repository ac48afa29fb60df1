package response

import (
	"encoding/json"
	"net/http"

	"catrack/internal/models"
)

// JSON writes a successful API response with the given data.
func JSON(w http.ResponseWriter, data interface{}) {
	json.NewEncoder(w).Encode(models.APIResponse{Data: data})
}

// JSONMeta writes a successful API response with pagination metadata.
func JSONMeta(w http.ResponseWriter, data interface{}, total, page, limit int) {
	json.NewEncoder(w).Encode(models.APIResponse{
		Data: data,
		Meta: &models.Meta{Total: total, Page: page, Limit: limit},
	})
}

// JSONWarn writes a successful response carrying user-facing warnings,
// used when part of the request (a bad filter value) was ignored.
func JSONWarn(w http.ResponseWriter, data interface{}, warnings []string, total, page, limit int) {
	json.NewEncoder(w).Encode(models.APIResponse{
		Data:     data,
		Meta:     &models.Meta{Total: total, Page: page, Limit: limit},
		Warnings: warnings,
	})
}

// Err writes a JSON error response with the given message and HTTP status code.
func Err(w http.ResponseWriter, msg string, code int) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// FieldErrs writes a 400 response carrying per-field validation errors.
func FieldErrs(w http.ResponseWriter, errs interface{}) {
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]interface{}{"error": "validation failed", "fields": errs})
}

// DecodeBody decodes a JSON request body into the given value.
func DecodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
