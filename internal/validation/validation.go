package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ValidationError represents a structured validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects multiple field errors.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (ve *ValidationErrors) Add(field, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message})
}

func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

func (ve *ValidationErrors) Error() string {
	msgs := make([]string, len(ve.Errors))
	for i, e := range ve.Errors {
		msgs[i] = e.Field + ": " + e.Message
	}
	return strings.Join(msgs, "; ")
}

// RequireField checks a required string field is non-empty.
func RequireField(ve *ValidationErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		ve.Add(field, "is required")
	}
}

// ValidateEnum checks a field is one of allowed values.
func ValidateEnum(ve *ValidationErrors, field, value string, allowed []string) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	ve.Add(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
}

// ValidateDate checks a field is a valid date (YYYY-MM-DD).
func ValidateDate(ve *ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		ve.Add(field, "must be a valid date (YYYY-MM-DD)")
	}
}

// ValidateMaxLength checks a field does not exceed max characters.
func ValidateMaxLength(ve *ValidationErrors, field, value string, max int) {
	if len(value) > max {
		ve.Add(field, fmt.Sprintf("must be at most %d characters", max))
	}
}

// ValidateMinLength checks a non-empty field has at least min characters.
func ValidateMinLength(ve *ValidationErrors, field, value string, min int) {
	if value != "" && len(value) < min {
		ve.Add(field, fmt.Sprintf("must be at least %d characters", min))
	}
}

var studentNumberRe = regexp.MustCompile(`^[0-9]{8}$`)

// ValidateStudentNumber checks the 8-digit student number format. Empty
// values fail too; a capturer without one could never log in.
func ValidateStudentNumber(ve *ValidationErrors, field, value string) {
	if !studentNumberRe.MatchString(value) {
		ve.Add(field, "must be an 8-digit student number")
	}
}

// ValidateNonNegative checks an optional numeric field is >= 0.
func ValidateNonNegative(ve *ValidationErrors, field string, value *float64) {
	if value != nil && *value < 0 {
		ve.Add(field, "must not be negative")
	}
}
