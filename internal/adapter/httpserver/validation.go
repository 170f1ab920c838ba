package httpserver

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

func invalid(field, code, msg string) ValidationResult {
	return ValidationResult{Errors: []ValidationError{{Field: field, Code: code, Message: msg}}}
}

// ValidateAssessmentID checks a path id before it reaches the repository.
func ValidateAssessmentID(id string) ValidationResult {
	if id == "" {
		return invalid("id", "REQUIRED", "Assessment ID is required")
	}
	if len(id) > 64 {
		return invalid("id", "TOO_LONG", "Assessment ID is too long (max 64 characters)")
	}
	if _, err := uuid.Parse(id); err != nil {
		return invalid("id", "INVALID_FORMAT", "Assessment ID must be a UUID")
	}
	return ValidationResult{Valid: true}
}

// ValidateReportFormat accepts "", "markdown", "md" and "html".
func ValidateReportFormat(format string) ValidationResult {
	switch strings.ToLower(format) {
	case "", "markdown", "md", "html":
		return ValidationResult{Valid: true}
	}
	return invalid("format", "INVALID_VALUE", "Format must be one of: markdown, html")
}

// SanitizeString strips NUL bytes, trims whitespace and bounds the length of
// short identifier fields.
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.TrimSpace(input)
	if len(input) > 1000 {
		input = input[:1000]
	}
	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, "")
	}
	return input
}
