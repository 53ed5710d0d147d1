package httpserver

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of an input validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

var (
	validID   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	validTerm = regexp.MustCompile(`^[\p{L}\p{N}\s_.,+#/-]+$`)
)

// ValidateUserID validates the caller-supplied user identity header.
func ValidateUserID(id string) ValidationResult {
	if id == "" {
		return ValidationResult{Valid: false, Errors: []ValidationError{{
			Field: "user_id", Code: "REQUIRED", Message: "user id is required",
		}}}
	}
	if len(id) > 100 {
		return ValidationResult{Valid: false, Errors: []ValidationError{{
			Field: "user_id", Code: "TOO_LONG", Message: "user id is too long (max 100 characters)",
		}}}
	}
	if !validID.MatchString(id) {
		return ValidationResult{Valid: false, Errors: []ValidationError{{
			Field: "user_id", Code: "INVALID_FORMAT", Message: "user id contains invalid characters",
		}}}
	}
	return ValidationResult{Valid: true}
}

// ValidateSearchTerm validates a job-board search term.
func ValidateSearchTerm(term string) ValidationResult {
	term = strings.TrimSpace(term)
	if term == "" {
		return ValidationResult{Valid: false, Errors: []ValidationError{{
			Field: "search_term", Code: "REQUIRED", Message: "search term is required",
		}}}
	}
	if len(term) > 200 {
		return ValidationResult{Valid: false, Errors: []ValidationError{{
			Field: "search_term", Code: "TOO_LONG", Message: "search term is too long (max 200 characters)",
		}}}
	}
	if !validTerm.MatchString(term) {
		return ValidationResult{Valid: false, Errors: []ValidationError{{
			Field: "search_term", Code: "INVALID_FORMAT", Message: "search term contains invalid characters",
		}}}
	}
	return ValidationResult{Valid: true}
}

// SanitizeString strips null bytes and control noise from free-form input.
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
