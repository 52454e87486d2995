// Package api provides the HTTP surface of the discovery engine.
package api

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/notes-discovery/model"
	"github.com/gcbaptista/notes-discovery/services"
)

const (
	maxQueryLength = 256
	maxIDLength    = 128
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of validation operations
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

func newValidationResult() *ValidationResult {
	return &ValidationResult{Valid: true}
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// ValidateID checks a user or item identifier taken from the path or body
func ValidateID(field, id string) *ValidationResult {
	result := newValidationResult()

	if id == "" {
		result.AddError(field, "Identifier is required")
		return result
	}
	if strings.TrimSpace(id) != id {
		result.AddError(field, "Identifier cannot have leading or trailing whitespace")
		return result
	}
	if len(id) > maxIDLength {
		result.AddError(field, fmt.Sprintf("Identifier cannot be longer than %d bytes", maxIDLength))
	}
	return result
}

// ValidateSearchQuery checks the parts of a search the engine does not
// validate itself: query length and user ID format.
func ValidateSearchQuery(q services.SearchQuery) *ValidationResult {
	result := newValidationResult()

	if utf8.RuneCountInString(q.QueryString) > maxQueryLength {
		result.AddError("query", fmt.Sprintf("Query cannot be longer than %d characters", maxQueryLength))
	}
	if q.UserID != "" {
		if idResult := ValidateID("user_id", q.UserID); idResult.HasErrors() {
			result.Errors = append(result.Errors, idResult.Errors...)
			result.Valid = false
		}
	}
	return result
}

// ParseSearchParams builds a search from the query string of a GET /search.
// Numbers that do not parse are reported; range checks are left to the engine.
func ParseSearchParams(c *gin.Context) (services.SearchQuery, *ValidationResult) {
	result := newValidationResult()
	q := services.SearchQuery{
		QueryString: c.Query("q"),
		UserID:      c.Query("user_id"),
		Filters: model.SearchFilters{
			SubjectID:  c.Query("subject_id"),
			University: c.Query("university"),
			FileKind:   model.FileKind(strings.ToLower(c.Query("file_kind"))),
		},
	}

	parseInt := func(name string, target *int) {
		raw := c.Query(name)
		if raw == "" {
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			result.AddError(name, "Must be an integer")
			return
		}
		*target = v
	}
	parseInt("page", &q.Page)
	parseInt("page_size", &q.PageSize)

	if raw := c.Query("min_rating"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			result.AddError("min_rating", "Must be a number")
		} else {
			q.Filters.MinRating = &v
		}
	}

	if validated := ValidateSearchQuery(q); validated.HasErrors() {
		result.Errors = append(result.Errors, validated.Errors...)
		result.Valid = false
	}
	return q, result
}

// SendValidationError sends a standardized validation error response
func SendValidationError(c *gin.Context, result *ValidationResult) {
	SendStructuredValidationError(c, result)
}

// ValidateJSONBinding binds the request body into target and reports a
// failure as a validation result
func ValidateJSONBinding(c *gin.Context, target interface{}) *ValidationResult {
	result := newValidationResult()

	if err := c.ShouldBindJSON(target); err != nil {
		result.AddError("request_body", "Invalid request body: "+err.Error())
	}

	return result
}
