package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	internalErrors "github.com/gcbaptista/notes-discovery/internal/errors"
)

// ErrorCode represents standardized error codes for the API
type ErrorCode string

const (
	// Client Error Codes (4xx)
	ErrorCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrorCodeInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"
	ErrorCodeInvalidJSON          ErrorCode = "INVALID_JSON"
	ErrorCodeItemNotFound         ErrorCode = "ITEM_NOT_FOUND"
	ErrorCodeJobNotFound          ErrorCode = "JOB_NOT_FOUND"
	ErrorCodeInsufficientCredits  ErrorCode = "INSUFFICIENT_CREDITS"
	ErrorCodeNotImplemented       ErrorCode = "NOT_IMPLEMENTED"

	// Server Error Codes (5xx)
	ErrorCodeInternalError     ErrorCode = "INTERNAL_ERROR"
	ErrorCodeLedgerContention  ErrorCode = "LEDGER_CONTENTION"
	ErrorCodeSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"
)

// ErrorDetail provides additional context for an error
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// APIError represents a standardized API error response
type APIError struct {
	Error     string        `json:"error"`
	Code      ErrorCode     `json:"code"`
	Message   string        `json:"message"`
	Details   []ErrorDetail `json:"details,omitempty"`
	Retryable bool          `json:"retryable,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIErrorResponse creates a standardized error response
func APIErrorResponse(code ErrorCode, message string, details ...ErrorDetail) *APIError {
	return &APIError{
		Error:     "Request failed",
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// SendError sends a standardized error response
func SendError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...ErrorDetail) {
	sendAPIError(c, statusCode, APIErrorResponse(code, message, details...))
}

func sendAPIError(c *gin.Context, statusCode int, apiErr *APIError) {
	if requestID, exists := c.Get(requestIDKey); exists {
		if id, ok := requestID.(string); ok {
			apiErr.RequestID = id
		}
	}
	c.JSON(statusCode, apiErr)
}

// SendStructuredValidationError sends a validation error with one detail per problem
func SendStructuredValidationError(c *gin.Context, result *ValidationResult) {
	details := make([]ErrorDetail, len(result.Errors))
	for i, err := range result.Errors {
		details[i] = ErrorDetail{
			Field:   err.Field,
			Message: err.Message,
			Code:    "VALIDATION_ERROR",
		}
	}

	SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, "Request validation failed", details...)
}

// SendInvalidJSONError sends a standardized invalid JSON error
func SendInvalidJSONError(c *gin.Context, err error) {
	SendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON,
		"Invalid JSON in request body: "+err.Error())
}

// SendInternalError sends a standardized internal server error
func SendInternalError(c *gin.Context, operation string, err error) {
	SendError(c, http.StatusInternalServerError, ErrorCodeInternalError,
		"Internal error during "+operation+": "+err.Error())
}

// SendErrorFor maps a domain error to its HTTP status and error code.
// Anything it does not recognize is an internal error during operation.
func SendErrorFor(c *gin.Context, operation string, err error) {
	var (
		validationErr  *internalErrors.ValidationError
		configErr      *internalErrors.ConfigurationError
		contentionErr  *internalErrors.LedgerContentionError
		creditsErr     *internalErrors.InsufficientCreditsError
		unavailableErr *internalErrors.SourceUnavailableError
	)

	switch {
	case errors.As(err, &validationErr):
		SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, "Request validation failed",
			ErrorDetail{Field: validationErr.Field, Message: validationErr.Message, Code: "VALIDATION_ERROR"})
	case errors.As(err, &configErr):
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidConfiguration, err.Error(),
			ErrorDetail{Field: configErr.Field, Message: configErr.Message, Code: "CONFIGURATION_ERROR"})
	case errors.Is(err, internalErrors.ErrItemNotFound):
		SendError(c, http.StatusNotFound, ErrorCodeItemNotFound, err.Error())
	case errors.Is(err, internalErrors.ErrJobNotFound):
		SendError(c, http.StatusNotFound, ErrorCodeJobNotFound, err.Error())
	case errors.As(err, &creditsErr):
		SendError(c, http.StatusPaymentRequired, ErrorCodeInsufficientCredits, err.Error())
	case errors.As(err, &contentionErr):
		apiErr := APIErrorResponse(ErrorCodeLedgerContention, err.Error())
		apiErr.Retryable = contentionErr.Retryable()
		c.Header("Retry-After", "1")
		sendAPIError(c, http.StatusServiceUnavailable, apiErr)
	case errors.As(err, &unavailableErr):
		apiErr := APIErrorResponse(ErrorCodeSourceUnavailable, err.Error())
		apiErr.Retryable = true
		sendAPIError(c, http.StatusServiceUnavailable, apiErr)
	default:
		SendInternalError(c, operation, err)
	}
}
