package errors

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common error conditions
var (
	// ErrNormalization is returned for a source record that cannot be turned into a content item
	ErrNormalization = errors.New("normalization failed")

	// ErrInsufficientCredits is returned when a balance cannot cover a redemption
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrLedgerContention is returned when an account's serialization scope could not be acquired in time
	ErrLedgerContention = errors.New("ledger contention")

	// ErrConfiguration is returned for invalid filter or redemption parameters
	ErrConfiguration = errors.New("invalid configuration")

	// ErrItemNotFound is returned when an item is not in the current corpus
	ErrItemNotFound = errors.New("item not found")

	// ErrSourceUnavailable is returned when the content collaborator could not be read
	ErrSourceUnavailable = errors.New("content source unavailable")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrJobNotFound is returned when a background job does not exist
	ErrJobNotFound = errors.New("job not found")
)

// NormalizationError describes a dropped source record.
type NormalizationError struct {
	RecordID string
	Tier     string
	Reason   string
}

func (e *NormalizationError) Error() string {
	id := e.RecordID
	if id == "" {
		id = "<missing id>"
	}
	return fmt.Sprintf("%s record '%s' dropped: %s", e.Tier, id, e.Reason)
}

func (e *NormalizationError) Is(target error) bool {
	return target == ErrNormalization
}

// NewNormalizationError creates a new NormalizationError
func NewNormalizationError(tier, recordID, reason string) *NormalizationError {
	return &NormalizationError{RecordID: recordID, Tier: tier, Reason: reason}
}

// InsufficientCreditsError carries the exact amount the user is short.
type InsufficientCreditsError struct {
	UserID    string
	ItemID    string
	Price     int
	Balance   int
	Shortfall int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("user '%s' needs %d more credits to unlock item '%s' (price %d, balance %d)",
		e.UserID, e.Shortfall, e.ItemID, e.Price, e.Balance)
}

func (e *InsufficientCreditsError) Is(target error) bool {
	return target == ErrInsufficientCredits
}

// NewInsufficientCreditsError creates a new InsufficientCreditsError
func NewInsufficientCreditsError(userID, itemID string, price, balance int) *InsufficientCreditsError {
	return &InsufficientCreditsError{
		UserID:    userID,
		ItemID:    itemID,
		Price:     price,
		Balance:   balance,
		Shortfall: price - balance,
	}
}

// LedgerContentionError is a transient failure; callers may retry the same request.
type LedgerContentionError struct {
	UserID   string
	Attempts int
	Waited   time.Duration
}

func (e *LedgerContentionError) Error() string {
	return fmt.Sprintf("account '%s' is busy: gave up after %d attempts (%s)", e.UserID, e.Attempts, e.Waited)
}

func (e *LedgerContentionError) Is(target error) bool {
	return target == ErrLedgerContention
}

// Retryable reports that the failed operation can be safely repeated.
func (e *LedgerContentionError) Retryable() bool { return true }

// NewLedgerContentionError creates a new LedgerContentionError
func NewLedgerContentionError(userID string, attempts int, waited time.Duration) *LedgerContentionError {
	return &LedgerContentionError{UserID: userID, Attempts: attempts, Waited: waited}
}

// ConfigurationError reports a filter or redemption parameter that can never be valid.
// It is surfaced immediately and never retried.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid value for '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Message)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message}
}

// ItemNotFoundError represents an item missing from the corpus
type ItemNotFoundError struct {
	ItemID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item with ID '%s' not found", e.ItemID)
}

func (e *ItemNotFoundError) Is(target error) bool {
	return target == ErrItemNotFound
}

// NewItemNotFoundError creates a new ItemNotFoundError
func NewItemNotFoundError(itemID string) *ItemNotFoundError {
	return &ItemNotFoundError{ItemID: itemID}
}

// SourceUnavailableError wraps a failed read from the content collaborator.
type SourceUnavailableError struct {
	Operation string
	Err       error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("content source unavailable during %s: %v", e.Operation, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

func (e *SourceUnavailableError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// NewSourceUnavailableError creates a new SourceUnavailableError
func NewSourceUnavailableError(operation string, err error) *SourceUnavailableError {
	return &SourceUnavailableError{Operation: operation, Err: err}
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// JobNotFoundError represents a job lookup failure
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job with ID '%s' not found", e.JobID)
}

func (e *JobNotFoundError) Is(target error) bool {
	return target == ErrJobNotFound
}

// NewJobNotFoundError creates a new JobNotFoundError
func NewJobNotFoundError(jobID string) *JobNotFoundError {
	return &JobNotFoundError{JobID: jobID}
}
