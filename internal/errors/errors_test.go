package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNormalizationError(t *testing.T) {
	err := NewNormalizationError("premium", "sum-1", "missing credit price")

	expectedMsg := "premium record 'sum-1' dropped: missing credit price"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	// Missing id is rendered with a placeholder
	err2 := NewNormalizationError("free", "", "missing id")
	expectedMsg2 := "free record '<missing id>' dropped: missing id"
	if err2.Error() != expectedMsg2 {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg2, err2.Error())
	}

	if !errors.Is(err, ErrNormalization) {
		t.Error("Expected error to match ErrNormalization sentinel")
	}
	if errors.Is(err, ErrConfiguration) {
		t.Error("Error should not match ErrConfiguration")
	}
}

func TestInsufficientCreditsError(t *testing.T) {
	err := NewInsufficientCreditsError("user-1", "item-9", 20, 10)

	if err.Shortfall != 10 {
		t.Errorf("Expected shortfall 10, got %d", err.Shortfall)
	}

	expectedMsg := "user 'user-1' needs 10 more credits to unlock item 'item-9' (price 20, balance 10)"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	if !errors.Is(err, ErrInsufficientCredits) {
		t.Error("Expected error to match ErrInsufficientCredits sentinel")
	}
}

func TestLedgerContentionError(t *testing.T) {
	err := NewLedgerContentionError("user-1", 3, 150*time.Millisecond)

	expectedMsg := "account 'user-1' is busy: gave up after 3 attempts (150ms)"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
	if !err.Retryable() {
		t.Error("Expected contention to be retryable")
	}
	if !errors.Is(err, ErrLedgerContention) {
		t.Error("Expected error to match ErrLedgerContention sentinel")
	}
}

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError("subject_id", "unknown subject 'x'")

	expectedMsg := "invalid value for 'subject_id': unknown subject 'x'"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	err2 := NewConfigurationError("", "bad")
	if err2.Error() != "invalid configuration: bad" {
		t.Errorf("Unexpected message '%s'", err2.Error())
	}

	if !errors.Is(err, ErrConfiguration) {
		t.Error("Expected error to match ErrConfiguration sentinel")
	}
}

func TestItemNotFoundError(t *testing.T) {
	err := NewItemNotFoundError("item-404")

	expectedMsg := "item with ID 'item-404' not found"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
	if !errors.Is(err, ErrItemNotFound) {
		t.Error("Expected error to match ErrItemNotFound sentinel")
	}
}

func TestJobNotFoundError(t *testing.T) {
	err := NewJobNotFoundError("job-7")

	expectedMsg := "job with ID 'job-7' not found"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
	if !errors.Is(err, ErrJobNotFound) {
		t.Error("Expected error to match ErrJobNotFound sentinel")
	}
	if errors.Is(err, ErrItemNotFound) {
		t.Error("Error should not match ErrItemNotFound")
	}
}

func TestSourceUnavailableError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewSourceUnavailableError("fetch notes", cause)

	if !errors.Is(err, ErrSourceUnavailable) {
		t.Error("Expected error to match ErrSourceUnavailable sentinel")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected error to unwrap to its cause")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("page_size", "must be positive")

	expectedMsg := "validation error for field 'page_size': must be positive"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	err2 := NewValidationError("", "must be positive")
	if err2.Error() != "validation error: must be positive" {
		t.Errorf("Unexpected message '%s'", err2.Error())
	}

	if !errors.Is(err, ErrInvalidInput) {
		t.Error("Expected error to match ErrInvalidInput sentinel")
	}
}

func TestErrorChaining(t *testing.T) {
	// Wrapped errors keep matching their sentinel and type
	wrappedErr := fmt.Errorf("redeem: %w", NewInsufficientCreditsError("u", "i", 30, 5))

	if !errors.Is(wrappedErr, ErrInsufficientCredits) {
		t.Error("Expected wrapped error to still match ErrInsufficientCredits sentinel")
	}

	var creditsErr *InsufficientCreditsError
	if !errors.As(wrappedErr, &creditsErr) {
		t.Fatal("Expected to be able to unwrap to InsufficientCreditsError")
	}
	if creditsErr.Shortfall != 25 {
		t.Errorf("Expected shortfall 25, got %d", creditsErr.Shortfall)
	}
}
