package extraction

import (
	"errors"
	"fmt"
)

// Common extraction errors
var (
	// ErrMissingAPIKey is returned when no Gemini API key is configured.
	ErrMissingAPIKey = errors.New("missing Gemini API key")

	// ErrRateLimited is returned when the inference service responds with
	// HTTP 429. It is transient and retried within the attempt budget.
	ErrRateLimited = errors.New("extraction service rate limit exceeded")

	// ErrServiceUnavailable is returned on HTTP 5xx responses. It is
	// transient and retried within the attempt budget.
	ErrServiceUnavailable = errors.New("extraction service unavailable")

	// ErrRequestRejected is returned on any other non-2xx response. It is
	// terminal: the whole operation aborts on the first occurrence.
	ErrRequestRejected = errors.New("extraction request rejected")

	// ErrEmptyResponse is returned when a successful response carries no
	// structured payload to parse.
	ErrEmptyResponse = errors.New("extraction service returned no structured payload")

	// ErrMalformedPayload is returned when the embedded payload is not
	// parseable JSON.
	ErrMalformedPayload = errors.New("extraction payload is not valid JSON")
)

// ExtractionError wraps errors with additional context about a failed
// extraction operation.
type ExtractionError struct {
	// Op is the operation that failed (e.g. "Extract").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string

	// StatusCode is the HTTP status of the terminal response, if any.
	StatusCode int

	// Attempts is how many attempts were made before giving up.
	Attempts int
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extraction: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("extraction: %s failed (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("extraction: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// transientError marks an attempt failure as retryable within the budget.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}
