// Package extraction turns an uploaded purchase document into structured
// GST invoice fields by calling the Gemini generateContent API.
//
// The client sends the document inline (base64) together with a fixed
// instruction and a JSON response schema, and parses the structured JSON
// payload embedded in the response. Extraction is deliberately lenient
// about field quality: missing or unparseable fields are coerced to
// defaults (0 for numbers, "N/A" placeholders for strings) so a partially
// readable document still flows through the pipeline. Transport-level
// failures, on the other hand, are retried with exponential backoff and
// surfaced as descriptive errors once the attempt budget is exhausted.
//
// Required Environment Variables:
//   - GEMINI_API_KEY: API key for the Generative Language API
//   - GEMINI_MODEL: model name (optional, defaults to gemini-2.5-flash)
//   - GEMINI_ENDPOINT: API base URL (optional)
//
// API Limitations:
//   - Maximum inline document size: 20MB
//   - Supported formats: PDF, PNG, JPEG, WEBP
//   - Rate limits apply; HTTP 429 responses are retried within the budget
package extraction

import (
	"context"
	"time"

	"gstportal/pkg/models"
)

// MaxDocumentSizeBytes is the largest document accepted for inline
// extraction (20MB).
const MaxDocumentSizeBytes = 20 * 1024 * 1024

// Extractor defines the interface for document extraction services.
type Extractor interface {
	// Extract produces the structured invoice fields for a source document.
	// The media type must be the document's declared MIME type
	// (e.g. "application/pdf", "image/png").
	Extract(ctx context.Context, document []byte, mediaType string) (*models.ExtractedInvoice, error)
}

// Config holds configuration for the Gemini extraction client.
type Config struct {
	// APIKey authenticates against the Generative Language API. Required.
	APIKey string

	// Endpoint is the API base URL, without a trailing slash.
	Endpoint string

	// Model is the Gemini model name used for extraction.
	Model string

	// MaxAttempts is the total attempt budget, including the first try.
	// Default: 3.
	MaxAttempts int

	// Timeout bounds a single HTTP attempt. Default: 60 seconds.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults. The API key must
// still be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		Endpoint:    "https://generativelanguage.googleapis.com/v1beta",
		Model:       "gemini-2.5-flash",
		MaxAttempts: 3,
		Timeout:     60 * time.Second,
	}
}
