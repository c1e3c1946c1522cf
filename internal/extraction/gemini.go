package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"gstportal/internal/logger"
	"gstportal/pkg/models"
)

// systemPrompt instructs the model to behave as a GST document parser and
// fixes the coercion contract for missing fields.
const systemPrompt = "You are a specialized GST document parser. Your task is to accurately " +
	"extract key financial, identifying, and line-item details from the provided invoice " +
	"or purchase order image/PDF, specifically for Indian GST compliance. Return the " +
	"extracted data STRICTLY as a JSON object matching the provided schema. Ensure " +
	"'taxableValue', 'igst', 'quantity', and 'unitPrice' are returned as numeric values. " +
	"If a field is not present, return 0 for numbers and 'N/A' for strings."

// extractionInstruction is the user-facing part of every request.
const extractionInstruction = "Extract the invoice details required for GST filing: invoice " +
	"number, date (in YYYY-MM-DD format), supplier name, supplier GSTIN (15 characters), " +
	"the total Taxable Value (net amount before GST), the total IGST (Integrated Goods " +
	"and Services Tax) amount, and an array of line items. Each line item must include " +
	"its description, quantity, and unit price."

// responseSchema is the structured-output schema sent with every request.
const responseSchema = `{
  "type": "OBJECT",
  "properties": {
    "invoiceNumber": {"type": "STRING"},
    "invoiceDate": {"type": "STRING"},
    "supplierName": {"type": "STRING"},
    "supplierGSTIN": {"type": "STRING"},
    "taxableValue": {"type": "NUMBER"},
    "igst": {"type": "NUMBER"},
    "lineItems": {
      "type": "ARRAY",
      "items": {
        "type": "OBJECT",
        "properties": {
          "description": {"type": "STRING"},
          "quantity": {"type": "NUMBER"},
          "unitPrice": {"type": "NUMBER"}
        },
        "required": ["description", "quantity", "unitPrice"]
      }
    }
  },
  "required": ["invoiceNumber", "invoiceDate", "supplierGSTIN", "taxableValue", "igst", "lineItems"]
}`

// Gemini generateContent wire types, request side.
type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMIMEType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

// generateResponse covers the slice of the response the client consumes.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GeminiExtractor implements Extractor over the Gemini REST API with
// bounded retry. Instances are safe for concurrent use; concurrent
// extractions share nothing but the HTTP client.
type GeminiExtractor struct {
	config     Config
	httpClient *http.Client
	log        zerolog.Logger

	// seams for tests
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewGeminiExtractor creates an extraction client from the given config.
func NewGeminiExtractor(config Config) (*GeminiExtractor, error) {
	const op = "NewGeminiExtractor"

	if config.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingAPIKey)
	}

	defaults := DefaultConfig()
	if config.Endpoint == "" {
		config.Endpoint = defaults.Endpoint
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &GeminiExtractor{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		log:        logger.WithComponent("extraction-gemini"),
		sleep:      sleepContext,
		now:        time.Now,
	}, nil
}

// Extract sends the document for structured extraction, retrying transient
// failures (network errors, HTTP 429 and 5xx) with exponential backoff and
// jitter. Any other failure aborts the whole operation immediately.
func (x *GeminiExtractor) Extract(ctx context.Context, document []byte, mediaType string) (*models.ExtractedInvoice, error) {
	const op = "Extract"

	body, err := json.Marshal(x.buildRequest(document, mediaType))
	if err != nil {
		return nil, &ExtractionError{Op: op, Err: err, Details: "failed to encode request"}
	}

	x.log.Info().
		Str("media_type", mediaType).
		Int("document_bytes", len(document)).
		Str("model", x.config.Model).
		Msg("Starting invoice extraction")

	var lastErr error
	for attempt := 0; attempt < x.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			x.log.Warn().
				Err(lastErr).
				Int("attempt", attempt+1).
				Int("max_attempts", x.config.MaxAttempts).
				Dur("delay", delay).
				Msg("Transient extraction failure, retrying")
			if err := x.sleep(ctx, delay); err != nil {
				return nil, &ExtractionError{Op: op, Err: err, Attempts: attempt}
			}
		}

		inv, err := x.attempt(ctx, body)
		if err == nil {
			x.log.Info().
				Str("invoice_number", inv.InvoiceNumber).
				Str("supplier", inv.SupplierName).
				Str("taxable_value", inv.TaxableValue.String()).
				Str("igst", inv.IGST.String()).
				Int("line_items", len(inv.LineItems)).
				Int("attempt", attempt+1).
				Msg("Invoice extraction completed")
			return inv, nil
		}
		if !isTransient(err) {
			var extErr *ExtractionError
			if e, ok := err.(*ExtractionError); ok {
				extErr = e
				extErr.Attempts = attempt + 1
			} else {
				extErr = &ExtractionError{Op: op, Err: err, Attempts: attempt + 1}
			}
			x.log.Error().Err(extErr).Msg("Terminal extraction failure")
			return nil, extErr
		}
		lastErr = err
	}

	finalErr := &ExtractionError{
		Op:       op,
		Err:      lastErr,
		Details:  fmt.Sprintf("all %d attempts failed", x.config.MaxAttempts),
		Attempts: x.config.MaxAttempts,
	}
	x.log.Error().Err(finalErr).Msg("Extraction retry budget exhausted")
	return nil, finalErr
}

// attempt performs one HTTP round trip and payload parse. Transient failures
// are wrapped in transientError; everything else is terminal.
func (x *GeminiExtractor) attempt(ctx context.Context, body []byte) (*models.ExtractedInvoice, error) {
	const op = "attempt"

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		x.config.Endpoint, x.config.Model, x.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &ExtractionError{Op: op, Err: err, Details: "failed to build request"}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return nil, &transientError{err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &transientError{err: ErrRateLimited}
	case resp.StatusCode >= 500:
		return nil, &transientError{err: fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &ExtractionError{
			Op:         op,
			Err:        ErrRequestRejected,
			StatusCode: resp.StatusCode,
		}
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &ExtractionError{Op: op, Err: ErrMalformedPayload, Details: err.Error()}
	}

	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return nil, &ExtractionError{Op: op, Err: ErrEmptyResponse}
	}
	payload := decoded.Candidates[0].Content.Parts[0].Text
	if payload == "" {
		return nil, &ExtractionError{Op: op, Err: ErrEmptyResponse}
	}

	return x.parsePayload(payload)
}

func (x *GeminiExtractor) buildRequest(document []byte, mediaType string) generateRequest {
	return generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: extractionInstruction},
				{InlineData: &inlineData{
					MIMEType: mediaType,
					Data:     base64.StdEncoding.EncodeToString(document),
				}},
			},
		}},
		SystemInstruction: &content{
			Parts: []part{{Text: systemPrompt}},
		},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   json.RawMessage(responseSchema),
		},
	}
}

// backoffDelay returns 2^attempt seconds plus up to one second of jitter.
func backoffDelay(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	jitter := time.Duration(rand.Int63n(int64(time.Second)))
	return base + jitter
}

// sleepContext waits for d without blocking the caller's goroutine past
// context cancellation.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
