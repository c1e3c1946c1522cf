package extraction

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gstportal/pkg/models"
)

// Field placeholders applied when the model omits or mangles a value.
// Coercion never fails: a partially readable document still produces a
// record.
const (
	placeholderText     = "N/A"
	placeholderSupplier = "Unknown Supplier"
)

// parsePayload decodes the JSON object embedded in the model response and
// coerces every field to the pipeline contract.
func (x *GeminiExtractor) parsePayload(payload string) (*models.ExtractedInvoice, error) {
	const op = "parsePayload"

	var raw map[string]any
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, &ExtractionError{Op: op, Err: ErrMalformedPayload, Details: err.Error()}
	}

	inv := &models.ExtractedInvoice{
		InvoiceNumber: stringField(raw, "invoiceNumber", placeholderText),
		InvoiceDate:   x.dateField(raw, "invoiceDate"),
		SupplierName:  stringField(raw, "supplierName", placeholderSupplier),
		SupplierGSTIN: stringField(raw, "supplierGSTIN", placeholderText),
		TaxableValue:  decimalField(raw, "taxableValue"),
		IGST:          decimalField(raw, "igst"),
		LineItems:     x.lineItemsField(raw),
	}
	return inv, nil
}

// dateField parses an ISO calendar date, defaulting to today's date when
// missing or unparseable.
func (x *GeminiExtractor) dateField(m map[string]any, key string) time.Time {
	if s, ok := m[key].(string); ok {
		if date, err := time.Parse("2006-01-02", s); err == nil {
			return date
		}
		x.log.Warn().Str("field", key).Str("value", s).Msg("Unparseable date, defaulting to today")
	}
	now := x.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// lineItemsField coerces the line-item array, defaulting to empty when the
// field is absent or malformed.
func (x *GeminiExtractor) lineItemsField(m map[string]any) []models.LineItem {
	arr, ok := m["lineItems"].([]any)
	if !ok {
		return []models.LineItem{}
	}
	items := make([]models.LineItem, 0, len(arr))
	for _, entry := range arr {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, models.LineItem{
			Description: stringField(obj, "description", placeholderText),
			Quantity:    decimalField(obj, "quantity"),
			UnitPrice:   decimalField(obj, "unitPrice"),
		})
	}
	return items
}

// stringField safely extracts a string value, applying the fallback for
// missing, null, or empty values.
func stringField(m map[string]any, key, fallback string) string {
	if value, exists := m[key]; exists && value != nil {
		if s, ok := value.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// decimalField coerces a numeric value to an exact decimal, defaulting to 0
// for missing or unparseable values. Numbers arriving as strings are
// tolerated.
func decimalField(m map[string]any, key string) decimal.Decimal {
	value, exists := m[key]
	if !exists || value == nil {
		return decimal.Zero
	}
	switch v := value.(type) {
	case json.Number:
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return d
		}
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return decimal.Zero
}
