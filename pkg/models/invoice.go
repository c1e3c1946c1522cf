package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is a single product or service line on a purchase invoice.
// It has no lifecycle of its own; it belongs to exactly one InvoiceRecord.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// Total returns quantity x unit price. It is computed on demand and never stored.
func (li LineItem) Total() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// GovtData holds the paired government-side figures (GSTR-2A/2B) an invoice
// is reconciled against.
type GovtData struct {
	TaxableValue decimal.Decimal `json:"taxableValue"`
	IGST         decimal.Decimal `json:"igst"`
}

// ExtractedInvoice is the set of fields the extraction service produces for
// an uploaded document, before a record identity, government data, or a
// status have been attached.
type ExtractedInvoice struct {
	InvoiceNumber string          `json:"invoiceNumber"`
	InvoiceDate   time.Time       `json:"invoiceDate"`
	SupplierName  string          `json:"supplierName"`
	SupplierGSTIN string          `json:"supplierGSTIN"`
	TaxableValue  decimal.Decimal `json:"taxableValue"`
	IGST          decimal.Decimal `json:"igst"`
	LineItems     []LineItem      `json:"lineItems"`
}

// InvoiceRecord is one uploaded purchase document. GovtData is present from
// the moment of creation; after creation a record is mutated only through
// status transitions (status plus the relevant timestamp).
type InvoiceRecord struct {
	// Core identifiers
	ID            string `json:"id"` // system-assigned, opaque
	InvoiceNumber string `json:"invoice_number"`

	// Extracted document fields
	InvoiceDate   time.Time       `json:"invoice_date"`
	SupplierName  string          `json:"supplier_name"`
	SupplierGSTIN string          `json:"supplier_gstin"` // 15-character tax identifier
	TaxableValue  decimal.Decimal `json:"taxable_value"`
	IGST          decimal.Decimal `json:"igst"`
	LineItems     []LineItem      `json:"line_items"`

	// Paired comparison figures, attached at creation
	GovtData GovtData `json:"govt_data"`

	// Lifecycle
	Status             Status     `json:"status"`
	FileName           string     `json:"file_name"`
	UploadTime         time.Time  `json:"upload_time"`
	ReconciliationTime *time.Time `json:"reconciliation_time,omitempty"`
	FilingDate         *time.Time `json:"filing_date,omitempty"`
}
