package extraction_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gstportal/internal/extraction"
)

// Example demonstrates basic usage of the Gemini extraction client.
func Example() {
	// Load .env file (using godotenv in main)
	// This should be done in your main() function:
	//
	// if err := godotenv.Load(); err != nil {
	//     log.Printf("Warning: Could not load .env file: %v", err)
	// }

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Create extraction client - the API key comes from the environment
	config := extraction.DefaultConfig()
	config.APIKey = os.Getenv("GEMINI_API_KEY")
	extractor, err := extraction.NewGeminiExtractor(config)
	if err != nil {
		log.Fatal(err)
	}

	// Read the invoice document
	document, err := os.ReadFile("sample_invoice.pdf")
	if err != nil {
		log.Fatalf("Failed to read invoice: %v", err)
	}

	// Extract structured GST data
	invoice, err := extractor.Extract(ctx, document, "application/pdf")
	if err != nil {
		log.Fatalf("Failed to extract invoice: %v", err)
	}

	fmt.Printf("Invoice %s from %s (%s)\n",
		invoice.InvoiceNumber,
		invoice.SupplierName,
		invoice.SupplierGSTIN)
	fmt.Printf("Taxable value: %s, IGST: %s\n",
		invoice.TaxableValue, invoice.IGST)

	for _, item := range invoice.LineItems {
		fmt.Printf("  %s x%s @ %s = %s\n",
			item.Description, item.Quantity, item.UnitPrice, item.Total())
	}
}
