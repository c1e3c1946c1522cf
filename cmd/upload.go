package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gstportal/internal/extraction"
	"gstportal/internal/logger"
	"gstportal/pkg/models"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [invoice-file]",
	Short: "Upload a purchase invoice and extract its GST data with Gemini",
	Long: `Process a purchase invoice document with the Gemini API to extract
structured GST data such as taxable value, IGST, supplier GSTIN, and line
items.

The extracted figures are immediately compared against the government
record for the invoice. Invoices whose taxable value deviates by more
than 1% are flagged as mismatches requiring review; the rest await
reconciliation approval.

Required environment variables:
  GEMINI_API_KEY - API key for the Generative Language API

Optional environment variables:
  GEMINI_MODEL - model name (default: gemini-2.5-flash)
  GST_LEDGER_PATH - invoice ledger file (default: invoices.json)`,
	Example: `  # Upload a PDF invoice
  gstportal upload invoice.pdf

  # Upload a scanned invoice image
  gstportal upload scan.png

  # Save the created record to a JSON file
  gstportal upload invoice.pdf -o record.json

  # Upload with a custom timeout
  gstportal upload large-invoice.pdf --timeout 180`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

// mediaTypes maps accepted file extensions to the MIME type sent inline
// to Gemini.
var mediaTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringP("output", "o", "", "Output file path for the created record (default: stdout summary)")
	uploadCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
}

func runUpload(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("upload")

	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	docPath := args[0]

	log.Info().
		Str("file", docPath).
		Str("output", outputPath).
		Int("timeout", timeoutSecs).
		Msg("Starting invoice upload")

	mediaType, err := validateDocument(docPath, log)
	if err != nil {
		return err
	}

	document, err := os.ReadFile(docPath)
	if err != nil {
		log.Error().
			Err(err).
			Str("file", docPath).
			Msg("Failed to read invoice document")
		return fmt.Errorf("failed to read invoice document: %w", err)
	}

	service, err := newPortalService(true)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	log.Info().
		Str("file", docPath).
		Str("media_type", mediaType).
		Int("size", len(document)).
		Msg("Extracting invoice data with Gemini")

	startTime := time.Now()
	record, err := service.Upload(ctx, document, mediaType, filepath.Base(docPath))
	if err != nil {
		return handleUploadError(err, log)
	}

	log.Info().
		Str("id", record.ID).
		Str("invoice_number", record.InvoiceNumber).
		Str("supplier", record.SupplierName).
		Str("status", record.Status.String()).
		Dur("duration", time.Since(startTime)).
		Msg("Invoice uploaded successfully")

	return outputUploadResult(record, outputPath, log)
}

// validateDocument checks the file and returns its MIME type.
func validateDocument(docPath string, log zerolog.Logger) (string, error) {
	fileInfo, err := os.Stat(docPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().
				Str("file", docPath).
				Msg("Invoice file not found")
			return "", fmt.Errorf("invoice file not found: %s", docPath)
		}
		if os.IsPermission(err) {
			log.Error().
				Str("file", docPath).
				Msg("Permission denied accessing invoice file")
			return "", fmt.Errorf("permission denied accessing invoice file: %s", docPath)
		}
		return "", fmt.Errorf("error accessing invoice file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		log.Error().
			Str("file", docPath).
			Msg("Path is not a regular file")
		return "", fmt.Errorf("path is not a regular file: %s", docPath)
	}

	if fileInfo.Size() == 0 {
		log.Error().
			Str("file", docPath).
			Msg("Invoice file is empty")
		return "", fmt.Errorf("invoice file is empty: %s", docPath)
	}

	if fileInfo.Size() > extraction.MaxDocumentSizeBytes {
		log.Error().
			Str("file", docPath).
			Int64("size", fileInfo.Size()).
			Int64("max_size", extraction.MaxDocumentSizeBytes).
			Msg("Invoice file exceeds maximum size limit")
		return "", fmt.Errorf("invoice file too large (%d bytes). Maximum size is %d bytes (20MB)",
			fileInfo.Size(), extraction.MaxDocumentSizeBytes)
	}

	ext := strings.ToLower(filepath.Ext(docPath))
	mediaType, ok := mediaTypes[ext]
	if !ok {
		log.Error().
			Str("file", docPath).
			Str("extension", ext).
			Msg("Unsupported document format")
		return "", fmt.Errorf("unsupported document format %q. Supported: .pdf, .png, .jpg, .jpeg, .webp", ext)
	}

	return mediaType, nil
}

// handleUploadError provides user-friendly error messages for upload failures
func handleUploadError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Invoice upload failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("invoice extraction timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("invoice upload was canceled")
	case errors.Is(err, extraction.ErrMissingAPIKey):
		return fmt.Errorf("GEMINI_API_KEY is not set. Please add it to your environment or .env file")
	case errors.Is(err, extraction.ErrRateLimited):
		return fmt.Errorf("Gemini API rate limit exceeded and retries exhausted. Wait a moment and try again")
	case errors.Is(err, extraction.ErrServiceUnavailable):
		return fmt.Errorf("Gemini API is currently unavailable. This may be a transient outage; try again shortly: %w", err)
	case errors.Is(err, extraction.ErrRequestRejected):
		return fmt.Errorf("Gemini API rejected the request. Check your API key and model name: %w", err)
	case errors.Is(err, extraction.ErrEmptyResponse), errors.Is(err, extraction.ErrMalformedPayload):
		return fmt.Errorf("Gemini returned no usable invoice data. The document may not be a readable invoice: %w", err)
	default:
		return fmt.Errorf("invoice upload failed: %w", err)
	}
}

// outputUploadResult writes the created record as JSON to a file, or prints
// a human summary to stdout.
func outputUploadResult(record *models.InvoiceRecord, outputPath string, log zerolog.Logger) error {
	if outputPath != "" {
		jsonData, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal invoice record to JSON")
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}
		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(jsonData)).
			Msg("Invoice record written to file")
		return nil
	}

	fmt.Printf("Invoice %s uploaded (id %s)\n", record.InvoiceNumber, shortID(record.ID))
	fmt.Printf("  Supplier:      %s (%s)\n", record.SupplierName, record.SupplierGSTIN)
	fmt.Printf("  Taxable value: %s (govt: %s)\n",
		formatCurrency(record.TaxableValue), formatCurrency(record.GovtData.TaxableValue))
	fmt.Printf("  IGST:          %s (govt: %s)\n",
		formatCurrency(record.IGST), formatCurrency(record.GovtData.IGST))
	fmt.Printf("  Status:        %s\n", record.Status.Label())

	switch record.Status {
	case models.StatusMismatch:
		fmt.Println("\nThe extracted taxable value deviates more than 1% from the government record.")
		fmt.Printf("Review it with: gstportal reconcile --approve %s (or --reject)\n", shortID(record.ID))
	case models.StatusPending:
		fmt.Printf("\nApprove it for filing with: gstportal reconcile --approve %s\n", shortID(record.ID))
	}
	return nil
}
