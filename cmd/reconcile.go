package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gstportal/internal/logger"
	"gstportal/internal/portal"
	"gstportal/internal/recon"
	"gstportal/pkg/models"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Review uploaded invoices against government records",
	Long: `List uploaded purchase invoices side by side with their government
records, showing the taxable value and IGST variance for each.

Invoices flagged as mismatches (variance above 1%) or pending review can
be approved for filing or rejected back to mismatch. Approval is the CA's
manual override; it marks the invoice as reconciled even when the figures
differ.`,
	Example: `  # List all invoices with their variances
  gstportal reconcile

  # Approve an invoice for filing (id may be abbreviated)
  gstportal reconcile --approve 1b9f03a2

  # Send an invoice back for review
  gstportal reconcile --reject 1b9f03a2

  # Keep the table live as records change
  gstportal reconcile --watch`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().String("approve", "", "Approve the invoice with this id for filing")
	reconcileCmd.Flags().String("reject", "", "Reject the invoice with this id back to mismatch")
	reconcileCmd.Flags().Bool("watch", false, "Watch for changes and reprint the table")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("reconcile")

	approveID, _ := cmd.Flags().GetString("approve")
	rejectID, _ := cmd.Flags().GetString("reject")
	watch, _ := cmd.Flags().GetBool("watch")

	if approveID != "" && rejectID != "" {
		return fmt.Errorf("--approve and --reject are mutually exclusive")
	}

	service, err := newPortalService(false)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(5*time.Minute, log)
	defer cancel()

	if approveID != "" || rejectID != "" {
		return runReconcileAction(ctx, service, approveID, rejectID)
	}

	if watch {
		return runReconcileWatch(ctx, service)
	}

	records, err := service.Invoices(ctx)
	if err != nil {
		return fmt.Errorf("failed to load invoices: %w", err)
	}
	printReconciliationTable(records)
	return nil
}

func runReconcileAction(ctx context.Context, service *portal.Service, approveID, rejectID string) error {
	log := logger.WithComponent("reconcile-action")

	records, err := service.Invoices(ctx)
	if err != nil {
		return fmt.Errorf("failed to load invoices: %w", err)
	}

	var record *models.InvoiceRecord
	if approveID != "" {
		id, err := resolveRecordID(records, approveID)
		if err != nil {
			return err
		}
		record, err = service.Approve(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("id", id).Msg("Approve failed")
			return handleReconcileError(err, "approve", id)
		}
		fmt.Printf("Invoice %s approved for filing (status: %s)\n",
			record.InvoiceNumber, record.Status.Label())
		return nil
	}

	id, err := resolveRecordID(records, rejectID)
	if err != nil {
		return err
	}
	record, err = service.Reject(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Reject failed")
		return handleReconcileError(err, "reject", id)
	}
	fmt.Printf("Invoice %s sent back for review (status: %s)\n",
		record.InvoiceNumber, record.Status.Label())
	return nil
}

// runReconcileWatch reprints the table after every ledger change until
// interrupted.
func runReconcileWatch(ctx context.Context, service *portal.Service) error {
	updates, err := service.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch invoice ledger: %w", err)
	}

	for records := range updates {
		fmt.Print("\033[H\033[2J")
		printReconciliationTable(records)
		fmt.Println("\nWatching for changes (Ctrl-C to stop)...")
	}
	return nil
}

// handleReconcileError provides user-friendly messages for failed
// reconciliation actions.
func handleReconcileError(err error, action, id string) error {
	if errors.Is(err, recon.ErrIllegalTransition) {
		return fmt.Errorf("cannot %s invoice %s: %w", action, shortID(id), err)
	}
	return fmt.Errorf("failed to %s invoice %s: %w", action, shortID(id), err)
}

func printReconciliationTable(records []models.InvoiceRecord) {
	if len(records) == 0 {
		fmt.Println("No invoices uploaded yet. Use 'gstportal upload' to add one.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tINVOICE\tSUPPLIER\tTAXABLE\tGOVT TAXABLE\tVARIANCE\tIGST VAR\tSTATUS")

	for _, rec := range records {
		taxable := recon.Variance(rec.TaxableValue, rec.GovtData.TaxableValue)
		igst := recon.Variance(rec.IGST, rec.GovtData.IGST)

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(rec.ID),
			rec.InvoiceNumber,
			rec.SupplierName,
			formatCurrency(rec.TaxableValue),
			formatCurrency(rec.GovtData.TaxableValue),
			formatVariance(taxable),
			formatVariance(igst),
			rec.Status.Label(),
		)
	}
	w.Flush()
}

// formatVariance renders a variance percentage, marking undefined
// percentages (government value of zero) explicitly.
func formatVariance(v recon.VarianceResult) string {
	if !v.Defined {
		if v.IsMismatch {
			return "n/a (!)"
		}
		return "n/a"
	}
	s := v.Percentage.StringFixed(2) + "%"
	if v.IsMismatch {
		s += " (!)"
	}
	return s
}
