package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gstportal/internal/logger"
	"gstportal/internal/recon"
	"gstportal/pkg/models"
)

var filingCmd = &cobra.Command{
	Use:   "filing",
	Short: "Prepare and submit the GSTR-3B filing",
	Long: `Show the GSTR-3B filing summary for the current cycle: the total
taxable value awaiting filing and the input tax credit eligible to be
claimed (reconciled invoices only).

With --submit, files every invoice in the cycle. Filing is only permitted
once no invoice is pending or mismatched; resolve those first with
'gstportal reconcile'. Each invoice is filed individually, so a partial
failure leaves the successfully filed invoices filed.`,
	Example: `  # Show the filing summary and readiness checklist
  gstportal filing

  # Submit the filing (asks for confirmation)
  gstportal filing --submit

  # Submit without the confirmation prompt
  gstportal filing --submit --yes`,
	RunE: runFiling,
}

func init() {
	rootCmd.AddCommand(filingCmd)

	filingCmd.Flags().Bool("submit", false, "File all invoices in the current cycle")
	filingCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
}

func runFiling(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("filing")

	submit, _ := cmd.Flags().GetBool("submit")
	yes, _ := cmd.Flags().GetBool("yes")

	service, err := newPortalService(false)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(2*time.Minute, log)
	defer cancel()

	records, err := service.Invoices(ctx)
	if err != nil {
		return fmt.Errorf("failed to load invoices: %w", err)
	}

	summary := recon.Filing(records)
	pending, mismatch, open := filingChecklist(records)

	fmt.Println("GSTR-3B Filing Summary")
	fmt.Println("======================")
	fmt.Printf("Invoices in cycle:     %d\n", open)
	fmt.Printf("Total taxable value:   %s\n", formatCurrency(summary.TotalTaxable))
	fmt.Printf("Eligible ITC claim:    %s\n", formatCurrency(summary.EligibleITC))
	fmt.Println()

	ready := recon.CanFile(records)
	if ready {
		fmt.Println("Ready to file: all invoices are reconciled.")
	} else {
		fmt.Println("Not ready to file:")
		if pending > 0 {
			fmt.Printf("  %d invoice(s) pending reconciliation\n", pending)
		}
		if mismatch > 0 {
			fmt.Printf("  %d invoice(s) mismatched and awaiting review\n", mismatch)
		}
		fmt.Println("Resolve these with 'gstportal reconcile' before submitting.")
	}

	if !submit {
		return nil
	}
	if !ready {
		return fmt.Errorf("filing blocked: %d pending, %d mismatched", pending, mismatch)
	}
	if open == 0 {
		fmt.Println("\nNothing to file: every invoice is already filed.")
		return nil
	}

	if !yes && !confirm(cmd, fmt.Sprintf("\nFile %d invoice(s) for GSTR-3B?", open)) {
		fmt.Println("Filing aborted.")
		return nil
	}

	log.Info().
		Int("invoices", open).
		Str("eligible_itc", summary.EligibleITC.String()).
		Msg("Submitting GSTR-3B filing")

	report, err := service.FileAll(ctx)
	if err != nil && !errors.Is(err, recon.ErrPartialFiling) {
		log.Error().Err(err).Msg("Filing failed")
		return fmt.Errorf("filing failed: %w", err)
	}

	fmt.Printf("\nFiled %d invoice(s) at %s.\n",
		len(report.Filed), report.FiledAt.Format("2006-01-02 15:04:05"))

	if len(report.Failed) > 0 {
		fmt.Printf("%d invoice(s) could not be filed:\n", len(report.Failed))
		for id, failErr := range report.Failed {
			fmt.Printf("  %s: %v\n", shortID(id), failErr)
		}
		return fmt.Errorf("filing completed with %d failure(s); the listed invoices remain unfiled", len(report.Failed))
	}
	return nil
}

// filingChecklist counts the records blocking the filing gate and the
// records remaining in the current cycle.
func filingChecklist(records []models.InvoiceRecord) (pending, mismatch, open int) {
	for _, rec := range records {
		switch rec.Status {
		case models.StatusPending:
			pending++
		case models.StatusMismatch:
			mismatch++
		}
		if rec.Status != models.StatusFiled {
			open++
		}
	}
	return pending, mismatch, open
}
