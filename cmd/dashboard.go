package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gstportal/internal/logger"
	"gstportal/internal/recon"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the reconciliation dashboard",
	Long: `Summarise the invoice ledger: total invoice value, total input tax
credit, and the number of invoices pending, reconciled, and mismatched.

Totals cover every uploaded invoice including filed ones; the status
counts track only the invoices still in the current filing cycle.`,
	Example: `  # Show the dashboard
  gstportal dashboard

  # Show the dashboard with more recent activity
  gstportal dashboard --recent 10`,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)

	dashboardCmd.Flags().Int("recent", 5, "Number of recent uploads to list")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("dashboard")

	recent, _ := cmd.Flags().GetInt("recent")

	service, err := newPortalService(false)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(30*time.Second, log)
	defer cancel()

	records, err := service.Invoices(ctx)
	if err != nil {
		return fmt.Errorf("failed to load invoices: %w", err)
	}

	summary := recon.Dashboard(records)

	log.Debug().
		Int("invoices", len(records)).
		Str("total_value", summary.TotalValue.String()).
		Msg("Dashboard computed")

	fmt.Println("GST Reconciliation Dashboard")
	fmt.Println("============================")
	fmt.Printf("Total invoice value:    %s\n", formatCurrency(summary.TotalValue))
	fmt.Printf("Total input tax credit: %s\n", formatCurrency(summary.TotalITC))
	fmt.Println()
	fmt.Printf("Pending reconciliation: %d\n", summary.Pending)
	fmt.Printf("Reconciled:             %d\n", summary.Reconciled)
	fmt.Printf("Mismatch (review):      %d\n", summary.Mismatch)

	activity := recon.RecentActivity(records, recent)
	if len(activity) == 0 {
		return nil
	}

	fmt.Println("\nRecent uploads:")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "UPLOADED\tINVOICE\tSUPPLIER\tTAXABLE\tSTATUS")
	for _, rec := range activity {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.UploadTime.Format("2006-01-02 15:04"),
			rec.InvoiceNumber,
			rec.SupplierName,
			formatCurrency(rec.TaxableValue),
			rec.Status.Label(),
		)
	}
	w.Flush()
	return nil
}
