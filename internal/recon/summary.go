package recon

import (
	"sort"

	"github.com/shopspring/decimal"
	"gstportal/pkg/models"
)

// DashboardSummary is the dashboard view over a snapshot of invoice records.
// The two sums cover every record; the three counts exclude Filed records.
type DashboardSummary struct {
	TotalValue decimal.Decimal // sum of taxable value over all records
	TotalITC   decimal.Decimal // sum of IGST over all records
	Pending    int
	Reconciled int
	Mismatch   int
}

// FilingSummary is the GSTR-3B preparation view over unfiled records.
type FilingSummary struct {
	// TotalTaxable sums taxable value over every record not yet Filed.
	TotalTaxable decimal.Decimal

	// EligibleITC sums IGST over strictly Reconciled records. Pending and
	// Mismatch invoices contribute nothing even when their variance is
	// within tolerance.
	EligibleITC decimal.Decimal
}

// Dashboard aggregates a snapshot into the dashboard summary. Accumulation
// is exact; rounding happens only at presentation.
func Dashboard(records []models.InvoiceRecord) DashboardSummary {
	s := DashboardSummary{
		TotalValue: decimal.Zero,
		TotalITC:   decimal.Zero,
	}
	for _, rec := range records {
		s.TotalValue = s.TotalValue.Add(rec.TaxableValue)
		s.TotalITC = s.TotalITC.Add(rec.IGST)
		switch rec.Status {
		case models.StatusPending:
			s.Pending++
		case models.StatusReconciled:
			s.Reconciled++
		case models.StatusMismatch:
			s.Mismatch++
		case models.StatusFiled:
			// Filed records stay in the sums but out of the counts.
		}
	}
	return s
}

// Filing aggregates a snapshot into the filing summary.
func Filing(records []models.InvoiceRecord) FilingSummary {
	s := FilingSummary{
		TotalTaxable: decimal.Zero,
		EligibleITC:  decimal.Zero,
	}
	for _, rec := range records {
		switch rec.Status {
		case models.StatusFiled:
			continue
		case models.StatusReconciled:
			s.EligibleITC = s.EligibleITC.Add(rec.IGST)
		case models.StatusPending, models.StatusMismatch:
			// Counted toward turnover, never toward the ITC claim.
		}
		s.TotalTaxable = s.TotalTaxable.Add(rec.TaxableValue)
	}
	return s
}

// RecentActivity returns up to n records ordered newest upload first. The
// order is presentation-only and carries no aggregation semantics.
func RecentActivity(records []models.InvoiceRecord, n int) []models.InvoiceRecord {
	sorted := make([]models.InvoiceRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UploadTime.After(sorted[j].UploadTime)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
