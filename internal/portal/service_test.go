package portal

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gstportal/internal/recon"
	"gstportal/internal/store"
	"gstportal/pkg/models"
)

// stubExtractor returns a canned invoice or error per call, in order.
type stubExtractor struct {
	invoices []*models.ExtractedInvoice
	errs     []error
	calls    int
}

func (s *stubExtractor) Extract(ctx context.Context, document []byte, mediaType string) (*models.ExtractedInvoice, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.invoices[i], nil
}

// stubSource scales the extracted figures by a fixed factor so tests
// control which side of the 1% tolerance an upload lands on.
type stubSource struct {
	factor decimal.Decimal
}

func (s stubSource) Derive(inv *models.ExtractedInvoice) models.GovtData {
	return models.GovtData{
		TaxableValue: inv.TaxableValue.Mul(s.factor).Round(2),
		IGST:         inv.IGST.Mul(s.factor).Round(2),
	}
}

func extracted(number, taxable, igst string) *models.ExtractedInvoice {
	return &models.ExtractedInvoice{
		InvoiceNumber: number,
		SupplierName:  "Acme Traders",
		SupplierGSTIN: "27AAAAA0000A1Z5",
		TaxableValue:  decimal.RequireFromString(taxable),
		IGST:          decimal.RequireFromString(igst),
	}
}

func identity() stubSource {
	return stubSource{factor: decimal.NewFromInt(1)}
}

func TestUploadCreatesPendingRecord(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	service := New(&stubExtractor{
		invoices: []*models.ExtractedInvoice{extracted("INV-001", "1000", "180")},
	}, identity(), st)

	rec, err := service.Upload(ctx, []byte("doc"), "application/pdf", "inv.pdf")
	require.NoError(t, err)

	require.NotEmpty(t, rec.ID)
	assert.Equal(t, models.StatusPending, rec.Status)
	assert.Equal(t, "inv.pdf", rec.FileName)
	assert.False(t, rec.UploadTime.IsZero())
	assert.True(t, rec.GovtData.TaxableValue.Equal(rec.TaxableValue))

	stored, err := st.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestUploadFlagsMismatch(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	// The government record sits 5% below the extracted figure.
	service := New(&stubExtractor{
		invoices: []*models.ExtractedInvoice{extracted("INV-001", "1000", "180")},
	}, stubSource{factor: decimal.RequireFromString("0.95")}, st)

	rec, err := service.Upload(ctx, []byte("doc"), "application/pdf", "inv.pdf")
	require.NoError(t, err)
	assert.Equal(t, models.StatusMismatch, rec.Status)
}

func TestUploadExtractionFailureCreatesNothing(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	service := New(&stubExtractor{
		errs: []error{errors.New("model unavailable")},
	}, identity(), st)

	_, err := service.Upload(ctx, []byte("doc"), "application/pdf", "inv.pdf")
	require.Error(t, err)

	snap, err := st.Snapshot(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestApproveAndReject(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	service := New(&stubExtractor{
		invoices: []*models.ExtractedInvoice{
			extracted("INV-001", "1000", "180"),
			extracted("INV-002", "2000", "360"),
		},
	}, identity(), st)

	first, err := service.Upload(ctx, []byte("a"), "application/pdf", "a.pdf")
	require.NoError(t, err)
	second, err := service.Upload(ctx, []byte("b"), "application/pdf", "b.pdf")
	require.NoError(t, err)

	approved, err := service.Approve(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReconciled, approved.Status)
	require.NotNil(t, approved.ReconciliationTime)

	rejected, err := service.Reject(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusMismatch, rejected.Status)
	require.NotNil(t, rejected.ReconciliationTime)

	// A reconciled invoice accepts no further action.
	_, err = service.Approve(ctx, first.ID)
	require.ErrorIs(t, err, recon.ErrIllegalTransition)

	// A rejected invoice can still be approved as a manual override.
	overridden, err := service.Approve(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReconciled, overridden.Status)
}

func TestApproveUnknownRecord(t *testing.T) {
	service := New(&stubExtractor{}, identity(), store.NewMemory())

	_, err := service.Approve(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestFullReconciliationCycle(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	service := New(&stubExtractor{
		invoices: []*models.ExtractedInvoice{
			extracted("INV-001", "1000", "100"),
			extracted("INV-002", "2000", "200"),
			extracted("INV-003", "500", "50"),
		},
	}, identity(), st)

	var ids []string
	for _, doc := range []string{"a", "b", "c"} {
		rec, err := service.Upload(ctx, []byte(doc), "application/pdf", doc+".pdf")
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	// Filing is blocked while anything is pending.
	canFile, err := service.CanFile(ctx)
	require.NoError(t, err)
	assert.False(t, canFile)

	_, err = service.FileAll(ctx)
	require.ErrorIs(t, err, recon.ErrNotReadyToFile)

	// Approve two, reject one: still blocked by the mismatch.
	_, err = service.Approve(ctx, ids[0])
	require.NoError(t, err)
	_, err = service.Approve(ctx, ids[1])
	require.NoError(t, err)
	_, err = service.Reject(ctx, ids[2])
	require.NoError(t, err)

	filing, err := service.FilingSummary(ctx)
	require.NoError(t, err)
	assert.True(t, filing.TotalTaxable.Equal(decimal.RequireFromString("3500")),
		"total taxable: got %s", filing.TotalTaxable)
	assert.True(t, filing.EligibleITC.Equal(decimal.RequireFromString("300")),
		"eligible ITC: got %s", filing.EligibleITC)

	canFile, err = service.CanFile(ctx)
	require.NoError(t, err)
	assert.False(t, canFile)

	// Resolve the last mismatch and file.
	_, err = service.Approve(ctx, ids[2])
	require.NoError(t, err)

	canFile, err = service.CanFile(ctx)
	require.NoError(t, err)
	assert.True(t, canFile)

	report, err := service.FileAll(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Filed, 3)
	assert.Empty(t, report.Failed)

	// Every record is filed; the dashboard still sums them but counts none.
	dashboard, err := service.Dashboard(ctx)
	require.NoError(t, err)
	assert.True(t, dashboard.TotalValue.Equal(decimal.RequireFromString("3500")))
	assert.True(t, dashboard.TotalITC.Equal(decimal.RequireFromString("350")))
	assert.Zero(t, dashboard.Pending)
	assert.Zero(t, dashboard.Reconciled)
	assert.Zero(t, dashboard.Mismatch)

	records, err := service.Invoices(ctx)
	require.NoError(t, err)
	for _, rec := range records {
		assert.Equal(t, models.StatusFiled, rec.Status)
		require.NotNil(t, rec.FilingDate)
	}
}

func TestWatchDeliversSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.NewMemory()
	service := New(&stubExtractor{
		invoices: []*models.ExtractedInvoice{extracted("INV-001", "1000", "180")},
	}, identity(), st)

	updates, err := service.Watch(ctx)
	require.NoError(t, err)

	snap := <-updates
	assert.Empty(t, snap)

	_, err = service.Upload(ctx, []byte("doc"), "application/pdf", "inv.pdf")
	require.NoError(t, err)

	snap = <-updates
	require.Len(t, snap, 1)
	assert.Equal(t, "INV-001", snap[0].InvoiceNumber)
}
