package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gstportal/pkg/models"
)

func testRecord(number string, uploaded time.Time) *models.InvoiceRecord {
	return &models.InvoiceRecord{
		InvoiceNumber: number,
		SupplierName:  "Acme Traders",
		SupplierGSTIN: "27AAAAA0000A1Z5",
		TaxableValue:  decimal.RequireFromString("1000"),
		IGST:          decimal.RequireFromString("180"),
		LineItems: []models.LineItem{{
			Description: "Widgets",
			Quantity:    decimal.NewFromInt(10),
			UnitPrice:   decimal.NewFromInt(100),
		}},
		Status:     models.StatusPending,
		FileName:   number + ".pdf",
		UploadTime: uploaded,
	}
}

func TestMemoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	rec := testRecord("INV-001", time.Now())
	id, err := m.Create(ctx, rec)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "INV-001", got.InvoiceNumber)
	assert.Equal(t, models.StatusPending, got.Status)

	// The caller's struct is not captured; the store returns copies.
	got.LineItems[0].Description = "mutated"
	again, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Widgets", again.LineItems[0].Description)
}

func TestMemoryGetNotFound(t *testing.T) {
	m := NewMemory()

	_, err := m.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.Create(ctx, testRecord("INV-001", time.Now()))
	require.NoError(t, err)

	status := models.StatusReconciled
	when := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	err = m.Update(ctx, id, Patch{Status: &status, ReconciliationTime: &when})
	require.NoError(t, err)

	got, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReconciled, got.Status)
	require.NotNil(t, got.ReconciliationTime)
	assert.True(t, got.ReconciliationTime.Equal(when))
	assert.Nil(t, got.FilingDate)

	// Nil patch fields leave the record untouched.
	err = m.Update(ctx, id, Patch{})
	require.NoError(t, err)
	got, err = m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReconciled, got.Status)

	err = m.Update(ctx, "missing", Patch{Status: &status})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemorySnapshotOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	for i, number := range []string{"INV-001", "INV-002", "INV-003"} {
		_, err := m.Create(ctx, testRecord(number, base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}

	snap, err := m.Snapshot(ctx, nil)
	require.NoError(t, err)
	require.Len(t, snap, 3)
	assert.Equal(t, "INV-003", snap[0].InvoiceNumber)
	assert.Equal(t, "INV-001", snap[2].InvoiceNumber)

	filtered, err := m.Snapshot(ctx, func(rec *models.InvoiceRecord) bool {
		return rec.InvoiceNumber == "INV-002"
	})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "INV-002", filtered[0].InvoiceNumber)
}

func TestMemorySubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewMemory()

	id, err := m.Create(ctx, testRecord("INV-001", time.Now()))
	require.NoError(t, err)

	updates, err := m.Subscribe(ctx, nil)
	require.NoError(t, err)

	// The current snapshot arrives immediately.
	snap := <-updates
	require.Len(t, snap, 1)
	assert.Equal(t, models.StatusPending, snap[0].Status)

	status := models.StatusReconciled
	require.NoError(t, m.Update(ctx, id, Patch{Status: &status}))

	snap = <-updates
	require.Len(t, snap, 1)
	assert.Equal(t, models.StatusReconciled, snap[0].Status)

	// Cancellation closes the stream.
	cancel()
	for range updates {
	}
}

func TestMemorySubscribeDropsStaleSnapshots(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.Create(ctx, testRecord("INV-001", time.Now()))
	require.NoError(t, err)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	updates, err := m.Subscribe(subCtx, nil)
	require.NoError(t, err)

	// Without draining, pile up several mutations; the consumer must see
	// only the latest state.
	for _, status := range []models.Status{models.StatusMismatch, models.StatusReconciled, models.StatusFiled} {
		s := status
		require.NoError(t, m.Update(ctx, id, Patch{Status: &s}))
	}

	var last []models.InvoiceRecord
	for {
		select {
		case snap := <-updates:
			last = snap
			continue
		default:
		}
		break
	}
	require.Len(t, last, 1)
	assert.Equal(t, models.StatusFiled, last[0].Status)
}

func TestMemoryCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemory()

	_, err := m.Create(ctx, testRecord("INV-001", time.Now()))
	require.ErrorIs(t, err, context.Canceled)

	_, err = m.Snapshot(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)

	_, err = m.Subscribe(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
}
