// Package portal orchestrates the invoice lifecycle for the presentation
// layer: upload-and-classify, per-record reconciliation actions, summary
// queries, and the GSTR-3B bulk filing gate.
package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gstportal/internal/extraction"
	"gstportal/internal/govdata"
	"gstportal/internal/logger"
	"gstportal/internal/recon"
	"gstportal/internal/store"
	"gstportal/pkg/models"
)

// Service wires the extraction client, the government-data source, and the
// persistence collaborator into the portal's command and query surface.
// All methods are safe for concurrent use.
type Service struct {
	extractor extraction.Extractor
	govt      govdata.Source
	store     store.Store
	gate      *recon.Gate
	log       zerolog.Logger
	now       func() time.Time
}

// New creates a portal service over the given collaborators.
func New(extractor extraction.Extractor, govt govdata.Source, st store.Store) *Service {
	return &Service{
		extractor: extractor,
		govt:      govt,
		store:     st,
		gate:      recon.NewGate(st),
		log:       logger.WithComponent("portal"),
		now:       time.Now,
	}
}

// Upload runs the full intake pipeline: extract structured fields, attach
// the government comparison figures, classify the initial status from the
// taxable-value pair, and persist the record. On extraction failure no
// record is created.
func (s *Service) Upload(ctx context.Context, document []byte, mediaType, fileName string) (*models.InvoiceRecord, error) {
	const op = "Upload"

	inv, err := s.extractor.Extract(ctx, document, mediaType)
	if err != nil {
		return nil, fmt.Errorf("%s: extraction failed for %s: %w", op, fileName, err)
	}

	govt := s.govt.Derive(inv)
	rec := &models.InvoiceRecord{
		InvoiceNumber: inv.InvoiceNumber,
		InvoiceDate:   inv.InvoiceDate,
		SupplierName:  inv.SupplierName,
		SupplierGSTIN: inv.SupplierGSTIN,
		TaxableValue:  inv.TaxableValue,
		IGST:          inv.IGST,
		LineItems:     inv.LineItems,
		GovtData:      govt,
		Status:        recon.InitialStatus(inv.TaxableValue, govt.TaxableValue),
		FileName:      fileName,
		UploadTime:    s.now(),
	}

	id, err := s.store.Create(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to persist invoice %s: %w", op, inv.InvoiceNumber, err)
	}
	rec.ID = id

	s.log.Info().
		Str("id", id).
		Str("invoice_number", rec.InvoiceNumber).
		Str("supplier", rec.SupplierName).
		Str("status", rec.Status.String()).
		Msg("Invoice uploaded and classified")
	return rec, nil
}

// Approve applies the user approval action (manual override) to the record.
func (s *Service) Approve(ctx context.Context, id string) (*models.InvoiceRecord, error) {
	return s.transition(ctx, id, recon.ActionApprove)
}

// Reject flags the record as a mismatch for manual review.
func (s *Service) Reject(ctx context.Context, id string) (*models.InvoiceRecord, error) {
	return s.transition(ctx, id, recon.ActionReject)
}

func (s *Service) transition(ctx context.Context, id string, action recon.Action) (*models.InvoiceRecord, error) {
	const op = "transition"

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	next, err := recon.Transition(rec.Status, action)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reconciledAt := s.now()
	err = s.store.Update(ctx, id, store.Patch{
		Status:             &next,
		ReconciliationTime: &reconciledAt,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to persist %s on %s: %w", op, action, id, err)
	}

	rec.Status = next
	rec.ReconciliationTime = &reconciledAt

	s.log.Info().
		Str("id", id).
		Str("action", action.String()).
		Str("status", next.String()).
		Msg("Invoice status transitioned")
	return rec, nil
}

// FileAll runs the bulk filing gate over the current snapshot.
func (s *Service) FileAll(ctx context.Context) (*recon.FilingReport, error) {
	const op = "FileAll"

	records, err := s.store.Snapshot(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.gate.FileAll(ctx, records)
}

// Invoices returns the current snapshot, newest upload first.
func (s *Service) Invoices(ctx context.Context) ([]models.InvoiceRecord, error) {
	return s.store.Snapshot(ctx, nil)
}

// Dashboard returns the dashboard summary over the current snapshot.
func (s *Service) Dashboard(ctx context.Context) (recon.DashboardSummary, error) {
	records, err := s.store.Snapshot(ctx, nil)
	if err != nil {
		return recon.DashboardSummary{}, err
	}
	return recon.Dashboard(records), nil
}

// FilingSummary returns the filing summary over the current snapshot.
func (s *Service) FilingSummary(ctx context.Context) (recon.FilingSummary, error) {
	records, err := s.store.Snapshot(ctx, nil)
	if err != nil {
		return recon.FilingSummary{}, err
	}
	return recon.Filing(records), nil
}

// CanFile reports whether the bulk filing gate would currently permit
// filing.
func (s *Service) CanFile(ctx context.Context) (bool, error) {
	records, err := s.store.Snapshot(ctx, nil)
	if err != nil {
		return false, err
	}
	return recon.CanFile(records), nil
}

// Watch returns a live snapshot stream that delivers the collection after
// every mutation until ctx is canceled.
func (s *Service) Watch(ctx context.Context) (<-chan []models.InvoiceRecord, error) {
	return s.store.Subscribe(ctx, nil)
}
