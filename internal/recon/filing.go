package recon

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gstportal/internal/logger"
	"gstportal/internal/store"
	"gstportal/pkg/models"
)

var (
	// ErrNotReadyToFile is returned when the collection still holds Pending
	// or Mismatch invoices; the gate refuses without touching any record.
	ErrNotReadyToFile = errors.New("collection has unresolved invoices, filing refused")

	// ErrPartialFiling is returned when some of the bulk status updates
	// failed. The succeeded subset stays Filed; there is no rollback.
	ErrPartialFiling = errors.New("bulk filing partially failed")
)

// CanFile reports whether bulk filing is permitted: no record may be Pending
// or Mismatch. An empty collection is trivially fileable.
func CanFile(records []models.InvoiceRecord) bool {
	for _, rec := range records {
		switch rec.Status {
		case models.StatusPending, models.StatusMismatch:
			return false
		case models.StatusReconciled, models.StatusFiled:
		}
	}
	return true
}

// FilingReport lists the per-record outcome of a bulk filing run.
type FilingReport struct {
	// Filed holds the ids transitioned to Filed, sorted for stable output.
	Filed []string

	// Failed maps ids whose persistence update failed to the error.
	Failed map[string]error

	// FiledAt is the filing timestamp stamped on every transitioned record.
	FiledAt time.Time
}

// Gate performs the only bulk transition in the system: moving every
// Reconciled record to Filed.
type Gate struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewGate creates a filing gate over the given persistence collaborator.
func NewGate(st store.Store) *Gate {
	return &Gate{
		store: st,
		log:   logger.WithComponent("filing-gate"),
		now:   time.Now,
	}
}

// FileAll transitions every non-Filed record in the snapshot to Filed,
// stamping the filing date. The per-record persistence updates run
// concurrently; the gate waits for all of them. Updates are independent at
// the storage layer, so a failing subset leaves the collection in a mixed
// state, reported via ErrPartialFiling and the returned FilingReport.
func (g *Gate) FileAll(ctx context.Context, records []models.InvoiceRecord) (*FilingReport, error) {
	const op = "FileAll"

	if !CanFile(records) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotReadyToFile)
	}

	report := &FilingReport{
		Failed:  make(map[string]error),
		FiledAt: g.now(),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, rec := range records {
		if rec.Status == models.StatusFiled {
			continue
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			status := models.StatusFiled
			filedAt := report.FiledAt
			err := g.store.Update(ctx, id, store.Patch{
				Status:     &status,
				FilingDate: &filedAt,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed[id] = err
				return
			}
			report.Filed = append(report.Filed, id)
		}(rec.ID)
	}
	wg.Wait()
	sort.Strings(report.Filed)

	if len(report.Failed) > 0 {
		g.log.Error().
			Int("filed", len(report.Filed)).
			Int("failed", len(report.Failed)).
			Msg("Bulk filing left the collection in a mixed state")
		return report, fmt.Errorf("%s: %w: %d of %d updates failed",
			op, ErrPartialFiling, len(report.Failed), len(report.Failed)+len(report.Filed))
	}

	g.log.Info().
		Int("filed", len(report.Filed)).
		Time("filed_at", report.FiledAt).
		Msg("GSTR-3B bulk filing completed")
	return report, nil
}
