package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gstportal/internal/logger"
	"gstportal/pkg/models"
)

// Memory is an in-memory Store with push-based snapshot subscriptions. It is
// the reference implementation of the persistence collaborator and the
// backing state for the file-backed ledger.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*models.InvoiceRecord
	order   []string // insertion order of ids
	subs    map[int]*subscriber
	nextSub int
	log     zerolog.Logger
}

type subscriber struct {
	ch     chan []models.InvoiceRecord
	filter Filter
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]*models.InvoiceRecord),
		subs:    make(map[int]*subscriber),
		log:     logger.WithComponent("store-memory"),
	}
}

// newMemoryWith seeds a store with already-identified records, preserving
// the given order. Used when loading a ledger file.
func newMemoryWith(records []models.InvoiceRecord) *Memory {
	m := NewMemory()
	for i := range records {
		rec := cloneRecord(&records[i])
		m.records[rec.ID] = rec
		m.order = append(m.order, rec.ID)
	}
	return m
}

// Create stores a copy of rec under a fresh uuid and returns the id.
func (m *Memory) Create(ctx context.Context, rec *models.InvoiceRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := cloneRecord(rec)
	stored.ID = uuid.NewString()
	m.records[stored.ID] = stored
	m.order = append(m.order, stored.ID)

	m.log.Debug().
		Str("id", stored.ID).
		Str("invoice_number", stored.InvoiceNumber).
		Str("status", stored.Status.String()).
		Msg("Invoice record created")

	m.broadcastLocked()
	return stored.ID, nil
}

// Get returns a copy of the record with the given id.
func (m *Memory) Get(ctx context.Context, id string) (*models.InvoiceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneRecord(rec), nil
}

// Update applies the non-nil fields of patch to the record with the given
// id. Last write wins.
func (m *Memory) Update(ctx context.Context, id string, patch Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if patch.Status != nil {
		rec.Status = *patch.Status
	}
	if patch.ReconciliationTime != nil {
		t := *patch.ReconciliationTime
		rec.ReconciliationTime = &t
	}
	if patch.FilingDate != nil {
		t := *patch.FilingDate
		rec.FilingDate = &t
	}

	m.log.Debug().
		Str("id", id).
		Str("status", rec.Status.String()).
		Msg("Invoice record updated")

	m.broadcastLocked()
	return nil
}

// Snapshot returns matching records ordered newest upload first.
func (m *Memory) Snapshot(ctx context.Context, filter Filter) ([]models.InvoiceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked(filter), nil
}

// Subscribe registers a live snapshot stream. The current snapshot is
// delivered immediately; every later mutation replaces any undelivered one.
func (m *Memory) Subscribe(ctx context.Context, filter Filter) (<-chan []models.InvoiceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	sub := &subscriber{
		ch:     make(chan []models.InvoiceRecord, 1),
		filter: filter,
	}
	key := m.nextSub
	m.nextSub++
	m.subs[key] = sub
	sub.ch <- m.snapshotLocked(filter)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, key)
		close(sub.ch)
		m.mu.Unlock()
	}()

	return sub.ch, nil
}

// broadcastLocked pushes a fresh snapshot to every subscriber, replacing any
// stale undelivered snapshot. Callers must hold m.mu.
func (m *Memory) broadcastLocked() {
	for _, sub := range m.subs {
		snap := m.snapshotLocked(sub.filter)
		select {
		case sub.ch <- snap:
		default:
			// Drop the stale snapshot; the consumer only needs the latest.
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- snap
		}
	}
}

// snapshotLocked copies matching records sorted by upload time descending.
// Callers must hold m.mu at least for reading.
func (m *Memory) snapshotLocked(filter Filter) []models.InvoiceRecord {
	out := make([]models.InvoiceRecord, 0, len(m.order))
	for _, id := range m.order {
		rec := m.records[id]
		if filter != nil && !filter(rec) {
			continue
		}
		out = append(out, *cloneRecord(rec))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UploadTime.After(out[j].UploadTime)
	})
	return out
}

// allLocked returns every record in insertion order. Callers must hold m.mu.
func (m *Memory) allLocked() []models.InvoiceRecord {
	out := make([]models.InvoiceRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *cloneRecord(m.records[id]))
	}
	return out
}

func cloneRecord(rec *models.InvoiceRecord) *models.InvoiceRecord {
	clone := *rec
	if rec.LineItems != nil {
		clone.LineItems = make([]models.LineItem, len(rec.LineItems))
		copy(clone.LineItems, rec.LineItems)
	}
	if rec.ReconciliationTime != nil {
		t := *rec.ReconciliationTime
		clone.ReconciliationTime = &t
	}
	if rec.FilingDate != nil {
		t := *rec.FilingDate
		clone.FilingDate = &t
	}
	return &clone
}
