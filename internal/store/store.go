// Package store defines the persistence collaborator boundary for invoice
// records: create, partial update, one-shot snapshots, and live snapshot
// subscriptions. The core never deletes records and never alters schema.
package store

import (
	"context"
	"errors"
	"time"

	"gstportal/pkg/models"
)

// ErrNotFound is returned when no record exists under the given identifier.
var ErrNotFound = errors.New("invoice record not found")

// Patch is the set of fields a status transition may change. Nil fields are
// left untouched; set fields win over any concurrent writer (last write
// wins per record).
type Patch struct {
	Status             *models.Status
	ReconciliationTime *time.Time
	FilingDate         *time.Time
}

// Filter selects records for snapshots and subscriptions. A nil Filter
// selects everything.
type Filter func(*models.InvoiceRecord) bool

// Store is the persistence collaborator. Implementations must be safe for
// concurrent use by multiple goroutines and tolerate concurrent writers.
type Store interface {
	// Create persists a new record and returns its system-assigned id.
	Create(ctx context.Context, rec *models.InvoiceRecord) (string, error)

	// Get returns a copy of the record with the given id.
	Get(ctx context.Context, id string) (*models.InvoiceRecord, error)

	// Update applies a partial-field patch to the record with the given id.
	Update(ctx context.Context, id string, patch Patch) error

	// Snapshot returns a copy of the matching records ordered newest upload
	// first.
	Snapshot(ctx context.Context, filter Filter) ([]models.InvoiceRecord, error)

	// Subscribe returns a channel that delivers a fresh ordered snapshot
	// after every mutation, starting with the current state. Slow consumers
	// only ever observe the latest snapshot; intermediate ones may be
	// dropped. The channel closes when ctx is canceled.
	Subscribe(ctx context.Context, filter Filter) (<-chan []models.InvoiceRecord, error)
}
