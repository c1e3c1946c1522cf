package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gstportal/internal/logger"
	"gstportal/pkg/models"
)

// File is a Store persisted to a JSON ledger file, so separate CLI
// invocations see the same collection. All reads and subscriptions are
// served by the embedded in-memory state; every mutation is flushed to disk
// before it is acknowledged.
type File struct {
	*Memory
	path string
	log  zerolog.Logger
}

// OpenFile loads the ledger at path, or starts an empty one if the file
// does not exist yet.
func OpenFile(path string) (*File, error) {
	const op = "OpenFile"

	var records []models.InvoiceRecord
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run; the file is created on the first mutation.
	case err != nil:
		return nil, fmt.Errorf("%s: failed to read ledger %s: %w", op, path, err)
	default:
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%s: corrupt ledger %s: %w", op, path, err)
		}
	}

	f := &File{
		Memory: newMemoryWith(records),
		path:   path,
		log:    logger.WithComponent("store-file"),
	}
	f.log.Debug().
		Str("path", path).
		Int("records", len(records)).
		Msg("Invoice ledger opened")
	return f, nil
}

// Create persists the record in memory and flushes the ledger.
func (f *File) Create(ctx context.Context, rec *models.InvoiceRecord) (string, error) {
	id, err := f.Memory.Create(ctx, rec)
	if err != nil {
		return "", err
	}
	if err := f.flush(); err != nil {
		return "", err
	}
	return id, nil
}

// Update applies the patch in memory and flushes the ledger.
func (f *File) Update(ctx context.Context, id string, patch Patch) error {
	if err := f.Memory.Update(ctx, id, patch); err != nil {
		return err
	}
	return f.flush()
}

func (f *File) flush() error {
	const op = "flush"

	f.Memory.mu.RLock()
	records := f.Memory.allLocked()
	f.Memory.mu.RUnlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: failed to encode ledger: %w", op, err)
	}
	if err := os.WriteFile(f.path, data, 0644); err != nil {
		return fmt.Errorf("%s: failed to write ledger %s: %w", op, f.path, err)
	}
	return nil
}
