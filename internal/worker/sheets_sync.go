// Package worker keeps a spreadsheet mirror of the record store up to date
// from the record event stream.
package worker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/sheets"
)

const defaultFlushInterval = 10 * time.Second

// Loader reads the current aggregate.
type Loader interface {
	Load(ctx context.Context) (core.Aggregate, error)
}

type SyncConfig struct {
	// SheetPrefix is prepended to each collection name to form the sheet
	// name, e.g. "2024 " gives "2024 expenses".
	SheetPrefix   string
	FlushInterval time.Duration
}

// SheetsSync rewrites a collection's sheet after events report a change to
// it. Events only mark collections dirty; writes happen in batches on Flush
// so a burst of changes costs one export per collection.
type SheetsSync struct {
	store    Loader
	writer   sheets.TableWriter
	prefix   string
	interval time.Duration
	logger   *log.Logger

	mu    sync.Mutex
	dirty map[string]bool
}

func NewSheetsSync(store Loader, writer sheets.TableWriter, cfg SyncConfig, logger *log.Logger) *SheetsSync {
	if logger == nil {
		logger = log.Nop()
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	return &SheetsSync{
		store:    store,
		writer:   writer,
		prefix:   cfg.SheetPrefix,
		interval: cfg.FlushInterval,
		logger:   logger.WithComponent(log.ComponentSheets),
		dirty:    make(map[string]bool),
	}
}

// collectionFor maps an event kind to the collection it changes.
func collectionFor(kind string) (string, bool) {
	switch kind {
	case amqp.KindExpense:
		return report.CollectionExpenses, true
	case amqp.KindIncome:
		return report.CollectionIncome, true
	case amqp.KindBudget:
		return report.CollectionBudgets, true
	}
	return "", false
}

// HandleEvent is an amqp consumer handler. Unknown kinds are acknowledged
// and ignored.
func (w *SheetsSync) HandleEvent(ev *amqp.RecordEvent) error {
	collection, ok := collectionFor(ev.Kind)
	if !ok {
		w.logger.Warn("Ignoring event of unknown kind", log.FieldRecordKind, ev.Kind, "event_id", ev.ID)
		return nil
	}
	w.mu.Lock()
	w.dirty[collection] = true
	w.mu.Unlock()

	w.logger.Debug("Collection marked for sync",
		"collection", collection,
		log.FieldOperation, ev.Op,
		"event_id", ev.ID)
	return nil
}

// Pending returns the collections awaiting export, sorted.
func (w *SheetsSync) Pending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.dirty))
	for c := range w.dirty {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Flush exports every dirty collection from a single snapshot. Collections
// that fail stay dirty for the next flush.
func (w *SheetsSync) Flush(ctx context.Context) error {
	w.mu.Lock()
	pending := w.dirty
	w.dirty = make(map[string]bool)
	w.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	collections := make([]string, 0, len(pending))
	for c := range pending {
		collections = append(collections, c)
	}
	slices.Sort(collections)

	err := w.export(ctx, collections)
	if err != nil {
		w.mu.Lock()
		for _, c := range collections {
			w.dirty[c] = true
		}
		w.mu.Unlock()
	}
	return err
}

// SyncAll exports every collection regardless of pending events. The worker
// runs it on startup to recover from events missed while it was down.
func (w *SheetsSync) SyncAll(ctx context.Context) error {
	return w.export(ctx, []string{report.CollectionExpenses, report.CollectionIncome, report.CollectionBudgets})
}

func (w *SheetsSync) export(ctx context.Context, collections []string) error {
	a, err := w.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	var errs []error
	for _, c := range collections {
		header, rows, err := report.Table(c, a)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		n, err := w.writer.WriteTable(ctx, w.prefix+c, header, rows)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync collection",
				"collection", c,
				log.FieldError, err)
			errs = append(errs, fmt.Errorf("sync %s: %w", c, err))
			continue
		}
		w.logger.InfoContext(ctx, "Collection synced", "collection", c, log.FieldCount, n)
	}
	return errors.Join(errs...)
}

// Run flushes on every tick until ctx is cancelled, then flushes once more
// with a short grace period.
func (w *SheetsSync) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			if err := w.Flush(final); err != nil {
				w.logger.Error("Final sync failed", log.FieldError, err)
			}
			return ctx.Err()
		case <-ticker.C:
			if err := w.Flush(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic sync failed", log.FieldError, err)
			}
		}
	}
}
