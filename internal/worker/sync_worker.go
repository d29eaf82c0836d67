// Package worker mirrors ledger events into the spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/sony/gobreaker"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

// SyncRecorder receives the outcome of every mirror call.
type SyncRecorder interface {
	SheetsSynced(event string, ok bool)
}

// Settings tune the breaker around the spreadsheet API.
type Settings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

func DefaultSettings() Settings {
	return Settings{MaxFailures: 3, OpenTimeout: time.Minute}
}

// SyncWorker applies ledger events to a RecordMirror.
type SyncWorker struct {
	mirror   sheets.RecordMirror
	breaker  *gobreaker.CircuitBreaker
	recorder SyncRecorder
	logger   *log.Logger
}

func NewSyncWorker(mirror sheets.RecordMirror, recorder SyncRecorder, settings Settings, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	logger = logger.WithComponent(log.ComponentWorker)
	return &SyncWorker{
		mirror:   mirror,
		recorder: recorder,
		logger:   logger,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "sheets-mirror",
			Timeout: settings.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= settings.MaxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// HandleLedgerEvent processes a single message from AMQP. A returned error
// makes the consumer requeue the message.
func (w *SyncWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		"type", string(msg.Type),
		log.FieldUserID, msg.UserID,
		log.FieldRecordID, msg.Record.ID)

	var call func() error
	switch msg.Type {
	case ledger.RecordAdded:
		call = func() error { return w.mirror.AppendRecord(ctx, msg.UserID, msg.Kind, msg.Record) }
	case ledger.RecordDeleted:
		call = func() error { return w.mirror.DeleteRecord(ctx, msg.Record.ID) }
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown event type", "type", string(msg.Type))
		return nil
	}

	err := w.execute(call)
	if w.recorder != nil {
		w.recorder.SheetsSynced(string(msg.Type), err == nil)
	}
	if err != nil {
		return fmt.Errorf("mirror %s %s: %w", msg.Type, msg.Record.ID, err)
	}
	return nil
}

// Backfill mirrors every stored record. Appends are idempotent, so it is safe
// to run at each startup to recover events lost while the worker was down.
func (w *SyncWorker) Backfill(ctx context.Context, repo ledger.Repository) error {
	users, err := repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	synced, failed := 0, 0
	for _, id := range slices.Sorted(maps.Keys(users)) {
		u := users[id]
		for _, kind := range []core.Kind{core.Expenses, core.Incomes} {
			for _, r := range u.Ledger(kind).All() {
				if err := ctx.Err(); err != nil {
					return err
				}
				err := w.execute(func() error { return w.mirror.AppendRecord(ctx, id, kind, r) })
				if err != nil {
					w.logger.ErrorContext(ctx, "Failed to backfill record", log.FieldRecordID, r.ID, log.FieldError, err.Error())
					failed++
					continue
				}
				synced++
			}
		}
	}

	w.logger.InfoContext(ctx, "Backfill completed", "users", len(users), "synced", synced, "errors", failed)
	if failed > 0 {
		return fmt.Errorf("backfill: %d records failed", failed)
	}
	return nil
}

func (w *SyncWorker) execute(call func() error) error {
	_, err := w.breaker.Execute(func() (any, error) {
		return nil, call()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("sheets unavailable: %w", err)
	}
	return err
}
