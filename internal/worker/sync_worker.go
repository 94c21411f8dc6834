// Package worker exports expenses from the LIN backend to a spreadsheet.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"lin/internal/api"
	"lin/internal/broker"
	"lin/internal/core"
	"lin/internal/eventbus"
	"lin/internal/log"
	"lin/internal/sheets"
	"lin/internal/storage"
)

// ExpenseSource reads expenses from the backend.
type ExpenseSource interface {
	GetExpense(ctx context.Context, id uuid.UUID) (core.Expense, error)
	ListExpenses(ctx context.Context, f api.ExpenseFilter) (api.Page[core.Expense], error)
}

// Ledger remembers which expense versions have been exported.
type Ledger interface {
	IsExported(ctx context.Context, id uuid.UUID, updatedAt time.Time) (bool, error)
	MarkExported(ctx context.Context, id uuid.UUID, updatedAt time.Time, ref string) error
	MarkExportError(ctx context.Context, id uuid.UUID, exportErr error) error
	MarkDeleted(ctx context.Context, id uuid.UUID) error
}

// busSource is an ExpenseSource whose cached reads are invalidated by events
// on its bus.
type busSource interface {
	Bus() *eventbus.Bus
}

var (
	_ ExpenseSource = (*api.Client)(nil)
	_ busSource     = (*api.Client)(nil)
	_ Ledger        = (*storage.SQLiteRepository)(nil)
)

// ExportWorker appends new and changed expenses to the export sheet.
type ExportWorker struct {
	source    ExpenseSource
	ledger    Ledger
	sheets    sheets.ExpenseWriter
	batchSize int
	logger    *log.Logger

	// serialises check-append-mark so two paths never export the same version twice
	mu sync.Mutex
}

func NewExportWorker(source ExpenseSource, ledger Ledger, sheets sheets.ExpenseWriter, batchSize int, logger *log.Logger) *ExportWorker {
	if batchSize < 1 {
		batchSize = core.DefaultLimit
	}
	if batchSize > core.MaxLimit {
		batchSize = core.MaxLimit
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		source:    source,
		ledger:    ledger,
		sheets:    sheets,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMessage processes one broker message. Non-expense events are
// ignored. A returned error asks the broker to redeliver.
func (w *ExportWorker) HandleMessage(ctx context.Context, msg broker.Message) error {
	if eventbus.Resource(msg.Name) != eventbus.ResourceExpense {
		return nil
	}

	id, err := expenseID(msg)
	if err != nil {
		// Redelivery cannot fix a bad payload.
		w.logger.WarnContext(ctx, "Skipping expense event without id",
			log.FieldEvent, msg.Name, log.FieldError, err)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing expense event", log.FieldEvent, msg.Name, log.FieldExpenseID, id.String())

	// The message may announce a version newer than a cached read.
	if bs, ok := w.source.(busSource); ok {
		bs.Bus().PublishEvent(msg.Event())
	}

	switch msg.Name {
	case eventbus.ExpenseDeleted:
		if err := w.ledger.MarkDeleted(ctx, id); err != nil {
			return fmt.Errorf("mark expense deleted: %w", err)
		}
		recordExport(resultDeleted)
		return nil
	case eventbus.ExpenseCreated, eventbus.ExpenseUpdated:
		expense, err := w.source.GetExpense(ctx, id)
		if api.IsNotFound(err) {
			// Deleted before we got to it.
			if err := w.ledger.MarkDeleted(ctx, id); err != nil {
				return fmt.Errorf("mark expense deleted: %w", err)
			}
			recordExport(resultDeleted)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get expense from backend: %w", err)
		}
		_, err = w.export(ctx, expense)
		return err
	}
	return nil
}

// PendingResult summarises a ProcessPending run.
type PendingResult struct {
	Checked  int `json:"checked"`
	Exported int `json:"exported"`
	Failed   int `json:"failed"`
}

// ProcessPending exports the most recent expenses that the ledger does not
// know yet. It is the backup path for events lost while the worker was down.
func (w *ExportWorker) ProcessPending(ctx context.Context) (PendingResult, error) {
	var res PendingResult

	page, err := w.source.ListExpenses(ctx, api.ExpenseFilter{
		ListParams: core.ListParams{Page: 1, Limit: w.batchSize},
	})
	if err != nil {
		return res, fmt.Errorf("list recent expenses: %w", err)
	}
	if len(page.Items) == 0 {
		return res, nil
	}

	w.logger.DebugContext(ctx, "Checking recent expenses", "count", len(page.Items))

	var errs []error
	for _, expense := range page.Items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++
		exported, err := w.export(ctx, expense)
		if err != nil {
			res.Failed++
			errs = append(errs, err)
			continue
		}
		if exported {
			res.Exported++
		}
	}

	if res.Exported > 0 || res.Failed > 0 {
		w.logger.InfoContext(ctx, "Pending export completed",
			"checked", res.Checked, "exported", res.Exported, "failed", res.Failed)
	}
	return res, errors.Join(errs...)
}

// export appends the expense unless this version is already in the ledger.
func (w *ExportWorker) export(ctx context.Context, expense core.Expense) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	version := expense.UpdatedAt.Time
	if version.IsZero() {
		version = expense.CreatedAt.Time
	}

	done, err := w.ledger.IsExported(ctx, expense.ID, version)
	if err != nil {
		return false, fmt.Errorf("check export ledger: %w", err)
	}
	if done {
		recordExport(resultSkipped)
		return false, nil
	}

	ref, err := w.sheets.Append(ctx, expense)
	if err != nil {
		recordExport(resultFailed)
		if markErr := w.ledger.MarkExportError(ctx, expense.ID, err); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark export error",
				log.FieldExpenseID, expense.ID.String(), log.FieldError, markErr)
		}
		return false, fmt.Errorf("append expense %s: %w", expense.ID, err)
	}

	if err := w.ledger.MarkExported(ctx, expense.ID, version, ref); err != nil {
		// The row is written; a retry would duplicate it.
		w.logger.ErrorContext(ctx, "Failed to mark expense exported",
			log.FieldExpenseID, expense.ID.String(), log.FieldError, err)
	}
	recordExport(resultExported)

	w.logger.InfoContext(ctx, "Expense exported",
		log.NewFields().
			WithOperation(log.OpSync).
			WithExpense(expense.ID.String(), expense.Amount.Float(), string(expense.Category)).
			ToSlice()...)
	return true, nil
}

// expenseID reads the expense id from an event payload: a bare id for
// deletions, an expense for creates and updates, or an accepted draft.
func expenseID(msg broker.Message) (uuid.UUID, error) {
	if len(msg.Payload) == 0 {
		return uuid.Nil, fmt.Errorf("%s message has no payload", msg.Name)
	}

	var bare uuid.UUID
	if err := json.Unmarshal(msg.Payload, &bare); err == nil && bare != uuid.Nil {
		return bare, nil
	}

	var body struct {
		ID            uuid.UUID  `json:"id"`
		CreatedItemID *uuid.UUID `json:"created_item_id"`
	}
	if err := msg.DecodePayload(&body); err != nil {
		return uuid.Nil, fmt.Errorf("decode %s payload: %w", msg.Name, err)
	}
	if body.CreatedItemID != nil && *body.CreatedItemID != uuid.Nil {
		return *body.CreatedItemID, nil
	}
	if body.ID != uuid.Nil {
		return body.ID, nil
	}
	return uuid.Nil, fmt.Errorf("%s payload has no id", msg.Name)
}
