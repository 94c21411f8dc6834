package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"lin/internal/api"
	"lin/internal/broker"
	"lin/internal/cache"
	"lin/internal/core"
	"lin/internal/credentials"
	"lin/internal/eventbus"
	"lin/internal/sheets/memory"
)

type fakeSource struct {
	expenses map[uuid.UUID]core.Expense
	recent   []core.Expense
	listErr  error
	gets     int
}

func (s *fakeSource) GetExpense(_ context.Context, id uuid.UUID) (core.Expense, error) {
	s.gets++
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, &api.APIError{StatusCode: http.StatusNotFound, Message: "Expense not found"}
	}
	return e, nil
}

func (s *fakeSource) ListExpenses(_ context.Context, f api.ExpenseFilter) (api.Page[core.Expense], error) {
	if s.listErr != nil {
		return api.Page[core.Expense]{}, s.listErr
	}
	items := s.recent
	if f.Limit > 0 && len(items) > f.Limit {
		items = items[:f.Limit]
	}
	return api.Page[core.Expense]{Items: items}, nil
}

type ledgerEntry struct {
	version time.Time
	ref     string
	status  string
	err     string
}

type fakeLedger struct {
	mu      sync.Mutex
	entries map[uuid.UUID]ledgerEntry
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: map[uuid.UUID]ledgerEntry{}}
}

func (l *fakeLedger) IsExported(_ context.Context, id uuid.UUID, updatedAt time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]
	if !ok {
		return false, nil
	}
	switch e.status {
	case "deleted":
		return true, nil
	case "exported":
		return !updatedAt.After(e.version), nil
	}
	return false, nil
}

func (l *fakeLedger) MarkExported(_ context.Context, id uuid.UUID, updatedAt time.Time, ref string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[id] = ledgerEntry{version: updatedAt, ref: ref, status: "exported"}
	return nil
}

func (l *fakeLedger) MarkExportError(_ context.Context, id uuid.UUID, exportErr error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entries[id]
	e.status, e.err = "error", exportErr.Error()
	l.entries[id] = e
	return nil
}

func (l *fakeLedger) MarkDeleted(_ context.Context, id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entries[id]
	e.status = "deleted"
	l.entries[id] = e
	return nil
}

func (l *fakeLedger) status(id uuid.UUID) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[id].status
}

type failingWriter struct{}

func (failingWriter) Append(context.Context, core.Expense) (string, error) {
	return "", errors.New("quota exceeded")
}

func expense(updated time.Time) core.Expense {
	return core.Expense{
		ID:        uuid.New(),
		Amount:    core.Money{Cents: 800},
		Currency:  "Taka",
		Category:  core.CategoryTransport,
		Date:      core.NewTimestamp(updated),
		CreatedAt: core.NewTimestamp(updated),
		UpdatedAt: core.NewTimestamp(updated),
	}
}

func message(t *testing.T, name string, payload any) broker.Message {
	t.Helper()
	msg, err := broker.NewMessage(eventbus.Event{Name: name, Payload: payload}, "cli")
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	return msg
}

func TestHandleMessageExportsOncePerVersion(t *testing.T) {
	ctx := context.Background()
	e := expense(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC))
	src := &fakeSource{expenses: map[uuid.UUID]core.Expense{e.ID: e}}
	ledger := newFakeLedger()
	out := memory.New()
	w := NewExportWorker(src, ledger, out, 10, nil)

	if err := w.HandleMessage(ctx, message(t, eventbus.ExpenseCreated, e)); err != nil {
		t.Fatalf("HandleMessage(created) error = %v", err)
	}
	// Redelivery of the same version is a no-op.
	if err := w.HandleMessage(ctx, message(t, eventbus.ExpenseCreated, e)); err != nil {
		t.Fatalf("HandleMessage(redelivery) error = %v", err)
	}
	if got := len(out.Expenses()); got != 1 {
		t.Fatalf("rows after redelivery = %d, want 1", got)
	}

	// A newer version is exported again.
	e.UpdatedAt = core.NewTimestamp(e.UpdatedAt.Add(time.Hour))
	e.Amount = core.Money{Cents: 900}
	src.expenses[e.ID] = e
	if err := w.HandleMessage(ctx, message(t, eventbus.ExpenseUpdated, e)); err != nil {
		t.Fatalf("HandleMessage(updated) error = %v", err)
	}
	rows := out.Expenses()
	if len(rows) != 2 || rows[1].Amount.Cents != 900 {
		t.Fatalf("rows = %+v, want the updated version appended", rows)
	}
	if ledger.entries[e.ID].ref != "mem:2" {
		t.Errorf("ledger ref = %q, want mem:2", ledger.entries[e.ID].ref)
	}
}

func TestHandleMessageDeleted(t *testing.T) {
	ledger := newFakeLedger()
	w := NewExportWorker(&fakeSource{}, ledger, memory.New(), 10, nil)
	id := uuid.New()

	if err := w.HandleMessage(context.Background(), message(t, eventbus.ExpenseDeleted, id)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if got := ledger.status(id); got != "deleted" {
		t.Errorf("ledger status = %q, want deleted", got)
	}
}

func TestHandleMessageExpenseGoneUpstream(t *testing.T) {
	ledger := newFakeLedger()
	out := memory.New()
	w := NewExportWorker(&fakeSource{expenses: map[uuid.UUID]core.Expense{}}, ledger, out, 10, nil)
	id := uuid.New()

	err := w.HandleMessage(context.Background(), message(t, eventbus.ExpenseCreated, map[string]any{"id": id}))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if got := ledger.status(id); got != "deleted" {
		t.Errorf("ledger status = %q, want deleted", got)
	}
	if len(out.Expenses()) != 0 {
		t.Error("expected nothing appended")
	}
}

func TestHandleMessageAcceptedDraft(t *testing.T) {
	e := expense(time.Now())
	src := &fakeSource{expenses: map[uuid.UUID]core.Expense{e.ID: e}}
	out := memory.New()
	w := NewExportWorker(src, newFakeLedger(), out, 10, nil)

	item := core.AcceptedItem{PendingUpdateID: uuid.New(), Category: "expense", CreatedItemID: &e.ID, Success: true}
	if err := w.HandleMessage(context.Background(), message(t, eventbus.ExpenseCreated, item)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if rows := out.Expenses(); len(rows) != 1 || rows[0].ID != e.ID {
		t.Errorf("rows = %+v, want the accepted expense", rows)
	}
}

func TestHandleMessageIgnoresOtherEvents(t *testing.T) {
	src := &fakeSource{}
	w := NewExportWorker(src, newFakeLedger(), memory.New(), 10, nil)

	for _, name := range []string{eventbus.TaskCreated, eventbus.JournalUpdated, eventbus.AuthLogin} {
		if err := w.HandleMessage(context.Background(), message(t, name, map[string]string{"id": uuid.NewString()})); err != nil {
			t.Errorf("HandleMessage(%s) error = %v", name, err)
		}
	}
	if src.gets != 0 {
		t.Errorf("backend fetched %d times, want 0", src.gets)
	}
}

func TestHandleMessageBadPayloadIsDropped(t *testing.T) {
	w := NewExportWorker(&fakeSource{}, newFakeLedger(), memory.New(), 10, nil)
	msg := broker.Message{Name: eventbus.ExpenseCreated, Payload: json.RawMessage(`{"amount":3}`)}

	if err := w.HandleMessage(context.Background(), msg); err != nil {
		t.Errorf("HandleMessage() error = %v, want nil", err)
	}
}

func TestHandleMessageAppendFailureIsRetried(t *testing.T) {
	e := expense(time.Now())
	ledger := newFakeLedger()
	w := NewExportWorker(&fakeSource{expenses: map[uuid.UUID]core.Expense{e.ID: e}}, ledger, failingWriter{}, 10, nil)

	if err := w.HandleMessage(context.Background(), message(t, eventbus.ExpenseCreated, e)); err == nil {
		t.Fatal("expected error so the broker redelivers")
	}
	if got := ledger.status(e.ID); got != "error" {
		t.Errorf("ledger status = %q, want error", got)
	}
}

func TestProcessPending(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	a, b, c := expense(now), expense(now), expense(now)
	ledger := newFakeLedger()
	ledger.MarkExported(ctx, b.ID, now, "mem:0")
	out := memory.New()
	w := NewExportWorker(&fakeSource{recent: []core.Expense{a, b, c}}, ledger, out, 10, nil)

	res, err := w.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if res != (PendingResult{Checked: 3, Exported: 2}) {
		t.Errorf("ProcessPending() = %+v", res)
	}
	if len(out.Expenses()) != 2 {
		t.Errorf("rows = %d, want 2", len(out.Expenses()))
	}

	res, err = w.ProcessPending(ctx)
	if err != nil || res.Exported != 0 {
		t.Errorf("second ProcessPending() = %+v, %v; want nothing exported", res, err)
	}
}

func TestProcessPendingReportsFailures(t *testing.T) {
	now := time.Now()
	w := NewExportWorker(&fakeSource{recent: []core.Expense{expense(now), expense(now)}}, newFakeLedger(), failingWriter{}, 10, nil)

	res, err := w.ProcessPending(context.Background())
	if err == nil {
		t.Fatal("expected joined append errors")
	}
	if res.Checked != 2 || res.Failed != 2 {
		t.Errorf("ProcessPending() = %+v", res)
	}
}

func TestProcessPendingListError(t *testing.T) {
	boom := errors.New("backend down")
	w := NewExportWorker(&fakeSource{listErr: boom}, newFakeLedger(), memory.New(), 10, nil)

	if _, err := w.ProcessPending(context.Background()); !errors.Is(err, boom) {
		t.Errorf("ProcessPending() error = %v, want %v", err, boom)
	}
}

func TestBatchSizeIsClamped(t *testing.T) {
	if w := NewExportWorker(nil, nil, nil, 0, nil); w.batchSize != core.DefaultLimit {
		t.Errorf("batchSize = %d, want %d", w.batchSize, core.DefaultLimit)
	}
	if w := NewExportWorker(nil, nil, nil, 1000, nil); w.batchSize != core.MaxLimit {
		t.Errorf("batchSize = %d, want %d", w.batchSize, core.MaxLimit)
	}
}

func TestHandleMessageSeesUpdatesThroughCachedClient(t *testing.T) {
	ctx := context.Background()
	e := expense(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC))

	var mu sync.Mutex
	current := e
	var gets int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/expenses/"+e.ID.String() {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		gets++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": current})
	}))
	defer srv.Close()

	store := credentials.NewMemoryStore()
	if err := store.Set(ctx, credentials.FromTokenResponse(credentials.TokenResponse{
		AccessToken:  "access",
		RefreshToken: "refresh",
	}, time.Now())); err != nil {
		t.Fatalf("store.Set() error = %v", err)
	}
	client, err := api.New(srv.URL, store,
		api.WithHTTPClient(srv.Client()),
		api.WithCache(cache.NewLRUCache[[]byte](16, time.Minute)))
	if err != nil {
		t.Fatalf("api.New() error = %v", err)
	}
	defer client.Close()

	out := memory.New()
	w := NewExportWorker(client, newFakeLedger(), out, 10, nil)

	if err := w.HandleMessage(ctx, message(t, eventbus.ExpenseCreated, e)); err != nil {
		t.Fatalf("HandleMessage(created) error = %v", err)
	}

	updated := e
	updated.Amount = core.Money{Cents: 1250}
	updated.UpdatedAt = core.NewTimestamp(e.UpdatedAt.Add(time.Hour))
	mu.Lock()
	current = updated
	mu.Unlock()

	if err := w.HandleMessage(ctx, message(t, eventbus.ExpenseUpdated, updated)); err != nil {
		t.Fatalf("HandleMessage(updated) error = %v", err)
	}

	rows := out.Expenses()
	if len(rows) != 2 {
		t.Fatalf("rows exported = %d, want 2", len(rows))
	}
	if rows[1].Amount.Cents != 1250 {
		t.Errorf("second row amount = %d, want 1250", rows[1].Amount.Cents)
	}
	mu.Lock()
	defer mu.Unlock()
	if gets != 2 {
		t.Errorf("backend reads = %d, want 2", gets)
	}
}
