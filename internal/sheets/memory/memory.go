package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"lin/internal/core"
	"lin/internal/sheets"
)

var _ sheets.ExpenseWriter = (*Store)(nil)

// Store keeps exported rows in memory. Used for dry runs and tests.
type Store struct {
	mu    sync.Mutex
	items []core.Expense
}

func New() *Store {
	return &Store{}
}

// Append stores the expense and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, e core.Expense) (string, error) {
	if e.ID == uuid.Nil {
		return "", errors.New("expense has no id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Expenses returns a copy of everything appended so far.
func (s *Store) Expenses() []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.items...)
}

// Rows renders the stored expenses the way a sheet would hold them.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([][]any, 0, len(s.items))
	for _, e := range s.items {
		rows = append(rows, sheets.Row(e))
	}
	return rows
}
