package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"lin/internal/core"
)

func TestMemoryStoreAppend(t *testing.T) {
	s := New()
	id := uuid.MustParse("9b2f3c4e-1d2a-4b5c-8d9e-0f1a2b3c4d5e")

	ref, err := s.Append(context.Background(), core.Expense{
		ID:          id,
		Amount:      core.Money{Cents: 1250},
		Currency:    "Taka",
		Category:    core.CategoryFood,
		Description: "lunch",
		Date:        core.NewTimestamp(time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)),
	})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	rows := s.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0][0] != "2025-03-14" || rows[0][5] != 12.5 || rows[0][8] != id.String() {
		t.Errorf("unexpected row: %v", rows[0])
	}
	if got := s.Expenses(); len(got) != 1 || got[0].ID != id {
		t.Errorf("unexpected expenses: %v", got)
	}
}

func TestMemoryStoreRejectsMissingID(t *testing.T) {
	if _, err := New().Append(context.Background(), core.Expense{}); err == nil {
		t.Fatal("expected error for expense without id")
	}
}
