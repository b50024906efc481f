package memory

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func TestAppendAndRemove(t *testing.T) {
	s := New()
	ctx := context.Background()

	row := ledger.Row{
		TxID:     1,
		Date:     time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Type:     core.Expense,
		Category: "Groceries",
		Amount:   core.Money{Cents: 2350},
		Note:     "weekly shop",
	}

	ref, err := s.Append(ctx, row)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ref == "" {
		t.Error("expected non-empty row reference")
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}

	got, ok := s.Row(1)
	if !ok {
		t.Fatal("row not found after append")
	}
	if got.Amount.Cents != 2350 || got.Category != "Groceries" {
		t.Errorf("stored row mismatch: %+v", got)
	}

	if err := s.Remove(ctx, 1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len after remove = %d, want 0", s.Len())
	}
}

func TestRemoveAbsentRowIsNoOp(t *testing.T) {
	s := New()
	if err := s.Remove(context.Background(), 404); err != nil {
		t.Fatalf("Remove of absent row: %v", err)
	}
}
