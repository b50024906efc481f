package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func seed(t *testing.T) (*Store, core.Category) {
	t.Helper()
	s := New()
	cat, err := s.CreateCategory(context.Background(), core.Category{
		UserID: 1, Name: "Groceries", Type: core.Expense,
	})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return s, cat
}

func TestTransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	s, cat := seed(t)

	created, err := s.CreateTransaction(ctx, core.Transaction{
		UserID:     1,
		CategoryID: cat.ID,
		Amount:     core.Money{Cents: 5000},
		Type:       core.Expense,
		Date:       time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected assigned ID")
	}

	got, err := s.GetTransaction(ctx, 1, created.ID)
	if err != nil || got.Amount.Cents != 5000 {
		t.Fatalf("get: %+v (err=%v)", got, err)
	}

	// Other users never see it.
	if _, err := s.GetTransaction(ctx, 2, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("cross-user get should be not found, got %v", err)
	}

	if err := s.DeleteTransaction(ctx, 1, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetTransaction(ctx, 1, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestCreateTransactionDanglingCategory(t *testing.T) {
	s := New()
	_, err := s.CreateTransaction(context.Background(), core.Transaction{
		UserID: 1, CategoryID: 99, Amount: core.Money{Cents: 100}, Type: core.Expense,
		Date: time.Now().UTC(),
	})
	if !errors.Is(err, core.ErrDanglingCategory) {
		t.Fatalf("expected ErrDanglingCategory, got %v", err)
	}
}

func TestListTransactionsFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	s, cat := seed(t)
	income, _ := s.CreateCategory(ctx, core.Category{UserID: 1, Name: "Salary", Type: core.Income})

	mk := func(typ core.TransactionType, catID int64, day int) {
		_, err := s.CreateTransaction(ctx, core.Transaction{
			UserID: 1, CategoryID: catID, Amount: core.Money{Cents: 100}, Type: typ,
			Date: time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	mk(core.Expense, cat.ID, 5)
	mk(core.Income, income.ID, 10)
	mk(core.Expense, cat.ID, 1)

	all, err := s.ListTransactions(ctx, 1, store.TransactionFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("list all: %d (err=%v)", len(all), err)
	}
	if !all[0].Date.After(all[1].Date) || !all[1].Date.After(all[2].Date) {
		t.Fatalf("expected date-descending order")
	}

	typ := core.Expense
	expenses, err := s.ListTransactions(ctx, 1, store.TransactionFilter{Type: &typ})
	if err != nil || len(expenses) != 2 {
		t.Fatalf("list expenses: %d (err=%v)", len(expenses), err)
	}

	from := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	ranged, err := s.ListTransactions(ctx, 1, store.TransactionFilter{From: &from, To: &to})
	if err != nil || len(ranged) != 1 {
		t.Fatalf("list ranged: %d (err=%v)", len(ranged), err)
	}
}

func TestDeleteCategoryBlockedWhileReferenced(t *testing.T) {
	ctx := context.Background()
	s, cat := seed(t)

	if _, err := s.CreateTransaction(ctx, core.Transaction{
		UserID: 1, CategoryID: cat.ID, Amount: core.Money{Cents: 100}, Type: core.Expense,
		Date: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create tx: %v", err)
	}

	if err := s.DeleteCategory(ctx, 1, cat.ID); !errors.Is(err, core.ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}
}

func TestCategoryTypeImmutable(t *testing.T) {
	ctx := context.Background()
	s, cat := seed(t)

	updated, err := s.UpdateCategory(ctx, core.Category{
		ID: cat.ID, UserID: 1, Name: "Food", Description: "weekly shop", Type: core.Income,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Type != core.Expense {
		t.Fatalf("type must stay %s, got %s", core.Expense, updated.Type)
	}
	if updated.Name != "Food" || updated.Description != "weekly shop" {
		t.Fatalf("name/description should update: %+v", updated)
	}
}

func TestCreateBudgetDuplicate(t *testing.T) {
	ctx := context.Background()
	s, cat := seed(t)
	march := core.Month{Year: 2024, Month: time.March}

	first, err := s.CreateBudget(ctx, core.Budget{
		UserID: 1, CategoryID: cat.ID, Amount: core.Money{Cents: 10000}, Month: march,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = s.CreateBudget(ctx, core.Budget{
		UserID: 1, CategoryID: cat.ID, Amount: core.Money{Cents: 99999}, Month: march,
	})
	if !errors.Is(err, core.ErrDuplicateBudget) {
		t.Fatalf("expected ErrDuplicateBudget, got %v", err)
	}

	// The original must be untouched.
	got, err := s.GetBudget(ctx, 1, first.ID)
	if err != nil || got.Amount.Cents != 10000 {
		t.Fatalf("existing budget changed: %+v (err=%v)", got, err)
	}

	// Same category, different month is fine.
	april := core.Month{Year: 2024, Month: time.April}
	if _, err := s.CreateBudget(ctx, core.Budget{
		UserID: 1, CategoryID: cat.ID, Amount: core.Money{Cents: 5000}, Month: april,
	}); err != nil {
		t.Fatalf("different month should succeed: %v", err)
	}
}

func TestExportQueue(t *testing.T) {
	ctx := context.Background()
	s, cat := seed(t)

	tx, err := s.CreateTransaction(ctx, core.Transaction{
		UserID: 1, CategoryID: cat.ID, Amount: core.Money{Cents: 100}, Type: core.Expense,
		Date: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	pending, err := s.ListPendingExports(ctx, 10)
	if err != nil || len(pending) != 1 || pending[0].ID != tx.ID {
		t.Fatalf("pending: %v (err=%v)", pending, err)
	}

	if err := s.MarkExported(ctx, tx.ID); err != nil {
		t.Fatalf("mark exported: %v", err)
	}
	pending, err = s.ListPendingExports(ctx, 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected empty pending list, got %v (err=%v)", pending, err)
	}
}
