package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"INCOME", Income, true},
		{"expense", Expense, true},
		{" income ", Income, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseTransactionType(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -100}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		CategoryID: 1,
		Amount:     Money{Cents: 100},
		Type:       Expense,
		Date:       time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{CategoryID: 1, Amount: Money{Cents: 0}, Type: Expense, Date: good.Date},
		{CategoryID: 1, Amount: Money{Cents: 100}, Type: "TRANSFER", Date: good.Date},
		{CategoryID: 0, Amount: Money{Cents: 100}, Type: Expense, Date: good.Date},
		{CategoryID: 1, Amount: Money{Cents: 100}, Type: Expense}, // zero date
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTransactionValidateAgainst(t *testing.T) {
	cat := Category{ID: 7, UserID: 1, Name: "Groceries", Type: Expense}
	tx := Transaction{
		CategoryID: 7,
		Amount:     Money{Cents: 5000},
		Type:       Expense,
		Date:       time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	if err := tx.ValidateAgainst(cat); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	mismatched := tx
	mismatched.Type = Income
	if err := mismatched.ValidateAgainst(cat); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}

	wrongCat := tx
	wrongCat.CategoryID = 8
	if err := wrongCat.ValidateAgainst(cat); !errors.Is(err, ErrDanglingCategory) {
		t.Fatalf("expected ErrDanglingCategory, got %v", err)
	}
}

func TestCategoryValidate(t *testing.T) {
	good := Category{Name: "Rent", Type: Expense}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Category{
		{Name: "", Type: Expense},
		{Name: "   ", Type: Expense},
		{Name: "Rent", Type: "OTHER"},
	}
	for i, c := range bads {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	good := Budget{CategoryID: 1, Amount: Money{Cents: 10000}, Month: Month{Year: 2024, Month: time.March}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Budget{CategoryID: 1, Amount: Money{Cents: 0}, Month: good.Month}).Validate(); err == nil {
		t.Fatalf("expected error for zero amount")
	}
	if err := (Budget{CategoryID: 1, Amount: Money{Cents: 100}}).Validate(); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth")
	}
}
