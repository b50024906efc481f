package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

type (
	// TransactionType tags both transactions and categories as money-in or
	// money-out. A transaction must carry the same type as its category.
	TransactionType string

	Money struct {
		Cents int64
	}

	Category struct {
		ID          int64
		UserID      int64
		Name        string
		Description string
		Type        TransactionType
	}

	Transaction struct {
		ID         int64
		UserID     int64
		CategoryID int64
		Amount     Money
		Type       TransactionType
		Date       time.Time // UTC
		Note       string
	}

	Budget struct {
		ID         int64
		UserID     int64
		CategoryID int64
		Amount     Money
		Month      Month
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrEmptyName        = errors.New("empty category name")
	ErrTypeMismatch     = errors.New("transaction type does not match category type")
	ErrDuplicateBudget  = errors.New("budget already exists for category and month")
	ErrCategoryInUse    = errors.New("category is referenced by transactions or budgets")
	ErrDanglingCategory = errors.New("category no longer exists")
	ErrNotFound         = errors.New("not found")
)

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	}
	return ErrInvalidType
}

// ParseTransactionType normalizes user input ("income", "EXPENSE") to a
// TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (c Category) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyName
	}
	if len(c.Name) > 100 {
		return errors.New("category name too long (max 100 characters)")
	}
	if len(c.Description) > 500 {
		return errors.New("category description too long (max 500 characters)")
	}
	return c.Type.Validate()
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if t.CategoryID <= 0 {
		return errors.New("missing category reference")
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(t.Note) > 500 {
		return errors.New("note too long (max 500 characters)")
	}
	return nil
}

// ValidateAgainst checks the type-consistency invariant between a transaction
// and the category it references.
func (t Transaction) ValidateAgainst(c Category) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.CategoryID != c.ID {
		return ErrDanglingCategory
	}
	if t.Type != c.Type {
		return ErrTypeMismatch
	}
	return nil
}

func (b Budget) Validate() error {
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if b.CategoryID <= 0 {
		return errors.New("missing category reference")
	}
	if b.Month.IsZero() {
		return ErrInvalidMonth
	}
	return nil
}
