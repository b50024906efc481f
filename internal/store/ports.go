// Package store defines the record store ports the engine consumes. The
// aggregation and budget services depend on these interfaces only; SQLite
// (internal/storage) and the in-memory store (internal/store/memory) are the
// outbound adapters.
package store

import (
	"context"
	"time"

	"fintrack/internal/core"
)

// TransactionFilter narrows a transaction listing. Nil fields mean "no
// constraint". From is inclusive, To exclusive, both interpreted in UTC.
type TransactionFilter struct {
	Type       *core.TransactionType
	CategoryID *int64
	From       *time.Time
	To         *time.Time
}

type (
	TransactionStore interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, userID, id int64) error
		// ListTransactions returns the user's transactions ordered by date
		// descending, then ID descending.
		ListTransactions(ctx context.Context, userID int64, f TransactionFilter) ([]core.Transaction, error)
	}

	CategoryStore interface {
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		GetCategory(ctx context.Context, userID, id int64) (core.Category, error)
		// UpdateCategory persists name and description. Type is immutable
		// after creation; implementations never write it on update.
		UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
		// DeleteCategory fails with core.ErrCategoryInUse while any
		// transaction or budget still references the category.
		DeleteCategory(ctx context.Context, userID, id int64) error
		ListCategories(ctx context.Context, userID int64, typ *core.TransactionType) ([]core.Category, error)
	}

	BudgetStore interface {
		// CreateBudget fails with core.ErrDuplicateBudget when a budget for
		// the same (user, category, month) already exists; the existing
		// budget is left unchanged.
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		GetBudget(ctx context.Context, userID, id int64) (core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, userID, id int64) error
		ListBudgets(ctx context.Context, userID int64, month *core.Month) ([]core.Budget, error)
	}

	// ExportQueue tracks which transactions still need mirroring to the
	// external ledger. The worker's backup scan runs off it.
	ExportQueue interface {
		// GetTransactionForExport looks a transaction up by ID across all
		// users. Export messages carry no user scope.
		GetTransactionForExport(ctx context.Context, id int64) (core.Transaction, error)
		ListPendingExports(ctx context.Context, limit int) ([]core.Transaction, error)
		MarkExported(ctx context.Context, id int64) error
		MarkExportError(ctx context.Context, id int64) error
	}
)

// RecordStore is the full storage surface the services wire against.
type RecordStore interface {
	TransactionStore
	CategoryStore
	BudgetStore
}
