package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// BudgetWithProgress pairs a stored budget with its evaluated consumption
// and the resolved category name.
type BudgetWithProgress struct {
	Budget       core.Budget
	CategoryName string
	Progress     core.BudgetProgress
}

// BudgetService owns budget writes and the recompute-on-read progress
// evaluation. Progress is never stored; every read derives it from the
// current transaction snapshot.
type BudgetService struct {
	store store.RecordStore
}

func NewBudgetService(store store.RecordStore) *BudgetService {
	return &BudgetService{store: store}
}

// Create saves a budget for a (category, month) pair. A second budget for
// the same pair is rejected and the existing one stays untouched.
func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if _, err := s.store.GetCategory(ctx, b.UserID, b.CategoryID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Budget{}, core.ErrDanglingCategory
		}
		return core.Budget{}, fmt.Errorf("resolve category: %w", err)
	}

	saved, err := s.store.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}
	return saved, nil
}

// Get returns one budget with freshly evaluated progress.
func (s *BudgetService) Get(ctx context.Context, userID, id int64) (BudgetWithProgress, error) {
	b, err := s.store.GetBudget(ctx, userID, id)
	if err != nil {
		return BudgetWithProgress{}, err
	}

	var (
		cat core.Category
		txs []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cat, err = s.store.GetCategory(gctx, userID, b.CategoryID)
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = s.monthExpenses(gctx, userID, b)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// The category vanished under the budget. The budget is hidden
			// rather than surfaced as a broken row.
			slog.WarnContext(ctx, "Budget references missing category",
				"budget_id", b.ID,
				"category_id", b.CategoryID,
				"user_id", userID)
			return BudgetWithProgress{}, core.ErrNotFound
		}
		return BudgetWithProgress{}, err
	}

	return BudgetWithProgress{
		Budget:       b,
		CategoryName: cat.Name,
		Progress:     core.EvaluateBudget(b, txs),
	}, nil
}

// List returns the user's budgets with progress, optionally narrowed to one
// month. Budgets whose category no longer resolves are logged and excluded.
func (s *BudgetService) List(ctx context.Context, userID int64, month *core.Month) ([]BudgetWithProgress, error) {
	var (
		budgets []core.Budget
		txs     []core.Transaction
		cats    []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		budgets, err = s.store.ListBudgets(gctx, userID, month)
		return err
	})
	g.Go(func() error {
		expense := core.Expense
		var err error
		txs, err = s.store.ListTransactions(gctx, userID, store.TransactionFilter{Type: &expense})
		return err
	})
	g.Go(func() error {
		var err error
		cats, err = s.store.ListCategories(gctx, userID, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load budget inputs: %w", err)
	}

	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}

	out := make([]BudgetWithProgress, 0, len(budgets))
	for _, b := range budgets {
		name, ok := names[b.CategoryID]
		if !ok {
			slog.WarnContext(ctx, "Budget references missing category",
				"budget_id", b.ID,
				"category_id", b.CategoryID,
				"user_id", userID)
			continue
		}
		out = append(out, BudgetWithProgress{
			Budget:       b,
			CategoryName: name,
			Progress:     core.EvaluateBudget(b, txs),
		})
	}
	return out, nil
}

// Update changes a budget's amount. Category and month identify the budget
// and stay fixed.
func (s *BudgetService) Update(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Amount.Validate(); err != nil {
		return core.Budget{}, err
	}
	return s.store.UpdateBudget(ctx, b)
}

func (s *BudgetService) Delete(ctx context.Context, userID, id int64) error {
	return s.store.DeleteBudget(ctx, userID, id)
}

// monthExpenses fetches the expense transactions inside the budget's month
// for its category.
func (s *BudgetService) monthExpenses(ctx context.Context, userID int64, b core.Budget) ([]core.Transaction, error) {
	expense := core.Expense
	from := b.Month.Start()
	to := b.Month.Next().Start()
	return s.store.ListTransactions(ctx, userID, store.TransactionFilter{
		Type:       &expense,
		CategoryID: &b.CategoryID,
		From:       &from,
		To:         &to,
	})
}
