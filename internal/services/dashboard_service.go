package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// DashboardService composes the summary the dashboard endpoint returns.
// Every call recomputes the rollups from the stored transactions; nothing
// derived is cached, so a write is visible on the next read.
type DashboardService struct {
	store store.RecordStore
}

func NewDashboardService(store store.RecordStore) *DashboardService {
	return &DashboardService{store: store}
}

// Summary builds the dashboard rollup for a user, optionally bounded to
// [from, to). Expenses whose category no longer resolves are excluded from
// the per-category breakdown and logged; they still count in the totals.
func (s *DashboardService) Summary(ctx context.Context, userID int64, from, to *time.Time) (core.DashboardSummary, error) {
	var (
		txs  []core.Transaction
		cats []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.store.ListTransactions(gctx, userID, store.TransactionFilter{From: from, To: to})
		return err
	})
	g.Go(func() error {
		var err error
		cats, err = s.store.ListCategories(gctx, userID, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.DashboardSummary{}, fmt.Errorf("load dashboard inputs: %w", err)
	}

	totals := core.TotalsByType(txs)

	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}

	categoryExpenses := make(map[string]core.Money)
	for catID, sum := range core.ExpensesByCategory(txs) {
		name, ok := names[catID]
		if !ok {
			slog.WarnContext(ctx, "Expense bucket references missing category",
				"category_id", catID,
				"user_id", userID,
				"amount_cents", sum.Cents)
			continue
		}
		// Two categories can share a name; their buckets merge.
		categoryExpenses[name] = categoryExpenses[name].Add(sum)
	}

	monthlyData := make(map[string]core.Money)
	for month, sum := range core.IncomeByMonth(txs) {
		monthlyData[month.String()] = sum
	}

	return core.DashboardSummary{
		TotalIncome:      totals.Income,
		TotalExpense:     totals.Expense,
		NetBalance:       totals.Net,
		CategoryExpenses: categoryExpenses,
		MonthlyData:      monthlyData,
		TransactionCount: len(txs),
	}, nil
}
