package core

// Aggregation engine: deterministic rollups over an immutable transaction
// snapshot. All functions are pure; they never touch storage and never
// mutate their input. Amounts are summed as they appear, including any
// out-of-range legacy values; rejecting those is the write path's job.

// Totals is the global income/expense/net rollup.
type Totals struct {
	Income  Money
	Expense Money
	Net     Money
}

// TotalsByType sums income and expense amounts across the snapshot.
// Net is income minus expense. An empty snapshot yields all zeros.
func TotalsByType(txs []Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		switch tx.Type {
		case Income:
			t.Income = t.Income.Add(tx.Amount)
		case Expense:
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	t.Net = t.Income.Sub(t.Expense)
	return t
}

// ExpensesByCategory groups expense amounts by category ID. Categories with
// no expense transactions are absent from the map; the result is chart-ready
// without zero entries.
func ExpensesByCategory(txs []Transaction) map[int64]Money {
	sums := make(map[int64]Money)
	for _, tx := range txs {
		if tx.Type != Expense {
			continue
		}
		sums[tx.CategoryID] = sums[tx.CategoryID].Add(tx.Amount)
	}
	return sums
}

// IncomeByMonth groups income amounts by the UTC calendar month of each
// transaction date. Months with no income are absent from the map.
func IncomeByMonth(txs []Transaction) map[Month]Money {
	sums := make(map[Month]Money)
	for _, tx := range txs {
		if tx.Type != Income {
			continue
		}
		m := MonthOf(tx.Date)
		sums[m] = sums[m].Add(tx.Amount)
	}
	return sums
}
