package core

// BudgetStatus classifies a budget's consumption for the month.
type BudgetStatus string

const (
	StatusUnder   BudgetStatus = "under"   // spent/budget <= 0.80
	StatusWarning BudgetStatus = "warning" // 0.80 < spent/budget <= 1.00
	StatusOver    BudgetStatus = "over"    // spent/budget > 1.00
)

// BudgetProgress is the evaluated consumption of one budget.
type BudgetProgress struct {
	Spent     Money
	Remaining Money
	Status    BudgetStatus
}

// EvaluateBudget derives spent, remaining, and status for a budget from a
// transaction snapshot. Only expense transactions in the budget's category
// whose date falls within the budget month's UTC calendar bounds count.
// Remaining is signed and goes negative on overrun.
func EvaluateBudget(b Budget, txs []Transaction) BudgetProgress {
	var spent Money
	for _, tx := range txs {
		if tx.CategoryID != b.CategoryID || tx.Type != Expense {
			continue
		}
		if !b.Month.Contains(tx.Date) {
			continue
		}
		spent = spent.Add(tx.Amount)
	}

	return BudgetProgress{
		Spent:     spent,
		Remaining: b.Amount.Sub(spent),
		Status:    classify(spent.Cents, b.Amount.Cents),
	}
}

// classify compares spent/budget against the 0.80 and 1.00 thresholds using
// integer cents, so the boundaries are exact. A zero budget is over as soon
// as anything is spent.
func classify(spent, budget int64) BudgetStatus {
	if budget <= 0 {
		if spent > 0 {
			return StatusOver
		}
		return StatusUnder
	}
	switch {
	case spent*100 <= budget*80:
		return StatusUnder
	case spent <= budget:
		return StatusWarning
	default:
		return StatusOver
	}
}
