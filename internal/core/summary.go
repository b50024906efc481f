package core

// DashboardSummary is the composite rollup the dashboard endpoint returns.
// Field names are part of the API contract; the client destructures them.
type DashboardSummary struct {
	TotalIncome      Money            `json:"totalIncome"`
	TotalExpense     Money            `json:"totalExpense"`
	NetBalance       Money            `json:"netBalance"`
	CategoryExpenses map[string]Money `json:"categoryExpenses"`
	MonthlyData      map[string]Money `json:"monthlyData"`
	TransactionCount int              `json:"transactionCount"`
}
