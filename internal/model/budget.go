package model

// BudgetStats compares the monthly total against an optional budget.
type BudgetStats struct {
	MonthlyBudget     *float64
	MonthlyTotal      float64
	Remaining         float64
	BudgetUsedPercent float64
	OverBudget        bool
}
