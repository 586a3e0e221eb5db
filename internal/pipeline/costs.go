package pipeline

import (
	"sort"
	"time"

	"github.com/theirongolddev/aboradar/internal/model"
)

// MonthlyCost normalizes a subscription's price to an average monthly amount.
// Weekly prices are annualized at 52 weeks, not multiplied by 4.
// Unknown intervals cost nothing.
func MonthlyCost(s model.Subscription) float64 {
	switch s.Interval {
	case model.Monthly:
		return s.Price
	case model.Yearly:
		return s.Price / 12
	case model.Weekly:
		return s.Price * 52 / 12
	default:
		return 0
	}
}

// IsExpensive reports whether the monthly cost exceeds threshold.
func IsExpensive(s model.Subscription, threshold float64) bool {
	return MonthlyCost(s) > threshold
}

// SavingsPotential collects the active subscriptions above threshold,
// most expensive first.
func SavingsPotential(subs []model.Subscription, asOf time.Time, threshold float64) model.SavingsStats {
	stats := model.SavingsStats{Threshold: threshold}
	for _, s := range sortedByID(ActiveSubset(subs, asOf)) {
		if !IsExpensive(s, threshold) {
			continue
		}
		stats.Expensive = append(stats.Expensive, s)
		stats.MonthlyTotal += MonthlyCost(s)
	}
	sort.SliceStable(stats.Expensive, func(i, j int) bool {
		return MonthlyCost(stats.Expensive[i]) > MonthlyCost(stats.Expensive[j])
	})
	return stats
}

// ComputeBudget compares the summary's monthly total against budget.
// A nil budget yields stats with only the total filled in.
func ComputeBudget(summary model.Summary, budget *float64) model.BudgetStats {
	stats := model.BudgetStats{
		MonthlyBudget: budget,
		MonthlyTotal:  summary.MonthlyTotal,
	}
	if budget == nil {
		return stats
	}
	stats.Remaining = *budget - summary.MonthlyTotal
	stats.OverBudget = stats.Remaining < 0
	if *budget > 0 {
		stats.BudgetUsedPercent = summary.MonthlyTotal / *budget * 100
	}
	return stats
}
