// Package pipeline computes subscription costs, cancellation deadlines and
// aggregates over a snapshot of subscriptions. Every function is pure: the
// caller owns the snapshot and any state transitions.
package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/aboradar/internal/model"
)

// IsActive reports whether a subscription counts toward cost totals on asOf.
// Activity is date based: a subscription without a deadline is always
// active, otherwise it stays active through its deadline day.
func IsActive(s model.Subscription, asOf time.Time) bool {
	deadline, ok := CancellationDeadline(s)
	if !ok {
		return true
	}
	return !deadline.Before(Midnight(asOf))
}

// ActiveSubset returns the subscriptions active on asOf, in input order.
func ActiveSubset(subs []model.Subscription, asOf time.Time) []model.Subscription {
	var result []model.Subscription
	for _, s := range subs {
		if IsActive(s, asOf) {
			result = append(result, s)
		}
	}
	return result
}

// Aggregate computes totals, the category breakdown and the trailing
// 12-month series for the given snapshot.
func Aggregate(subs []model.Subscription, asOf time.Time) model.Summary {
	ordered := sortedByID(subs)
	active := ActiveSubset(ordered, asOf)

	summary := model.Summary{
		AsOf:        asOf,
		TotalCount:  len(subs),
		ActiveCount: len(active),
	}
	for _, s := range active {
		summary.MonthlyTotal += MonthlyCost(s)
	}
	summary.YearlyTotal = summary.MonthlyTotal * 12
	summary.ByCategory = AggregateCategories(ordered, asOf)
	summary.Trailing12Months = AggregateTrailing12Months(ordered, asOf)

	return summary
}

// AggregateCategories sums the monthly cost of active subscriptions per
// category. Missing categories fall into model.DefaultCategory.
// Results are sorted by cost descending, then by name.
func AggregateCategories(subs []model.Subscription, asOf time.Time) []model.CategoryCost {
	catMap := make(map[string]*model.CategoryCost)
	total := 0.0

	for _, s := range sortedByID(ActiveSubset(subs, asOf)) {
		name := s.CategoryOrDefault()
		cc, ok := catMap[name]
		if !ok {
			cc = &model.CategoryCost{Category: name}
			catMap[name] = cc
		}
		cost := MonthlyCost(s)
		cc.MonthlyCost += cost
		cc.Count++
		total += cost
	}

	cats := make([]model.CategoryCost, 0, len(catMap))
	for _, cc := range catMap {
		if total > 0 {
			cc.SharePercent = cc.MonthlyCost / total * 100
		}
		cats = append(cats, *cc)
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].MonthlyCost != cats[j].MonthlyCost {
			return cats[i].MonthlyCost > cats[j].MonthlyCost
		}
		return cats[i].Category < cats[j].Category
	})

	return cats
}

// AggregateTrailing12Months returns exactly 12 monthly buckets, oldest first,
// ending with the month containing asOf. A subscription contributes to a
// month when it started on or before the month's last day and its deadline,
// if any, is not before the month's first day.
func AggregateTrailing12Months(subs []model.Subscription, asOf time.Time) []model.MonthBucket {
	ordered := sortedByID(subs)
	buckets := make([]model.MonthBucket, 12)

	y, m, _ := asOf.Date()
	for i := range buckets {
		monthStart := time.Date(y, m-time.Month(11-i), 1, 0, 0, 0, 0, asOf.Location())
		monthEnd := monthStart.AddDate(0, 1, -1)
		buckets[i].Month = monthStart

		for _, s := range ordered {
			if Midnight(s.StartDate).After(monthEnd) {
				continue
			}
			if deadline, ok := CancellationDeadline(s); ok && deadline.Before(monthStart) {
				continue
			}
			buckets[i].Cost += MonthlyCost(s)
			buckets[i].Count++
		}
	}

	return buckets
}

// FilterByCategory returns subscriptions whose category matches (case-insensitive).
func FilterByCategory(subs []model.Subscription, category string) []model.Subscription {
	if category == "" {
		return subs
	}
	var result []model.Subscription
	for _, s := range subs {
		if strings.EqualFold(s.CategoryOrDefault(), category) {
			result = append(result, s)
		}
	}
	return result
}

// FilterByName returns subscriptions whose name contains the substring.
func FilterByName(subs []model.Subscription, name string) []model.Subscription {
	if name == "" {
		return subs
	}
	var result []model.Subscription
	for _, s := range subs {
		if containsIgnoreCase(s.Name, name) {
			result = append(result, s)
		}
	}
	return result
}

// SortByName orders subscriptions alphabetically, case-insensitive.
func SortByName(subs []model.Subscription) []model.Subscription {
	out := make([]model.Subscription, len(subs))
	copy(out, subs)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// sortedByID returns a copy ordered by ID so float sums do not depend on
// input order.
func sortedByID(subs []model.Subscription) []model.Subscription {
	out := make([]model.Subscription, len(subs))
	copy(out, subs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Price < out[j].Price
	})
	return out
}

func sortUpcoming(items []model.UpcomingDeadline) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Deadline.Equal(items[j].Deadline) {
			return items[i].Deadline.Before(items[j].Deadline)
		}
		return items[i].Subscription.Name < items[j].Subscription.Name
	})
}
