package model

import "time"

// Summary holds the cost aggregate over a subscription snapshot.
type Summary struct {
	AsOf         time.Time
	TotalCount   int
	ActiveCount  int
	MonthlyTotal float64
	YearlyTotal  float64 // MonthlyTotal * 12, not a sum of yearly prices

	ByCategory       []CategoryCost
	Trailing12Months []MonthBucket
}

// CategoryCost holds the monthly cost of active subscriptions in one category.
type CategoryCost struct {
	Category     string
	MonthlyCost  float64
	Count        int
	SharePercent float64
}

// MonthBucket holds the cost attributed to one calendar month.
type MonthBucket struct {
	Month time.Time // first day of the month
	Cost  float64
	Count int
}

// UpcomingDeadline pairs a subscription with its computed cancellation dates.
type UpcomingDeadline struct {
	Subscription Subscription
	EndDate      time.Time
	Deadline     time.Time
	DaysLeft     int
}

// SavingsStats lists active subscriptions above the expensive threshold.
type SavingsStats struct {
	Threshold    float64
	Expensive    []Subscription
	MonthlyTotal float64
}
