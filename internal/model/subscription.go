// Package model defines domain types for aboradar subscriptions and cost summaries.
package model

import "time"

// Interval is the billing cadence a subscription's price refers to.
type Interval string

const (
	Weekly  Interval = "weekly"
	Monthly Interval = "monthly"
	Yearly  Interval = "yearly"
)

// Intervals lists the known billing intervals in display order.
var Intervals = []Interval{Monthly, Yearly, Weekly}

// NoticeUnit is the unit of a cancellation notice period.
type NoticeUnit string

const (
	Days   NoticeUnit = "days"
	Weeks  NoticeUnit = "weeks"
	Months NoticeUnit = "months"
)

// NoticeUnits lists the known notice units in display order.
var NoticeUnits = []NoticeUnit{Months, Weeks, Days}

// DefaultCategory is used when a subscription has no category.
const DefaultCategory = "Other"

// Categories are the built-in category suggestions.
var Categories = []string{"Streaming", "Software", "Insurance", "Sports", "Mobile", "Gaming", DefaultCategory}

// CommonSubscriptions seeds name autocompletion.
var CommonSubscriptions = []string{
	"Netflix",
	"Spotify",
	"Amazon Prime",
	"Disney+",
	"YouTube Premium",
	"Adobe Creative Cloud",
	"DAZN",
	"Apple Music",
	"iCloud+",
	"Microsoft 365",
}

const (
	// ExpensiveThresholdMonthly flags subscriptions above this monthly cost.
	ExpensiveThresholdMonthly = 20.0
	// DeadlineWarningDays is the lead time for "cancel now" warnings.
	DeadlineWarningDays = 30
	// UpcomingWindowDays bounds the upcoming-cancellations list.
	UpcomingWindowDays = 90
)

// Subscription is one recurring contract. It is replaced wholesale on edit.
type Subscription struct {
	ID        string
	Name      string
	Price     float64 // per one billing interval
	Interval  Interval
	StartDate time.Time // date only
	Category  string

	// ContractTermMonths is nil or <= 0 for flexible subscriptions.
	ContractTermMonths *int
	// NoticePeriod and NoticeUnit together describe the cancellation lead time.
	NoticePeriod *int
	NoticeUnit   NoticeUnit
}

// CategoryOrDefault returns the category, or DefaultCategory when empty.
func (s Subscription) CategoryOrDefault() string {
	if s.Category == "" {
		return DefaultCategory
	}
	return s.Category
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}
