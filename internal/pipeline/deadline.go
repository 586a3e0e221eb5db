package pipeline

import (
	"time"

	"github.com/theirongolddev/aboradar/internal/model"
)

// Calendar months are added with time.AddDate, which normalizes overflow
// into the following month: 2024-01-31 plus one month is 2024-03-02.
// The same rule applies when subtracting a notice period in months.

// ContractEndDate returns StartDate advanced by the contract term.
// The second result is false for flexible subscriptions (no term, or term <= 0).
func ContractEndDate(s model.Subscription) (time.Time, bool) {
	if s.ContractTermMonths == nil || *s.ContractTermMonths <= 0 {
		return time.Time{}, false
	}
	return Midnight(s.StartDate).AddDate(0, *s.ContractTermMonths, 0), true
}

// DeadlineFromEnd subtracts a notice period from a contract end date.
func DeadlineFromEnd(end time.Time, period int, unit model.NoticeUnit) (time.Time, bool) {
	switch unit {
	case model.Days:
		return end.AddDate(0, 0, -period), true
	case model.Weeks:
		return end.AddDate(0, 0, -7*period), true
	case model.Months:
		return end.AddDate(0, -period, 0), true
	default:
		return time.Time{}, false
	}
}

// CancellationDeadline returns the last day a cancellation can be filed.
// It is absent unless the subscription has a positive term and a positive
// notice period with a unit.
func CancellationDeadline(s model.Subscription) (time.Time, bool) {
	if s.NoticePeriod == nil || *s.NoticePeriod <= 0 || s.NoticeUnit == "" {
		return time.Time{}, false
	}
	end, ok := ContractEndDate(s)
	if !ok {
		return time.Time{}, false
	}
	return DeadlineFromEnd(end, *s.NoticePeriod, s.NoticeUnit)
}

// Midnight truncates t to the start of its calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of calendar days from a to b.
// It counts dates, so DST shifts do not produce off-by-one results.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// DeadlineSoon reports whether the deadline falls within the next warnDays days.
func DeadlineSoon(s model.Subscription, asOf time.Time, warnDays int) bool {
	deadline, ok := CancellationDeadline(s)
	if !ok {
		return false
	}
	days := DaysBetween(asOf, deadline)
	return days >= 0 && days <= warnDays
}

// UpcomingDeadlines returns subscriptions whose deadline lies within the
// next days days (today inclusive), soonest first.
func UpcomingDeadlines(subs []model.Subscription, asOf time.Time, days int) []model.UpcomingDeadline {
	var result []model.UpcomingDeadline
	for _, s := range subs {
		deadline, ok := CancellationDeadline(s)
		if !ok {
			continue
		}
		left := DaysBetween(asOf, deadline)
		if left < 0 || left > days {
			continue
		}
		end, _ := ContractEndDate(s)
		result = append(result, model.UpcomingDeadline{
			Subscription: s,
			EndDate:      end,
			Deadline:     deadline,
			DaysLeft:     left,
		})
	}
	sortUpcoming(result)
	return result
}
