// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/aboradar/internal/model"
)

// FormatEUR formats an amount the way de-DE does: "1.234,56 €".
func FormatEUR(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	cents := int64(math.Round(v * 100))
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s,%02d €", sign, FormatNumber(cents/100), cents%100)
}

// FormatNumber adds dot separators to an integer.
// e.g., 1234567 -> "1.234.567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte('.')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatDate formats a date as "31.12.2024".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}

// FormatMonth formats a month bucket label, e.g. "Jan 24".
func FormatMonth(t time.Time) string {
	return t.Format("Jan 06")
}

// FormatPercent formats a 0-100 value with one decimal and a decimal comma.
func FormatPercent(p float64) string {
	return strings.Replace(fmt.Sprintf("%.1f %%", p), ".", ",", 1)
}

// FormatDaysLeft describes the time until a deadline.
func FormatDaysLeft(days int) string {
	switch {
	case days < 0:
		return "passed"
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}

// FormatInterval returns the billing period noun, e.g. "month".
func FormatInterval(i model.Interval) string {
	switch i {
	case model.Weekly:
		return "week"
	case model.Monthly:
		return "month"
	case model.Yearly:
		return "year"
	default:
		return string(i)
	}
}

// FormatPrice formats a price with its interval, e.g. "9,99 € / month".
func FormatPrice(s model.Subscription) string {
	return FormatEUR(s.Price) + " / " + FormatInterval(s.Interval)
}

// FormatTerm describes the contract term and notice period.
// e.g. "12 months, 1 month notice" or "flexible".
func FormatTerm(s model.Subscription) string {
	if s.ContractTermMonths == nil || *s.ContractTermMonths <= 0 {
		return "flexible"
	}
	term := plural(*s.ContractTermMonths, "month")
	if s.NoticePeriod == nil || s.NoticeUnit == "" {
		return term
	}
	unit := strings.TrimSuffix(string(s.NoticeUnit), "s")
	return term + ", " + plural(*s.NoticePeriod, unit) + " notice"
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FormatDelta formats a cost delta with sign.
func FormatDelta(current, previous float64) string {
	delta := current - previous
	if delta >= 0 {
		return "+" + FormatEUR(delta)
	}
	return "-" + FormatEUR(-delta)
}
