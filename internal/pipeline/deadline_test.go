package pipeline

import (
	"testing"
	"time"

	"github.com/theirongolddev/aboradar/internal/model"
)

func contract(t *testing.T, start string, term int, period int, unit model.NoticeUnit) model.Subscription {
	t.Helper()
	return model.Subscription{
		ID:                 start,
		Name:               "Contract " + start,
		Price:              10,
		Interval:           model.Monthly,
		StartDate:          mustDate(t, start),
		ContractTermMonths: model.IntPtr(term),
		NoticePeriod:       model.IntPtr(period),
		NoticeUnit:         unit,
	}
}

func TestContractEndDate(t *testing.T) {
	tests := []struct {
		start string
		term  int
		want  string
	}{
		{"2024-01-01", 12, "2025-01-01"},
		{"2023-02-28", 1, "2023-03-28"},
		// Day 31 rolls over past the shorter February.
		{"2024-01-31", 1, "2024-03-02"},
		{"2023-01-31", 1, "2023-03-03"},
		{"2024-02-29", 12, "2025-03-01"},
		{"2024-05-15", 24, "2026-05-15"},
	}

	for _, tt := range tests {
		s := model.Subscription{StartDate: mustDate(t, tt.start), ContractTermMonths: model.IntPtr(tt.term)}
		got, ok := ContractEndDate(s)
		if !ok {
			t.Fatalf("ContractEndDate(%s, %d) absent", tt.start, tt.term)
		}
		if want := mustDate(t, tt.want); !got.Equal(want) {
			t.Errorf("ContractEndDate(%s, %d) = %s, want %s", tt.start, tt.term, got.Format("2006-01-02"), tt.want)
		}
	}
}

func TestContractEndDate_Flexible(t *testing.T) {
	start := mustDate(t, "2024-01-01")
	for _, term := range []*int{nil, model.IntPtr(0), model.IntPtr(-3)} {
		if _, ok := ContractEndDate(model.Subscription{StartDate: start, ContractTermMonths: term}); ok {
			t.Errorf("term %v produced an end date", term)
		}
	}
}

func TestCancellationDeadline_Example(t *testing.T) {
	s := contract(t, "2024-01-01", 12, 1, model.Months)

	end, ok := ContractEndDate(s)
	if !ok || !end.Equal(mustDate(t, "2025-01-01")) {
		t.Fatalf("end date = %s (ok=%v), want 2025-01-01", end.Format("2006-01-02"), ok)
	}
	deadline, ok := CancellationDeadline(s)
	if !ok || !deadline.Equal(mustDate(t, "2024-12-01")) {
		t.Fatalf("deadline = %s (ok=%v), want 2024-12-01", deadline.Format("2006-01-02"), ok)
	}
}

func TestCancellationDeadline_Units(t *testing.T) {
	tests := []struct {
		name string
		sub  model.Subscription
		want string
	}{
		{"days", contract(t, "2024-01-01", 12, 14, model.Days), "2024-12-18"},
		{"weeks", contract(t, "2024-01-01", 12, 2, model.Weeks), "2024-12-18"},
		{"months", contract(t, "2024-01-01", 24, 3, model.Months), "2025-10-01"},
		{"months rollover", contract(t, "2023-03-31", 12, 1, model.Months), "2024-03-02"},
		{"days across month", contract(t, "2024-01-15", 1, 30, model.Days), "2024-01-16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CancellationDeadline(tt.sub)
			if !ok {
				t.Fatal("deadline absent")
			}
			if want := mustDate(t, tt.want); !got.Equal(want) {
				t.Fatalf("deadline = %s, want %s", got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestCancellationDeadline_Absent(t *testing.T) {
	base := contract(t, "2024-01-01", 12, 1, model.Months)

	noTerm := base
	noTerm.ContractTermMonths = nil
	zeroTerm := base
	zeroTerm.ContractTermMonths = model.IntPtr(0)
	negTerm := base
	negTerm.ContractTermMonths = model.IntPtr(-1)
	noPeriod := base
	noPeriod.NoticePeriod = nil
	zeroPeriod := base
	zeroPeriod.NoticePeriod = model.IntPtr(0)
	noUnit := base
	noUnit.NoticeUnit = ""
	badUnit := base
	badUnit.NoticeUnit = "fortnights"

	for name, s := range map[string]model.Subscription{
		"no term":      noTerm,
		"zero term":    zeroTerm,
		"negative":     negTerm,
		"no period":    noPeriod,
		"zero notice":  zeroPeriod,
		"no unit":      noUnit,
		"unknown unit": badUnit,
	} {
		if d, ok := CancellationDeadline(s); ok {
			t.Errorf("%s: got deadline %s, want absent", name, d.Format("2006-01-02"))
		}
	}
}

func TestDeadlineFromEnd_ComposesWithEndDate(t *testing.T) {
	s := contract(t, "2024-03-10", 6, 4, model.Weeks)
	end, _ := ContractEndDate(s)
	fromEnd, ok := DeadlineFromEnd(end, 4, model.Weeks)
	if !ok {
		t.Fatal("DeadlineFromEnd absent")
	}
	direct, _ := CancellationDeadline(s)
	if !fromEnd.Equal(direct) {
		t.Fatalf("DeadlineFromEnd = %s, CancellationDeadline = %s", fromEnd, direct)
	}
	if !fromEnd.Equal(mustDate(t, "2024-08-13")) {
		t.Fatalf("deadline = %s, want 2024-08-13", fromEnd.Format("2006-01-02"))
	}
}

func TestDaysBetween(t *testing.T) {
	a := mustDate(t, "2024-02-27")
	if got := DaysBetween(a, mustDate(t, "2024-03-01")); got != 3 {
		t.Fatalf("DaysBetween = %d, want 3 (leap year)", got)
	}
	if got := DaysBetween(a.Add(23*time.Hour), a); got != 0 {
		t.Fatalf("same-day DaysBetween = %d, want 0", got)
	}
	if got := DaysBetween(a, mustDate(t, "2024-02-20")); got != -7 {
		t.Fatalf("DaysBetween backwards = %d, want -7", got)
	}
}

func TestDeadlineSoon(t *testing.T) {
	s := contract(t, "2024-01-01", 12, 1, model.Months) // deadline 2024-12-01

	tests := []struct {
		asOf string
		want bool
	}{
		{"2024-10-31", false},
		{"2024-11-01", true},
		{"2024-12-01", true},
		{"2024-12-02", false},
	}
	for _, tt := range tests {
		if got := DeadlineSoon(s, mustDate(t, tt.asOf), model.DeadlineWarningDays); got != tt.want {
			t.Errorf("DeadlineSoon on %s = %v, want %v", tt.asOf, got, tt.want)
		}
	}
}

func TestUpcomingDeadlines(t *testing.T) {
	asOf := mustDate(t, "2024-06-01")
	later := contract(t, "2023-09-01", 12, 1, model.Months) // deadline 2024-08-01
	sooner := contract(t, "2023-07-15", 12, 2, model.Weeks) // deadline 2024-07-01
	past := contract(t, "2023-05-01", 12, 1, model.Months)  // deadline 2024-04-01
	far := contract(t, "2024-01-01", 12, 1, model.Months)   // deadline 2024-12-01
	flexible := model.Subscription{ID: "flex", Name: "Flex", StartDate: asOf}

	got := UpcomingDeadlines([]model.Subscription{later, far, past, flexible, sooner}, asOf, model.UpcomingWindowDays)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].Deadline.Equal(mustDate(t, "2024-07-01")) {
		t.Errorf("first deadline = %s, want 2024-07-01", got[0].Deadline.Format("2006-01-02"))
	}
	if got[0].DaysLeft != 30 {
		t.Errorf("first DaysLeft = %d, want 30", got[0].DaysLeft)
	}
	if !got[0].EndDate.Equal(mustDate(t, "2024-07-15")) {
		t.Errorf("first EndDate = %s, want 2024-07-15", got[0].EndDate.Format("2006-01-02"))
	}
	if !got[1].Deadline.Equal(mustDate(t, "2024-08-01")) {
		t.Errorf("second deadline = %s, want 2024-08-01", got[1].Deadline.Format("2006-01-02"))
	}
}
