package pipeline

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/theirongolddev/aboradar/internal/model"
)

func sampleSubs(t *testing.T) []model.Subscription {
	t.Helper()
	return []model.Subscription{
		{ID: "1", Name: "Netflix", Price: 13.99, Interval: model.Monthly, StartDate: mustDate(t, "2023-05-01"), Category: "Streaming"},
		{ID: "2", Name: "Spotify", Price: 10.99, Interval: model.Monthly, StartDate: mustDate(t, "2022-01-10"), Category: "Streaming"},
		{ID: "3", Name: "Adobe", Price: 714.84, Interval: model.Yearly, StartDate: mustDate(t, "2024-02-01"), Category: "Software"},
		{ID: "4", Name: "Newspaper", Price: 4.5, Interval: model.Weekly, StartDate: mustDate(t, "2024-01-01")},
		{
			ID: "5", Name: "Gym", Price: 29.9, Interval: model.Monthly, Category: "Sports",
			StartDate:          mustDate(t, "2023-01-01"),
			ContractTermMonths: model.IntPtr(12),
			NoticePeriod:       model.IntPtr(1),
			NoticeUnit:         model.Months,
		},
		{
			ID: "6", Name: "Mobile", Price: 19.99, Interval: model.Monthly, Category: "Mobile",
			StartDate:          mustDate(t, "2023-07-01"),
			ContractTermMonths: model.IntPtr(24),
			NoticePeriod:       model.IntPtr(3),
			NoticeUnit:         model.Months,
		},
	}
}

func TestIsActive(t *testing.T) {
	s := contract(t, "2024-01-01", 12, 1, model.Months) // deadline 2024-12-01

	deadlineDay := mustDate(t, "2024-12-01").Add(18 * time.Hour)
	if !IsActive(s, deadlineDay) {
		t.Error("subscription inactive on its deadline day")
	}
	if IsActive(s, mustDate(t, "2024-12-02")) {
		t.Error("subscription active after its deadline")
	}
	if !IsActive(model.Subscription{StartDate: mustDate(t, "2000-01-01")}, mustDate(t, "2030-01-01")) {
		t.Error("flexible subscription reported inactive")
	}
}

func TestAggregate_Totals(t *testing.T) {
	asOf := mustDate(t, "2024-06-15")
	summary := Aggregate(sampleSubs(t), asOf)

	// Gym deadline 2023-12-01 has passed; Mobile deadline 2025-04-01 has not.
	want := 13.99 + 10.99 + 714.84/12 + 4.5*52/12 + 19.99
	if math.Abs(summary.MonthlyTotal-want) > 1e-9 {
		t.Fatalf("MonthlyTotal = %.6f, want %.6f", summary.MonthlyTotal, want)
	}
	if summary.YearlyTotal != summary.MonthlyTotal*12 {
		t.Fatalf("YearlyTotal = %.6f, want MonthlyTotal*12 = %.6f", summary.YearlyTotal, summary.MonthlyTotal*12)
	}
	if summary.TotalCount != 6 || summary.ActiveCount != 5 {
		t.Fatalf("counts = %d/%d, want 5 active of 6", summary.ActiveCount, summary.TotalCount)
	}
}

func TestAggregate_OrderIndependent(t *testing.T) {
	asOf := mustDate(t, "2024-06-15")
	subs := sampleSubs(t)
	base := Aggregate(subs, asOf)

	reversed := make([]model.Subscription, len(subs))
	for i, s := range subs {
		reversed[len(subs)-1-i] = s
	}
	rotated := append(append([]model.Subscription{}, subs[3:]...), subs[:3]...)

	for name, perm := range map[string][]model.Subscription{"reversed": reversed, "rotated": rotated} {
		got := Aggregate(perm, asOf)
		if !reflect.DeepEqual(got, base) {
			t.Errorf("%s input changed the aggregate:\n got %+v\nwant %+v", name, got, base)
		}
	}
}

func TestAggregate_Empty(t *testing.T) {
	summary := Aggregate(nil, mustDate(t, "2024-06-15"))
	if summary.MonthlyTotal != 0 || summary.YearlyTotal != 0 {
		t.Fatalf("empty totals = %.2f/%.2f, want 0", summary.MonthlyTotal, summary.YearlyTotal)
	}
	if len(summary.ByCategory) != 0 {
		t.Fatalf("empty ByCategory has %d entries", len(summary.ByCategory))
	}
	if len(summary.Trailing12Months) != 12 {
		t.Fatalf("empty Trailing12Months has %d entries, want 12", len(summary.Trailing12Months))
	}
}

func TestAggregateCategories(t *testing.T) {
	asOf := mustDate(t, "2024-06-15")
	cats := AggregateCategories(sampleSubs(t), asOf)

	byName := make(map[string]model.CategoryCost)
	for _, c := range cats {
		byName[c.Category] = c
	}

	if _, ok := byName["Sports"]; ok {
		t.Error("expired Sports subscription counted in categories")
	}
	other, ok := byName[model.DefaultCategory]
	if !ok {
		t.Fatal("uncategorized subscription not grouped under the default category")
	}
	if math.Abs(other.MonthlyCost-4.5*52/12) > 1e-9 {
		t.Errorf("Other = %.4f, want %.4f", other.MonthlyCost, 4.5*52/12)
	}
	if streaming := byName["Streaming"]; streaming.Count != 2 {
		t.Errorf("Streaming count = %d, want 2", streaming.Count)
	}

	for i := 1; i < len(cats); i++ {
		if cats[i].MonthlyCost > cats[i-1].MonthlyCost {
			t.Fatalf("categories not sorted by cost: %s (%.2f) after %s (%.2f)",
				cats[i].Category, cats[i].MonthlyCost, cats[i-1].Category, cats[i-1].MonthlyCost)
		}
	}

	share := 0.0
	for _, c := range cats {
		share += c.SharePercent
	}
	if math.Abs(share-100) > 1e-9 {
		t.Errorf("shares sum to %.6f, want 100", share)
	}
}

func TestAggregateCategories_SingleCategoryEqualsTotal(t *testing.T) {
	asOf := mustDate(t, "2024-06-15")
	subs := sampleSubs(t)
	for i := range subs {
		subs[i].Category = "Everything"
	}

	summary := Aggregate(subs, asOf)
	if len(summary.ByCategory) != 1 {
		t.Fatalf("ByCategory has %d entries, want 1", len(summary.ByCategory))
	}
	if summary.ByCategory[0].MonthlyCost != summary.MonthlyTotal {
		t.Fatalf("category sum %.6f != monthly total %.6f", summary.ByCategory[0].MonthlyCost, summary.MonthlyTotal)
	}
}

func TestAggregateTrailing12Months_Buckets(t *testing.T) {
	asOf := mustDate(t, "2024-06-15")
	subs := []model.Subscription{
		// Flexible, started mid-March: contributes Mar..Jun.
		{ID: "a", Name: "A", Price: 10, Interval: model.Monthly, StartDate: mustDate(t, "2024-03-10")},
		// Deadline 2023-12-01: contributes through December, which it touches on day one.
		{
			ID: "b", Name: "B", Price: 120, Interval: model.Yearly,
			StartDate:          mustDate(t, "2023-01-01"),
			ContractTermMonths: model.IntPtr(12),
			NoticePeriod:       model.IntPtr(1),
			NoticeUnit:         model.Months,
		},
	}

	buckets := AggregateTrailing12Months(subs, asOf)
	if len(buckets) != 12 {
		t.Fatalf("len = %d, want 12", len(buckets))
	}

	want := []float64{10, 10, 10, 10, 10, 10, 0, 0, 10, 10, 10, 10}
	for i, b := range buckets {
		if math.Abs(b.Cost-want[i]) > 1e-9 {
			t.Errorf("bucket %d (%s) = %.2f, want %.2f", i, b.Month.Format("2006-01"), b.Cost, want[i])
		}
	}
	if got := buckets[0].Month; !got.Equal(mustDate(t, "2023-07-01")) {
		t.Errorf("first bucket = %s, want 2023-07", got.Format("2006-01-02"))
	}
	if got := buckets[11].Month; !got.Equal(mustDate(t, "2024-06-01")) {
		t.Errorf("last bucket = %s, want 2024-06", got.Format("2006-01-02"))
	}
}

func TestAggregateTrailing12Months_AlwaysTwelve(t *testing.T) {
	for _, asOf := range []string{"2024-01-31", "2024-02-29", "2024-12-01"} {
		d := mustDate(t, asOf)
		for _, subs := range [][]model.Subscription{nil, sampleSubs(t)} {
			buckets := AggregateTrailing12Months(subs, d)
			if len(buckets) != 12 {
				t.Fatalf("asOf %s: len = %d, want 12", asOf, len(buckets))
			}
			for i := 1; i < len(buckets); i++ {
				prev := buckets[i-1].Month
				if !buckets[i].Month.Equal(prev.AddDate(0, 1, 0)) {
					t.Fatalf("asOf %s: bucket %d = %s does not follow %s",
						asOf, i, buckets[i].Month.Format("2006-01"), prev.Format("2006-01"))
				}
			}
		}
	}
}

func TestFilters(t *testing.T) {
	subs := sampleSubs(t)

	if got := FilterByCategory(subs, "streaming"); len(got) != 2 {
		t.Errorf("FilterByCategory(streaming) = %d, want 2", len(got))
	}
	if got := FilterByCategory(subs, "other"); len(got) != 1 || got[0].Name != "Newspaper" {
		t.Errorf("FilterByCategory(other) = %v, want [Newspaper]", got)
	}
	if got := FilterByName(subs, "FLIX"); len(got) != 1 {
		t.Errorf("FilterByName(FLIX) = %d, want 1", len(got))
	}
	sorted := SortByName(subs)
	if sorted[0].Name != "Adobe" || sorted[len(sorted)-1].Name != "Spotify" {
		t.Errorf("SortByName = %s..%s, want Adobe..Spotify", sorted[0].Name, sorted[len(sorted)-1].Name)
	}
	if subs[0].Name != "Netflix" {
		t.Error("SortByName mutated its input")
	}
}
