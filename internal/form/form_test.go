package form

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/aboradar/internal/model"
	"github.com/theirongolddev/aboradar/internal/pipeline"
)

func validInput() Input {
	return Input{
		Name:         "Gym",
		Price:        "29.90",
		Interval:     "monthly",
		StartDate:    "2024-01-01",
		Category:     "Sports",
		ContractTerm: "12",
		NoticePeriod: "1",
		NoticeUnit:   "months",
	}
}

func TestParse_Valid(t *testing.T) {
	sub, err := Parse(validInput(), "")
	require.NoError(t, err)

	_, err = uuid.Parse(sub.ID)
	assert.NoError(t, err, "generated id is not a UUID")
	assert.Equal(t, "Gym", sub.Name)
	assert.InDelta(t, 29.9, sub.Price, 1e-9)
	assert.Equal(t, model.Monthly, sub.Interval)
	assert.Equal(t, "2024-01-01", sub.StartDate.Format("2006-01-02"))
	require.NotNil(t, sub.ContractTermMonths)
	assert.Equal(t, 12, *sub.ContractTermMonths)
	require.NotNil(t, sub.NoticePeriod)
	assert.Equal(t, 1, *sub.NoticePeriod)
	assert.Equal(t, model.Months, sub.NoticeUnit)
}

func TestParse_KeepsID(t *testing.T) {
	sub, err := Parse(validInput(), "existing-id")
	require.NoError(t, err)
	assert.Equal(t, "existing-id", sub.ID)
}

func TestParse_NumbersCollapse(t *testing.T) {
	tests := []struct {
		name  string
		price string
		want  float64
	}{
		{"empty", "", 0},
		{"garbage", "abc", 0},
		{"nan", "NaN", 0},
		{"negative", "-5", 0},
		{"comma decimal", "9,99", 9.99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			in.Price = tt.price
			sub, err := Parse(in, "")
			require.NoError(t, err)
			assert.InDelta(t, tt.want, sub.Price, 1e-9)
		})
	}

	in := validInput()
	in.ContractTerm = "twelve"
	in.NoticePeriod = ""
	sub, err := Parse(in, "")
	require.NoError(t, err)
	assert.Nil(t, sub.ContractTermMonths)
	assert.Nil(t, sub.NoticePeriod)
}

func TestParse_ZeroNoticeHasNoDeadline(t *testing.T) {
	in := validInput()
	in.NoticePeriod = "0"
	sub, err := Parse(in, "")
	require.NoError(t, err)

	_, ok := pipeline.CancellationDeadline(sub)
	assert.False(t, ok, "a zero notice period must not produce a deadline")
	assert.True(t, pipeline.IsActive(sub, sub.StartDate.AddDate(5, 0, 0)))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
	}{
		{"missing name", func(in *Input) { in.Name = "  " }},
		{"bad interval", func(in *Input) { in.Interval = "daily" }},
		{"bad date", func(in *Input) { in.StartDate = "01.01.2024" }},
		{"bad unit", func(in *Input) { in.NoticeUnit = "years" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := Parse(in, "")
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParse_DefaultCategory(t *testing.T) {
	in := validInput()
	in.Category = ""
	sub, err := Parse(in, "")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultCategory, sub.Category)
}

func TestFromSubscriptionRoundTrip(t *testing.T) {
	orig, err := Parse(validInput(), "id-1")
	require.NoError(t, err)

	again, err := Parse(FromSubscription(orig), orig.ID)
	require.NoError(t, err)
	assert.Equal(t, orig, again)
}

func TestSuggestNames(t *testing.T) {
	existing := []model.Subscription{{Name: "Netflix"}, {Name: "Local Gym"}}

	assert.Equal(t, []string{"Netflix"}, SuggestNames(existing, "flix"))
	assert.Equal(t, []string{"Local Gym"}, SuggestNames(existing, "GYM"))

	all := SuggestNames(existing, "")
	assert.Len(t, all, len(model.CommonSubscriptions)+1)
	assert.IsNonDecreasing(t, all)
}

func TestSuggestCategories(t *testing.T) {
	existing := []model.Subscription{{Category: "News"}, {Category: "Streaming"}}

	got := SuggestCategories(existing, "")
	assert.Contains(t, got, "News")
	assert.Len(t, got, len(model.Categories)+1)
	assert.Equal(t, []string{"Gaming", "Streaming"}, SuggestCategories(existing, "ING"))
}
