package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/aboradar/internal/model"
)

// record is the browser app's serialized subscription. Optional numbers are
// pointers so absence survives a round trip.
type record struct {
	ID                       string   `json:"id"`
	Name                     string   `json:"name"`
	Price                    *float64 `json:"price"`
	Interval                 string   `json:"interval"`
	StartDate                string   `json:"startDate"`
	Category                 string   `json:"category"`
	ContractTermInMonths     *int     `json:"contractTermInMonths,omitempty"`
	CancellationNoticePeriod *int     `json:"cancellationNoticePeriod,omitempty"`
	CancellationNoticeUnit   string   `json:"cancellationNoticeUnit,omitempty"`
}

// DecodeJSON parses an exported subscription list. Entries without id or
// name, with a non-numeric price or an unreadable start date are dropped
// and counted rather than failing the whole import.
func DecodeJSON(data []byte) (LoadResult, error) {
	var lr LoadResult

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return lr, fmt.Errorf("decoding subscription list: %w", err)
	}

	for _, msg := range raw {
		var r record
		if err := json.Unmarshal(msg, &r); err != nil {
			lr.Dropped++
			continue
		}
		sub, ok := r.toModel()
		if !ok {
			lr.Dropped++
			continue
		}
		lr.Subscriptions = append(lr.Subscriptions, sub)
	}
	return lr, nil
}

// EncodeJSON writes subscriptions in the format DecodeJSON reads.
func EncodeJSON(subs []model.Subscription) ([]byte, error) {
	records := make([]record, 0, len(subs))
	for _, s := range subs {
		price := s.Price
		records = append(records, record{
			ID:                       s.ID,
			Name:                     s.Name,
			Price:                    &price,
			Interval:                 string(s.Interval),
			StartDate:                s.StartDate.Format(dateLayout),
			Category:                 s.Category,
			ContractTermInMonths:     s.ContractTermMonths,
			CancellationNoticePeriod: s.NoticePeriod,
			CancellationNoticeUnit:   string(s.NoticeUnit),
		})
	}
	return json.MarshalIndent(records, "", "  ")
}

func (r record) toModel() (model.Subscription, bool) {
	if r.ID == "" || r.Name == "" || r.Price == nil {
		return model.Subscription{}, false
	}

	// Accept full ISO timestamps as well as plain dates.
	date := r.StartDate
	if len(date) > len(dateLayout) {
		date = date[:len(dateLayout)]
	}
	start, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), time.Local)
	if err != nil {
		return model.Subscription{}, false
	}

	category := r.Category
	if category == "" {
		category = model.DefaultCategory
	}

	return model.Subscription{
		ID:                 r.ID,
		Name:               r.Name,
		Price:              *r.Price,
		Interval:           model.Interval(r.Interval),
		StartDate:          start,
		Category:           category,
		ContractTermMonths: r.ContractTermInMonths,
		NoticePeriod:       r.CancellationNoticePeriod,
		NoticeUnit:         model.NoticeUnit(r.CancellationNoticeUnit),
	}, true
}
