// Package form turns raw user input into subscriptions and back.
package form

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/theirongolddev/aboradar/internal/model"
)

// ErrInvalid wraps validation failures.
var ErrInvalid = errors.New("invalid subscription")

const dateLayout = "2006-01-02"

// Input holds a subscription as typed by the user. Every field is a string
// so CLI flags and form fields share one parser.
type Input struct {
	Name         string `validate:"required"`
	Price        string
	Interval     string `validate:"required,oneof=weekly monthly yearly"`
	StartDate    string `validate:"required,datetime=2006-01-02"`
	Category     string
	ContractTerm string
	NoticePeriod string
	NoticeUnit   string `validate:"omitempty,oneof=days weeks months"`
}

var validate = validator.New()

// Parse validates in and builds a subscription. An empty id gets a fresh
// UUID. Unparseable numbers never fail: the price collapses to 0 and the
// term and notice period become absent.
func Parse(in Input, id string) (model.Subscription, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Interval = strings.ToLower(strings.TrimSpace(in.Interval))
	in.StartDate = strings.TrimSpace(in.StartDate)
	in.NoticeUnit = strings.ToLower(strings.TrimSpace(in.NoticeUnit))

	if err := validate.Struct(in); err != nil {
		return model.Subscription{}, fmt.Errorf("%w: %s", ErrInvalid, describe(err))
	}

	start, err := time.ParseInLocation(dateLayout, in.StartDate, time.Local)
	if err != nil {
		return model.Subscription{}, fmt.Errorf("%w: start date: %v", ErrInvalid, err)
	}

	if id == "" {
		id = uuid.NewString()
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = model.DefaultCategory
	}

	return model.Subscription{
		ID:                 id,
		Name:               in.Name,
		Price:              parsePrice(in.Price),
		Interval:           model.Interval(in.Interval),
		StartDate:          start,
		Category:           category,
		ContractTermMonths: parseOptionalInt(in.ContractTerm),
		NoticePeriod:       parseOptionalInt(in.NoticePeriod),
		NoticeUnit:         model.NoticeUnit(in.NoticeUnit),
	}, nil
}

// FromSubscription fills an Input for editing an existing subscription.
func FromSubscription(s model.Subscription) Input {
	in := Input{
		Name:       s.Name,
		Price:      strconv.FormatFloat(s.Price, 'f', -1, 64),
		Interval:   string(s.Interval),
		StartDate:  s.StartDate.Format(dateLayout),
		Category:   s.Category,
		NoticeUnit: string(s.NoticeUnit),
	}
	if s.ContractTermMonths != nil {
		in.ContractTerm = strconv.Itoa(*s.ContractTermMonths)
	}
	if s.NoticePeriod != nil {
		in.NoticePeriod = strconv.Itoa(*s.NoticePeriod)
	}
	return in
}

// parsePrice accepts "9.99" and "9,99". Anything unusable is 0.
func parsePrice(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func parseOptionalInt(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, strings.ToLower(fe.Field())+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of %s", strings.ToLower(fe.Field()), fe.Param()))
		case "datetime":
			msgs = append(msgs, strings.ToLower(fe.Field())+" must be YYYY-MM-DD")
		default:
			msgs = append(msgs, fmt.Sprintf("%s fails %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return strings.Join(msgs, ", ")
}

// SuggestNames returns autocomplete candidates for a subscription name.
func SuggestNames(existing []model.Subscription, query string) []string {
	names := make([]string, 0, len(existing))
	for _, s := range existing {
		names = append(names, s.Name)
	}
	return suggest(model.CommonSubscriptions, names, query)
}

// SuggestCategories returns autocomplete candidates for a category.
func SuggestCategories(existing []model.Subscription, query string) []string {
	cats := make([]string, 0, len(existing))
	for _, s := range existing {
		cats = append(cats, s.Category)
	}
	return suggest(model.Categories, cats, query)
}

func suggest(builtin, existing []string, query string) []string {
	seen := make(map[string]struct{}, len(builtin)+len(existing))
	var out []string
	q := strings.ToLower(strings.TrimSpace(query))
	for _, list := range [][]string{builtin, existing} {
		for _, v := range list {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			if strings.Contains(strings.ToLower(v), q) {
				out = append(out, v)
			}
		}
	}
	sort.Strings(out)
	return out
}
