package daemon

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/aboradar/internal/model"
	"github.com/theirongolddev/aboradar/internal/pipeline"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

// fixture returns a service over a mutable in-memory snapshot.
func fixture(t *testing.T, now time.Time, subs *[]model.Subscription) *Service {
	t.Helper()
	return New(Config{
		DBPath:       "test.db",
		Interval:     10 * time.Second,
		EventsBuffer: 50,
		WarningDays:  30,
		UpcomingDays: 90,
		Load: func(string) (*pipeline.LoadResult, error) {
			return &pipeline.LoadResult{Subscriptions: *subs}, nil
		},
		Now: func() time.Time { return now },
	}, nil, nil)
}

func gym(t *testing.T) model.Subscription {
	// Deadline 2024-07-01.
	return model.Subscription{
		ID: "gym", Name: "Gym", Price: 30, Interval: model.Monthly,
		StartDate:          mustDate(t, "2023-08-01"),
		ContractTermMonths: model.IntPtr(12),
		NoticePeriod:       model.IntPtr(1),
		NoticeUnit:         model.Months,
	}
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{Subscriptions: 3, Active: 2, MonthlyEUR: 10.5}
	curr := Snapshot{Subscriptions: 4, Active: 3, MonthlyEUR: 13.1}

	delta := diffSnapshots(prev, curr)
	if delta.Subscriptions != 1 || delta.Active != 1 {
		t.Fatalf("count delta = %d/%d, want 1/1", delta.Subscriptions, delta.Active)
	}
	if math.Abs(delta.MonthlyEUR-2.6) > 1e-9 {
		t.Fatalf("cost delta = %.2f, want 2.60", delta.MonthlyEUR)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffSnapshots(curr, curr).isZero() {
		t.Fatal("identical snapshots produced a delta")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{Interval: 10 * time.Second, EventsBuffer: 2}, nil, nil)

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestPollOnce_Events(t *testing.T) {
	subs := []model.Subscription{
		{ID: "music", Name: "Music", Price: 10, Interval: model.Monthly, StartDate: mustDate(t, "2024-01-01")},
		gym(t),
	}
	s := fixture(t, mustDate(t, "2024-06-15"), &subs)

	s.pollOnce()
	types := eventTypes(s)
	if len(types) != 2 || types[0] != EventSnapshot || types[1] != EventDeadlineWarning {
		t.Fatalf("first poll events = %v, want [snapshot deadline_warning]", types)
	}

	// Nothing changed: no new events, warning not repeated.
	s.pollOnce()
	if got := len(eventTypes(s)); got != 2 {
		t.Fatalf("second poll added events: %v", eventTypes(s))
	}

	subs = append(subs, model.Subscription{ID: "news", Name: "News", Price: 5, Interval: model.Monthly, StartDate: mustDate(t, "2024-06-01")})
	s.pollOnce()
	types = eventTypes(s)
	if types[len(types)-1] != EventTotalsDelta {
		t.Fatalf("after adding a subscription events = %v, want trailing totals_delta", types)
	}

	st := s.snapshotStatus()
	if st.Summary.Subscriptions != 3 || st.Summary.DeadlinesSoon != 1 {
		t.Errorf("summary = %+v", st.Summary)
	}
	if math.Abs(st.Summary.MonthlyEUR-45) > 1e-9 {
		t.Errorf("MonthlyEUR = %.2f, want 45", st.Summary.MonthlyEUR)
	}
	if st.Summary.NextDeadline == nil || !st.Summary.NextDeadline.Equal(mustDate(t, "2024-07-01")) {
		t.Errorf("NextDeadline = %v, want 2024-07-01", st.Summary.NextDeadline)
	}
	if st.PollCount != 3 {
		t.Errorf("PollCount = %d, want 3", st.PollCount)
	}
}

func TestPollOnce_ForgetsPassedWarnings(t *testing.T) {
	subs := []model.Subscription{gym(t)}
	now := mustDate(t, "2024-06-15")
	s := New(Config{
		Interval:     10 * time.Second,
		EventsBuffer: 50,
		WarningDays:  30,
		UpcomingDays: 90,
		Load: func(string) (*pipeline.LoadResult, error) {
			return &pipeline.LoadResult{Subscriptions: subs}, nil
		},
		Now: func() time.Time { return now },
	}, nil, nil)

	s.pollOnce()
	if len(s.warned) != 1 {
		t.Fatalf("warned = %v, want the gym deadline", s.warned)
	}

	// Deadline 2024-07-01 has passed.
	now = mustDate(t, "2024-07-05")
	s.pollOnce()
	if len(s.warned) != 0 {
		t.Fatalf("warned = %v, want empty after the deadline passed", s.warned)
	}

	// A new term brings a new deadline and a new warning.
	subs[0].StartDate = mustDate(t, "2023-08-20")
	s.pollOnce()
	if len(s.warned) != 1 || !s.warned["gym@2024-07-20"] {
		t.Fatalf("warned = %v, want gym@2024-07-20", s.warned)
	}
}

func TestPollOnce_LoadError(t *testing.T) {
	s := New(Config{
		Load: func(string) (*pipeline.LoadResult, error) { return nil, errors.New("disk gone") },
	}, nil, nil)

	s.pollOnce()
	st := s.snapshotStatus()
	if st.LastError != "disk gone" {
		t.Errorf("LastError = %q, want disk gone", st.LastError)
	}
	if st.EventCount != 0 {
		t.Errorf("EventCount = %d after failed poll, want 0", st.EventCount)
	}
}

func eventTypes(s *Service) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]string, len(s.events))
	for i, ev := range s.events {
		types[i] = ev.Type
	}
	return types
}

func TestHandlers(t *testing.T) {
	subs := []model.Subscription{gym(t)}
	s := fixture(t, mustDate(t, "2024-06-15"), &subs)
	s.pollOnce()

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	var upcoming []Deadline
	getJSON(t, srv.URL+"/v1/upcoming", &upcoming)
	if len(upcoming) != 1 || upcoming[0].Name != "Gym" || upcoming[0].DaysLeft != 16 {
		t.Fatalf("upcoming = %+v, want Gym in 16 days", upcoming)
	}

	var status Status
	getJSON(t, srv.URL+"/v1/status", &status)
	if status.Summary.Active != 1 || status.WarningDays != 30 {
		t.Errorf("status = %+v", status)
	}

	var events []Event
	getJSON(t, srv.URL+"/v1/events", &events)
	if len(events) != 2 || events[1].Deadline == nil || events[1].Deadline.ID != "gym" {
		t.Errorf("events = %+v", events)
	}
}

func TestHandlerFilters(t *testing.T) {
	subs := []model.Subscription{gym(t)}
	s := fixture(t, mustDate(t, "2024-06-15"), &subs)
	s.pollOnce()

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	var warnings []Event
	getJSON(t, srv.URL+"/v1/events?type="+EventDeadlineWarning, &warnings)
	if len(warnings) != 1 || warnings[0].Type != EventDeadlineWarning {
		t.Errorf("type filter = %+v", warnings)
	}

	var newer []Event
	getJSON(t, srv.URL+"/v1/events?since=1", &newer)
	if len(newer) != 1 || newer[0].ID != 2 {
		t.Errorf("since filter = %+v", newer)
	}

	var near []Deadline
	getJSON(t, srv.URL+"/v1/upcoming?days=10", &near)
	if len(near) != 0 {
		t.Errorf("days=10 = %+v, want none (gym is 16 days out)", near)
	}

	for _, tc := range []struct {
		method, path string
		want         int
	}{
		{http.MethodPost, "/v1/status", http.StatusMethodNotAllowed},
		{http.MethodGet, "/v1/upcoming?days=soon", http.StatusBadRequest},
		{http.MethodGet, "/v1/events?since=x", http.StatusBadRequest},
	} {
		req, err := http.NewRequest(tc.method, srv.URL+tc.path, nil)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Errorf("%s %s = %d, want %d", tc.method, tc.path, resp.StatusCode, tc.want)
		}
	}
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding %s: %v", url, err)
	}
}

type recordingNotifier struct {
	to, subject, body string
	calls             int
}

func (n *recordingNotifier) Send(to, subject, body, _ string) error {
	n.calls++
	n.to, n.subject, n.body = to, subject, body
	return nil
}

func TestSendDigest(t *testing.T) {
	subs := []model.Subscription{gym(t)}
	now := mustDate(t, "2024-06-15")
	n := &recordingNotifier{}
	s := New(Config{
		WarningDays: 30,
		DigestTo:    "me@example.org",
		Load: func(string) (*pipeline.LoadResult, error) {
			return &pipeline.LoadResult{Subscriptions: subs}, nil
		},
		Now: func() time.Time { return now },
	}, nil, n)

	s.pollOnce()
	s.sendDigest()

	if n.calls != 1 {
		t.Fatalf("notifier calls = %d, want 1", n.calls)
	}
	if n.to != "me@example.org" || n.subject != DigestSubject {
		t.Errorf("sent to %q with subject %q", n.to, n.subject)
	}
	for _, want := range []string{"Gym", "01.07.2024", "in 16 days", "30,00 €"} {
		if !strings.Contains(n.body, want) {
			t.Errorf("digest body missing %q:\n%s", want, n.body)
		}
	}
	if s.snapshotStatus().LastDigestAt.IsZero() {
		t.Error("LastDigestAt not recorded")
	}
}

func TestSendDigest_NothingDue(t *testing.T) {
	subs := []model.Subscription{gym(t)}
	n := &recordingNotifier{}
	s := New(Config{
		WarningDays: 7,
		Load: func(string) (*pipeline.LoadResult, error) {
			return &pipeline.LoadResult{Subscriptions: subs}, nil
		},
		Now: func() time.Time { return mustDate(t, "2024-06-01") },
	}, nil, n)

	s.pollOnce()
	s.sendDigest()
	if n.calls != 0 {
		t.Fatalf("notifier called %d times with nothing due", n.calls)
	}
}
