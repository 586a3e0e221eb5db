// Package daemon provides the long-running background deadline monitor service.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/theirongolddev/aboradar/internal/model"
	"github.com/theirongolddev/aboradar/internal/pipeline"
)

// Notifier delivers the deadline digest. *letter.Mailer satisfies it.
type Notifier interface {
	Send(to, subject, body, attachPath string) error
}

// Config controls the daemon runtime behavior.
type Config struct {
	DBPath         string
	Interval       time.Duration
	Addr           string
	EventsBuffer   int
	WarningDays    int
	UpcomingDays   int
	DigestSchedule string // standard 5-field cron spec; empty disables the digest
	DigestTo       string

	// Load reads the subscription snapshot. Defaults to pipeline.Load.
	Load func(dbPath string) (*pipeline.LoadResult, error)
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Snapshot is a compact cost state for status/event payloads.
type Snapshot struct {
	At            time.Time  `json:"at"`
	Subscriptions int        `json:"subscriptions"`
	Active        int        `json:"active"`
	MonthlyEUR    float64    `json:"monthly_eur"`
	YearlyEUR     float64    `json:"yearly_eur"`
	DeadlinesSoon int        `json:"deadlines_soon"`
	NextDeadline  *time.Time `json:"next_deadline,omitempty"`
}

// Delta captures snapshot deltas between polls.
type Delta struct {
	Subscriptions int     `json:"subscriptions"`
	Active        int     `json:"active"`
	MonthlyEUR    float64 `json:"monthly_eur"`
}

func (d Delta) isZero() bool {
	return d.Subscriptions == 0 &&
		d.Active == 0 &&
		d.MonthlyEUR == 0
}

// Deadline describes one upcoming cancellation deadline.
type Deadline struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MonthlyEUR float64   `json:"monthly_eur"`
	EndDate    time.Time `json:"end_date"`
	Deadline   time.Time `json:"deadline"`
	DaysLeft   int       `json:"days_left"`
}

// Event types.
const (
	EventSnapshot        = "snapshot"
	EventTotalsDelta     = "totals_delta"
	EventDeadlineWarning = "deadline_warning"
)

// Event is emitted whenever the snapshot changes or a deadline enters the
// warning window.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
	Deadline  *Deadline `json:"deadline,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	DBPath          string    `json:"db_path"`
	WarningDays     int       `json:"warning_days"`
	DigestSchedule  string    `json:"digest_schedule,omitempty"`
	LastDigestAt    time.Time `json:"last_digest_at,omitempty"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg      Config
	log      *zap.Logger
	notifier Notifier

	mu           sync.RWMutex
	startedAt    time.Time
	lastPollAt   time.Time
	lastDigestAt time.Time
	pollCount    int64
	lastError    string
	hasSnapshot  bool
	snapshot     Snapshot
	upcoming     []Deadline
	warned       map[string]bool
	nextEventID  int64
	events       []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
// notifier may be nil, in which case the digest is only logged.
func New(cfg Config, log *zap.Logger, notifier Notifier) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8427"
	}
	if cfg.WarningDays <= 0 {
		cfg.WarningDays = model.DeadlineWarningDays
	}
	if cfg.UpcomingDays <= 0 {
		cfg.UpcomingDays = model.UpcomingWindowDays
	}
	if cfg.Load == nil {
		cfg.Load = pipeline.Load
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		cfg:       cfg,
		log:       log,
		notifier:  notifier,
		startedAt: cfg.Now(),
		warned:    make(map[string]bool),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", getOnly(s.handleHealth))
	mux.HandleFunc("/v1/status", getOnly(s.handleStatus))
	mux.HandleFunc("/v1/events", getOnly(s.handleEvents))
	mux.HandleFunc("/v1/stream", getOnly(s.handleStream))
	mux.HandleFunc("/v1/upcoming", getOnly(s.handleUpcoming))
	return mux
}

// Run starts HTTP endpoints, polling and the digest schedule until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	var scheduler *cron.Cron
	if s.cfg.DigestSchedule != "" {
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(s.cfg.DigestSchedule, s.sendDigest); err != nil {
			return fmt.Errorf("parsing digest schedule %q: %w", s.cfg.DigestSchedule, err)
		}
	}

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info("daemon listening", zap.String("addr", s.cfg.Addr), zap.Duration("interval", s.cfg.Interval))

	if scheduler != nil {
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
	}

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce()
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) pollOnce() {
	now := s.cfg.Now()
	result, err := s.cfg.Load(s.cfg.DBPath)
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = now
		s.pollCount++
		s.mu.Unlock()
		s.log.Warn("daemon poll failed", zap.Error(err))
		return
	}

	subs := result.Subscriptions
	summary := pipeline.Aggregate(subs, now)
	upcoming := toDeadlines(pipeline.UpcomingDeadlines(subs, now, s.cfg.UpcomingDays))
	snap := snapshotFromSummary(summary, upcoming, s.cfg.WarningDays, now)

	var pending []Event

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.upcoming = upcoming
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	if !prevExists {
		pending = append(pending, s.newEventLocked(EventSnapshot, now, snap, Delta{}, nil))
	} else if delta := diffSnapshots(prev, snap); !delta.isZero() {
		pending = append(pending, s.newEventLocked(EventTotalsDelta, now, snap, delta, nil))
	}

	live := make(map[string]bool, len(upcoming))
	for i := range upcoming {
		d := upcoming[i]
		key := warnKey(d)
		live[key] = true
		if d.DaysLeft > s.cfg.WarningDays || s.warned[key] {
			continue
		}
		s.warned[key] = true
		pending = append(pending, s.newEventLocked(EventDeadlineWarning, now, snap, Delta{}, &d))
	}
	// Deadlines that passed or were edited away are not warned about again.
	for key := range s.warned {
		if !live[key] {
			delete(s.warned, key)
		}
	}
	s.mu.Unlock()

	for _, ev := range pending {
		s.publishEvent(ev)
		if ev.Type == EventDeadlineWarning {
			s.log.Info("cancellation deadline approaching",
				zap.String("subscription", ev.Deadline.Name),
				zap.Time("deadline", ev.Deadline.Deadline),
				zap.Int("days_left", ev.Deadline.DaysLeft))
		}
	}
	if result.Dropped > 0 {
		s.log.Warn("skipped invalid subscriptions", zap.Int("dropped", result.Dropped))
	}
}

func warnKey(d Deadline) string {
	return d.ID + "@" + d.Deadline.Format("2006-01-02")
}

// newEventLocked assigns the next event ID. Caller holds s.mu.
func (s *Service) newEventLocked(typ string, at time.Time, snap Snapshot, delta Delta, d *Deadline) Event {
	s.nextEventID++
	return Event{
		ID:        s.nextEventID,
		Type:      typ,
		Timestamp: at,
		Snapshot:  snap,
		Delta:     delta,
		Deadline:  d,
	}
}

func toDeadlines(items []model.UpcomingDeadline) []Deadline {
	out := make([]Deadline, 0, len(items))
	for _, it := range items {
		out = append(out, Deadline{
			ID:         it.Subscription.ID,
			Name:       it.Subscription.Name,
			MonthlyEUR: pipeline.MonthlyCost(it.Subscription),
			EndDate:    it.EndDate,
			Deadline:   it.Deadline,
			DaysLeft:   it.DaysLeft,
		})
	}
	return out
}

func snapshotFromSummary(summary model.Summary, upcoming []Deadline, warnDays int, at time.Time) Snapshot {
	snap := Snapshot{
		At:            at,
		Subscriptions: summary.TotalCount,
		Active:        summary.ActiveCount,
		MonthlyEUR:    summary.MonthlyTotal,
		YearlyEUR:     summary.YearlyTotal,
	}
	for _, d := range upcoming {
		if d.DaysLeft <= warnDays {
			snap.DeadlinesSoon++
		}
	}
	if len(upcoming) > 0 {
		next := upcoming[0].Deadline
		snap.NextDeadline = &next
	}
	return snap
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Subscriptions: curr.Subscriptions - prev.Subscriptions,
		Active:        curr.Active - prev.Active,
		MonthlyEUR:    curr.MonthlyEUR - prev.MonthlyEUR,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		DBPath:          s.cfg.DBPath,
		WarningDays:     s.cfg.WarningDays,
		DigestSchedule:  s.cfg.DigestSchedule,
		LastDigestAt:    s.lastDigestAt,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) upcomingDeadlines() []Deadline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Deadline, len(s.upcoming))
	copy(out, s.upcoming)
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// getOnly rejects anything but GET and HEAD.
func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.snapshotStatus())
}

// handleEvents returns the buffered events, optionally narrowed by
// ?type= and ?since= (an event id; only newer events are returned).
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ := q.Get("type")
	var since int64
	if v := q.Get("since"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "since must be an event id", http.StatusBadRequest)
			return
		}
		since = n
	}

	s.mu.RLock()
	events := make([]Event, 0, len(s.events))
	for _, ev := range s.events {
		if ev.ID <= since || (typ != "" && ev.Type != typ) {
			continue
		}
		events = append(events, ev)
	}
	s.mu.RUnlock()

	writeJSON(w, events)
}

// handleUpcoming lists deadlines in the configured window, or in a
// smaller one given by ?days=.
func (s *Service) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	upcoming := s.upcomingDeadlines()
	if v := r.URL.Query().Get("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 0 {
			http.Error(w, "days must be a non-negative integer", http.StatusBadRequest)
			return
		}
		upcoming = slices.DeleteFunc(upcoming, func(d Deadline) bool { return d.DaysLeft > days })
	}
	writeJSON(w, upcoming)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// New clients start from the current totals.
	send := func(ev Event) {
		writeSSE(w, ev)
		flusher.Flush()
	}
	send(Event{Type: EventSnapshot, Timestamp: s.cfg.Now(), Snapshot: s.snapshotStatus().Summary})

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			send(ev)
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if ev.ID > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	s.subs[s.nextSubID] = ch
	return s.nextSubID
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()
}
