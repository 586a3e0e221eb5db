package daemon

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/theirongolddev/aboradar/internal/cli"
)

// DigestSubject is the subject line of the deadline digest mail.
const DigestSubject = "aboradar: upcoming cancellation deadlines"

// sendDigest mails the deadlines inside the warning window. It runs on the
// cron schedule and does nothing when no deadline is due.
func (s *Service) sendDigest() {
	var due []Deadline
	for _, d := range s.upcomingDeadlines() {
		if d.DaysLeft <= s.cfg.WarningDays {
			due = append(due, d)
		}
	}
	if len(due) == 0 {
		s.log.Debug("digest skipped, nothing due")
		return
	}

	body := DigestBody(due)
	if s.notifier == nil {
		s.log.Info("digest ready but mail is not configured", zap.Int("deadlines", len(due)))
		return
	}
	if err := s.notifier.Send(s.cfg.DigestTo, DigestSubject, body, ""); err != nil {
		s.log.Error("sending digest failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.lastDigestAt = s.cfg.Now()
	s.mu.Unlock()
	s.log.Info("digest sent", zap.Int("deadlines", len(due)))
}

// DigestBody renders the plain-text digest for the given deadlines.
func DigestBody(due []Deadline) string {
	var b strings.Builder
	b.WriteString("The following subscriptions must be cancelled soon to avoid renewal:\n\n")
	for _, d := range due {
		fmt.Fprintf(&b, "- %s: cancel by %s (%s), contract ends %s, %s per month\n",
			d.Name, cli.FormatDate(d.Deadline), cli.FormatDaysLeft(d.DaysLeft),
			cli.FormatDate(d.EndDate), cli.FormatEUR(d.MonthlyEUR))
	}
	return b.String()
}
