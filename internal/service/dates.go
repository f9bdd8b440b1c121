package service

import (
	"strings"
	"time"

	"github.com/xiaot623/newsstream/internal/domain"
)

// Yesterday returns the start of the previous UTC day.
func (s *Service) Yesterday() time.Time {
	return domain.StartOfDay(s.clock.Now()).AddDate(0, 0, -1)
}

// ResolveDate parses a client supplied date. Absent, unparseable, today or
// future dates resolve to yesterday; strictly past dates are kept.
func (s *Service) ResolveDate(raw string) time.Time {
	t, ok := ParseDate(raw)
	if !ok {
		return s.Yesterday()
	}
	return s.ResolveDay(t)
}

// ResolveDay applies the same policy as ResolveDate to a parsed time.
func (s *Service) ResolveDay(t time.Time) time.Time {
	if t.IsZero() {
		return s.Yesterday()
	}
	day := domain.StartOfDay(t)
	if !day.Before(domain.StartOfDay(s.clock.Now())) {
		return s.Yesterday()
	}
	return day
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns the UTC day.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(domain.DateLayout, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return domain.StartOfDay(t), true
	}
	return time.Time{}, false
}
