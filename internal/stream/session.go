// Package stream implements the per-connection delivery of a day's articles:
// an immediate batch window followed by one article per interval, with
// resume-at-offset and race-free cancellation.
package stream

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/loggo/v2"

	"github.com/xiaot623/newsstream/internal/domain"
	"github.com/xiaot623/newsstream/internal/metrics"
	"github.com/xiaot623/newsstream/internal/protocol"
)

var logger = loggo.GetLogger("newsstream.stream")

const (
	// BatchWindowSize is the number of articles sent immediately on a
	// fresh session.
	BatchWindowSize = 10

	// DefaultInterval is the trickle spacing when none is configured.
	DefaultInterval = 120 * time.Second
)

// Sink receives the events of one session. Send must not block for long;
// an error means the connection is gone.
type Sink interface {
	Send(msg protocol.Message) error
}

// Filter describes the request that produced the record set. It is only
// used to word error events.
type Filter struct {
	Date     string
	Category domain.Category
}

// Config holds the per-session settings.
type Config struct {
	SessionID      string
	Interval       time.Duration
	AnnounceResume bool
	Filter         Filter
	Clock          clock.Clock
	Metrics        *metrics.Collector
}

// Session owns an ordered record set, a cursor and a delivery schedule.
// Run drives it; Close may be called from any goroutine.
type Session struct {
	cfg      Config
	articles []domain.Article
	offset   int
	sink     Sink

	mu     sync.Mutex
	state  domain.SessionState
	cursor int

	closed    chan struct{}
	closeOnce sync.Once
}

// NewSession creates a session over articles, which must already be in
// ascending publication order.
func NewSession(articles []domain.Article, offset int, sink Sink, cfg Config) *Session {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	return &Session{
		cfg:      cfg,
		articles: articles,
		offset:   offset,
		sink:     sink,
		state:    domain.SessionStateInit,
		closed:   make(chan struct{}),
	}
}

// State returns the current state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cursor returns the index of the next unsent article.
func (s *Session) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Close moves the session to CLOSED. Once Close returns no further event is
// sent, even if a tick is in flight.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Session) closeLocked() {
	s.state = domain.SessionStateClosed
	s.closeOnce.Do(func() { close(s.closed) })
}

// Run delivers the record set and returns the final state, COMPLETE or
// CLOSED. It blocks until delivery ends, ctx is cancelled or Close is called.
func (s *Session) Run(ctx context.Context) domain.SessionState {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SessionStarted()
	}
	final := s.run(ctx)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SessionEnded(final)
	}
	logger.Debugf("session %s finished in %s at cursor %d/%d", s.cfg.SessionID, final, s.Cursor(), len(s.articles))
	return final
}

func (s *Session) run(ctx context.Context) domain.SessionState {
	total := len(s.articles)

	if total == 0 {
		s.fail(ctx, protocol.ErrorCodeNoArticles, s.emptyMessage())
		return domain.SessionStateClosed
	}
	if s.offset < 0 || s.offset >= total {
		s.fail(ctx, protocol.ErrorCodeOffsetOutOfRange,
			fmt.Sprintf("Resume offset %d is out of range: %d articles available", s.offset, total))
		return domain.SessionStateClosed
	}

	if s.offset > 0 {
		return s.resume(ctx)
	}

	end := min(BatchWindowSize, total)
	batch := &protocol.BatchMessage{
		BaseMessage: s.base(protocol.TypeBatch),
		Articles:    s.articles[:end],
		Total:       total,
		StartIndex:  1,
		EndIndex:    end,
		Message:     "All articles sent",
	}
	if end < total {
		batch.Message = fmt.Sprintf("First %d articles sent. %d more to follow.", end, total-end)
	}
	if !s.emit(ctx, batch, end) || !s.transition(domain.SessionStateBatched) {
		return domain.SessionStateClosed
	}

	if end < total {
		logger.Debugf("session %s streaming remaining %d articles every %s", s.cfg.SessionID, total-end, s.cfg.Interval)
		if !s.transition(domain.SessionStateTrickling) || !s.trickle(ctx, true) {
			return domain.SessionStateClosed
		}
	}

	complete := &protocol.CompleteMessage{
		BaseMessage: s.base(protocol.TypeComplete),
		Message:     "All articles have been streamed",
	}
	if !s.emit(ctx, complete, total) || !s.transition(domain.SessionStateComplete) {
		return domain.SessionStateClosed
	}
	return domain.SessionStateComplete
}

// resume skips the batch window: the client already holds the prefix.
// A resumed session ends without a complete event.
func (s *Session) resume(ctx context.Context) domain.SessionState {
	total := len(s.articles)

	s.mu.Lock()
	s.cursor = s.offset
	s.mu.Unlock()

	if s.cfg.AnnounceResume {
		info := &protocol.InfoMessage{
			BaseMessage: s.base(protocol.TypeInfo),
			Message:     fmt.Sprintf("Resuming from article %d of %d", s.offset+1, total),
			ResumeIndex: s.offset + 1,
			Total:       total,
		}
		if !s.emit(ctx, info, s.offset) {
			return domain.SessionStateClosed
		}
	}

	if !s.transition(domain.SessionStateTrickling) || !s.trickle(ctx, false) {
		return domain.SessionStateClosed
	}
	if !s.transition(domain.SessionStateComplete) {
		return domain.SessionStateClosed
	}
	return domain.SessionStateComplete
}

// trickle sends the articles from the cursor onwards, one per interval. When
// waitFirst is false the first article goes out immediately.
func (s *Session) trickle(ctx context.Context, waitFirst bool) bool {
	var timer clock.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	total := len(s.articles)
	for i := s.Cursor(); i < total; i++ {
		if waitFirst || i > s.offset {
			if timer == nil {
				timer = s.cfg.Clock.NewTimer(s.cfg.Interval)
			} else {
				timer.Reset(s.cfg.Interval)
			}
			select {
			case <-ctx.Done():
				s.Close()
				return false
			case <-s.closed:
				return false
			case <-timer.Chan():
			}
		}

		article := s.articles[i]
		msg := &protocol.StreamMessage{
			BaseMessage: s.base(protocol.TypeStream),
			Article:     article,
			Index:       i + 1,
			Total:       total,
			Category:    article.Category,
			Message:     fmt.Sprintf("Article %d of %d", i+1, total),
		}
		if !s.emit(ctx, msg, i+1) {
			return false
		}
	}
	return true
}

// emit sends msg and advances the cursor to next, unless the session is
// closed. The lock is held across Send so Close cannot interleave.
func (s *Session) emit(ctx context.Context, msg protocol.Message, next int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.SessionStateClosed {
		return false
	}
	if ctx.Err() != nil {
		s.closeLocked()
		return false
	}
	if err := s.sink.Send(msg); err != nil {
		logger.Debugf("session %s send failed: %v", s.cfg.SessionID, err)
		s.closeLocked()
		return false
	}
	s.cursor = next
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.EventSent(msg.MessageType())
	}
	return true
}

func (s *Session) transition(to domain.SessionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == domain.SessionStateClosed {
		return false
	}
	s.state = to
	return true
}

// fail sends an error event and closes the session.
func (s *Session) fail(ctx context.Context, code, message string) {
	s.emit(ctx, &protocol.ErrorMessage{
		BaseMessage: s.base(protocol.TypeError),
		Code:        code,
		Message:     message,
	}, s.offset)
	s.Close()
}

func (s *Session) emptyMessage() string {
	var b strings.Builder
	b.WriteString("No news articles available")
	if s.cfg.Filter.Category != "" {
		fmt.Fprintf(&b, " in category %s", s.cfg.Filter.Category)
	}
	if s.cfg.Filter.Date != "" {
		fmt.Fprintf(&b, " for %s", s.cfg.Filter.Date)
	} else {
		b.WriteString(" for yesterday")
	}
	return b.String()
}

func (s *Session) base(eventType string) protocol.BaseMessage {
	return protocol.BaseMessage{
		Type:      eventType,
		Ts:        s.cfg.Clock.Now().UnixMilli(),
		SessionID: s.cfg.SessionID,
	}
}
