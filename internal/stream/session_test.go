package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xiaot623/newsstream/internal/domain"
	"github.com/xiaot623/newsstream/internal/metrics"
	"github.com/xiaot623/newsstream/internal/protocol"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testInterval = 2 * time.Minute

var testDay = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

type recordingSink struct {
	mu     sync.Mutex
	msgs   []protocol.Message
	notify chan struct{}
	err    error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{notify: make(chan struct{}, 64)}
}

func (r *recordingSink) Send(msg protocol.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

func (r *recordingSink) Messages() []protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Message(nil), r.msgs...)
}

func (r *recordingSink) waitFor(t *testing.T, n int) []protocol.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if msgs := r.Messages(); len(msgs) >= n {
			return msgs
		}
		select {
		case <-r.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, got %d", n, len(r.Messages()))
		}
	}
}

func makeArticles(n int) []domain.Article {
	out := make([]domain.Article, n)
	for i := range out {
		out[i] = domain.Article{
			Title:       fmt.Sprintf("Article %d", i),
			URL:         fmt.Sprintf("https://example.com/%d", i),
			PublishedAt: testDay.Add(time.Duration(i+1) * time.Minute),
			FetchDate:   testDay.Format(domain.DateLayout),
			Category:    domain.CategorySports,
		}
	}
	return out
}

func newTestSession(articles []domain.Article, offset int, sink Sink, clk *testclock.Clock) *Session {
	return NewSession(articles, offset, sink, Config{
		SessionID: "s-1",
		Interval:  testInterval,
		Clock:     clk,
		Filter:    Filter{Date: testDay.Format(domain.DateLayout)},
	})
}

func runAsync(ctx context.Context, s *Session) <-chan domain.SessionState {
	done := make(chan domain.SessionState, 1)
	go func() {
		done <- s.Run(ctx)
	}()
	return done
}

func waitDone(t *testing.T, done <-chan domain.SessionState) domain.SessionState {
	t.Helper()
	select {
	case st := <-done:
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
		return ""
	}
}

func TestSmallSetIsOneBatchThenComplete(t *testing.T) {
	clk := testclock.NewClock(testDay)
	sink := newRecordingSink()
	s := newTestSession(makeArticles(5), 0, sink, clk)

	state := s.Run(context.Background())
	assert.Equal(t, domain.SessionStateComplete, state)

	msgs := sink.Messages()
	require.Len(t, msgs, 2)

	batch, ok := msgs[0].(*protocol.BatchMessage)
	require.True(t, ok)
	assert.Len(t, batch.Articles, 5)
	assert.Equal(t, 5, batch.Total)
	assert.Equal(t, 1, batch.StartIndex)
	assert.Equal(t, 5, batch.EndIndex)
	assert.Equal(t, "All articles sent", batch.Message)
	assert.Equal(t, "s-1", batch.SessionID)

	assert.Equal(t, protocol.TypeComplete, msgs[1].MessageType())
	assert.Equal(t, 5, s.Cursor())
}

func TestExactlyOneWindow(t *testing.T) {
	clk := testclock.NewClock(testDay)
	sink := newRecordingSink()
	s := newTestSession(makeArticles(BatchWindowSize), 0, sink, clk)

	assert.Equal(t, domain.SessionStateComplete, s.Run(context.Background()))
	msgs := sink.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, BatchWindowSize, msgs[0].(*protocol.BatchMessage).EndIndex)
}

func TestBatchThenTrickle(t *testing.T) {
	clk := testclock.NewClock(testDay)
	sink := newRecordingSink()
	articles := makeArticles(15)
	s := newTestSession(articles, 0, sink, clk)

	done := runAsync(context.Background(), s)

	msgs := sink.waitFor(t, 1)
	batch := msgs[0].(*protocol.BatchMessage)
	assert.Len(t, batch.Articles, 10)
	assert.Equal(t, 15, batch.Total)
	assert.Equal(t, 10, batch.EndIndex)
	assert.Equal(t, "First 10 articles sent. 5 more to follow.", batch.Message)

	for i := 0; i < 5; i++ {
		// Nothing is sent until the interval elapses.
		require.NoError(t, clk.WaitAdvance(testInterval-time.Second, time.Second, 1))
		assert.Len(t, sink.Messages(), 1+i)
		require.NoError(t, clk.WaitAdvance(time.Second, time.Second, 1))

		msgs = sink.waitFor(t, 2+i)
		ev, ok := msgs[1+i].(*protocol.StreamMessage)
		require.True(t, ok)
		assert.Equal(t, 11+i, ev.Index)
		assert.Equal(t, 15, ev.Total)
		assert.Equal(t, articles[10+i].URL, ev.Article.URL)
		assert.Equal(t, domain.CategorySports, ev.Category)
		assert.Equal(t, fmt.Sprintf("Article %d of 15", 11+i), ev.Message)
	}

	assert.Equal(t, domain.SessionStateComplete, waitDone(t, done))
	msgs = sink.Messages()
	require.Len(t, msgs, 7)
	complete := msgs[6].(*protocol.CompleteMessage)
	assert.Equal(t, "All articles have been streamed", complete.Message)
}

func TestResumeSkipsBatch(t *testing.T) {
	clk := testclock.NewClock(testDay)
	sink := newRecordingSink()
	s := newTestSession(makeArticles(15), 12, sink, clk)

	done := runAsync(context.Background(), s)

	// The first record goes out without waiting.
	msgs := sink.waitFor(t, 1)
	first := msgs[0].(*protocol.StreamMessage)
	assert.Equal(t, 13, first.Index)

	require.NoError(t, clk.WaitAdvance(testInterval, time.Second, 1))
	sink.waitFor(t, 2)
	require.NoError(t, clk.WaitAdvance(testInterval, time.Second, 1))

	assert.Equal(t, domain.SessionStateComplete, waitDone(t, done))

	msgs = sink.Messages()
	require.Len(t, msgs, 3)
	for i, msg := range msgs {
		ev, ok := msg.(*protocol.StreamMessage)
		require.True(t, ok, "event %d is %s", i, msg.MessageType())
		assert.Equal(t, 13+i, ev.Index)
	}
	assert.Equal(t, 15, s.Cursor())
}

func TestResumeAnnouncesWhenConfigured(t *testing.T) {
	clk := testclock.NewClock(testDay)
	sink := newRecordingSink()
	s := NewSession(makeArticles(11), 10, sink, Config{
		Interval:       testInterval,
		Clock:          clk,
		AnnounceResume: true,
	})

	assert.Equal(t, domain.SessionStateComplete, s.Run(context.Background()))

	msgs := sink.Messages()
	require.Len(t, msgs, 2)
	info := msgs[0].(*protocol.InfoMessage)
	assert.Equal(t, 11, info.ResumeIndex)
	assert.Equal(t, 11, info.Total)
	assert.Equal(t, 11, msgs[1].(*protocol.StreamMessage).Index)
}

func TestOffsetOutOfRange(t *testing.T) {
	for _, offset := range []int{15, 20, -1} {
		t.Run(fmt.Sprint(offset), func(t *testing.T) {
			clk := testclock.NewClock(testDay)
			sink := newRecordingSink()
			s := newTestSession(makeArticles(15), offset, sink, clk)

			assert.Equal(t, domain.SessionStateClosed, s.Run(context.Background()))

			msgs := sink.Messages()
			require.Len(t, msgs, 1)
			ev := msgs[0].(*protocol.ErrorMessage)
			assert.Equal(t, protocol.ErrorCodeOffsetOutOfRange, ev.Code)
			assert.Contains(t, ev.Message, fmt.Sprint(offset))
			assert.Contains(t, ev.Message, "15")
		})
	}
}

func TestEmptySetSendsError(t *testing.T) {
	clk := testclock.NewClock(testDay)
	sink := newRecordingSink()
	s := NewSession(nil, 0, sink, Config{
		Clock:  clk,
		Filter: Filter{Date: "2026-10-18", Category: domain.CategoryCrime},
	})

	assert.Equal(t, domain.SessionStateClosed, s.Run(context.Background()))
	msgs := sink.Messages()
	require.Len(t, msgs, 1)
	ev := msgs[0].(*protocol.ErrorMessage)
	assert.Equal(t, protocol.ErrorCodeNoArticles, ev.Code)
	assert.Equal(t, "No news articles available in category Crime for 2026-10-18", ev.Message)
}

func TestCancelDuringTrickleStopsDelivery(t *testing.T) {
	clk := testclock.NewClock(testDay)
	sink := newRecordingSink()
	s := newTestSession(makeArticles(15), 0, sink, clk)

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)

	sink.waitFor(t, 1)
	require.NoError(t, clk.WaitAdvance(testInterval, time.Second, 1))
	sink.waitFor(t, 2)

	cancel()
	assert.Equal(t, domain.SessionStateClosed, waitDone(t, done))

	clk.Advance(10 * testInterval)
	assert.Len(t, sink.Messages(), 2)
	assert.Equal(t, domain.SessionStateClosed, s.State())
	assert.Equal(t, 11, s.Cursor())
}

func TestCloseFromAnotherGoroutine(t *testing.T) {
	clk := testclock.NewClock(testDay)
	sink := newRecordingSink()
	s := newTestSession(makeArticles(15), 3, sink, clk)

	done := runAsync(context.Background(), s)
	sink.waitFor(t, 1)

	s.Close()
	assert.Equal(t, domain.SessionStateClosed, waitDone(t, done))
	clk.Advance(10 * testInterval)
	assert.Len(t, sink.Messages(), 1)
}

func TestSendFailureClosesSession(t *testing.T) {
	clk := testclock.NewClock(testDay)
	sink := newRecordingSink()
	sink.err = errors.New("connection gone")
	s := newTestSession(makeArticles(3), 0, sink, clk)

	assert.Equal(t, domain.SessionStateClosed, s.Run(context.Background()))
	assert.Empty(t, sink.Messages())
}

func TestSessionMetrics(t *testing.T) {
	clk := testclock.NewClock(testDay)
	sink := newRecordingSink()
	m := metrics.NewCollector()
	s := NewSession(makeArticles(4), 0, sink, Config{Clock: clk, Metrics: m})

	require.Equal(t, domain.SessionStateComplete, s.Run(context.Background()))

	// batch + complete, one finished session, none active.
	expected := `
# HELP newsstream_session_events_total The number of events delivered to stream clients.
# TYPE newsstream_session_events_total counter
newsstream_session_events_total{type="batch"} 1
newsstream_session_events_total{type="complete"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(m, strings.NewReader(expected), "newsstream_session_events_total"))
}

// drive runs s to completion, advancing the clock whenever the session
// waits on its timer.
func drive(t *testing.T, s *Session, clk *testclock.Clock) domain.SessionState {
	t.Helper()
	done := runAsync(context.Background(), s)
	deadline := time.After(5 * time.Second)
	for {
		select {
		case st := <-done:
			return st
		case <-deadline:
			t.Fatal("session did not finish")
		default:
		}
		_ = clk.WaitAdvance(testInterval, 10*time.Millisecond, 1)
	}
}

func TestEveryOffsetDeliversSuffixOnceInOrder(t *testing.T) {
	for _, total := range []int{1, 9, 10, 11, 25} {
		articles := makeArticles(total)
		for offset := 0; offset < total; offset++ {
			t.Run(fmt.Sprintf("len=%d/offset=%d", total, offset), func(t *testing.T) {
				clk := testclock.NewClock(testDay)
				sink := newRecordingSink()
				s := newTestSession(articles, offset, sink, clk)

				require.Equal(t, domain.SessionStateComplete, drive(t, s, clk))

				var delivered []int
				var completes int
				for _, msg := range sink.Messages() {
					switch ev := msg.(type) {
					case *protocol.BatchMessage:
						require.Zero(t, offset, "batch on a resumed session")
						require.Len(t, ev.Articles, ev.EndIndex-ev.StartIndex+1)
						for i, a := range ev.Articles {
							assert.Equal(t, articles[ev.StartIndex-1+i].URL, a.URL)
							delivered = append(delivered, ev.StartIndex+i)
						}
					case *protocol.StreamMessage:
						assert.Equal(t, articles[ev.Index-1].URL, ev.Article.URL)
						assert.Equal(t, total, ev.Total)
						delivered = append(delivered, ev.Index)
					case *protocol.CompleteMessage:
						completes++
					default:
						t.Fatalf("unexpected %s event", msg.MessageType())
					}
				}

				want := make([]int, 0, total-offset)
				for i := offset + 1; i <= total; i++ {
					want = append(want, i)
				}
				assert.Equal(t, want, delivered)
				if offset == 0 {
					assert.Equal(t, 1, completes)
				} else {
					assert.Zero(t, completes)
				}
				assert.Equal(t, total, s.Cursor())
			})
		}
	}
}
