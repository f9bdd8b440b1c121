// Package ws provides the WebSocket endpoint that streams a day's articles
// to a client.
package ws

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/juju/clock"
	"github.com/juju/loggo/v2"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/newsstream/internal/config"
	"github.com/xiaot623/newsstream/internal/domain"
	"github.com/xiaot623/newsstream/internal/hub"
	"github.com/xiaot623/newsstream/internal/metrics"
	"github.com/xiaot623/newsstream/internal/protocol"
	"github.com/xiaot623/newsstream/internal/stream"
)

var logger = loggo.GetLogger("newsstream.ws")

const fetchFailedMessage = "Error fetching news articles"

// ArticleSource resolves and loads the record set of a session.
type ArticleSource interface {
	ResolveDate(raw string) time.Time
	GetArticles(ctx context.Context, q domain.ArticleQuery) ([]domain.Article, error)
}

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	articles ArticleSource
	clock    clock.Clock
	metrics  *metrics.Collector
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, articles ArticleSource, clk clock.Clock, m *metrics.Collector) *Server {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Server{
		cfg:      cfg,
		hub:      h,
		articles: articles,
		clock:    clk,
		metrics:  m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// streamRequest is the filter set read from the upgrade request.
type streamRequest struct {
	date     string
	category string
	offset   string
}

func parseRequest(c echo.Context) streamRequest {
	req := streamRequest{
		date:     c.QueryParam("date"),
		category: c.QueryParam("category"),
		offset:   c.QueryParam("offset"),
	}
	if req.offset == "" {
		req.offset = c.QueryParam("resumeOffset")
	}
	return req
}

// HandleStream handles WebSocket upgrade and runs one stream session over
// the connection.
func (s *Server) HandleStream(c echo.Context) error {
	req := parseRequest(c)

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warningf("failed to upgrade WebSocket: %v", err)
		return err
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)
	ws.SetReadLimit(s.cfg.MaxMessageSize)

	ctx, cancel := context.WithCancel(context.Background())
	active := &activeSession{}

	go s.writePump(conn)
	go s.readPump(conn, func() {
		cancel()
		active.stop()
	})
	go s.serve(ctx, conn, req, active)

	return nil
}

// serve loads the record set and runs the session. When it returns the send
// queue is closed, so the writer ends the socket with a close frame.
func (s *Server) serve(ctx context.Context, conn *hub.Connection, req streamRequest, active *activeSession) {
	defer s.hub.Unregister(conn)

	sessionID := "sess_" + uuid.New().String()[:8]

	var category domain.Category
	if strings.TrimSpace(req.category) != "" {
		parsed, err := domain.ParseCategory(req.category)
		if err != nil {
			s.sendError(conn, sessionID, protocol.ErrorCodeInvalidRequest, "Unknown category: "+req.category)
			return
		}
		category = parsed
	}

	offset := 0
	if raw := strings.TrimSpace(req.offset); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.sendError(conn, sessionID, protocol.ErrorCodeInvalidRequest, "Invalid resume offset: "+raw)
			return
		}
		offset = n
	}

	day := s.articles.ResolveDate(req.date)

	// Ingestion is shared with concurrent sessions for the same day, so a
	// client going away must not abort it.
	articles, err := s.articles.GetArticles(context.WithoutCancel(ctx), domain.ArticleQuery{
		Date:     day,
		Category: category,
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logger.Errorf("session %s: loading articles for %s: %v", sessionID, day.Format(domain.DateLayout), err)
		s.sendError(conn, sessionID, protocol.ErrorCodeFetchFailed, fetchFailedMessage)
		return
	}

	session := stream.NewSession(articles, offset, conn, stream.Config{
		SessionID:      sessionID,
		Interval:       s.cfg.StreamInterval,
		AnnounceResume: s.cfg.StreamAnnounceResume,
		Filter: stream.Filter{
			Date:     day.Format(domain.DateLayout),
			Category: category,
		},
		Clock:   s.clock,
		Metrics: s.metrics,
	})
	if !active.attach(session) {
		return
	}

	logger.Infof("session %s started: %d articles for %s (category=%q offset=%d)",
		sessionID, len(articles), day.Format(domain.DateLayout), category, offset)
	state := session.Run(ctx)
	logger.Infof("session %s ended in %s", sessionID, state)
}

// readPump reads messages from the WebSocket connection. Client messages
// carry no meaning; the loop exists to observe pongs and disconnects.
func (s *Server) readPump(conn *hub.Connection, stop func()) {
	defer func() {
		stop()
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.Warningf("WebSocket error: %v", err)
			}
			break
		}
		logger.Debugf("received message on %s: %s", conn.ID, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Queue():
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Send queue closed: the session is over.
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warningf("failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendError sends an error event to a connection that has no session.
func (s *Server) sendError(conn *hub.Connection, sessionID, code, message string) {
	errMsg := &protocol.ErrorMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeError,
			Ts:        s.clock.Now().UnixMilli(),
			SessionID: sessionID,
		},
		Code:    code,
		Message: message,
	}
	if err := conn.Send(errMsg); err != nil {
		logger.Debugf("dropping error event for %s: %v", conn.ID, err)
		return
	}
	if s.metrics != nil {
		s.metrics.EventSent(protocol.TypeError)
	}
}

// activeSession hands the running session to the read side so a disconnect
// can close it.
type activeSession struct {
	mu      sync.Mutex
	session *stream.Session
	stopped bool
}

func (a *activeSession) attach(s *stream.Session) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return false
	}
	a.session = s
	return true
}

func (a *activeSession) stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	if a.session != nil {
		a.session.Close()
	}
}
