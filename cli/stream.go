package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
)

var (
	flagDate     string
	flagCategory string
	flagOffset   int
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Stream a day's articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := streamURL(flagWSAddr, flagDate, flagCategory, flagOffset)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Connecting to %s...\n", target)
		client, err := NewClient(target)
		if err != nil {
			return err
		}
		defer client.Close()

		// Handle Ctrl+C
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		defer signal.Stop(interrupt)
		go func() {
			if _, ok := <-interrupt; ok {
				client.Shutdown()
			}
		}()

		return client.ReadEvents(cmd.OutOrStdout(), flagJSON)
	},
}

func init() {
	streamCmd.Flags().StringVar(&flagDate, "date", "", "day to stream (YYYY-MM-DD), defaults to yesterday")
	streamCmd.Flags().StringVar(&flagCategory, "category", "", "only stream this category")
	streamCmd.Flags().IntVar(&flagOffset, "offset", 0, "resume after this many articles")
}

func streamURL(addr, date, category string, offset int) (string, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return "", errors.Annotatef(err, "parsing address %q", addr)
	}
	q := u.Query()
	if date != "" {
		q.Set("date", date)
	}
	if category != "" {
		q.Set("category", category)
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// event is the union of the fields of all server events.
type event struct {
	Type        string        `json:"type"`
	SessionID   string        `json:"session_id,omitempty"`
	Message     string        `json:"message"`
	Code        string        `json:"code,omitempty"`
	Total       int           `json:"total"`
	Index       int           `json:"index"`
	StartIndex  int           `json:"startIndex"`
	EndIndex    int           `json:"endIndex"`
	ResumeIndex int           `json:"resumeIndex"`
	Articles    []articleView `json:"articles"`
	Article     *articleView  `json:"article"`
}

type articleView struct {
	Title       string    `json:"title"`
	SourceName  string    `json:"sourceName"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
	Category    string    `json:"category"`
}

// Client represents a WebSocket client.
type Client struct {
	conn *websocket.Conn
}

// NewClient creates a new client and connects to the server.
func NewClient(addr string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, errors.Annotate(err, "dial")
	}
	return &Client{conn: conn}, nil
}

// Shutdown asks the server to end the session.
func (c *Client) Shutdown() {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// ReadEvents prints events until the server closes the session. An error
// event is returned as an error once the socket closes.
func (c *Client) ReadEvents(w io.Writer, raw bool) error {
	var failed error
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return failed
			}
			return errors.Annotate(err, "read")
		}

		ev, err := renderEvent(w, data, raw)
		if err != nil {
			fmt.Fprintf(w, "unreadable event: %v\n", err)
			continue
		}
		if ev.Type == "error" {
			failed = errors.New(ev.Message)
		}
	}
}

// renderEvent prints one server event.
func renderEvent(w io.Writer, data []byte, raw bool) (*event, error) {
	var ev event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, errors.Trace(err)
	}

	if raw {
		var pretty map[string]interface{}
		_ = json.Unmarshal(data, &pretty)
		formatted, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Fprintf(w, "\n[%s] Received:\n%s\n", ev.Type, formatted)
		return &ev, nil
	}

	switch ev.Type {
	case "batch":
		fmt.Fprintf(w, "== %s\n", ev.Message)
		for i, a := range ev.Articles {
			printArticle(w, ev.StartIndex+i, ev.Total, a)
		}
	case "stream":
		if ev.Article != nil {
			printArticle(w, ev.Index, ev.Total, *ev.Article)
		}
	case "info":
		fmt.Fprintf(w, "== %s\n", ev.Message)
	case "complete":
		fmt.Fprintf(w, "== %s\n", ev.Message)
	case "error":
		fmt.Fprintf(w, "!! %s\n", ev.Message)
	default:
		fmt.Fprintf(w, "?? %s event\n", ev.Type)
	}
	return &ev, nil
}

func printArticle(w io.Writer, index, total int, a articleView) {
	fmt.Fprintf(w, "[%d/%d] %s  %-13s %s (%s)\n",
		index, total, a.PublishedAt.UTC().Format("15:04"), a.Category, a.Title, a.SourceName)
}
