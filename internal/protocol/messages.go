// Package protocol defines the WebSocket events sent from the server to news
// stream clients.
package protocol

import "github.com/xiaot623/newsstream/internal/domain"

// Event types from server to client
const (
	TypeBatch    = "batch"
	TypeStream   = "stream"
	TypeInfo     = "info"
	TypeError    = "error"
	TypeComplete = "complete"
)

// Message is implemented by every server event.
type Message interface {
	MessageType() string
}

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	SessionID string `json:"session_id,omitempty"`
}

// MessageType returns the event type.
func (m BaseMessage) MessageType() string {
	return m.Type
}

// BatchMessage carries the initial window of a fresh session.
// StartIndex and EndIndex are 1-based and inclusive.
type BatchMessage struct {
	BaseMessage
	Articles   []domain.Article `json:"articles"`
	Total      int              `json:"total"`
	StartIndex int              `json:"startIndex"`
	EndIndex   int              `json:"endIndex"`
	Message    string           `json:"message"`
}

// StreamMessage carries one trickled article. Index is 1-based.
type StreamMessage struct {
	BaseMessage
	Article  domain.Article  `json:"article"`
	Index    int             `json:"index"`
	Total    int             `json:"total"`
	Category domain.Category `json:"category"`
	Message  string          `json:"message"`
}

// InfoMessage announces a resumed session.
type InfoMessage struct {
	BaseMessage
	Message     string `json:"message"`
	ResumeIndex int    `json:"resumeIndex"`
	Total       int    `json:"total"`
}

// ErrorMessage is sent when a session cannot be served.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// CompleteMessage terminates a fresh session.
type CompleteMessage struct {
	BaseMessage
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidRequest   = "invalid_request"
	ErrorCodeNoArticles       = "no_articles"
	ErrorCodeOffsetOutOfRange = "offset_out_of_range"
	ErrorCodeFetchFailed      = "fetch_failed"
)
