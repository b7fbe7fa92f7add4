// Package sse implements Server-Sent Events so an open reader reflects
// annotation and progress changes as they happen.
package sse

import (
	"time"

	"github.com/talibapp/talib-reader/internal/domain"
)

// EventType represents the type of SSE event.
type EventType string

const (
	// EventHighlightCreated represents a highlight creation event.
	EventHighlightCreated EventType = "highlight.created"
	// EventHighlightDeleted represents a highlight deletion event.
	EventHighlightDeleted EventType = "highlight.deleted"

	// EventCommentCreated represents a comment creation event.
	EventCommentCreated EventType = "comment.created"
	// EventCommentUpdated represents a comment body update event.
	EventCommentUpdated EventType = "comment.updated"
	// EventCommentDeleted represents a comment deletion event.
	EventCommentDeleted EventType = "comment.deleted"

	// EventProgressUpdated represents a reading progress change.
	EventProgressUpdated EventType = "progress.updated"
	// EventBookReset represents a full reset of a book's annotations.
	EventBookReset EventType = "book.reset"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct
// deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

func newEvent(t EventType, data any) Event {
	return Event{Type: t, Data: data, Timestamp: time.Now()}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return newEvent(EventHeartbeat, nil)
}

// NewHighlightCreatedEvent creates a highlight creation event.
func NewHighlightCreatedEvent(h *domain.Highlight) Event {
	return newEvent(EventHighlightCreated, h)
}

// NewHighlightDeletedEvent creates a highlight deletion event.
func NewHighlightDeletedEvent(bookID, highlightID string) Event {
	return newEvent(EventHighlightDeleted, map[string]string{
		"book_id": bookID,
		"id":      highlightID,
	})
}

// NewCommentCreatedEvent creates a comment creation event.
func NewCommentCreatedEvent(c *domain.Comment) Event {
	return newEvent(EventCommentCreated, c)
}

// NewCommentUpdatedEvent creates a comment update event.
func NewCommentUpdatedEvent(c *domain.Comment) Event {
	return newEvent(EventCommentUpdated, c)
}

// NewCommentDeletedEvent creates a comment deletion event.
func NewCommentDeletedEvent(bookID, commentID string) Event {
	return newEvent(EventCommentDeleted, map[string]string{
		"book_id": bookID,
		"id":      commentID,
	})
}

// NewProgressUpdatedEvent creates a progress change event.
func NewProgressUpdatedEvent(p domain.ReadingProgress) Event {
	return newEvent(EventProgressUpdated, p)
}

// NewBookResetEvent creates a book reset event.
func NewBookResetEvent(bookID string) Event {
	return newEvent(EventBookReset, map[string]string{"book_id": bookID})
}
