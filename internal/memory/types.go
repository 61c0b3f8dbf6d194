// Package memory keeps a bounded, expiring conversation log per
// (video, user) pair so follow-up questions can refer to earlier answers.
// State is process-local and lost on restart.
package memory

import "time"

// DefaultUserID is used when a request does not identify its user
const DefaultUserID = "default"

// Key identifies a conversation session
type Key struct {
	ContentID string
	UserID    string
}

// Message is one question/answer exchange
type Message struct {
	Question   string    `json:"question"`
	Response   string    `json:"response"`
	OccurredAt float64   `json:"occurred_at_seconds"` // playback position of the question
	CreatedAt  time.Time `json:"created_at"`
}

// Session is the conversation log for one Key
type Session struct {
	ID           string    `json:"id"`
	ContentID    string    `json:"content_id"`
	UserID       string    `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Messages     []Message `json:"messages"`
}

// Stats is a snapshot of the store
type Stats struct {
	ActiveSessions         int        `json:"active_sessions"`
	TotalMessages          int        `json:"total_messages"`
	OldestSessionCreatedAt *time.Time `json:"oldest_session_created_at,omitempty"`
}
