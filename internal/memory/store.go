package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"video-assistant/internal/window"
)

const (
	// DefaultMaxMessages is the per-session message cap
	DefaultMaxMessages = 10
	// DefaultSessionTimeout is the inactivity period after which a session expires
	DefaultSessionTimeout = 30 * time.Minute

	// renderLimit caps each question and answer in RenderContext
	renderLimit = 150
)

// Store holds conversation sessions in memory.
// All methods are safe for concurrent use; mutations of a session happen
// under the store lock so two requests on the same key never interleave.
type Store struct {
	mu          sync.Mutex
	sessions    map[Key]*Session
	maxMessages int
	timeout     time.Duration
	now         func() time.Time
}

// NewStore creates a store. Non-positive arguments select the defaults.
func NewStore(maxMessages int, timeout time.Duration) *Store {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}

	return &Store{
		sessions:    make(map[Key]*Session),
		maxMessages: maxMessages,
		timeout:     timeout,
		now:         time.Now,
	}
}

func keyFor(contentID, userID string) Key {
	if userID == "" {
		userID = DefaultUserID
	}
	return Key{ContentID: contentID, UserID: userID}
}

// AddMessage appends an exchange to the session, creating it on first use.
// The oldest messages are evicted once the cap is exceeded.
func (s *Store) AddMessage(contentID, userID, question, response string, occurredAt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyFor(contentID, userID)
	now := s.now()

	sess, ok := s.sessions[key]
	if !ok {
		sess = &Session{
			ID:           uuid.New().String(),
			ContentID:    key.ContentID,
			UserID:       key.UserID,
			CreatedAt:    now,
			LastActivity: now,
			Messages:     []Message{},
		}
		s.sessions[key] = sess
	}

	sess.Messages = append(sess.Messages, Message{
		Question:   question,
		Response:   response,
		OccurredAt: occurredAt,
		CreatedAt:  now,
	})
	sess.LastActivity = now

	if over := len(sess.Messages) - s.maxMessages; over > 0 {
		sess.Messages = append([]Message(nil), sess.Messages[over:]...)
	}
}

// History returns the session's messages, oldest first.
// An expired session is deleted and reported as empty.
func (s *Store) History(contentID, userID string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyFor(contentID, userID)
	sess, ok := s.sessions[key]
	if !ok {
		return []Message{}
	}

	if s.expired(sess, s.now()) {
		delete(s.sessions, key)
		return []Message{}
	}

	messages := make([]Message, len(sess.Messages))
	copy(messages, sess.Messages)
	return messages
}

// RenderContext formats the session history as a prompt block.
// It returns "" when there is no history.
func (s *Store) RenderContext(contentID, userID string) string {
	history := s.History(contentID, userID)
	if len(history) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("=== HISTORIQUE DE CONVERSATION ===\n")
	for i, msg := range history {
		at := window.FormatTimestamp(msg.OccurredAt)
		fmt.Fprintf(&sb, "\n[%s] Question %d: %s\n", at, i+1, window.Preview(msg.Question, renderLimit))
		fmt.Fprintf(&sb, "[%s] Réponse %d: %s...\n", at, i+1, window.Truncate(msg.Response, renderLimit))
	}
	sb.WriteString("\n=== FIN HISTORIQUE ===\n")

	return sb.String()
}

// Clear removes a session. Clearing an absent session is a no-op.
func (s *Store) Clear(contentID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, keyFor(contentID, userID))
}

// CleanupExpired deletes every expired session and returns how many were removed
func (s *Store) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0

	for key, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, key)
			removed++
		}
	}

	return removed
}

// Stats returns a snapshot of the store. Expired sessions that have not been
// discovered yet are still counted.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{ActiveSessions: len(s.sessions)}
	for _, sess := range s.sessions {
		stats.TotalMessages += len(sess.Messages)
		if stats.OldestSessionCreatedAt == nil || sess.CreatedAt.Before(*stats.OldestSessionCreatedAt) {
			created := sess.CreatedAt
			stats.OldestSessionCreatedAt = &created
		}
	}

	return stats
}

// expired reports whether the session has been idle longer than the timeout
// (must be called with lock held)
func (s *Store) expired(sess *Session, now time.Time) bool {
	return now.Sub(sess.LastActivity) > s.timeout
}
