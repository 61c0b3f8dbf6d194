package memory

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(maxMessages int, timeout time.Duration) (*Store, *fakeClock) {
	clock := newFakeClock()
	s := NewStore(maxMessages, timeout)
	s.now = clock.Now
	return s, clock
}

func TestNewStore_Defaults(t *testing.T) {
	s := NewStore(0, 0)
	if s.maxMessages != DefaultMaxMessages {
		t.Errorf("expected max messages %d, got %d", DefaultMaxMessages, s.maxMessages)
	}
	if s.timeout != DefaultSessionTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultSessionTimeout, s.timeout)
	}
}

func TestStore_HistoryAbsent(t *testing.T) {
	s, _ := newTestStore(10, time.Minute)

	history := s.History("vid", "user")
	if history == nil || len(history) != 0 {
		t.Fatalf("expected empty non-nil history, got %#v", history)
	}
}

func TestStore_AddMessageAndHistory(t *testing.T) {
	s, clock := newTestStore(10, time.Minute)

	s.AddMessage("vid", "user", "q1", "r1", 12)
	clock.Advance(time.Second)
	s.AddMessage("vid", "user", "q2", "r2", 30)

	history := s.History("vid", "user")
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Question != "q1" || history[1].Question != "q2" {
		t.Errorf("unexpected order: %+v", history)
	}
	if history[1].OccurredAt != 30 {
		t.Errorf("expected occurred_at 30, got %v", history[1].OccurredAt)
	}

	// Other users and videos are separate sessions
	if len(s.History("vid", "other")) != 0 || len(s.History("other", "user")) != 0 {
		t.Error("sessions should be keyed by (content, user)")
	}

	// Returned slices are copies
	history[0].Question = "mutated"
	if s.History("vid", "user")[0].Question != "q1" {
		t.Error("History should not expose internal state")
	}
}

func TestStore_DefaultUser(t *testing.T) {
	s, _ := newTestStore(10, time.Minute)

	s.AddMessage("vid", "", "q", "r", 0)
	if len(s.History("vid", DefaultUserID)) != 1 {
		t.Fatal("empty user id should map to the default user")
	}
}

func TestStore_Cap(t *testing.T) {
	s, _ := newTestStore(10, time.Minute)

	for i := 1; i <= 11; i++ {
		s.AddMessage("vid", "user", fmt.Sprintf("q%d", i), fmt.Sprintf("r%d", i), float64(i))
	}

	history := s.History("vid", "user")
	if len(history) != 10 {
		t.Fatalf("expected 10 messages, got %d", len(history))
	}
	for i, msg := range history {
		if want := fmt.Sprintf("q%d", i+2); msg.Question != want {
			t.Errorf("message %d: expected %s, got %s", i, want, msg.Question)
		}
	}
}

func TestStore_LazyExpiry(t *testing.T) {
	s, clock := newTestStore(10, 30*time.Minute)

	s.AddMessage("vid", "user", "q", "r", 0)
	s.AddMessage("other", "user", "q", "r", 0)
	if got := s.Stats().ActiveSessions; got != 2 {
		t.Fatalf("expected 2 sessions, got %d", got)
	}

	// Exactly at the timeout the session is still alive
	clock.Advance(30 * time.Minute)
	if len(s.History("vid", "user")) != 1 {
		t.Fatal("session should not expire at exactly the timeout")
	}

	clock.Advance(30*time.Minute + time.Second)
	if history := s.History("vid", "user"); len(history) != 0 {
		t.Fatalf("expected expired session to be empty, got %d", len(history))
	}
	if got := s.Stats().ActiveSessions; got != 1 {
		t.Fatalf("expected expired session to be deleted, got %d sessions", got)
	}
}

func TestStore_AddMessageRefreshesActivity(t *testing.T) {
	s, clock := newTestStore(10, time.Minute)

	s.AddMessage("vid", "user", "q1", "r1", 0)
	clock.Advance(50 * time.Second)
	s.AddMessage("vid", "user", "q2", "r2", 0)
	clock.Advance(50 * time.Second)

	if len(s.History("vid", "user")) != 2 {
		t.Fatal("activity should be refreshed by AddMessage")
	}
}

func TestStore_Clear(t *testing.T) {
	s, _ := newTestStore(10, time.Minute)

	s.AddMessage("vid", "user", "q", "r", 0)
	before := s.Stats()

	s.Clear("missing", "user")
	if after := s.Stats(); after.ActiveSessions != before.ActiveSessions || after.TotalMessages != before.TotalMessages {
		t.Fatalf("clearing an absent session changed state: %+v -> %+v", before, after)
	}

	s.Clear("vid", "user")
	if len(s.History("vid", "user")) != 0 {
		t.Fatal("expected session to be cleared")
	}
	if s.Stats().ActiveSessions != 0 {
		t.Fatal("expected no sessions after clear")
	}
}

func TestStore_CleanupExpired(t *testing.T) {
	s, clock := newTestStore(10, time.Minute)

	s.AddMessage("a", "u", "q", "r", 0)
	s.AddMessage("b", "u", "q", "r", 0)
	clock.Advance(2 * time.Minute)
	s.AddMessage("c", "u", "q", "r", 0)

	if removed := s.CleanupExpired(); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if removed := s.CleanupExpired(); removed != 0 {
		t.Fatalf("second cleanup should remove nothing, got %d", removed)
	}
	if got := s.Stats().ActiveSessions; got != 1 {
		t.Fatalf("expected 1 remaining session, got %d", got)
	}
}

func TestStore_Stats(t *testing.T) {
	s, clock := newTestStore(10, time.Hour)

	stats := s.Stats()
	if stats.ActiveSessions != 0 || stats.TotalMessages != 0 || stats.OldestSessionCreatedAt != nil {
		t.Fatalf("expected zero stats, got %+v", stats)
	}

	first := clock.Now()
	s.AddMessage("a", "u", "q1", "r1", 0)
	clock.Advance(time.Minute)
	s.AddMessage("b", "u", "q1", "r1", 0)
	s.AddMessage("b", "u", "q2", "r2", 0)

	stats = s.Stats()
	if stats.ActiveSessions != 2 {
		t.Errorf("expected 2 sessions, got %d", stats.ActiveSessions)
	}
	if stats.TotalMessages != 3 {
		t.Errorf("expected 3 messages, got %d", stats.TotalMessages)
	}
	if stats.OldestSessionCreatedAt == nil || !stats.OldestSessionCreatedAt.Equal(first) {
		t.Errorf("expected oldest session at %v, got %v", first, stats.OldestSessionCreatedAt)
	}
}

func TestStore_RenderContext(t *testing.T) {
	s, _ := newTestStore(10, time.Minute)

	if got := s.RenderContext("vid", "user"); got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}

	s.AddMessage("vid", "user", "Qu'est-ce qu'un algorithme ?", "Une suite d'instructions.", 120)
	s.AddMessage("vid", "user", strings.Repeat("q", 200), strings.Repeat("r", 200), 150)

	got := s.RenderContext("vid", "user")

	if !strings.HasPrefix(got, "=== HISTORIQUE DE CONVERSATION ===\n") {
		t.Errorf("missing start marker: %q", got)
	}
	if !strings.HasSuffix(got, "\n=== FIN HISTORIQUE ===\n") {
		t.Errorf("missing end marker: %q", got)
	}
	for _, want := range []string{
		"[02:00] Question 1: Qu'est-ce qu'un algorithme ?\n",
		"[02:00] Réponse 1: Une suite d'instructions....\n",
		"[02:30] Question 2: " + strings.Repeat("q", 150) + "...\n",
		"[02:30] Réponse 2: " + strings.Repeat("r", 150) + "...\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("context missing %q:\n%s", want, got)
		}
	}
}

func TestStore_ConcurrentAdds(t *testing.T) {
	s := NewStore(1000, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				s.AddMessage("vid", "user", fmt.Sprintf("q%d-%d", n, j), "r", 0)
			}
		}(i)
	}
	wg.Wait()

	if got := len(s.History("vid", "user")); got != 500 {
		t.Fatalf("expected 500 messages, got %d", got)
	}
	if got := s.Stats().ActiveSessions; got != 1 {
		t.Fatalf("expected a single session, got %d", got)
	}
}
