package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"video-assistant/internal/assistant"
	"video-assistant/internal/llm"
	"video-assistant/internal/memory"
	"video-assistant/internal/transcript"
)

type stubSource struct {
	segments map[string][]transcript.Segment
}

func (s *stubSource) Fetch(_ context.Context, videoID string) ([]transcript.Segment, error) {
	segs, ok := s.segments[videoID]
	if !ok {
		return nil, transcript.ErrUnavailable
	}
	return segs, nil
}

type stubCompleter struct {
	response string
	err      error
}

func (s *stubCompleter) Complete(_ context.Context, _ llm.Request) (string, error) {
	return s.response, s.err
}

func newTestServer(t *testing.T, completer llm.Completer, store *memory.Store) *httptest.Server {
	t.Helper()

	a, err := assistant.New(assistant.Config{
		Source: &stubSource{segments: map[string][]transcript.Segment{
			"abc": {
				{Start: 0, Duration: 4, Text: "bonjour"},
				{Start: 30, Duration: 4, Text: "les graphes"},
				{Start: 420, Duration: 4, Text: "les arbres"},
			},
		}},
		Completer: completer,
		Store:     store,
	})
	if err != nil {
		t.Fatalf("assistant.New: %v", err)
	}

	srv := httptest.NewServer(New(Config{
		Assistant:      a,
		AllowedOrigins: []string{"https://www.youtube.com"},
		MaxBodyBytes:   1024,
	}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestAsk(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{response: "Il parle des graphes."}, nil)

	resp := postJSON(t, srv.URL+"/ask", `{"video_id": "abc", "current_time": 35, "question": "De quoi parle-t-il ?"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decode[map[string]any](t, resp)
	if body["response"] != "Il parle des graphes." {
		t.Errorf("unexpected response %v", body["response"])
	}
	if body["video_id"] != "abc" || body["timestamp"] != 35.0 {
		t.Errorf("unexpected echo fields %v", body)
	}
	if id, _ := body["request_id"].(string); id == "" {
		t.Error("expected a request id")
	}
	if _, ok := body["analysis"]; ok {
		t.Error("contextual answer must not carry analysis")
	}
}

func TestAsk_MultiAgent(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{response: "Résumé."}, nil)

	resp := postJSON(t, srv.URL+"/ask", `{"video_id": "abc", "question": "Résume les points clés", "mode": "multi_agent"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decode[map[string]any](t, resp)
	analysis, ok := body["analysis"].(map[string]any)
	if !ok {
		t.Fatalf("expected analysis object, got %v", body["analysis"])
	}
	if analysis["question_type"] != "summary" || analysis["context_strategy"] != "broad_context" {
		t.Errorf("unexpected analysis %v", analysis)
	}
}

func TestAsk_Errors(t *testing.T) {
	tests := []struct {
		name       string
		completer  *stubCompleter
		body       string
		wantStatus int
	}{
		{"missing question", &stubCompleter{response: "x"}, `{"video_id": "abc"}`, http.StatusBadRequest},
		{"missing video", &stubCompleter{response: "x"}, `{"question": "q"}`, http.StatusBadRequest},
		{"invalid json", &stubCompleter{response: "x"}, `{"video_id": `, http.StatusBadRequest},
		{"unknown mode", &stubCompleter{response: "x"}, `{"video_id": "abc", "question": "q", "mode": "dream"}`, http.StatusBadRequest},
		{"no transcript", &stubCompleter{response: "x"}, `{"video_id": "zzz", "question": "q"}`, http.StatusNotFound},
		{"completion failure", &stubCompleter{err: errors.New("upstream 500")}, `{"video_id": "abc", "question": "q"}`, http.StatusBadGateway},
		{"body too large", &stubCompleter{response: "x"}, `{"video_id": "abc", "question": "` + strings.Repeat("q", 2048) + `"}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.completer, nil)

			resp := postJSON(t, srv.URL+"/ask", tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			body := decode[errorResponse](t, resp)
			if body.Error == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestAsk_WrongMethod(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{response: "x"}, nil)

	resp, err := http.Get(srv.URL + "/ask")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

func TestTranscript(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{}, nil)

	resp, err := http.Get(srv.URL + "/transcript/abc")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	body := decode[transcriptResponse](t, resp)
	want := transcriptResponse{VideoID: "abc", SegmentsCount: 3, Duration: 420, Available: true}
	if body != want {
		t.Errorf("expected %+v, got %+v", want, body)
	}

	missing, err := http.Get(srv.URL + "/transcript/zzz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", missing.StatusCode)
	}
}

func TestConversationEndpoints(t *testing.T) {
	store := memory.NewStore(10, 0)
	srv := newTestServer(t, &stubCompleter{response: "réponse"}, store)

	for _, q := range []string{"Q1", "Q2"} {
		resp := postJSON(t, srv.URL+"/ask", `{"video_id": "abc", "question": "`+q+`", "user_id": "alice", "mode": "memory"}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("ask %s: status %d", q, resp.StatusCode)
		}
	}

	resp, err := http.Get(srv.URL + "/conversations/abc/alice")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	conv := decode[conversationResponse](t, resp)
	if len(conv.Messages) != 2 || conv.Messages[0].Question != "Q1" {
		t.Errorf("unexpected conversation %+v", conv)
	}

	statsResp, err := http.Get(srv.URL + "/memory/stats")
	if err != nil {
		t.Fatalf("GET stats: %v", err)
	}
	defer statsResp.Body.Close()
	stats := decode[memory.Stats](t, statsResp)
	if stats.ActiveSessions != 1 || stats.TotalMessages != 2 || stats.OldestSessionCreatedAt == nil {
		t.Errorf("unexpected stats %+v", stats)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/conversations/abc/alice", nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", delResp.StatusCode)
	}
	if len(store.History("abc", "alice")) != 0 {
		t.Error("conversation not cleared")
	}

	cleanup := postJSON(t, srv.URL+"/memory/cleanup", "")
	removed := decode[map[string]int](t, cleanup)
	if removed["removed"] != 0 {
		t.Errorf("expected nothing to clean, got %v", removed)
	}
}

func TestMemoryDisabled(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{}, nil)

	resp, err := http.Get(srv.URL + "/memory/stats")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubCompleter{}, nil)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	body := decode[map[string]string](t, resp)
	if body["status"] != "ok" || body["service"] != ServiceName {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"https://www.youtube.com"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	preflight := httptest.NewRequest(http.MethodOptions, "/ask", nil)
	preflight.Header.Set("Origin", "https://www.youtube.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, preflight)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://www.youtube.com" {
		t.Errorf("unexpected allow-origin %q", got)
	}

	other := httptest.NewRequest(http.MethodGet, "/health", nil)
	other.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow-origin for foreign origin: %q", got)
	}

	wildcard := CORS([]string{"*"})(http.NotFoundHandler())
	ext := httptest.NewRequest(http.MethodGet, "/", nil)
	ext.Header.Set("Origin", "chrome-extension://abcdef")
	rec = httptest.NewRecorder()
	wildcard.ServeHTTP(rec, ext)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "chrome-extension://abcdef" {
		t.Errorf("wildcard should echo origin, got %q", got)
	}
}

func TestRun_Shutdown(t *testing.T) {
	a, err := assistant.New(assistant.Config{Source: &stubSource{}, Completer: &stubCompleter{}})
	if err != nil {
		t.Fatalf("assistant.New: %v", err)
	}
	s := New(Config{Addr: "127.0.0.1:0", Assistant: a})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
}
