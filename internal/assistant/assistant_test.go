package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"video-assistant/internal/classifier"
	"video-assistant/internal/llm"
	"video-assistant/internal/memory"
	"video-assistant/internal/transcript"
	"video-assistant/internal/window"
)

type fakeSource struct {
	segments []transcript.Segment
	err      error
}

func (f *fakeSource) Fetch(_ context.Context, _ string) ([]transcript.Segment, error) {
	return f.segments, f.err
}

// fakeCompleter answers every call with the next response in line
type fakeCompleter struct {
	mu        sync.Mutex
	responses []string
	err       error
	requests  []llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "ok", nil
	}
	r := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return r, nil
}

type fakeClassifier struct {
	result classifier.Result
}

func (f *fakeClassifier) Classify(_ context.Context, _ classifier.Input) classifier.Result {
	return f.result
}

func lecture() []transcript.Segment {
	return []transcript.Segment{
		{Start: 10, Duration: 5, Text: "introduction aux graphes"},
		{Start: 400, Duration: 5, Text: "les arbres binaires"},
		{Start: 600, Duration: 5, Text: "parcours en largeur"},
		{Start: 700, Duration: 5, Text: "parcours en profondeur"},
		{Start: 900, Duration: 5, Text: "conclusion sur les tas"},
	}
}

func newTestAssistant(t *testing.T, cfg Config) *Assistant {
	t.Helper()
	if cfg.Source == nil {
		cfg.Source = &fakeSource{segments: lecture()}
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Completer: &fakeCompleter{}}); err == nil {
		t.Error("expected error without source")
	}
	if _, err := New(Config{Source: &fakeSource{}}); err == nil {
		t.Error("expected error without completer")
	}
	if _, err := New(Config{Source: &fakeSource{}, Completer: &fakeCompleter{}, DefaultMode: "telepathy"}); err == nil {
		t.Error("expected error for unknown mode")
	}
	if _, err := New(Config{Source: &fakeSource{}, Completer: &fakeCompleter{}, DefaultMode: ModeMemory}); err == nil {
		t.Error("expected error for memory mode without store")
	}
}

func TestAsk_Contextual(t *testing.T) {
	completer := &fakeCompleter{responses: []string{"  Le parcours en largeur visite niveau par niveau.  "}}
	a := newTestAssistant(t, Config{Completer: completer})

	answer, err := a.Ask(context.Background(), Question{VideoID: "vid", CurrentTime: 650, Text: "C'est quoi un BFS ?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if answer.Response != "Le parcours en largeur visite niveau par niveau." {
		t.Errorf("unexpected response %q", answer.Response)
	}
	if answer.Mode != ModeContextual || answer.VideoID != "vid" || answer.CurrentTime != 650 {
		t.Errorf("unexpected answer %+v", answer)
	}
	if answer.RequestID == "" {
		t.Error("expected a request id")
	}
	// window is [530, 680]: only the segment at 600 qualifies
	if answer.ContextUsed != 1 {
		t.Errorf("expected 1 priority segment, got %d", answer.ContextUsed)
	}
	if answer.Analysis != nil || answer.HasHistory != nil {
		t.Error("contextual answer carries mode-specific fields")
	}

	if len(completer.requests) != 1 {
		t.Fatalf("expected 1 completion call, got %d", len(completer.requests))
	}
	req := completer.requests[0]
	if req.MaxTokens != contextualMaxTokens || req.Temperature != answerTemperature {
		t.Errorf("unexpected request params %+v", req)
	}
	if req.SystemPrompt != window.SystemPrompt {
		t.Errorf("unexpected system prompt %q", req.SystemPrompt)
	}
	for _, want := range []string{"[10:00] parcours en largeur", "C'est quoi un BFS ?", "10:50"} {
		if !strings.Contains(req.UserPrompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAsk_InvalidQuestion(t *testing.T) {
	a := newTestAssistant(t, Config{Completer: &fakeCompleter{}})

	tests := []struct {
		name string
		q    Question
	}{
		{"missing video", Question{Text: "q"}},
		{"missing question", Question{VideoID: "vid", Text: "   "}},
		{"unknown mode", Question{VideoID: "vid", Text: "q", Mode: "telepathy"}},
		{"memory disabled", Question{VideoID: "vid", Text: "q", Mode: ModeMemory}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Ask(context.Background(), tt.q)
			if !errors.Is(err, ErrInvalidQuestion) {
				t.Errorf("expected ErrInvalidQuestion, got %v", err)
			}
		})
	}
}

func TestAsk_TranscriptUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		source *fakeSource
	}{
		{"empty", &fakeSource{}},
		{"source error", &fakeSource{err: transcript.ErrUnavailable}},
		{"network error", &fakeSource{err: errors.New("dial tcp: refused")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &fakeCompleter{}
			a := newTestAssistant(t, Config{Source: tt.source, Completer: completer})

			_, err := a.Ask(context.Background(), Question{VideoID: "vid", Text: "q"})
			if !errors.Is(err, ErrTranscriptUnavailable) {
				t.Fatalf("expected ErrTranscriptUnavailable, got %v", err)
			}
			if len(completer.requests) != 0 {
				t.Error("completion must not be called without a transcript")
			}
		})
	}
}

func TestAsk_CompletionFailed(t *testing.T) {
	cause := errors.New("rate limited")
	a := newTestAssistant(t, Config{Completer: &fakeCompleter{err: cause}})

	_, err := a.Ask(context.Background(), Question{VideoID: "vid", Text: "q"})
	if !errors.Is(err, ErrCompletionFailed) {
		t.Fatalf("expected ErrCompletionFailed, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be wrapped, got %v", err)
	}
}

func TestAsk_EmptyCompletion(t *testing.T) {
	a := newTestAssistant(t, Config{Completer: &fakeCompleter{responses: []string{"   "}}})

	_, err := a.Ask(context.Background(), Question{VideoID: "vid", Text: "q"})
	if !errors.Is(err, ErrCompletionFailed) {
		t.Fatalf("expected ErrCompletionFailed, got %v", err)
	}
}

func TestAsk_Memory(t *testing.T) {
	store := memory.NewStore(10, 0)
	completer := &fakeCompleter{responses: []string{"première réponse", "deuxième réponse"}}
	a := newTestAssistant(t, Config{Completer: completer, Store: store, DefaultMode: ModeMemory})

	first, err := a.Ask(context.Background(), Question{VideoID: "vid", UserID: "alice", CurrentTime: 65, Text: "Q1"})
	if err != nil {
		t.Fatalf("first Ask: %v", err)
	}
	if first.HasHistory == nil || *first.HasHistory {
		t.Errorf("first answer should report no history, got %v", first.HasHistory)
	}
	if first.ConversationLength == nil || *first.ConversationLength != 1 {
		t.Errorf("expected conversation length 1, got %v", first.ConversationLength)
	}
	if strings.Contains(completer.requests[0].UserPrompt, "HISTORIQUE") {
		t.Error("first prompt must not carry a history block")
	}

	second, err := a.Ask(context.Background(), Question{VideoID: "vid", UserID: "alice", CurrentTime: 130, Text: "Q2"})
	if err != nil {
		t.Fatalf("second Ask: %v", err)
	}
	if !*second.HasHistory || *second.ConversationLength != 2 {
		t.Errorf("unexpected memory fields %v %v", *second.HasHistory, *second.ConversationLength)
	}

	req := completer.requests[1]
	if req.MaxTokens != memoryMaxTokens || req.SystemPrompt != window.MemorySystemPrompt {
		t.Errorf("unexpected memory request %+v", req)
	}
	for _, want := range []string{"=== HISTORIQUE DE CONVERSATION ===", "[01:05] Question 1: Q1", "première réponse", "INSTRUCTIONS MÉMOIRE"} {
		if !strings.Contains(req.UserPrompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	history := store.History("vid", "alice")
	if len(history) != 2 || history[1].Question != "Q2" || history[1].OccurredAt != 130 {
		t.Errorf("unexpected history %+v", history)
	}
	if len(store.History("vid", "bob")) != 0 {
		t.Error("sessions must be isolated per user")
	}
}

func TestAsk_MemoryNotRecordedOnFailure(t *testing.T) {
	store := memory.NewStore(10, 0)
	a := newTestAssistant(t, Config{Completer: &fakeCompleter{err: errors.New("boom")}, Store: store})

	if _, err := a.Ask(context.Background(), Question{VideoID: "vid", Text: "q", Mode: ModeMemory}); err == nil {
		t.Fatal("expected error")
	}
	if len(store.History("vid", "")) != 0 {
		t.Error("failed exchange must not be stored")
	}
}

func TestAsk_MultiAgent(t *testing.T) {
	result := classifier.Result{Classification: classifier.Classification{
		QuestionType:    classifier.TypeTimestamp,
		ContextStrategy: classifier.StrategySpecificSearch,
		ResponseStyle:   classifier.StyleConcise,
		Keywords:        []string{"arbres"},
		Confidence:      0.9,
	}}
	completer := &fakeCompleter{responses: []string{"Vers [06:40]."}}
	a := newTestAssistant(t, Config{Completer: completer, Classifier: &fakeClassifier{result: result}})

	answer, err := a.Ask(context.Background(), Question{VideoID: "vid", CurrentTime: 950, Text: "Quand parle-t-il des arbres ?", Mode: ModeMultiAgent})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Analysis == nil || answer.Analysis.QuestionType != classifier.TypeTimestamp {
		t.Fatalf("unexpected analysis %+v", answer.Analysis)
	}

	req := completer.requests[0]
	if req.MaxTokens != responderMaxTokens || req.SystemPrompt != responderSystemPrompt {
		t.Errorf("unexpected responder request %+v", req)
	}
	if !strings.Contains(req.UserPrompt, "les arbres binaires") {
		t.Error("keyword paragraph missing from responder prompt")
	}
	if strings.Contains(req.UserPrompt, "introduction aux graphes") {
		t.Error("non-matching paragraph kept by specific_search")
	}
	if !strings.Contains(req.UserPrompt, "- Mots-clés: arbres") {
		t.Error("analysis missing from responder prompt")
	}
}

func TestAsk_MultiAgentDefaultedClassification(t *testing.T) {
	result := classifier.Result{
		Classification: classifier.Default("Parsing failed: no JSON", classifier.ParseFailureConfidence),
		Defaulted:      true,
		Cause:          classifier.ErrNoJSON,
	}
	completer := &fakeCompleter{responses: []string{"réponse"}}
	a := newTestAssistant(t, Config{Completer: completer, Classifier: &fakeClassifier{result: result}})

	answer, err := a.Ask(context.Background(), Question{VideoID: "vid", Text: "q", Mode: ModeMultiAgent})
	if err != nil {
		t.Fatalf("classification failure must not fail the request: %v", err)
	}
	if !answer.Analysis.Defaulted || answer.Analysis.Confidence != classifier.ParseFailureConfidence {
		t.Errorf("unexpected analysis %+v", answer.Analysis)
	}
}

func TestAsk_MultiAgentDefaultClassifier(t *testing.T) {
	a := newTestAssistant(t, Config{Completer: &fakeCompleter{}})

	answer, err := a.Ask(context.Background(), Question{VideoID: "vid", Text: "Résume les points clés", Mode: ModeMultiAgent})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Analysis.QuestionType != classifier.TypeSummary {
		t.Errorf("expected keyword classifier to detect a summary, got %q", answer.Analysis.QuestionType)
	}
}

func TestSetWindowOptions(t *testing.T) {
	a := newTestAssistant(t, Config{Completer: &fakeCompleter{}})

	if got := a.WindowOptions(); got != window.DefaultOptions() {
		t.Errorf("expected default options, got %+v", got)
	}

	a.SetWindowOptions(window.Options{PriorityBefore: 1000, PriorityAfter: 1000})
	answer, err := a.Ask(context.Background(), Question{VideoID: "vid", CurrentTime: 500, Text: "q"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.ContextUsed != len(lecture()) {
		t.Errorf("expected every segment in the widened window, got %d", answer.ContextUsed)
	}
}

func TestTranscriptInfo(t *testing.T) {
	a := newTestAssistant(t, Config{Completer: &fakeCompleter{}})

	info, err := a.TranscriptInfo(context.Background(), "vid")
	if err != nil {
		t.Fatalf("TranscriptInfo: %v", err)
	}
	if info.SegmentsCount != 5 || info.Duration != 900 {
		t.Errorf("unexpected info %+v", info)
	}

	empty := newTestAssistant(t, Config{Source: &fakeSource{}, Completer: &fakeCompleter{}})
	if _, err := empty.TranscriptInfo(context.Background(), "vid"); !errors.Is(err, ErrTranscriptUnavailable) {
		t.Errorf("expected ErrTranscriptUnavailable, got %v", err)
	}
}
