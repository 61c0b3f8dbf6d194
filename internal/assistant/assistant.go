package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"video-assistant/internal/classifier"
	"video-assistant/internal/llm"
	"video-assistant/internal/memory"
	"video-assistant/internal/telemetry"
	"video-assistant/internal/transcript"
	"video-assistant/internal/window"
)

const (
	answerTemperature = 0.7

	contextualMaxTokens = 500
	memoryMaxTokens     = 600
	responderMaxTokens  = 1500

	// classifierPreviewLimit caps the priority text shown to the classifier
	classifierPreviewLimit = 300
)

// Config wires the assistant's collaborators. Source and Completer are
// required; the rest fall back to sensible defaults.
type Config struct {
	Source    transcript.Source
	Completer llm.Completer

	// Store enables memory mode
	Store *memory.Store
	// Classifier drives multi_agent mode; defaults to the keyword classifier
	Classifier classifier.Classifier

	Window      window.Options
	DefaultMode string

	Tracer  trace.Tracer
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// Assistant answers questions. It is safe for concurrent use.
type Assistant struct {
	source      transcript.Source
	completer   llm.Completer
	store       *memory.Store
	classifier  classifier.Classifier
	defaultMode string

	windowOpts atomic.Pointer[window.Options]

	tracer  trace.Tracer
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// New creates an assistant
func New(cfg Config) (*Assistant, error) {
	if cfg.Source == nil {
		return nil, errors.New("assistant: transcript source is required")
	}
	if cfg.Completer == nil {
		return nil, errors.New("assistant: completer is required")
	}

	mode := cfg.DefaultMode
	if mode == "" {
		mode = ModeContextual
	}
	if !ValidMode(mode) {
		return nil, fmt.Errorf("assistant: unknown default mode %q", mode)
	}
	if mode == ModeMemory && cfg.Store == nil {
		return nil, errors.New("assistant: memory mode requires a store")
	}

	a := &Assistant{
		source:      cfg.Source,
		completer:   cfg.Completer,
		store:       cfg.Store,
		classifier:  cfg.Classifier,
		defaultMode: mode,
		tracer:      cfg.Tracer,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
	if a.classifier == nil {
		a.classifier = classifier.NewHeuristicClassifier()
	}
	if a.tracer == nil {
		a.tracer = telemetry.Noop().Tracer
	}
	if a.metrics == nil {
		a.metrics = telemetry.NoopMetrics()
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.logger = a.logger.With(slog.String("component", "assistant"))

	opts := cfg.Window
	if opts == (window.Options{}) {
		opts = window.DefaultOptions()
	}
	a.windowOpts.Store(&opts)

	return a, nil
}

// SetWindowOptions replaces the window options used by later requests
func (a *Assistant) SetWindowOptions(opts window.Options) {
	a.windowOpts.Store(&opts)
}

// WindowOptions returns the window options currently in effect
func (a *Assistant) WindowOptions() window.Options {
	return *a.windowOpts.Load()
}

// DefaultMode returns the mode used when a question names none
func (a *Assistant) DefaultMode() string {
	return a.defaultMode
}

// Memory returns the conversation store, or nil when memory is disabled
func (a *Assistant) Memory() *memory.Store {
	return a.store
}

// Ask answers one question
func (a *Assistant) Ask(ctx context.Context, q Question) (*Answer, error) {
	q.VideoID = strings.TrimSpace(q.VideoID)
	q.Text = strings.TrimSpace(q.Text)
	if q.VideoID == "" {
		return nil, fmt.Errorf("%w: video_id is required", ErrInvalidQuestion)
	}
	if q.Text == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidQuestion)
	}
	if q.Mode == "" {
		q.Mode = a.defaultMode
	}
	if !ValidMode(q.Mode) {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidQuestion, q.Mode)
	}
	if q.Mode == ModeMemory && a.store == nil {
		return nil, fmt.Errorf("%w: memory is disabled", ErrInvalidQuestion)
	}
	if q.UserID == "" {
		q.UserID = memory.DefaultUserID
	}

	requestID := uuid.NewString()
	ctx, span := telemetry.StartSpan(ctx, a.tracer, "assistant.ask",
		telemetry.AttrRequestID.String(requestID),
		telemetry.AttrVideoID.String(q.VideoID),
		telemetry.AttrUserID.String(q.UserID),
		telemetry.AttrMode.String(q.Mode),
		telemetry.AttrCurrentTime.Float64(q.CurrentTime),
	)
	defer span.End()

	logger := a.logger.With(
		slog.String("request_id", requestID),
		slog.String("video_id", q.VideoID),
		slog.String("mode", q.Mode),
	)

	segments, err := a.fetch(ctx, q.VideoID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.WarnContext(ctx, "transcript unavailable", slog.Any("error", err))
		return nil, err
	}

	w := window.Partition(segments, q.CurrentTime, a.WindowOptions())
	logger.DebugContext(ctx, "transcript partitioned",
		slog.String("current_time", w.CurrentTimeFormatted),
		slog.Int("priority_segments", len(w.PrioritySegments)),
		slog.Int("extended_segments", len(w.ExtendedSegments)),
	)

	answer := &Answer{
		RequestID:   requestID,
		VideoID:     q.VideoID,
		CurrentTime: q.CurrentTime,
		Mode:        q.Mode,
		ContextUsed: len(w.PrioritySegments),
	}

	switch q.Mode {
	case ModeMemory:
		err = a.answerWithMemory(ctx, q, w, answer)
	case ModeMultiAgent:
		err = a.answerMultiAgent(ctx, q, w, answer)
	default:
		err = a.answerContextual(ctx, q, w, answer)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "answer failed", slog.Any("error", err))
		return nil, err
	}

	logger.InfoContext(ctx, "question answered",
		slog.String("current_time", w.CurrentTimeFormatted),
		slog.Int("context_used", answer.ContextUsed),
		slog.Int("response_chars", len(answer.Response)),
	)
	return answer, nil
}

// TranscriptInfo describes the transcript of a video
func (a *Assistant) TranscriptInfo(ctx context.Context, videoID string) (transcript.Info, error) {
	segments, err := a.fetch(ctx, videoID)
	if err != nil {
		return transcript.Info{}, err
	}
	return transcript.Describe(segments), nil
}

func (a *Assistant) fetch(ctx context.Context, videoID string) ([]transcript.Segment, error) {
	ctx, span := telemetry.StartClientSpan(ctx, a.tracer, "transcript.fetch",
		telemetry.AttrVideoID.String(videoID),
	)
	defer span.End()

	segments, err := a.source.Fetch(ctx, videoID)
	if err == nil && len(segments) == 0 {
		err = transcript.ErrUnavailable
	}
	if err != nil {
		a.metrics.TranscriptFailures.Add(ctx, 1)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %s: %w", ErrTranscriptUnavailable, videoID, err)
	}
	return segments, nil
}

func (a *Assistant) answerContextual(ctx context.Context, q Question, w window.Window, answer *Answer) error {
	response, err := a.complete(ctx, llm.Request{
		SystemPrompt: window.SystemPrompt,
		UserPrompt:   window.BuildPrompt(w, q.Text, ""),
		MaxTokens:    contextualMaxTokens,
		Temperature:  answerTemperature,
	})
	if err != nil {
		return err
	}
	answer.Response = response
	return nil
}

func (a *Assistant) answerWithMemory(ctx context.Context, q Question, w window.Window, answer *Answer) error {
	history := a.store.RenderContext(q.VideoID, q.UserID)

	response, err := a.complete(ctx, llm.Request{
		SystemPrompt: window.MemorySystemPrompt,
		UserPrompt:   window.BuildPrompt(w, q.Text, history),
		MaxTokens:    memoryMaxTokens,
		Temperature:  answerTemperature,
	})
	if err != nil {
		return err
	}

	a.store.AddMessage(q.VideoID, q.UserID, q.Text, response, q.CurrentTime)

	hasHistory := history != ""
	length := len(a.store.History(q.VideoID, q.UserID))
	answer.Response = response
	answer.HasHistory = &hasHistory
	answer.ConversationLength = &length
	return nil
}

func (a *Assistant) answerMultiAgent(ctx context.Context, q Question, w window.Window, answer *Answer) error {
	cctx, span := telemetry.StartSpan(ctx, a.tracer, "classifier.classify")
	result := a.classifier.Classify(cctx, classifier.Input{
		Question:             q.Text,
		PriorityPreview:      window.Preview(w.PriorityText, classifierPreviewLimit),
		CurrentTimeFormatted: w.CurrentTimeFormatted,
	})
	span.SetAttributes(
		telemetry.AttrQuestionType.String(result.QuestionType),
		telemetry.AttrDefaulted.Bool(result.Defaulted),
	)
	span.End()

	if result.Defaulted {
		a.metrics.ClassifierFallbacks.Add(ctx, 1)
		a.logger.WarnContext(ctx, "classification defaulted", slog.Any("cause", result.Cause))
	}

	extended := AdjustContext(w.ExtendedSummary, result.Classification)
	response, err := a.complete(ctx, llm.Request{
		SystemPrompt: responderSystemPrompt,
		UserPrompt:   buildResponderPrompt(w, q.Text, result.Classification, extended),
		MaxTokens:    responderMaxTokens,
		Temperature:  answerTemperature,
	})
	if err != nil {
		return err
	}

	answer.Response = response
	answer.Analysis = &result
	return nil
}

func (a *Assistant) complete(ctx context.Context, req llm.Request) (string, error) {
	ctx, span := telemetry.StartClientSpan(ctx, a.tracer, "llm.complete")
	defer span.End()

	start := time.Now()
	response, err := a.completer.Complete(ctx, req)
	a.metrics.LLMCallDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}

	response = strings.TrimSpace(response)
	if response == "" {
		return "", fmt.Errorf("%w: empty response", ErrCompletionFailed)
	}
	return response, nil
}
