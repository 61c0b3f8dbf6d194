package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys
var (
	AttrVideoID      = attribute.Key("video_assistant.video.id")
	AttrUserID       = attribute.Key("video_assistant.user.id")
	AttrMode         = attribute.Key("video_assistant.mode")
	AttrCurrentTime  = attribute.Key("video_assistant.current_time")
	AttrQuestionType = attribute.Key("video_assistant.question_type")
	AttrDefaulted    = attribute.Key("video_assistant.classifier.defaulted")
	AttrRequestID    = attribute.Key("video_assistant.request.id")
)

// StartSpan starts an internal span
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartServerSpan starts a span for an inbound HTTP request
func StartServerSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartClientSpan starts a span for an outbound call
func StartClientSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}
