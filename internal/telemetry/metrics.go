package telemetry

import "go.opentelemetry.io/otel/metric"

// Metrics holds the assistant's instruments
type Metrics struct {
	RequestDuration     metric.Float64Histogram
	LLMCallDuration     metric.Float64Histogram
	ClassifierFallbacks metric.Int64Counter
	TranscriptFailures  metric.Int64Counter
	SessionsCleaned     metric.Int64Counter
}

// NewMetrics creates every instrument from the meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.RequestDuration, err = meter.Float64Histogram("video_assistant.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.LLMCallDuration, err = meter.Float64Histogram("video_assistant.llm.duration",
		metric.WithDescription("Completion call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.ClassifierFallbacks, err = meter.Int64Counter("video_assistant.classifier.fallbacks",
		metric.WithDescription("Classifications replaced by the default record"),
	)
	if err != nil {
		return nil, err
	}

	m.TranscriptFailures, err = meter.Int64Counter("video_assistant.transcript.failures",
		metric.WithDescription("Requests whose transcript was unavailable"),
	)
	if err != nil {
		return nil, err
	}

	m.SessionsCleaned, err = meter.Int64Counter("video_assistant.memory.sessions_cleaned",
		metric.WithDescription("Expired conversation sessions removed"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// NoopMetrics returns instruments that record nothing
func NoopMetrics() *Metrics {
	m, _ := NewMetrics(Noop().Meter)
	return m
}
