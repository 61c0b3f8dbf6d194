package transcript

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// ErrUnavailable is returned when no transcript can be retrieved for a video
var ErrUnavailable = errors.New("transcript unavailable")

// Segment is one timed line of a transcript. Start and Duration are seconds.
type Segment struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// End returns the time at which the segment stops being spoken
func (s Segment) End() float64 {
	return s.Start + s.Duration
}

// Source fetches the transcript of a video
type Source interface {
	Fetch(ctx context.Context, videoID string) ([]Segment, error)
}

// RawSegment is a segment as decoded from an upstream format, before cleanup
type RawSegment struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// Normalize turns upstream segments into the Segment shape used everywhere
// else: negative times clamp to 0, whitespace is collapsed, empty lines are
// dropped and the result is ordered by start time.
func Normalize(raw []RawSegment) []Segment {
	segments := make([]Segment, 0, len(raw))
	for _, r := range raw {
		text := strings.Join(strings.Fields(r.Text), " ")
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Start:    max(r.Start, 0),
			Duration: max(r.Duration, 0),
			Text:     text,
		})
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})

	return segments
}

// Info summarizes a fetched transcript
type Info struct {
	SegmentsCount int     `json:"segments_count"`
	Duration      float64 `json:"duration"`
}

// Describe reports the segment count and the start of the last segment
func Describe(segments []Segment) Info {
	info := Info{SegmentsCount: len(segments)}
	if len(segments) > 0 {
		info.Duration = segments[len(segments)-1].Start
	}
	return info
}
