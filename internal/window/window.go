// Package window builds the two-tier transcript context sent to the model:
// a verbatim priority window around the playback position and a bucketed,
// truncated summary of the rest of the video.
package window

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"video-assistant/internal/transcript"
)

const (
	// DefaultPriorityBefore is how far back (seconds) the priority window reaches
	DefaultPriorityBefore = 120.0
	// DefaultPriorityAfter is how far ahead (seconds) the priority window reaches
	DefaultPriorityAfter = 30.0

	// bucketSeconds is the width of one extended-summary bucket
	bucketSeconds = 300
	// bucketTextLimit is the hard cut applied to each bucket's joined text
	bucketTextLimit = 200
)

// Options sizes the priority window
type Options struct {
	PriorityBefore float64 `yaml:"priority_before" json:"priority_before"`
	PriorityAfter  float64 `yaml:"priority_after" json:"priority_after"`
}

// DefaultOptions returns the 120s-before / 30s-after window
func DefaultOptions() Options {
	return Options{
		PriorityBefore: DefaultPriorityBefore,
		PriorityAfter:  DefaultPriorityAfter,
	}
}

// Window is the context derived from a transcript for one request
type Window struct {
	CurrentTime          float64
	CurrentTimeFormatted string
	PrioritySegments     []transcript.Segment
	ExtendedSegments     []transcript.Segment
	PriorityText         string
	ExtendedSummary      string
}

// Partition splits a transcript around currentTime.
//
// A segment belongs to the priority window when its start lies in
// [max(0, currentTime-before), currentTime+after]. Only the start is tested:
// a long segment starting inside the window is kept whole, one starting just
// before it is excluded even if it overlaps.
func Partition(segments []transcript.Segment, currentTime float64, opts Options) Window {
	start := math.Max(0, currentTime-opts.PriorityBefore)
	end := currentTime + opts.PriorityAfter

	priority := []transcript.Segment{}
	extended := []transcript.Segment{}

	for _, seg := range segments {
		if start <= seg.Start && seg.Start <= end {
			priority = append(priority, seg)
		} else {
			extended = append(extended, seg)
		}
	}

	return Window{
		CurrentTime:          currentTime,
		CurrentTimeFormatted: FormatTimestamp(currentTime),
		PrioritySegments:     priority,
		ExtendedSegments:     extended,
		PriorityText:         RenderPriorityText(priority),
		ExtendedSummary:      SummarizeExtended(extended),
	}
}

// FormatTimestamp renders seconds as MM:SS. Minutes are not wrapped into
// hours, so 3661 gives "61:01".
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// RenderPriorityText renders each segment as "[MM:SS] text\n"
func RenderPriorityText(segments []transcript.Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteString("[")
		sb.WriteString(FormatTimestamp(seg.Start))
		sb.WriteString("] ")
		sb.WriteString(seg.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// SummarizeExtended groups segments into 5-minute buckets and renders each as
// "[MM:00-MM+5:00] <first 200 characters>...\n\n" in ascending order.
//
// The cut is a hard character cut, not word-aware; the ellipsis is appended
// even when nothing was removed.
func SummarizeExtended(segments []transcript.Segment) string {
	if len(segments) == 0 {
		return ""
	}

	buckets := make(map[int][]string)
	for _, seg := range segments {
		key := BucketKey(seg.Start)
		buckets[key] = append(buckets[key], seg.Text)
	}

	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var sb strings.Builder
	for _, k := range keys {
		text := Truncate(strings.Join(buckets[k], " "), bucketTextLimit)
		fmt.Fprintf(&sb, "[%02d:00-%02d:00] %s...\n\n", k, k+5, text)
	}
	return sb.String()
}

// BucketKey returns the starting minute of the 5-minute bucket holding start
func BucketKey(start float64) int {
	return int(math.Floor(start/bucketSeconds)) * 5
}

// Preview returns the first n characters of text, with "..." appended when
// anything was cut.
func Preview(text string, n int) string {
	if len([]rune(text)) <= n {
		return text
	}
	return Truncate(text, n) + "..."
}

// Truncate cuts s to at most n characters (runes, not bytes)
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
