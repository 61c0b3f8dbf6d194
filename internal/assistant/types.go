// Package assistant answers questions about a video at a playback position.
// It ties the transcript source, the windower, conversation memory, the
// classifier and the completion backend together.
package assistant

import (
	"errors"

	"video-assistant/internal/classifier"
)

var (
	// ErrTranscriptUnavailable means no transcript could be obtained for the video
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
	// ErrCompletionFailed means the completion backend did not produce an answer
	ErrCompletionFailed = errors.New("completion failed")
	// ErrInvalidQuestion means the request is missing a field or names an unknown mode
	ErrInvalidQuestion = errors.New("invalid question")
)

// Answer modes
const (
	ModeContextual = "contextual"
	ModeMemory     = "memory"
	ModeMultiAgent = "multi_agent"
)

// Modes lists every answer mode
var Modes = []string{ModeContextual, ModeMemory, ModeMultiAgent}

// ValidMode reports whether mode names a known answer mode
func ValidMode(mode string) bool {
	for _, m := range Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// Question is one request from a viewer
type Question struct {
	VideoID     string
	UserID      string
	CurrentTime float64
	Text        string
	// Mode selects the pipeline; empty uses the assistant's default mode
	Mode string
}

// Answer is the outcome of a successful Ask
type Answer struct {
	RequestID   string  `json:"request_id"`
	Response    string  `json:"response"`
	VideoID     string  `json:"video_id"`
	CurrentTime float64 `json:"timestamp"`
	Mode        string  `json:"mode"`

	// Analysis is set in multi_agent mode
	Analysis *classifier.Result `json:"analysis,omitempty"`

	// Set in memory mode
	HasHistory         *bool `json:"has_conversation_history,omitempty"`
	ConversationLength *int  `json:"conversation_length,omitempty"`

	// ContextUsed is the number of priority segments given to the model
	ContextUsed int `json:"context_used"`
}
