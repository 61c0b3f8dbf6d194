package assistant

import (
	"strings"

	"video-assistant/internal/classifier"
	"video-assistant/internal/window"
)

const (
	currentFocusLimit  = 500
	recentContextLimit = 800
	searchFallback     = 1000
)

// AdjustContext narrows the extended summary according to the analysis.
// The priority text is always passed through untouched.
func AdjustContext(summary string, analysis classifier.Classification) string {
	switch analysis.ContextStrategy {
	case classifier.StrategyCurrentFocus:
		return window.Truncate(summary, currentFocusLimit) + "..."
	case classifier.StrategyRecentContext:
		return window.Truncate(summary, recentContextLimit) + "..."
	case classifier.StrategySpecificSearch:
		return FilterByKeywords(summary, analysis.Keywords)
	default:
		return summary
	}
}

// FilterByKeywords keeps the paragraphs of summary (separated by blank
// lines) that mention at least one keyword, case-insensitively. Without
// keywords the summary is returned whole; when nothing matches, the first
// 1000 characters are returned with "..." appended.
func FilterByKeywords(summary string, keywords []string) string {
	if len(keywords) == 0 {
		return summary
	}

	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			lowered = append(lowered, kw)
		}
	}
	if len(lowered) == 0 {
		return summary
	}

	var relevant []string
	for _, paragraph := range strings.Split(summary, "\n\n") {
		p := strings.ToLower(paragraph)
		for _, kw := range lowered {
			if strings.Contains(p, kw) {
				relevant = append(relevant, paragraph)
				break
			}
		}
	}

	if len(relevant) == 0 {
		return window.Truncate(summary, searchFallback) + "..."
	}
	return strings.Join(relevant, "\n\n")
}
