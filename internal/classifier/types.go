// Package classifier analyzes a viewer's question before an answer is
// generated: what kind of question it is, how much of the video to look at,
// and how the answer should be phrased.
package classifier

import "context"

// Question types
const (
	TypeDefinition    = "definition"
	TypeClarification = "clarification"
	TypeContext       = "context"
	TypeSummary       = "summary"
	TypeTimestamp     = "timestamp"
	TypeComparison    = "comparison"
	TypeApplication   = "application"
	TypeGeneral       = "general"
)

// Context strategies
const (
	StrategyCurrentFocus   = "current_focus"
	StrategyRecentContext  = "recent_context"
	StrategyBroadContext   = "broad_context"
	StrategySpecificSearch = "specific_search"
)

// Response styles
const (
	StyleConcise        = "concise"
	StyleDetailed       = "detailed"
	StyleStepByStep     = "step_by_step"
	StyleConversational = "conversational"
)

// Confidence reported by the default record
const (
	ParseFailureConfidence = 0.4
	CallFailureConfidence  = 0.3
)

// Classification is the analysis of one question
type Classification struct {
	QuestionType    string   `json:"question_type"`
	ContextStrategy string   `json:"context_strategy"`
	ResponseStyle   string   `json:"response_style"`
	Keywords        []string `json:"keywords"`
	Confidence      float64  `json:"confidence"`
	Reasoning       string   `json:"reasoning"`
}

// Result is either a classification produced by a classifier or, when that
// failed, the fixed default record. Defaulted tells the two apart and Cause
// holds the reason for the substitution.
type Result struct {
	Classification
	Defaulted bool  `json:"defaulted"`
	Cause     error `json:"-"`
}

// Input is what a classifier sees of a request
type Input struct {
	Question             string
	PriorityPreview      string
	CurrentTimeFormatted string
}

// Classifier analyzes questions. Implementations never fail: problems are
// reported through a defaulted Result.
type Classifier interface {
	Classify(ctx context.Context, in Input) Result
}

// Default returns the fixed fallback record
func Default(reasoning string, confidence float64) Classification {
	return Classification{
		QuestionType:    TypeGeneral,
		ContextStrategy: StrategyCurrentFocus,
		ResponseStyle:   StyleConversational,
		Keywords:        []string{},
		Confidence:      confidence,
		Reasoning:       reasoning,
	}
}

func defaulted(cause error, reasoning string, confidence float64) Result {
	return Result{
		Classification: Default(reasoning, confidence),
		Defaulted:      true,
		Cause:          cause,
	}
}
