package classifier

import (
	"context"
	"strings"
	"unicode"
)

// HeuristicClassifier classifies questions from keyword patterns, without a
// model call
type HeuristicClassifier struct {
	patterns  map[string][]string
	stopwords map[string]bool
}

// typeProfile is the strategy and style associated with a question type
type typeProfile struct {
	strategy string
	style    string
}

var profiles = map[string]typeProfile{
	TypeDefinition:    {StrategyCurrentFocus, StyleDetailed},
	TypeClarification: {StrategyCurrentFocus, StyleConcise},
	TypeContext:       {StrategyRecentContext, StyleDetailed},
	TypeSummary:       {StrategyBroadContext, StyleStepByStep},
	TypeTimestamp:     {StrategySpecificSearch, StyleConcise},
	TypeComparison:    {StrategyBroadContext, StyleDetailed},
	TypeApplication:   {StrategyCurrentFocus, StyleStepByStep},
	TypeGeneral:       {StrategyCurrentFocus, StyleConversational},
}

// NewHeuristicClassifier creates a new keyword classifier
func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{
		patterns: map[string][]string{
			TypeDefinition: {
				"qu'est-ce que", "qu'est-ce qu'", "c'est quoi", "définition", "définis", "que signifie", "ça veut dire",
				"what is", "what are", "define", "definition", "meaning of", "what does",
			},
			TypeClarification: {
				"je ne comprends pas", "pas compris", "peux-tu clarifier", "précise", "tu veux dire", "pourquoi il dit",
				"don't understand", "didn't get", "clarify", "what did he mean", "what did she mean", "confused",
			},
			TypeContext: {
				"contexte", "plus de détails", "d'où vient", "pourquoi", "origine",
				"context", "more details", "background", "why",
			},
			TypeSummary: {
				"résume", "résumé", "récapitule", "en bref", "les points clés",
				"summarize", "summary", "recap", "key points", "tl;dr",
			},
			TypeTimestamp: {
				"à quel moment", "quand est-ce", "à quelle minute", "au début", "tout à l'heure", "plus tôt",
				"at what point", "when does", "when did", "which minute", "earlier", "at the start",
			},
			TypeComparison: {
				"différence entre", "comparer", "compare", "par rapport à", "versus", " vs ",
				"difference between", "compared to", "better than",
			},
			TypeApplication: {
				"comment appliquer", "comment utiliser", "exemple concret", "en pratique", "comment faire",
				"how to apply", "how do i use", "how can i use", "in practice", "real example",
			},
		},
		stopwords: toSet(
			"avec", "dans", "pour", "quoi", "quel", "quelle", "quels", "quelles", "comment", "est-ce", "c'est",
			"qu'est-ce", "cette", "celui", "celle", "sont", "vidéo", "parle", "peux-tu", "entre", "moment",
			"what", "does", "this", "that", "with", "about", "when", "where", "which", "video", "there", "from",
		),
	}
}

// Classify scores each question type by the number of matched patterns.
// The best-scoring type wins; ties go to the type listed first in profiles
// order, and no match at all is a general question.
func (h *HeuristicClassifier) Classify(_ context.Context, in Input) Result {
	question := strings.ToLower(strings.TrimSpace(in.Question))
	if question == "" {
		return defaulted(nil, "empty question", CallFailureConfidence)
	}

	bestType := TypeGeneral
	bestScore := 0
	var matched []string

	for _, qt := range typeOrder {
		hits := h.matches(question, h.patterns[qt])
		if len(hits) > bestScore {
			bestType = qt
			bestScore = len(hits)
			matched = hits
		}
	}

	profile := profiles[bestType]
	classification := Classification{
		QuestionType:    bestType,
		ContextStrategy: profile.strategy,
		ResponseStyle:   profile.style,
		Keywords:        h.keywords(question),
		Confidence:      confidenceFor(bestScore),
		Reasoning:       "general query",
	}
	if len(matched) > 0 {
		classification.Reasoning = "matched: " + strings.Join(matched, ", ")
	}

	return Result{Classification: classification}
}

// typeOrder fixes tie-breaking between question types
var typeOrder = []string{
	TypeSummary,
	TypeComparison,
	TypeTimestamp,
	TypeDefinition,
	TypeApplication,
	TypeClarification,
	TypeContext,
}

// matches returns the patterns found in the question
func (h *HeuristicClassifier) matches(question string, patterns []string) []string {
	var hits []string
	for _, pattern := range patterns {
		if strings.Contains(question, pattern) {
			hits = append(hits, strings.TrimSpace(pattern))
		}
	}
	return hits
}

// keywords returns up to five distinct significant words of the question
func (h *HeuristicClassifier) keywords(question string) []string {
	words := strings.FieldsFunc(question, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '\''
	})

	seen := make(map[string]bool)
	keywords := []string{}
	for _, w := range words {
		w = strings.Trim(w, "-'")
		if len([]rune(w)) < 4 || h.stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
		if len(keywords) == 5 {
			break
		}
	}
	return keywords
}

func confidenceFor(score int) float64 {
	if score == 0 {
		return 0.5
	}
	return min(0.9, 0.6+0.1*float64(score))
}

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
